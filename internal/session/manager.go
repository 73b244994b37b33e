package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/onboard/internal/client"
	"github.com/wolfeidau/onboard/internal/store"
	"github.com/wolfeidau/onboard/internal/telemetry"
)

const (
	// TenantIDParam preselects a tenant when present on the location at authentication time.
	TenantIDParam = "tenantid"

	// DefaultOverviewPath is where navigation lands after a tenant parameter was consumed.
	DefaultOverviewPath = "/overview"

	// ConfigurationPath serves the application configuration.
	ConfigurationPath = "/configuration"
)

// Sentinel errors
var (
	// ErrUnknownTenant is returned when selecting a tenant that is not loaded.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrTenantSelectionDisabled is returned when switching away from the only tenant.
	ErrTenantSelectionDisabled = errors.New("tenant selection is disabled")

	// ErrNoTenantSelected is returned by operations that need a current tenant.
	ErrNoTenantSelected = errors.New("no tenant selected")

	errMissingDependency = errors.New("missing dependency")
)

// IdentityProvider is the source of the authenticated identity.
type IdentityProvider interface {
	// Current returns the current identity; the zero Identity when nobody is logged in.
	Current(ctx context.Context) (Identity, error)

	// SignOutSilent ends the identity session without user interaction.
	SignOutSilent(ctx context.Context) error
}

// Notifier shows messages to the user.
type Notifier interface {
	Error(msg string)
}

// Navigator exposes the current location of the console and moves it.
type Navigator interface {
	Location() *url.URL
	Navigate(path string)
}

// Options configures a Manager.
type Options struct {
	Cache     store.Cache
	Identity  IdentityProvider
	Notifier  Notifier
	Navigator Navigator

	// Client is the unauthenticated API client every session client is derived from.
	Client *client.Client

	// Loader fetches tenants and roles. Defaults to NewTenantLoader(Notifier, LoaderConfig{}).
	Loader *TenantLoader

	// OverviewPath defaults to DefaultOverviewPath.
	OverviewPath string
}

// Manager owns the session state. All changes go through Dispatch.
type Manager struct {
	mu    sync.RWMutex
	state State
	phase Phase

	cache     store.Cache
	identity  IdentityProvider
	notifier  Notifier
	navigator Navigator
	base      *client.Client
	loader    *TenantLoader
	overview  string
}

// NewManager creates a manager in the bootstrap phase.
func NewManager(opts Options) (*Manager, error) {
	switch {
	case opts.Cache == nil:
		return nil, fmt.Errorf("%w: cache", errMissingDependency)
	case opts.Identity == nil:
		return nil, fmt.Errorf("%w: identity provider", errMissingDependency)
	case opts.Notifier == nil:
		return nil, fmt.Errorf("%w: notifier", errMissingDependency)
	case opts.Navigator == nil:
		return nil, fmt.Errorf("%w: navigator", errMissingDependency)
	case opts.Client == nil:
		return nil, fmt.Errorf("%w: client", errMissingDependency)
	}

	if opts.Loader == nil {
		opts.Loader = NewTenantLoader(opts.Notifier, LoaderConfig{})
	}
	if opts.OverviewPath == "" {
		opts.OverviewPath = DefaultOverviewPath
	}

	m := &Manager{
		phase:     PhaseBootstrap,
		cache:     opts.Cache,
		identity:  opts.Identity,
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
		base:      opts.Client,
		loader:    opts.Loader,
		overview:  opts.OverviewPath,
	}
	m.state = m.bootstrapState()

	return m, nil
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Clone()
}

// Phase returns the lifecycle phase of the session.
func (m *Manager) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.phase
}

// TenantSelectionDisabled reports whether the user has exactly one tenant, which is then always
// the current one.
func (m *Manager) TenantSelectionDisabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return selectionDisabled(m.state)
}

func selectionDisabled(s State) bool {
	return len(s.Tenants) == 1 && !s.CurrentTenant.IsZero()
}

// Dispatch reconciles the session with update and the current identity. The new state is
// written to the cache before it is installed; if the write fails the previous state is kept.
func (m *Manager) Dispatch(ctx context.Context, update Update) (State, error) {
	id, err := m.identity.Current(ctx)
	if err != nil {
		return m.Snapshot(), fmt.Errorf("failed to read identity: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.dispatchLocked(ctx, update, id)
}

func (m *Manager) dispatchLocked(ctx context.Context, update Update, id Identity) (State, error) {
	prev := m.state
	next := Merge(prev, update, id)
	next.Client = m.clientFor(id.AccessToken, next.CurrentTenant.GID)

	if err := m.cache.Set(SessionKey, next); err != nil {
		telemetry.GetMetrics().SessionPersistErrorsTotal.Add(ctx, 1)
		return prev.Clone(), fmt.Errorf("failed to persist session: %w", err)
	}

	m.state = next
	telemetry.GetMetrics().SessionDispatchTotal.Add(ctx, 1)

	log.Debug().
		Str("tenant", next.CurrentTenant.GID).
		Int("tenants", len(next.Tenants)).
		Bool("tenants_changed", !tenantsEqual(prev.Tenants, next.Tenants)).
		Bool("selection_disabled", selectionDisabled(next)).
		Msg("session reconciled")

	return next.Clone(), nil
}

// clientFor derives the API client for a token and tenant. Without a token the unauthenticated
// base client is used.
func (m *Manager) clientFor(token, tenantID string) *client.Client {
	if token == "" {
		return m.base
	}
	return m.base.WithBearer(token, tenantID)
}

func (m *Manager) bootstrapState() State {
	s := DefaultState()
	s.Client = m.base
	return s
}

// Restore adopts the session persisted by a previous run. Without one, the cache is seeded with
// the bootstrap state. An unreadable cache is discarded.
func (m *Manager) Restore(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.phase = PhaseRestoring

	var persisted State
	err := m.cache.Get(SessionKey, &persisted)
	switch {
	case errors.Is(err, store.ErrNotFound):
		m.state = m.bootstrapState()
		m.phase = PhaseBootstrap
		if err := m.cache.Set(SessionKey, m.state); err != nil {
			return m.state.Clone(), fmt.Errorf("failed to persist session: %w", err)
		}
		log.Debug().Msg("no persisted session, starting from bootstrap")
		return m.state.Clone(), nil
	case err != nil:
		log.Warn().Err(err).Msg("discarding unreadable persisted session")
		m.state = m.bootstrapState()
		m.phase = PhaseBootstrap
		return m.state.Clone(), nil
	}

	persisted.CurrentTenant = normalizeTenant(persisted.CurrentTenant)
	persisted.Client = m.clientFor(persisted.Token, persisted.CurrentTenant.GID)

	m.state = persisted
	m.phase = PhaseActive

	log.Debug().
		Str("tenant", persisted.CurrentTenant.GID).
		Int("tenants", len(persisted.Tenants)).
		Msg("restored persisted session")

	return m.state.Clone(), nil
}

// Start restores the persisted session and, when the identity provider reports an authenticated
// user, runs Authenticate.
func (m *Manager) Start(ctx context.Context) (State, error) {
	if _, err := m.Restore(ctx); err != nil {
		return m.Snapshot(), err
	}

	id, err := m.identity.Current(ctx)
	if err != nil {
		return m.Snapshot(), fmt.Errorf("failed to read identity: %w", err)
	}

	if !id.Authenticated() {
		return m.Snapshot(), nil
	}

	return m.Authenticate(ctx)
}

// Authenticate populates the session for the identity provider's current user: it loads tenants
// and roles, resolves the current tenant and reconciles. A session that no longer matches the
// identity is invalidated instead; check Phase afterwards.
//
// When the tenant list cannot be loaded the previous state is kept and the error returned.
func (m *Manager) Authenticate(ctx context.Context) (State, error) {
	id, err := m.identity.Current(ctx)
	if err != nil {
		return m.Snapshot(), fmt.Errorf("failed to read identity: %w", err)
	}

	m.mu.Lock()
	prev := m.state.Clone()
	prevPhase := m.phase
	if isInvalid(prev, id) {
		m.mu.Unlock()
		return m.Invalidate(ctx)
	}
	m.phase = PhaseAuthenticating
	m.mu.Unlock()

	tenants, err := m.loader.LoadTenantsAndRoles(ctx, m.base.WithBearer(id.AccessToken, ""))
	if err != nil {
		m.mu.Lock()
		m.phase = prevPhase
		m.mu.Unlock()
		return prev, fmt.Errorf("failed to load tenants: %w", err)
	}

	current := m.resolveTenant(ctx, prev, tenants)

	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.dispatchLocked(ctx, Update{CurrentTenant: &current, Tenants: tenants}, id)
	if err != nil {
		m.phase = prevPhase
		return next, err
	}

	m.phase = PhaseActive

	log.Info().
		Str("tenant", next.CurrentTenant.GID).
		Int("tenants", len(next.Tenants)).
		Msg("session authenticated")

	return next, nil
}

// resolveTenant picks the current tenant after a login: the tenant named by the tenantid location
// parameter, else the previous tenant, else the placeholder. A consumed parameter is removed by
// navigating to the overview. An unknown id is reported and falls back.
func (m *Manager) resolveTenant(ctx context.Context, prev State, tenants []Tenant) Tenant {
	fallback := prev.CurrentTenant
	if fallback.IsZero() {
		fallback = DefaultTenant()
	} else if fresh, ok := (State{Tenants: tenants}).FindTenant(fallback.GID); ok {
		// Same tenant with the roles just loaded.
		fallback = fresh
	}

	query := m.navigator.Location().Query()
	if !query.Has(TenantIDParam) {
		return fallback
	}

	defer m.navigator.Navigate(m.overview)

	tenantID := query.Get(TenantIDParam)
	if tenant, ok := (State{Tenants: tenants}).FindTenant(tenantID); ok {
		log.Debug().Str("tenant", tenantID).Msg("tenant selected from location")
		return tenant
	}

	log.Warn().Str("tenant", tenantID).Msg("tenant id from location matches no tenant")
	telemetry.GetMetrics().InvalidTenantParamTotal.Add(ctx, 1)
	m.notifier.Error(fmt.Sprintf("Invalid tenant id %q.", tenantID))

	return fallback
}

// Invalidate discards the session after a token mismatch: the cache is cleared, the identity
// provider signs out silently and the in-memory state returns to bootstrap in PhaseInvalid.
// Failures are logged, not returned; the session is unusable either way.
func (m *Manager) Invalidate(ctx context.Context) (State, error) {
	log.Warn().Msg("invalid token, clearing session")

	m.mu.Lock()
	if err := m.cache.RemoveAll(); err != nil {
		log.Error().Err(err).Msg("failed to clear session cache")
	}
	m.state = m.bootstrapState()
	m.phase = PhaseInvalid
	m.mu.Unlock()

	telemetry.GetMetrics().SessionInvalidatedTotal.Add(ctx, 1)

	if err := m.identity.SignOutSilent(ctx); err != nil {
		log.Error().Err(err).Msg("silent sign out failed")
	}

	return m.Snapshot(), nil
}

// Logout clears the cache, signs out at the identity provider and resets to bootstrap.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	err := m.cache.RemoveAll()
	m.state = m.bootstrapState()
	m.phase = PhaseBootstrap
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to clear session cache: %w", err)
	}

	if err := m.identity.SignOutSilent(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}

	log.Info().Msg("logged out")

	return nil
}

// Reset drops the persisted session without signing out, so the next Authenticate starts a
// fresh bootstrap cycle. Used before a new interactive login.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = m.bootstrapState()
	m.phase = PhaseBootstrap

	if err := m.cache.Delete(SessionKey); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return nil
}

// SelectTenant makes the loaded tenant gid the current tenant.
func (m *Manager) SelectTenant(ctx context.Context, gid string) (State, error) {
	snapshot := m.Snapshot()

	tenant, ok := snapshot.FindTenant(gid)
	if !ok {
		return snapshot, fmt.Errorf("%w: %s", ErrUnknownTenant, gid)
	}

	if selectionDisabled(snapshot) && snapshot.CurrentTenant.GID != gid {
		return snapshot, ErrTenantSelectionDisabled
	}

	return m.Dispatch(ctx, Update{CurrentTenant: &tenant})
}

// LoadConfiguration fetches the application configuration once a tenant is selected and stores it
// in the session. An already loaded configuration is returned as is.
func (m *Manager) LoadConfiguration(ctx context.Context) (*Configuration, error) {
	snapshot := m.Snapshot()

	if snapshot.Configuration != nil {
		return snapshot.Configuration, nil
	}
	if snapshot.CurrentTenant.IsZero() {
		return nil, ErrNoTenantSelected
	}

	var cfg Configuration
	if err := snapshot.Client.GetJSON(ctx, ConfigurationPath, &cfg); err != nil {
		log.Error().Err(err).Str("tenant", snapshot.CurrentTenant.GID).Msg("failed to read application configuration")
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	next, err := m.Dispatch(ctx, Update{Configuration: &cfg})
	if err != nil {
		return nil, err
	}

	return next.Configuration, nil
}
