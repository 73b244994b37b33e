package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/onboard/internal/client"
	"github.com/wolfeidau/onboard/internal/config"
	"github.com/wolfeidau/onboard/internal/logger"
	"github.com/wolfeidau/onboard/internal/login"
	"github.com/wolfeidau/onboard/internal/session"
	"github.com/wolfeidau/onboard/internal/store/file"
	"github.com/wolfeidau/onboard/internal/telemetry"
)

const identityFile = "identity.json"

var (
	ErrSessionInvalidated = errors.New("session was invalidated, run `onboard login` again")
	ErrNoTenant           = errors.New("no tenant selected, run `onboard tenants use <gid>`")
)

type Globals struct {
	Debug    bool
	Version  string
	Tracing  bool
	Profile  string
	StoreDir string
	Location string

	// Connection settings from flags and environment; the profile file overrides them.
	Connection config.Profile
}

// app wires the session manager and its collaborators for one command run.
type app struct {
	profile   config.Profile
	sessions  *file.Store
	device    *login.Device
	navigator *session.URLNavigator
	manager   *session.Manager
	shutdown  telemetry.ShutdownFunc
}

func newApp(ctx context.Context, globals *Globals, location string) (*app, error) {
	log.Logger = logger.Setup(globals.Debug)

	fromFile, err := config.Load(globals.Profile)
	if err != nil {
		return nil, err
	}
	profile := fromFile.Over(globals.Connection)
	if err := profile.ValidateLogin(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{
		profile:  profile,
		shutdown: func(context.Context) error { return nil },
	}

	if globals.Tracing {
		log.Debug().Msg("Tracing is enabled")
		shutdown, err := telemetry.Init(ctx, "onboard-cli", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		} else {
			a.shutdown = shutdown
		}
	}

	dir := globals.StoreDir
	if dir == "" {
		if dir, err = file.DefaultDir(); err != nil {
			return nil, err
		}
	}

	a.sessions, err = file.New(dir, file.DefaultName)
	if err != nil {
		return nil, err
	}

	identities, err := file.New(dir, identityFile)
	if err != nil {
		return nil, err
	}

	a.device, err = login.NewDevice(ctx, login.Config{
		Issuer:   profile.Issuer,
		ClientID: profile.ClientID,
		Scopes:   profile.Scopes,
	}, identities)
	if err != nil {
		return nil, fmt.Errorf("failed to set up login: %w", err)
	}

	if location == "" {
		location = globals.Location
	}
	a.navigator, err = session.NewURLNavigator(location)
	if err != nil {
		return nil, fmt.Errorf("invalid location: %w", err)
	}

	notifier := session.LogNotifier{}

	a.manager, err = session.NewManager(session.Options{
		Cache:     a.sessions,
		Identity:  a.device,
		Notifier:  notifier,
		Navigator: a.navigator,
		Client: client.New(client.Config{
			ServerURL: profile.Server,
			Timeout:   30 * time.Second,
			Debug:     globals.Debug,
			CacheDir:  filepath.Join(dir, "http"),
		}),
		Loader:       session.NewTenantLoader(notifier, session.LoaderConfig{RoleTimeout: profile.RoleTimeout}),
		OverviewPath: profile.OverviewPath,
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown telemetry")
	}
}

// start brings up the session of the logged in user.
func (a *app) start(ctx context.Context) (session.State, error) {
	state, err := a.manager.Start(ctx)
	if err != nil {
		return state, err
	}

	switch {
	case a.manager.Phase() == session.PhaseInvalid:
		return state, ErrSessionInvalidated
	case state.Token == "":
		return state, fmt.Errorf("%w, run `onboard login`", login.ErrNotLoggedIn)
	}

	return state, nil
}

// startWithTenant is start for commands acting on the current tenant.
func (a *app) startWithTenant(ctx context.Context) (session.State, error) {
	state, err := a.start(ctx)
	if err != nil {
		return state, err
	}
	if state.CurrentTenant.IsZero() {
		return state, ErrNoTenant
	}
	return state, nil
}

func rolesString(t session.Tenant) string {
	switch {
	case !t.RolesKnown():
		return "(unknown)"
	case len(t.Roles) == 0:
		return "(none)"
	}
	return strings.Join(t.Roles, ", ")
}
