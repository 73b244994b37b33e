package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/onboard/internal/client"
	"github.com/wolfeidau/onboard/internal/telemetry"
)

const (
	tracerName = "github.com/wolfeidau/onboard/internal/session"

	tenantsPath = "/Tenants"

	defaultRoleTimeout     = 10 * time.Second
	defaultMaxTries        = 3
	defaultInitialInterval = 200 * time.Millisecond
	defaultConcurrency     = 8
)

// LoaderConfig tunes tenant and role loading. Zero fields take defaults.
type LoaderConfig struct {
	// RoleTimeout bounds each per-tenant role fetch.
	RoleTimeout time.Duration

	// MaxTries bounds attempts of the tenant list fetch.
	MaxTries uint

	// InitialInterval is the first retry delay of the tenant list fetch.
	InitialInterval time.Duration

	// Concurrency bounds role fetches in flight.
	Concurrency int
}

// TenantLoader fetches the tenants of the user and the user's roles in each of them.
type TenantLoader struct {
	notifier Notifier
	cfg      LoaderConfig
}

// NewTenantLoader creates a loader reporting failures of the tenant list to notifier.
func NewTenantLoader(notifier Notifier, cfg LoaderConfig) *TenantLoader {
	if cfg.RoleTimeout <= 0 {
		cfg.RoleTimeout = defaultRoleTimeout
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaultMaxTries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaultInitialInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	return &TenantLoader{notifier: notifier, cfg: cfg}
}

type tenantResource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Products []int  `json:"products,omitempty"`
}

type userResource struct {
	Roles []string `json:"roles"`
}

// LoadTenantsAndRoles returns every tenant of the user with the user's roles in it.
//
// A failed tenant list is reported to the notifier and returned as an error. Role fetches are
// independent: a tenant whose roles could not be read within RoleTimeout keeps nil roles and
// the others are unaffected. The result keeps the order of the tenant list.
func (l *TenantLoader) LoadTenantsAndRoles(ctx context.Context, c *client.Client) ([]Tenant, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "LoadTenantsAndRoles")
	defer span.End()

	start := time.Now()
	defer func() {
		telemetry.GetMetrics().TenantFetchDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	}()

	resources, err := l.fetchTenants(ctx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tenant list failed")
		telemetry.GetMetrics().TenantFetchErrorsTotal.Add(ctx, 1)
		log.Error().Err(err).Msg("failed to load tenants")
		l.notifier.Error("Tenants could not be loaded.")
		return nil, err
	}

	tenants := make([]Tenant, len(resources))
	for i, r := range resources {
		tenants[i] = Tenant{Name: r.Name, GID: r.ID}
	}

	var g errgroup.Group
	g.SetLimit(l.cfg.Concurrency)

	for i := range tenants {
		g.Go(func() error {
			roles, err := l.fetchRoles(ctx, c, tenants[i].GID)
			if err != nil {
				telemetry.GetMetrics().RoleFetchFailuresTotal.Add(ctx, 1)
				log.Warn().Err(err).Str("tenant", tenants[i].GID).Msg("failed to load roles")
				// Reported, not returned: the other fetches must complete.
				return nil
			}
			if roles == nil {
				roles = []string{}
			}
			tenants[i].Roles = roles
			return nil
		})
	}

	g.Wait()

	span.SetAttributes(attribute.Int("tenants", len(tenants)))

	log.Debug().Int("tenants", len(tenants)).Dur("elapsed", time.Since(start)).Msg("tenants loaded")

	return tenants, nil
}

func (l *TenantLoader) fetchTenants(ctx context.Context, c *client.Client) ([]tenantResource, error) {
	operation := func() ([]tenantResource, error) {
		var resources []tenantResource
		if err := c.GetJSON(ctx, tenantsPath, &resources); err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && !apiErr.Temporary() {
				return nil, backoff.Permanent(err)
			}
			if errors.Is(err, client.ErrDecode) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return resources, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.cfg.InitialInterval

	resources, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(l.cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Debug().Err(err).Dur("retry_in", next).Msg("retrying tenant list")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tenants: %w", err)
	}

	return resources, nil
}

func (l *TenantLoader) fetchRoles(ctx context.Context, c *client.Client, gid string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.RoleTimeout)
	defer cancel()

	var user userResource
	path := fmt.Sprintf("%s/%s/Users/Me", tenantsPath, url.PathEscape(gid))
	if err := c.GetJSON(ctx, path, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	return user.Roles, nil
}
