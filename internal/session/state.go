// Package session holds the console's single source of truth for who is logged in, as which
// tenant, with which capabilities.
//
// State is only ever replaced, never mutated: Manager.Dispatch computes a new State from the
// previous one and a partial Update (see Merge), writes it to the cache and then installs it.
package session

import (
	"slices"
	"time"

	"github.com/wolfeidau/onboard/internal/client"
)

// SessionKey is the cache key the session state is persisted under.
const SessionKey = "session"

// Phase is the lifecycle position of the in-memory session.
type Phase int

const (
	PhaseBootstrap Phase = iota
	PhaseRestoring
	PhaseAuthenticating
	PhaseActive
	PhaseInvalid
)

func (p Phase) String() string {
	switch p {
	case PhaseBootstrap:
		return "bootstrap"
	case PhaseRestoring:
		return "restoring"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseActive:
		return "active"
	case PhaseInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Tenant is a customer organisation the user can act for.
// Roles is nil when the roles of the user could not be determined; that grants nothing.
type Tenant struct {
	Name  string   `json:"name"`
	GID   string   `json:"gid"`
	Roles []string `json:"roles"`
}

// IsZero reports whether t is the empty placeholder.
func (t Tenant) IsZero() bool {
	return t.GID == ""
}

// RolesKnown reports whether the roles of the tenant were loaded.
func (t Tenant) RolesKnown() bool {
	return t.Roles != nil
}

// HasRole reports whether the user holds role in the tenant. Unknown roles never match.
func (t Tenant) HasRole(role string) bool {
	return slices.Contains(t.Roles, role)
}

// HasAnyRole reports whether the user holds at least one of roles.
func (t Tenant) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, t.HasRole)
}

// Equal compares name, id and roles, treating unknown and empty roles as different.
func (t Tenant) Equal(o Tenant) bool {
	return t.Name == o.Name && t.GID == o.GID &&
		(t.Roles == nil) == (o.Roles == nil) && slices.Equal(t.Roles, o.Roles)
}

func (t Tenant) clone() Tenant {
	t.Roles = slices.Clone(t.Roles)
	return t
}

// User is the authenticated identity as reported by the identity provider.
type User struct {
	Subject   string    `json:"sub"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Configuration is the application configuration served by the API.
type Configuration struct {
	AIDocumentExtractorEnabled bool `json:"aiDocumentExtractorEnabled"`
}

// Identity is a snapshot of the identity provider. The zero value is "not authenticated".
type Identity struct {
	AccessToken string
	IDToken     string
	User        *User

	// RenewedFrom is the access token AccessToken replaced through a refresh, if any.
	RenewedFrom string
}

// Authenticated reports whether the provider holds an access token.
func (i Identity) Authenticated() bool {
	return i.AccessToken != ""
}

// State is the full session. Client is rebuilt on every reconciliation and never persisted.
type State struct {
	CurrentTenant Tenant         `json:"currentTenant"`
	Token         string         `json:"token,omitempty"`
	User          *User          `json:"user,omitempty"`
	Tenants       []Tenant       `json:"tenantList"`
	Configuration *Configuration `json:"configuration,omitempty"`

	Client *client.Client `json:"-"`
}

// Clone returns a deep copy of the state. The client is shared, it is immutable.
func (s State) Clone() State {
	s.CurrentTenant = s.CurrentTenant.clone()
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	if s.Tenants != nil {
		tenants := make([]Tenant, len(s.Tenants))
		for i, t := range s.Tenants {
			tenants[i] = t.clone()
		}
		s.Tenants = tenants
	}
	if s.Configuration != nil {
		cfg := *s.Configuration
		s.Configuration = &cfg
	}
	return s
}

// FindTenant returns the loaded tenant with the given global id.
func (s State) FindTenant(gid string) (Tenant, bool) {
	i := slices.IndexFunc(s.Tenants, func(t Tenant) bool { return t.GID == gid })
	if i < 0 {
		return Tenant{}, false
	}
	return s.Tenants[i].clone(), true
}

// Update is a partial desired state. Nil fields are not provided and fall back to the previous
// state. A non-nil, empty Tenants replaces the list with an empty one.
type Update struct {
	CurrentTenant *Tenant
	Tenants       []Tenant
	Configuration *Configuration
}

// DefaultTenant returns the placeholder used while no tenant is selected.
func DefaultTenant() Tenant {
	return Tenant{Roles: []string{}}
}

// DefaultState returns the bootstrap state: placeholder tenant, nothing else.
func DefaultState() State {
	return State{CurrentTenant: DefaultTenant()}
}
