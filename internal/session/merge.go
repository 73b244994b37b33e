package session

import "slices"

// Merge computes the next state from prev and the partial update desired. Each field takes the
// desired value when provided, else the value of prev, else the bootstrap default. Token and user
// always come from the identity snapshot id. The client is left unset; it is derived by the
// Manager from the merged result.
//
// When exactly one tenant is loaded it becomes the current tenant.
func Merge(prev State, desired Update, id Identity) State {
	next := State{
		CurrentTenant: prev.CurrentTenant.clone(),
		Token:         id.AccessToken,
		Tenants:       prev.Clone().Tenants,
		Configuration: prev.Clone().Configuration,
	}

	if id.User != nil {
		u := *id.User
		next.User = &u
	}

	if desired.CurrentTenant != nil {
		next.CurrentTenant = desired.CurrentTenant.clone()
	}

	if desired.Tenants != nil {
		next.Tenants = State{Tenants: desired.Tenants}.Clone().Tenants
	}

	if desired.Configuration != nil {
		cfg := *desired.Configuration
		next.Configuration = &cfg
	}

	next.CurrentTenant = normalizeTenant(next.CurrentTenant)

	return applySingleTenant(next)
}

// normalizeTenant gives the current tenant a defined, possibly empty, role list.
func normalizeTenant(t Tenant) Tenant {
	if t.Roles == nil {
		t.Roles = []string{}
	}
	return t
}

// applySingleTenant selects the only loaded tenant.
func applySingleTenant(s State) State {
	if len(s.Tenants) != 1 {
		return s
	}

	only := normalizeTenant(s.Tenants[0].clone())
	if !s.CurrentTenant.Equal(only) {
		s.CurrentTenant = only
	}
	return s
}

// isInvalid reports whether the persisted session no longer belongs to the identity: it was
// established for a user with a different token, or the provider has no identity token. A token
// obtained by refreshing the persisted one continues the session.
func isInvalid(persisted State, id Identity) bool {
	if id.IDToken == "" {
		return true
	}
	if persisted.User == nil || id.AccessToken == persisted.Token {
		return false
	}
	return id.RenewedFrom == "" || id.RenewedFrom != persisted.Token
}

// tenantsEqual compares two tenant lists element by element.
func tenantsEqual(a, b []Tenant) bool {
	return (a == nil) == (b == nil) && slices.EqualFunc(a, b, Tenant.Equal)
}
