package onboarding

import "github.com/wolfeidau/onboard/internal/session"

// Event is an onboarding workflow action.
type Event string

const (
	EventNew    Event = "NEW"
	EventEdit   Event = "EDIT"
	EventDelete Event = "DELETE"
	EventSend   Event = "SEND"
	EventReopen Event = "REOPEN"
	EventClose  Event = "CLOSE"
	EventExport Event = "EXPORT"
)

// Roles granted by the onboarding API.
const (
	RoleAdmin  = "ONBOARDING_ADMIN"
	RoleEditor = "ONBOARDING_EDITOR"
	RoleViewer = "ONBOARDING_VIEWER"
)

// eventRoles maps each event to the roles that may trigger it.
var eventRoles = map[Event][]string{
	EventNew:    {RoleAdmin, RoleEditor},
	EventEdit:   {RoleAdmin, RoleEditor},
	EventSend:   {RoleAdmin, RoleEditor},
	EventDelete: {RoleAdmin},
	EventReopen: {RoleAdmin},
	EventClose:  {RoleAdmin},
	EventExport: {RoleAdmin, RoleEditor, RoleViewer},
}

// Permitted reports whether the user may trigger event in tenant. Unknown events and tenants
// whose roles could not be loaded permit nothing.
func Permitted(tenant session.Tenant, event Event) bool {
	roles, ok := eventRoles[event]
	if !ok {
		return false
	}
	return tenant.HasAnyRole(roles...)
}

// PermittedEvents lists the events the user may trigger in tenant.
func PermittedEvents(tenant session.Tenant) []Event {
	var events []Event
	for _, e := range []Event{EventNew, EventEdit, EventSend, EventDelete, EventReopen, EventClose, EventExport} {
		if Permitted(tenant, e) {
			events = append(events, e)
		}
	}
	return events
}
