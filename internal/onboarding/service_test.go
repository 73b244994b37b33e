package onboarding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/onboard/internal/client"
	"github.com/wolfeidau/onboard/internal/paging"
	"github.com/wolfeidau/onboard/internal/session"
	"github.com/wolfeidau/onboard/internal/store/memory"
)

func newTestService(t *testing.T, tenantID string, handler http.Handler) *Service {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := client.New(client.Config{ServerURL: srv.URL, Timeout: 5 * time.Second})
	return NewService(base.WithBearer("access-1", tenantID))
}

func TestService_ListEmployees(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /employees", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "t1", r.Header.Get(client.HeaderTenantID))
		_, _ = w.Write([]byte(`{
			"_embedded": {"employees": [
				{"id": "e1", "onboardingStatus": "OPEN", "person": {"firstName": "Ada", "lastName": "Lovelace"},
				 "_links": {"EDIT": {"href": "/employees/e1"}}}
			]},
			"page": {"size": 10, "totalElements": 11, "totalPages": 2, "number": 0}
		}`))
	})

	svc := newTestService(t, "t1", mux)

	state := paging.TableState{
		PageSize:  10,
		SortField: "lastModifiedDate",
		SortOrder: paging.SortDescending,
		Filters:   map[string]any{"onboardingStatus": "OPEN"},
	}

	page, err := svc.ListEmployees(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, "size=10&sort=lastModifiedDate,desc&onboardingStatus=OPEN", gotQuery)
	require.Len(t, page.Employees, 1)
	assert.Equal(t, "Ada Lovelace", page.Employees[0].DisplayName())
	assert.Equal(t, StatusOpen, page.Employees[0].OnboardingStatus)
	assert.True(t, page.Employees[0].Offers(EventEdit))
	assert.False(t, page.Employees[0].Offers(EventDelete))
	assert.True(t, page.Page.HasNext())
}

func TestService_RequiresTenant(t *testing.T) {
	svc := newTestService(t, "", http.NotFoundHandler())
	ctx := context.Background()

	_, err := svc.ListEmployees(ctx, paging.TableState{})
	require.ErrorIs(t, err, ErrNoTenant)

	_, err = svc.Activities(ctx, Employee{ID: "e1"})
	require.ErrorIs(t, err, ErrNoTenant)

	assert.Nil(t, svc.PrefetchBasicData(ctx, memory.NewCache()))
}

func TestService_ActivitiesNewestFirst(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /feeds/e1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_embedded": {"activities": [
			{"id": "a1", "action": "CREATED", "createdDate": "2024-01-01T08:00:00Z"},
			{"id": "a3", "action": "SENT", "createdDate": "2024-03-01T08:00:00Z"},
			{"id": "a2", "action": "EDITED", "createdDate": "2024-02-01T08:00:00Z"}
		]}}`))
	})
	mux.HandleFunc("GET /employees/e2/activities", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_embedded": {"activities": []}}`))
	})

	svc := newTestService(t, "t1", mux)
	ctx := context.Background()

	e := Employee{ID: "e1", Links: map[string]Link{RelActivities: {Href: "/feeds/e1"}}}
	activities, err := svc.Activities(ctx, e)
	require.NoError(t, err)

	ids := make([]string, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"a3", "a2", "a1"}, ids)

	activities, err = svc.Activities(ctx, Employee{ID: "e2"})
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestService_PrefetchBasicData(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /basicData", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("group") {
		case GroupCountry:
			_ = json.NewEncoder(w).Encode([]BasicDataEntry{
				{Key: "CH", Label: "Switzerland"},
				{Key: "AT", Label: "Austria"},
			})
		case GroupGender:
			_ = json.NewEncoder(w).Encode([]BasicDataEntry{{Key: "F", Label: "Female"}})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	svc := newTestService(t, "t1", mux)
	cache := memory.NewCache()
	ctx := context.Background()

	results := svc.PrefetchBasicData(ctx, cache, GroupCountry, GroupGender, GroupRegion)
	require.Len(t, results, 3)

	assert.Equal(t, 2, results[0].Entries)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[1].Entries)
	assert.Error(t, results[2].Err, "a failed group does not affect the others")

	var countries []BasicDataEntry
	require.NoError(t, cache.Get(BasicDataKey("t1", GroupCountry), &countries))
	assert.Equal(t, "AT", countries[0].Key, "country entries are sorted by label")

	assert.Equal(t, 2, cache.Len())

	// Cached groups are not fetched again.
	before := calls.Load()
	results = svc.PrefetchBasicData(ctx, cache, GroupCountry, GroupGender)
	assert.True(t, results[0].Cached)
	assert.True(t, results[1].Cached)
	assert.Equal(t, before, calls.Load())
}

func TestPermitted(t *testing.T) {
	tests := []struct {
		name   string
		tenant session.Tenant
		event  Event
		want   bool
	}{
		{name: "admin deletes", tenant: session.Tenant{GID: "t1", Roles: []string{RoleAdmin}}, event: EventDelete, want: true},
		{name: "editor cannot delete", tenant: session.Tenant{GID: "t1", Roles: []string{RoleEditor}}, event: EventDelete, want: false},
		{name: "editor creates", tenant: session.Tenant{GID: "t1", Roles: []string{RoleEditor}}, event: EventNew, want: true},
		{name: "viewer exports", tenant: session.Tenant{GID: "t1", Roles: []string{RoleViewer}}, event: EventExport, want: true},
		{name: "unknown roles", tenant: session.Tenant{GID: "t1"}, event: EventExport, want: false},
		{name: "unknown event", tenant: session.Tenant{GID: "t1", Roles: []string{RoleAdmin}}, event: Event("FLY"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Permitted(tt.tenant, tt.event))
		})
	}

	assert.Equal(t, []Event{EventExport}, PermittedEvents(session.Tenant{Roles: []string{RoleViewer}}))
}
