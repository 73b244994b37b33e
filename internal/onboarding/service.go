package onboarding

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/onboard/internal/client"
	"github.com/wolfeidau/onboard/internal/paging"
)

const (
	employeesPath = "/employees"

	// RelActivities is the employee link to its activity feed.
	RelActivities = "activities"
)

var ErrNoTenant = errors.New("no tenant selected")

// Service reads onboarding resources through a client bound to a tenant.
type Service struct {
	client *client.Client
}

// NewService creates a service using c, which should come from the current session state.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// ListEmployees fetches one page of employees for the table state.
func (s *Service) ListEmployees(ctx context.Context, state paging.TableState) (Page, error) {
	if s.client.TenantID() == "" {
		return Page{}, ErrNoTenant
	}

	path := employeesPath
	if query := paging.Encode(state); query != "" {
		path += "?" + query
	}

	var resp employeePage
	if err := s.client.GetJSON(ctx, path, &resp); err != nil {
		return Page{}, fmt.Errorf("failed to list employees: %w", err)
	}

	log.Debug().
		Str("query", path).
		Int("returned", len(resp.Embedded.Employees)).
		Int("total", resp.Page.TotalElements).
		Msg("employees listed")

	return Page{Employees: resp.Embedded.Employees, Page: resp.Page}, nil
}

// GetEmployee fetches a single employee.
func (s *Service) GetEmployee(ctx context.Context, id string) (Employee, error) {
	if s.client.TenantID() == "" {
		return Employee{}, ErrNoTenant
	}

	var e Employee
	if err := s.client.GetJSON(ctx, employeesPath+"/"+url.PathEscape(id), &e); err != nil {
		return Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

// Activities returns the activity feed of the employee, newest first. The employee's activities
// link is followed when present.
func (s *Service) Activities(ctx context.Context, e Employee) ([]Activity, error) {
	if s.client.TenantID() == "" {
		return nil, ErrNoTenant
	}

	href, ok := e.Link(RelActivities)
	if !ok {
		href = employeesPath + "/" + url.PathEscape(e.ID) + "/activities"
	}

	var resp activityList
	if err := s.client.GetJSON(ctx, href, &resp); err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	activities := resp.Embedded.Activities
	slices.SortStableFunc(activities, func(a, b Activity) int {
		return b.CreatedDate.Compare(a.CreatedDate)
	})

	return activities, nil
}
