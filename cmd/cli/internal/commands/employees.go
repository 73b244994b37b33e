package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/wolfeidau/onboard/internal/onboarding"
	"github.com/wolfeidau/onboard/internal/paging"
	"github.com/wolfeidau/onboard/internal/session"
)

// TableFlags select the page, sort and filters of a listing.
type TableFlags struct {
	Size   int               `help:"Page size" default:"20"`
	Page   int               `help:"Page number, starting at 0" default:"0"`
	Sort   string            `help:"Field to sort by" default:"lastModifiedDate"`
	Desc   bool              `help:"Sort descending" default:"true" negatable:""`
	Filter map[string]string `help:"Filter as field=value, repeatable"`
}

func (f TableFlags) tableState() paging.TableState {
	order := paging.SortAscending
	if f.Desc {
		order = paging.SortDescending
	}

	filters := make(map[string]any, len(f.Filter))
	for k, v := range f.Filter {
		filters[k] = v
	}

	return paging.TableState{
		PageOffset: f.Page * f.Size,
		PageSize:   f.Size,
		PageNumber: f.Page,
		SortField:  f.Sort,
		SortOrder:  order,
		Filters:    filters,
	}
}

type EmployeesCmd struct {
	List       EmployeesListCmd       `cmd:"" default:"1" help:"List onboarding employees"`
	Activities EmployeesActivitiesCmd `cmd:"" help:"Show the activity feed of an employee"`
}

type EmployeesListCmd struct {
	TableFlags
}

func (e *EmployeesListCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals, "")
	if err != nil {
		return err
	}
	defer a.close()

	state, err := a.startWithTenant(ctx)
	if err != nil {
		return err
	}

	svc := onboarding.NewService(state.Client)

	// Lookups the employee forms need; failures are logged per group.
	svc.PrefetchBasicData(ctx, a.sessions, a.profile.BasicDataGroups...)

	page, err := svc.ListEmployees(ctx, e.tableState())
	if err != nil {
		return err
	}

	fmt.Printf("Employees (tenant: %s, page: %d/%d, total: %d):\n",
		state.CurrentTenant.Name, page.Page.Number+1, max(page.Page.TotalPages, 1), page.Page.TotalElements)

	if len(page.Employees) == 0 {
		fmt.Println("No employees found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tCREATED BY\tLAST MODIFIED\tACTIONS")
	for _, emp := range page.Employees {
		modified := ""
		if !emp.LastModifiedDate.IsZero() {
			modified = emp.LastModifiedDate.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			emp.ID, emp.DisplayName(), emp.OnboardingStatus, emp.CreatedBy, modified, actions(state.CurrentTenant, emp))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if page.Page.HasNext() {
		fmt.Printf("\nNext page: --page %d\n", page.Page.Number+1)
	}

	return nil
}

type EmployeesActivitiesCmd struct {
	ID string `arg:"" help:"Employee id"`
}

func (e *EmployeesActivitiesCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals, "")
	if err != nil {
		return err
	}
	defer a.close()

	state, err := a.startWithTenant(ctx)
	if err != nil {
		return err
	}

	svc := onboarding.NewService(state.Client)

	emp, err := svc.GetEmployee(ctx, e.ID)
	if err != nil {
		return err
	}

	activities, err := svc.Activities(ctx, emp)
	if err != nil {
		return err
	}

	fmt.Printf("Activities of %s (%s):\n", emp.DisplayName(), emp.OnboardingStatus)
	if len(activities) == 0 {
		fmt.Println("No activities found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tACTION\tBY\tROLES")
	for _, act := range activities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			act.CreatedDate.Local().Format("2006-01-02 15:04:05"), act.Action, act.CreatedBy, strings.Join(act.Roles, ", "))
	}
	return w.Flush()
}

// actions lists the events both offered by the server and permitted by the user's roles.
func actions(tenant session.Tenant, emp onboarding.Employee) string {
	var names []string
	for _, event := range onboarding.PermittedEvents(tenant) {
		if emp.Offers(event) {
			names = append(names, string(event))
		}
	}
	return strings.Join(names, ",")
}
