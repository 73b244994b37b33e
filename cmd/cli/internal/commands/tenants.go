package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/wolfeidau/onboard/internal/onboarding"
)

type TenantsCmd struct {
	List TenantsListCmd `cmd:"" default:"1" help:"List your tenants and roles"`
	Use  TenantsUseCmd  `cmd:"" help:"Select the current tenant"`
}

type TenantsListCmd struct{}

func (t *TenantsListCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals, "")
	if err != nil {
		return err
	}
	defer a.close()

	state, err := a.start(ctx)
	if err != nil {
		return err
	}

	if len(state.Tenants) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tGID\tNAME\tROLES")
	for _, tenant := range state.Tenants {
		marker := ""
		if tenant.GID == state.CurrentTenant.GID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, tenant.GID, tenant.Name, rolesString(tenant))
	}
	return w.Flush()
}

type TenantsUseCmd struct {
	GID string `arg:"" help:"Global id of the tenant"`
}

func (t *TenantsUseCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals, "")
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.start(ctx); err != nil {
		return err
	}

	state, err := a.manager.SelectTenant(ctx, t.GID)
	if err != nil {
		return err
	}

	fmt.Printf("Switched to %s (%s).\n", state.CurrentTenant.Name, state.CurrentTenant.GID)
	fmt.Printf("Roles:   %s\n", rolesString(state.CurrentTenant))
	fmt.Printf("Actions: %v\n", onboarding.PermittedEvents(state.CurrentTenant))

	return nil
}
