package commands

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/wolfeidau/onboard/internal/session"
)

type LoginCmd struct {
	TenantID string `help:"Tenant to select after login" name:"tenant-id"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	location := ""
	if l.TenantID != "" {
		location = "/?" + url.Values{session.TenantIDParam: {l.TenantID}}.Encode()
	}

	a, err := newApp(ctx, globals, location)
	if err != nil {
		return err
	}
	defer a.close()

	// A previous user's session must not be compared against the new token.
	if err := a.manager.Reset(ctx); err != nil {
		return err
	}

	id, err := a.device.Login(ctx, func(auth *oauth2.DeviceAuthResponse) {
		fmt.Println("To log in, open the following URL in a browser:")
		if auth.VerificationURIComplete != "" {
			fmt.Printf("  %s\n", auth.VerificationURIComplete)
		} else {
			fmt.Printf("  %s\n", auth.VerificationURI)
		}
		fmt.Printf("and enter the code: %s\n", auth.UserCode)
		fmt.Println()
		fmt.Println("Waiting for approval...")
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	state, err := a.start(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s.\n", id.User.Email)
	printTenantSummary(state, a.manager.TenantSelectionDisabled())

	return nil
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals, "")
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.manager.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to restore session before logout")
	}

	if err := a.manager.Logout(ctx); err != nil {
		return err
	}

	fmt.Println("Logged out.")
	return nil
}

func printTenantSummary(state session.State, selectionDisabled bool) {
	fmt.Printf("Tenants:        %d\n", len(state.Tenants))
	if state.CurrentTenant.IsZero() {
		fmt.Println("Current tenant: (none), select one with `onboard tenants use <gid>`")
		return
	}
	fmt.Printf("Current tenant: %s (%s)\n", state.CurrentTenant.Name, state.CurrentTenant.GID)
	fmt.Printf("Roles:          %s\n", rolesString(state.CurrentTenant))
	if selectionDisabled {
		fmt.Println("Tenant selection is disabled: this is your only tenant.")
	}
}
