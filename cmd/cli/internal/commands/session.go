package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/onboard/internal/client"
)

type SessionCmd struct {
	Show SessionShowCmd `cmd:"" default:"1" help:"Show the current session"`
}

type SessionShowCmd struct{}

func (s *SessionShowCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals, "")
	if err != nil {
		return err
	}
	defer a.close()

	state, err := a.start(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Phase:          %s\n", a.manager.Phase())
	if state.User != nil {
		fmt.Printf("User:           %s <%s>\n", state.User.Name, state.User.Email)
		fmt.Printf("Subject:        %s\n", state.User.Subject)
		if !state.User.ExpiresAt.IsZero() {
			fmt.Printf("Expires:        %s\n", state.User.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
	}
	fmt.Printf("Token:          %s\n", client.Fingerprint(state.Token))
	fmt.Printf("Server:         %s\n", state.Client.BaseURL())
	fmt.Printf("Store:          %s\n", a.sessions.Path())
	printTenantSummary(state, a.manager.TenantSelectionDisabled())

	return nil
}
