package commands

import (
	"context"
	"fmt"
)

type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" default:"1" help:"Show the application configuration of the current tenant"`
}

type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals, "")
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.startWithTenant(ctx); err != nil {
		return err
	}

	cfg, err := a.manager.LoadConfiguration(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Server:                  %s\n", a.profile.Server)
	fmt.Printf("Issuer:                  %s\n", a.profile.Issuer)
	fmt.Printf("AI document extraction:  %v\n", cfg.AIDocumentExtractorEnabled)

	return nil
}
