package main

import (
	"context"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/wolfeidau/onboard/cmd/cli/internal/commands"
	"github.com/wolfeidau/onboard/internal/config"
)

var (
	version = "dev"
	cli     struct {
		Login     commands.LoginCmd     `cmd:"" help:"Log in with the device flow"`
		Logout    commands.LogoutCmd    `cmd:"" help:"Log out and clear the session"`
		Session   commands.SessionCmd   `cmd:"" help:"Inspect the session"`
		Tenants   commands.TenantsCmd   `cmd:"" help:"List and select tenants"`
		Config    commands.ConfigCmd    `cmd:"" help:"Application configuration"`
		Employees commands.EmployeesCmd `cmd:"" help:"Onboarding employees"`
		Query     commands.QueryCmd     `cmd:"" help:"Print the listing query string for the given table flags"`

		Server       string        `help:"API server URL" env:"ONBOARD_SERVER"`
		Issuer       string        `help:"OpenID Connect issuer URL" env:"ONBOARD_ISSUER"`
		ClientID     string        `help:"OAuth client id" name:"client-id" env:"ONBOARD_CLIENT_ID"`
		Scopes       []string      `help:"OAuth scopes" env:"ONBOARD_SCOPES"`
		OverviewPath string        `help:"Path navigated to after a tenant was chosen by location" default:"/overview" env:"ONBOARD_OVERVIEW_PATH"`
		RoleTimeout  time.Duration `help:"Timeout of each per-tenant role fetch" default:"10s" env:"ONBOARD_ROLE_TIMEOUT"`
		Profile      string        `help:"YAML profile file" type:"path" env:"ONBOARD_PROFILE"`
		StoreDir     string        `help:"Directory for session and token files (default ~/.onboard)" type:"path" env:"ONBOARD_STORE_DIR"`
		Location     string        `help:"Console location to start from, e.g. /employees?tenantid=<gid>" env:"ONBOARD_LOCATION"`
		Tracing      bool          `help:"Export traces and metrics over OTLP" env:"ONBOARD_TRACING"`
		Debug        bool          `help:"Enable debug mode." env:"ONBOARD_DEBUG"`
		Version      kong.VersionFlag
	}
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("onboard"),
		kong.Description("Onboarding console client."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:    cli.Debug,
		Version:  version,
		Tracing:  cli.Tracing,
		Profile:  cli.Profile,
		StoreDir: cli.StoreDir,
		Location: cli.Location,
		Connection: config.Profile{
			Server:       cli.Server,
			Issuer:       cli.Issuer,
			ClientID:     cli.ClientID,
			Scopes:       cli.Scopes,
			OverviewPath: cli.OverviewPath,
			RoleTimeout:  cli.RoleTimeout,
		},
	})
	cmd.FatalIfErrorf(err)
}
