package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/rfpcore/cmd/rfpctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug     bool                `help:"Enable debug mode." env:"RFP_DEBUG"`
		Telemetry bool                `help:"Export metrics and traces over OTLP." env:"RFP_TELEMETRY"`
		Store     commands.StoreFlags `embed:""`
		Tokens    commands.TokenFlags `embed:""`
		Version   kong.VersionFlag

		Migrate   commands.MigrateCmd   `cmd:"" help:"Apply database migrations"`
		Seed      commands.SeedCmd      `cmd:"" help:"Load organizations, roles, users and catalogue rows from a YAML/JSON file"`
		Org       commands.OrgCmd       `cmd:"" help:"Manage organizations"`
		Role      commands.RoleCmd      `cmd:"" help:"Manage roles"`
		User      commands.UserCmd      `cmd:"" help:"Manage users and their role/group membership"`
		Catalog   commands.CatalogCmd   `cmd:"" help:"Manage ownership-scoped catalogue rows"`
		RFP       commands.RFPCmd       `cmd:"" name:"rfp" help:"Manage generated RFPs"`
		Finalized commands.FinalizedCmd `cmd:"" help:"Inspect finalized RFP snapshots"`
		Invite    commands.InviteCmd    `cmd:"" help:"Issue and accept invites"`
		Reset     commands.ResetCmd     `cmd:"" help:"Issue and use password reset tokens"`
		Archive   commands.ArchiveCmd   `cmd:"" help:"Export and prune finalized snapshot archives"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("rfpctl"),
		kong.Description("Operate the multi-tenant RFP core."),
		kong.Vars{
			"version": version,
			"kinds":   commands.KindEnum,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:     cli.Debug,
		Telemetry: cli.Telemetry,
		Version:   version,
		Store:     &cli.Store,
		Tokens:    cli.Tokens,
	})
	cmd.FatalIfErrorf(err)
}
