package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
)

type OrgCmd struct {
	Create OrgCreateCmd `cmd:"" help:"Create an organization"`
	List   OrgListCmd   `cmd:"" help:"List organizations"`
	Delete OrgDeleteCmd `cmd:"" help:"Delete an organization and everything it owns"`
}

type OrgCreateCmd struct {
	Name   string `arg:"" help:"organization name"`
	Domain string `help:"organization domain" default:"none"`
}

func (c *OrgCreateCmd) Run(ctx context.Context, globals *Globals) error {
	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	now := time.Now().UTC()
	org := &models.Organization{OrgID: uuid.Must(uuid.NewV7()), Name: c.Name, Domain: c.Domain, CreatedAt: now, UpdatedAt: now}
	err = b.Run(ctx, "org.create", func(ctx context.Context) error {
		return b.Orgs.Create(ctx, org)
	})
	if err != nil {
		return err
	}

	fmt.Println(org.OrgID)
	return nil
}

type OrgListCmd struct{}

func (c *OrgListCmd) Run(ctx context.Context, globals *Globals) error {
	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var orgs []*models.Organization
	err = b.Run(ctx, "org.list", func(ctx context.Context) error {
		orgs, err = b.Orgs.List(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if len(orgs) == 0 {
		fmt.Println("No organizations found")
		return nil
	}

	fmt.Printf("%-36s  %-24s  %-24s  %s\n", "ORG ID", "NAME", "DOMAIN", "CREATED")
	fmt.Println(strings.Repeat("─", 110))
	for _, o := range orgs {
		fmt.Printf("%-36s  %-24s  %-24s  %s\n", o.OrgID, truncate(o.Name, 24), truncate(o.Domain, 24), formatTime(o.CreatedAt))
	}
	return nil
}

type OrgDeleteCmd struct {
	ID string `arg:"" help:"organization id"`
}

func (c *OrgDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "org.delete", func(ctx context.Context) error {
		return b.Orgs.Delete(ctx, id)
	})
}

type RoleCmd struct {
	Create RoleCreateCmd `cmd:"" help:"Create a role"`
	List   RoleListCmd   `cmd:"" help:"List roles"`
	Delete RoleDeleteCmd `cmd:"" help:"Delete a role, clearing it from every user"`
}

type RoleCreateCmd struct {
	Name string `arg:"" help:"role name"`
}

func (c *RoleCreateCmd) Run(ctx context.Context, globals *Globals) error {
	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	role := &models.Role{RoleID: uuid.Must(uuid.NewV7()), Name: c.Name}
	err = b.Run(ctx, "role.create", func(ctx context.Context) error {
		return b.Roles.Create(ctx, role)
	})
	if err != nil {
		return err
	}

	fmt.Println(role.RoleID)
	return nil
}

type RoleListCmd struct{}

func (c *RoleListCmd) Run(ctx context.Context, globals *Globals) error {
	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var roles []*models.Role
	err = b.Run(ctx, "role.list", func(ctx context.Context) error {
		roles, err = b.Roles.List(ctx)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-24s  %s\n", "ROLE ID", "NAME", "SUPER")
	fmt.Println(strings.Repeat("─", 70))
	for _, r := range roles {
		fmt.Printf("%-36s  %-24s  %t\n", r.RoleID, truncate(r.Name, 24), r.IsSuperRole())
	}
	return nil
}

type RoleDeleteCmd struct {
	ID string `arg:"" help:"role id"`
}

func (c *RoleDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "role.delete", func(ctx context.Context) error {
		return b.Roles.Delete(ctx, id)
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
