package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
)

// KindEnum lists the catalogue kinds accepted on the command line.
const KindEnum = "industry,service,business_cycle,functional_area,provider"

type CatalogCmd struct {
	Create  CatalogCreateCmd  `cmd:"" help:"Create a global or organization-owned row"`
	List    CatalogListCmd    `cmd:"" help:"List the rows visible to an organization"`
	Delete  CatalogDeleteCmd  `cmd:"" help:"Delete a row"`
	Block   CatalogBlockCmd   `cmd:"" help:"Hide a global row from an organization"`
	Unblock CatalogUnblockCmd `cmd:"" help:"Show a global row to an organization again"`
}

type CatalogCreateCmd struct {
	Kind          string `arg:"" help:"catalogue kind" enum:"${kinds}"`
	Name          string `arg:"" help:"row name (company name for providers)"`
	Org           string `help:"owning organization id, omit for a global row"`
	CreatedBy     string `help:"creating user id"`
	Description   string `help:"description"`
	URL           string `name:"url" help:"industry URL"`
	Order         int    `help:"sort order of business cycles and functional areas"`
	BusinessCycle string `help:"business cycle id of a functional area"`
	ContactName   string `help:"provider contact name"`
	ContactPhone  string `help:"provider contact phone"`
	ContactEmail  string `help:"provider contact email"`
}

func (c *CatalogCreateCmd) row() (models.CatalogRow, error) {
	row, err := models.NewCatalogRow(models.Kind(c.Kind))
	if err != nil {
		return nil, err
	}

	switch v := row.(type) {
	case *models.Industry:
		v.Name, v.Description, v.URL = c.Name, c.Description, c.URL
	case *models.Service:
		v.Name, v.Description = c.Name, c.Description
	case *models.BusinessCycle:
		v.Name, v.Description, v.Order = c.Name, c.Description, c.Order
	case *models.FunctionalArea:
		cycle, err := parseID(c.BusinessCycle)
		if err != nil {
			return nil, fmt.Errorf("functional areas need --business-cycle: %w", err)
		}
		v.Name, v.Description, v.Order, v.BusinessCycleID = c.Name, c.Description, c.Order, cycle
	case *models.Provider:
		v.CompanyName = c.Name
		v.ContactName, v.ContactPhone, v.ContactEmail = c.ContactName, c.ContactPhone, c.ContactEmail
	}
	return row, nil
}

func (c *CatalogCreateCmd) Run(ctx context.Context, globals *Globals) error {
	org, err := parseOptionalID(c.Org)
	if err != nil {
		return err
	}
	creator, err := parseOptionalID(c.CreatedBy)
	if err != nil {
		return err
	}
	row, err := c.row()
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	err = b.Run(ctx, "catalog.create", func(ctx context.Context) error {
		row, err = b.Catalog.Create(ctx, row, org, creator)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Println(row.RowID())
	return nil
}

type CatalogListCmd struct {
	Kind string `arg:"" help:"catalogue kind" enum:"${kinds}"`
	Org  string `help:"viewing organization id, omit to list global rows only"`
}

func (c *CatalogListCmd) Run(ctx context.Context, globals *Globals) error {
	org, err := parseOptionalID(c.Org)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var rows []models.CatalogRow
	err = b.Run(ctx, "catalog.list", func(ctx context.Context) error {
		rows, err = b.Catalog.Visible(ctx, models.Kind(c.Kind), org)
		return err
	})
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Printf("No %s rows visible\n", c.Kind)
		return nil
	}

	fmt.Printf("%-36s  %-36s  %-32s  %s\n", "ID", "OWNER", "NAME", "BLOCKED")
	fmt.Println(strings.Repeat("─", 120))
	for _, row := range rows {
		blocked := 0
		if bl, ok := row.(models.Blockable); ok {
			blocked = len(bl.Blocks().BlockedFor)
		}
		fmt.Printf("%-36s  %-36s  %-32s  %d\n", row.RowID(), formatID(row.Owner()), truncate(row.NaturalKey(), 32), blocked)
	}
	return nil
}

type CatalogDeleteCmd struct {
	Kind string `arg:"" help:"catalogue kind" enum:"${kinds}"`
	ID   string `arg:"" help:"row id"`
}

func (c *CatalogDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "catalog.delete", func(ctx context.Context) error {
		return b.Catalog.Delete(ctx, models.Kind(c.Kind), id)
	})
}

type BlockArgs struct {
	Kind string `arg:"" help:"catalogue kind" enum:"${kinds}"`
	ID   string `arg:"" help:"row id"`
	Org  string `arg:"" help:"organization id"`
}

func (a *BlockArgs) parse() (models.Kind, uuid.UUID, uuid.UUID, error) {
	ids, err := parseIDs([]string{a.ID, a.Org})
	if err != nil {
		return "", uuid.Nil, uuid.Nil, err
	}
	return models.Kind(a.Kind), ids[0], ids[1], nil
}

type CatalogBlockCmd struct {
	BlockArgs `embed:""`
}

func (c *CatalogBlockCmd) Run(ctx context.Context, globals *Globals) error {
	kind, id, org, err := c.parse()
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "catalog.block", func(ctx context.Context) error {
		return b.Catalog.Block(ctx, kind, id, org)
	})
}

type CatalogUnblockCmd struct {
	BlockArgs `embed:""`
}

func (c *CatalogUnblockCmd) Run(ctx context.Context, globals *Globals) error {
	kind, id, org, err := c.parse()
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "catalog.unblock", func(ctx context.Context) error {
		return b.Catalog.Unblock(ctx, kind, id, org)
	})
}
