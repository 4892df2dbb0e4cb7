package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/store/postgres"
	"gopkg.in/yaml.v3"
)

// SeedFile describes tenants, roles, users and catalogue rows to load.
// Rows refer to each other by name.
type SeedFile struct {
	Organizations []SeedOrganization `yaml:"organizations" json:"organizations"`
	Roles         []string           `yaml:"roles" json:"roles"`
	Users         []SeedUser         `yaml:"users" json:"users"`
	Catalog       SeedCatalog        `yaml:"catalog" json:"catalog"`
}

type SeedOrganization struct {
	Name   string `yaml:"name" json:"name"`
	Domain string `yaml:"domain" json:"domain"`
}

type SeedUser struct {
	Email        string   `yaml:"email" json:"email"`
	Username     string   `yaml:"username" json:"username"`
	Organization string   `yaml:"organization" json:"organization"`
	Role         string   `yaml:"role" json:"role"`
	Groups       []string `yaml:"groups" json:"groups"`
}

type SeedCatalog struct {
	Industries      []SeedRow `yaml:"industries" json:"industries"`
	Services        []SeedRow `yaml:"services" json:"services"`
	BusinessCycles  []SeedRow `yaml:"business_cycles" json:"business_cycles"`
	FunctionalAreas []SeedRow `yaml:"functional_areas" json:"functional_areas"`
	Providers       []SeedRow `yaml:"providers" json:"providers"`
}

// SeedRow covers the fields of every catalogue kind. Organization is empty
// for global rows.
type SeedRow struct {
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description"`
	Organization  string   `yaml:"organization" json:"organization"`
	CreatedBy     string   `yaml:"created_by" json:"created_by"`
	URL           string   `yaml:"url" json:"url"`
	Order         int      `yaml:"order" json:"order"`
	BusinessCycle string   `yaml:"business_cycle" json:"business_cycle"`
	BlockedFor    []string `yaml:"blocked_for" json:"blocked_for"`
	ContactName   string   `yaml:"contact_name" json:"contact_name"`
	ContactPhone  string   `yaml:"contact_phone" json:"contact_phone"`
	ContactEmail  string   `yaml:"contact_email" json:"contact_email"`
}

// LoadSeedFile reads a seed file, JSON when the extension is .json and YAML
// otherwise.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f SeedFile
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse JSON seed file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML seed file: %w", err)
		}
	}

	return &f, nil
}

// SeedResult maps seeded names to the identifiers they were stored under.
type SeedResult struct {
	Organizations map[string]uuid.UUID
	Roles         map[string]uuid.UUID
	Users         map[string]uuid.UUID
	Rows          map[models.Kind]map[string]uuid.UUID
}

func (r *SeedResult) rowID(kind models.Kind, scope, name string) (uuid.UUID, bool) {
	id, ok := r.Rows[kind][scope+"/"+name]
	return id, ok
}

func (r *SeedResult) count() int {
	n := len(r.Organizations) + len(r.Roles) + len(r.Users)
	for _, rows := range r.Rows {
		n += len(rows)
	}
	return n
}

// Seed stores every entry of f in dependency order.
func Seed(ctx context.Context, b *Backend, f *SeedFile) (*SeedResult, error) {
	res := &SeedResult{
		Organizations: map[string]uuid.UUID{},
		Roles:         map[string]uuid.UUID{},
		Users:         map[string]uuid.UUID{},
		Rows:          map[models.Kind]map[string]uuid.UUID{},
	}
	now := time.Now().UTC()

	for _, o := range f.Organizations {
		org := &models.Organization{OrgID: uuid.Must(uuid.NewV7()), Name: o.Name, Domain: o.Domain, CreatedAt: now, UpdatedAt: now}
		if err := b.Orgs.Create(ctx, org); err != nil {
			return nil, fmt.Errorf("failed to seed organization %q: %w", o.Name, err)
		}
		res.Organizations[o.Name] = org.OrgID
	}

	for _, name := range f.Roles {
		role := &models.Role{RoleID: uuid.Must(uuid.NewV7()), Name: name}
		if err := b.Roles.Create(ctx, role); err != nil {
			return nil, fmt.Errorf("failed to seed role %q: %w", name, err)
		}
		res.Roles[name] = role.RoleID
	}

	for _, u := range f.Users {
		user := &models.User{UserID: uuid.Must(uuid.NewV7()), Email: u.Email, Username: u.Username, CreatedAt: now, UpdatedAt: now}
		var err error
		if user.OrgID, err = res.orgRef(u.Organization); err != nil {
			return nil, err
		}
		if u.Role != "" {
			id, ok := res.Roles[u.Role]
			if !ok {
				return nil, fmt.Errorf("user %q: unknown role %q", u.Email, u.Role)
			}
			user.RoleID = &id
		}
		for _, g := range u.Groups {
			id, ok := res.Roles[g]
			if !ok {
				return nil, fmt.Errorf("user %q: unknown group %q", u.Email, g)
			}
			user.GroupIDs = append(user.GroupIDs, id)
		}
		if err := b.Sync.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to seed user %q: %w", u.Email, err)
		}
		res.Users[u.Email] = user.UserID
	}

	// Business cycles precede functional areas, which refer to them.
	kinds := []struct {
		kind models.Kind
		rows []SeedRow
	}{
		{models.KindIndustry, f.Catalog.Industries},
		{models.KindService, f.Catalog.Services},
		{models.KindBusinessCycle, f.Catalog.BusinessCycles},
		{models.KindFunctionalArea, f.Catalog.FunctionalAreas},
		{models.KindProvider, f.Catalog.Providers},
	}
	for _, k := range kinds {
		res.Rows[k.kind] = map[string]uuid.UUID{}
		for _, r := range k.rows {
			if err := seedRow(ctx, b, res, k.kind, r); err != nil {
				return nil, fmt.Errorf("failed to seed %s %q: %w", k.kind, r.Name, err)
			}
		}
	}

	log.Info().Int("entries", res.count()).Msg("Seed applied")

	return res, nil
}

func seedRow(ctx context.Context, b *Backend, res *SeedResult, kind models.Kind, r SeedRow) error {
	org, err := res.orgRef(r.Organization)
	if err != nil {
		return err
	}
	var creator *uuid.UUID
	if r.CreatedBy != "" {
		id, ok := res.Users[r.CreatedBy]
		if !ok {
			return fmt.Errorf("unknown user %q", r.CreatedBy)
		}
		creator = &id
	}

	row, err := models.NewCatalogRow(kind)
	if err != nil {
		return err
	}
	switch v := row.(type) {
	case *models.Industry:
		v.Name, v.Description, v.URL = r.Name, r.Description, r.URL
	case *models.Service:
		v.Name, v.Description = r.Name, r.Description
	case *models.BusinessCycle:
		v.Name, v.Description, v.Order = r.Name, r.Description, r.Order
	case *models.FunctionalArea:
		v.Name, v.Description, v.Order = r.Name, r.Description, r.Order
		// A functional area's cycle is looked up in its own scope, then globally.
		id, ok := res.rowID(models.KindBusinessCycle, r.Organization, r.BusinessCycle)
		if !ok {
			id, ok = res.rowID(models.KindBusinessCycle, "", r.BusinessCycle)
		}
		if !ok {
			return fmt.Errorf("unknown business cycle %q", r.BusinessCycle)
		}
		v.BusinessCycleID = id
	case *models.Provider:
		v.CompanyName = r.Name
		v.ContactName, v.ContactPhone, v.ContactEmail = r.ContactName, r.ContactPhone, r.ContactEmail
	}

	created, err := b.Catalog.Create(ctx, row, org, creator)
	if err != nil {
		return err
	}
	res.Rows[kind][r.Organization+"/"+r.Name] = created.RowID()

	for _, name := range r.BlockedFor {
		blocked, ok := res.Organizations[name]
		if !ok {
			return fmt.Errorf("unknown organization %q", name)
		}
		if err := b.Catalog.Block(ctx, kind, created.RowID(), blocked); err != nil {
			return err
		}
	}

	return nil
}

func (r *SeedResult) orgRef(name string) (*uuid.UUID, error) {
	if name == "" {
		return nil, nil
	}
	id, ok := r.Organizations[name]
	if !ok {
		return nil, fmt.Errorf("unknown organization %q", name)
	}
	return &id, nil
}

type SeedCmd struct {
	File string `arg:"" help:"seed file (.yaml, .yml or .json)" type:"existingfile"`
}

func (s *SeedCmd) Run(ctx context.Context, globals *Globals) error {
	f, err := LoadSeedFile(s.File)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var res *SeedResult
	err = b.Run(ctx, "seed", func(ctx context.Context) error {
		res, err = Seed(ctx, b, f)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d organizations, %d roles, %d users\n", len(res.Organizations), len(res.Roles), len(res.Users))
	for _, k := range models.Kinds {
		fmt.Printf("  %-16s %d\n", k, len(res.Rows[k]))
	}
	return nil
}

type MigrateCmd struct{}

func (m *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	if globals.Store.StoreType != "postgres" {
		return fmt.Errorf("migrations apply to the postgres store only")
	}

	// Open runs pending migrations when auto-migrate is enabled.
	globals.Store.Postgres.AutoMigrate = true
	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	applied, err := postgres.AppliedMigrations(ctx, b.DB.Pool())
	if err != nil {
		return err
	}

	fmt.Printf("%-8s  %s\n", "VERSION", "NAME")
	fmt.Println(strings.Repeat("─", 50))
	for _, m := range applied {
		fmt.Printf("%-8d  %s\n", m.Version, m.Name)
	}
	return nil
}
