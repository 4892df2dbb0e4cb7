package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
)

type UserCmd struct {
	Create       UserCreateCmd       `cmd:"" help:"Create a user"`
	List         UserListCmd         `cmd:"" help:"List the users of an organization"`
	Delete       UserDeleteCmd       `cmd:"" help:"Delete a user"`
	SetRole      UserSetRoleCmd      `cmd:"" help:"Set the primary role, replacing all groups"`
	SetGroups    UserSetGroupsCmd    `cmd:"" help:"Replace the group membership"`
	AddGroups    UserAddGroupsCmd    `cmd:"" help:"Add groups"`
	RemoveGroups UserRemoveGroupsCmd `cmd:"" help:"Remove groups"`
	ClearGroups  UserClearGroupsCmd  `cmd:"" help:"Remove every group and the primary role"`
	AssignCycle  UserAssignCycleCmd  `cmd:"" help:"Assign a business cycle to a user"`
}

type UserCreateCmd struct {
	Email    string   `arg:"" help:"email address"`
	Username string   `help:"display name"`
	Org      string   `help:"organization id"`
	Role     string   `help:"primary role id"`
	Groups   []string `help:"group (role) ids"`
}

func (c *UserCreateCmd) Run(ctx context.Context, globals *Globals) error {
	org, err := parseOptionalID(c.Org)
	if err != nil {
		return err
	}
	role, err := parseOptionalID(c.Role)
	if err != nil {
		return err
	}
	groups, err := parseIDs(c.Groups)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	now := time.Now().UTC()
	user := &models.User{
		UserID:    uuid.Must(uuid.NewV7()),
		OrgID:     org,
		Email:     c.Email,
		Username:  c.Username,
		RoleID:    role,
		GroupIDs:  groups,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = b.Run(ctx, "user.create", func(ctx context.Context) error {
		return b.Sync.CreateUser(ctx, user)
	})
	if err != nil {
		return err
	}

	fmt.Println(user.UserID)
	return nil
}

type UserListCmd struct {
	Org string `arg:"" help:"organization id"`
}

func (c *UserListCmd) Run(ctx context.Context, globals *Globals) error {
	org, err := parseID(c.Org)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var users []*models.User
	err = b.Run(ctx, "user.list", func(ctx context.Context) error {
		users, err = b.Users.ListByOrganization(ctx, org)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-32s  %-36s  %s\n", "USER ID", "EMAIL", "ROLE", "GROUPS")
	fmt.Println(strings.Repeat("─", 120))
	for _, u := range users {
		fmt.Printf("%-36s  %-32s  %-36s  %d\n", u.UserID, truncate(u.Email, 32), formatID(u.RoleID), len(u.GroupIDs))
	}
	return nil
}

type UserDeleteCmd struct {
	ID string `arg:"" help:"user id"`
}

func (c *UserDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "user.delete", func(ctx context.Context) error {
		return b.Users.Delete(ctx, id)
	})
}

type UserSetRoleCmd struct {
	ID   string `arg:"" help:"user id"`
	Role string `arg:"" optional:"" help:"role id, omit to clear"`
}

func (c *UserSetRoleCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}
	role, err := parseOptionalID(c.Role)
	if err != nil {
		return err
	}

	return runMembership(ctx, globals, "user.set_role", func(ctx context.Context, b *Backend) (models.Membership, error) {
		return b.Sync.SetUserRole(ctx, id, role)
	})
}

type GroupArgs struct {
	ID     string   `arg:"" help:"user id"`
	Groups []string `arg:"" optional:"" help:"group (role) ids"`
}

func (a *GroupArgs) parse() (uuid.UUID, []uuid.UUID, error) {
	id, err := parseID(a.ID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	groups, err := parseIDs(a.Groups)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return id, groups, nil
}

type UserSetGroupsCmd struct {
	GroupArgs `embed:""`
}

func (c *UserSetGroupsCmd) Run(ctx context.Context, globals *Globals) error {
	id, groups, err := c.parse()
	if err != nil {
		return err
	}

	return runMembership(ctx, globals, "user.set_groups", func(ctx context.Context, b *Backend) (models.Membership, error) {
		return b.Sync.SetUserGroups(ctx, id, groups)
	})
}

type UserAddGroupsCmd struct {
	GroupArgs `embed:""`
}

func (c *UserAddGroupsCmd) Run(ctx context.Context, globals *Globals) error {
	id, groups, err := c.parse()
	if err != nil {
		return err
	}

	return runMembership(ctx, globals, "user.add_groups", func(ctx context.Context, b *Backend) (models.Membership, error) {
		return b.Sync.AddUserGroups(ctx, id, groups...)
	})
}

type UserRemoveGroupsCmd struct {
	GroupArgs `embed:""`
}

func (c *UserRemoveGroupsCmd) Run(ctx context.Context, globals *Globals) error {
	id, groups, err := c.parse()
	if err != nil {
		return err
	}

	return runMembership(ctx, globals, "user.remove_groups", func(ctx context.Context, b *Backend) (models.Membership, error) {
		return b.Sync.RemoveUserGroups(ctx, id, groups...)
	})
}

type UserClearGroupsCmd struct {
	ID string `arg:"" help:"user id"`
}

func (c *UserClearGroupsCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	return runMembership(ctx, globals, "user.clear_groups", func(ctx context.Context, b *Backend) (models.Membership, error) {
		return b.Sync.ClearUserGroups(ctx, id)
	})
}

func runMembership(ctx context.Context, globals *Globals, name string, fn func(context.Context, *Backend) (models.Membership, error)) error {
	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var m models.Membership
	err = b.Run(ctx, name, func(ctx context.Context) error {
		m, err = fn(ctx, b)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("role:   %s\n", formatID(m.RoleID))
	for _, g := range m.GroupIDs {
		fmt.Printf("group:  %s\n", g)
	}
	return nil
}

type UserAssignCycleCmd struct {
	User  string `arg:"" help:"user id"`
	Org   string `arg:"" help:"organization id"`
	Cycle string `arg:"" help:"business cycle id"`
}

func (c *UserAssignCycleCmd) Run(ctx context.Context, globals *Globals) error {
	ids, err := parseIDs([]string{c.User, c.Org, c.Cycle})
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	a := &models.BusinessCycleAssignment{
		AssignmentID:    uuid.Must(uuid.NewV7()),
		UserID:          &ids[0],
		OrgID:           ids[1],
		BusinessCycleID: ids[2],
		CreatedAt:       time.Now().UTC(),
	}
	err = b.Run(ctx, "user.assign_cycle", func(ctx context.Context) error {
		return b.Users.AssignBusinessCycle(ctx, a)
	})
	if err != nil {
		return err
	}

	fmt.Println(a.AssignmentID)
	return nil
}
