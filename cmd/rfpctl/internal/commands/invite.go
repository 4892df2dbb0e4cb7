package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/rfpcore/internal/models"
)

type InviteCmd struct {
	Issue      InviteIssueCmd      `cmd:"" help:"Issue an invite and print its token"`
	Accept     InviteAcceptCmd     `cmd:"" help:"Accept an invite token"`
	Deactivate InviteDeactivateCmd `cmd:"" help:"Permanently deactivate an invite"`
}

type InviteIssueCmd struct {
	Email   string `arg:"" help:"invitee email address"`
	Inviter string `help:"inviting user id" required:""`
	Org     string `help:"organization the invitee joins"`
}

func (c *InviteIssueCmd) Run(ctx context.Context, globals *Globals) error {
	inviter, err := parseID(c.Inviter)
	if err != nil {
		return err
	}
	org, err := parseOptionalID(c.Org)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var (
		inv   *models.Invite
		token string
	)
	err = b.Run(ctx, "invite.issue", func(ctx context.Context) error {
		inv, token, err = b.Invites.Issue(ctx, inviter, org, c.Email)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("Invite ID:  %s\n", inv.InviteID)
	fmt.Printf("Token:      %s\n", token)
	fmt.Printf("Expires:    %s\n", formatTime(inv.ExpiresAt))
	return nil
}

type InviteAcceptCmd struct {
	Token string `arg:"" help:"invite token"`
}

func (c *InviteAcceptCmd) Run(ctx context.Context, globals *Globals) error {
	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var inv *models.Invite
	err = b.Run(ctx, "invite.accept", func(ctx context.Context) error {
		inv, err = b.Invites.Accept(ctx, c.Token)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("Accepted invite %s for %s (organization %s)\n", inv.InviteID, inv.Email, formatID(inv.OrgID))
	return nil
}

type InviteDeactivateCmd struct {
	ID string `arg:"" help:"invite id"`
}

func (c *InviteDeactivateCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "invite.deactivate", func(ctx context.Context) error {
		return b.Invites.Deactivate(ctx, id)
	})
}

type ResetCmd struct {
	Issue ResetIssueCmd `cmd:"" help:"Issue a password reset token"`
	Use   ResetUseCmd   `cmd:"" help:"Redeem a password reset token"`
}

type ResetIssueCmd struct {
	User string `arg:"" help:"user id"`
}

func (c *ResetIssueCmd) Run(ctx context.Context, globals *Globals) error {
	user, err := parseID(c.User)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var (
		rt    *models.PasswordResetToken
		token string
	)
	err = b.Run(ctx, "reset.issue", func(ctx context.Context) error {
		rt, token, err = b.Invites.IssueResetToken(ctx, user)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("Token:      %s\n", token)
	fmt.Printf("Expires:    %s\n", formatTime(rt.ExpiresAt))
	return nil
}

type ResetUseCmd struct {
	Token string `arg:"" help:"reset token"`
}

func (c *ResetUseCmd) Run(ctx context.Context, globals *Globals) error {
	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var rt *models.PasswordResetToken
	err = b.Run(ctx, "reset.use", func(ctx context.Context) error {
		rt, err = b.Invites.UseResetToken(ctx, c.Token)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("Reset token redeemed for user %s\n", rt.UserID)
	return nil
}
