package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/catalog"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/snapshot"
)

const dateLayout = "2006-01-02"

type RFPCmd struct {
	Create   RFPCreateCmd   `cmd:"" help:"Create a proposal"`
	Get      RFPGetCmd      `cmd:"" help:"Show a proposal"`
	List     RFPListCmd     `cmd:"" help:"List the proposals of an organization"`
	Link     RFPLinkCmd     `cmd:"" help:"Link a service, business cycle or functional area"`
	Unlink   RFPUnlinkCmd   `cmd:"" help:"Remove a link"`
	Entries  RFPEntriesCmd  `cmd:"" help:"Replace questionnaires and descriptions from a JSON file"`
	Finalize RFPFinalizeCmd `cmd:"" help:"Take an immutable snapshot of a proposal"`
	Delete   RFPDeleteCmd   `cmd:"" help:"Delete a proposal, keeping its snapshots"`
}

type RFPCreateCmd struct {
	Name              string   `arg:"" help:"proposal name"`
	Org               string   `help:"organization id"`
	Owner             string   `help:"owning user id" required:""`
	Industry          string   `help:"industry id" required:""`
	Description       string   `help:"description"`
	CompanyURL        string   `name:"company-url" help:"company URL"`
	ValuePropositions string   `help:"value propositions"`
	Start             string   `help:"start date (YYYY-MM-DD)"`
	End               string   `help:"end date (YYYY-MM-DD)"`
	Services          []string `name:"service" help:"service ids"`
	Cycles            []string `name:"cycle" help:"business cycle ids"`
	Areas             []string `name:"area" help:"functional area ids, optionally suffixed with :low, :medium or :high"`
	AllowedUsers      []string `name:"allowed-user" help:"user ids allowed to view the proposal"`
}

func (c *RFPCreateCmd) input() (catalog.CreateInput, error) {
	var (
		in  catalog.CreateInput
		err error
	)
	if in.OrgID, err = parseOptionalID(c.Org); err != nil {
		return in, err
	}
	if in.OwnerID, err = parseID(c.Owner); err != nil {
		return in, err
	}
	if in.IndustryID, err = parseID(c.Industry); err != nil {
		return in, err
	}
	if in.StartDate, err = parseDate(c.Start); err != nil {
		return in, err
	}
	if in.EndDate, err = parseDate(c.End); err != nil {
		return in, err
	}
	if in.ServiceIDs, err = parseIDs(c.Services); err != nil {
		return in, err
	}
	if in.BusinessCycleIDs, err = parseIDs(c.Cycles); err != nil {
		return in, err
	}
	if in.AllowedUserIDs, err = parseIDs(c.AllowedUsers); err != nil {
		return in, err
	}
	for _, a := range c.Areas {
		link, err := parseArea(a)
		if err != nil {
			return in, err
		}
		in.Areas = append(in.Areas, link)
	}

	in.Name = c.Name
	in.Description = c.Description
	in.CompanyURL = c.CompanyURL
	in.ValuePropositions = c.ValuePropositions
	return in, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &t, nil
}

func parseArea(s string) (models.AreaLink, error) {
	idPart, priority, _ := strings.Cut(s, ":")
	id, err := parseID(idPart)
	if err != nil {
		return models.AreaLink{}, err
	}
	p, err := models.ParsePriority(priority)
	if err != nil {
		return models.AreaLink{}, err
	}
	return models.AreaLink{AreaID: id, Priority: p}, nil
}

func (c *RFPCreateCmd) Run(ctx context.Context, globals *Globals) error {
	in, err := c.input()
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var rfp *models.GeneratedRFP
	err = b.Run(ctx, "rfp.create", func(ctx context.Context) error {
		rfp, err = b.Proposals.Create(ctx, in)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Println(rfp.RFPID)
	return nil
}

type RFPGetCmd struct {
	ID string `arg:"" help:"proposal id"`
}

func (c *RFPGetCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var rfp *models.GeneratedRFP
	err = b.Run(ctx, "rfp.get", func(ctx context.Context) error {
		rfp, err = b.Proposals.Get(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	printRFP(rfp)
	return nil
}

func printRFP(rfp *models.GeneratedRFP) {
	fmt.Printf("RFP ID:          %s\n", rfp.RFPID)
	fmt.Printf("Organization:    %s\n", formatID(rfp.OrgID))
	fmt.Printf("Owner:           %s\n", rfp.OwnerID)
	fmt.Printf("Name:            %s\n", rfp.Name)
	fmt.Printf("Status:          %s\n", rfp.Status)
	fmt.Printf("Industry:        %s\n", rfp.IndustryID)
	for _, id := range rfp.ServiceIDs {
		fmt.Printf("Service:         %s\n", id)
	}
	for _, id := range rfp.BusinessCycleIDs {
		fmt.Printf("Business cycle:  %s\n", id)
	}
	for _, a := range rfp.Areas {
		fmt.Printf("Area:            %s (%s)\n", a.AreaID, a.Priority)
	}
	fmt.Printf("Allowed users:   %d\n", len(rfp.AllowedUserIDs))
	fmt.Printf("Questionnaires:  %d\n", len(rfp.Questionnaires))
	fmt.Printf("Descriptions:    %d\n", len(rfp.Descriptions))
	fmt.Printf("Updated:         %s\n", formatTime(rfp.UpdatedAt))
}

type RFPListCmd struct {
	Org string `arg:"" help:"organization id"`
}

func (c *RFPListCmd) Run(ctx context.Context, globals *Globals) error {
	org, err := parseID(c.Org)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var rfps []*models.GeneratedRFP
	err = b.Run(ctx, "rfp.list", func(ctx context.Context) error {
		rfps, err = b.RFPs.ListByOrganization(ctx, org)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-32s  %-12s  %s\n", "RFP ID", "NAME", "STATUS", "UPDATED")
	fmt.Println(strings.Repeat("─", 110))
	for _, r := range rfps {
		fmt.Printf("%-36s  %-32s  %-12s  %s\n", r.RFPID, truncate(r.Name, 32), r.Status, formatTime(r.UpdatedAt))
	}
	return nil
}

type RFPLinkCmd struct {
	ID       string `arg:"" help:"proposal id"`
	Kind     string `arg:"" help:"linked kind" enum:"service,business_cycle,functional_area"`
	Target   string `arg:"" help:"linked row id"`
	Priority string `help:"functional area priority (low, medium or high)"`
}

func (c *RFPLinkCmd) Run(ctx context.Context, globals *Globals) error {
	ids, err := parseIDs([]string{c.ID, c.Target})
	if err != nil {
		return err
	}
	rfpID, target := ids[0], ids[1]

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "rfp.link", func(ctx context.Context) error {
		switch models.Kind(c.Kind) {
		case models.KindService:
			return b.Proposals.LinkService(ctx, rfpID, target)
		case models.KindBusinessCycle:
			return b.Proposals.LinkBusinessCycle(ctx, rfpID, target)
		default:
			return b.Proposals.LinkArea(ctx, rfpID, target, c.Priority)
		}
	})
}

type RFPUnlinkCmd struct {
	ID     string `arg:"" help:"proposal id"`
	Kind   string `arg:"" help:"linked kind" enum:"service,business_cycle,functional_area"`
	Target string `arg:"" help:"linked row id"`
}

func (c *RFPUnlinkCmd) Run(ctx context.Context, globals *Globals) error {
	ids, err := parseIDs([]string{c.ID, c.Target})
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "rfp.unlink", func(ctx context.Context) error {
		return b.Proposals.Unlink(ctx, ids[0], models.Kind(c.Kind), ids[1])
	})
}

// EntriesFile holds the free-form entries of a proposal.
type EntriesFile struct {
	Questionnaires []json.RawMessage `json:"questionnaires"`
	Descriptions   []json.RawMessage `json:"descriptions"`
}

type RFPEntriesCmd struct {
	ID   string `arg:"" help:"proposal id"`
	File string `arg:"" help:"JSON file with questionnaires and descriptions arrays" type:"existingfile"`
}

func (c *RFPEntriesCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read entries file: %w", err)
	}
	var entries EntriesFile
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse entries file: %w", err)
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "rfp.entries", func(ctx context.Context) error {
		return b.Proposals.SetEntries(ctx, id, entries.Questionnaires, entries.Descriptions)
	})
}

type RFPFinalizeCmd struct {
	ID string `arg:"" help:"proposal id"`
}

func (c *RFPFinalizeCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var rec *models.FinalizedRFP
	err = b.Run(ctx, "rfp.finalize", func(ctx context.Context) error {
		rec, err = b.Finalizer.Finalize(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s  checksum=%016x  bytes=%d\n", rec.FinalizedID, rec.Checksum, len(rec.Snapshot))
	return nil
}

type RFPDeleteCmd struct {
	ID string `arg:"" help:"proposal id"`
}

func (c *RFPDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx, "rfp.delete", func(ctx context.Context) error {
		return b.Proposals.Delete(ctx, id)
	})
}

type FinalizedCmd struct {
	List   FinalizedListCmd   `cmd:"" help:"List the snapshots of an organization"`
	Show   FinalizedShowCmd   `cmd:"" help:"Print a snapshot document"`
	Verify FinalizedVerifyCmd `cmd:"" help:"Check snapshot checksums"`
}

type FinalizedListCmd struct {
	Org string `arg:"" help:"organization id"`
}

func (c *FinalizedListCmd) Run(ctx context.Context, globals *Globals) error {
	org, err := parseID(c.Org)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var recs []*models.FinalizedRFP
	err = b.Run(ctx, "finalized.list", func(ctx context.Context) error {
		recs, err = b.RFPs.ListFinalized(ctx, org)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-36s  %-16s  %s\n", "FINALIZED ID", "SOURCE RFP", "CHECKSUM", "CREATED")
	fmt.Println(strings.Repeat("─", 115))
	for _, r := range recs {
		fmt.Printf("%-36s  %-36s  %016x  %s\n", r.FinalizedID, formatID(r.SourceRFPID), r.Checksum, formatTime(r.CreatedAt))
	}
	return nil
}

type FinalizedShowCmd struct {
	ID string `arg:"" help:"finalized id"`
}

func (c *FinalizedShowCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var rec *models.FinalizedRFP
	err = b.Run(ctx, "finalized.show", func(ctx context.Context) error {
		rec, err = b.RFPs.GetFinalized(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(append(rec.Snapshot, '\n'))
	return err
}

type FinalizedVerifyCmd struct {
	Org string `arg:"" help:"organization id"`
}

func (c *FinalizedVerifyCmd) Run(ctx context.Context, globals *Globals) error {
	org, err := parseID(c.Org)
	if err != nil {
		return err
	}

	b, err := globals.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var failed []uuid.UUID
	err = b.Run(ctx, "finalized.verify", func(ctx context.Context) error {
		recs, err := b.RFPs.ListFinalized(ctx, org)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if err := snapshot.VerifyChecksum(r); err != nil {
				fmt.Printf("FAIL  %s  %v\n", r.FinalizedID, err)
				failed = append(failed, r.FinalizedID)
				continue
			}
			fmt.Printf("OK    %s\n", r.FinalizedID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d snapshots failed verification", len(failed))
	}
	return nil
}
