package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/visibility"
)

var (
	// ErrNotVisible is returned when a proposal or functional area references
	// a catalogue row its organization cannot see.
	ErrNotVisible = errors.New("catalogue row not visible to organization")

	// ErrForeignUser is returned when a proposal's owner or allowed user
	// belongs to another organization.
	ErrForeignUser = errors.New("user belongs to another organization")
)

// Proposals manages generated RFPs and their catalogue links.
type Proposals struct {
	rfps  store.RFPStore
	rows  store.CatalogStore
	users store.UserStore
	now   func() time.Time
}

// NewProposals creates a proposal service.
func NewProposals(rfps store.RFPStore, rows store.CatalogStore, users store.UserStore) *Proposals {
	return &Proposals{rfps: rfps, rows: rows, users: users, now: time.Now}
}

// CreateInput holds the fields of a new proposal.
type CreateInput struct {
	OrgID             *uuid.UUID
	OwnerID           uuid.UUID
	Name              string
	Description       string
	CompanyURL        string
	ValuePropositions string
	StartDate         *time.Time
	EndDate           *time.Time
	IndustryID        uuid.UUID
	ServiceIDs        []uuid.UUID
	BusinessCycleIDs  []uuid.UUID
	Areas             []models.AreaLink
	AllowedUserIDs    []uuid.UUID
}

// Create stores a new proposal. Every referenced catalogue row must be
// visible to the proposal's organization, and the owner and allowed users
// must be members of it.
func (p *Proposals) Create(ctx context.Context, in CreateInput) (*models.GeneratedRFP, error) {
	viewer := visibility.For(in.OrgID)

	for _, id := range append([]uuid.UUID{in.OwnerID}, in.AllowedUserIDs...) {
		if err := p.checkMember(ctx, in.OrgID, id); err != nil {
			return nil, err
		}
	}

	if err := p.checkVisible(ctx, viewer, models.KindIndustry, in.IndustryID); err != nil {
		return nil, err
	}
	for _, id := range in.ServiceIDs {
		if err := p.checkVisible(ctx, viewer, models.KindService, id); err != nil {
			return nil, err
		}
	}
	for _, id := range in.BusinessCycleIDs {
		if err := p.checkVisible(ctx, viewer, models.KindBusinessCycle, id); err != nil {
			return nil, err
		}
	}
	areas := make([]models.AreaLink, len(in.Areas))
	for i, a := range in.Areas {
		if err := p.checkVisible(ctx, viewer, models.KindFunctionalArea, a.AreaID); err != nil {
			return nil, err
		}
		priority, err := models.ParsePriority(string(a.Priority))
		if err != nil {
			return nil, err
		}
		areas[i] = models.AreaLink{AreaID: a.AreaID, Priority: priority}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate rfp id: %w", err)
	}

	now := p.now()
	rfp := &models.GeneratedRFP{
		RFPID:             id,
		OrgID:             models.CloneID(in.OrgID),
		OwnerID:           in.OwnerID,
		Status:            models.RFPStatusInProgress,
		Name:              in.Name,
		Description:       in.Description,
		CompanyURL:        in.CompanyURL,
		ValuePropositions: in.ValuePropositions,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		IndustryID:        in.IndustryID,
		ServiceIDs:        in.ServiceIDs,
		BusinessCycleIDs:  in.BusinessCycleIDs,
		Areas:             areas,
		AllowedUserIDs:    models.SortIDs(in.AllowedUserIDs),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := p.rfps.Create(ctx, rfp); err != nil {
		return nil, fmt.Errorf("failed to create rfp: %w", err)
	}

	log.Debug().
		Str("rfp_id", id.String()).
		Str("owner_id", in.OwnerID.String()).
		Msg("Created generated RFP")

	return rfp, nil
}

// Get returns a proposal.
func (p *Proposals) Get(ctx context.Context, rfpID uuid.UUID) (*models.GeneratedRFP, error) {
	return p.rfps.Get(ctx, rfpID)
}

// LinkService adds a service to a proposal.
func (p *Proposals) LinkService(ctx context.Context, rfpID, serviceID uuid.UUID) error {
	return p.link(ctx, rfpID, models.KindService, serviceID, func() error {
		return p.rfps.LinkService(ctx, rfpID, serviceID)
	})
}

// LinkBusinessCycle adds a business cycle to a proposal.
func (p *Proposals) LinkBusinessCycle(ctx context.Context, rfpID, cycleID uuid.UUID) error {
	return p.link(ctx, rfpID, models.KindBusinessCycle, cycleID, func() error {
		return p.rfps.LinkBusinessCycle(ctx, rfpID, cycleID)
	})
}

// LinkArea adds a functional area with a priority. An empty priority means medium.
func (p *Proposals) LinkArea(ctx context.Context, rfpID, areaID uuid.UUID, priority string) error {
	prio, err := models.ParsePriority(priority)
	if err != nil {
		return err
	}
	return p.link(ctx, rfpID, models.KindFunctionalArea, areaID, func() error {
		return p.rfps.LinkArea(ctx, rfpID, areaID, prio)
	})
}

// Unlink removes a catalogue row of the given kind from a proposal.
func (p *Proposals) Unlink(ctx context.Context, rfpID uuid.UUID, kind models.Kind, id uuid.UUID) error {
	var err error
	switch kind {
	case models.KindService:
		err = p.rfps.UnlinkService(ctx, rfpID, id)
	case models.KindBusinessCycle:
		err = p.rfps.UnlinkBusinessCycle(ctx, rfpID, id)
	case models.KindFunctionalArea:
		err = p.rfps.UnlinkArea(ctx, rfpID, id)
	default:
		return fmt.Errorf("%s rows are not linked to proposals", kind)
	}
	if err != nil {
		return fmt.Errorf("failed to unlink %s %s: %w", kind, id, err)
	}
	return nil
}

// SetEntries replaces the free-form questionnaire and description lists.
// A nil list leaves the current entries unchanged. The read and write happen
// under the proposal's lock so concurrent callers never overwrite each other.
func (p *Proposals) SetEntries(ctx context.Context, rfpID uuid.UUID, questionnaires, descriptions []json.RawMessage) error {
	for _, e := range slices.Concat(questionnaires, descriptions) {
		if !json.Valid(e) {
			return fmt.Errorf("invalid entry %q", e)
		}
	}

	_, err := p.rfps.UpdateEntries(ctx, rfpID, func(current models.Entries) (models.Entries, error) {
		if questionnaires != nil {
			current.Questionnaires = models.CloneEntries(questionnaires)
		}
		if descriptions != nil {
			current.Descriptions = models.CloneEntries(descriptions)
		}
		return current, nil
	})
	return err
}

// Delete removes a proposal and its joins. Finalized snapshots survive.
func (p *Proposals) Delete(ctx context.Context, rfpID uuid.UUID) error {
	if err := p.rfps.Delete(ctx, rfpID); err != nil {
		return fmt.Errorf("failed to delete rfp %s: %w", rfpID, err)
	}
	return nil
}

func (p *Proposals) link(ctx context.Context, rfpID uuid.UUID, kind models.Kind, id uuid.UUID, fn func() error) error {
	rfp, err := p.rfps.Get(ctx, rfpID)
	if err != nil {
		return err
	}
	if err := p.checkVisible(ctx, visibility.For(rfp.OrgID), kind, id); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return fmt.Errorf("failed to link %s %s: %w", kind, id, err)
	}
	return nil
}

func (p *Proposals) checkMember(ctx context.Context, org *uuid.UUID, userID uuid.UUID) error {
	user, err := p.users.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	if ownership.ScopeOf(user.OrgID) != ownership.ScopeOf(org) {
		return fmt.Errorf("user %s: %w", userID, ErrForeignUser)
	}
	return nil
}

func (p *Proposals) checkVisible(ctx context.Context, viewer visibility.Viewer, kind models.Kind, id uuid.UUID) error {
	row, err := p.rows.Get(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, id, err)
	}
	if !visibility.Visible(row, viewer) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotVisible)
	}
	return nil
}
