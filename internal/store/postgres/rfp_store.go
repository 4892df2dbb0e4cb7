package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
)

const rfpColumns = `rfp_id, org_id, owner_id, status, name, description, company_url,
	value_propositions, start_date, end_date, industry_id, questionnaires, descriptions,
	created_at, updated_at`

const finalizedColumns = `finalized_id, source_rfp_id, org_id, status, start_date, end_date,
	snapshot, checksum, created_at`

// joinKeys are the primary key constraints of the proposal join tables.
var joinKeys = []string{
	"generated_rfp_services_pkey",
	"generated_rfp_business_cycles_pkey",
	"generated_rfp_areas_pkey",
	"generated_rfp_allowed_users_pkey",
}

// RFPStore implements store.RFPStore using PostgreSQL.
type RFPStore struct {
	pool *pgxpool.Pool
}

// NewRFPStore creates a new PostgreSQL-backed proposal store.
func NewRFPStore(pool *pgxpool.Pool) *RFPStore {
	return &RFPStore{pool: pool}
}

// Create inserts a proposal and its joins in one transaction.
func (s *RFPStore) Create(ctx context.Context, rfp *models.GeneratedRFP) error {
	if rfp.Status == "" {
		rfp.Status = models.RFPStatusInProgress
	}
	rfp.AllowedUserIDs = models.SortIDs(rfp.AllowedUserIDs)

	questionnaires, descriptions, err := encodeEntries(rfp)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO generated_rfps (`+rfpColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`,
			rfp.RFPID,
			rfp.OrgID,
			rfp.OwnerID,
			rfp.Status,
			rfp.Name,
			rfp.Description,
			rfp.CompanyURL,
			rfp.ValuePropositions,
			rfp.StartDate,
			rfp.EndDate,
			rfp.IndustryID,
			questionnaires,
			descriptions,
			rfp.CreatedAt,
			rfp.UpdatedAt,
		)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, id := range rfp.ServiceIDs {
			batch.Queue(`INSERT INTO generated_rfp_services (rfp_id, service_id) VALUES ($1, $2)`, rfp.RFPID, id)
		}
		for _, id := range rfp.BusinessCycleIDs {
			batch.Queue(`INSERT INTO generated_rfp_business_cycles (rfp_id, business_cycle_id) VALUES ($1, $2)`, rfp.RFPID, id)
		}
		for _, a := range rfp.Areas {
			batch.Queue(`INSERT INTO generated_rfp_areas (rfp_id, area_id, priority) VALUES ($1, $2, $3)`, rfp.RFPID, a.AreaID, string(a.Priority))
		}
		queueAllowedUsers(batch, rfp.RFPID, rfp.AllowedUserIDs)

		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		switch {
		case isUniqueViolation(err, "generated_rfps_pkey"):
			return store.ErrRFPAlreadyExists
		case isUniqueViolation(err, joinKeys...):
			return store.ErrAlreadyLinked
		}
		return fmt.Errorf("failed to create generated rfp: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("rfp_id", rfp.RFPID.String()).
		Msg("Created generated RFP")

	return nil
}

// Get retrieves a proposal with all of its joins read from one snapshot.
func (s *RFPStore) Get(ctx context.Context, rfpID uuid.UUID) (*models.GeneratedRFP, error) {
	var rfp *models.GeneratedRFP

	err := readSnapshot(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		rfp, err = getRFP(ctx, tx, rfpID, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	return rfp, nil
}

// ListByOrganization returns an organization's proposals, newest first.
func (s *RFPStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.GeneratedRFP, error) {
	var result []*models.GeneratedRFP

	err := readSnapshot(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+rfpColumns+`
			FROM generated_rfps
			WHERE org_id = $1
			ORDER BY rfp_id DESC
		`, orgID)
		if err != nil {
			return fmt.Errorf("failed to list generated rfps: %w", err)
		}

		result, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.GeneratedRFP, error) {
			return scanRFP(row)
		})
		if err != nil {
			return fmt.Errorf("failed to scan generated rfp: %w", err)
		}

		for _, rfp := range result {
			if err := loadJoins(ctx, tx, rfp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateEntries locks the proposal with SELECT ... FOR UPDATE and writes the
// free-form lists computed by fn in the same transaction.
func (s *RFPStore) UpdateEntries(ctx context.Context, rfpID uuid.UUID, fn store.EntriesFunc) (models.Entries, error) {
	var next models.Entries

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var questionnaires, descriptions []byte
		err := tx.QueryRow(ctx, `
			SELECT questionnaires, descriptions
			FROM generated_rfps
			WHERE rfp_id = $1
			FOR UPDATE
		`, rfpID).Scan(&questionnaires, &descriptions)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrRFPNotFound
			}
			return err
		}

		var current models.Entries
		if err := json.Unmarshal(questionnaires, &current.Questionnaires); err != nil {
			return fmt.Errorf("failed to decode questionnaires: %w", err)
		}
		if err := json.Unmarshal(descriptions, &current.Descriptions); err != nil {
			return fmt.Errorf("failed to decode descriptions: %w", err)
		}

		next, err = fn(current)
		if err != nil {
			return err
		}

		questionnaires, descriptions, err = encodeEntries(&models.GeneratedRFP{
			Questionnaires: next.Questionnaires,
			Descriptions:   next.Descriptions,
		})
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE generated_rfps SET
				questionnaires = $2,
				descriptions = $3,
				updated_at = $4
			WHERE rfp_id = $1
		`, rfpID, questionnaires, descriptions, time.Now())
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrRFPNotFound) {
			return models.Entries{}, err
		}
		return models.Entries{}, fmt.Errorf("failed to update rfp entries: %w", err)
	}

	return next, nil
}

// Update writes the scalar fields, allowed users and free-form lists.
func (s *RFPStore) Update(ctx context.Context, rfp *models.GeneratedRFP) error {
	questionnaires, descriptions, err := encodeEntries(rfp)
	if err != nil {
		return err
	}
	allowed := models.SortIDs(rfp.AllowedUserIDs)
	now := time.Now()

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE generated_rfps SET
				status = $2,
				name = $3,
				description = $4,
				company_url = $5,
				value_propositions = $6,
				start_date = $7,
				end_date = $8,
				industry_id = $9,
				questionnaires = $10,
				descriptions = $11,
				updated_at = $12
			WHERE rfp_id = $1
		`,
			rfp.RFPID,
			rfp.Status,
			rfp.Name,
			rfp.Description,
			rfp.CompanyURL,
			rfp.ValuePropositions,
			rfp.StartDate,
			rfp.EndDate,
			rfp.IndustryID,
			questionnaires,
			descriptions,
			now,
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return store.ErrRFPNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM generated_rfp_allowed_users WHERE rfp_id = $1`, rfp.RFPID); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		queueAllowedUsers(batch, rfp.RFPID, allowed)
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		if errors.Is(err, store.ErrRFPNotFound) {
			return err
		}
		return fmt.Errorf("failed to update generated rfp: %w", mapPostgresError(err))
	}

	rfp.AllowedUserIDs = allowed
	rfp.UpdatedAt = now

	return nil
}

// Delete deletes a proposal. Joins cascade, finalized snapshots keep a
// NULL source.
func (s *RFPStore) Delete(ctx context.Context, rfpID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM generated_rfps WHERE rfp_id = $1`, rfpID)
	if err != nil {
		return mapDeleteError(err, ownership.RelationGeneratedRFP, rfpID)
	}
	if result.RowsAffected() == 0 {
		return store.ErrRFPNotFound
	}

	log.Info().
		Str("rfp_id", rfpID.String()).
		Msg("Deleted generated RFP")

	return nil
}

func (s *RFPStore) LinkService(ctx context.Context, rfpID, serviceID uuid.UUID) error {
	return s.link(ctx, rfpID, `INSERT INTO generated_rfp_services (rfp_id, service_id) VALUES ($1, $2)`, serviceID)
}

func (s *RFPStore) UnlinkService(ctx context.Context, rfpID, serviceID uuid.UUID) error {
	return s.unlink(ctx, rfpID, `DELETE FROM generated_rfp_services WHERE rfp_id = $1 AND service_id = $2`, serviceID)
}

func (s *RFPStore) LinkBusinessCycle(ctx context.Context, rfpID, cycleID uuid.UUID) error {
	return s.link(ctx, rfpID, `INSERT INTO generated_rfp_business_cycles (rfp_id, business_cycle_id) VALUES ($1, $2)`, cycleID)
}

func (s *RFPStore) UnlinkBusinessCycle(ctx context.Context, rfpID, cycleID uuid.UUID) error {
	return s.unlink(ctx, rfpID, `DELETE FROM generated_rfp_business_cycles WHERE rfp_id = $1 AND business_cycle_id = $2`, cycleID)
}

func (s *RFPStore) LinkArea(ctx context.Context, rfpID, areaID uuid.UUID, priority models.Priority) error {
	return s.link(ctx, rfpID, `INSERT INTO generated_rfp_areas (rfp_id, area_id, priority) VALUES ($1, $2, $3)`, areaID, string(priority))
}

func (s *RFPStore) UnlinkArea(ctx context.Context, rfpID, areaID uuid.UUID) error {
	return s.unlink(ctx, rfpID, `DELETE FROM generated_rfp_areas WHERE rfp_id = $1 AND area_id = $2`, areaID)
}

// touch bumps updated_at, taking the proposal's row lock for the rest of the
// transaction.
func touch(ctx context.Context, tx pgx.Tx, rfpID uuid.UUID) error {
	result, err := tx.Exec(ctx, `UPDATE generated_rfps SET updated_at = $2 WHERE rfp_id = $1`, rfpID, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return store.ErrRFPNotFound
	}
	return nil
}

func (s *RFPStore) link(ctx context.Context, rfpID uuid.UUID, stmt string, args ...any) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, rfpID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, stmt, append([]any{rfpID}, args...)...)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRFPNotFound):
			return err
		case isUniqueViolation(err, joinKeys...):
			return store.ErrAlreadyLinked
		}
		return mapPostgresError(err)
	}
	return nil
}

func (s *RFPStore) unlink(ctx context.Context, rfpID uuid.UUID, stmt string, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, rfpID); err != nil {
			return err
		}
		result, err := tx.Exec(ctx, stmt, rfpID, id)
		if err != nil {
			return mapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return store.ErrNotLinked
		}
		return nil
	})
}

// Finalize locks the proposal with SELECT ... FOR UPDATE, reads its joins and
// inserts the record built by fn in the same transaction.
func (s *RFPStore) Finalize(ctx context.Context, rfpID uuid.UUID, fn store.SnapshotFunc) (*models.FinalizedRFP, error) {
	var rec *models.FinalizedRFP

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rfp, err := getRFP(ctx, tx, rfpID, true)
		if err != nil {
			return err
		}

		rec, err = fn(rfp)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO finalized_rfps (`+finalizedColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			rec.FinalizedID,
			rec.SourceRFPID,
			rec.OrgID,
			rec.Status,
			rec.StartDate,
			rec.EndDate,
			rec.Snapshot,
			int64(rec.Checksum),
			rec.CreatedAt,
		)
		if err != nil {
			return mapPostgresError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// GetFinalized retrieves a finalized record by ID.
func (s *RFPStore) GetFinalized(ctx context.Context, finalizedID uuid.UUID) (*models.FinalizedRFP, error) {
	rec, err := scanFinalized(s.pool.QueryRow(ctx, `SELECT `+finalizedColumns+` FROM finalized_rfps WHERE finalized_id = $1`, finalizedID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrFinalizedNotFound
		}
		return nil, fmt.Errorf("failed to get finalized rfp: %w", err)
	}
	return rec, nil
}

// ListFinalized returns an organization's finalized records, newest first.
func (s *RFPStore) ListFinalized(ctx context.Context, orgID uuid.UUID) ([]*models.FinalizedRFP, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+finalizedColumns+`
		FROM finalized_rfps
		WHERE org_id = $1
		ORDER BY finalized_id DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list finalized rfps: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.FinalizedRFP, error) {
		return scanFinalized(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan finalized rfp: %w", err)
	}
	return result, nil
}

// CreateSubmission records delivery of a proposal.
func (s *RFPStore) CreateSubmission(ctx context.Context, sub *models.SubmittedRFP) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submitted_rfps (
			submission_id, rfp_id, user_id, status, recipient_name, recipient_email,
			pdf_link, is_opened, last_login_ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		sub.SubmissionID,
		sub.RFPID,
		sub.UserID,
		sub.Status,
		sub.RecipientName,
		sub.RecipientEmail,
		sub.PDFLink,
		sub.IsOpened,
		sub.LastLoginIPAddress,
		sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", mapPostgresError(err))
	}
	return nil
}

// ListSubmissions returns the submissions of a proposal in creation order.
func (s *RFPStore) ListSubmissions(ctx context.Context, rfpID uuid.UUID) ([]*models.SubmittedRFP, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT submission_id, rfp_id, user_id, status, recipient_name, recipient_email,
			pdf_link, is_opened, last_login_ip_address, created_at
		FROM submitted_rfps
		WHERE rfp_id = $1
		ORDER BY submission_id
	`, rfpID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.SubmittedRFP, error) {
		var sub models.SubmittedRFP
		err := row.Scan(
			&sub.SubmissionID,
			&sub.RFPID,
			&sub.UserID,
			&sub.Status,
			&sub.RecipientName,
			&sub.RecipientEmail,
			&sub.PDFLink,
			&sub.IsOpened,
			&sub.LastLoginIPAddress,
			&sub.CreatedAt,
		)
		return &sub, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}
	return result, nil
}

// CreateResponse records a provider response to a submission.
func (s *RFPStore) CreateResponse(ctx context.Context, r *models.ResponseRFP) error {
	completed, err := json.Marshal(nonNilEntries(r.CompletedFields))
	if err != nil {
		return fmt.Errorf("failed to encode completed fields: %w", err)
	}
	fields, err := json.Marshal(nonNilEntries(r.ResponseFields))
	if err != nil {
		return fmt.Errorf("failed to encode response fields: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO response_rfps (
			response_id, provider_id, rfp_id, user_id, submission_id, completed_fields,
			response_fields, is_accepted, is_rejected, is_pending, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		r.ResponseID,
		r.ProviderID,
		r.RFPID,
		r.UserID,
		r.SubmissionID,
		completed,
		fields,
		r.IsAccepted,
		r.IsRejected,
		r.IsPending,
		r.Status,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create response: %w", mapPostgresError(err))
	}
	return nil
}

func getRFP(ctx context.Context, q querier, rfpID uuid.UUID, lock bool) (*models.GeneratedRFP, error) {
	query := `SELECT ` + rfpColumns + ` FROM generated_rfps WHERE rfp_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	rfp, err := scanRFP(q.QueryRow(ctx, query, rfpID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRFPNotFound
		}
		return nil, fmt.Errorf("failed to get generated rfp: %w", err)
	}

	if err := loadJoins(ctx, q, rfp); err != nil {
		return nil, err
	}
	return rfp, nil
}

func scanRFP(row pgx.Row) (*models.GeneratedRFP, error) {
	var (
		rfp                          models.GeneratedRFP
		questionnaires, descriptions []byte
	)
	err := row.Scan(
		&rfp.RFPID,
		&rfp.OrgID,
		&rfp.OwnerID,
		&rfp.Status,
		&rfp.Name,
		&rfp.Description,
		&rfp.CompanyURL,
		&rfp.ValuePropositions,
		&rfp.StartDate,
		&rfp.EndDate,
		&rfp.IndustryID,
		&questionnaires,
		&descriptions,
		&rfp.CreatedAt,
		&rfp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(questionnaires, &rfp.Questionnaires); err != nil {
		return nil, fmt.Errorf("failed to decode questionnaires: %w", err)
	}
	if err := json.Unmarshal(descriptions, &rfp.Descriptions); err != nil {
		return nil, fmt.Errorf("failed to decode descriptions: %w", err)
	}
	return &rfp, nil
}

// loadJoins reads the join rows of a proposal in link order.
func loadJoins(ctx context.Context, q querier, rfp *models.GeneratedRFP) error {
	var err error

	rfp.ServiceIDs, err = collectIDs(ctx, q, `SELECT service_id FROM generated_rfp_services WHERE rfp_id = $1 ORDER BY position`, rfp.RFPID)
	if err != nil {
		return err
	}
	rfp.BusinessCycleIDs, err = collectIDs(ctx, q, `SELECT business_cycle_id FROM generated_rfp_business_cycles WHERE rfp_id = $1 ORDER BY position`, rfp.RFPID)
	if err != nil {
		return err
	}
	rfp.AllowedUserIDs, err = collectIDs(ctx, q, `SELECT user_id FROM generated_rfp_allowed_users WHERE rfp_id = $1 ORDER BY user_id`, rfp.RFPID)
	if err != nil {
		return err
	}

	rows, err := q.Query(ctx, `SELECT area_id, priority FROM generated_rfp_areas WHERE rfp_id = $1 ORDER BY position`, rfp.RFPID)
	if err != nil {
		return fmt.Errorf("failed to read areas: %w", err)
	}
	rfp.Areas, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.AreaLink, error) {
		var (
			a        models.AreaLink
			priority string
		)
		err := row.Scan(&a.AreaID, &priority)
		a.Priority = models.Priority(priority)
		return a, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan area: %w", err)
	}
	return nil
}

func collectIDs(ctx context.Context, q querier, query string, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read joins: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan join: %w", err)
	}
	return ids, nil
}

func scanFinalized(row pgx.Row) (*models.FinalizedRFP, error) {
	var (
		rec      models.FinalizedRFP
		checksum int64
	)
	err := row.Scan(
		&rec.FinalizedID,
		&rec.SourceRFPID,
		&rec.OrgID,
		&rec.Status,
		&rec.StartDate,
		&rec.EndDate,
		&rec.Snapshot,
		&checksum,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Checksum = uint64(checksum)
	return &rec, nil
}

func queueAllowedUsers(batch *pgx.Batch, rfpID uuid.UUID, userIDs []uuid.UUID) {
	for _, id := range userIDs {
		batch.Queue(`INSERT INTO generated_rfp_allowed_users (rfp_id, user_id) VALUES ($1, $2)`, rfpID, id)
	}
}

func encodeEntries(rfp *models.GeneratedRFP) ([]byte, []byte, error) {
	questionnaires, err := json.Marshal(nonNilEntries(rfp.Questionnaires))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode questionnaires: %w", err)
	}
	descriptions, err := json.Marshal(nonNilEntries(rfp.Descriptions))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode descriptions: %w", err)
	}
	return questionnaires, descriptions, nil
}

func nonNilEntries(entries []json.RawMessage) []json.RawMessage {
	if entries == nil {
		return []json.RawMessage{}
	}
	return entries
}
