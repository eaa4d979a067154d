package repository

import (
	"context"
	"fmt"
	"time"

	"contestbot/database"
	"contestbot/models"
	"github.com/jackc/pgx/v5"
)

const contestColumns = `id, name, prize_description, channel_id, channel_invite_link, start_date, end_date, status, is_active, results_announced, verification_started_at, verification_completed_at, created_at, updated_at`

// ContestRepository implements the service.ContestRepository interface.
// All transitions are guarded UPDATEs on the stored status, so concurrent
// callers race safely: exactly one observes the transition firing.
type ContestRepository struct {
	q queryable
}

// NewContestRepository creates a new contest repository
func NewContestRepository(db *database.DB) *ContestRepository {
	return &ContestRepository{q: db.Pool}
}

// newContestRepositoryWithTx creates a new contest repository with a transaction
func newContestRepositoryWithTx(tx queryable) *ContestRepository {
	return &ContestRepository{q: tx}
}

func scanContest(row pgx.Row) (*models.Contest, error) {
	var c models.Contest
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.PrizeDescription,
		&c.ChannelID,
		&c.ChannelInviteLink,
		&c.StartDate,
		&c.EndDate,
		&c.Status,
		&c.IsActive,
		&c.ResultsAnnounced,
		&c.VerificationStartedAt,
		&c.VerificationCompletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	// Stored timestamps are UTC by policy
	c.StartDate = c.StartDate.UTC()
	c.EndDate = c.EndDate.UTC()
	return &c, nil
}

// GetActive returns the single active contest, or nil if none is configured
func (r *ContestRepository) GetActive(ctx context.Context) (*models.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contest_settings WHERE is_active = TRUE`

	contest, err := scanContest(r.q.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active contest: %w", err)
	}

	return contest, nil
}

// Create inserts a contest row. Provisioning is normally done out of band;
// this exists for operational tooling and tests.
func (r *ContestRepository) Create(ctx context.Context, contest *models.Contest) error {
	query := `
		INSERT INTO contest_settings
			(name, prize_description, channel_id, channel_invite_link, start_date, end_date, status, is_active, results_announced)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		contest.Name,
		contest.PrizeDescription,
		contest.ChannelID,
		contest.ChannelInviteLink,
		contest.StartDate,
		contest.EndDate,
		contest.Status,
		contest.IsActive,
		contest.ResultsAnnounced,
	).Scan(&contest.ID, &contest.CreatedAt, &contest.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contest: %w", err)
	}

	return nil
}

// Activate transitions the active contest from scheduled to active once its
// start date has passed. Returns whether the transition fired.
func (r *ContestRepository) Activate(ctx context.Context, now time.Time) (bool, error) {
	query := `
		UPDATE contest_settings
		SET status = 'active', updated_at = NOW()
		WHERE is_active = TRUE AND status = 'scheduled' AND start_date <= $1
	`

	result, err := r.q.Exec(ctx, query, now.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to activate contest: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// StartVerification transitions the active contest from active to
// verification_in_progress. When requireExpired is set, the transition only
// fires once the end date has passed (the time-triggered path); the admin
// path passes false to force it.
func (r *ContestRepository) StartVerification(ctx context.Context, requireExpired bool, now time.Time) (bool, error) {
	query := `
		UPDATE contest_settings
		SET status = 'verification_in_progress', verification_started_at = NOW(), updated_at = NOW()
		WHERE is_active = TRUE AND status = 'active'
	`
	args := []any{}
	if requireExpired {
		query += ` AND end_date < $1`
		args = append(args, now.UTC())
	}

	result, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to start verification: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// CompleteVerification transitions the active contest out of verification.
// Returns whether the transition fired.
func (r *ContestRepository) CompleteVerification(ctx context.Context) (bool, error) {
	query := `
		UPDATE contest_settings
		SET status = 'completed', verification_completed_at = NOW(), updated_at = NOW()
		WHERE is_active = TRUE AND status = 'verification_in_progress'
	`

	result, err := r.q.Exec(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to complete verification: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// SetResultsAnnounced flips the one-way results flag on a completed contest.
// Returns whether the flip fired; an already-set flag does not fire.
func (r *ContestRepository) SetResultsAnnounced(ctx context.Context) (bool, error) {
	query := `
		UPDATE contest_settings
		SET results_announced = TRUE, updated_at = NOW()
		WHERE is_active = TRUE AND status = 'completed' AND results_announced = FALSE
	`

	result, err := r.q.Exec(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to announce results: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
