package repository

import (
	"context"
	"errors"
	"fmt"

	"contestbot/database"
	"contestbot/models"
	"contestbot/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const referralColumns = `id, referrer_telegram_id, referred_telegram_id, status, completed_at, created_at`

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// ReferralRepository implements the service.ReferralRepository interface
type ReferralRepository struct {
	q queryable
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db *database.DB) *ReferralRepository {
	return &ReferralRepository{q: db.Pool}
}

// newReferralRepositoryWithTx creates a new referral repository with a transaction
func newReferralRepositoryWithTx(tx queryable) *ReferralRepository {
	return &ReferralRepository{q: tx}
}

func scanReferral(row pgx.Row) (*models.Referral, error) {
	var ref models.Referral
	err := row.Scan(
		&ref.ID,
		&ref.ReferrerTelegramID,
		&ref.ReferredTelegramID,
		&ref.Status,
		&ref.CompletedAt,
		&ref.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// CreatePending inserts a new pending referral edge. The unique index on the
// referred identity is the arbiter for first-claim-wins: a second edge for
// the same referred user fails with service.ErrDuplicateReferral whatever the
// existing edge's status.
func (r *ReferralRepository) CreatePending(ctx context.Context, referrerTelegramID, referredTelegramID int64) (*models.Referral, error) {
	query := `
		INSERT INTO referrals (referrer_telegram_id, referred_telegram_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING ` + referralColumns

	ref, err := scanReferral(r.q.QueryRow(ctx, query, referrerTelegramID, referredTelegramID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("referral for user %d: %w", referredTelegramID, service.ErrDuplicateReferral)
		}
		return nil, fmt.Errorf("failed to create pending referral %d -> %d: %w", referrerTelegramID, referredTelegramID, err)
	}

	return ref, nil
}

// GetPendingByReferred returns the pending referral for the given referred
// user, or nil if there is none
func (r *ReferralRepository) GetPendingByReferred(ctx context.Context, referredTelegramID int64) (*models.Referral, error) {
	query := `
		SELECT ` + referralColumns + `
		FROM referrals
		WHERE referred_telegram_id = $1 AND status = 'pending'
	`

	ref, err := scanReferral(r.q.QueryRow(ctx, query, referredTelegramID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending referral for user %d: %w", referredTelegramID, err)
	}

	return ref, nil
}

// Complete flips a pending edge to completed and stamps the completion time.
// Returns false when no pending edge exists for the exact pair, which covers
// both missing edges and racing double completions.
func (r *ReferralRepository) Complete(ctx context.Context, referrerTelegramID, referredTelegramID int64) (bool, error) {
	query := `
		UPDATE referrals
		SET status = 'completed', completed_at = NOW()
		WHERE referrer_telegram_id = $1
		  AND referred_telegram_id = $2
		  AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, referrerTelegramID, referredTelegramID)
	if err != nil {
		return false, fmt.Errorf("failed to complete referral %d -> %d: %w", referrerTelegramID, referredTelegramID, err)
	}

	return result.RowsAffected() > 0, nil
}

// Invalidate flips a completed edge to invalid. Edges never leave the invalid
// status, and only completed edges can be invalidated.
func (r *ReferralRepository) Invalidate(ctx context.Context, referrerTelegramID, referredTelegramID int64) (bool, error) {
	query := `
		UPDATE referrals
		SET status = 'invalid'
		WHERE referrer_telegram_id = $1
		  AND referred_telegram_id = $2
		  AND status = 'completed'
	`

	result, err := r.q.Exec(ctx, query, referrerTelegramID, referredTelegramID)
	if err != nil {
		return false, fmt.Errorf("failed to invalidate referral %d -> %d: %w", referrerTelegramID, referredTelegramID, err)
	}

	return result.RowsAffected() > 0, nil
}

// GetAllCompleted returns every completed referral edge, oldest first
func (r *ReferralRepository) GetAllCompleted(ctx context.Context) ([]*models.Referral, error) {
	query := `
		SELECT ` + referralColumns + `
		FROM referrals
		WHERE status = 'completed'
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed referrals: %w", err)
	}
	defer rows.Close()

	var referrals []*models.Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		referrals = append(referrals, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate referrals: %w", err)
	}

	return referrals, nil
}

// CountByStatus returns the number of referral edges in the given status
func (r *ReferralRepository) CountByStatus(ctx context.Context, status models.ReferralStatus) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM referrals WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count referrals with status %s: %w", status, err)
	}
	return count, nil
}
