package repository

import (
	"context"
	"fmt"

	"contestbot/database"
	"contestbot/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryable is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories
// work inside and outside a unit of work
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `telegram_id, username, first_name, referral_code, referred_by, total_invites, final_position, created_at, updated_at`

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.TotalInvites,
		&user.FinalPosition,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByTelegramID retrieves a user by their Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, telegramID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by telegram ID %d: %w", telegramID, err)
	}

	return user, nil
}

// GetByReferralCode retrieves a user by their referral code
func (r *UserRepository) GetByReferralCode(ctx context.Context, referralCode string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, referralCode))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by referral code %s: %w", referralCode, err)
	}

	return user, nil
}

// Create creates a new user. The referral code is derived deterministically
// from the Telegram ID; the primary key refuses duplicate identities.
func (r *UserRepository) Create(ctx context.Context, telegramID int64, username, firstName string, referredBy *int64) (*models.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, first_name, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, telegramID, username, firstName, models.ReferralCodeFor(telegramID), referredBy))
	if err != nil {
		return nil, fmt.Errorf("failed to create user with telegram ID %d: %w", telegramID, err)
	}

	return user, nil
}

// SetReferredBy records which user referred the given user
func (r *UserRepository) SetReferredBy(ctx context.Context, telegramID, referrerTelegramID int64) error {
	query := `
		UPDATE users
		SET referred_by = $1, updated_at = NOW()
		WHERE telegram_id = $2
	`

	result, err := r.q.Exec(ctx, query, referrerTelegramID, telegramID)
	if err != nil {
		return fmt.Errorf("failed to set referrer for user %d: %w", telegramID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user with telegram ID %d not found", telegramID)
	}

	return nil
}

// IncrementInvites adds one to a user's invite counter atomically
func (r *UserRepository) IncrementInvites(ctx context.Context, telegramID int64) error {
	query := `
		UPDATE users
		SET total_invites = total_invites + 1, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.q.Exec(ctx, query, telegramID)
	if err != nil {
		return fmt.Errorf("failed to increment invites for user %d: %w", telegramID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user with telegram ID %d not found", telegramID)
	}

	return nil
}

// GetAll returns all registered users, oldest first
func (r *UserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// GetTopByInvites returns the highest-scoring users in final ranking order
func (r *UserRepository) GetTopByInvites(ctx context.Context, limit int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY total_invites DESC, created_at ASC, telegram_id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// Count returns the number of registered users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// RecalculateInviteCounts resets every user's invite counter to the number of
// their surviving completed referrals. This supersedes the incrementally
// maintained counter after a verification pass.
func (r *UserRepository) RecalculateInviteCounts(ctx context.Context) error {
	query := `
		UPDATE users u
		SET total_invites = (
			SELECT COUNT(*)
			FROM referrals r
			WHERE r.referrer_telegram_id = u.telegram_id
			  AND r.status = 'completed'
		), updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to recalculate invite counts: %w", err)
	}

	return nil
}

// AssignFinalPositions ranks all users by invite count and writes dense
// positions 1..N. Ties break by earliest registration, then Telegram ID, so
// re-runs are deterministic.
func (r *UserRepository) AssignFinalPositions(ctx context.Context) error {
	query := `
		UPDATE users u
		SET final_position = ranked.position, updated_at = NOW()
		FROM (
			SELECT telegram_id,
			       ROW_NUMBER() OVER (ORDER BY total_invites DESC, created_at ASC, telegram_id ASC) AS position
			FROM users
		) ranked
		WHERE u.telegram_id = ranked.telegram_id
	`

	if _, err := r.q.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to assign final positions: %w", err)
	}

	return nil
}
