package service

import (
	"context"
	"time"

	"contestbot/events"
	"contestbot/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByTelegramID retrieves a user by their Telegram ID, nil if absent
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)

	// GetByReferralCode retrieves a user by their referral code, nil if absent
	GetByReferralCode(ctx context.Context, referralCode string) (*models.User, error)

	// Create creates a new user with a derived referral code
	Create(ctx context.Context, telegramID int64, username, firstName string, referredBy *int64) (*models.User, error)

	// SetReferredBy records which user referred the given user
	SetReferredBy(ctx context.Context, telegramID, referrerTelegramID int64) error

	// IncrementInvites adds one to a user's invite counter atomically
	IncrementInvites(ctx context.Context, telegramID int64) error

	// GetAll returns all registered users, oldest first
	GetAll(ctx context.Context) ([]*models.User, error)

	// GetTopByInvites returns the highest-scoring users in ranking order
	GetTopByInvites(ctx context.Context, limit int) ([]*models.User, error)

	// Count returns the number of registered users
	Count(ctx context.Context) (int, error)

	// RecalculateInviteCounts resets every invite counter from surviving
	// completed referrals
	RecalculateInviteCounts(ctx context.Context) error

	// AssignFinalPositions writes dense ranking positions 1..N
	AssignFinalPositions(ctx context.Context) error
}

// ReferralRepository defines the interface for referral edge data access
type ReferralRepository interface {
	// CreatePending inserts a pending edge, ErrDuplicateReferral if the
	// referred user already has one in any status
	CreatePending(ctx context.Context, referrerTelegramID, referredTelegramID int64) (*models.Referral, error)

	// GetPendingByReferred returns the pending edge for a referred user, nil if none
	GetPendingByReferred(ctx context.Context, referredTelegramID int64) (*models.Referral, error)

	// Complete flips a pending edge to completed; false when nothing fired
	Complete(ctx context.Context, referrerTelegramID, referredTelegramID int64) (bool, error)

	// Invalidate flips a completed edge to invalid; false when nothing fired
	Invalidate(ctx context.Context, referrerTelegramID, referredTelegramID int64) (bool, error)

	// GetAllCompleted returns every completed edge, oldest first
	GetAllCompleted(ctx context.Context) ([]*models.Referral, error)

	// CountByStatus returns the number of edges in the given status
	CountByStatus(ctx context.Context, status models.ReferralStatus) (int, error)
}

// ContestRepository defines the interface for contest data access
type ContestRepository interface {
	// GetActive returns the single active contest, nil if none is configured
	GetActive(ctx context.Context) (*models.Contest, error)

	// Create inserts a contest row
	Create(ctx context.Context, contest *models.Contest) error

	// Activate fires the scheduled -> active transition once the start date
	// has passed
	Activate(ctx context.Context, now time.Time) (bool, error)

	// StartVerification fires the active -> verification_in_progress
	// transition, optionally requiring the end date to have passed
	StartVerification(ctx context.Context, requireExpired bool, now time.Time) (bool, error)

	// CompleteVerification fires the verification_in_progress -> completed
	// transition
	CompleteVerification(ctx context.Context) (bool, error)

	// SetResultsAnnounced flips the one-way results flag on a completed contest
	SetResultsAnnounced(ctx context.Context) (bool, error)
}

// ContestService defines the interface for contest lifecycle operations
type ContestService interface {
	// GetCurrent returns the active contest or ErrNotFound
	GetCurrent(ctx context.Context) (*models.Contest, error)

	// ActivateIfDue transitions a scheduled contest whose start date has
	// passed to active. Returns whether the transition fired.
	ActivateIfDue(ctx context.Context) (bool, error)

	// BeginVerificationIfExpired transitions an active contest whose end date
	// has passed to verification_in_progress. Returns whether it fired.
	BeginVerificationIfExpired(ctx context.Context) (bool, error)

	// ForceBeginVerification transitions an active contest to
	// verification_in_progress regardless of the end date
	ForceBeginVerification(ctx context.Context) error

	// AnnounceResults flips the results flag on a completed contest
	AnnounceResults(ctx context.Context) (*models.Contest, error)
}

// ReferralService defines the interface for registration and referral operations
type ReferralService interface {
	// GetUser returns a user by Telegram ID, nil if not registered
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)

	// GetUserByReferralCode returns the owner of a referral code, nil if unknown
	GetUserByReferralCode(ctx context.Context, code string) (*models.User, error)

	// RegisterUser creates a user without a referral edge
	RegisterUser(ctx context.Context, telegramID int64, username, firstName string) (*models.User, error)

	// BeginReferredRegistration creates a user plus a pending edge from the
	// owner of the given referral code, in one transaction
	BeginReferredRegistration(ctx context.Context, telegramID int64, username, firstName, referralCode string) (*models.User, error)

	// CreatePendingReferral records a pending edge for an already registered
	// referred user
	CreatePendingReferral(ctx context.Context, referrerTelegramID, referredTelegramID int64) (*models.Referral, error)

	// GetPendingReferral returns the pending edge for a referred user, nil if none
	GetPendingReferral(ctx context.Context, referredTelegramID int64) (*models.Referral, error)

	// CompleteReferral flips the pending edge to completed and credits the
	// referrer, in one transaction
	CompleteReferral(ctx context.Context, referrerTelegramID, referredTelegramID int64) error

	// InvalidateReferral flips a completed edge to invalid
	InvalidateReferral(ctx context.Context, referrerTelegramID, referredTelegramID int64) error
}

// VerificationService defines the interface for the post-contest audit
type VerificationService interface {
	// Run re-checks every completed referral, recomputes scores and assigns
	// final positions, then completes the contest
	Run(ctx context.Context) (*VerificationSummary, error)
}

// BroadcastService defines the interface for results fan-out
type BroadcastService interface {
	// BroadcastResults sends the results announcement to every registered user
	BroadcastResults(ctx context.Context, contest *models.Contest) (*BroadcastSummary, error)
}

// MembershipChecker reports whether a user is currently a member of the
// contest channel
type MembershipChecker interface {
	IsChannelMember(ctx context.Context, channelID, telegramID int64) (bool, error)
}

// OperatorNotifier delivers progress and summary messages to the operator
type OperatorNotifier interface {
	NotifyOperator(ctx context.Context, text string)
}

// BroadcastSender delivers the results announcement to a single user
type BroadcastSender interface {
	SendResultsAnnouncement(ctx context.Context, telegramID int64, contest *models.Contest) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	ReferralRepository() ReferralRepository
	ContestRepository() ContestRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
