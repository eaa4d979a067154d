package service

import (
	"context"
	"time"

	"contestbot/events"
	"contestbot/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByReferralCode(ctx context.Context, referralCode string) (*models.User, error) {
	args := m.Called(ctx, referralCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, telegramID int64, username, firstName string, referredBy *int64) (*models.User, error) {
	args := m.Called(ctx, telegramID, username, firstName, referredBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetReferredBy(ctx context.Context, telegramID, referrerTelegramID int64) error {
	args := m.Called(ctx, telegramID, referrerTelegramID)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementInvites(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) GetTopByInvites(ctx context.Context, limit int) ([]*models.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) RecalculateInviteCounts(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUserRepository) AssignFinalPositions(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockReferralRepository is a mock implementation of ReferralRepository
type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) CreatePending(ctx context.Context, referrerTelegramID, referredTelegramID int64) (*models.Referral, error) {
	args := m.Called(ctx, referrerTelegramID, referredTelegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Referral), args.Error(1)
}

func (m *MockReferralRepository) GetPendingByReferred(ctx context.Context, referredTelegramID int64) (*models.Referral, error) {
	args := m.Called(ctx, referredTelegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Referral), args.Error(1)
}

func (m *MockReferralRepository) Complete(ctx context.Context, referrerTelegramID, referredTelegramID int64) (bool, error) {
	args := m.Called(ctx, referrerTelegramID, referredTelegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) Invalidate(ctx context.Context, referrerTelegramID, referredTelegramID int64) (bool, error) {
	args := m.Called(ctx, referrerTelegramID, referredTelegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) GetAllCompleted(ctx context.Context) ([]*models.Referral, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Referral), args.Error(1)
}

func (m *MockReferralRepository) CountByStatus(ctx context.Context, status models.ReferralStatus) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

// MockContestRepository is a mock implementation of ContestRepository
type MockContestRepository struct {
	mock.Mock
}

func (m *MockContestRepository) GetActive(ctx context.Context) (*models.Contest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contest), args.Error(1)
}

func (m *MockContestRepository) Create(ctx context.Context, contest *models.Contest) error {
	args := m.Called(ctx, contest)
	return args.Error(0)
}

func (m *MockContestRepository) Activate(ctx context.Context, now time.Time) (bool, error) {
	args := m.Called(ctx, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockContestRepository) StartVerification(ctx context.Context, requireExpired bool, now time.Time) (bool, error) {
	args := m.Called(ctx, requireExpired, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockContestRepository) CompleteVerification(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockContestRepository) SetResultsAnnounced(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockMembershipChecker is a mock implementation of MembershipChecker
type MockMembershipChecker struct {
	mock.Mock
}

func (m *MockMembershipChecker) IsChannelMember(ctx context.Context, channelID, telegramID int64) (bool, error) {
	args := m.Called(ctx, channelID, telegramID)
	return args.Bool(0), args.Error(1)
}

// MockOperatorNotifier is a mock implementation of OperatorNotifier
type MockOperatorNotifier struct {
	mock.Mock
}

func (m *MockOperatorNotifier) NotifyOperator(ctx context.Context, text string) {
	m.Called(ctx, text)
}

// MockBroadcastSender is a mock implementation of BroadcastSender
type MockBroadcastSender struct {
	mock.Mock
}

func (m *MockBroadcastSender) SendResultsAnnouncement(ctx context.Context, telegramID int64, contest *models.Contest) error {
	args := m.Called(ctx, telegramID, contest)
	return args.Error(0)
}

// MockUnitOfWork is a mock implementation of UnitOfWork backed by the
// repository mocks set on it
type MockUnitOfWork struct {
	mock.Mock
	userRepo     UserRepository
	referralRepo ReferralRepository
	contestRepo  ContestRepository
	eventBus     EventPublisher
}

// SetRepositories wires the repository mocks the unit of work hands out
func (m *MockUnitOfWork) SetRepositories(userRepo UserRepository, referralRepo ReferralRepository, contestRepo ContestRepository, eventBus EventPublisher) {
	m.userRepo = userRepo
	m.referralRepo = referralRepo
	m.contestRepo = contestRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) ReferralRepository() ReferralRepository {
	return m.referralRepo
}

func (m *MockUnitOfWork) ContestRepository() ContestRepository {
	return m.contestRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
