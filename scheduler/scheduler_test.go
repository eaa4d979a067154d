package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"contestbot/models"
	"contestbot/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockContestService struct {
	mock.Mock
}

func (m *mockContestService) GetCurrent(ctx context.Context) (*models.Contest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contest), args.Error(1)
}

func (m *mockContestService) ActivateIfDue(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockContestService) BeginVerificationIfExpired(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockContestService) ForceBeginVerification(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockContestService) AnnounceResults(ctx context.Context) (*models.Contest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contest), args.Error(1)
}

type mockVerificationService struct {
	mock.Mock
}

func (m *mockVerificationService) Run(ctx context.Context) (*service.VerificationSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerificationSummary), args.Error(1)
}

func TestScheduler_Tick_QuietWhenNothingDue(t *testing.T) {
	ctx := context.Background()

	contests := new(mockContestService)
	verification := new(mockVerificationService)
	notifier := new(service.MockOperatorNotifier)

	contests.On("ActivateIfDue", ctx).Return(false, nil)
	contests.On("BeginVerificationIfExpired", ctx).Return(false, nil)

	s := New(contests, verification, notifier, time.Hour)
	s.runTick(ctx)

	verification.AssertNotCalled(t, "Run", mock.Anything)
	notifier.AssertNotCalled(t, "NotifyOperator", mock.Anything, mock.Anything)
}

func TestScheduler_Tick_ActivationNotifiesOperator(t *testing.T) {
	ctx := context.Background()

	contests := new(mockContestService)
	verification := new(mockVerificationService)
	notifier := new(service.MockOperatorNotifier)

	contests.On("ActivateIfDue", ctx).Return(true, nil)
	contests.On("BeginVerificationIfExpired", ctx).Return(false, nil)
	notifier.On("NotifyOperator", ctx, mock.AnythingOfType("string")).Return()

	s := New(contests, verification, notifier, time.Hour)
	s.runTick(ctx)

	notifier.AssertExpectations(t)
	verification.AssertNotCalled(t, "Run", mock.Anything)
}

func TestScheduler_Tick_ExpiryRunsVerification(t *testing.T) {
	ctx := context.Background()

	contests := new(mockContestService)
	verification := new(mockVerificationService)
	notifier := new(service.MockOperatorNotifier)

	contests.On("ActivateIfDue", ctx).Return(false, nil)
	contests.On("BeginVerificationIfExpired", ctx).Return(true, nil)
	verification.On("Run", ctx).Return(&service.VerificationSummary{Checked: 2, Verified: 2}, nil)

	s := New(contests, verification, notifier, time.Hour)
	s.runTick(ctx)

	verification.AssertExpectations(t)
}

func TestScheduler_Tick_ErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()

	contests := new(mockContestService)
	verification := new(mockVerificationService)
	notifier := new(service.MockOperatorNotifier)

	contests.On("ActivateIfDue", ctx).Return(false, errors.New("database down"))
	contests.On("BeginVerificationIfExpired", ctx).Return(false, errors.New("database down"))

	s := New(contests, verification, notifier, time.Hour)
	assert.NotPanics(t, func() { s.runTick(ctx) })
}

func TestScheduler_Tick_VerificationFailureNotifiesOperator(t *testing.T) {
	ctx := context.Background()

	contests := new(mockContestService)
	verification := new(mockVerificationService)
	notifier := new(service.MockOperatorNotifier)

	contests.On("ActivateIfDue", ctx).Return(false, nil)
	contests.On("BeginVerificationIfExpired", ctx).Return(true, nil)
	verification.On("Run", ctx).Return(nil, errors.New("telegram unavailable"))
	notifier.On("NotifyOperator", ctx, mock.AnythingOfType("string")).Return()

	s := New(contests, verification, notifier, time.Hour)
	s.runTick(ctx)

	notifier.AssertExpectations(t)
}
