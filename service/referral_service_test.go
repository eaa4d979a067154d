package service

import (
	"context"
	"errors"
	"testing"

	"contestbot/events"
	"contestbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestReferralService_RegisterUser_New(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockEventBus := new(MockEventPublisher)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, mockEventBus)

	service := NewReferralService(mockFactory)

	newUser := &models.User{
		TelegramID:   123456,
		Username:     "newuser",
		FirstName:    "New",
		ReferralCode: "REF_123456",
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUserRepo.On("GetByTelegramID", ctx, int64(123456)).Return(nil, nil)
	mockUserRepo.On("Create", ctx, int64(123456), "newuser", "New", (*int64)(nil)).Return(newUser, nil)
	mockEventBus.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		ev, ok := e.(events.UserRegisteredEvent)
		return ok && ev.TelegramID == 123456 && ev.ReferredBy == nil
	})).Return()

	user, err := service.RegisterUser(ctx, 123456, "newuser", "New")

	assert.NoError(t, err)
	assert.Equal(t, newUser, user)
	mockUserRepo.AssertExpectations(t)
	mockEventBus.AssertExpectations(t)
}

func TestReferralService_RegisterUser_Duplicate(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockEventBus := new(MockEventPublisher)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, mockEventBus)

	service := NewReferralService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUserRepo.On("GetByTelegramID", ctx, int64(123456)).Return(&models.User{TelegramID: 123456}, nil)

	user, err := service.RegisterUser(ctx, 123456, "dupe", "Dupe")

	assert.ErrorIs(t, err, ErrUserExists)
	assert.Nil(t, user)
	mockUserRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockEventBus.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestReferralService_BeginReferredRegistration_Success(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockReferralRepo := new(MockReferralRepository)
	mockEventBus := new(MockEventPublisher)
	mockUoW.SetRepositories(mockUserRepo, mockReferralRepo, nil, mockEventBus)

	service := NewReferralService(mockFactory)

	referrer := &models.User{TelegramID: 111, ReferralCode: "REF_111"}
	referrerID := referrer.TelegramID
	newUser := &models.User{TelegramID: 222, ReferredBy: &referrerID}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUserRepo.On("GetByReferralCode", ctx, "REF_111").Return(referrer, nil)
	mockUserRepo.On("GetByTelegramID", ctx, int64(222)).Return(nil, nil)
	mockUserRepo.On("Create", ctx, int64(222), "joiner", "Joiner", &referrerID).Return(newUser, nil)
	mockReferralRepo.On("CreatePending", ctx, int64(111), int64(222)).Return(&models.Referral{
		ReferrerTelegramID: 111,
		ReferredTelegramID: 222,
		Status:             models.ReferralStatusPending,
	}, nil)
	mockEventBus.On("Publish", mock.AnythingOfType("events.UserRegisteredEvent")).Return()

	user, err := service.BeginReferredRegistration(ctx, 222, "joiner", "Joiner", "REF_111")

	assert.NoError(t, err)
	assert.Equal(t, newUser, user)
	mockUserRepo.AssertExpectations(t)
	mockReferralRepo.AssertExpectations(t)
}

func TestReferralService_BeginReferredRegistration_UnknownCode(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockReferralRepo := new(MockReferralRepository)
	mockUoW.SetRepositories(mockUserRepo, mockReferralRepo, nil, nil)

	service := NewReferralService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUserRepo.On("GetByReferralCode", ctx, "REF_999").Return(nil, nil)

	user, err := service.BeginReferredRegistration(ctx, 222, "joiner", "Joiner", "REF_999")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, user)
	mockReferralRepo.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything, mock.Anything)
}

func TestReferralService_BeginReferredRegistration_SelfReferral(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockReferralRepo := new(MockReferralRepository)
	mockUoW.SetRepositories(mockUserRepo, mockReferralRepo, nil, nil)

	service := NewReferralService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUserRepo.On("GetByReferralCode", ctx, "REF_111").Return(&models.User{TelegramID: 111}, nil)

	user, err := service.BeginReferredRegistration(ctx, 111, "self", "Self", "REF_111")

	assert.ErrorIs(t, err, ErrDuplicateReferral)
	assert.Nil(t, user)
	mockUserRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReferralService_CreatePendingReferral_Duplicate(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockReferralRepo := new(MockReferralRepository)
	mockUoW.SetRepositories(nil, mockReferralRepo, nil, nil)

	service := NewReferralService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockReferralRepo.On("CreatePending", ctx, int64(111), int64(222)).Return(nil, ErrDuplicateReferral)

	ref, err := service.CreatePendingReferral(ctx, 111, 222)

	assert.ErrorIs(t, err, ErrDuplicateReferral)
	assert.Nil(t, ref)
}

func TestReferralService_CompleteReferral_Success(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockReferralRepo := new(MockReferralRepository)
	mockEventBus := new(MockEventPublisher)
	mockUoW.SetRepositories(mockUserRepo, mockReferralRepo, nil, mockEventBus)

	service := NewReferralService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockReferralRepo.On("Complete", ctx, int64(111), int64(222)).Return(true, nil)
	mockUserRepo.On("SetReferredBy", ctx, int64(222), int64(111)).Return(nil)
	mockUserRepo.On("IncrementInvites", ctx, int64(111)).Return(nil)
	mockEventBus.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		ev, ok := e.(events.ReferralCompletedEvent)
		return ok && ev.ReferrerTelegramID == 111 && ev.ReferredTelegramID == 222
	})).Return()

	err := service.CompleteReferral(ctx, 111, 222)

	assert.NoError(t, err)
	mockReferralRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
	mockEventBus.AssertExpectations(t)
}

func TestReferralService_CompleteReferral_NoPendingEdge(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockReferralRepo := new(MockReferralRepository)
	mockEventBus := new(MockEventPublisher)
	mockUoW.SetRepositories(mockUserRepo, mockReferralRepo, nil, mockEventBus)

	service := NewReferralService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockReferralRepo.On("Complete", ctx, int64(111), int64(222)).Return(false, nil)

	err := service.CompleteReferral(ctx, 111, 222)

	assert.ErrorIs(t, err, ErrNotFound)
	mockUserRepo.AssertNotCalled(t, "IncrementInvites", mock.Anything, mock.Anything)
	mockEventBus.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestReferralService_CompleteReferral_IncrementFails(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockReferralRepo := new(MockReferralRepository)
	mockEventBus := new(MockEventPublisher)
	mockUoW.SetRepositories(mockUserRepo, mockReferralRepo, nil, mockEventBus)

	service := NewReferralService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockReferralRepo.On("Complete", ctx, int64(111), int64(222)).Return(true, nil)
	mockUserRepo.On("SetReferredBy", ctx, int64(222), int64(111)).Return(nil)
	mockUserRepo.On("IncrementInvites", ctx, int64(111)).Return(errors.New("database error"))

	err := service.CompleteReferral(ctx, 111, 222)

	assert.Error(t, err)
	// The whole unit of work rolls back, nothing is committed
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestReferralService_InvalidateReferral_NotFound(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockReferralRepo := new(MockReferralRepository)
	mockUoW.SetRepositories(nil, mockReferralRepo, nil, nil)

	service := NewReferralService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockReferralRepo.On("Invalidate", ctx, int64(111), int64(222)).Return(false, nil)

	err := service.InvalidateReferral(ctx, 111, 222)

	assert.ErrorIs(t, err, ErrNotFound)
}
