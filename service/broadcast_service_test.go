package service

import (
	"context"
	"errors"
	"testing"

	"contestbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBroadcastService_BroadcastResults_NoUsers(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockSender := new(MockBroadcastSender)
	mockNotifier := new(MockOperatorNotifier)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, nil)

	service := NewBroadcastService(mockFactory, mockSender, mockNotifier)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUserRepo.On("GetAll", ctx).Return([]*models.User{}, nil)
	mockNotifier.On("NotifyOperator", ctx, mock.MatchedBy(func(text string) bool {
		return text == "Results broadcast: no registered users, nothing to send"
	})).Return()

	summary, err := service.BroadcastResults(ctx, activeContest(models.ContestStatusCompleted))

	assert.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, float64(0), summary.SuccessRate())
	mockSender.AssertNotCalled(t, "SendResultsAnnouncement", mock.Anything, mock.Anything, mock.Anything)
	mockNotifier.AssertExpectations(t)
}

func TestBroadcastService_BroadcastResults_CountsFailures(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockSender := new(MockBroadcastSender)
	mockNotifier := new(MockOperatorNotifier)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, nil)

	service := NewBroadcastService(mockFactory, mockSender, mockNotifier)

	contest := activeContest(models.ContestStatusCompleted)
	users := []*models.User{
		{TelegramID: 1},
		{TelegramID: 2},
		{TelegramID: 3},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUserRepo.On("GetAll", ctx).Return(users, nil)
	mockNotifier.On("NotifyOperator", ctx, mock.AnythingOfType("string")).Return()
	mockSender.On("SendResultsAnnouncement", ctx, int64(1), contest).Return(nil)
	// User 2 has blocked the bot
	mockSender.On("SendResultsAnnouncement", ctx, int64(2), contest).Return(errors.New("forbidden: bot was blocked by the user"))
	mockSender.On("SendResultsAnnouncement", ctx, int64(3), contest).Return(nil)

	summary, err := service.BroadcastResults(ctx, contest)

	assert.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, 0.666, summary.SuccessRate(), 0.01)
	mockSender.AssertExpectations(t)
}

func TestBroadcastService_BroadcastResults_AllDelivered(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockSender := new(MockBroadcastSender)
	mockNotifier := new(MockOperatorNotifier)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, nil)

	service := NewBroadcastService(mockFactory, mockSender, mockNotifier)

	contest := activeContest(models.ContestStatusCompleted)
	users := []*models.User{{TelegramID: 1}, {TelegramID: 2}}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUserRepo.On("GetAll", ctx).Return(users, nil)
	mockNotifier.On("NotifyOperator", ctx, mock.AnythingOfType("string")).Return()
	mockSender.On("SendResultsAnnouncement", ctx, mock.AnythingOfType("int64"), contest).Return(nil)

	summary, err := service.BroadcastResults(ctx, contest)

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, float64(1), summary.SuccessRate())
}
