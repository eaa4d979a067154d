package service

import (
	"context"
	"fmt"
	"time"

	"contestbot/models"
	log "github.com/sirupsen/logrus"
)

const (
	// sendPauseEvery is how many sends happen between pauses
	sendPauseEvery = 30
	// sendProgressEvery is how many sends happen between operator progress reports
	sendProgressEvery = 100
	// sendPause is how long to sleep between send batches
	sendPause = time.Second
)

// BroadcastSummary reports the outcome of a results broadcast
type BroadcastSummary struct {
	Total  int
	Sent   int
	Failed int
}

// SuccessRate is the fraction of recipients reached, 0 when there were none
func (s *BroadcastSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Sent) / float64(s.Total)
}

// broadcastService implements the BroadcastService interface
type broadcastService struct {
	uowFactory UnitOfWorkFactory
	sender     BroadcastSender
	notifier   OperatorNotifier
}

// NewBroadcastService creates a new broadcast service
func NewBroadcastService(uowFactory UnitOfWorkFactory, sender BroadcastSender, notifier OperatorNotifier) BroadcastService {
	return &broadcastService{
		uowFactory: uowFactory,
		sender:     sender,
		notifier:   notifier,
	}
}

// BroadcastResults fans the results announcement out to every registered
// user. Individual delivery failures are counted and logged, never aborting
// the run; sends are throttled to stay under Telegram's rate limits.
func (s *broadcastService) BroadcastResults(ctx context.Context, contest *models.Contest) (*BroadcastSummary, error) {
	users, err := s.loadRecipients(ctx)
	if err != nil {
		return nil, err
	}

	summary := &BroadcastSummary{Total: len(users)}
	if len(users) == 0 {
		s.notifier.NotifyOperator(ctx, "Results broadcast: no registered users, nothing to send")
		return summary, nil
	}

	log.WithFields(log.Fields{
		"contest":    contest.Name,
		"recipients": len(users),
	}).Info("Starting results broadcast")
	s.notifier.NotifyOperator(ctx, fmt.Sprintf("Results broadcast started: %d recipients", len(users)))

	for i, user := range users {
		if err := s.sender.SendResultsAnnouncement(ctx, user.TelegramID, contest); err != nil {
			log.WithFields(log.Fields{
				"telegramID": user.TelegramID,
				"error":      err,
			}).Warn("Failed to deliver results announcement")
			summary.Failed++
		} else {
			summary.Sent++
		}

		done := i + 1
		if done%sendProgressEvery == 0 {
			s.notifier.NotifyOperator(ctx, fmt.Sprintf("Broadcast progress: %d/%d sent, %d failed", done, len(users), summary.Failed))
		}
		if done%sendPauseEvery == 0 && done < len(users) {
			time.Sleep(sendPause)
		}
	}

	s.notifier.NotifyOperator(ctx, fmt.Sprintf(
		"Results broadcast finished: %d/%d delivered (%.0f%% success), %d failed",
		summary.Sent, summary.Total, summary.SuccessRate()*100, summary.Failed))

	return summary, nil
}

func (s *broadcastService) loadRecipients(ctx context.Context) ([]*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	users, err := uow.UserRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load broadcast recipients: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return users, nil
}
