package service

import (
	"context"
	"fmt"

	"contestbot/events"
	"contestbot/models"
	log "github.com/sirupsen/logrus"
)

// referralService implements the ReferralService interface
type referralService struct {
	uowFactory UnitOfWorkFactory
}

// NewReferralService creates a new referral service
func NewReferralService(uowFactory UnitOfWorkFactory) ReferralService {
	return &referralService{uowFactory: uowFactory}
}

// GetUser returns a user by Telegram ID, nil if not registered
func (s *referralService) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// GetUserByReferralCode returns the owner of a referral code, nil if unknown
func (s *referralService) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// RegisterUser creates a user without a referral edge
func (s *referralService) RegisterUser(ctx context.Context, telegramID int64, username, firstName string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := s.createUser(ctx, uow, telegramID, username, firstName, nil)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// BeginReferredRegistration creates the referred user and the pending edge in
// one transaction, so an interrupted join never leaves a user without their
// edge or an edge without its user
func (s *referralService) BeginReferredRegistration(ctx context.Context, telegramID int64, username, firstName, referralCode string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	referrer, err := uow.UserRepository().GetByReferralCode(ctx, referralCode)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, fmt.Errorf("referral code %s: %w", referralCode, ErrNotFound)
	}
	if referrer.TelegramID == telegramID {
		return nil, fmt.Errorf("self-referral for user %d: %w", telegramID, ErrDuplicateReferral)
	}

	user, err := s.createUser(ctx, uow, telegramID, username, firstName, &referrer.TelegramID)
	if err != nil {
		return nil, err
	}

	if _, err := uow.ReferralRepository().CreatePending(ctx, referrer.TelegramID, telegramID); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// CreatePendingReferral records a pending edge for an already registered
// referred user
func (s *referralService) CreatePendingReferral(ctx context.Context, referrerTelegramID, referredTelegramID int64) (*models.Referral, error) {
	if referrerTelegramID == referredTelegramID {
		return nil, fmt.Errorf("self-referral for user %d: %w", referredTelegramID, ErrDuplicateReferral)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ref, err := uow.ReferralRepository().CreatePending(ctx, referrerTelegramID, referredTelegramID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return ref, nil
}

// GetPendingReferral returns the pending edge for a referred user, nil if none
func (s *referralService) GetPendingReferral(ctx context.Context, referredTelegramID int64) (*models.Referral, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ref, err := uow.ReferralRepository().GetPendingByReferred(ctx, referredTelegramID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return ref, nil
}

// CompleteReferral flips the pending edge to completed, records the referrer
// on the referred user and credits the referrer's counter, all in one
// transaction. No reader ever sees the flip without the credit.
func (s *referralService) CompleteReferral(ctx context.Context, referrerTelegramID, referredTelegramID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	fired, err := uow.ReferralRepository().Complete(ctx, referrerTelegramID, referredTelegramID)
	if err != nil {
		return err
	}
	if !fired {
		return fmt.Errorf("no pending referral %d -> %d: %w", referrerTelegramID, referredTelegramID, ErrNotFound)
	}

	if err := uow.UserRepository().SetReferredBy(ctx, referredTelegramID, referrerTelegramID); err != nil {
		return err
	}

	if err := uow.UserRepository().IncrementInvites(ctx, referrerTelegramID); err != nil {
		return err
	}

	uow.EventBus().Publish(events.ReferralCompletedEvent{
		ReferrerTelegramID: referrerTelegramID,
		ReferredTelegramID: referredTelegramID,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"referrer": referrerTelegramID,
		"referred": referredTelegramID,
	}).Info("Referral completed")

	return nil
}

// InvalidateReferral flips a completed edge to invalid. The referrer's live
// counter is not decremented here; the verification recompute is the source
// of truth for final scores.
func (s *referralService) InvalidateReferral(ctx context.Context, referrerTelegramID, referredTelegramID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	fired, err := uow.ReferralRepository().Invalidate(ctx, referrerTelegramID, referredTelegramID)
	if err != nil {
		return err
	}
	if !fired {
		return fmt.Errorf("no completed referral %d -> %d: %w", referrerTelegramID, referredTelegramID, ErrNotFound)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// createUser checks for an existing identity and inserts the user inside the
// caller's unit of work
func (s *referralService) createUser(ctx context.Context, uow UnitOfWork, telegramID int64, username, firstName string, referredBy *int64) (*models.User, error) {
	existing, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("user %d: %w", telegramID, ErrUserExists)
	}

	user, err := uow.UserRepository().Create(ctx, telegramID, username, firstName, referredBy)
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.UserRegisteredEvent{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		ReferredBy: referredBy,
	})

	return user, nil
}
