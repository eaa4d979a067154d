package service

import (
	"context"
	"fmt"
	"time"

	"contestbot/events"
	"contestbot/models"
)

// contestService implements the ContestService interface
type contestService struct {
	uowFactory UnitOfWorkFactory
}

// NewContestService creates a new contest service
func NewContestService(uowFactory UnitOfWorkFactory) ContestService {
	return &contestService{uowFactory: uowFactory}
}

// GetCurrent returns the active contest or ErrNotFound
func (s *contestService) GetCurrent(ctx context.Context) (*models.Contest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	contest, err := uow.ContestRepository().GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active contest: %w", err)
	}
	if contest == nil {
		return nil, ErrNotFound
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return contest, nil
}

// ActivateIfDue transitions a scheduled contest to active once its start date
// has passed. Returns whether the transition fired; a no-op tick is not an
// error.
func (s *contestService) ActivateIfDue(ctx context.Context) (bool, error) {
	return s.transition(ctx, models.ContestStatusActive, func(ctx context.Context, repo ContestRepository) (bool, error) {
		return repo.Activate(ctx, time.Now().UTC())
	})
}

// BeginVerificationIfExpired transitions an active contest to
// verification_in_progress once its end date has passed
func (s *contestService) BeginVerificationIfExpired(ctx context.Context) (bool, error) {
	return s.transition(ctx, models.ContestStatusVerificationInProgress, func(ctx context.Context, repo ContestRepository) (bool, error) {
		return repo.StartVerification(ctx, true, time.Now().UTC())
	})
}

// ForceBeginVerification is the admin path: same transition, no time check.
// Fails with ErrWrongContestStatus when the contest is not active.
func (s *contestService) ForceBeginVerification(ctx context.Context) error {
	fired, err := s.transition(ctx, models.ContestStatusVerificationInProgress, func(ctx context.Context, repo ContestRepository) (bool, error) {
		return repo.StartVerification(ctx, false, time.Now().UTC())
	})
	if err != nil {
		return err
	}
	if !fired {
		return ErrWrongContestStatus
	}
	return nil
}

// AnnounceResults flips the one-way results flag on a completed contest and
// returns the contest for the caller to broadcast
func (s *contestService) AnnounceResults(ctx context.Context) (*models.Contest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	contest, err := uow.ContestRepository().GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active contest: %w", err)
	}
	if contest == nil {
		return nil, ErrNotFound
	}
	if contest.Status != models.ContestStatusCompleted {
		return nil, ErrWrongContestStatus
	}
	if contest.ResultsAnnounced {
		return nil, ErrAlreadyAnnounced
	}

	fired, err := uow.ContestRepository().SetResultsAnnounced(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to announce results: %w", err)
	}
	if !fired {
		// Lost a race with a concurrent announce
		return nil, ErrAlreadyAnnounced
	}
	contest.ResultsAnnounced = true

	uow.EventBus().Publish(events.ResultsAnnouncedEvent{
		ContestID:   contest.ID,
		ContestName: contest.Name,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return contest, nil
}

// transition runs a guarded status update inside a unit of work and publishes
// a state change event when it fires
func (s *contestService) transition(ctx context.Context, newStatus models.ContestStatus, update func(context.Context, ContestRepository) (bool, error)) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	contest, err := uow.ContestRepository().GetActive(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get active contest: %w", err)
	}
	if contest == nil {
		return false, nil
	}

	fired, err := update(ctx, uow.ContestRepository())
	if err != nil {
		return false, err
	}

	if fired {
		uow.EventBus().Publish(events.ContestStateChangeEvent{
			ContestID: contest.ID,
			OldStatus: contest.Status,
			NewStatus: newStatus,
		})
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return fired, nil
}
