package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contestbot/events"
	"contestbot/models"
	log "github.com/sirupsen/logrus"
)

const (
	// checkPauseEvery is how many membership checks happen between pauses
	checkPauseEvery = 25
	// checkProgressEvery is how many checks happen between operator progress reports
	checkProgressEvery = 50
	// checkPause is how long to sleep between check batches
	checkPause = time.Second
)

// VerificationSummary reports the outcome of a verification pass
type VerificationSummary struct {
	Checked     int
	Verified    int
	Invalidated int
}

// ValidityRate is the fraction of checked referrals that survived, 0 when
// nothing was checked
func (s *VerificationSummary) ValidityRate() float64 {
	if s.Checked == 0 {
		return 0
	}
	return float64(s.Verified) / float64(s.Checked)
}

// verificationService implements the VerificationService interface
type verificationService struct {
	uowFactory UnitOfWorkFactory
	membership MembershipChecker
	notifier   OperatorNotifier
}

// NewVerificationService creates a new verification service
func NewVerificationService(uowFactory UnitOfWorkFactory, membership MembershipChecker, notifier OperatorNotifier) VerificationService {
	return &verificationService{
		uowFactory: uowFactory,
		membership: membership,
		notifier:   notifier,
	}
}

// Run re-checks every completed referral against current channel membership,
// recomputes invite counts from the surviving edges, assigns final positions
// and completes the contest. Safe to rerun after a crash: it only ever loads
// edges still marked completed.
func (s *verificationService) Run(ctx context.Context) (*VerificationSummary, error) {
	contest, referrals, err := s.loadWork(ctx)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"contest":   contest.Name,
		"referrals": len(referrals),
	}).Info("Starting verification pass")
	s.notifier.NotifyOperator(ctx, fmt.Sprintf("Verification started: %d referrals to check", len(referrals)))

	summary := &VerificationSummary{}
	for i, ref := range referrals {
		member, err := s.membership.IsChannelMember(ctx, contest.ChannelID, ref.ReferredTelegramID)
		if err != nil {
			// Treat an unanswerable check as a failed one
			log.WithFields(log.Fields{
				"referred": ref.ReferredTelegramID,
				"error":    err,
			}).Warn("Membership check failed, invalidating referral")
			member = false
		}

		summary.Checked++
		if member {
			summary.Verified++
		} else {
			if err := s.invalidate(ctx, ref); err != nil {
				return nil, err
			}
			summary.Invalidated++
		}

		done := i + 1
		if done%checkProgressEvery == 0 {
			s.notifier.NotifyOperator(ctx, fmt.Sprintf("Verification progress: %d/%d checked, %d invalidated", done, len(referrals), summary.Invalidated))
		}
		if done%checkPauseEvery == 0 && done < len(referrals) {
			time.Sleep(checkPause)
		}
	}

	if err := s.finalize(ctx, contest); err != nil {
		return nil, err
	}

	if err := s.reportSummary(ctx, summary); err != nil {
		log.Errorf("Failed to report verification summary: %v", err)
	}

	return summary, nil
}

// loadWork guards on the contest status and loads the edges to check
func (s *verificationService) loadWork(ctx context.Context) (*models.Contest, []*models.Referral, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	contest, err := uow.ContestRepository().GetActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get active contest: %w", err)
	}
	if contest == nil {
		return nil, nil, ErrNotFound
	}
	if contest.Status != models.ContestStatusVerificationInProgress {
		return nil, nil, fmt.Errorf("contest is %s: %w", contest.Status, ErrWrongContestStatus)
	}

	referrals, err := uow.ReferralRepository().GetAllCompleted(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load completed referrals: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return contest, referrals, nil
}

// invalidate flips one edge in its own small transaction so a crash mid-pass
// keeps all prior decisions
func (s *verificationService) invalidate(ctx context.Context, ref *models.Referral) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := uow.ReferralRepository().Invalidate(ctx, ref.ReferrerTelegramID, ref.ReferredTelegramID); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// finalize recomputes scores from surviving edges, assigns final positions
// and completes the contest, all in one transaction
func (s *verificationService) finalize(ctx context.Context, contest *models.Contest) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.UserRepository().RecalculateInviteCounts(ctx); err != nil {
		return err
	}
	if err := uow.UserRepository().AssignFinalPositions(ctx); err != nil {
		return err
	}

	fired, err := uow.ContestRepository().CompleteVerification(ctx)
	if err != nil {
		return err
	}
	if !fired {
		return fmt.Errorf("contest left verification concurrently: %w", ErrWrongContestStatus)
	}

	uow.EventBus().Publish(events.ContestStateChangeEvent{
		ContestID: contest.ID,
		OldStatus: models.ContestStatusVerificationInProgress,
		NewStatus: models.ContestStatusCompleted,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("contest", contest.Name).Info("Verification complete, contest completed")
	return nil
}

// reportSummary sends the final standings and verification totals to the operator
func (s *verificationService) reportSummary(ctx context.Context, summary *VerificationSummary) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	top, err := uow.UserRepository().GetTopByInvites(ctx, 5)
	if err != nil {
		return err
	}
	total, err := uow.UserRepository().Count(ctx)
	if err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Verification finished: %d checked, %d verified, %d invalidated (%.0f%% valid)\n",
		summary.Checked, summary.Verified, summary.Invalidated, summary.ValidityRate()*100)
	fmt.Fprintf(&b, "Participants: %d\nTop 5:\n", total)
	for i, u := range top {
		fmt.Fprintf(&b, "%d. %s - %d invites\n", i+1, u.DisplayName(), u.TotalInvites)
	}

	s.notifier.NotifyOperator(ctx, b.String())
	return nil
}
