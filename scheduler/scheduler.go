package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contestbot/service"
	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// Scheduler drives the contest lifecycle on a periodic tick: activating a
// scheduled contest once its start date passes and kicking off verification
// once an active contest expires.
type Scheduler struct {
	contestService      service.ContestService
	verificationService service.VerificationService
	notifier            service.OperatorNotifier
	interval            time.Duration
	sched               gocron.Scheduler
}

// New creates a lifecycle scheduler ticking around the given interval
func New(contestService service.ContestService, verificationService service.VerificationService, notifier service.OperatorNotifier, interval time.Duration) *Scheduler {
	return &Scheduler{
		contestService:      contestService,
		verificationService: verificationService,
		notifier:            notifier,
		interval:            interval,
	}
}

// Start begins ticking in the background. The tick interval is randomized
// around the configured period so restarts don't pile ticks onto the same
// wall-clock instant, and singleton mode keeps a long verification pass from
// overlapping the next tick.
func (s *Scheduler) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationRandomJob(s.interval-s.interval/10, s.interval+s.interval/10),
		gocron.NewTask(func() {
			s.runTick(context.Background())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule lifecycle job: %w", err)
	}

	sched.Start()
	s.sched = sched

	log.WithField("interval", s.interval).Info("Lifecycle scheduler started")
	return nil
}

// Shutdown stops the scheduler
func (s *Scheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

// runTick attempts the two time-driven transitions. Errors are logged and
// swallowed so a failed tick never stops the next one.
func (s *Scheduler) runTick(ctx context.Context) {
	activated, err := s.contestService.ActivateIfDue(ctx)
	if err != nil {
		log.Errorf("Lifecycle tick: activation attempt failed: %v", err)
	} else if activated {
		log.Info("Contest activated")
		s.notifier.NotifyOperator(ctx, "Contest is now active, registrations are open")
	}

	started, err := s.contestService.BeginVerificationIfExpired(ctx)
	if err != nil {
		log.Errorf("Lifecycle tick: verification start attempt failed: %v", err)
		return
	}
	if !started {
		return
	}

	log.Info("Contest expired, verification started")
	if _, err := s.verificationService.Run(ctx); err != nil {
		// A crashed pass is retried by the admin or a later restart
		if !errors.Is(err, service.ErrWrongContestStatus) {
			log.Errorf("Verification pass failed: %v", err)
			s.notifier.NotifyOperator(ctx, fmt.Sprintf("Verification failed: %v", err))
		}
	}
}
