package lottery

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/nft_lottery/pkg/logger"
)

// Scheduler advances expired rounds on a cron schedule: it draws the winning
// numbers once the entropy block is final, then distributes prizes. Manual
// operation through the API keeps working alongside it.
type Scheduler struct {
	svc      *Service
	cron     *cron.Cron
	schedule string
	log      *logger.Logger
}

// NewScheduler creates a scheduler with a cron spec such as "@every 1m".
func NewScheduler(svc *Service, schedule string, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("scheduler")
	}
	return &Scheduler{
		svc:      svc,
		cron:     cron.New(),
		schedule: schedule,
		log:      log,
	}
}

// Start registers the advance job and begins running it.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.tryAdvance(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("draw scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// tryAdvance runs at most one lifecycle step per tick. The service enforces
// all preconditions, so the scheduler only decides whether a step is due.
func (s *Scheduler) tryAdvance(ctx context.Context) {
	state, err := s.svc.State(ctx)
	if err != nil {
		s.log.WithError(err).Error("scheduler: load state")
		return
	}
	if !state.LotteryActive {
		return
	}

	switch state.Phase {
	case PhaseOpen:
		active, err := s.svc.IsRoundActive(ctx)
		if err != nil {
			s.log.WithError(err).Error("scheduler: check round activity")
			return
		}
		if active {
			return
		}
		if _, err := s.svc.DrawNumbers(ctx, state.Operator); err != nil {
			if IsNotReady(err) {
				s.log.WithError(err).Debug("scheduler: entropy block not final yet")
				return
			}
			s.log.WithError(err).Error("scheduler: draw numbers")
		}
	case PhaseDrawn:
		if _, err := s.svc.GivePrizes(ctx, state.Operator); err != nil {
			s.log.WithError(err).Error("scheduler: distribute prizes")
		}
	}
}
