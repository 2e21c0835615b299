// Package jobs runs periodic maintenance on a gocron scheduler.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"

	"eventsphere/internal/logger"
)

// SweepFunc releases overdue reservations and reports how many it freed.
type SweepFunc func(ctx context.Context) (int, error)

// Sweeper periodically releases reservations whose hold has lapsed. It backs
// up the Redis expiry watcher, which can miss events while disconnected.
type Sweeper struct {
	scheduler gocron.Scheduler
	log       *logger.Logger
}

func NewSweeper(ctx context.Context, interval time.Duration, sweep SweepFunc, log *logger.Logger) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, "create scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := sweep(ctx)
			if err != nil {
				log.Error("SWEEPER", fmt.Sprintf("Reservation sweep failed: %v", err))
				return
			}
			if n > 0 {
				log.Info("SWEEPER", fmt.Sprintf("Released %d expired reservation(s)", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("reservation-sweeper"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, errors.Wrap(err, "schedule sweep job")
	}
	return &Sweeper{scheduler: scheduler, log: log}, nil
}

// Run starts the scheduler and blocks until ctx ends.
func (s *Sweeper) Run(ctx context.Context) error {
	s.scheduler.Start()
	s.log.Info("SWEEPER", "Reservation sweeper started")
	<-ctx.Done()
	if err := s.scheduler.Shutdown(); err != nil {
		return errors.Wrap(err, "stop scheduler")
	}
	return nil
}
