// Package sweeper periodically cancels pay-now bookings whose payment window
// has passed.
package sweeper

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"hotel-booking-backend/config"
)

// Expirer cancels overdue pending bookings and reports how many it cancelled.
type Expirer interface {
	ExpirePendingBookings(ctx context.Context) (int, error)
}

// Service runs the expiry sweep on a cron schedule.
type Service struct {
	cfg     config.SweeperConfig
	expirer Expirer
}

// NewService creates a sweeper service.
func NewService(cfg config.SweeperConfig, expirer Expirer) *Service {
	return &Service{cfg: cfg, expirer: expirer}
}

// Run sweeps once immediately and then on every tick of the schedule until
// ctx is cancelled. A tick that fires while the previous sweep is still
// running is skipped.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Expiry sweeper is disabled. Not starting.")
		return
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.SweepOnce(ctx) }); err != nil {
		log.Printf("Invalid sweeper schedule %q: %v", s.cfg.Schedule, err)
		return
	}
	log.Printf("Starting expiry sweeper (%s)...", s.cfg.Schedule)

	s.SweepOnce(ctx)
	c.Start()

	<-ctx.Done()
	log.Println("Expiry sweeper shutting down.")
	<-c.Stop().Done()
}

// SweepOnce runs a single expiry pass and returns the number of bookings cancelled.
func (s *Service) SweepOnce(ctx context.Context) int {
	count, err := s.expirer.ExpirePendingBookings(ctx)
	if err != nil {
		log.Printf("Expiry sweep failed after %d cancellations: %v", count, err)
		return count
	}
	if count > 0 {
		log.Printf("Expiry sweep cancelled %d bookings", count)
	}
	return count
}
