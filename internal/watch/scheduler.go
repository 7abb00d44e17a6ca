package watch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// resyncScheduler wraps a gocron scheduler running one periodic job that asks
// for a full run.
type resyncScheduler struct {
	scheduler gocron.Scheduler
}

func newResyncScheduler(interval time.Duration, request func()) (*resyncScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(request),
		gocron.WithName("resync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create resync job: %w", err)
	}
	return &resyncScheduler{scheduler: s}, nil
}

func (s *resyncScheduler) start() {
	slog.Debug("Starting resync scheduler")
	s.scheduler.Start()
}

func (s *resyncScheduler) stop() error {
	slog.Debug("Stopping resync scheduler")
	return s.scheduler.Shutdown()
}
