package daemon

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
)

// Scheduler wraps gocron for the periodic full re-render.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler schedules task every interval.
func NewScheduler(interval time.Duration, task func()) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryDaemon, apperrors.SeverityFatal,
			"failed to create scheduler")
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName("periodic-render"),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryDaemon, apperrors.SeverityFatal,
			"failed to create periodic render job")
	}

	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting render scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
