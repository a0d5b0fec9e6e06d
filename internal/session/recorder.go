package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/joshua-takyi/evently/internal/models"
)

// Recorder persists every published event until its subscription ends.
type Recorder struct {
	repo   models.SessionEventRepo
	logger *slog.Logger
}

func NewRecorder(repo models.SessionEventRepo, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

// Run blocks until events is closed.
func (r *Recorder) Run(events <-chan models.SessionEvent) {
	for ev := range events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.repo.RecordSessionEvent(ctx, &ev); err != nil {
			r.logger.Error("Failed to record session event",
				"user_id", ev.UserID,
				"kind", ev.Kind,
				"error", err,
			)
		}
		cancel()
	}
}
