package checkout

import (
	"context"
	"log/slog"
)

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// saga collects undo steps for completed side effects. Unless committed,
// rollback runs them newest first.
type saga struct {
	steps     []compensation
	committed bool
	logger    *slog.Logger
	metrics   *Metrics
}

func newSaga(logger *slog.Logger, metrics *Metrics) *saga {
	return &saga{logger: logger, metrics: metrics}
}

func (s *saga) push(name string, fn func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, fn: fn})
}

func (s *saga) commit() {
	s.committed = true
}

// rollback runs every pending compensation even when earlier ones fail.
// Failures are logged and counted and never returned.
func (s *saga) rollback(ctx context.Context) {
	if s.committed {
		return
	}
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		err := step.fn(ctx)
		s.metrics.recordCompensation(ctx, step.name, err)
		if err != nil {
			s.logger.ErrorContext(ctx, "compensation failed", "step", step.name, "error", err)
			continue
		}
		s.logger.InfoContext(ctx, "compensation applied", "step", step.name)
	}
	s.steps = nil
}
