// Package pipeline orchestrates the alert enrichment run: a statically
// declared, ordered list of stages executed over one mutable alert context.
// Fatal errors abort the run; recoverable errors are logged and the run
// degrades in place.
package pipeline

import (
	"context"

	"github.com/go-playground/validator/v10"

	"vehiclenotify/internal/types"
)

// Stage is one step of the enrichment run. A stage reads the context fields
// written by its predecessors and writes only its own.
type Stage interface {
	Name() string
	Run(ctx context.Context, ac *types.AlertContext) error
}

// Pipeline executes the configured stages in declaration order.
type Pipeline struct {
	stages   []Stage
	validate *validator.Validate
	metrics  Metrics
	clock    types.Clock
	logger   types.Logger
}

// New creates a Pipeline over the given ordered stages.
func New(stages []Stage, metrics Metrics, clock types.Clock, logger types.Logger) *Pipeline {
	return &Pipeline{
		stages:   stages,
		validate: validator.New(),
		metrics:  metrics,
		clock:    clock,
		logger:   logger,
	}
}

// Process runs one event through every stage and returns the finished
// context. A structurally invalid event and any fatal stage error abort the
// run with a non-nil error; recoverable stage errors log and continue, so the
// returned context may carry partial content.
func (p *Pipeline) Process(ctx context.Context, event *types.AlertEvent) (*types.AlertContext, error) {
	if err := p.validate.Struct(event); err != nil {
		p.metrics.RecordOutcome(ctx, OutcomeInvalid)
		return nil, types.NewAppError(types.ErrCodeInvalidEvent, "alert event failed validation", err)
	}

	ac := types.NewAlertContext(event)
	logger := p.logger.With(
		"notification_id", event.NotificationID,
		"user_id", event.UserID,
	)

	for _, stage := range p.stages {
		start := p.clock.Now()
		err := stage.Run(ctx, ac)
		p.metrics.RecordStageLatency(ctx, stage.Name(), p.clock.Now().Sub(start))

		// The id stage writes ac.EventID; propagate it for trace headers.
		if ac.EventID != "" && types.GetEventID(ctx) == "" {
			ctx = types.WithEventID(ctx, ac.EventID)
			logger = logger.With("event_id", ac.EventID)
		}

		if err == nil {
			continue
		}
		if types.IsFatal(err) {
			logger.Error("pipeline stage failed fatally",
				"stage", stage.Name(),
				"error", err.Error(),
			)
			p.metrics.RecordOutcome(ctx, OutcomeFatal)
			return nil, err
		}
		logger.Warn("pipeline stage degraded",
			"stage", stage.Name(),
			"error", err.Error(),
		)
	}

	p.metrics.RecordOutcome(ctx, OutcomeSuccess)
	return ac, nil
}
