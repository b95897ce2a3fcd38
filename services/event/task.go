package event

import (
	"context"
	"encoding/json"
	"fmt"

	"forge-engine/pkg/errutil"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeProcessEvent is the queue task carrying one admitted envelope.
const TypeProcessEvent = "event:process"

// Handler adapts the pipeline to the queue consumer. Terminal data errors are
// wrapped with asynq.SkipRetry so exhausted and non-retryable jobs end up
// parked for operator inspection instead of looping.
type Handler struct {
	pipeline *Pipeline
}

func NewHandler(pipeline *Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

func (h *Handler) HandleProcessEvent(ctx context.Context, t *asynq.Task) error {
	var env Envelope
	if err := json.Unmarshal(t.Payload(), &env); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("app_id", env.AppID),
		zap.String("idempotency_key", env.IdempotencyKey),
	)
	zapLog.Info("start event processing task")

	if err := h.pipeline.Process(ctx, env); err != nil {
		if errutil.IsTerminal(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	zapLog.Info("event processing task done")
	return nil
}
