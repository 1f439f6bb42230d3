package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"example.com/runclub/internal/queue"
)

// QueueHandler adapts the Processor to the queue consume loop. It decodes
// the job payload back into an Event and threads the correlation ID into
// the processing logs.
type QueueHandler struct {
	processor *Processor
}

// NewQueueHandler constructs the adapter.
func NewQueueHandler(processor *Processor) *QueueHandler {
	return &QueueHandler{processor: processor}
}

// Handle decodes and processes one queued webhook event.
func (h *QueueHandler) Handle(ctx context.Context, msg queue.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrMalformed, err)
	}

	logger := h.processor.logger.With().Str("correlation_id", msg.CorrelationID).Logger()
	scoped := &Processor{clients: h.processor.clients, store: h.processor.store, logger: logger}
	return scoped.Process(ctx, event)
}
