package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"example.com/runclub/internal/observability"
)

// Reader is the slice of kafka.Reader the processor needs.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Message is one decoded queue record.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	CorrelationID string
	Payload       json.RawMessage
}

// Handler processes decoded messages. A returned error is recorded but
// the offset is committed anyway: delivery is at-least-once and the
// downstream upsert is idempotent, so re-driving a failed job is the
// operator's call (re-run a backfill), not the queue's.
type Handler interface {
	Handle(context.Context, Message) error
}

// Processor pulls messages from Kafka, decodes them, and dispatches to
// the handler until the context is cancelled.
type Processor struct {
	reader  Reader
	handler Handler
	logger  zerolog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, handler Handler, logger zerolog.Logger) *Processor {
	return &Processor{reader: reader, handler: handler, logger: logger}
}

// Run is the blocking consume loop. Malformed messages are committed and
// counted so a poison pill cannot wedge the partition.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Error().Err(err).Msg("queue fetch failed")
			continue
		}

		decoded := decode(msg)

		if err := p.handler.Handle(ctx, decoded); err != nil {
			if errors.Is(err, ErrMalformed) {
				observability.RecordQueueDecodeError(msg.Topic)
			}
			p.logger.Error().
				Err(err).
				Str("correlation_id", decoded.CorrelationID).
				Str("topic", msg.Topic).
				Int64("offset", msg.Offset).
				Msg("queue handler failed")
		}

		if err := p.reader.CommitMessages(ctx, msg); err != nil {
			p.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("queue commit failed")
		}
	}
}

// ErrMalformed marks payloads the handler could not decode.
var ErrMalformed = errors.New("malformed queue payload")

func decode(msg kafka.Message) Message {
	out := Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Payload:   json.RawMessage(append([]byte(nil), msg.Value...)),
	}
	for _, header := range msg.Headers {
		if header.Key == "correlation_id" {
			out.CorrelationID = string(header.Value)
		}
	}
	return out
}
