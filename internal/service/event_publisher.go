package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

const eventBufferSize = 1024

// EventPublisher fans session events out to the proctor monitor channel and
// queues violations for the audit worker. Publish never blocks: events are
// buffered and written to Redis by Run.
type EventPublisher struct {
	rdb    *redis.Client
	log    zerolog.Logger
	events chan proctor.Event
}

var _ proctor.EventSink = (*EventPublisher)(nil)

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(rdb *redis.Client, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		rdb:    rdb,
		log:    log.With().Str("component", "event_publisher").Logger(),
		events: make(chan proctor.Event, eventBufferSize),
	}
}

// Publish enqueues ev. When the buffer is full the event is dropped.
func (p *EventPublisher) Publish(_ context.Context, ev proctor.Event) {
	select {
	case p.events <- ev:
	default:
		p.log.Warn().
			Str("type", string(ev.Type)).
			Int("student_id", ev.StudentID).
			Msg("Event buffer full, dropping event")
	}
}

// Run writes buffered events until ctx is cancelled, then drains what is left.
func (p *EventPublisher) Run(ctx context.Context) {
	p.log.Info().Msg("EventPublisher started")
	for {
		select {
		case ev := <-p.events:
			p.write(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-p.events:
					p.write(ev)
				default:
					p.log.Info().Msg("EventPublisher stopped")
					return
				}
			}
		}
	}
}

func (p *EventPublisher) write(ev proctor.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to encode event")
		return
	}

	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.ExamMonitorChannel(ev.ExamID.String()), data)
	if ev.Type == proctor.EventViolation {
		rec, _ := json.Marshal(model.ViolationRecord{
			StudentID: ev.StudentID,
			ExamID:    ev.ExamID.String(),
			Kind:      string(ev.Violation),
			Sequence:  ev.ViolationCount,
			Timestamp: ev.At.Unix(),
		})
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, rec)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Error().Err(err).
			Str("type", string(ev.Type)).
			Int("student_id", ev.StudentID).
			Msg("Failed to publish event")
	}
}
