package tasks

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"personakit/core"
)

// Worker consumes character processing jobs. Processing is deliberately slow
// (the original workload simulates heavy enrichment); the delay is
// configurable so tests run fast.
type Worker struct {
	sub   message.Subscriber
	store core.CharacterStore
	delay time.Duration
}

func NewWorker(sub message.Subscriber, store core.CharacterStore, delay time.Duration) *Worker {
	return &Worker{sub: sub, store: store, delay: delay}
}

// Run consumes jobs until the context is cancelled. A malformed or failing
// job is logged and acked; the worker never stops over a single bad job.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.sub.Subscribe(ctx, TopicProcessCharacter)
	if err != nil {
		return err
	}

	log.Info().Str("topic", TopicProcessCharacter).Msg("task worker started")
	for msg := range msgs {
		w.handle(ctx, msg)
		msg.Ack()
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, msg *message.Message) {
	var job ProcessCharacterJob
	if err := sonic.Unmarshal(msg.Payload, &job); err != nil {
		log.Error().Err(err).Str("message_uuid", msg.UUID).Msg("discarding malformed job payload")
		return
	}

	start := time.Now()
	select {
	case <-time.After(w.delay):
	case <-ctx.Done():
		return
	}

	if err := w.store.MarkCharacterProcessed(ctx, job.CharacterID); err != nil {
		log.Error().Err(err).Str("task_id", job.TaskID).Int64("character_id", job.CharacterID).Msg("failed to mark character processed")
		return
	}
	log.Info().
		Str("task_id", job.TaskID).
		Int64("character_id", job.CharacterID).
		Dur("took", time.Since(start)).
		Msg("character processed")
}
