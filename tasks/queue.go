// Package tasks runs the background work the REST layer offloads: character
// processing jobs over a Redis-streams queue and the scheduled daily
// character fetch.
package tasks

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TopicProcessCharacter is the stream carrying character processing jobs.
const TopicProcessCharacter = "tasks.process_character"

// ConsumerGroup is the Redis consumer group shared by all workers.
const ConsumerGroup = "personakit-workers"

// ProcessCharacterJob asks a worker to run post-creation processing for a
// character.
type ProcessCharacterJob struct {
	TaskID      string `json:"task_id"`
	CharacterID int64  `json:"character_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Queue publishes jobs. The REST layer holds one Queue for the process
// lifetime.
type Queue struct {
	pub message.Publisher
}

func NewQueue(pub message.Publisher) *Queue {
	return &Queue{pub: pub}
}

// EnqueueProcessCharacter publishes a processing job for a freshly created
// character.
func (q *Queue) EnqueueProcessCharacter(job ProcessCharacterJob) error {
	if job.TaskID == "" {
		job.TaskID = uuid.NewString()
	}
	payload, err := sonic.Marshal(job)
	if err != nil {
		return fmt.Errorf("tasks: marshal job: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := q.pub.Publish(TopicProcessCharacter, msg); err != nil {
		return fmt.Errorf("tasks: publish job: %w", err)
	}
	log.Debug().Str("task_id", job.TaskID).Int64("character_id", job.CharacterID).Msg("enqueued character processing job")
	return nil
}

// Close releases the underlying publisher.
func (q *Queue) Close() error {
	return q.pub.Close()
}
