package core

import (
	"context"
	"time"
)

// Identity is the key grouping a user's live connections and conversation
// history. One registry entry exists per identity; multiple connections may
// share it (multi-tab, multi-device).
type Identity int64

// Role labels which side of the conversation produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one recorded message in a conversation. Turns are append-only per
// identity and ordered by creation time.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationStore persists ordered message turns per identity.
// Each call is transactional on its own; the router does not require
// cross-call atomicity between the user and assistant appends.
type ConversationStore interface {
	// RecentContext returns at most limit of the newest turns for the
	// identity, ordered oldest first.
	RecentContext(ctx context.Context, id Identity, limit int) ([]Turn, error)
	Append(ctx context.Context, id Identity, turn Turn) error
}

// Assistant produces a generated reply to a message given prior conversation
// context. Expected latency is seconds, not sub-second; callers must pass a
// context with an appropriate deadline.
type Assistant interface {
	Respond(ctx context.Context, message string, history []Turn) (string, error)
}

// VoiceCodec converts audio bytes to text and text to audio bytes.
type VoiceCodec interface {
	// Transcribe fails with ErrUnrecognizedAudio on silence or garbage input.
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}
