package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Character is a chatbot persona created through the REST API and processed
// asynchronously by the task worker.
type Character struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Processed   bool      `json:"processed"`
	CreatedAt   time.Time `json:"created_at"`
}

// User is a registered participant. The row id assigned at signup doubles as
// the chat Identity used by the realtime layer.
type User struct {
	ID        int64     `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CharacterStore persists characters.
type CharacterStore interface {
	CreateCharacter(ctx context.Context, title, description string) (Character, error)
	ListCharacters(ctx context.Context, skip, limit int) ([]Character, error)
	MarkCharacterProcessed(ctx context.Context, id int64) error
}

// UserStore persists users. Passwords are stored as given; hardening the
// credential scheme is out of scope for this service.
type UserStore interface {
	CreateUser(ctx context.Context, username, password string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
}
