// Package memory provides in-process store implementations used by tests and
// by dev mode when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"personakit/core"
)

// Store keeps conversations, characters and users in process memory. Safe for
// concurrent use. Everything is lost on restart.
type Store struct {
	mu         sync.RWMutex
	turns      map[core.Identity][]core.Turn
	characters []core.Character
	users      map[string]core.User
	nextCharID int64
	nextUserID int64
}

func New() *Store {
	return &Store{
		turns: make(map[core.Identity][]core.Turn),
		users: make(map[string]core.User),
	}
}

// RecentContext returns at most limit of the newest turns, oldest first.
func (s *Store) RecentContext(_ context.Context, id core.Identity, limit int) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[id]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]core.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *Store) Append(_ context.Context, id core.Identity, turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	s.turns[id] = append(s.turns[id], turn)
	return nil
}

func (s *Store) CreateCharacter(_ context.Context, title, description string) (core.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCharID++
	ch := core.Character{
		ID:          s.nextCharID,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now(),
	}
	s.characters = append(s.characters, ch)
	return ch, nil
}

func (s *Store) ListCharacters(_ context.Context, skip, limit int) ([]core.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if skip < 0 {
		skip = 0
	}
	if skip >= len(s.characters) {
		return nil, nil
	}
	end := len(s.characters)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	out := make([]core.Character, end-skip)
	copy(out, s.characters[skip:end])
	return out, nil
}

func (s *Store) MarkCharacterProcessed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.characters {
		if s.characters[i].ID == id {
			s.characters[i].Processed = true
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", core.ErrCharacterNotFound, id)
}

func (s *Store) CreateUser(_ context.Context, username, password string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return core.User{}, fmt.Errorf("%w: %s", core.ErrUsernameTaken, username)
	}
	s.nextUserID++
	u := core.User{
		ID:        s.nextUserID,
		UUID:      uuid.New(),
		Username:  username,
		Password:  password,
		CreatedAt: time.Now(),
	}
	s.users[username] = u
	return u, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return core.User{}, fmt.Errorf("%w: %s", core.ErrUserNotFound, username)
	}
	return u, nil
}
