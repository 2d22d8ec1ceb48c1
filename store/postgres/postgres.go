// Package postgres backs the conversation, character and user stores with
// PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"personakit/core"
)

// Store implements core.ConversationStore, core.CharacterStore and
// core.UserStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database, verifies the connection and runs pending
// migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	if err := Migrate(dsn); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// RecentContext loads the newest limit turns and returns them oldest first.
func (s *Store) RecentContext(ctx context.Context, id core.Identity, limit int) ([]core.Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role, content, created_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, int64(id), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var t core.Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	// Newest-first from the query; the router wants oldest-first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *Store) Append(ctx context.Context, id core.Identity, turn core.Turn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4)`, int64(id), string(turn.Role), turn.Content, createdAt)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) CreateCharacter(ctx context.Context, title, description string) (core.Character, error) {
	var ch core.Character
	err := s.pool.QueryRow(ctx, `
		INSERT INTO characters (title, description)
		VALUES ($1, $2)
		RETURNING id, title, description, processed, created_at`,
		title, description,
	).Scan(&ch.ID, &ch.Title, &ch.Description, &ch.Processed, &ch.CreatedAt)
	if err != nil {
		return core.Character{}, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return ch, nil
}

func (s *Store) ListCharacters(ctx context.Context, skip, limit int) ([]core.Character, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, description, processed, created_at
		FROM characters
		ORDER BY id
		OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []core.Character
	for rows.Next() {
		var ch core.Character
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.Description, &ch.Processed, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *Store) MarkCharacterProcessed(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE characters SET processed = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", core.ErrCharacterNotFound, id)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, username, password string) (core.User, error) {
	var u core.User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, uuid, username, password, created_at`,
		username, password,
	).Scan(&u.ID, &u.UUID, &u.Username, &u.Password, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return core.User{}, fmt.Errorf("%w: %s", core.ErrUsernameTaken, username)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, uuid, username, password, created_at
		FROM users
		WHERE username = $1`, username,
	).Scan(&u.ID, &u.UUID, &u.Username, &u.Password, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return core.User{}, fmt.Errorf("%w: %s", core.ErrUserNotFound, username)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return u, nil
}
