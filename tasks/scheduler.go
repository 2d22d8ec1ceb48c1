package tasks

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"personakit/core"
)

// seedCharacter is the payload shape the upstream character feed returns.
type seedCharacter struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Scheduler periodically pulls character seed data from an upstream feed and
// stores it. Fetch failures are logged and retried on the next tick; they are
// never fatal.
type Scheduler struct {
	url      string
	interval time.Duration
	store    core.CharacterStore
	client   *http.Client
}

func NewScheduler(url string, interval time.Duration, store core.CharacterStore) *Scheduler {
	return &Scheduler{
		url:      url,
		interval: interval,
		store:    store,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Run fetches once per interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Str("url", s.url).Dur("interval", s.interval).Msg("character fetch scheduler started")
	for {
		select {
		case <-ticker.C:
			if err := s.FetchOnce(ctx); err != nil {
				log.Error().Err(err).Msg("scheduled character fetch failed")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// FetchOnce pulls the feed and stores every character it returns.
func (s *Scheduler) FetchOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build feed request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch character feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("character feed returned status %d", resp.StatusCode)
	}

	var seeds []seedCharacter
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&seeds); err != nil {
		return fmt.Errorf("decode character feed: %w", err)
	}

	stored := 0
	for _, seed := range seeds {
		if seed.Title == "" {
			continue
		}
		if _, err := s.store.CreateCharacter(ctx, seed.Title, seed.Description); err != nil {
			log.Error().Err(err).Str("title", seed.Title).Msg("failed to store fetched character")
			continue
		}
		stored++
	}
	log.Info().Int("fetched", len(seeds)).Int("stored", stored).Msg("character feed processed")
	return nil
}
