package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"personakit/config"
	"personakit/core"
	"personakit/router"
	"personakit/server"
	geminiassistant "personakit/services/gemini/assistant"
	openaiassistant "personakit/services/openai/assistant"
	openaivoice "personakit/services/openai/voice"
	"personakit/sessions"
	"personakit/store/memory"
	"personakit/store/postgres"
	"personakit/tasks"
)

func main() {
	var (
		configPath string
		addr       string
		logLevel   string
	)
	flag.StringVar(&configPath, "config", "settings.json", "Path to the settings file")
	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides settings)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	setupLogging(logLevel)

	if err := godotenv.Load(".env.local"); err != nil {
		log.Debug().Err(err).Msg("no .env.local file found")
	}

	cfg, err := config.FromFile(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load settings")
	}
	if addr != "" {
		cfg.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
	log.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg config.Config) error {
	convs, characters, users, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	assistant, err := buildAssistant(ctx, cfg)
	if err != nil {
		return err
	}

	voiceCfg := openaivoice.DefaultConfig()
	voiceCfg.APIKey = cfg.OpenAIAPIKey
	codec, err := openaivoice.New(voiceCfg)
	if err != nil {
		return fmt.Errorf("voice codec: %w", err)
	}

	registry := sessions.NewRegistry()
	rt := router.New(convs, assistant, codec, registry,
		router.WithContextTurns(cfg.ContextTurns),
		router.WithLanguage(cfg.Language),
	)

	eg, ctx := errgroup.WithContext(ctx)

	var queue *tasks.Queue
	if cfg.RedisAddr != "" {
		pub, err := tasks.NewRedisPublisher(cfg.RedisAddr)
		if err != nil {
			return err
		}
		queue = tasks.NewQueue(pub)
		defer queue.Close()

		sub, err := tasks.NewRedisSubscriber(cfg.RedisAddr, uuid.NewString())
		if err != nil {
			return err
		}
		worker := tasks.NewWorker(sub, characters, time.Duration(cfg.WorkerDelaySeconds)*time.Second)
		eg.Go(func() error { return worker.Run(ctx) })
		log.Info().Str("redis", cfg.RedisAddr).Msg("task queue connected")
	} else {
		log.Warn().Msg("REDIS_ADDR not set, background task processing disabled")
	}

	if cfg.FetchURL != "" {
		scheduler := tasks.NewScheduler(cfg.FetchURL, time.Duration(cfg.FetchIntervalHours)*time.Hour, characters)
		eg.Go(func() error { return scheduler.Run(ctx) })
	}

	srv := server.New(server.Config{Addr: cfg.Addr}, registry, rt, convs, characters, users, assistant, queue)
	eg.Go(func() error { return srv.Run(ctx) })

	return eg.Wait()
}

func buildStores(ctx context.Context, cfg config.Config) (core.ConversationStore, core.CharacterStore, core.UserStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory store")
		s := memory.New()
		return s, s, s, func() {}, nil
	}

	s, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	log.Info().Msg("connected to postgres")
	return s, s, s, s.Close, nil
}

func buildAssistant(ctx context.Context, cfg config.Config) (core.Assistant, error) {
	switch cfg.AssistantProvider {
	case "", "openai":
		c := openaiassistant.DefaultConfig()
		c.APIKey = cfg.OpenAIAPIKey
		return openaiassistant.New(c)
	case "gemini":
		c := geminiassistant.DefaultConfig()
		c.APIKey = cfg.GeminiAPIKey
		return geminiassistant.New(ctx, c)
	default:
		return nil, fmt.Errorf("unknown assistant provider %q", cfg.AssistantProvider)
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
