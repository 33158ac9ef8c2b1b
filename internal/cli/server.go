package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	natsbus "live-quiz-service/internal/infra/nats"
	pgloader "live-quiz-service/internal/infra/postgres"
	redissession "live-quiz-service/internal/infra/redis"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,

			ContextTimeoutEnabled: true,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(map[string]domain.Quiz{
		memory.FallbackQuizID: memory.FallbackQuiz(),
	})
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redissession.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		sessions := redissession.NewSessionStore(redisClient, redisTTL)
		defer sessions.Wait()
		store = sessions
	} else {
		store = memory.NewSessionStore()
	}

	var publisher app.EventPublisher
	if cfg.NATS.URL != "" {
		nc, err := natsbus.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer func() { _ = nc.Drain() }()
		publisher = natsbus.NewPublisher(nc, cfg.NATS.Subject)
	}

	hub := transport.NewHub(cfg.Server.SendBuffer)
	service := app.NewGameService(store, quizRepo, hub, app.Options{
		PreRoll:      config.TTLDuration(cfg.Game.PreRoll, app.DefaultPreRoll),
		Countdown:    config.TTLDuration(cfg.Game.Countdown, app.DefaultCountdown),
		CleanupDelay: config.TTLDuration(cfg.Game.CleanupDelay, app.DefaultCleanupDelay),
		Fallback:     memory.FallbackQuestions(),
		Publisher:    publisher,
	})
	defer service.Close()

	wsHandler := transport.NewWSHandler(service, hub)
	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(wsHandler, service, transport.RouterOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			PublicURL:      cfg.Server.PublicURL,
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("port", finalPort).
			Bool("redis", redisClient != nil).
			Bool("postgres", pool != nil).
			Bool("nats", publisher != nil).
			Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
