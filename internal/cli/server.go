package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizboard-service/internal/app"
	"quizboard-service/internal/config"
	"quizboard-service/internal/infra/memory"
	pgstore "quizboard-service/internal/infra/postgres"
	rediscache "quizboard-service/internal/infra/redis"
	"quizboard-service/internal/logging"
	"quizboard-service/internal/notify"
	transport "quizboard-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz board server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var store app.ReplayStore = memory.NewReplayStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return errors.Wrap(err, "connect postgres")
		}
		defer pool.Close()
		store = pgstore.NewReplayStore(pool)
	}

	loader := app.NewStoreReplayLoader(store)
	cacheTTL := config.TTLDuration(cfg.Replay.CacheTTL, 10*time.Minute)
	var replayRepo app.ReplayRepository
	if redisClient != nil {
		replayRepo = rediscache.NewReplayRepository(redisClient, loader, cacheTTL)
	} else {
		replayRepo = memory.NewReplayRepository(loader, cacheTTL)
	}

	replayQueue := cfg.Replay.QueueSize
	if replayQueue <= 0 {
		replayQueue = 256
	}
	// one worker keeps appends in order
	replayDispatch := app.NewDispatcher("replay", 1, replayQueue, 5*time.Second, log)
	notifyDispatch := app.NewDispatcher("notify", 1, 16, 30*time.Second, log)
	defer notifyDispatch.Close()
	defer replayDispatch.Close()

	notifier := notify.NewEmailNotifier(notify.EmailConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		User:     cfg.Email.User,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		BaseURL:  cfg.Email.BaseURL,
	}, log)

	opts := []app.GameOption{
		app.WithLogger(log.WithField("component", "game")),
		app.WithRecorder(app.NewRecorder(store, replayDispatch, log)),
		app.WithNotifier(notifier, notifyDispatch),
		app.WithDiagnostics(logging.NewDisconnectSink(log)),
	}
	if redisClient != nil {
		mirrorDispatch := app.NewDispatcher("mirror", 1, 32, 2*time.Second, log)
		defer mirrorDispatch.Close()
		opts = append(opts, app.WithMirror(rediscache.NewStateMirror(redisClient, "quizboard", redisTTL), mirrorDispatch))
	}
	gameCfg := cfg.GameConfig()
	if gameCfg.GracePeriod == 0 {
		log.Warn("grace period is 0: dropped students are removed immediately")
	}
	game := app.NewGame(gameCfg, opts...)

	replays := app.NewReplayService(store, replayRepo)
	router := transport.NewRouter(
		transport.NewWSHandler(game, log),
		transport.NewReplayHandler(game, replays, log),
		log,
	)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("starting quiz board")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	case err := <-serveErr:
		log.WithError(err).Error("server failed")
		game.Close()
		return err
	}

	// closing the game ends every socket writer before the server drains
	game.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
