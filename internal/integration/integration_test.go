package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
	pgstore "quizboard-service/internal/infra/postgres"
	pgmigrations "quizboard-service/internal/infra/postgres/migrations"
	infraredis "quizboard-service/internal/infra/redis"
)

func intPtr(v int) *int { return &v }

func TestReplayRecordedEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := pgstore.NewReplayStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	logger, _ := test.NewNullLogger()
	inline := app.NewInlineDispatcher("integration", logger)
	game := app.NewGame(app.DefaultGameConfig(),
		app.WithLogger(logger),
		app.WithRecorder(app.NewRecorder(store, inline, logger)),
		app.WithMirror(infraredis.NewStateMirror(redisClient, "it", time.Minute), inline),
	)
	defer game.Close()

	game.Connect("teacher")
	game.Connect("c1")
	game.LoadQuiz("teacher", app.LoadQuizPayload{Content: "# Planets\n1. Largest planet?", Filename: "planets.md"})
	slug := game.Snapshot().Game.SessionSlug
	if slug == "" {
		t.Fatalf("expected a session slug after load-quiz")
	}

	game.Join("c1", app.JoinPayload{Name: "Alice", StudentID: "s1"})
	game.Move("c1", app.MovePayload{Roll: intPtr(5)})
	game.Answer("c1", app.AnswerPayload{AnswerIdx: intPtr(1)})
	game.AdvancePhase("teacher", app.AdvancePhasePayload{NextPhase: intPtr(3), NextQuestionIdx: intPtr(0), CorrectIdxs: []int{0}})
	game.Restart("teacher")

	replays := app.NewReplayService(store, infraredis.NewReplayRepository(redisClient, app.NewStoreReplayLoader(store), 5*time.Minute))
	replay, err := replays.Get(ctx, slug)
	if err != nil {
		t.Fatalf("get replay: %v", err)
	}
	if replay.Session.Status != domain.SessionCompleted || replay.Session.QuizName != "planets" {
		t.Fatalf("unexpected session: %+v", replay.Session)
	}
	var kinds []string
	for i, ev := range replay.Events {
		if ev.Seq != int64(i+1) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
		kinds = append(kinds, ev.Kind)
	}
	if got := strings.Join(kinds, ","); got != "join,move,answer,phase" {
		t.Fatalf("unexpected event kinds: %s", got)
	}
	if len(replay.Positions) != 1 || replay.Positions[0].Square != 5 {
		t.Fatalf("unexpected final positions: %+v", replay.Positions)
	}

	if n, err := redisClient.Exists(ctx, "replay:"+slug).Result(); err != nil || n != 1 {
		t.Fatalf("expected cached replay, exists=%d err=%v", n, err)
	}
	if n, err := redisClient.Exists(ctx, "it:state").Result(); err != nil || n != 1 {
		t.Fatalf("expected mirrored state, exists=%d err=%v", n, err)
	}

	if err := store.AppendEvent(ctx, slug, domain.ReplayEvent{Kind: "late"}); err != domain.ErrSessionCompleted {
		t.Fatalf("append to completed session: got %v", err)
	}
	if err := replays.Delete(ctx, slug); err != nil {
		t.Fatalf("delete replay: %v", err)
	}
	if _, err := replays.Get(ctx, slug); err != domain.ErrSessionNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
