package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quizboard-service/internal/domain"
)

// DefaultMaxQuizLength caps loaded quiz content, in characters.
const DefaultMaxQuizLength = 100000

// GameConfig holds the tunables of a live game.
type GameConfig struct {
	BoardSize         int
	Wrap              bool
	GracePeriod       time.Duration
	PlaceholderName   string
	QuizmasterName    string
	QuizmasterEnabled bool
	MaxQuizLength     int
	QueueSize         int
	DefaultRateLimit  int
	RateLimits        map[string]int
	NotifyRecipient   string
}

// DefaultGameConfig returns the classroom defaults.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		BoardSize:         DefaultBoardSize,
		Wrap:              true,
		GracePeriod:       DefaultGracePeriod,
		PlaceholderName:   "Player",
		QuizmasterName:    "Quizmaster",
		QuizmasterEnabled: false,
		MaxQuizLength:     DefaultMaxQuizLength,
		QueueSize:         64,
		DefaultRateLimit:  10,
		RateLimits: map[string]int{
			domain.InJoin:   5,
			domain.InAnswer: 5,
			domain.InMove:   10,
			domain.InPing:   20,
		},
	}
}

// GameOption customizes collaborators of a Game.
type GameOption func(*Game)

func WithScheduler(s Scheduler) GameOption {
	return func(g *Game) { g.scheduler = s }
}

func WithClock(now func() time.Time) GameOption {
	return func(g *Game) { g.now = now }
}

func WithLogger(log logrus.FieldLogger) GameOption {
	return func(g *Game) { g.log = log }
}

func WithRecorder(r *Recorder) GameOption {
	return func(g *Game) { g.recorder = r }
}

func WithNotifier(n Notifier, d *Dispatcher) GameOption {
	return func(g *Game) { g.notifier, g.notifyQueue = n, d }
}

func WithMirror(m StateMirror, d *Dispatcher) GameOption {
	return func(g *Game) { g.mirror, g.mirrorQueue = m, d }
}

func WithDiagnostics(sink DiagnosticSink) GameOption {
	return func(g *Game) { g.diagnostics = sink }
}

func WithIDGenerator(newID func() string) GameOption {
	return func(g *Game) { g.newID = newID }
}

type client struct {
	send chan domain.Envelope
}

// Game is the single live game of this process. It owns the presence
// registry, the vote tally and the quizmaster, and fans state changes out
// to every connected client.
//
// One mutex serializes inbound events and cleanup timers, so handlers run
// one at a time in some global order.
type Game struct {
	mu     sync.Mutex
	cfg    GameConfig
	closed bool

	presence   *PresenceRegistry
	votes      *VoteTally
	quizmaster *QuizmasterController
	limiter    *RateLimiter
	state      domain.GameState
	clients    map[string]*client

	scheduler   Scheduler
	now         func() time.Time
	log         logrus.FieldLogger
	recorder    *Recorder
	notifier    Notifier
	notifyQueue *Dispatcher
	mirror      StateMirror
	mirrorQueue *Dispatcher
	diagnostics DiagnosticSink
	newID       func() string
}

func NewGame(cfg GameConfig, opts ...GameOption) *Game {
	defaults := DefaultGameConfig()
	if cfg.BoardSize <= 0 {
		cfg.BoardSize = defaults.BoardSize
	}
	if cfg.GracePeriod < 0 {
		cfg.GracePeriod = 0
	}
	if cfg.PlaceholderName == "" {
		cfg.PlaceholderName = defaults.PlaceholderName
	}
	if cfg.MaxQuizLength <= 0 {
		cfg.MaxQuizLength = defaults.MaxQuizLength
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}

	g := &Game{
		cfg:     cfg,
		votes:   NewVoteTally(),
		clients: make(map[string]*client),
		now:     time.Now,
		log:     logrus.StandardLogger(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.scheduler == nil {
		g.scheduler = WallScheduler()
	}
	g.limiter = NewRateLimiter(time.Second, g.now)
	g.quizmaster = NewQuizmasterController(cfg.QuizmasterName, cfg.QuizmasterEnabled, cfg.BoardSize)
	g.presence = NewPresenceRegistry(PresenceOptions{
		Grace:     cfg.GracePeriod,
		BoardSize: cfg.BoardSize,
		Wrap:      cfg.Wrap,
		Scheduler: g.scheduler,
		Now:       g.now,
		Locker:    &g.mu,
		OnPurge:   g.onPurgeLocked,
		OnRebind:  g.recordDisconnectLocked,
	})
	return g
}

// Connect registers an outbound queue for connID.
func (g *Game) Connect(connID string) <-chan domain.Envelope {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[connID]; ok {
		return c.send
	}
	c := &client{send: make(chan domain.Envelope, g.cfg.QueueSize)}
	if g.closed {
		close(c.send)
		return c.send
	}
	g.clients[connID] = c
	return c.send
}

// Disconnect closes connID's queue and releases its student binding.
func (g *Game) Disconnect(connID, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[connID]; ok {
		delete(g.clients, connID)
		close(c.send)
	}
	g.limiter.Forget(connID)
	if g.closed {
		return
	}
	g.releaseLocked(connID, reason)
}

func (g *Game) releaseLocked(connID, reason string) {
	rec := g.presence.Disconnect(connID, reason)
	g.recordDisconnectLocked(rec)
	if rec.Action != DisconnectUnbound {
		g.mirrorLocked()
	}
}

func (g *Game) recordDisconnectLocked(rec DisconnectRecord) {
	if g.diagnostics != nil {
		g.diagnostics.RecordDisconnect(rec)
	}
}

func (g *Game) onPurgeLocked(student domain.Student, cause string) {
	g.votes.Forget(student.ID)
	g.log.WithFields(logrus.Fields{
		"student": student.ID,
		"name":    student.Name,
		"cause":   cause,
	}).Info("student purged")
	g.recorder.Append(g.state.SessionSlug, domain.ReplayEvent{
		Kind:      "leave",
		StudentID: student.ID,
		CreatedAt: g.now(),
	}, map[string]any{"cause": cause, "square": student.Square})
	g.broadcastLocked(domain.OutStudents, g.presence.Snapshot())
	g.broadcastLocked(domain.OutVotes, g.votes.Tally())
	g.mirrorLocked()
}

// Snapshot returns the full current view.
func (g *Game) Snapshot() domain.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Game:       g.state,
		Students:   g.presence.Snapshot(),
		Votes:      g.votes.Tally(),
		Quizmaster: g.quizmaster.State(),
		TakenAt:    g.now(),
	}
}

// Close completes the current replay session and stops every cleanup
// timer. Queues are closed so transport writers exit.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.recorder.Complete(g.state.SessionSlug, g.finalPositionsLocked())
	g.presence.StopTimers()
	for id, c := range g.clients {
		delete(g.clients, id)
		close(c.send)
	}
}

func (g *Game) finalPositionsLocked() []domain.FinalPosition {
	students := g.presence.Snapshot()
	positions := make([]domain.FinalPosition, 0, len(students))
	for _, s := range students {
		positions = append(positions, domain.FinalPosition{StudentID: s.ID, Name: s.Name, Square: s.Square})
	}
	return positions
}

// allowLocked gates an inbound event: the game must be open, the connection
// known and within its rate limit.
func (g *Game) allowLocked(connID, kind string) bool {
	if g.closed {
		return false
	}
	if _, ok := g.clients[connID]; !ok {
		return false
	}
	limit, ok := g.cfg.RateLimits[kind]
	if !ok {
		limit = g.cfg.DefaultRateLimit
	}
	if !g.limiter.Allow(connID, kind, limit) {
		g.log.WithFields(logrus.Fields{"conn": connID, "kind": kind}).Debug("rate limited")
		return false
	}
	return true
}

func (g *Game) sendLocked(connID, typ string, payload any) {
	c, ok := g.clients[connID]
	if !ok {
		return
	}
	enqueue(c.send, domain.Envelope{Type: typ, Payload: payload})
}

func (g *Game) broadcastLocked(typ string, payload any) {
	env := domain.Envelope{Type: typ, Payload: payload}
	for _, c := range g.clients {
		enqueue(c.send, env)
	}
}

// enqueue never blocks; a full queue loses its oldest envelope.
func enqueue(ch chan domain.Envelope, env domain.Envelope) {
	select {
	case ch <- env:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- env:
		default:
		}
	}
}

func (g *Game) mirrorLocked() {
	if g.mirror == nil || g.mirrorQueue == nil {
		return
	}
	snapshot := g.snapshotLocked()
	g.mirrorQueue.Submit("mirror-state", func(ctx context.Context) error {
		return g.mirror.Mirror(ctx, snapshot)
	})
}

func (g *Game) notifyLocked(slug, quizName string) {
	recipient := g.cfg.NotifyRecipient
	if g.notifier == nil || g.notifyQueue == nil || recipient == "" {
		return
	}
	log := g.log.WithFields(logrus.Fields{"slug": slug, "recipient": recipient})
	g.notifyQueue.Submit("notify", func(ctx context.Context) error {
		sent, err := g.notifier.Notify(ctx, recipient, slug, quizName)
		if err != nil {
			return err
		}
		log.WithField("sent", sent).Info("session notification handled")
		return nil
	})
}

func (g *Game) newSlug() string {
	slug := strings.ReplaceAll(g.newID(), "-", "")
	if len(slug) > 12 {
		slug = slug[:12]
	}
	return slug
}
