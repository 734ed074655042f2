package app

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"quizboard-service/internal/domain"
)

func studentView(s domain.Student) domain.StudentView {
	return domain.StudentView{ID: s.ID, Name: s.Name, JoinedAt: s.JoinedAt, Square: s.Square}
}

// Join binds the connection to a student and replies with the full state.
func (g *Game) Join(connID string, p JoinPayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InJoin) {
		return
	}
	student, ok := g.presence.Join(connID, p.StudentID, p.Name, p.Square)
	if !ok {
		return
	}
	g.log.WithFields(logrus.Fields{
		"conn":        connID,
		"student":     student.ID,
		"connections": g.presence.Connections(student.ID),
	}).Info("student joined")

	g.sendLocked(connID, domain.OutJoined, studentView(student))
	g.sendLocked(connID, domain.OutSync, g.snapshotLocked())
	g.broadcastLocked(domain.OutStudents, g.presence.Snapshot())
	g.recorder.Append(g.state.SessionSlug, domain.ReplayEvent{
		Kind:      "join",
		StudentID: student.ID,
		CreatedAt: g.now(),
	}, map[string]any{"name": student.Name, "square": student.Square})
	g.mirrorLocked()
}

// Leave is an explicit departure: the student is purged without a grace
// period once this was its last connection. The socket stays open.
func (g *Game) Leave(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InLeave) {
		return
	}
	g.releaseLocked(connID, domain.ReasonClientLeft)
}

// Move moves the caller's token, or the token named in the payload.
func (g *Game) Move(connID string, p MovePayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InMove) {
		return
	}
	target := p.ID
	if target == "" {
		id, ok := g.presence.StudentFor(connID)
		if !ok {
			return
		}
		target = id
	}
	g.moveLocked(target, p.Roll, p.Square, false)
}

// AdminAdjustSquare places a student directly on a square.
func (g *Game) AdminAdjustSquare(connID string, p AdjustSquarePayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InAdminAdjustSquare) {
		return
	}
	if p.ID == "" || p.Square == nil {
		return
	}
	g.moveLocked(p.ID, nil, p.Square, true)
}

func (g *Game) moveLocked(target string, roll, square *int, admin bool) {
	oldSquare, newSquare, ok := g.presence.Move(target, roll, square)
	if !ok {
		return
	}
	update := domain.MoveUpdate{ID: target, Old: oldSquare, New: newSquare, Admin: admin}
	if square == nil && roll != nil {
		update.Roll = *roll
	}
	g.broadcastLocked(domain.OutMove, update)
	g.broadcastLocked(domain.OutStudents, g.presence.Snapshot())
	kind := "move"
	if admin {
		kind = "admin-move"
	}
	g.recorder.Append(g.state.SessionSlug, domain.ReplayEvent{
		Kind:      kind,
		StudentID: target,
		CreatedAt: g.now(),
	}, update)
	g.mirrorLocked()
}

// Answer records the caller's answer for the current question.
func (g *Game) Answer(connID string, p AnswerPayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InAnswer) {
		return
	}
	studentID, ok := g.presence.StudentFor(connID)
	if !ok || p.AnswerIdx == nil {
		return
	}
	if !g.votes.Record(studentID, *p.AnswerIdx) {
		return
	}
	g.broadcastLocked(domain.OutVotes, g.votes.Tally())
	g.recorder.Append(g.state.SessionSlug, domain.ReplayEvent{
		Kind:      "answer",
		StudentID: studentID,
		CreatedAt: g.now(),
	}, map[string]int{"answerIdx": *p.AnswerIdx, "questionIdx": g.state.QuestionIdx})
}

// Rename replaces a student's name with the moderation placeholder.
func (g *Game) Rename(connID string, p RenamePayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InRename) {
		return
	}
	if !g.presence.Rename(p.ID, g.cfg.PlaceholderName) {
		return
	}
	g.broadcastLocked(domain.OutStudents, g.presence.Snapshot())
	g.mirrorLocked()
}

// Restart wipes the game back to its initial state. Quizmaster name and
// visibility survive.
func (g *Game) Restart(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InRestart) {
		return
	}
	g.recorder.Complete(g.state.SessionSlug, g.finalPositionsLocked())

	g.presence.PurgeAll()
	g.votes.Clear()
	g.state = domain.GameState{}
	g.quizmaster.Reset()
	g.log.WithField("conn", connID).Info("game restarted")

	g.broadcastLocked(domain.OutRestarted, RestartedPayload{At: g.now().UnixMilli()})
	g.broadcastLocked(domain.OutStudents, g.presence.Snapshot())
	g.broadcastLocked(domain.OutVotes, g.votes.Tally())
	g.broadcastLocked(domain.OutQuizmaster, g.quizmaster.State())
	g.broadcastLocked(domain.OutPhase, domain.PhaseUpdate{Phase: g.state.Phase, QuestionIdx: g.state.QuestionIdx})
	g.mirrorLocked()
}

// LoadQuiz replaces the quiz and opens a new replay session.
func (g *Game) LoadQuiz(connID string, p LoadQuizPayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InLoadQuiz) {
		return
	}
	if strings.TrimSpace(p.Content) == "" || utf8.RuneCountInString(p.Content) > g.cfg.MaxQuizLength {
		return
	}
	g.recorder.Complete(g.state.SessionSlug, g.finalPositionsLocked())

	filename := Sanitize(path.Base(p.Filename), 128)
	if filename == "." || filename == "/" {
		filename = ""
	}
	slug := g.newSlug()
	g.state = domain.GameState{
		QuizContent: p.Content,
		Filename:    filename,
		Phase:       1,
		QuestionIdx: 0,
		SessionSlug: slug,
	}
	g.votes.Clear()

	name := quizName(filename)
	g.recorder.Begin(domain.ReplaySession{
		ID:          g.newID(),
		Slug:        slug,
		QuizName:    name,
		QuizContent: p.Content,
		Status:      domain.SessionActive,
		CreatedAt:   g.now(),
	})
	g.notifyLocked(slug, name)
	g.log.WithFields(logrus.Fields{"slug": slug, "quiz": name}).Info("quiz loaded")

	g.broadcastLocked(domain.OutQuizLoaded, domain.QuizLoaded{
		Content:     p.Content,
		Filename:    filename,
		Phase:       g.state.Phase,
		QuestionIdx: g.state.QuestionIdx,
	})
	g.broadcastLocked(domain.OutVotes, g.votes.Tally())
	g.mirrorLocked()
}

func quizName(filename string) string {
	name := strings.TrimSuffix(filename, path.Ext(filename))
	if name == "" {
		return "Untitled quiz"
	}
	return name
}

// AdvancePhase moves the phase and question pointers. The quizmaster rule
// reads this question's answers before they are cleared.
func (g *Game) AdvancePhase(connID string, p AdvancePhasePayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InAdvancePhase) {
		return
	}
	if p.NextPhase == nil || p.NextQuestionIdx == nil || *p.NextPhase < 0 || *p.NextQuestionIdx < 0 {
		return
	}
	from := g.state.Phase
	moved := g.quizmaster.RecordPhaseTransition(from, *p.NextPhase, p.CorrectIdxs, g.votes.Answers())

	g.state.Phase = *p.NextPhase
	g.state.QuestionIdx = *p.NextQuestionIdx
	g.votes.Clear()

	update := domain.PhaseUpdate{Phase: g.state.Phase, QuestionIdx: g.state.QuestionIdx, CorrectIdxs: p.CorrectIdxs}
	g.broadcastLocked(domain.OutPhase, update)
	g.broadcastLocked(domain.OutVotes, g.votes.Tally())
	if moved > 0 {
		g.broadcastLocked(domain.OutQuizmaster, g.quizmaster.State())
	}
	g.recorder.Append(g.state.SessionSlug, domain.ReplayEvent{
		Kind:      "phase",
		CreatedAt: g.now(),
	}, map[string]any{"from": from, "to": update.Phase, "questionIdx": update.QuestionIdx, "quizmasterMove": moved})
	g.mirrorLocked()
}

// QuizmasterToggle shows or hides the quizmaster on clients.
func (g *Game) QuizmasterToggle(connID string, p QuizmasterTogglePayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InAdminQuizmasterToggle) || p.Enabled == nil {
		return
	}
	g.quizmaster.SetEnabled(*p.Enabled)
	g.quizmasterChangedLocked()
}

func (g *Game) QuizmasterName(connID string, p QuizmasterNamePayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InAdminQuizmasterName) {
		return
	}
	if !g.quizmaster.SetName(p.Name) {
		return
	}
	g.quizmasterChangedLocked()
}

func (g *Game) QuizmasterSquare(connID string, p QuizmasterSquarePayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InAdminQuizmasterSquare) || p.Square == nil {
		return
	}
	if !g.quizmaster.SetSquare(*p.Square) {
		return
	}
	g.quizmasterChangedLocked()
}

func (g *Game) quizmasterChangedLocked() {
	g.broadcastLocked(domain.OutQuizmaster, g.quizmaster.State())
	g.mirrorLocked()
}

// Sync replies to the caller only. Admin syncs also count open connections.
func (g *Game) Sync(connID string, admin bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kind := domain.InSyncRequest
	if admin {
		kind = domain.InAdminSyncRequest
	}
	if !g.allowLocked(connID, kind) {
		return
	}
	snapshot := g.snapshotLocked()
	if admin {
		snapshot.Connections = len(g.clients)
	}
	g.sendLocked(connID, domain.OutSync, snapshot)
}

// Ping echoes the server clock to the caller.
func (g *Game) Ping(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowLocked(connID, domain.InPing) {
		return
	}
	g.sendLocked(connID, domain.OutPong, PongPayload{ServerTime: g.now().UnixMilli()})
}
