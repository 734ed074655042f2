package domain

import (
	"encoding/json"
	"time"
)

// Student is a durable player identity that survives reconnects.
type Student struct {
	ID        string
	Name      string
	JoinedAt  time.Time
	Square    int
	Moderated bool
}

// StudentView is the broadcast-friendly row of the student list.
type StudentView struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
	Square   int       `json:"square"`
}

// QuizmasterState is the NPC token controlled by class performance.
type QuizmasterState struct {
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
	Square  int    `json:"square"`
}

// GameState is the "what quiz, what phase" pointer set for the live game.
type GameState struct {
	QuizContent string `json:"quizContent"`
	Filename    string `json:"filename,omitempty"`
	Phase       int    `json:"phase"`
	QuestionIdx int    `json:"questionIdx"`
	SessionSlug string `json:"sessionSlug,omitempty"`
}

// Snapshot is the full view handed to a client on sync.
type Snapshot struct {
	Game       GameState       `json:"game"`
	Students   []StudentView   `json:"students"`
	Votes      map[int]int     `json:"votes"`
	Quizmaster QuizmasterState `json:"quizmaster"`
	TakenAt    time.Time       `json:"takenAt"`

	// Connections is only filled for admin syncs.
	Connections int `json:"connections,omitempty"`
}

// MoveUpdate describes a single token move.
type MoveUpdate struct {
	ID    string `json:"id"`
	Old   int    `json:"old"`
	New   int    `json:"new"`
	Roll  int    `json:"roll,omitempty"`
	Admin bool   `json:"admin"`
}

// PhaseUpdate is broadcast on every phase advance.
type PhaseUpdate struct {
	Phase       int   `json:"phase"`
	QuestionIdx int   `json:"questionIdx"`
	CorrectIdxs []int `json:"correctIdxs,omitempty"`
}

// QuizLoaded is broadcast when the teacher loads new content.
type QuizLoaded struct {
	Content     string `json:"content"`
	Filename    string `json:"filename,omitempty"`
	Phase       int    `json:"phase"`
	QuestionIdx int    `json:"questionIdx"`
}

// Envelope is the wire frame for every outbound event.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Replay session statuses.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// ReplaySession is the durable record of a played quiz.
type ReplaySession struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	QuizName    string     `json:"quizName"`
	QuizContent string     `json:"quizContent"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ReplayEvent is one gameplay event appended to a session log.
type ReplayEvent struct {
	Seq       int64           `json:"seq"`
	Kind      string          `json:"kind"`
	StudentID string          `json:"studentId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FinalPosition is a student's square when the session completed.
type FinalPosition struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Square    int    `json:"square"`
}

// Replay bundles everything needed for an asynchronous playthrough.
type Replay struct {
	Session   ReplaySession   `json:"session"`
	Events    []ReplayEvent   `json:"events"`
	Positions []FinalPosition `json:"positions"`
}
