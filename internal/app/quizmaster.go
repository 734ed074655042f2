package app

import (
	"math"

	"quizboard-service/internal/domain"
)

// DefaultBoardSize is the number of squares on the shared board.
const DefaultBoardSize = 96

// Phases between which the quizmaster advances.
const (
	PhaseAnswering = 2
	PhaseReveal    = 3
)

// maxQuizmasterStep is the move for a fully wrong class.
const maxQuizmasterStep = 6

// QuizmasterController moves the NPC token according to how many students
// got the last question wrong.
type QuizmasterController struct {
	state     domain.QuizmasterState
	boardSize int
}

func NewQuizmasterController(name string, enabled bool, boardSize int) *QuizmasterController {
	if boardSize <= 0 {
		boardSize = DefaultBoardSize
	}
	return &QuizmasterController{
		state:     domain.QuizmasterState{Enabled: enabled, Name: SanitizeName(name)},
		boardSize: boardSize,
	}
}

// RecordPhaseTransition applies the wrong-answer rule on the answering to
// reveal transition and returns how far the quizmaster moved. Movement does
// not depend on Enabled.
func (q *QuizmasterController) RecordPhaseTransition(from, to int, correct []int, answers map[string]int) int {
	if from != PhaseAnswering || to != PhaseReveal {
		return 0
	}
	correctSet := make(map[int]struct{}, len(correct))
	for _, idx := range correct {
		if ValidAnswer(idx) {
			correctSet[idx] = struct{}{}
		}
	}
	if len(correctSet) == 0 {
		return 0
	}

	total, wrong := 0, 0
	for _, idx := range answers {
		if !ValidAnswer(idx) {
			continue
		}
		total++
		if _, ok := correctSet[idx]; !ok {
			wrong++
		}
	}
	if total == 0 {
		return 0
	}

	move := int(math.Round(float64(wrong) / float64(total) * maxQuizmasterStep))
	if move <= 0 {
		return 0
	}
	q.state.Square = (q.state.Square + move) % q.boardSize
	return move
}

func (q *QuizmasterController) SetEnabled(enabled bool) {
	q.state.Enabled = enabled
}

// SetName applies a sanitized name; empty names are ignored.
func (q *QuizmasterController) SetName(name string) bool {
	clean := SanitizeName(name)
	if clean == "" {
		return false
	}
	q.state.Name = clean
	return true
}

// SetSquare places the quizmaster on 0..boardSize inclusive.
func (q *QuizmasterController) SetSquare(square int) bool {
	if square < 0 || square > q.boardSize {
		return false
	}
	q.state.Square = square
	return true
}

// Reset returns the token to the start, keeping name and visibility.
func (q *QuizmasterController) Reset() {
	q.state.Square = 0
}

func (q *QuizmasterController) State() domain.QuizmasterState {
	return q.state
}
