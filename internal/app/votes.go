package app

// MaxAnswerIndex is the highest selectable answer option.
const MaxAnswerIndex = 3

// ValidAnswer reports whether idx names an answer option.
func ValidAnswer(idx int) bool {
	return idx >= 0 && idx <= MaxAnswerIndex
}

// VoteTally holds the current question's answers, one per student.
type VoteTally struct {
	answers map[string]int
}

func NewVoteTally() *VoteTally {
	return &VoteTally{answers: make(map[string]int)}
}

// Record stores studentID's answer, replacing any earlier one.
func (t *VoteTally) Record(studentID string, idx int) bool {
	if studentID == "" || !ValidAnswer(idx) {
		return false
	}
	t.answers[studentID] = idx
	return true
}

// Tally counts answers per option. The map is rebuilt on every call.
func (t *VoteTally) Tally() map[int]int {
	counts := make(map[int]int)
	for _, idx := range t.answers {
		if ValidAnswer(idx) {
			counts[idx]++
		}
	}
	return counts
}

// Answers returns a copy of the raw answer map.
func (t *VoteTally) Answers() map[string]int {
	out := make(map[string]int, len(t.answers))
	for id, idx := range t.answers {
		out[id] = idx
	}
	return out
}

// Forget drops a purged student's answer.
func (t *VoteTally) Forget(studentID string) {
	delete(t.answers, studentID)
}

func (t *VoteTally) Clear() {
	t.answers = make(map[string]int)
}

func (t *VoteTally) Len() int {
	return len(t.answers)
}
