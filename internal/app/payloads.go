package app

// Inbound payloads. Optional fields are pointers so "absent" and "zero"
// stay distinguishable; anything else the client sends is ignored.

type JoinPayload struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId,omitempty"`
	Square    *int   `json:"square,omitempty"`
}

type MovePayload struct {
	ID     string `json:"id,omitempty"`
	Roll   *int   `json:"roll,omitempty"`
	Square *int   `json:"square,omitempty"`
}

type AnswerPayload struct {
	AnswerIdx *int `json:"answerIdx"`
}

type RenamePayload struct {
	ID string `json:"id"`
}

type LoadQuizPayload struct {
	Content  string `json:"content"`
	Filename string `json:"filename,omitempty"`
}

type AdvancePhasePayload struct {
	NextPhase       *int  `json:"nextPhase"`
	NextQuestionIdx *int  `json:"nextQuestionIdx"`
	CorrectIdxs     []int `json:"correctIdxs,omitempty"`
}

type AdjustSquarePayload struct {
	ID     string `json:"id"`
	Square *int   `json:"square"`
}

type QuizmasterTogglePayload struct {
	Enabled *bool `json:"enabled"`
}

type QuizmasterNamePayload struct {
	Name string `json:"name"`
}

type QuizmasterSquarePayload struct {
	Square *int `json:"square"`
}

// PongPayload answers a ping.
type PongPayload struct {
	ServerTime int64 `json:"serverTime"`
}

// RestartedPayload tells clients to reset their local UI.
type RestartedPayload struct {
	At int64 `json:"at"`
}
