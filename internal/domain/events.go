package domain

// Inbound message types.
const (
	InJoin                  = "join"
	InMove                  = "move"
	InAnswer                = "answer"
	InLeave                 = "leave"
	InRename                = "rename"
	InRestart               = "restart"
	InLoadQuiz              = "load-quiz"
	InAdvancePhase          = "advance-phase"
	InAdminAdjustSquare     = "admin-adjust-square"
	InAdminQuizmasterToggle = "admin-quizmaster-toggle"
	InAdminQuizmasterName   = "admin-quizmaster-name"
	InAdminQuizmasterSquare = "admin-quizmaster-square"
	InSyncRequest           = "sync-request"
	InAdminSyncRequest      = "admin-sync-request"
	InPing                  = "ping"
)

// Outbound message types.
const (
	OutJoined     = "joined"
	OutStudents   = "students"
	OutVotes      = "votes"
	OutQuizmaster = "quizmaster"
	OutQuizLoaded = "quiz-loaded"
	OutPhase      = "phase"
	OutMove       = "move"
	OutRestarted  = "restarted"
	OutSync       = "sync"
	OutPong       = "pong"
)

// Disconnect reasons. Only ReasonClientLeft skips the grace period.
const (
	ReasonClientLeft     = "client left"
	ReasonTransportClose = "transport close"
	ReasonTransportError = "transport error"
	ReasonRebound        = "rebound"
)
