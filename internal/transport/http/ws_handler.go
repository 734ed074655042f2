package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
)

// maxMessageSize fits a maximum length quiz in multi-byte text.
const maxMessageSize = 512 << 10

type WSHandler struct {
	game     *app.Game
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func NewWSHandler(game *app.Game, log logrus.FieldLogger) *WSHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHandler{
		game: game,
		log:  log.WithField("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and pumps envelopes between the socket and
// the game until either side goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	connID := uuid.NewString()
	log := h.log.WithField("conn", connID)
	queue := h.game.Connect(connID)
	log.Debug("connection opened")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for env := range queue {
			if err := conn.WriteJSON(outboundMessage[any]{Type: env.Type, Payload: env.Payload}); err != nil {
				log.WithError(err).Debug("ws write failed")
				conn.Close()
				// keep draining so the game never sees a stuck queue
				for range queue {
				}
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		conn.Close()
	}()

	reason := domain.ReasonTransportError
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			reason = disconnectReason(err)
			break
		}
		var inbound inboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			log.WithError(err).Debug("malformed message dropped")
			continue
		}
		if err := h.dispatch(connID, inbound); err != nil {
			log.WithError(err).WithField("type", inbound.Type).Debug("message dropped")
		}
	}

	h.game.Disconnect(connID, reason)
	<-writerDone
	log.WithField("reason", reason).Debug("connection closed")
}

// disconnectReason maps a read error to a presence reason. Only a normal
// closure counts as a deliberate departure.
func disconnectReason(err error) string {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Code == websocket.CloseNormalClosure {
			return domain.ReasonClientLeft
		}
		return domain.ReasonTransportClose
	}
	return domain.ReasonTransportError
}

var errUnknownType = errors.New("unsupported message type")

func (h *WSHandler) dispatch(connID string, msg inboundMessage) error {
	g := h.game
	switch msg.Type {
	case domain.InJoin:
		var p app.JoinPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g.Join(connID, p)
	case domain.InMove:
		var p app.MovePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g.Move(connID, p)
	case domain.InAnswer:
		var p app.AnswerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g.Answer(connID, p)
	case domain.InLeave:
		g.Leave(connID)
	case domain.InRename:
		var p app.RenamePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g.Rename(connID, p)
	case domain.InRestart:
		g.Restart(connID)
	case domain.InLoadQuiz:
		var p app.LoadQuizPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g.LoadQuiz(connID, p)
	case domain.InAdvancePhase:
		var p app.AdvancePhasePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g.AdvancePhase(connID, p)
	case domain.InAdminAdjustSquare:
		var p app.AdjustSquarePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g.AdminAdjustSquare(connID, p)
	case domain.InAdminQuizmasterToggle:
		var p app.QuizmasterTogglePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g.QuizmasterToggle(connID, p)
	case domain.InAdminQuizmasterName:
		var p app.QuizmasterNamePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g.QuizmasterName(connID, p)
	case domain.InAdminQuizmasterSquare:
		var p app.QuizmasterSquarePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g.QuizmasterSquare(connID, p)
	case domain.InSyncRequest:
		g.Sync(connID, false)
	case domain.InAdminSyncRequest:
		g.Sync(connID, true)
	case domain.InPing:
		g.Ping(connID)
	default:
		return errUnknownType
	}
	return nil
}

// decode treats a missing payload as an empty object.
func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
