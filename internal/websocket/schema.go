package websocket

import (
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelectAnswer  Action = "select_answer"
	ActionToggleFlag    Action = "toggle_flag"
	ActionNavigate      Action = "navigate"
	ActionRequestFinish Action = "request_finish"
	ActionCancelFinish  Action = "cancel_finish"
	ActionConfirmFinish Action = "confirm_finish"
	ActionAckViolation  Action = "acknowledge_violation"
	ActionSignal        Action = "signal"
	ActionPing          Action = "ping"
)

// RequestPayload is the single client frame shape. Fields are read
// according to Action.
type RequestPayload struct {
	Action     Action          `json:"action"`
	QuestionID string          `json:"question_id,omitempty"`
	Option     *int            `json:"option,omitempty"`
	Index      *int            `json:"index,omitempty"`
	Signal     *proctor.Signal `json:"signal,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState    Event = "state"
	EventReaction Event = "reaction"
	EventResult   Event = "result"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// StateEvent is pushed after every change and every tick.
type StateEvent struct {
	Event   Event        `json:"event"`
	Session proctor.View `json:"session"`
}

// ReactionEvent answers a signal.
type ReactionEvent struct {
	Event    Event            `json:"event"`
	Reaction proctor.Reaction `json:"reaction"`
}

// ResultEvent reports a completed submission.
type ResultEvent struct {
	Event        Event  `json:"event"`
	Score        int    `json:"score"`
	FinishReason string `json:"finish_reason"`
}

type ErrorResponse struct {
	Event  Event  `json:"event"`
	Action Action `json:"action,omitempty"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
