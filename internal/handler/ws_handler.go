package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

// outboxSize bounds queued frames per connection. State frames are dropped
// when it is full; the next tick carries a fresh one.
const outboxSize = 32

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the exam session over a WebSocket.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/session/stream?token=
// Accepts the same actions as the REST endpoints and pushes the session view
// after every change and every countdown tick.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ctrl, err := h.sessionService.Controller(c.Request.Context(), claims.DeviceID)
	if err != nil {
		fail(c, err)
		return
	}
	if ctrl.ExamID().String() != claims.ExamID {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("device_id", claims.DeviceID).
		Int("student_id", claims.StudentID).
		Str("exam_id", claims.ExamID).
		Logger()
	wsLog.Info().Msg("Student connected")

	out := make(chan interface{}, outboxSize)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for frame := range out {
			if err := ws.WriteTyped(conn, frame); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, closing")
				// Unblocks the reader below.
				conn.Close()
				for range out {
				}
				return
			}
		}
	}()

	send := func(frame interface{}) {
		select {
		case out <- frame:
		case <-writerDone:
		}
	}

	// The callback runs under the controller lock, so it never blocks.
	unsubscribe := ctrl.Subscribe(func(v proctor.View) {
		select {
		case out <- ws.StateEvent{Event: ws.EventState, Session: v}:
		default:
		}
	})
	send(ws.StateEvent{Event: ws.EventState, Session: ctrl.View()})

	ctx := c.Request.Context()
	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}
		if frame := h.dispatch(ctx, ctrl, &msg); frame != nil {
			send(frame)
		}
	}

	unsubscribe()
	close(out)
	<-writerDone
}

// dispatch applies one client action and returns the direct reply, if any.
// State changes reach the client through the subscription.
func (h *WSHandler) dispatch(ctx context.Context, ctrl *proctor.Controller, msg *ws.RequestPayload) interface{} {
	var (
		res *model.ExamResult
		err error
	)

	switch msg.Action {
	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}
	case ws.ActionSelectAnswer:
		if msg.Option == nil {
			return wsError(msg.Action, proctor.ErrInvalidOption)
		}
		err = ctrl.SelectAnswer(ctx, msg.QuestionID, *msg.Option)
	case ws.ActionToggleFlag:
		_, err = ctrl.ToggleFlag(ctx, msg.QuestionID)
	case ws.ActionNavigate:
		if msg.Index == nil {
			return wsError(msg.Action, proctor.ErrIndexOutOfRange)
		}
		err = ctrl.Navigate(ctx, *msg.Index)
	case ws.ActionRequestFinish:
		_, err = ctrl.RequestFinish(ctx)
	case ws.ActionCancelFinish:
		err = ctrl.CancelFinish(ctx)
	case ws.ActionConfirmFinish:
		res, err = ctrl.ConfirmFinish(ctx)
	case ws.ActionAckViolation:
		res, err = ctrl.AcknowledgeViolation(ctx)
	case ws.ActionSignal:
		if msg.Signal == nil {
			return ws.ErrorFrame(msg.Action, string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
		}
		return ws.ReactionEvent{Event: ws.EventReaction, Reaction: ctrl.Signal(ctx, *msg.Signal)}
	default:
		h.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		return ws.ErrorFrame(msg.Action, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
	}

	if err != nil {
		return wsError(msg.Action, err)
	}
	if res != nil {
		return ws.ResultEvent{Event: ws.EventResult, Score: res.Score, FinishReason: string(res.FinishReason)}
	}
	return nil
}

func wsError(action ws.Action, err error) ws.ErrorResponse {
	_, code := mapError(err)
	if errors.Is(err, proctor.ErrNetwork) && (action == ws.ActionConfirmFinish || action == ws.ActionAckViolation) {
		code = response.ErrSubmitFailed
	}
	return ws.ErrorFrame(action, string(code), response.GetMessage(code))
}
