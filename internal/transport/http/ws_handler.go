package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// GameService is the orchestrator surface the websocket handler drives.
type GameService interface {
	CreateSession(ctx context.Context, hostID string, src app.QuestionSource) (string, error)
	JoinSession(ctx context.Context, connID, pin, nickname string) error
	StartSession(ctx context.Context, requesterID, pin string, timeLimitSeconds int) error
	SubmitAnswer(ctx context.Context, playerID, pin string, optionIndex int) error
	RequestResults(ctx context.Context, requesterID, pin string) error
	AdvanceQuestion(ctx context.Context, requesterID, pin string) error
	EndSession(ctx context.Context, requesterID, pin string) error
	Disconnect(ctx context.Context, connID string)
}

// Inbound message types.
const (
	msgCreateSession  = "create-session"
	msgJoin           = "join"
	msgStart          = "start"
	msgSubmitAnswer   = "submit-answer"
	msgRequestResults = "request-results"
	msgAdvance        = "advance"
	msgEndSession     = "end-session"
)

type WSHandler struct {
	service  GameService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service GameService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
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

type createPayload struct {
	Questions []domain.Question `json:"questions"`
	QuizID    string            `json:"quizId"`
}

type joinPayload struct {
	PIN      string `json:"pin"`
	Nickname string `json:"nickname"`
}

type startPayload struct {
	PIN             string `json:"pin"`
	AnswerTimeLimit int    `json:"answerTimeLimit"`
}

type answerPayload struct {
	PIN         string   `json:"pin"`
	OptionIndex *float64 `json:"optionIndex"`
}

type pinPayload struct {
	PIN string `json:"pin"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the game use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	connID, events := h.hub.Register()
	log.Debug().Str("conn", connID).Str("remote", r.RemoteAddr).Msg("client connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Str("conn", connID).Msg("ws write error")
				// keep draining until the hub closes the queue
				for range events {
				}
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, connID, inbound)
	}

	h.service.Disconnect(context.Background(), connID)
	h.hub.Unregister(connID)
	<-writerDone
	log.Debug().Str("conn", connID).Msg("client disconnected")
}

func (h *WSHandler) dispatch(ctx context.Context, connID string, in inboundMessage) {
	switch in.Type {
	case msgCreateSession:
		var p createPayload
		if !h.decode(connID, in, &p) {
			return
		}
		src := app.QuestionSource{Questions: p.Questions, QuizID: p.QuizID}
		if _, err := h.service.CreateSession(ctx, connID, src); err != nil {
			h.sendError(connID, err)
		}

	case msgJoin:
		var p joinPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			h.sendJoinFailure(connID, "", domain.ErrValidation)
			return
		}
		if err := h.service.JoinSession(ctx, connID, p.PIN, p.Nickname); err != nil {
			h.sendJoinFailure(connID, p.PIN, err)
		}

	case msgStart:
		var p startPayload
		if !h.decode(connID, in, &p) {
			return
		}
		if err := h.service.StartSession(ctx, connID, p.PIN, p.AnswerTimeLimit); err != nil {
			h.sendError(connID, err)
		}

	case msgSubmitAnswer:
		var p answerPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return
		}
		err := h.service.SubmitAnswer(ctx, connID, p.PIN, optionIndex(p.OptionIndex))
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrAnswerRejected):
			h.hub.Send(connID, app.Event{Type: app.EventAnswerRejected, Payload: app.AnswerRejectedPayload{
				Reason: domain.Reason(err),
			}})
		default:
			h.sendError(connID, err)
		}

	case msgRequestResults, msgAdvance, msgEndSession:
		var p pinPayload
		if !h.decode(connID, in, &p) {
			return
		}
		var err error
		switch in.Type {
		case msgRequestResults:
			err = h.service.RequestResults(ctx, connID, p.PIN)
		case msgAdvance:
			err = h.service.AdvanceQuestion(ctx, connID, p.PIN)
		default:
			err = h.service.EndSession(ctx, connID, p.PIN)
		}
		if err != nil {
			h.sendError(connID, err)
		}

	default:
		h.hub.Send(connID, app.Event{Type: app.EventError, Payload: app.ErrorPayload{
			Message: "unsupported message type",
			Reason:  "unsupported",
		}})
	}
}

func (h *WSHandler) decode(connID string, in inboundMessage, dst any) bool {
	if err := decodePayload(in.Payload, dst); err != nil {
		h.hub.Send(connID, app.Event{Type: app.EventError, Payload: app.ErrorPayload{
			Message: "invalid " + in.Type + " payload",
			Reason:  domain.Reason(domain.ErrValidation),
		}})
		return false
	}
	return true
}

func (h *WSHandler) sendError(connID string, err error) {
	reason := domain.Reason(err)
	if reason == "internal" {
		log.Error().Err(err).Str("conn", connID).Msg("request failed")
	}
	h.hub.Send(connID, app.Event{Type: app.EventError, Payload: app.ErrorPayload{
		Message: err.Error(),
		Reason:  reason,
	}})
}

func (h *WSHandler) sendJoinFailure(connID, pin string, err error) {
	h.hub.Send(connID, app.Event{Type: app.EventJoinResult, Payload: app.JoinResultPayload{
		Success: false,
		PIN:     pin,
		Error:   err.Error(),
		Reason:  domain.Reason(err),
	}})
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// optionIndex maps a JSON number to an option index; anything that is not an
// integer becomes -1, which the game ignores.
func optionIndex(v *float64) int {
	if v == nil || math.IsNaN(*v) || *v != math.Trunc(*v) || math.Abs(*v) > math.MaxInt32 {
		return -1
	}
	return int(*v)
}
