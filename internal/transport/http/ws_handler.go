package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/quizspec"
)

type WSHandler struct {
	service  *app.QuizService
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// inboundMessage carries a command: type is the command type and payload
// holds its arguments.
type inboundMessage struct {
	Type    domain.CommandType `json:"type"`
	Payload json.RawMessage    `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Command domain.CommandType `json:"command,omitempty"`
	Message string             `json:"message"`
}

type rejectedPayload struct {
	Command domain.CommandType `json:"command"`
}

type diagnosticsPayload struct {
	Errors []domain.Diagnostic `json:"errors"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the room's session.
// Query: room (required), role=host|player (default player), teamId (players).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}
	actor := domain.Actor{Role: domain.RolePlayer, TeamID: r.URL.Query().Get("teamId")}
	switch role := domain.Role(r.URL.Query().Get("role")); role {
	case "", domain.RolePlayer:
	case domain.RoleHost:
		actor.Role = domain.RoleHost
	default:
		http.Error(w, "role must be host or player", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.WithFields(logrus.Fields{
		"room":   room,
		"role":   actor.Role,
		"team":   actor.TeamID,
		"remote": r.RemoteAddr,
	})

	if _, err := h.service.Join(r.Context(), room); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	// the request context is done by the time the client is gone
	defer h.service.Leave(context.Background(), room)

	updates, cancel, err := h.service.Subscribe(r.Context(), room)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	log.Info("websocket connected")

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if actor.Role != domain.RoleHost {
					update = update.ForPlayer(actor.TeamID)
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	var readErr error
	for {
		var inbound inboundMessage
		if readErr = conn.ReadJSON(&inbound); readErr != nil {
			break
		}
		if msg, ok := h.handle(r.Context(), room, actor, inbound); ok {
			send <- msg
		}
	}
	if readErr != nil && !websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log = log.WithError(readErr)
	}
	log.Info("websocket disconnected")

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle runs one inbound command. Accepted commands reach the client through
// the state subscription, so only rejections and errors are answered here.
func (h *WSHandler) handle(ctx context.Context, room string, actor domain.Actor, in inboundMessage) (outboundMessage[any], bool) {
	cmd, err := decodeCommand(in)
	if err != nil {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Command: in.Type, Message: err.Error()}}, true
	}

	_, accepted, err := h.service.Dispatch(ctx, room, actor, cmd)
	var verr *quizspec.ValidationError
	switch {
	case errors.As(err, &verr):
		return outboundMessage[any]{Type: "diagnostics", Payload: diagnosticsPayload{Errors: verr.Diagnostics}}, true
	case err != nil:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Command: cmd.Type, Message: err.Error()}}, true
	case !accepted:
		return outboundMessage[any]{Type: "rejected", Payload: rejectedPayload{Command: cmd.Type}}, true
	}
	return outboundMessage[any]{}, false
}

func decodeCommand(in inboundMessage) (domain.Command, error) {
	var cmd domain.Command
	if len(in.Payload) > 0 && string(in.Payload) != "null" {
		if err := json.Unmarshal(in.Payload, &cmd); err != nil {
			return domain.Command{}, fmt.Errorf("invalid %s payload: %w", in.Type, err)
		}
	}
	if in.Type == "" {
		return domain.Command{}, fmt.Errorf("missing command type")
	}
	cmd.Type = in.Type
	return cmd, nil
}
