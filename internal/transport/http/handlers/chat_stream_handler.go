package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	authsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/auth"
	chatsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/chat"
	"github.com/itsmeHabibs/poundrr-backend/internal/transport/http/dto"
	httperrors "github.com/itsmeHabibs/poundrr-backend/internal/transport/http/errors"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

type chatFrame struct {
	Type    string                `json:"type"`
	Items   []dto.MessageResponse `json:"items,omitempty"`
	Message *dto.MessageResponse  `json:"message,omitempty"`
}

// ChatStreamHandler upgrades to a websocket and tails the channel. The
// subscription is opened and the initial page fetched before the
// upgrade, so every pre-upgrade failure still gets a plain HTTP status.
type ChatStreamHandler struct {
	service  *chatsvc.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewChatStreamHandler(service *chatsvc.Service, logger *zap.Logger) *ChatStreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatStreamHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *ChatStreamHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := h.service.Subscribe(ctx, chi.URLParam(r, "channelID"), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidChannelID):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid channel id")
		case errors.Is(err, chatsvc.ErrNotParticipant):
			writeForbidden(w, "NOT_PARTICIPANT", "not a participant of this channel")
		default:
			httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
				Code:    "STREAM_UNAVAILABLE",
				Message: "live chat is temporarily unavailable",
			})
		}
		return
	}
	defer func() { _ = sub.Close() }()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		return
	}
	defer func() { _ = conn.Close() }()

	// Reads are discarded; the read loop only notices the peer going
	// away and tears the stream down.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	initial := chatFrame{Type: "history", Items: make([]dto.MessageResponse, 0, len(sub.Initial))}
	for _, msg := range sub.Initial {
		initial.Items = append(initial.Items, mapMessage(msg))
	}
	if err := h.writeFrame(conn, initial); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, open := <-sub.Updates():
			if !open {
				return
			}
			mapped := mapMessage(msg)
			if err := h.writeFrame(conn, chatFrame{Type: "message", Message: &mapped}); err != nil {
				return
			}
		}
	}
}

func (h *ChatStreamHandler) writeFrame(conn *websocket.Conn, frame chatFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		h.logger.Debug("chat stream: write failed", zap.Error(err))
		return err
	}
	return nil
}
