package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	pgrepo "github.com/itsmeHabibs/poundrr-backend/internal/repo/postgres"
	authsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/auth"
	chatsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/chat"
	"github.com/itsmeHabibs/poundrr-backend/internal/transport/http/dto"
	httperrors "github.com/itsmeHabibs/poundrr-backend/internal/transport/http/errors"
)

type ChatHandler struct {
	service *chatsvc.Service
}

func NewChatHandler(service *chatsvc.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

// History serves one ascending page. Cursorless requests get the
// latest page; before_at + before_id page upward from there.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	channelID := chi.URLParam(r, "channelID")
	query := r.URL.Query()

	var beforeAt time.Time
	beforeID := strings.TrimSpace(query.Get("before_id"))
	if raw := strings.TrimSpace(query.Get("before_at")); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "before_at must be RFC 3339")
			return
		}
		beforeAt = parsed
	}
	if (beforeID == "") != beforeAt.IsZero() {
		writeBadRequest(w, "VALIDATION_ERROR", "before_at and before_id go together")
		return
	}

	page, err := h.service.History(r.Context(), channelID, identity.UserID, beforeAt, beforeID, parseIntOrDefault(query.Get("limit"), 0))
	if err != nil {
		writeChatError(w, err, "failed to load messages")
		return
	}

	response := dto.ChatHistoryResponse{
		Items:   make([]dto.MessageResponse, 0, len(page.Messages)),
		HasMore: page.HasMore,
	}
	for _, msg := range page.Messages {
		response.Items = append(response.Items, mapMessage(msg))
	}
	if page.NextBeforeID != "" {
		at := page.NextBeforeAt
		response.NextBeforeAt = &at
		response.NextBeforeID = page.NextBeforeID
	}

	httperrors.Write(w, http.StatusOK, response)
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	msg, err := h.service.Send(r.Context(), chi.URLParam(r, "channelID"), identity.UserID, req.Text)
	if err != nil {
		writeChatError(w, err, "failed to send message")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SendMessageResponse{
		OK:      true,
		Message: mapMessage(msg),
	})
}

func writeChatError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, chatsvc.ErrEmptyMessage):
		writeBadRequest(w, "VALIDATION_ERROR", "message text is required")
	case errors.Is(err, model.ErrInvalidChannelID):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid channel id")
	case errors.Is(err, chatsvc.ErrNotParticipant):
		writeForbidden(w, "NOT_PARTICIPANT", "not a participant of this channel")
	case errors.Is(err, pgrepo.ErrChannelNotFound):
		writeNotFound(w, "CHANNEL_NOT_FOUND", "chat channel not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}

func mapMessage(msg model.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:           msg.ID,
		ChannelID:    msg.ChannelID,
		SenderUserID: msg.SenderUserID,
		Text:         msg.Text,
		CreatedAt:    msg.CreatedAt,
	}
}
