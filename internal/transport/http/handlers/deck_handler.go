package handlers

import (
	"errors"
	"net/http"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	authsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/auth"
	decksvc "github.com/itsmeHabibs/poundrr-backend/internal/services/deck"
	swipesvc "github.com/itsmeHabibs/poundrr-backend/internal/services/swipes"
	"github.com/itsmeHabibs/poundrr-backend/internal/transport/http/dto"
	httperrors "github.com/itsmeHabibs/poundrr-backend/internal/transport/http/errors"
)

type DeckHandler struct {
	service *decksvc.Service
}

func NewDeckHandler(service *decksvc.Service) *DeckHandler {
	return &DeckHandler{service: service}
}

func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "DECK_SERVICE_UNAVAILABLE", "deck service is unavailable")
		return
	}

	view, err := h.service.Snapshot(identity.UserID)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid deck request")
		return
	}

	httperrors.Write(w, http.StatusOK, mapDeckView(view))
}

func (h *DeckHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "DECK_SERVICE_UNAVAILABLE", "deck service is unavailable")
		return
	}

	view, err := h.service.Refresh(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, decksvc.ErrCardInFlight):
			writeConflict(w, "CARD_IN_FLIGHT", "finish the current card animation first")
		case errors.Is(err, decksvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid deck request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to refresh deck")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, mapDeckView(view))
}

func (h *DeckHandler) Release(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "DECK_SERVICE_UNAVAILABLE", "deck service is unavailable")
		return
	}

	var req dto.DeckReleaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.service.Release(r.Context(), identity.UserID, decksvc.Gesture{
		DX:            req.DX,
		VX:            req.VX,
		ViewportWidth: req.ViewportW,
	})
	if err != nil {
		switch {
		case errors.Is(err, decksvc.ErrValidation), errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid release request")
		case errors.Is(err, decksvc.ErrNoActiveCard):
			writeConflict(w, "NO_ACTIVE_CARD", "no card is being presented")
		case errors.Is(err, decksvc.ErrCardInFlight):
			writeConflict(w, "CARD_IN_FLIGHT", "previous card is still animating")
		default:
			if tf, ok := swipesvc.IsTooFast(err); ok {
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
					Code:          "TOO_FAST",
					Message:       "too many swipes, slow down",
					RetryAfterSec: tf.RetryAfterSec,
				})
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to process release")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DeckReleaseResponse{
		OK:           true,
		Committed:    result.Committed,
		Direction:    string(result.Direction),
		MatchCreated: result.MatchCreated,
		ChannelID:    result.ChannelID,
		Deck:         mapDeckView(result.View),
	})
}

func (h *DeckHandler) AnimationDone(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "DECK_SERVICE_UNAVAILABLE", "deck service is unavailable")
		return
	}

	view, err := h.service.AnimationDone(identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, decksvc.ErrNotAnimating):
			writeConflict(w, "NOT_ANIMATING", "no card animation to complete")
		case errors.Is(err, decksvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid deck request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to advance deck")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, mapDeckView(view))
}

func mapDeckView(view decksvc.View) dto.DeckResponse {
	return dto.DeckResponse{
		State:     string(view.State),
		Top:       mapDeckCard(view.Top),
		Next:      mapDeckCard(view.Next),
		Remaining: view.Remaining,
	}
}

func mapDeckCard(c *model.Candidate) *dto.DeckCardResponse {
	if c == nil {
		return nil
	}
	return &dto.DeckCardResponse{
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
		Age:         c.Age,
		WeightClass: c.WeightClass,
		Disciplines: c.Disciplines,
		Gym:         c.Gym,
		City:        c.City,
		PhotoURLs:   c.PhotoURLs,
	}
}
