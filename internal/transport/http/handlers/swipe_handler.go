package handlers

import (
	"errors"
	"net/http"

	"github.com/itsmeHabibs/poundrr-backend/internal/domain/model"
	authsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/auth"
	swipesvc "github.com/itsmeHabibs/poundrr-backend/internal/services/swipes"
	"github.com/itsmeHabibs/poundrr-backend/internal/transport/http/dto"
	httperrors "github.com/itsmeHabibs/poundrr-backend/internal/transport/http/errors"
)

// SwipeHandler records a decision directly, bypassing the deck session.
// Clients that track their own deck (or replay buffered offline swipes)
// use this instead of the release endpoint.
type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	direction, err := model.ParseDirection(req.Direction)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "direction must be left or right")
		return
	}

	result, err := h.service.Commit(r.Context(), identity.UserID, req.TargetID, direction)
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		default:
			if tf, ok := swipesvc.IsTooFast(err); ok {
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
					Code:          "TOO_FAST",
					Message:       "too many swipes, slow down",
					RetryAfterSec: tf.RetryAfterSec,
				})
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to record swipe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeResponse{
		OK:           true,
		MatchCreated: result.MatchCreated,
		ChannelID:    result.ChannelID,
		Queued:       result.Queued,
	})
}
