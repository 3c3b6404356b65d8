package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/cafe-order-service/internal/customer"
	"github.com/vasiliy-maslov/cafe-order-service/internal/kitchen"
	"github.com/vasiliy-maslov/cafe-order-service/internal/order"
)

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("handler: failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	var invalidTransition *order.InvalidTransitionError
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.As(err, &invalidTransition),
		errors.Is(err, order.ErrStatusAlreadySet),
		errors.Is(err, order.ErrStatusTerminal),
		errors.Is(err, kitchen.ErrUpdateInFlight):
		return http.StatusConflict
	case errors.Is(err, kitchen.ErrRejectNotConfirmed),
		errors.Is(err, customer.ErrInvalidRating),
		errors.Is(err, customer.ErrFeedbackNotEligible),
		errors.Is(err, order.ErrNoItems):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
