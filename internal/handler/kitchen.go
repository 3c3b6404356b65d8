package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/cafe-order-service/internal/kitchen"
	"github.com/vasiliy-maslov/cafe-order-service/internal/order"
)

// KitchenHandler exposes the kitchen view over HTTP.
type KitchenHandler struct {
	view *kitchen.View
}

func NewKitchenHandler(view *kitchen.View) *KitchenHandler {
	return &KitchenHandler{view: view}
}

// ListOrders returns the current kitchen snapshot: all active orders,
// newest first.
func (h *KitchenHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.view.Orders())
}

// Refresh is the operator-triggered retry after a failed fetch. There is no
// automatic backoff anywhere else.
func (h *KitchenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.view.Refresh(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, h.view.Orders())
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves one order to the requested status.
func (h *KitchenHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	proposed := order.Status(req.Status)
	if !proposed.Valid() {
		respondWithError(w, http.StatusBadRequest, "unknown status value: "+req.Status)
		return
	}

	updated, err := h.view.UpdateStatus(r.Context(), orderID, proposed)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

type rejectRequest struct {
	Confirm bool `json:"confirm"`
}

// Reject forces an order straight to COMPLETED after explicit confirmation.
func (h *KitchenHandler) Reject(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	// An empty or malformed body means no confirmation; Reject refuses it.
	var req rejectRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	updated, err := h.view.Reject(r.Context(), orderID, req.Confirm)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}
