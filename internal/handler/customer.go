package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/cafe-order-service/internal/customer"
	"github.com/vasiliy-maslov/cafe-order-service/internal/notify"
	"github.com/vasiliy-maslov/cafe-order-service/internal/order"
	"github.com/vasiliy-maslov/cafe-order-service/internal/session"
)

// CustomerHandler exposes checkout and the session-scoped customer view
// over HTTP. The session identifier comes from the request context, put
// there by session.Middleware.
type CustomerHandler struct {
	svc  order.Service
	repo order.Repository
	bus  *notify.Bus
}

func NewCustomerHandler(svc order.Service, repo order.Repository, bus *notify.Bus) *CustomerHandler {
	return &CustomerHandler{svc: svc, repo: repo, bus: bus}
}

func (h *CustomerHandler) viewFor(r *http.Request) (*customer.View, bool) {
	sid, ok := session.FromContext(r.Context())
	if !ok {
		return nil, false
	}
	return customer.NewView(h.repo, h.bus, sid), true
}

type checkoutItem struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

type checkoutRequest struct {
	Items []checkoutItem `json:"items"`
}

// Checkout creates an order from the session's cart snapshot.
func (h *CustomerHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusBadRequest, "missing session")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.Item{
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
		})
	}

	created, err := h.svc.Checkout(r.Context(), sid, items)
	if err != nil {
		log.Info().Err(err).Msg("handler: checkout failed")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// ListOrders returns the caller's own orders, newest first.
func (h *CustomerHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	view, ok := h.viewFor(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "missing session")
		return
	}

	if err := view.Refresh(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, view.Orders())
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SubmitFeedback records a rating for one of the caller's completed orders.
func (h *CustomerHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	view, ok := h.viewFor(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "missing session")
		return
	}

	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fb, err := view.SubmitFeedback(r.Context(), orderID, req.Rating, req.Comment)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, fb)
}

// Logout discards the session identifier. Old orders stay in the store,
// orphaned from the identity the next request will be issued.
func (h *CustomerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session.Clear(w)
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
