package handler

import (
	"net/http"

	"github.com/vasiliy-maslov/cafe-order-service/internal/order"
)

// StatsHandler serves the admin statistics view: order counts and revenue
// grouped by status.
type StatsHandler struct {
	repo order.Repository
}

func NewStatsHandler(repo order.Repository) *StatsHandler {
	return &StatsHandler{repo: repo}
}

func (h *StatsHandler) StatusStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.StatusStats(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
