package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/cafe-order-service/internal/handler"
	"github.com/vasiliy-maslov/cafe-order-service/internal/kitchen"
	"github.com/vasiliy-maslov/cafe-order-service/internal/notify"
	"github.com/vasiliy-maslov/cafe-order-service/internal/order"
	"github.com/vasiliy-maslov/cafe-order-service/internal/session"
)

// NewRouter wires repositories, views and handlers into the HTTP surface.
// The returned kitchen view still needs Run(ctx) and an initial Refresh
// from the caller.
func NewRouter(dbConn *pgxpool.Pool, bus *notify.Bus) (*chi.Mux, *kitchen.View) {
	repo := order.NewRepository(dbConn)
	svc := order.NewService(repo)
	kitchenView := kitchen.NewView(repo, bus)

	customerHandler := handler.NewCustomerHandler(svc, repo, bus)
	kitchenHandler := handler.NewKitchenHandler(kitchenView)
	streamHandler := handler.NewStreamHandler(bus)
	statsHandler := handler.NewStatsHandler(repo)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(session.Middleware)
		r.Post("/orders", customerHandler.Checkout)
		r.Get("/orders", customerHandler.ListOrders)
		r.Get("/orders/stream", streamHandler.CustomerStream)
		r.Post("/orders/{id}/feedback", customerHandler.SubmitFeedback)
		r.Post("/session/logout", customerHandler.Logout)
	})

	r.Route("/kitchen", func(r chi.Router) {
		r.Get("/orders", kitchenHandler.ListOrders)
		r.Post("/refresh", kitchenHandler.Refresh)
		r.Post("/orders/{id}/status", kitchenHandler.UpdateStatus)
		r.Post("/orders/{id}/reject", kitchenHandler.Reject)
		r.Get("/stream", streamHandler.KitchenStream)
	})

	r.Get("/admin/stats", statsHandler.StatusStats)

	return r, kitchenView
}
