package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/cafe-order-service/internal/handler"
	"github.com/vasiliy-maslov/cafe-order-service/internal/kitchen"
	"github.com/vasiliy-maslov/cafe-order-service/internal/notify"
	"github.com/vasiliy-maslov/cafe-order-service/internal/order"
)

type mockRepository struct {
	createOrderFunc     func(ctx context.Context, o *order.Order) (uuid.UUID, error)
	getOrderByIDFunc    func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	activeOrdersFunc    func(ctx context.Context) ([]order.Order, error)
	ordersBySessionFunc func(ctx context.Context, sessionID string) ([]order.Order, error)
	updateStatusFunc    func(ctx context.Context, orderID uuid.UUID, newStatus order.Status) (*order.Order, error)
	insertFeedbackFunc  func(ctx context.Context, fb *order.Feedback) error
	statusStatsFunc     func(ctx context.Context) ([]order.StatusStat, error)
}

func (m *mockRepository) CreateOrder(ctx context.Context, o *order.Order) (uuid.UUID, error) {
	return m.createOrderFunc(ctx, o)
}

func (m *mockRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getOrderByIDFunc(ctx, id)
}

func (m *mockRepository) ActiveOrders(ctx context.Context) ([]order.Order, error) {
	return m.activeOrdersFunc(ctx)
}

func (m *mockRepository) OrdersBySession(ctx context.Context, sessionID string) ([]order.Order, error) {
	return m.ordersBySessionFunc(ctx, sessionID)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status) (*order.Order, error) {
	return m.updateStatusFunc(ctx, orderID, newStatus)
}

func (m *mockRepository) InsertFeedback(ctx context.Context, fb *order.Feedback) error {
	return m.insertFeedbackFunc(ctx, fb)
}

func (m *mockRepository) StatusStats(ctx context.Context) ([]order.StatusStat, error) {
	return m.statusStatsFunc(ctx)
}

func kitchenRouter(t *testing.T, repo order.Repository) (*chi.Mux, *kitchen.View) {
	t.Helper()

	view := kitchen.NewView(repo, notify.NewBus())
	require.NoError(t, view.Refresh(context.Background()))

	h := handler.NewKitchenHandler(view)
	r := chi.NewRouter()
	r.Get("/kitchen/orders", h.ListOrders)
	r.Post("/kitchen/refresh", h.Refresh)
	r.Post("/kitchen/orders/{id}/status", h.UpdateStatus)
	r.Post("/kitchen/orders/{id}/reject", h.Reject)
	return r, view
}

func activeOrder(status order.Status) order.Order {
	id, _ := uuid.NewV4()
	now := time.Now().UTC()
	return order.Order{ID: id, SessionID: "s", Status: status, Items: []order.Item{}, CreatedAt: now, UpdatedAt: now}
}

func TestKitchenHandler_UpdateStatus(t *testing.T) {
	placed := activeOrder(order.StatusPlaced)
	unknown, _ := uuid.NewV4()

	tests := []struct {
		name           string
		orderID        string
		body           string
		updateFunc     func(ctx context.Context, orderID uuid.UUID, newStatus order.Status) (*order.Order, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "success",
			orderID: placed.ID.String(),
			body:    `{"status":"ACCEPTED"}`,
			updateFunc: func(ctx context.Context, orderID uuid.UUID, newStatus order.Status) (*order.Order, error) {
				updated := placed
				updated.Status = newStatus
				return &updated, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"ACCEPTED"`,
		},
		{
			name:           "invalid_transition",
			orderID:        placed.ID.String(),
			body:           `{"status":"READY"}`,
			expectedStatus: http.StatusConflict,
			expectedBody:   "invalid status transition from PLACED to READY",
		},
		{
			name:           "same_status",
			orderID:        placed.ID.String(),
			body:           `{"status":"PLACED"}`,
			expectedStatus: http.StatusConflict,
			expectedBody:   "already has the requested status",
		},
		{
			name:           "unknown_status_value",
			orderID:        placed.ID.String(),
			body:           `{"status":"COOKING"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "unknown status value",
		},
		{
			name:           "order_not_found",
			orderID:        unknown.String(),
			body:           `{"status":"ACCEPTED"}`,
			expectedStatus: http.StatusNotFound,
			expectedBody:   "order not found",
		},
		{
			name:           "bad_order_id",
			orderID:        "not-a-uuid",
			body:           `{"status":"ACCEPTED"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid order id",
		},
		{
			name:    "write_silently_dropped",
			orderID: placed.ID.String(),
			body:    `{"status":"ACCEPTED"}`,
			updateFunc: func(ctx context.Context, orderID uuid.UUID, newStatus order.Status) (*order.Order, error) {
				return nil, order.ErrWriteDropped
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "silently dropped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{
				activeOrdersFunc: func(ctx context.Context) ([]order.Order, error) {
					return []order.Order{placed}, nil
				},
				updateStatusFunc: tt.updateFunc,
			}
			router, _ := kitchenRouter(t, repo)

			req := httptest.NewRequest(http.MethodPost, "/kitchen/orders/"+tt.orderID+"/status", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
		})
	}
}

func TestKitchenHandler_Reject(t *testing.T) {
	placed := activeOrder(order.StatusPlaced)
	repo := &mockRepository{
		activeOrdersFunc: func(ctx context.Context) ([]order.Order, error) {
			return []order.Order{placed}, nil
		},
		updateStatusFunc: func(ctx context.Context, orderID uuid.UUID, newStatus order.Status) (*order.Order, error) {
			updated := placed
			updated.Status = newStatus
			return &updated, nil
		},
	}
	router, view := kitchenRouter(t, repo)

	// Without confirmation the write is refused.
	req := httptest.NewRequest(http.MethodPost, "/kitchen/orders/"+placed.ID.String()+"/reject", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Confirmed reject completes the order and removes it from the view.
	req = httptest.NewRequest(http.MethodPost, "/kitchen/orders/"+placed.ID.String()+"/reject", bytes.NewBufferString(`{"confirm":true}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"COMPLETED"`)
	assert.Empty(t, view.Orders())
}

func TestKitchenHandler_ListOrders(t *testing.T) {
	placed := activeOrder(order.StatusPlaced)
	ready := activeOrder(order.StatusReady)
	repo := &mockRepository{
		activeOrdersFunc: func(ctx context.Context) ([]order.Order, error) {
			return []order.Order{ready, placed}, nil
		},
	}
	router, _ := kitchenRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/kitchen/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got []order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, ready.ID, got[0].ID)
	assert.Equal(t, placed.ID, got[1].ID)
}

func TestKitchenHandler_RefreshSurfacesFetchError(t *testing.T) {
	placed := activeOrder(order.StatusPlaced)
	healthy := true
	repo := &mockRepository{
		activeOrdersFunc: func(ctx context.Context) ([]order.Order, error) {
			if !healthy {
				return nil, context.DeadlineExceeded
			}
			return []order.Order{placed}, nil
		},
	}
	router, view := kitchenRouter(t, repo)

	healthy = false
	req := httptest.NewRequest(http.MethodPost, "/kitchen/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, view.Orders(), 1, "failed manual refresh keeps the last good view")
}
