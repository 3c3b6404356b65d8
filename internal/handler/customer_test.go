package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/cafe-order-service/internal/handler"
	"github.com/vasiliy-maslov/cafe-order-service/internal/notify"
	"github.com/vasiliy-maslov/cafe-order-service/internal/order"
	"github.com/vasiliy-maslov/cafe-order-service/internal/session"
)

type mockService struct {
	checkoutFunc func(ctx context.Context, sessionID string, items []order.Item) (*order.Order, error)
}

func (m *mockService) Checkout(ctx context.Context, sessionID string, items []order.Item) (*order.Order, error) {
	return m.checkoutFunc(ctx, sessionID, items)
}

func customerRouter(svc order.Service, repo order.Repository) *chi.Mux {
	h := handler.NewCustomerHandler(svc, repo, notify.NewBus())
	r := chi.NewRouter()
	r.Post("/orders", h.Checkout)
	r.Get("/orders", h.ListOrders)
	r.Post("/orders/{id}/feedback", h.SubmitFeedback)
	r.Post("/session/logout", h.Logout)
	return r
}

func withSession(r *http.Request, sessionID string) *http.Request {
	return r.WithContext(session.WithID(r.Context(), sessionID))
}

func TestCustomerHandler_Checkout(t *testing.T) {
	tests := []struct {
		name           string
		sessionID      string
		body           string
		checkoutFunc   func(ctx context.Context, sessionID string, items []order.Item) (*order.Order, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:      "success",
			sessionID: "session-a",
			body:      `{"items":[{"name":"latte","price_cents":450,"quantity":2}]}`,
			checkoutFunc: func(ctx context.Context, sessionID string, items []order.Item) (*order.Order, error) {
				id, _ := uuid.NewV4()
				return &order.Order{
					ID:         id,
					SessionID:  sessionID,
					Status:     order.StatusPlaced,
					Items:      items,
					TotalCents: 900,
				}, nil
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"status":"PLACED"`,
		},
		{
			name:      "empty_cart",
			sessionID: "session-a",
			body:      `{"items":[]}`,
			checkoutFunc: func(ctx context.Context, sessionID string, items []order.Item) (*order.Order, error) {
				return nil, order.ErrNoItems
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "at least one item",
		},
		{
			name:           "missing_session",
			sessionID:      "",
			body:           `{"items":[{"name":"latte","price_cents":450,"quantity":1}]}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "missing session",
		},
		{
			name:           "invalid_body",
			sessionID:      "session-a",
			body:           `{"items":`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{checkoutFunc: tt.checkoutFunc}
			router := customerRouter(svc, &mockRepository{})

			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(tt.body))
			if tt.sessionID != "" {
				req = withSession(req, tt.sessionID)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
		})
	}
}

func TestCustomerHandler_ListOrdersScopedToSession(t *testing.T) {
	var askedFor string
	repo := &mockRepository{
		ordersBySessionFunc: func(ctx context.Context, sessionID string) ([]order.Order, error) {
			askedFor = sessionID
			id, _ := uuid.NewV4()
			return []order.Order{{ID: id, SessionID: sessionID, Status: order.StatusReady, Items: []order.Item{}}}, nil
		},
	}
	router := customerRouter(&mockService{}, repo)

	req := withSession(httptest.NewRequest(http.MethodGet, "/orders", nil), "session-a")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "session-a", askedFor)

	var got []order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "session-a", got[0].SessionID)
}

func TestCustomerHandler_SubmitFeedback(t *testing.T) {
	completedID, _ := uuid.NewV4()
	repo := &mockRepository{
		getOrderByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: id, SessionID: "session-a", Status: order.StatusCompleted}, nil
		},
		insertFeedbackFunc: func(ctx context.Context, fb *order.Feedback) error {
			return nil
		},
	}
	router := customerRouter(&mockService{}, repo)

	req := withSession(httptest.NewRequest(http.MethodPost, "/orders/"+completedID.String()+"/feedback",
		bytes.NewBufferString(`{"rating":5,"comment":"great"}`)), "session-a")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rating":5`)
}

func TestCustomerHandler_Logout(t *testing.T) {
	router := customerRouter(&mockService{}, &mockRepository{})

	req := withSession(httptest.NewRequest(http.MethodPost, "/session/logout", nil), "session-a")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
