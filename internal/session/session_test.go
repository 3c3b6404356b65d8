package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/cafe-order-service/internal/session"
)

func TestMiddleware_IssuesAndReusesIdentifier(t *testing.T) {
	var seen []string
	h := session.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := session.FromContext(r.Context())
		require.True(t, ok)
		seen = append(seen, id)
	}))

	// First request: no cookie, a fresh identifier is issued and persisted.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	require.Len(t, seen, 1)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, seen[0], cookies[0].Value)
	assert.Positive(t, cookies[0].MaxAge)

	// Second request with the cookie: same identifier, no new Set-Cookie.
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
	assert.Empty(t, rec.Result().Cookies())
}

func TestClear_DiscardsIdentifier(t *testing.T) {
	rec := httptest.NewRecorder()
	session.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestNewID_Opaque(t *testing.T) {
	a, err := session.NewID()
	require.NoError(t, err)
	b, err := session.NewID()
	require.NoError(t, err)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
