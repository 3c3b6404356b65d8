// Package session issues the opaque per-browser identifier used to scope
// the customer view. The identifier lives in a long-lived cookie; it is a
// visibility filter, not a credential.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cookieName   = "cafe_session"
	cookieMaxAge = 180 * 24 * time.Hour
)

type ctxKey struct{}

// NewID generates a fresh opaque session identifier.
func NewID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return id.String(), nil
}

// FromContext returns the session identifier attached by Middleware.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// WithID attaches a session identifier to ctx. Exposed for tests and for
// non-HTTP callers.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Middleware ensures every request carries a session identifier: an
// existing cookie is reused unchanged, a missing one gets a freshly
// generated value persisted back to the browser.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			id = c.Value
		} else {
			newID, err := NewID()
			if err != nil {
				log.Error().Err(err).Msg("session: failed to issue identifier")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			id = newID
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			log.Debug().Str("session_id", id).Msg("session: issued new identifier")
		}

		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

// Clear discards the persisted identifier. The next request generates a new
// one; the old session's orders stay in the store, orphaned from the new
// identity.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
