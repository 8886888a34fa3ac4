package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/JonMunkholm/sheetedit/internal/logging"
	"github.com/google/uuid"
)

// SessionHeader lets API clients select a session without cookies.
const SessionHeader = "X-Session-ID"

type sessionKey struct{}

// WithRequestMetadata adds IP and User-Agent to context for the import history.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	// RemoteAddr has been processed by TrustedRealIP
	return core.ContextWithClient(ctx, r.RemoteAddr, r.Header.Get("User-Agent"))
}

// sessionCookie resolves the editing session of a request. The id comes
// from the session header or cookie; a missing or malformed id is replaced
// by a fresh one and the cookie is set.
func (s *Server) sessionCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
				id = c.Value
			}
		}

		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(s.cfg.Session.CookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   s.cfg.Session.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, id)
		ctx = logging.WithSession(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionID returns the session id resolved by sessionCookie.
func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}
