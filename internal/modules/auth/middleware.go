package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/signalist/signalist/internal/domain"
)

type contextKey struct{}

// WithUser returns a context carrying the signed-in user
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the signed-in user attached by Authenticate
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKey{}).(*domain.User)
	return user, ok && user != nil
}

// publicPrefixes are never redirected to the sign-in page
var publicPrefixes = []string{"/api", "/static", "/assets", "/favicon.ico", "/sign-in", "/sign-up", "/health"}

// IsPublicPath reports whether path bypasses the session guard
func IsPublicPath(path string) bool {
	for _, p := range publicPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Middleware guards pages and attaches the current user
type Middleware struct {
	signer  *CookieSigner
	service *Service
	log     zerolog.Logger
}

// NewMiddleware creates the auth middleware
func NewMiddleware(signer *CookieSigner, service *Service, log zerolog.Logger) *Middleware {
	return &Middleware{
		signer:  signer,
		service: service,
		log:     log.With().Str("component", "auth_middleware").Logger(),
	}
}

// RequireSession redirects to /sign-in when a non-public request lacks a validly signed
// session cookie. It only checks the signature; handlers resolve the user.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := m.signer.TokenFromRequest(r); !ok {
			http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate attaches the session's user to the request context when there is one.
// Requests without a live session pass through unchanged.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := m.signer.TokenFromRequest(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.service.UserForToken(r.Context(), token)
		if err != nil {
			m.log.Debug().Err(err).Msg("Session not resolved")
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireUser rejects API requests without a resolved user with 401
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
