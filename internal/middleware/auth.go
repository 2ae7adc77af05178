package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/contact-desk/backend/internal/service/identity"
	"github.com/zhouzirui/contact-desk/backend/pkg/utils"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// TokenVerifier validates raw session tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*identity.Claims, error)
}

// Auth rejects requests that do not carry a valid session token.
type Auth struct {
	verifier TokenVerifier
	logger   zerolog.Logger
}

// NewAuth creates the token-checking middleware.
func NewAuth(verifier TokenVerifier, logger zerolog.Logger) *Auth {
	return &Auth{verifier: verifier, logger: logger}
}

// Require accepts the token from the Authorization header only.
func (a *Auth) Require(next http.Handler) http.Handler {
	return a.handler(next, false)
}

// RequireAllowingQuery also accepts an access_token query parameter, for
// websocket clients that cannot set headers.
func (a *Auth) RequireAllowingQuery(next http.Handler) http.Handler {
	return a.handler(next, true)
}

func (a *Auth) handler(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := BearerToken(r)
		if raw == "" && allowQuery {
			raw = r.URL.Query().Get("access_token")
		}
		if raw == "" {
			utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := a.verifier.Verify(r.Context(), raw)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) || errors.Is(err, identity.ErrTokenRevoked) {
				a.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
				utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("token verification failed")
			utils.RespondError(w, http.StatusInternalServerError, "authorization unavailable")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from the Authorization header. Both the raw
// token and the "Bearer <token>" form are accepted.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	return header
}

// ClaimsFromContext returns the verified claims, or nil outside Require.
func ClaimsFromContext(ctx context.Context) *identity.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*identity.Claims)
	return claims
}
