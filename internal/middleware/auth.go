package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"prstocks-api/internal/service"
	"prstocks-api/pkg/apierror"
	"prstocks-api/pkg/response"
)

// AdminSessionKey is the context key for the validated admin session.
const AdminSessionKey contextKey = "admin_session"

// AdminTokenHeader carries the token issued by admin verification.
const AdminTokenHeader = "X-Admin-Token"

// TokenValidator is satisfied by *service.AdminService.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*service.AdminSession, error)
}

// RequireAdminToken rejects requests without a valid admin token. A Bearer
// Authorization header is accepted as well as X-Admin-Token.
func RequireAdminToken(tokens TokenValidator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(AdminTokenHeader)
			if token == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					token = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if token == "" {
				response.Error(w, apierror.Unauthorized("Admin token required. Use the "+AdminTokenHeader+" header."))
				return
			}

			session, err := tokens.ValidateToken(r.Context(), token)
			if err != nil {
				if !errors.Is(err, service.ErrInvalidAdminToken) {
					log.Error("admin token lookup failed", zap.Error(err))
					response.Error(w, apierror.ServiceUnavailable("admin session store unavailable"))
					return
				}
				response.Error(w, apierror.Unauthorized("Invalid or expired admin token"))
				return
			}

			ctx := context.WithValue(r.Context(), AdminSessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminSession retrieves the admin session from request context.
func GetAdminSession(ctx context.Context) *service.AdminSession {
	if s, ok := ctx.Value(AdminSessionKey).(*service.AdminSession); ok {
		return s
	}
	return nil
}
