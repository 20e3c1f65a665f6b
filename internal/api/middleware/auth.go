package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

// Authenticator resolves a bearer token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entities.User, error)
}

type userContextKey struct{}

// WithUser returns a context carrying the authenticated user
func WithUser(ctx context.Context, user *entities.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user set by Protect
func UserFromContext(ctx context.Context) (*entities.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*entities.User)
	return user, ok && user != nil
}

// Protect rejects requests without a valid bearer token
func Protect(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				writeAuthError(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			user, err := auth.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				status := apperrors.HTTPStatus(err)
				if status == http.StatusInternalServerError {
					writeAuthError(w, status, "internal server error")
					return
				}
				writeAuthError(w, http.StatusUnauthorized, apperrors.PublicMessage(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// Authorize restricts a protected route to the given roles
func Authorize(roles ...entities.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "Not authorized")
				return
			}
			if !slices.Contains(roles, user.Role) {
				writeAuthError(w, http.StatusForbidden, fmt.Sprintf("Role '%s' is not authorized", user.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}
