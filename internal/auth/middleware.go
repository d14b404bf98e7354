package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type userContextKey struct{}

type Middleware struct {
	token  string
	userID uuid.UUID
}

func NewMiddleware(token string, userID uuid.UUID) Middleware {
	return Middleware{token: token, userID: userID}
}

// Guard rejects requests without the configured bearer token and attaches
// the operator's user id to the request context.
func (m Middleware) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if authz == "" {
			http.Error(w, "missing authorization", http.StatusUnauthorized)
			return
		}
		const prefix = "Bearer "
		if !strings.HasPrefix(authz, prefix) || !m.matches(strings.TrimPrefix(authz, prefix)) {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, m.userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) matches(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) == 1
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(userContextKey{})
	id, ok := v.(uuid.UUID)
	return id, ok
}
