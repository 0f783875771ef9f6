package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"examseat/pkg/logger"
)

const IdentityKey contextKey = "identity"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the caller capability extracted from the bearer token. The
// service trusts it as-is; issuing tokens is an external concern.
type Identity struct {
	UserID int64
	Role   string
}

func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// Authentication verifies the Authorization bearer token and stores the
// caller's Identity in the request context. Requests without a valid token
// are rejected before reaching any handler.
func Authentication(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := parseBearer(r.Header.Get("Authorization"), secret)
			if err != nil {
				log.Warn("Authentication failed",
					"request_id", requestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Invalid or missing credentials"}`))
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearer(header, secret string) (Identity, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return Identity{}, fmt.Errorf("missing bearer token")
	}

	token, err := jwt.Parse(strings.TrimPrefix(header, prefix), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("token has no subject")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, fmt.Errorf("invalid subject %q", sub)
	}

	role, _ := claims["role"].(string)
	if role != RoleUser && role != RoleAdmin {
		return Identity{}, fmt.Errorf("invalid role %q", role)
	}

	return Identity{UserID: userID, Role: role}, nil
}

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(Identity)
	return id, ok
}
