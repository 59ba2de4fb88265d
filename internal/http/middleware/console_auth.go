package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const consoleClaimsKey contextKey = "consoleClaims"

// Console roles.
const (
	RoleOwner        = "owner"
	RolePractitioner = "practitioner"
)

// ConsoleClaims are the claims carried by console tokens.
type ConsoleClaims struct {
	Role        string `json:"role"`
	CounselorID string `json:"counselor_id,omitempty"`
	jwt.RegisteredClaims
}

// ConsoleJWT enforces an HMAC-signed JWT whose role claim is one of roles.
// With no roles any valid token passes.
func ConsoleJWT(secret string, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, `{"error": "console auth disabled"}`, http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error": "missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			claims := &ConsoleClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error": "invalid token"}`, http.StatusUnauthorized)
				return
			}
			if len(allowed) > 0 && !allowed[claims.Role] {
				http.Error(w, `{"error": "forbidden"}`, http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), consoleClaimsKey, *claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ConsoleClaimsFromContext returns console claims if present.
func ConsoleClaimsFromContext(ctx context.Context) (ConsoleClaims, bool) {
	claims, ok := ctx.Value(consoleClaimsKey).(ConsoleClaims)
	return claims, ok
}
