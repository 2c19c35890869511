package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/klingkit/jwt"
)

// Error codes written in the rejection envelope.
const (
	CodeAuthFailed      = 1000
	CodeAuthEmpty       = 1001
	CodeAuthInvalid     = 1002
	CodeAuthNotValidYet = 1003
	CodeAuthExpired     = 1004
)

// SecretResolver maps an access key to its signing secret.
type SecretResolver interface {
	SecretFor(ctx context.Context, accessKey string) (string, bool)
}

// StaticSecrets is a fixed access-key to secret-key map.
type StaticSecrets map[string]string

func (s StaticSecrets) SecretFor(_ context.Context, accessKey string) (string, bool) {
	secret, ok := s[accessKey]
	return secret, ok
}

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims stored by [Guard].
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return c, ok
}

// RequireSignedToken guards handlers with a fixed secret map and the wall clock.
func RequireSignedToken(secrets StaticSecrets) func(http.Handler) http.Handler {
	return Guard(secrets, time.Now)
}

// Guard returns middleware that verifies the bearer token at now() and injects its claims
// into the request context.
func Guard(resolver SecretResolver, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				reject(w, r, CodeAuthFailed, "Authentication failed")
				return
			}

			header := r.Header.Get("Authorization")
			if strings.TrimSpace(header) == "" {
				reject(w, r, CodeAuthEmpty, "Authorization is empty")
				return
			}
			token, ok := bearerToken(header)
			if !ok {
				reject(w, r, CodeAuthInvalid, "Authorization is invalid")
				return
			}

			_, unverified, err := jwt.Decode(token)
			if err != nil || unverified.Issuer == "" {
				reject(w, r, CodeAuthInvalid, "Authorization is invalid")
				return
			}
			secret, ok := resolver.SecretFor(r.Context(), unverified.Issuer)
			if !ok {
				reject(w, r, CodeAuthInvalid, "Authorization is invalid")
				return
			}

			claims, err := jwt.Verify(token, secret, now())
			switch {
			case errors.Is(err, jwt.ErrTokenNotValidYet):
				reject(w, r, CodeAuthNotValidYet, "Authorization is not yet valid")
				return
			case errors.Is(err, jwt.ErrTokenExpired):
				reject(w, r, CodeAuthExpired, "Authorization has expired")
				return
			case err != nil:
				reject(w, r, CodeAuthInvalid, "Authorization is invalid")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func reject(w http.ResponseWriter, r *http.Request, code int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":       code,
		"message":    message,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}
