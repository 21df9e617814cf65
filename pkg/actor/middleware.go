package actor

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// claims is the subset of gateway-issued token claims this service reads.
type claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Middleware extracts the operator identity from a Bearer token issued by
// the auth gateway and attaches it to the request context. Requests without
// a token proceed with no actor; audit entries then record a system write.
// Tokens that fail signature or expiry checks are rejected outright.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")

			var c claims
			token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			a := &Actor{
				ID:    c.Subject,
				Name:  c.Name,
				Email: c.Email,
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
		})
	}
}
