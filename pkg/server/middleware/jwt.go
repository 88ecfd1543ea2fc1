package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/doodlesbykumbi/scanstore/pkg/identity"
)

// JWTAuthenticator is middleware that validates HS256 bearer tokens
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator creates a new JWT authenticator middleware
func NewJWTAuthenticator(secret []byte) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret}
}

// IssueToken signs a token for sub that expires after ttl.
func (j *JWTAuthenticator) IssueToken(sub string, ttl time.Duration) (string, error) {
	if len(j.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// Middleware returns an HTTP middleware that validates bearer tokens and
// stores the caller identity in the request context.
func (j *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if len(authHeader) == 0 {
			unauthorized(w, "Authorization missing")
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			unauthorized(w, "Malformed authorization header")
			return
		}

		if len(j.secret) == 0 {
			unauthorized(w, "Token authentication is not configured")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			return j.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			unauthorized(w, "Token expired")
			return
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			unauthorized(w, "Invalid signature")
			return
		case err != nil:
			unauthorized(w, "Malformed authorization token")
			return
		}

		if claims.Subject == "" {
			unauthorized(w, "Token has no subject")
			return
		}

		id := identity.FromClaims(claims).WithRemoteIP(identity.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"code": "unauthorized", "message": message},
	})
}
