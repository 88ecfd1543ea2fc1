package identity

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity represents the authenticated caller of an API request.
type Identity struct {
	// Token claims
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Request context
	RemoteIP net.IP
}

// FromClaims creates an Identity from verified bearer token claims.
func FromClaims(claims *jwt.RegisteredClaims) *Identity {
	id := &Identity{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// ClientIP returns the caller address of r, preferring the first
// X-Forwarded-For entry.
func ClientIP(r *http.Request) net.IP {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
