package identity

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromClaims(t *testing.T) {
	iat := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	id := FromClaims(&jwt.RegisteredClaims{
		Subject:   "ci-runner",
		Issuer:    "scanstore",
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(time.Hour)),
	})

	assert.Equal(t, "ci-runner", id.Subject)
	assert.Equal(t, "scanstore", id.Issuer)
	assert.True(t, id.IssuedAt.Equal(iat))
	assert.True(t, id.ExpiresAt.Equal(iat.Add(time.Hour)))

	bare := FromClaims(&jwt.RegisteredClaims{Subject: "x"})
	assert.True(t, bare.IssuedAt.IsZero())
	assert.True(t, bare.ExpiresAt.IsZero())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		expected   string
	}{
		{
			name:       "remote address",
			remoteAddr: "10.0.0.1:5432",
			expected:   "10.0.0.1",
		},
		{
			name:       "forwarded for wins",
			remoteAddr: "10.0.0.1:5432",
			forwarded:  "203.0.113.9, 10.0.0.2",
			expected:   "203.0.113.9",
		},
		{
			name:       "invalid forwarded for is ignored",
			remoteAddr: "10.0.0.1:5432",
			forwarded:  "unknown",
			expected:   "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.expected, ClientIP(r).String())
		})
	}
}

func TestContextGetSet(t *testing.T) {
	ctx := context.Background()

	// Initially no identity
	id, ok := Get(ctx)
	assert.False(t, ok)
	assert.Nil(t, id)

	expected := (&Identity{Subject: "ci-runner"}).WithRemoteIP(net.ParseIP("192.168.1.100"))
	ctx = Set(ctx, expected)

	id, ok = Get(ctx)
	assert.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, "ci-runner", id.Subject)
	assert.Equal(t, "192.168.1.100", id.RemoteIP.String())
}
