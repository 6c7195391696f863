package main

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mmcdole/estate/internal/config"
	"github.com/mmcdole/estate/internal/crmapi"
	"github.com/mmcdole/estate/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUserID(t *testing.T) {
	t.Parallel()

	sign := func(claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name     string
		token    string
		configID int
		want     int
	}{
		{"user id claim", sign(crmapi.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "agent"}, UserID: 7}), 3, 7},
		{"numeric subject", sign(jwt.RegisteredClaims{Subject: "12"}), 3, 12},
		{"configured fallback", sign(jwt.RegisteredClaims{Subject: "agent"}), 3, 3},
		{"opaque token", "opaque", 5, 5},
		{"unknown", sign(jwt.RegisteredClaims{Subject: "agent"}), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Server.Token = tt.token
			cfg.Server.UserID = tt.configID

			assert.Equal(t, tt.want, resolveUserID(cfg, log.NullLogger()))
		})
	}
}

func TestExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".png", extension("image/png"))
	assert.Equal(t, ".bin", extension(""))
}
