package security

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "order-import-service"

func TestNewJWTManager_EmptySecret(t *testing.T) {
	_, err := NewJWTManager("", time.Hour, testIssuer)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m, err := NewJWTManager("secret", time.Hour, testIssuer)
	require.NoError(t, err)

	token, err := m.Generate("user-1", "admin", []string{"order-import-admin"})
	require.NoError(t, err)

	p, err := m.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "admin", p.Username)
	assert.True(t, p.HasRole("order-import-admin"))
	assert.False(t, p.HasRole("admin"))
}

func TestJWTManager_ValidateErrors(t *testing.T) {
	m, err := NewJWTManager("secret", time.Hour, testIssuer)
	require.NoError(t, err)

	expired, err := NewJWTManager("secret", time.Nanosecond, testIssuer)
	require.NoError(t, err)
	expiredToken, err := expired.Generate("user-1", "", nil)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	other, err := NewJWTManager("other-secret", time.Hour, testIssuer)
	require.NoError(t, err)
	foreignToken, err := other.Generate("user-1", "", nil)
	require.NoError(t, err)

	otherIssuer, err := NewJWTManager("secret", time.Hour, "someone-else")
	require.NoError(t, err)
	wrongIssuerToken, err := otherIssuer.Generate("user-1", "", nil)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "expired", token: expiredToken, want: ErrExpiredToken},
		{name: "wrong secret", token: foreignToken, want: ErrInvalidToken},
		{name: "wrong issuer", token: wrongIssuerToken, want: ErrInvalidToken},
		{name: "none algorithm", token: noneToken, want: ErrInvalidToken},
		{name: "garbage", token: "not-a-token", want: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
