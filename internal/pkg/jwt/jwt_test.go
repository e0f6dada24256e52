package jwt

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt"

func TestSSEToken_RoundTrip(t *testing.T) {
	svc := NewJWTService(testSecret)

	token, expiresIn, err := svc.GenerateSSEToken("user-1")
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	userID, err := svc.ValidateSSEToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestValidateSSEToken_RejectsAccessToken(t *testing.T) {
	svc := NewJWTService(testSecret)

	_, access, err := svc.JWTAuth().Encode(map[string]interface{}{"user_id": "user-1", "type": "access"})
	require.NoError(t, err)

	_, err = svc.ValidateSSEToken(access)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidateSSEToken_RejectsForeignSignature(t *testing.T) {
	other := NewJWTService("another-secret")
	token, _, err := other.GenerateSSEToken("user-1")
	require.NoError(t, err)

	_, err = NewJWTService(testSecret).ValidateSSEToken(token)
	assert.Error(t, err)
}

func TestAcceptsAccess(t *testing.T) {
	assert.True(t, AcceptsAccess(map[string]interface{}{"user_id": "u"}))
	assert.True(t, AcceptsAccess(map[string]interface{}{"type": "access"}))
	assert.False(t, AcceptsAccess(map[string]interface{}{"type": "refresh"}))
	assert.False(t, AcceptsAccess(map[string]interface{}{"type": "sse"}))
	assert.False(t, AcceptsAccess(map[string]interface{}{"type": 1}))
}

func TestRawToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", TokenFromRequest(r))

	ctx := WithRawToken(context.Background(), "abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", RawTokenFromContext(ctx))
	assert.Equal(t, "", RawTokenFromContext(context.Background()))
}
