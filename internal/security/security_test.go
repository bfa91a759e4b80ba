package security_test

import (
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"client_go/internal/security"
)

func TestInspectToken(t *testing.T) {
	svc := security.NewTokenService("secret", time.Hour)
	tok, err := svc.CreateForUser("me@example.com")
	require.NoError(t, err)

	info, err := security.InspectToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", info.Subject)
	require.NotNil(t, info.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *info.ExpiresAt, 5*time.Second)

	sub, err := svc.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", sub)

	_, err = security.NewTokenService("other", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestInspectOpaqueToken(t *testing.T) {
	info, err := security.InspectToken("not-a-jwt")
	require.NoError(t, err)
	assert.Empty(t, info.Subject)
	assert.Nil(t, info.ExpiresAt)
}

func TestEncryptorRoundTrip(t *testing.T) {
	enc, err := security.NewEncryptor([]byte("local secret"), nil)
	require.NoError(t, err)

	sealed, err := enc.Seal("token-value")
	require.NoError(t, err)
	assert.NotEqual(t, "token-value", sealed)

	plain, err := enc.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "token-value", plain)

	other, err := security.NewEncryptor([]byte("different"), nil)
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.Error(t, err)
}

func TestEncryptorOpensLegacyFernet(t *testing.T) {
	var k fernet.Key
	require.NoError(t, k.Generate())
	legacy, err := fernet.EncryptAndSign([]byte("old-token"), &k)
	require.NoError(t, err)

	enc, err := security.NewEncryptor([]byte("new secret"), []string{k.Encode()})
	require.NoError(t, err)
	plain, err := enc.Open(string(legacy))
	require.NoError(t, err)
	assert.Equal(t, "old-token", plain)
}

func TestPasswordHasher(t *testing.T) {
	h := security.NewPasswordHasher(4)
	hashed, err := h.Hash("Password1!")
	require.NoError(t, err)
	assert.True(t, h.Matches("Password1!", hashed))
	assert.False(t, h.Matches("wrong", hashed))

	_, err = h.Hash("")
	assert.Error(t, err)
}
