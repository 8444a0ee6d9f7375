package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", "http://localhost:8080", 60)

	token, err := tm.GenerateToken("artifact-1")
	require.NoError(t, err)

	claims, err := tm.ParseToken(token, "artifact-1")
	require.NoError(t, err)
	assert.Equal(t, "artifact-1", claims.ArtifactID)
}

func TestTokenArtifactMismatch(t *testing.T) {
	tm := NewTokenManager("test-secret", "http://localhost:8080", 60)

	token, err := tm.GenerateToken("artifact-1")
	require.NoError(t, err)

	_, err = tm.ParseToken(token, "artifact-2")
	assert.Error(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", "http://localhost:8080", 60)
	other := NewTokenManager("other-secret", "http://localhost:8080", 60)

	token, err := tm.GenerateToken("artifact-1")
	require.NoError(t, err)

	_, err = other.ParseToken(token, "artifact-1")
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	// Zero and negative TTLs fall back to the default rather than minting
	// instantly-expired links.
	tm := NewTokenManager("test-secret", "http://localhost:8080", -5)

	token, err := tm.GenerateToken("artifact-1")
	require.NoError(t, err)
	_, err = tm.ParseToken(token, "artifact-1")
	assert.NoError(t, err)
}

func TestSignedURL(t *testing.T) {
	tm := NewTokenManager("test-secret", "https://ops.example.com", 60)

	url, err := tm.SignedURL("artifact-9")
	require.NoError(t, err)
	assert.Contains(t, url, "https://ops.example.com/transcripts/artifact-9?token=")
}
