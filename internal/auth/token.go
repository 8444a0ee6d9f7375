package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenManager issues and validates the signed tokens embedded in
// transcript download links.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret, baseURL string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{
		secret:  []byte(secret),
		ttl:     time.Duration(ttlMinutes) * time.Minute,
		baseURL: baseURL,
	}
}

// Claims describes the JWT payload for a transcript download grant.
type Claims struct {
	ArtifactID string `json:"artifact_id"`
	jwt.RegisteredClaims
}

// GenerateToken signs a download grant for the artifact.
func (tm *TokenManager) GenerateToken(artifactID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		ArtifactID: artifactID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   artifactID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

// ParseToken validates a token and confirms it grants access to the given
// artifact.
func (tm *TokenManager) ParseToken(tokenStr, artifactID string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.ArtifactID != artifactID {
		return nil, errors.New("token does not match artifact")
	}
	return claims, nil
}

// SignedURL builds the full download link for an artifact.
func (tm *TokenManager) SignedURL(artifactID string) (string, error) {
	token, err := tm.GenerateToken(artifactID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/transcripts/%s?token=%s", tm.baseURL, artifactID, token), nil
}
