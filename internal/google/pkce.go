package google

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenerateCodeVerifier generates a random PKCE code verifier (RFC 7636):
// 32 random bytes, base64url encoded without padding, 43 characters.
func GenerateCodeVerifier() (string, error) {
	return randomString(32)
}

// GenerateCodeChallenge derives the S256 code challenge for verifier:
// BASE64URL(SHA256(verifier)).
func GenerateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState returns an unguessable value for the OAuth state parameter.
func GenerateState() (string, error) {
	return randomString(24)
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
