package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ClientSettings supplies OAuth client credentials. *config.Config
// satisfies it.
type ClientSettings interface {
	ClientID() (string, error)
	ClientSecret() (string, error)
}

// ConfigSource builds the OAuth client configuration on demand, so missing
// client credentials only surface once a token is actually needed.
type ConfigSource func() (*oauth2.Config, error)

// NewConfigSource returns a ConfigSource for Google's OAuth endpoints.
func NewConfigSource(settings ClientSettings, scopes []string) ConfigSource {
	return func() (*oauth2.Config, error) {
		id, err := settings.ClientID()
		if err != nil {
			return nil, err
		}
		secret, err := settings.ClientSecret()
		if err != nil {
			return nil, err
		}
		return &oauth2.Config{
			ClientID:     id,
			ClientSecret: secret,
			Endpoint:     google.Endpoint,
			Scopes:       append([]string(nil), scopes...),
		}, nil
	}
}

// withHTTPClient makes oauth2 use client for token endpoint calls.
func withHTTPClient(ctx context.Context, client *http.Client) context.Context {
	if client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// RefreshExchanger exchanges refresh tokens at the configured token endpoint.
type RefreshExchanger struct {
	Config ConfigSource

	// HTTPClient overrides the client used to reach the token endpoint.
	HTTPClient *http.Client
}

// Exchange implements Exchanger.
func (r *RefreshExchanger) Exchange(ctx context.Context, refreshToken string) (*Credential, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}
	conf, err := r.Config()
	if err != nil {
		return nil, err
	}

	ctx = withHTTPClient(ctx, r.HTTPClient)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return credentialFromToken(tok, refreshToken), nil
}
