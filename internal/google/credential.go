package google

import (
	"time"

	"golang.org/x/oauth2"
)

// expiryDelta matches the leeway golang.org/x/oauth2 applies before treating
// an access token as expired.
const expiryDelta = 10 * time.Second

// Credential is the in-memory OAuth credential for this process. Values are
// never mutated after construction; a refresh produces a new Credential.
type Credential struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

// Usable reports whether c carries an access or refresh token.
func (c *Credential) Usable() bool {
	return c != nil && (c.AccessToken != "" || c.RefreshToken != "")
}

// Valid reports whether the access token can be sent as of now.
func (c *Credential) Valid(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return c.Expiry.IsZero() || now.Add(expiryDelta).Before(c.Expiry)
}

// Token converts c to an oauth2.Token.
func (c *Credential) Token() *oauth2.Token {
	tokenType := c.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    tokenType,
		Expiry:       c.Expiry,
	}
}

// credentialFromToken copies tok. When the token endpoint omits the refresh
// token (as Google does on refresh), fallbackRefresh is kept.
func credentialFromToken(tok *oauth2.Token, fallbackRefresh string) *Credential {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
}
