package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/lizz/gcal-mcp/internal/instrumentation"
	"github.com/lizz/gcal-mcp/internal/logging"
)

// Exchanger trades a refresh token for a fresh credential at the token
// endpoint.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (*Credential, error)
}

// Authorizer obtains a brand-new credential by asking the user for consent.
type Authorizer interface {
	Authorize(ctx context.Context) (*Credential, error)
}

// ErrAuthorizationFailed wraps any failure of the interactive flow. It is the
// only error Acquire returns.
var ErrAuthorizationFailed = errors.New("authorization failed")

// ManagerOptions configures a CredentialManager.
type ManagerOptions struct {
	Store      CredentialStore
	Exchanger  Exchanger
	Authorizer Authorizer

	// Scopes determine the scope hash under which the refresh token is stored.
	Scopes []string

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics

	// Now is the clock used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// CredentialManager hands out a usable credential, trying in order the
// in-memory cache, the stored refresh token and the interactive flow.
//
// It is safe for concurrent use. At most one exchange or interactive flow
// runs at a time; concurrent callers share its result.
type CredentialManager struct {
	store      CredentialStore
	exchanger  Exchanger
	authorizer Authorizer
	scopeHash  string
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	now        func() time.Time

	mu     sync.Mutex
	cached *Credential

	flight singleflight.Group
}

// NewCredentialManager creates a manager. Store, Exchanger and Authorizer
// are required.
func NewCredentialManager(opts ManagerOptions) (*CredentialManager, error) {
	if opts.Store == nil || opts.Exchanger == nil || opts.Authorizer == nil {
		return nil, fmt.Errorf("credential manager requires a store, an exchanger and an authorizer")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CredentialManager{
		store:      opts.Store,
		exchanger:  opts.Exchanger,
		authorizer: opts.Authorizer,
		scopeHash:  ScopeHash(opts.Scopes),
		logger:     logging.WithService(logger, "credentials"),
		metrics:    opts.Metrics,
		now:        now,
	}, nil
}

// ScopeHash returns the hash the manager stores credentials under.
func (m *CredentialManager) ScopeHash() string {
	return m.scopeHash
}

// Cached returns the in-memory credential without doing any I/O.
func (m *CredentialManager) Cached() *Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cached
}

// Acquire returns a usable credential.
//
// A cached credential with an access or refresh token is returned as is,
// even if its access token has expired; Token refreshes those lazily.
func (m *CredentialManager) Acquire(ctx context.Context) (*Credential, error) {
	start := time.Now()
	if cred := m.Cached(); cred.Usable() {
		m.metrics.RecordCredentialAcquisition(ctx, instrumentation.CredentialSourceCache, instrumentation.StatusSuccess, time.Since(start))
		return cred, nil
	}

	v, err, _ := m.flight.Do("acquire", func() (any, error) {
		// Another caller may have finished while we waited for the lock.
		if cred := m.Cached(); cred.Usable() {
			return cred, nil
		}
		out := m.acquire(ctx)
		m.metrics.RecordCredentialAcquisition(ctx, out.source, statusOf(out.err), time.Since(start))
		if out.err != nil {
			return nil, out.err
		}
		m.setCached(out.cred)
		return out.cred, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Credential), nil
}

// outcome is the result of one acquisition step.
type outcome struct {
	cred   *Credential
	source string
	err    error
}

func (o outcome) ok() bool {
	return o.err == nil && o.cred.Usable()
}

func (m *CredentialManager) acquire(ctx context.Context) outcome {
	ctx, span := instrumentation.StartCredentialSpan(ctx, "acquire")
	defer span.End()

	if out := m.fromStore(ctx); out.ok() {
		span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithCredentialSource(out.source).Build()...)
		return out
	}

	out := m.interactive(ctx)
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithCredentialSource(out.source).Build()...)
	instrumentation.SetSpanError(span, out.err)
	return out
}

// fromStore loads the stored refresh token and exchanges it. Every failure
// here is absorbed; the caller falls back to the interactive flow.
func (m *CredentialManager) fromStore(ctx context.Context) outcome {
	stored, err := m.store.Load(ctx, m.scopeHash)
	if err != nil {
		m.metrics.RecordCredentialStoreError(ctx, "load")
		m.logger.Warn("Failed to load stored credential", logging.Err(err))
		return outcome{source: instrumentation.CredentialSourceStore, err: err}
	}
	if stored == nil {
		m.logger.Info("No refresh token found. Starting OAuth2 authorization flow...")
		return outcome{source: instrumentation.CredentialSourceStore, err: errNoStoredCredential}
	}

	cred, err := m.exchange(ctx, stored.RefreshToken)
	if err != nil {
		m.logger.Warn("Failed to use refresh token, starting authorization flow", logging.Err(err))
		return outcome{source: instrumentation.CredentialSourceStore, err: err}
	}
	m.logger.Info("Using stored refresh token")
	return outcome{cred: cred, source: instrumentation.CredentialSourceStore}
}

// errNoStoredCredential marks the store step as skipped.
var errNoStoredCredential = errors.New("no stored credential")

func (m *CredentialManager) exchange(ctx context.Context, refreshToken string) (*Credential, error) {
	start := time.Now()
	cred, err := m.exchanger.Exchange(ctx, refreshToken)
	m.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth, "refresh", statusOf(err), time.Since(start))
	if err != nil {
		m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}
	m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	if cred.RefreshToken == "" {
		// Google omits the refresh token on refresh responses.
		c := *cred
		c.RefreshToken = refreshToken
		cred = &c
	}
	return cred, nil
}

// interactive runs the consent flow and persists the new refresh token.
// Persistence failures are logged; the credential is still returned.
func (m *CredentialManager) interactive(ctx context.Context) outcome {
	cred, err := m.authorizer.Authorize(ctx)
	if err == nil && !cred.Usable() {
		err = errors.New("authorization returned no token")
	}
	if err != nil {
		m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return outcome{
			source: instrumentation.CredentialSourceInteractive,
			err:    fmt.Errorf("%w: %w", ErrAuthorizationFailed, err),
		}
	}
	m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	if cred.RefreshToken == "" {
		m.logger.Warn("Authorization did not return a refresh token; credential will not be persisted")
	} else if err := m.store.Save(ctx, StoredCredential{RefreshToken: cred.RefreshToken, ScopeHash: m.scopeHash}); err != nil {
		m.metrics.RecordCredentialStoreError(ctx, "save")
		m.logger.Warn("Failed to save credential, continuing with in-memory credential", logging.Err(err))
	}

	return outcome{cred: cred, source: instrumentation.CredentialSourceInteractive}
}

// Refresh replaces stale with a credential carrying a valid access token.
// It exchanges stale's refresh token first and falls back to a full Acquire
// (store, then interactive) if that fails.
func (m *CredentialManager) Refresh(ctx context.Context, stale *Credential) (*Credential, error) {
	v, err, _ := m.flight.Do("refresh", func() (any, error) {
		if cur := m.Cached(); cur != stale && cur.Valid(m.now()) {
			return cur, nil
		}
		if stale != nil && stale.RefreshToken != "" {
			cred, err := m.exchange(ctx, stale.RefreshToken)
			if err == nil {
				m.setCached(cred)
				return cred, nil
			}
			m.logger.Warn("Failed to refresh access token", logging.Err(err))
		}
		m.Invalidate()
		return m.Acquire(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Credential), nil
}

// Invalidate drops the cached credential. The stored refresh token is kept.
func (m *CredentialManager) Invalidate() {
	m.setCached(nil)
}

func (m *CredentialManager) setCached(cred *Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = cred
}

// TokenSource adapts the manager to oauth2.TokenSource. Tokens whose access
// token is missing or expired are refreshed before being returned.
func (m *CredentialManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managedTokenSource{ctx: ctx, m: m}
}

type managedTokenSource struct {
	ctx context.Context
	m   *CredentialManager
}

func (ts *managedTokenSource) Token() (*oauth2.Token, error) {
	cred, err := ts.m.Acquire(ts.ctx)
	if err != nil {
		return nil, err
	}
	if !cred.Valid(ts.m.now()) {
		cred, err = ts.m.Refresh(ts.ctx, cred)
		if err != nil {
			return nil, err
		}
	}
	return cred.Token(), nil
}

func statusOf(err error) string {
	if err != nil {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}
