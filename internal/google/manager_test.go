package google

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lizz/gcal-mcp/internal/config"
)

type fakeStore struct {
	mu      sync.Mutex
	stored  *StoredCredential
	loadErr error
	saveErr error
	loads   int
	saves   []StoredCredential
}

func (s *fakeStore) Load(_ context.Context, scopeHash string) (*StoredCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.stored == nil || s.stored.ScopeHash != scopeHash {
		return nil, nil
	}
	c := *s.stored
	return &c, nil
}

func (s *fakeStore) Save(_ context.Context, cred StoredCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, cred)
	if s.saveErr != nil {
		return s.saveErr
	}
	s.stored = &cred
	return nil
}

type fakeExchanger struct {
	calls atomic.Int32
	cred  *Credential
	err   error
	delay time.Duration
}

func (e *fakeExchanger) Exchange(ctx context.Context, refreshToken string) (*Credential, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.err != nil {
		return nil, e.err
	}
	c := *e.cred
	return &c, nil
}

type fakeAuthorizer struct {
	calls atomic.Int32
	cred  *Credential
	err   error
}

func (a *fakeAuthorizer) Authorize(ctx context.Context) (*Credential, error) {
	a.calls.Add(1)
	if a.err != nil {
		return nil, a.err
	}
	c := *a.cred
	return &c, nil
}

var testNow = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func newTestManager(t *testing.T, store CredentialStore, ex Exchanger, auth Authorizer) *CredentialManager {
	t.Helper()
	m, err := NewCredentialManager(ManagerOptions{
		Store:      store,
		Exchanger:  ex,
		Authorizer: auth,
		Scopes:     CalendarScopes,
		Now:        func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return m
}

func TestNewCredentialManager_RequiresCollaborators(t *testing.T) {
	_, err := NewCredentialManager(ManagerOptions{Store: &fakeStore{}})
	assert.Error(t, err)
}

func TestCredentialManager_AcquireFromStore(t *testing.T) {
	hash := ScopeHash(CalendarScopes)
	store := &fakeStore{stored: &StoredCredential{RefreshToken: "stored-rt", ScopeHash: hash}}
	ex := &fakeExchanger{cred: &Credential{AccessToken: "at-1", Expiry: testNow.Add(time.Hour)}}
	auth := &fakeAuthorizer{cred: &Credential{AccessToken: "interactive"}}
	m := newTestManager(t, store, ex, auth)

	cred, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-1", cred.AccessToken)
	assert.Equal(t, "stored-rt", cred.RefreshToken, "refresh token must be carried over")
	assert.EqualValues(t, 1, ex.calls.Load())
	assert.EqualValues(t, 0, auth.calls.Load())

	// Second call is served from memory
	again, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, cred, again)
	assert.EqualValues(t, 1, ex.calls.Load())
	assert.Equal(t, 1, store.loads)
	assert.Empty(t, store.saves)
}

func TestCredentialManager_ScopeMismatchGoesInteractive(t *testing.T) {
	store := &fakeStore{stored: &StoredCredential{RefreshToken: "old-rt", ScopeHash: "other"}}
	ex := &fakeExchanger{cred: &Credential{AccessToken: "never"}}
	auth := &fakeAuthorizer{cred: &Credential{AccessToken: "at-new", RefreshToken: "rt-new"}}
	m := newTestManager(t, store, ex, auth)

	cred, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-new", cred.AccessToken)
	assert.EqualValues(t, 0, ex.calls.Load())
	assert.EqualValues(t, 1, auth.calls.Load())

	require.Len(t, store.saves, 1)
	assert.Equal(t, StoredCredential{RefreshToken: "rt-new", ScopeHash: m.ScopeHash()}, store.saves[0])
}

func TestCredentialManager_ExchangeFailureFallsBack(t *testing.T) {
	hash := ScopeHash(CalendarScopes)
	store := &fakeStore{stored: &StoredCredential{RefreshToken: "revoked", ScopeHash: hash}}
	ex := &fakeExchanger{err: errors.New("invalid_grant")}
	auth := &fakeAuthorizer{cred: &Credential{AccessToken: "at", RefreshToken: "rt"}}
	m := newTestManager(t, store, ex, auth)

	cred, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at", cred.AccessToken)
	assert.EqualValues(t, 1, ex.calls.Load())
	assert.EqualValues(t, 1, auth.calls.Load())
}

func TestCredentialManager_LoadErrorFallsBack(t *testing.T) {
	store := &fakeStore{loadErr: ErrMalformedCredentialFile}
	ex := &fakeExchanger{cred: &Credential{AccessToken: "never"}}
	auth := &fakeAuthorizer{cred: &Credential{AccessToken: "at", RefreshToken: "rt"}}
	m := newTestManager(t, store, ex, auth)

	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, ex.calls.Load())
	assert.EqualValues(t, 1, auth.calls.Load())
}

func TestCredentialManager_InteractiveFailureIsFatal(t *testing.T) {
	cause := &config.MissingValueError{Description: "Google OAuth client ID", Key: config.KeyClientID, EnvVar: config.EnvClientID}
	store := &fakeStore{}
	auth := &fakeAuthorizer{err: cause}
	m := newTestManager(t, store, &fakeExchanger{}, auth)

	cred, err := m.Acquire(context.Background())
	assert.Nil(t, cred)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthorizationFailed)

	var missing *config.MissingValueError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, config.KeyClientID, missing.Key)
	assert.Nil(t, m.Cached())
}

func TestCredentialManager_EmptyAuthorizationIsFatal(t *testing.T) {
	m := newTestManager(t, &fakeStore{}, &fakeExchanger{}, &fakeAuthorizer{cred: &Credential{}})

	_, err := m.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrAuthorizationFailed)
}

func TestCredentialManager_SaveFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	auth := &fakeAuthorizer{cred: &Credential{AccessToken: "at", RefreshToken: "rt"}}
	m := newTestManager(t, store, &fakeExchanger{}, auth)

	cred, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at", cred.AccessToken)
	assert.Len(t, store.saves, 1)
	assert.Same(t, cred, m.Cached())
}

func TestCredentialManager_NoRefreshTokenIsNotPersisted(t *testing.T) {
	store := &fakeStore{}
	auth := &fakeAuthorizer{cred: &Credential{AccessToken: "at"}}
	m := newTestManager(t, store, &fakeExchanger{}, auth)

	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.saves)
}

func TestCredentialManager_ConcurrentAcquireSharesOneFlight(t *testing.T) {
	hash := ScopeHash(CalendarScopes)
	store := &fakeStore{stored: &StoredCredential{RefreshToken: "rt", ScopeHash: hash}}
	ex := &fakeExchanger{cred: &Credential{AccessToken: "at"}, delay: 50 * time.Millisecond}
	auth := &fakeAuthorizer{cred: &Credential{AccessToken: "never"}}
	m := newTestManager(t, store, ex, auth)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]*Credential, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = m.Acquire(context.Background())
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "at", results[i].AccessToken)
	}
	assert.EqualValues(t, 1, ex.calls.Load())
	assert.EqualValues(t, 0, auth.calls.Load())
}

func TestCredentialManager_Refresh(t *testing.T) {
	t.Run("exchanges the stale refresh token", func(t *testing.T) {
		ex := &fakeExchanger{cred: &Credential{AccessToken: "fresh", Expiry: testNow.Add(time.Hour)}}
		auth := &fakeAuthorizer{cred: &Credential{AccessToken: "never"}}
		m := newTestManager(t, &fakeStore{}, ex, auth)

		stale := &Credential{AccessToken: "old", RefreshToken: "rt", Expiry: testNow.Add(-time.Minute)}
		m.setCached(stale)

		cred, err := m.Refresh(context.Background(), stale)
		require.NoError(t, err)
		assert.Equal(t, "fresh", cred.AccessToken)
		assert.Equal(t, "rt", cred.RefreshToken)
		assert.NotSame(t, stale, cred)
		assert.Same(t, cred, m.Cached())
		assert.Equal(t, "old", stale.AccessToken, "stale credential must not be mutated")
		assert.EqualValues(t, 0, auth.calls.Load())
	})

	t.Run("falls back to acquire when the exchange fails", func(t *testing.T) {
		ex := &fakeExchanger{err: errors.New("invalid_grant")}
		auth := &fakeAuthorizer{cred: &Credential{AccessToken: "interactive", RefreshToken: "rt2"}}
		m := newTestManager(t, &fakeStore{}, ex, auth)

		stale := &Credential{AccessToken: "old", RefreshToken: "rt", Expiry: testNow.Add(-time.Minute)}
		m.setCached(stale)

		cred, err := m.Refresh(context.Background(), stale)
		require.NoError(t, err)
		assert.Equal(t, "interactive", cred.AccessToken)
		assert.EqualValues(t, 1, auth.calls.Load())
	})

	t.Run("returns a newer valid credential", func(t *testing.T) {
		ex := &fakeExchanger{cred: &Credential{AccessToken: "never"}}
		m := newTestManager(t, &fakeStore{}, ex, &fakeAuthorizer{})

		current := &Credential{AccessToken: "current", Expiry: testNow.Add(time.Hour)}
		m.setCached(current)

		cred, err := m.Refresh(context.Background(), &Credential{AccessToken: "old", RefreshToken: "rt"})
		require.NoError(t, err)
		assert.Same(t, current, cred)
		assert.EqualValues(t, 0, ex.calls.Load())
	})
}

func TestCredentialManager_Invalidate(t *testing.T) {
	m := newTestManager(t, &fakeStore{}, &fakeExchanger{}, &fakeAuthorizer{})
	m.setCached(&Credential{AccessToken: "at"})

	m.Invalidate()
	assert.Nil(t, m.Cached())
}

func TestCredentialManager_TokenSource(t *testing.T) {
	hash := ScopeHash(CalendarScopes)

	t.Run("valid credential is returned as is", func(t *testing.T) {
		store := &fakeStore{stored: &StoredCredential{RefreshToken: "rt", ScopeHash: hash}}
		ex := &fakeExchanger{cred: &Credential{AccessToken: "at", TokenType: "Bearer", Expiry: testNow.Add(time.Hour)}}
		m := newTestManager(t, store, ex, &fakeAuthorizer{})

		tok, err := m.TokenSource(context.Background()).Token()
		require.NoError(t, err)
		assert.Equal(t, "at", tok.AccessToken)
		assert.Equal(t, "rt", tok.RefreshToken)
		assert.Equal(t, "Bearer", tok.TokenType)
		assert.EqualValues(t, 1, ex.calls.Load())
	})

	t.Run("expired cached credential is refreshed", func(t *testing.T) {
		ex := &fakeExchanger{cred: &Credential{AccessToken: "fresh", Expiry: testNow.Add(time.Hour)}}
		m := newTestManager(t, &fakeStore{}, ex, &fakeAuthorizer{})
		m.setCached(&Credential{AccessToken: "old", RefreshToken: "rt", Expiry: testNow.Add(-time.Hour)})

		tok, err := m.TokenSource(context.Background()).Token()
		require.NoError(t, err)
		assert.Equal(t, "fresh", tok.AccessToken)
		assert.EqualValues(t, 1, ex.calls.Load())
	})

	t.Run("authorization failure surfaces", func(t *testing.T) {
		m := newTestManager(t, &fakeStore{}, &fakeExchanger{}, &fakeAuthorizer{err: ErrAuthorizationDenied})

		_, err := m.TokenSource(context.Background()).Token()
		assert.ErrorIs(t, err, ErrAuthorizationFailed)
		assert.ErrorIs(t, err, ErrAuthorizationDenied)
	})
}
