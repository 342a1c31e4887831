package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lizz/gcal-mcp/internal/calendar"
	"github.com/lizz/gcal-mcp/internal/google"
)

type stubCalendar struct{}

func (stubCalendar) ListToday(context.Context) ([]calendar.EventSummary, error) { return nil, nil }
func (stubCalendar) CreateEvent(context.Context, calendar.EventInput) (*calendar.EventSummary, error) {
	return &calendar.EventSummary{ID: "stub"}, nil
}

type noopStore struct{}

func (noopStore) Load(context.Context, string) (*google.StoredCredential, error) { return nil, nil }
func (noopStore) Save(context.Context, google.StoredCredential) error           { return nil }

type noopExchanger struct{}

func (noopExchanger) Exchange(context.Context, string) (*google.Credential, error) {
	return &google.Credential{AccessToken: "at"}, nil
}

type noopAuthorizer struct{}

func (noopAuthorizer) Authorize(context.Context) (*google.Credential, error) {
	return &google.Credential{AccessToken: "at", RefreshToken: "rt"}, nil
}

func newTestManager(t *testing.T) *google.CredentialManager {
	t.Helper()
	m, err := google.NewCredentialManager(google.ManagerOptions{
		Store:      noopStore{},
		Exchanger:  noopExchanger{},
		Authorizer: noopAuthorizer{},
		Scopes:     google.CalendarScopes,
	})
	require.NoError(t, err)
	return m
}

func TestNewServerContext_RequiresBackend(t *testing.T) {
	_, err := NewServerContext(context.Background(), Options{})
	assert.Error(t, err)
}

func TestServerContext_CalendarServiceOverride(t *testing.T) {
	sc, err := NewServerContext(context.Background(), Options{Calendar: stubCalendar{}})
	require.NoError(t, err)
	defer sc.Shutdown()

	svc, err := sc.CalendarService()
	require.NoError(t, err)
	assert.Equal(t, stubCalendar{}, svc)
}

func TestServerContext_LazyCalendarClient(t *testing.T) {
	sc, err := NewServerContext(context.Background(), Options{Credentials: newTestManager(t)})
	require.NoError(t, err)
	defer sc.Shutdown()

	first, err := sc.CalendarService()
	require.NoError(t, err)
	_, ok := first.(*calendar.Client)
	assert.True(t, ok)

	second, err := sc.CalendarService()
	require.NoError(t, err)
	assert.Same(t, first.(*calendar.Client), second.(*calendar.Client))

	// Building the client must not acquire a credential.
	assert.Nil(t, sc.Credentials().Cached())
}

func TestServerContext_InterpreterUsesClockAndLocation(t *testing.T) {
	loc := time.FixedZone("UTC-10", -10*3600)
	// 02:00 UTC on the 17th is still the 16th in UTC-10.
	now := time.Date(2026, time.October, 17, 2, 0, 0, 0, time.UTC)

	sc, err := NewServerContext(context.Background(), Options{
		Calendar: stubCalendar{},
		Location: loc,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	defer sc.Shutdown()

	res := sc.Interpreter().Interpret("today")
	require.NotNil(t, res.Clarification)
	assert.Contains(t, res.Clarification.Prompt, "2026-10-16 14:00")
}

func TestServerContext_Shutdown(t *testing.T) {
	sc, err := NewServerContext(context.Background(), Options{Calendar: stubCalendar{}})
	require.NoError(t, err)

	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())

	// Idempotent
	assert.NoError(t, sc.Shutdown())
}
