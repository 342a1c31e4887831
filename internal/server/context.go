package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lizz/gcal-mcp/internal/calendar"
	"github.com/lizz/gcal-mcp/internal/config"
	"github.com/lizz/gcal-mcp/internal/datetime"
	"github.com/lizz/gcal-mcp/internal/google"
	"github.com/lizz/gcal-mcp/internal/instrumentation"
)

// Options configures a ServerContext.
type Options struct {
	Config      *config.Config
	Credentials *google.CredentialManager
	Store       google.CredentialStore

	// Calendar replaces the lazily created Google Calendar client.
	Calendar calendar.Service

	// CalendarEndpoint overrides the Calendar API base URL.
	CalendarEndpoint string

	// Location is the local zone for "today" and event times. Defaults to
	// time.Local.
	Location *time.Location

	// Now is the clock shared by the datetime interpreter and the calendar
	// client. Defaults to time.Now.
	Now func() time.Time

	Logger      *slog.Logger
	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	config           *config.Config
	credentials      *google.CredentialManager
	store            google.CredentialStore
	interpreter      *datetime.Interpreter
	calendarEndpoint string
	location         *time.Location
	now              func() time.Time
	logger           *slog.Logger
	metrics          *instrumentation.Metrics
	auditLogger      *instrumentation.AuditLogger

	mu       sync.RWMutex
	calendar calendar.Service
	shutdown bool
}

// NewServerContext creates a new server context. Either Credentials or
// Calendar must be set.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Credentials == nil && opts.Calendar == nil {
		return nil, fmt.Errorf("server context requires a credential manager or a calendar service")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ServerContext{
		ctx:              shutdownCtx,
		cancel:           cancel,
		config:           opts.Config,
		credentials:      opts.Credentials,
		store:            opts.Store,
		interpreter:      datetime.NewInterpreter(func() time.Time { return now().In(loc) }),
		calendarEndpoint: opts.CalendarEndpoint,
		location:         loc,
		now:              now,
		logger:           logger,
		metrics:          opts.Metrics,
		auditLogger:      opts.AuditLogger,
		calendar:         opts.Calendar,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration. May be nil in tests.
func (sc *ServerContext) Config() *config.Config {
	return sc.config
}

// Credentials returns the credential manager. May be nil in tests.
func (sc *ServerContext) Credentials() *google.CredentialManager {
	return sc.credentials
}

// Store returns the credential store. May be nil.
func (sc *ServerContext) Store() google.CredentialStore {
	return sc.store
}

// Interpreter returns the datetime interpreter bound to the local zone.
func (sc *ServerContext) Interpreter() *datetime.Interpreter {
	return sc.interpreter
}

// Location returns the local zone.
func (sc *ServerContext) Location() *time.Location {
	return sc.location
}

// Now returns the current time from the server clock.
func (sc *ServerContext) Now() time.Time {
	return sc.now()
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder. May be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger. May be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// CalendarService returns the calendar client, creating it on first use.
// Creating the client does not contact Google; credentials are acquired on
// the first request.
func (sc *ServerContext) CalendarService() (calendar.Service, error) {
	sc.mu.RLock()
	svc := sc.calendar
	sc.mu.RUnlock()
	if svc != nil {
		return svc, nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.calendar != nil {
		return sc.calendar, nil
	}
	if sc.credentials == nil {
		return nil, fmt.Errorf("no credential manager configured")
	}

	var appName string
	if sc.config != nil {
		appName = sc.config.ApplicationName()
	}
	client, err := calendar.NewClient(sc.ctx, sc.credentials.TokenSource(sc.ctx), calendar.Options{
		ApplicationName: appName,
		Location:        sc.location,
		Endpoint:        sc.calendarEndpoint,
		Now:             sc.now,
		Metrics:         sc.metrics,
		Logger:          sc.logger,
	})
	if err != nil {
		return nil, err
	}
	sc.calendar = client
	return client, nil
}

// SetCalendarService replaces the calendar client.
func (sc *ServerContext) SetCalendarService(svc calendar.Service) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.calendar = svc
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context. Any interactive authorization in
// progress is cancelled.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
