package google

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/lizz/gcal-mcp/internal/logging"
)

// Loopback defaults.
const (
	DefaultCallbackHost = "localhost"
	DefaultCallbackPath = "/Callback"
)

// ErrAuthorizationDenied is returned when the user declines consent or the
// provider reports an error on the redirect.
var ErrAuthorizationDenied = errors.New("authorization denied")

var errStateMismatch = errors.New("state mismatch in authorization callback")

// LoopbackAuthorizer runs the OAuth installed-app flow: it listens on a
// local port, opens the consent page in the browser and exchanges the code
// delivered to the redirect URL.
type LoopbackAuthorizer struct {
	Config ConfigSource

	// Host and Port of the local listener. Port 0 picks a free port.
	Host string
	Port int

	// CallbackPath is the redirect path. Defaults to DefaultCallbackPath.
	CallbackPath string

	// OpenBrowser launches the consent URL. Defaults to OpenBrowser. A
	// launch failure is logged; the URL is always printed to Prompt.
	OpenBrowser func(url string) error

	// Prompt receives the consent URL. Defaults to os.Stderr.
	Prompt io.Writer

	// HTTPClient overrides the client used for the code exchange.
	HTTPClient *http.Client

	Logger *slog.Logger
}

type callbackResult struct {
	code string
	err  error
}

// Authorize implements Authorizer. It blocks until the redirect arrives or
// ctx is done.
func (a *LoopbackAuthorizer) Authorize(ctx context.Context) (*Credential, error) {
	conf, err := a.Config()
	if err != nil {
		return nil, err
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	host := a.Host
	if host == "" {
		host = DefaultCallbackHost
	}
	path := a.CallbackPath
	if path == "" {
		path = DefaultCallbackPath
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(a.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	flow := *conf
	flow.RedirectURL = fmt.Sprintf("http://%s%s", net.JoinHostPort(host, strconv.Itoa(port)), path)

	state, err := GenerateState()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		res := parseCallback(r, state)
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "<html><body><p>Authorization failed: %s</p></body></html>", html.EscapeString(res.err.Error()))
		} else {
			fmt.Fprint(w, "<html><body><p>Received verification code. You may now close this window.</p></body></html>")
		}
		if errors.Is(res.err, errStateMismatch) {
			// Not our redirect; keep waiting.
			return
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Callback server stopped", logging.Err(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := flow.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("code_challenge", GenerateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	prompt := a.Prompt
	if prompt == nil {
		prompt = os.Stderr
	}
	fmt.Fprintf(prompt, "Please open the following address in your browser:\n  %s\n", authURL)

	open := a.OpenBrowser
	if open == nil {
		open = OpenBrowser
	}
	if err := open(authURL); err != nil {
		logger.Warn("Unable to open browser, open the URL manually", logging.Err(err))
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := flow.Exchange(withHTTPClient(ctx, a.HTTPClient), res.code,
		oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	logger.Info("Authorization completed", slog.String("access_token", logging.SanitizeToken(tok.AccessToken)))
	return credentialFromToken(tok, ""), nil
}

func parseCallback(r *http.Request, state string) callbackResult {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return callbackResult{err: fmt.Errorf("%w: %s", ErrAuthorizationDenied, e)}
	}
	if q.Get("state") != state {
		return callbackResult{err: errStateMismatch}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: errors.New("authorization callback did not include a code")}
	}
	return callbackResult{code: code}
}
