package google

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lizz/gcal-mcp/internal/logging"
)

// Keys in the credential file.
const (
	keyRefreshToken = "refresh_token"
	keyScopeHash    = "scope_hash"
)

// CredentialsFileName is the default file name under the home directory.
const CredentialsFileName = ".gcal-mcp-credentials.properties"

const credentialFileHeader = "# Google Calendar MCP Credentials"

// ErrMalformedCredentialFile is returned by Load when the file exists but
// cannot be parsed.
var ErrMalformedCredentialFile = errors.New("malformed credential file")

// StoredCredential is the persisted part of a credential.
type StoredCredential struct {
	RefreshToken string
	ScopeHash    string
}

// CredentialStore persists a single refresh token keyed by scope hash.
type CredentialStore interface {
	// Load returns the stored credential for scopeHash. It returns (nil, nil)
	// when nothing usable is stored, including when the stored scope hash
	// differs. A non-nil error means the file exists but could not be read.
	Load(ctx context.Context, scopeHash string) (*StoredCredential, error)

	// Save overwrites any previously stored credential.
	Save(ctx context.Context, cred StoredCredential) error
}

// FileCredentialStore keeps the credential in a line based key=value file.
type FileCredentialStore struct {
	path   string
	logger *slog.Logger
}

// NewFileCredentialStore returns a store backed by path. An empty path means
// DefaultCredentialsPath.
func NewFileCredentialStore(path string, logger *slog.Logger) (*FileCredentialStore, error) {
	if path == "" {
		p, err := DefaultCredentialsPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileCredentialStore{path: path, logger: logger}, nil
}

// DefaultCredentialsPath returns ~/.gcal-mcp-credentials.properties.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, CredentialsFileName), nil
}

// Path returns the backing file path.
func (s *FileCredentialStore) Path() string {
	return s.path
}

// Load implements CredentialStore.
func (s *FileCredentialStore) Load(_ context.Context, scopeHash string) (*StoredCredential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	stored, err := parseCredentialFile(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrMalformedCredentialFile, s.path, err)
	}

	if stored.ScopeHash != scopeHash {
		s.logger.Info("OAuth scopes have changed. Re-authorization required.",
			logging.Path(s.path), logging.ScopeHash(stored.ScopeHash))
		return nil, nil
	}

	return stored, nil
}

// Save implements CredentialStore. The file is replaced atomically and is
// readable by the owner only.
func (s *FileCredentialStore) Save(_ context.Context, cred StoredCredential) error {
	data, err := formatCredentialFile(cred)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit credential file: %w", err)
	}

	s.logger.Debug("Saved credential", logging.Path(s.path),
		slog.String("refresh_token", logging.Fingerprint(cred.RefreshToken)))
	return nil
}

// Delete removes the credential file. A missing file is not an error.
func (s *FileCredentialStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}

// Peek returns whatever is stored, ignoring the scope hash. Used by status
// reporting.
func (s *FileCredentialStore) Peek() (*StoredCredential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	stored, err := parseCredentialFile(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrMalformedCredentialFile, s.path, err)
	}
	return stored, nil
}

func parseCredentialFile(data []byte) (*StoredCredential, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "!") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key=value", line)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	refresh := values[keyRefreshToken]
	if refresh == "" {
		return nil, fmt.Errorf("missing %s", keyRefreshToken)
	}
	return &StoredCredential{
		RefreshToken: refresh,
		ScopeHash:    values[keyScopeHash],
	}, nil
}

func formatCredentialFile(cred StoredCredential) ([]byte, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("refusing to store an empty refresh token")
	}
	for name, v := range map[string]string{keyRefreshToken: cred.RefreshToken, keyScopeHash: cred.ScopeHash} {
		if strings.ContainsAny(v, "\r\n") || strings.TrimSpace(v) != v {
			return nil, fmt.Errorf("%s contains characters that cannot be stored", name)
		}
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, credentialFileHeader)
	fmt.Fprintf(&buf, "%s=%s\n", keyRefreshToken, cred.RefreshToken)
	fmt.Fprintf(&buf, "%s=%s\n", keyScopeHash, cred.ScopeHash)
	return buf.Bytes(), nil
}
