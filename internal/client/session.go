package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// SessionFilePath returns where the console keeps its session. Checks
// CONTACT_SESSION_FILE first, then the user config directory.
func SessionFilePath() string {
	if envPath := os.Getenv("CONTACT_SESSION_FILE"); envPath != "" {
		return envPath
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "contact-desk-session.json")
	}
	return filepath.Join(configDir, "contact-desk", "session.json")
}

// SessionManager owns the operator's session: it logs in, remembers the
// token between runs and forgets it on logout.
type SessionManager struct {
	client *Client
	path   string
	now    func() time.Time
	logger zerolog.Logger
}

// SessionOption customizes a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionLogger sets the logger used for session file problems.
func WithSessionLogger(l zerolog.Logger) SessionOption {
	return func(m *SessionManager) { m.logger = l }
}

// NewSessionManager builds a manager persisting to path. With an empty path
// nothing is persisted and CurrentSession always reports ErrNoSession.
func NewSessionManager(c *Client, path string, opts ...SessionOption) *SessionManager {
	m := &SessionManager{client: c, path: path, now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Client returns the API client used for session calls.
func (m *SessionManager) Client() *Client { return m.client }

// Login authenticates and saves the resulting session. A session that cannot
// be written to disk is still returned; it just won't survive this process.
func (m *SessionManager) Login(ctx context.Context, username, password string) (Session, error) {
	session, err := m.client.Login(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = tokenExpiry(session.Token)
	}
	if err := m.save(session); err != nil {
		m.logger.Warn().Err(err).Str("path", m.path).Msg("session not persisted")
	}
	return session, nil
}

// CurrentSession returns the stored session if it is still accepted by the
// server. ErrNoSession is returned when there is none or it expired or was
// revoked; the stale file is removed in that case.
func (m *SessionManager) CurrentSession(ctx context.Context) (Session, error) {
	session, err := m.load()
	if err != nil {
		return Session{}, err
	}
	if !session.Valid(m.now()) {
		_ = m.clear()
		return Session{}, ErrNoSession
	}

	if _, err := m.client.Session(ctx, session.Token); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			_ = m.clear()
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	return session, nil
}

// Logout revokes the session server-side and removes the local copy. The
// local copy is removed even when the server cannot be reached.
func (m *SessionManager) Logout(ctx context.Context) error {
	session, err := m.load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}

	var remoteErr error
	if err := m.client.Logout(ctx, session.Token); err != nil {
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
			remoteErr = err
		}
	}
	if err := m.clear(); err != nil {
		return err
	}
	return remoteErr
}

func (m *SessionManager) load() (Session, error) {
	if m.path == "" {
		return Session{}, ErrNoSession
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("reading session file %s: %w", m.path, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil || session.Token == "" {
		_ = m.clear()
		return Session{}, ErrNoSession
	}
	return session, nil
}

// save writes the session with mode 0600 since it contains a bearer token.
func (m *SessionManager) save(session Session) error {
	if m.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	if err := os.WriteFile(m.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing session file %s: %w", m.path, err)
	}
	return nil
}

func (m *SessionManager) clear() error {
	if m.path == "" {
		return nil
	}
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file %s: %w", m.path, err)
	}
	return nil
}

// tokenExpiry reads exp without verifying the signature. The server is the
// only party that verifies tokens; the client just avoids sending dead ones.
func tokenExpiry(raw string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
