package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"taskflow/internal/model"
)

// Session holds the current token and user, the client-side counterpart of
// the server's stateless session.
type Session struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// Valid reports whether the session token is syntactically valid and
// unexpired. The client holds no signing secret, so the signature is not
// checked here; the server remains the authority.
func (s *Session) Valid() bool {
	if s == nil || s.Token == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(s.Token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.After(time.Now())
}

// SessionStore persists a Session as a JSON file so it survives restarts.
// Cleared on explicit logout.
type SessionStore struct {
	path string
}

// NewSessionStore builds a store over the given file path. An empty path
// places the file under the user config directory.
func NewSessionStore(path string) (*SessionStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "taskflow", "session.json")
	}
	return &SessionStore{path: path}, nil
}

// Load reads the stored session. A missing file yields (nil, nil).
func (s *SessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Save writes the session to disk, creating parent directories as needed.
func (s *SessionStore) Save(session *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear removes the stored session. Clearing an absent session is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
