// Package session persists the only client state that survives a restart:
// the auth token and the signed-in user. Everything else found in the state
// directory is stale cache and gets purged at startup.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const fileName = "session.json"

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tenant_id"`
}

type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

var ErrNoSession = errors.New("no saved session")

func Load(dir string) (Session, error) {
	b, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("corrupt session file: %w", err)
	}
	if s.Token == "" || s.User.TenantID == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (s Session) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fileName), b, 0o600)
}

// Purge removes every entry in the state directory except the session file.
// Cached domain data never survives a restart.
func Purge(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.Name() == fileName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
