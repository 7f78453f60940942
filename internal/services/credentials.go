package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/playshare/internal/shared"
)

// Credentials is a session issued at sign-in: an oauth2 bearer token plus the user it belongs to.
type Credentials struct {
	oauth2.Token
	UserID string `json:"userId"`
}

// Usable reports whether the credentials carry a token that has not expired.
func (c *Credentials) Usable() bool {
	return c != nil && c.UserID != "" && c.Valid()
}

// SaveCredentials writes credentials to path with owner-only permissions.
func SaveCredentials(path string, c *Credentials) error {
	path, err := shared.ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// LoadCredentials reads credentials saved by [SaveCredentials].
//
// A missing file yields [shared.ErrNotAuthenticated]; an expired token yields [shared.ErrTokenExpired].
func LoadCredentials(path string) (*Credentials, error) {
	path, err := shared.ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, shared.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: malformed credentials file: %v", shared.ErrInvalidConfig, err)
	}
	if !c.Expiry.IsZero() && !c.Expiry.After(time.Now()) {
		return nil, shared.ErrTokenExpired
	}
	return &c, nil
}

// RemoveCredentials deletes saved credentials. A missing file is not an error.
func RemoveCredentials(path string) error {
	path, err := shared.ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
