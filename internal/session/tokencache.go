package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TokenCache persists the rotating refresh token at a fixed path. One
// token per installation; the file is the only durable credential state
// this process keeps.
type TokenCache struct {
	path string
}

// NewTokenCache creates a cache over the given file path.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

// Path returns the cache file location.
func (c *TokenCache) Path() string { return c.path }

// Load returns the cached token, or "" when no cache file exists.
// A missing file is the normal first-run condition, not an error.
func (c *TokenCache) Load() (string, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save overwrites the cache with a rotated token. The token grants
// account access, so the file is not group or world readable.
//
// TODO: write to a temp file and rename so a crash mid-write cannot
// leave a truncated token.
func (c *TokenCache) Save(token string) error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(c.path, []byte(token), 0o600)
}
