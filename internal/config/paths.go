package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".steamgate"

// Paths holds resolved filesystem paths for steamgate data.
type Paths struct {
	Base   string // ~/.steamgate
	Config string // ~/.steamgate/config.yaml
	Logs   string // ~/.steamgate/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If STEAMGATE_HOME is set, it overrides the default base directory.
// The refresh-token cache is deliberately not here: it lives at a fixed
// path relative to the working directory (see SteamConfig.TokenFile).
func ResolvePaths() (Paths, error) {
	base := os.Getenv("STEAMGATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
