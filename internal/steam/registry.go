package steam

import (
	"fmt"
	"sort"
	"sync"

	"github.com/haoranw/steamgate/internal/config"
	"github.com/haoranw/steamgate/internal/logging"
)

// Factory builds a Client backend from configuration.
type Factory func(cfg config.SteamConfig, log *logging.Logger) (Client, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a backend available under the given name. The
// simulator registers itself here; a production protocol backend plugs
// in the same way.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// NewClient builds the backend named by cfg.Backend. An empty name
// selects the simulator.
func NewClient(cfg config.SteamConfig, log *logging.Logger) (Client, error) {
	name := cfg.Backend
	if name == "" {
		name = "sim"
	}

	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown steam backend %q (available: %v)", name, Backends())
	}
	return f(cfg, log)
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
