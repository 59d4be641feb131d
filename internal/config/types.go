package config

// Config is the root configuration for steamgate.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway,omitempty"`
	Steam   SteamConfig   `yaml:"steam,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// GatewayConfig controls the control-plane HTTP server.
type GatewayConfig struct {
	Host string      `yaml:"host,omitempty"`
	Port int         `yaml:"port,omitempty"`
	Auth GatewayAuth `yaml:"auth,omitempty"`
	TLS  GatewayTLS  `yaml:"tls,omitempty"`

	// ExitOnLogout makes a successful POST /logout drain the listener
	// and exit the process. The supervisor that owns this process
	// restarts it when it wants a fresh session. Defaults to true.
	ExitOnLogout *bool `yaml:"exitOnLogout,omitempty"`
}

// GatewayAuth configures the static bearer credential.
type GatewayAuth struct {
	Token string `yaml:"token,omitempty"`
}

// GatewayTLS configures TLS for the control plane.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// SteamConfig controls the session manager and its network backend.
type SteamConfig struct {
	// Backend selects the registered steam client implementation.
	// Empty means the in-process simulator.
	Backend string `yaml:"backend,omitempty"`

	// TokenFile is the refresh-token cache path, resolved relative to
	// the process working directory when not absolute.
	TokenFile string `yaml:"tokenFile,omitempty"`

	// MetadataTimeoutSeconds bounds group activation and channel
	// lookups during send-message.
	MetadataTimeoutSeconds int `yaml:"metadataTimeoutSeconds,omitempty"`

	// LoginTimeoutSeconds bounds how long CLI clients wait for the
	// login command to complete.
	LoginTimeoutSeconds int `yaml:"loginTimeoutSeconds,omitempty"`

	// DefaultGroupID and DefaultChannelName are the send target used
	// by the send command when no flags are given.
	DefaultGroupID     string `yaml:"defaultGroupId,omitempty"`
	DefaultChannelName string `yaml:"defaultChannelName,omitempty"`

	Sim SimConfig `yaml:"sim,omitempty"`
}

// SimConfig seeds the simulator backend.
type SimConfig struct {
	AccountName string     `yaml:"accountName,omitempty"`
	Password    string     `yaml:"password,omitempty"`
	GuardCode   string     `yaml:"guardCode,omitempty"`
	Groups      []SimGroup `yaml:"groups,omitempty"`
}

// SimGroup defines a simulated chat group.
type SimGroup struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Channels []string `yaml:"channels,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// ExitOnLogout returns the effective flag value (default true).
func (g GatewayConfig) ExitOnLogoutEnabled() bool {
	if g.ExitOnLogout == nil {
		return true
	}
	return *g.ExitOnLogout
}
