package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied. The gateway
// defaults mirror the backend the supervising automation expects:
// loopback bind on port 13091.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 13091,
		},
		Steam: SteamConfig{
			TokenFile:              "refresh_token.txt",
			MetadataTimeoutSeconds: 10,
			LoginTimeoutSeconds:    120,
			DefaultGroupID:         "37660928",
			DefaultChannelName:     "general",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
