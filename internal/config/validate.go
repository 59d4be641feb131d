package config

import "fmt"

// Issue describes a single validation problem.
type Issue struct {
	Path    string
	Message string
}

// Validate checks the config for problems that would prevent the
// gateway from serving. The bearer token is checked at startup after
// environment resolution, not here, so ${ENV} references stay valid.
func Validate(cfg *Config) []Issue {
	var issues []Issue

	if cfg.Gateway.Port < 1 || cfg.Gateway.Port > 65535 {
		issues = append(issues, Issue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port %d out of range 1-65535", cfg.Gateway.Port),
		})
	}

	if cfg.Gateway.TLS.Enabled {
		if cfg.Gateway.TLS.CertPath == "" {
			issues = append(issues, Issue{Path: "gateway.tls.certPath", Message: "required when TLS is enabled"})
		}
		if cfg.Gateway.TLS.KeyPath == "" {
			issues = append(issues, Issue{Path: "gateway.tls.keyPath", Message: "required when TLS is enabled"})
		}
	}

	if cfg.Steam.TokenFile == "" {
		issues = append(issues, Issue{Path: "steam.tokenFile", Message: "token cache path must not be empty"})
	}
	if cfg.Steam.MetadataTimeoutSeconds < 1 {
		issues = append(issues, Issue{
			Path:    "steam.metadataTimeoutSeconds",
			Message: "must be at least 1 second",
		})
	}
	if cfg.Steam.LoginTimeoutSeconds < 1 {
		issues = append(issues, Issue{
			Path:    "steam.loginTimeoutSeconds",
			Message: "must be at least 1 second",
		})
	}

	for i, g := range cfg.Steam.Sim.Groups {
		if g.ID == "" {
			issues = append(issues, Issue{
				Path:    fmt.Sprintf("steam.sim.groups[%d].id", i),
				Message: "group id is required",
			})
		}
	}

	return issues
}
