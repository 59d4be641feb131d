package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haoranw/steamgate/internal/config"
	"github.com/haoranw/steamgate/internal/domain"
	"github.com/haoranw/steamgate/internal/gateway"
)

// gatewayClient is the CLI side of the control plane: the status,
// login, send and logout commands talk to a running serve process
// through it, authenticated with the same bearer token the server
// resolved from its config.
type gatewayClient struct {
	base  string
	token string
	http  *http.Client
}

func newGatewayClient(cfg config.Config) (*gatewayClient, error) {
	auth := gateway.ResolveAuth(cfg.Gateway.Auth)
	if auth.Token == "" {
		return nil, fmt.Errorf("no gateway bearer token configured (set gateway.auth.token or STEAMGATE_GATEWAY_TOKEN)")
	}

	scheme := "http"
	if cfg.Gateway.TLS.Enabled {
		scheme = "https"
	}
	host := cfg.Gateway.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	return &gatewayClient{
		base:  fmt.Sprintf("%s://%s:%d", scheme, host, cfg.Gateway.Port),
		token: auth.Token,
		http:  &http.Client{},
	}, nil
}

// apiError is a non-2xx control-plane response surfaced as an error.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// do issues one authenticated request and decodes the JSON response
// into out when it is non-nil. Non-2xx statuses come back as *apiError
// after out is populated, so callers can inspect both.
func (c *gatewayClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding gateway response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		_ = json.Unmarshal(data, &payload)
		msg := payload.Error
		if payload.Details != "" {
			msg += ": " + payload.Details
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &apiError{StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}

// Status returns the session state. A 401 is the normal logged-out
// answer, not an error.
func (c *gatewayClient) Status(ctx context.Context) (gateway.StatusResponse, error) {
	var st gateway.StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &st)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized && !st.LoggedIn {
		return st, nil
	}
	return st, err
}

// Login triggers the server-side login flow and waits for it to
// complete. The wait can be long: the serve process may be prompting a
// human for credentials or a guard code.
func (c *gatewayClient) Login(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/login", nil, nil)
}

func (c *gatewayClient) UserInfo(ctx context.Context) (domain.UserInfo, error) {
	var info domain.UserInfo
	err := c.do(ctx, http.MethodGet, "/userinfo", nil, &info)
	return info, err
}

type sendRequest struct {
	GroupID     string `json:"groupId"`
	ChannelID   string `json:"channelId,omitempty"`
	ChannelName string `json:"channelName,omitempty"`
	Message     string `json:"message"`
}

func (c *gatewayClient) Send(ctx context.Context, req sendRequest) error {
	return c.do(ctx, http.MethodPost, "/send-message", req, nil)
}

func (c *gatewayClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// loadClientConfig loads the config shared with the serve process and
// builds a client plus the timeout used when waiting on login.
func loadClientConfig() (config.Config, *gatewayClient, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return config.Config{}, nil, err
	}
	client, err := newGatewayClient(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, client, nil
}

func loginTimeout(cfg config.Config) time.Duration {
	return time.Duration(cfg.Steam.LoginTimeoutSeconds) * time.Second
}
