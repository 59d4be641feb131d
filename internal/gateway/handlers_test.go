package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haoranw/steamgate/internal/config"
	"github.com/haoranw/steamgate/internal/domain"
	"github.com/haoranw/steamgate/internal/logging"
)

const testToken = "test-bearer-token"

type stubSessions struct {
	mu sync.Mutex

	status    domain.Status
	logOnErr  error
	userInfo  domain.UserInfo
	userErr   error
	sendErr   error
	logOffErr error

	logOnCalls  int
	logOffCalls int
	sends       [][3]string
}

func (s *stubSessions) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *stubSessions) LogOn(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logOnCalls++
	if s.logOnErr == nil {
		s.status.LoggedIn = true
	}
	return s.logOnErr
}

func (s *stubSessions) CurrentUser(ctx context.Context) (domain.UserInfo, error) {
	return s.userInfo, s.userErr
}

func (s *stubSessions) SendMessage(ctx context.Context, groupID, channel, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sends = append(s.sends, [3]string{groupID, channel, text})
	return nil
}

func (s *stubSessions) LogOff(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logOffCalls++
	return s.logOffErr
}

func newTestServer(t *testing.T, sessions Sessions, opts ...ServerOption) *httptest.Server {
	t.Helper()
	cfg := config.GatewayConfig{Auth: config.GatewayAuth{Token: testToken}}
	srv := New(cfg, sessions, logging.New(io.Discard, "silent"), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, body any, auth bool) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if auth {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestHealthRequiresNoAuth(t *testing.T) {
	ts := newTestServer(t, &stubSessions{})

	resp, payload := doRequest(t, ts, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", payload["status"])
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	ts := newTestServer(t, &stubSessions{})

	resp, payload := doRequest(t, ts, http.MethodGet, "/status", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing bearer token", payload["error"])
}

func TestProtectedRoutesRejectWrongToken(t *testing.T) {
	ts := newTestServer(t, &stubSessions{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/status", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-the-token")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRepeatedAuthFailuresAreRateLimited(t *testing.T) {
	ts := newTestServer(t, &stubSessions{})

	var last int
	for range authRateMaxFails + 1 {
		resp, err := ts.Client().Get(ts.URL + "/status")
		require.NoError(t, err)
		resp.Body.Close()
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestStatusLoggedOut(t *testing.T) {
	ts := newTestServer(t, &stubSessions{})

	resp, payload := doRequest(t, ts, http.MethodGet, "/status", nil, true)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, payload["loggedIn"])
	assert.Equal(t, "not logged in", payload["error"])
}

func TestStatusLoggedIn(t *testing.T) {
	sent := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	ts := newTestServer(t, &stubSessions{status: domain.Status{
		LoggedIn:    true,
		AccountName: "pressf",
		SteamID:     76561197960265729,
		LastSentAt:  sent,
	}})

	resp, payload := doRequest(t, ts, http.MethodGet, "/status", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["loggedIn"])
	assert.Equal(t, "pressf", payload["name"])
	assert.NotEmpty(t, payload["lastSentAt"])
	assert.NotContains(t, payload, "error")
}

func TestStatusOmitsLastSentBeforeFirstMessage(t *testing.T) {
	ts := newTestServer(t, &stubSessions{status: domain.Status{LoggedIn: true, AccountName: "pressf"}})

	_, payload := doRequest(t, ts, http.MethodGet, "/status", nil, true)
	assert.NotContains(t, payload, "lastSentAt")
}

func TestLoginTriggersSession(t *testing.T) {
	stub := &stubSessions{}
	ts := newTestServer(t, stub)

	resp, payload := doRequest(t, ts, http.MethodPost, "/login", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, 1, stub.logOnCalls)
}

func TestLoginAlreadyLoggedInSkipsSession(t *testing.T) {
	stub := &stubSessions{status: domain.Status{LoggedIn: true}}
	ts := newTestServer(t, stub)

	resp, payload := doRequest(t, ts, http.MethodPost, "/login", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "already logged in", payload["message"])
	assert.Equal(t, 0, stub.logOnCalls)
}

func TestLoginFailureReported(t *testing.T) {
	stub := &stubSessions{logOnErr: &domain.LogonError{
		Failure: domain.LogonFailureBadCredentials,
		Message: "invalid password",
	}}
	ts := newTestServer(t, stub)

	resp, payload := doRequest(t, ts, http.MethodPost, "/login", nil, true)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "login failed", payload["error"])
	assert.Contains(t, payload["details"], "invalid password")
}

func TestUserInfo(t *testing.T) {
	stub := &stubSessions{userInfo: domain.UserInfo{
		Name:   "pressf",
		ID:     76561197960265729,
		Groups: []domain.GroupRef{{ID: "37660928", Name: "press F"}},
	}}
	ts := newTestServer(t, stub)

	resp, payload := doRequest(t, ts, http.MethodGet, "/userinfo", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pressf", payload["name"])
}

func TestUserInfoNotLoggedIn(t *testing.T) {
	stub := &stubSessions{userErr: domain.ErrNotAuthenticated}
	ts := newTestServer(t, stub)

	resp, _ := doRequest(t, ts, http.MethodGet, "/userinfo", nil, true)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSendMessageByChannelID(t *testing.T) {
	stub := &stubSessions{}
	ts := newTestServer(t, stub)

	resp, payload := doRequest(t, ts, http.MethodPost, "/send-message", map[string]string{
		"groupId":   "37660928",
		"channelId": "42",
		"message":   "o7",
	}, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["success"])
	require.Len(t, stub.sends, 1)
	assert.Equal(t, [3]string{"37660928", "42", "o7"}, stub.sends[0])
}

func TestSendMessageByChannelName(t *testing.T) {
	stub := &stubSessions{}
	ts := newTestServer(t, stub)

	resp, _ := doRequest(t, ts, http.MethodPost, "/send-message", map[string]string{
		"groupId":     "37660928",
		"channelName": "bot-waiting-room",
		"message":     "o7",
	}, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, stub.sends, 1)
	assert.Equal(t, "bot-waiting-room", stub.sends[0][1])
}

func TestSendMessageChannelIDWinsOverName(t *testing.T) {
	stub := &stubSessions{}
	ts := newTestServer(t, stub)

	doRequest(t, ts, http.MethodPost, "/send-message", map[string]string{
		"groupId":     "37660928",
		"channelId":   "42",
		"channelName": "bot-waiting-room",
		"message":     "o7",
	}, true)
	require.Len(t, stub.sends, 1)
	assert.Equal(t, "42", stub.sends[0][1])
}

func TestSendMessageMissingFields(t *testing.T) {
	stub := &stubSessions{}
	ts := newTestServer(t, stub)

	for _, body := range []map[string]string{
		{"channelId": "42", "message": "o7"},
		{"groupId": "37660928", "message": "o7"},
		{"groupId": "37660928", "channelId": "42"},
	} {
		resp, _ := doRequest(t, ts, http.MethodPost, "/send-message", body, true)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
	assert.Empty(t, stub.sends)
}

func TestSendMessageInvalidBody(t *testing.T) {
	ts := newTestServer(t, &stubSessions{})

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/send-message", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendMessageErrorMapping(t *testing.T) {
	sendBody := map[string]string{"groupId": "1", "channelId": "2", "message": "x"}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not authenticated", domain.ErrNotAuthenticated, http.StatusUnauthorized},
		{"unknown group", domain.ErrGroupNotFound, http.StatusNotFound},
		{"unknown channel", domain.ErrChannelNotFound, http.StatusNotFound},
		{"metadata timeout", domain.ErrMetadataTimeout, http.StatusGatewayTimeout},
		{"transport failure", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &stubSessions{sendErr: tt.err})
			resp, _ := doRequest(t, ts, http.MethodPost, "/send-message", sendBody, true)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestLogoutInvokesShutdownHook(t *testing.T) {
	stub := &stubSessions{}
	done := make(chan struct{})
	ts := newTestServer(t, stub, WithShutdownFunc(func() { close(done) }))

	resp, payload := doRequest(t, ts, http.MethodPost, "/logout", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "logged off", payload["message"])
	assert.Equal(t, 1, stub.logOffCalls)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown hook was not invoked")
	}
}

func TestLogoutShutdownHookRunsEvenOnFailure(t *testing.T) {
	stub := &stubSessions{logOffErr: io.ErrUnexpectedEOF}
	done := make(chan struct{})
	ts := newTestServer(t, stub, WithShutdownFunc(func() { close(done) }))

	resp, _ := doRequest(t, ts, http.MethodPost, "/logout", nil, true)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown hook was not invoked")
	}
}

func TestLogoutHonorsExitOnLogoutDisabled(t *testing.T) {
	off := false
	cfg := config.GatewayConfig{
		Auth:         config.GatewayAuth{Token: testToken},
		ExitOnLogout: &off,
	}
	called := false
	srv := New(cfg, &stubSessions{}, logging.New(io.Discard, "silent"), WithShutdownFunc(func() { called = true }))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, _ := doRequest(t, ts, http.MethodPost, "/logout", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, called)
}

func TestUnknownRouteIs404(t *testing.T) {
	ts := newTestServer(t, &stubSessions{})

	resp, payload := doRequest(t, ts, http.MethodGet, "/nope", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", payload["error"])
}
