package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/haoranw/steamgate/internal/domain"
)

// routes sets up all control-plane routes. Only the liveness probe
// skips authentication.
func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /status", s.requireAuth(s.handleStatus))
	mux.Handle("POST /login", s.requireAuth(s.handleLogin))
	mux.Handle("GET /userinfo", s.requireAuth(s.handleUserInfo))
	mux.Handle("POST /send-message", s.requireAuth(s.handleSendMessage))
	mux.Handle("POST /logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("/", handleNotFound)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type resultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// StatusResponse is the GET /status payload. The supervising
// automation polls it to decide whether a login is needed and whether
// the bot has gone quiet.
type StatusResponse struct {
	LoggedIn   bool       `json:"loggedIn"`
	Name       string     `json:"name,omitempty"`
	SteamID    uint64     `json:"steamId,omitempty"`
	LastSentAt *time.Time `json:"lastSentAt,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// handleHealth is the unauthenticated liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Error:   "not found",
		Details: r.URL.Path,
	})
}

// handleStatus reports the session state: 200 with the account name
// when authenticated, 401 otherwise.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Status()
	if !st.LoggedIn {
		writeJSON(w, http.StatusUnauthorized, StatusResponse{
			LoggedIn: false,
			Error:    "not logged in",
		})
		return
	}

	resp := StatusResponse{LoggedIn: true, Name: st.AccountName, SteamID: st.SteamID}
	if !st.LastSentAt.IsZero() {
		resp.LastSentAt = &st.LastSentAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogin triggers the login flow. Already authenticated is an
// immediate success. The session operation is detached from the
// request context: a caller that walks away does not abort a login
// already in progress.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.sessions.Status().LoggedIn {
		writeJSON(w, http.StatusOK, resultResponse{Success: true, Message: "already logged in"})
		return
	}

	if err := s.sessions.LogOn(context.WithoutCancel(r.Context())); err != nil {
		s.log.Error().Err(err).Msg("login failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "login failed",
			Details: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Success: true, Message: "login completed"})
}

// handleUserInfo returns the account name, numeric ID and group
// memberships.
func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.CurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not logged in"})
			return
		}
		s.log.Error().Err(err).Msg("userinfo failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal error",
			Details: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type sendMessageRequest struct {
	GroupID     string `json:"groupId"`
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	Message     string `json:"message"`
}

// handleSendMessage validates the request and delegates the dispatch.
// Success means the preconditions passed and the message was handed
// off, not that delivery was confirmed.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid request body",
			Details: err.Error(),
		})
		return
	}

	channel := req.ChannelID
	if channel == "" {
		channel = req.ChannelName
	}
	if req.GroupID == "" || channel == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "groupId, channelId or channelName, and message are required",
		})
		return
	}

	err := s.sessions.SendMessage(context.WithoutCancel(r.Context()), req.GroupID, channel, req.Message)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resultResponse{Success: true, Message: "message accepted"})
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not logged in"})
	case errors.Is(err, domain.ErrGroupNotFound), errors.Is(err, domain.ErrChannelNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   "not found",
			Details: err.Error(),
		})
	case errors.Is(err, domain.ErrMetadataTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{
			Error:   "steam metadata request timed out",
			Details: err.Error(),
		})
	default:
		s.log.Error().Err(err).Msg("send-message failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal error",
			Details: err.Error(),
		})
	}
}

// handleLogout tears the session down and, when configured, hands the
// process to the shutdown hook after the response is written. The hook
// runs even when logoff fails so the process still ends up in a safe
// state.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := s.sessions.LogOff(context.WithoutCancel(r.Context()))
	if err != nil {
		s.log.Error().Err(err).Msg("logout failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal error",
			Details: err.Error(),
		})
	} else {
		writeJSON(w, http.StatusOK, resultResponse{Success: true, Message: "logged off"})
	}

	if s.shutdown != nil && s.cfg.ExitOnLogoutEnabled() {
		s.log.Info().Msg("logout requested, shutting down")
		s.shutdown()
	}
}
