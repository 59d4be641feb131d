// Package session owns the single authenticated Steam identity this
// process maintains. The Manager is the only component that touches the
// network client and the refresh-token cache; the control plane only
// ever calls its exported operations.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/haoranw/steamgate/internal/domain"
	"github.com/haoranw/steamgate/internal/logging"
	"github.com/haoranw/steamgate/internal/steam"
)

const defaultMetadataTimeout = 10 * time.Second

// Manager drives the LoggedOut → LoggingIn → LoggedIn state machine.
// All mutation of the session identity happens on the event loop (Run);
// operations observe it through the mutex-guarded snapshot.
type Manager struct {
	client steam.Client
	cache  *TokenCache
	prompt Prompter
	log    *logging.Logger

	metadataTimeout time.Duration

	// flight serializes login: at most one logon sequence runs, and
	// every concurrent caller shares its outcome. The slot is released
	// on every exit path.
	flight singleflight.Group

	mu          sync.Mutex
	accountName string
	steamID     uint64
	lastSentAt  time.Time
	attempt     *logonAttempt // in-flight logon awaiting client events
	logoffWait  chan struct{} // closed on the next disconnect event
}

// logonAttempt carries client events into the goroutine running the
// login sequence. done is buffered so the event loop never blocks on a
// resolution; guard holds at most one pending challenge.
type logonAttempt struct {
	guard chan steam.GuardRequestEvent
	done  chan error
}

func newLogonAttempt() *logonAttempt {
	return &logonAttempt{
		guard: make(chan steam.GuardRequestEvent, 1),
		done:  make(chan error, 1),
	}
}

// resolve delivers the attempt outcome at most once.
func (a *logonAttempt) resolve(err error) {
	select {
	case a.done <- err:
	default:
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetadataTimeout bounds group activation during send-message.
func WithMetadataTimeout(d time.Duration) Option {
	return func(m *Manager) { m.metadataTimeout = d }
}

// NewManager wires the session manager. Run must be started before any
// operation is called.
func NewManager(client steam.Client, cache *TokenCache, prompt Prompter, log *logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		client:          client,
		cache:           cache,
		prompt:          prompt,
		log:             log.Sub("session"),
		metadataTimeout: defaultMetadataTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run consumes client events until the context is cancelled or the
// client closes its event stream. It is the sole writer of the session
// identity.
func (m *Manager) Run(ctx context.Context) {
	events := m.client.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.handleEvent(ev)
		}
	}
}

func (m *Manager) handleEvent(ev steam.Event) {
	switch ev := ev.(type) {
	case steam.LoggedOnEvent:
		m.mu.Lock()
		m.accountName = ev.AccountName
		m.steamID = ev.SteamID
		att := m.attempt
		m.mu.Unlock()

		m.log.Info().
			Str("account", ev.AccountName).
			Uint64("steamId", ev.SteamID).
			Msg("logged on")
		if att != nil {
			att.resolve(nil)
		}

	case steam.RefreshTokenEvent:
		// Rotation can happen at any point while logged on. A write
		// failure costs a future silent login, never the session.
		if err := m.cache.Save(ev.Token); err != nil {
			m.log.Error().Err(err).Str("path", m.cache.Path()).Msg("failed to persist refresh token")
		} else {
			m.log.Debug().Msg("refresh token rotated")
		}

	case steam.DisconnectedEvent:
		// The client reconnects on its own; session state follows the
		// live identity, not the disconnect itself.
		identity := m.client.SteamID()

		m.mu.Lock()
		if identity == 0 {
			m.accountName = ""
			m.steamID = 0
		}
		w := m.logoffWait
		m.logoffWait = nil
		att := m.attempt
		m.mu.Unlock()

		m.log.Warn().
			Str("reason", ev.Reason).
			Bool("identityRetained", identity != 0).
			Msg("disconnected")

		if w != nil {
			close(w)
		}
		if att != nil && identity == 0 {
			att.resolve(&domain.LogonError{Message: "disconnected: " + ev.Reason})
		}

	case steam.GuardRequestEvent:
		m.mu.Lock()
		att := m.attempt
		m.mu.Unlock()
		if att == nil {
			m.log.Warn().Msg("guard code requested outside a login attempt")
			return
		}
		select {
		case att.guard <- ev:
		default:
		}

	case steam.ErrorEvent:
		m.mu.Lock()
		att := m.attempt
		m.mu.Unlock()
		if att != nil {
			att.resolve(ev.Err)
			return
		}
		m.log.Error().Err(ev.Err).Msg("steam client error")
	}
}

// Status reports the current session state. AccountName and SteamID are
// populated only while the client holds a live identity.
func (m *Manager) Status() domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := domain.Status{LastSentAt: m.lastSentAt}
	if m.steamID == 0 || m.client.SteamID() == 0 {
		return st
	}
	st.LoggedIn = true
	st.AccountName = m.accountName
	st.SteamID = m.steamID
	return st
}

// LogOn establishes the session. Already logged in is a no-op. When an
// attempt is in flight, the call awaits and returns that attempt's
// outcome instead of starting a second one.
func (m *Manager) LogOn(ctx context.Context) error {
	if m.Status().LoggedIn {
		return nil
	}
	_, err, _ := m.flight.Do("logon", func() (any, error) {
		if m.Status().LoggedIn {
			return nil, nil
		}
		return nil, m.runLogon(ctx)
	})
	return err
}

// runLogon is the single-flight login sequence: cached token first,
// then interactive credentials with indefinite retry on recoverable
// failures. Rate limiting aborts immediately.
func (m *Manager) runLogon(ctx context.Context) error {
	token, err := m.cache.Load()
	if err != nil {
		return fmt.Errorf("reading token cache: %w", err)
	}

	if token != "" {
		if !steam.ValidRefreshToken(token) {
			m.log.Warn().Str("path", m.cache.Path()).Msg("cached refresh token is malformed, using interactive logon")
		} else {
			err := m.awaitLogon(ctx, func() { m.client.LogOnWithToken(token) })
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return err
			}
			m.log.Warn().Err(err).Msg("cached refresh token not accepted, using interactive logon")
		}
	}

	for {
		account, password, err := m.prompt.Credentials(ctx)
		if err != nil {
			return fmt.Errorf("reading credentials: %w", err)
		}

		err = m.awaitLogon(ctx, func() { m.client.LogOnWithCredentials(account, password) })
		if err == nil {
			return nil
		}

		var le *domain.LogonError
		if errors.As(err, &le) && !le.Retryable() {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		m.log.Warn().Err(err).Msg("logon attempt failed, prompting again")
	}
}

// awaitLogon registers an attempt with the event loop, initiates the
// logon, and drives guard-code challenges until the attempt resolves.
func (m *Manager) awaitLogon(ctx context.Context, start func()) error {
	att := newLogonAttempt()
	m.mu.Lock()
	m.attempt = att
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.attempt = nil
		m.mu.Unlock()
	}()

	start()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case g := <-att.guard:
			code, err := m.prompt.GuardCode(ctx, g.Domain, g.LastCodeWrong)
			if err != nil {
				return fmt.Errorf("reading guard code: %w", err)
			}
			m.client.SubmitGuardCode(code)
		case err := <-att.done:
			return err
		}
	}
}

// CurrentUser returns the logged-on account and its group memberships.
func (m *Manager) CurrentUser(ctx context.Context) (domain.UserInfo, error) {
	st := m.Status()
	if !st.LoggedIn {
		return domain.UserInfo{}, domain.ErrNotAuthenticated
	}

	groups, err := m.client.Groups(ctx)
	if err != nil {
		return domain.UserInfo{}, fmt.Errorf("listing groups: %w", err)
	}
	return domain.UserInfo{Name: st.AccountName, ID: st.SteamID, Groups: groups}, nil
}

// ListGroups returns the chat groups the session is a member of.
func (m *Manager) ListGroups(ctx context.Context) ([]domain.GroupRef, error) {
	if !m.Status().LoggedIn {
		return nil, domain.ErrNotAuthenticated
	}
	groups, err := m.client.Groups(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	return groups, nil
}

// ListChannels returns the channels of one group. Membership and
// topology change between calls, so nothing is cached.
func (m *Manager) ListChannels(ctx context.Context, groupID string) ([]domain.Channel, error) {
	if !m.Status().LoggedIn {
		return nil, domain.ErrNotAuthenticated
	}
	group, err := m.resolveGroup(groupID)
	if err != nil {
		return nil, err
	}
	return group.Channels, nil
}

// SendMessage validates the target group and channel, then dispatches
// the message. It returns as soon as the preconditions pass; delivery
// confirmation is awaited in the background and only logged. channel
// matches a channel ID first, then a display name.
func (m *Manager) SendMessage(ctx context.Context, groupID, channel, text string) error {
	if !m.Status().LoggedIn {
		return domain.ErrNotAuthenticated
	}

	group, err := m.resolveGroup(groupID)
	if err != nil {
		return err
	}

	target, ok := findChannel(group.Channels, channel)
	if !ok {
		return fmt.Errorf("%w: %q in group %s", domain.ErrChannelNotFound, channel, groupID)
	}

	m.mu.Lock()
	m.lastSentAt = time.Now()
	m.mu.Unlock()

	go m.awaitDelivery(group.ID, target, text)
	return nil
}

// resolveGroup activates the group on the backend session and returns
// its confirmed state. The wait is bounded by the metadata timeout; the
// underlying backend request is not tied to any caller and may still
// complete after the wait is abandoned.
func (m *Manager) resolveGroup(groupID string) (*domain.Group, error) {
	actx, cancel := context.WithTimeout(context.Background(), m.metadataTimeout)
	defer cancel()

	group, err := m.client.ActivateGroup(actx, groupID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrMetadataTimeout
		}
		return nil, fmt.Errorf("activating group %s: %w", groupID, err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupID)
	}
	return group, nil
}

func findChannel(channels []domain.Channel, selector string) (domain.Channel, bool) {
	for _, ch := range channels {
		if ch.ID == selector {
			return ch, true
		}
	}
	for _, ch := range channels {
		if ch.Name == selector {
			return ch, true
		}
	}
	return domain.Channel{}, false
}

// awaitDelivery hands the accepted message to the client and waits for
// the backend acknowledgment. The outcome is operational logging only;
// the original caller already got its response.
func (m *Manager) awaitDelivery(groupID string, ch domain.Channel, text string) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Any("panic", r).Msg("delivery wait panicked")
		}
	}()

	if err := m.client.SendChannelMessage(context.Background(), groupID, ch.ID, text); err != nil {
		m.log.Error().
			Err(err).
			Str("group", groupID).
			Str("channel", ch.Name).
			Msg("message delivery not confirmed")
		return
	}
	m.log.Info().
		Str("group", groupID).
		Str("channel", ch.Name).
		Msg("message delivered")
}

// LogOff tears the session down and only returns after the client
// confirms disconnection. Not being logged in is a success: the call
// resolves immediately without emitting a logoff request.
func (m *Manager) LogOff(ctx context.Context) error {
	if m.client.SteamID() == 0 {
		m.mu.Lock()
		m.accountName = ""
		m.steamID = 0
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	w := m.logoffWait
	if w == nil {
		w = make(chan struct{})
		m.logoffWait = w
	}
	m.mu.Unlock()

	m.log.Info().Msg("logging off")
	m.client.LogOff()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w:
	}

	m.mu.Lock()
	m.accountName = ""
	m.steamID = 0
	m.mu.Unlock()
	return nil
}
