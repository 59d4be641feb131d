// Package steam defines the boundary to the Steam network client. The
// wire protocol itself lives behind the Client interface; this package
// ships the contract, refresh-token validation, and an in-process
// simulator backend used for development and tests.
package steam

import (
	"context"

	"github.com/haoranw/steamgate/internal/domain"
)

// Client is the network-client capability the session manager drives.
// Logon calls only initiate the operation; outcomes arrive as events.
// Implementations reconnect and re-authenticate at the transport level
// on their own.
type Client interface {
	// Events returns the stream of asynchronous client events. The
	// channel is owned by the client and closed on shutdown.
	Events() <-chan Event

	// LogOnWithToken starts a logon using a cached refresh token.
	LogOnWithToken(token string)

	// LogOnWithCredentials starts an account-name/password logon. A
	// GuardRequestEvent may follow before the attempt resolves.
	LogOnWithCredentials(accountName, password string)

	// SubmitGuardCode answers a pending second-factor challenge.
	SubmitGuardCode(code string)

	// LogOff requests a logoff; a DisconnectedEvent confirms it.
	LogOff()

	// SteamID returns the live numeric identity, or 0 when none.
	SteamID() uint64

	// Groups lists the chat groups the logged-on account belongs to.
	Groups(ctx context.Context) ([]domain.GroupRef, error)

	// ActivateGroup marks the group active on the backend session, a
	// precondition for addressing its channels, and returns its state
	// including the channel list. A nil group with nil error means the
	// backend did not confirm membership.
	ActivateGroup(ctx context.Context, groupID string) (*domain.Group, error)

	// SendChannelMessage dispatches text to a channel and blocks until
	// the backend acknowledges delivery.
	SendChannelMessage(ctx context.Context, groupID, channelID, text string) error
}

// Event is a push-style notification from the Steam client.
type Event interface {
	event()
}

// LoggedOnEvent reports a successful authentication.
type LoggedOnEvent struct {
	AccountName string
	SteamID     uint64
}

// RefreshTokenEvent reports a rotated refresh token. It can arrive at
// any time while logged on, not only during logon.
type RefreshTokenEvent struct {
	Token string
}

// DisconnectedEvent reports a dropped or closed connection.
type DisconnectedEvent struct {
	Reason string
}

// GuardRequestEvent asks for a second-factor verification code.
// LastCodeWrong is set when a previously submitted code was rejected.
type GuardRequestEvent struct {
	Domain        string
	LastCodeWrong bool
}

// ErrorEvent reports a client failure. During a logon attempt Err is
// typically a *domain.LogonError.
type ErrorEvent struct {
	Err error
}

func (LoggedOnEvent) event()     {}
func (RefreshTokenEvent) event() {}
func (DisconnectedEvent) event() {}
func (GuardRequestEvent) event() {}
func (ErrorEvent) event()        {}
