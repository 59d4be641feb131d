package steam

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/haoranw/steamgate/internal/config"
	"github.com/haoranw/steamgate/internal/domain"
	"github.com/haoranw/steamgate/internal/logging"
)

func init() {
	Register("sim", func(cfg config.SteamConfig, log *logging.Logger) (Client, error) {
		return NewSimClient(cfg.Sim, log), nil
	})
}

// steamIDBase is the first individual account ID in the public universe.
const steamIDBase uint64 = 76561197960265728

// SimClient is an in-process Client backend with scripted accounts and
// groups. It exists so the gateway can run end to end without the real
// Steam network: logons, guard challenges, token rotation and delivery
// acknowledgments all behave like the live client, minus the wire.
//
// A consumer must drain Events() while the client is in use.
type SimClient struct {
	log    *logging.Logger
	events chan Event

	mu            sync.Mutex
	accounts      map[string]simAccount
	tokens        map[string]string // refresh token → account name
	groups        []domain.Group
	guardCode     string
	pending       string // account that passed the password check, awaiting guard code
	name          string
	id            uint64
	tokenSeq      uint64
	deliveryDelay time.Duration
	closed        bool
}

type simAccount struct {
	password string
	steamID  uint64
}

// NewSimClient builds a simulator from config. Zero-value config seeds
// one account ("simuser"/"simpass", no guard) and one group with a
// general channel.
func NewSimClient(cfg config.SimConfig, log *logging.Logger) *SimClient {
	c := &SimClient{
		log:       log.Sub("steam-sim"),
		events:    make(chan Event, 32),
		accounts:  make(map[string]simAccount),
		tokens:    make(map[string]string),
		guardCode: cfg.GuardCode,
	}

	account := cfg.AccountName
	if account == "" {
		account = "simuser"
	}
	password := cfg.Password
	if password == "" {
		password = "simpass"
	}
	c.accounts[account] = simAccount{password: password, steamID: steamIDBase + 1}

	if len(cfg.Groups) == 0 {
		c.groups = []domain.Group{{
			ID:   "37660928",
			Name: "Simulated Group",
			Channels: []domain.Channel{
				{ID: "1", Name: "general"},
				{ID: "2", Name: "bots"},
			},
		}}
	} else {
		for _, g := range cfg.Groups {
			group := domain.Group{ID: g.ID, Name: g.Name}
			for i, ch := range g.Channels {
				group.Channels = append(group.Channels, domain.Channel{
					ID:   fmt.Sprintf("%d", i+1),
					Name: ch,
				})
			}
			c.groups = append(c.groups, group)
		}
	}

	return c
}

func (c *SimClient) Events() <-chan Event { return c.events }

// SetDeliveryDelay makes SendChannelMessage block for d before
// acknowledging, to exercise slow-delivery paths.
func (c *SimClient) SetDeliveryDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveryDelay = d
}

func (c *SimClient) LogOnWithToken(token string) {
	c.mu.Lock()
	account, ok := c.tokens[token]
	c.mu.Unlock()

	if !ok {
		c.log.Debug().Msg("refresh token rejected")
		c.emit(ErrorEvent{Err: &domain.LogonError{
			Failure: domain.LogonFailureTokenRejected,
			Message: "refresh token rejected",
		}})
		return
	}
	c.completeLogon(account)
}

func (c *SimClient) LogOnWithCredentials(accountName, password string) {
	c.mu.Lock()
	acct, ok := c.accounts[accountName]
	guard := c.guardCode
	c.mu.Unlock()

	if !ok || acct.password != password {
		c.emit(ErrorEvent{Err: &domain.LogonError{
			Failure: domain.LogonFailureBadCredentials,
			Message: "invalid account name or password",
		}})
		return
	}

	if guard != "" {
		c.mu.Lock()
		c.pending = accountName
		c.mu.Unlock()
		c.emit(GuardRequestEvent{Domain: "email"})
		return
	}
	c.completeLogon(accountName)
}

func (c *SimClient) SubmitGuardCode(code string) {
	c.mu.Lock()
	pending := c.pending
	guard := c.guardCode
	c.mu.Unlock()

	if pending == "" {
		c.log.Warn().Msg("guard code submitted with no challenge pending")
		return
	}
	if code != guard {
		c.emit(GuardRequestEvent{Domain: "email", LastCodeWrong: true})
		return
	}

	c.mu.Lock()
	c.pending = ""
	c.mu.Unlock()
	c.completeLogon(pending)
}

func (c *SimClient) completeLogon(account string) {
	c.mu.Lock()
	acct := c.accounts[account]
	c.name = account
	c.id = acct.steamID
	token := c.issueTokenLocked(account)
	c.mu.Unlock()

	c.log.Info().Str("account", account).Msg("simulated logon")
	c.emit(LoggedOnEvent{AccountName: account, SteamID: acct.steamID})
	c.emit(RefreshTokenEvent{Token: token})
}

// issueTokenLocked mints a well-formed refresh token bound to account.
// Callers hold c.mu.
func (c *SimClient) issueTokenLocked(account string) string {
	c.tokenSeq++
	enc := base64.RawURLEncoding.EncodeToString
	payload, _ := json.Marshal(map[string]any{
		"iss": "steam-sim",
		"sub": fmt.Sprintf("%d", c.accounts[account].steamID),
		"jti": c.tokenSeq,
	})
	token := enc([]byte(`{"alg":"none"}`)) + "." + enc(payload) + "." + enc([]byte("sim"))
	c.tokens[token] = account
	return token
}

func (c *SimClient) LogOff() {
	c.mu.Lock()
	wasOn := c.id != 0
	c.name = ""
	c.id = 0
	c.mu.Unlock()

	if wasOn {
		c.emit(DisconnectedEvent{Reason: "logoff"})
	}
}

func (c *SimClient) SteamID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *SimClient) Groups(ctx context.Context) ([]domain.GroupRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.id == 0 {
		return nil, fmt.Errorf("not logged on")
	}
	refs := make([]domain.GroupRef, 0, len(c.groups))
	for _, g := range c.groups {
		refs = append(refs, domain.GroupRef{ID: g.ID, Name: g.Name})
	}
	return refs, nil
}

func (c *SimClient) ActivateGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.id == 0 {
		return nil, fmt.Errorf("not logged on")
	}
	for _, g := range c.groups {
		if g.ID == groupID {
			group := g
			group.Channels = append([]domain.Channel(nil), g.Channels...)
			return &group, nil
		}
	}
	return nil, nil
}

func (c *SimClient) SendChannelMessage(ctx context.Context, groupID, channelID, text string) error {
	c.mu.Lock()
	delay := c.deliveryDelay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	c.log.Debug().
		Str("group", groupID).
		Str("channel", channelID).
		Int("bytes", len(text)).
		Msg("simulated delivery ack")
	return nil
}

// Close shuts down the event stream. No methods may be called after.
func (c *SimClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}

func (c *SimClient) emit(ev Event) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.events <- ev
}
