package domain

import "time"

// Status is the externally observable state of the Steam session.
// AccountName and SteamID are populated only while LoggedIn is true.
type Status struct {
	LoggedIn    bool      `json:"loggedIn"`
	AccountName string    `json:"accountName,omitempty"`
	SteamID     uint64    `json:"steamId,omitempty"`
	LastSentAt  time.Time `json:"lastSentAt,omitzero"`
}

// GroupRef identifies a chat group the session is a member of.
type GroupRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Channel is a text channel within a chat group.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Group is the backend-confirmed state of a chat group, fetched on
// demand and never cached across calls.
type Group struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Channels []Channel `json:"channels"`
}

// UserInfo describes the logged-on account and its group memberships.
type UserInfo struct {
	Name   string     `json:"name"`
	ID     uint64     `json:"id"`
	Groups []GroupRef `json:"groups"`
}
