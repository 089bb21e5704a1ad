// Package types provides type-safe constants shared across gamedeck.
//
// Provider values double as the table prefix in the catalog store and as the
// key used in the lobby wire format, so they must stay lowercase.
package types

import (
	"fmt"
	"strings"
)

// Provider identifies a game-ownership source.
type Provider string

const (
	// ProviderSteam is the storefront backed by the owned-games API and the
	// local libraryfolders.vdf manifest.
	ProviderSteam Provider = "steam"
	// ProviderEpic is the store driven through the legendary CLI and a scan
	// of user-configured library folders.
	ProviderEpic Provider = "epic"
)

// AllProviders returns all supported providers in display order.
func AllProviders() []Provider {
	return []Provider{ProviderSteam, ProviderEpic}
}

// Validate checks if the Provider is a valid value.
func (p Provider) Validate() error {
	switch p {
	case ProviderSteam, ProviderEpic:
		return nil
	case "":
		return fmt.Errorf("provider is required")
	default:
		return fmt.Errorf("invalid provider '%s' (must be steam or epic)", p)
	}
}

// String returns the string representation of the Provider.
func (p Provider) String() string {
	return string(p)
}

// DisplayName returns the human-readable store name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderSteam:
		return "Steam"
	case ProviderEpic:
		return "Epic Games"
	default:
		return string(p)
	}
}

// IsSteam returns true if the provider is Steam.
func (p Provider) IsSteam() bool {
	return p == ProviderSteam
}

// IsEpic returns true if the provider is Epic.
func (p Provider) IsEpic() bool {
	return p == ProviderEpic
}

// ParseProvider parses a string into a Provider.
// Returns an error if the string is not a valid provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// LobbyState is the client-side state of a lobby connection.
type LobbyState string

const (
	// LobbyDisconnected means no socket is open.
	LobbyDisconnected LobbyState = "disconnected"
	// LobbyConnecting means the socket is being dialed or the user data
	// registration has been sent but not yet confirmed.
	LobbyConnecting LobbyState = "connecting"
	// LobbyAuthenticated means the server confirmed the username.
	LobbyAuthenticated LobbyState = "authenticated"
	// LobbyInLobby means the client is a member of a lobby.
	LobbyInLobby LobbyState = "in_lobby"
)

// AllLobbyStates returns all lobby states in lifecycle order.
func AllLobbyStates() []LobbyState {
	return []LobbyState{LobbyDisconnected, LobbyConnecting, LobbyAuthenticated, LobbyInLobby}
}

// Validate checks if the LobbyState is a valid value.
func (s LobbyState) Validate() error {
	switch s {
	case LobbyDisconnected, LobbyConnecting, LobbyAuthenticated, LobbyInLobby:
		return nil
	default:
		return fmt.Errorf("invalid lobby state '%s'", s)
	}
}

// String returns the string representation of the LobbyState.
func (s LobbyState) String() string {
	return string(s)
}

// IsConnected returns true for every state with an open socket.
func (s LobbyState) IsConnected() bool {
	return s == LobbyConnecting || s == LobbyAuthenticated || s == LobbyInLobby
}
