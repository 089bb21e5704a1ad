package lobby

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/adamancini/gamedeck/internal/catalog"
	"github.com/adamancini/gamedeck/internal/types"
)

// Actions sent by the client.
const (
	ActionSetUserData = "set_user_data"
	ActionCreateLobby = "create_lobby"
	ActionJoinLobby   = "join_lobby"
	ActionLeaveLobby  = "leave_lobby"
)

// Actions sent by the server.
const (
	ActionUsernameSet  = "username_set"
	ActionLobbyCreated = "lobby_created"
	ActionLobbyJoined  = "lobby_joined"
	ActionLobbyUpdate  = "lobby_update"
	ActionLobbyLeft    = "lobby_left"
	ActionError        = "error"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Member is one lobby participant.
type Member struct {
	UserName string `json:"userName"`
}

// Session is the lobby the client currently belongs to.
type Session struct {
	LobbyID   string   `json:"lobbyId"`
	LobbyName string   `json:"lobbyName"`
	Members   []Member `json:"members"`
}

func (s Session) clone() Session {
	s.Members = append([]Member(nil), s.Members...)
	return s
}

// Owner is a lobby member that owns a game.
type Owner struct {
	Username  string `json:"username"`
	Installed bool   `json:"installed"`
}

// SharedGame is a game as published by one member. Epic and Steam games
// carry different fields.
type SharedGame struct {
	// Epic
	Title        string `json:"title,omitempty"`
	AppName      string `json:"app_name,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`

	// Steam
	Name       string `json:"name,omitempty"`
	SteamID    string `json:"steam_id,omitempty"`
	ImgIconURL string `json:"img_icon_url,omitempty"`
}

// DisplayTitle returns the title of either provider's game.
func (g SharedGame) DisplayTitle() string {
	if g.Title != "" {
		return g.Title
	}
	return g.Name
}

// GameOwners lists who in the lobby owns one game.
type GameOwners struct {
	Game   SharedGame `json:"game"`
	Owners []Owner    `json:"owners"`
}

// Games is the lobby-wide ownership data of the last lobby_update.
type Games struct {
	Epic  []GameOwners `json:"epic"`
	Steam []GameOwners `json:"steam"`
}

// For returns the games of one provider.
func (g Games) For(p types.Provider) []GameOwners {
	if p.IsSteam() {
		return g.Steam
	}
	return g.Epic
}

func (g Games) clone() Games {
	return Games{
		Epic:  append([]GameOwners(nil), g.Epic...),
		Steam: append([]GameOwners(nil), g.Steam...),
	}
}

// SteamGame is a Steam catalog row as published to the lobby.
type SteamGame struct {
	Name        string `json:"name"`
	SteamID     string `json:"steam_id"`
	ImgIconURL  string `json:"img_icon_url"`
	IsInstalled bool   `json:"is_installed"`
}

// EpicGame is an Epic catalog row as published to the lobby.
type EpicGame struct {
	Title        string `json:"title"`
	AppName      string `json:"app_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	IsInstalled  bool   `json:"is_installed"`
}

// UserGames is the library sent with set_user_data.
type UserGames struct {
	SteamGames []SteamGame `json:"steamGames"`
	EpicGames  []EpicGame  `json:"epicGames"`
}

// FromSnapshot converts a catalog snapshot to the published form.
func FromSnapshot(snap *catalog.Snapshot) UserGames {
	out := UserGames{SteamGames: []SteamGame{}, EpicGames: []EpicGame{}}
	if snap == nil {
		return out
	}
	for _, e := range snap.Steam {
		out.SteamGames = append(out.SteamGames, SteamGame{
			Name:        e.Title,
			SteamID:     e.ID,
			ImgIconURL:  e.IconHash,
			IsInstalled: e.Installed,
		})
	}
	for _, e := range snap.Epic {
		out.EpicGames = append(out.EpicGames, EpicGame{
			Title:        e.Title,
			AppName:      e.ID,
			ThumbnailURL: e.ThumbnailURL,
			IsInstalled:  e.Installed,
		})
	}
	return out
}

// Outbound payloads.
type (
	setUserDataPayload struct {
		Username string    `json:"username"`
		Games    UserGames `json:"games"`
	}

	createLobbyPayload struct {
		LobbyName string `json:"lobbyName"`
	}

	// joinByIDPayload joins a lobby known only by id.
	joinByIDPayload struct {
		LobbyID string `json:"lobbyId"`
	}

	// joinLobbyPayload is the join that follows lobby_created. Every key is
	// always sent.
	joinLobbyPayload struct {
		LobbyID   string   `json:"lobbyId"`
		LobbyName string   `json:"lobbyName"`
		Members   []Member `json:"members"`
	}
)

func joinCreated(s Session) *joinLobbyPayload {
	members := s.Members
	if members == nil {
		members = []Member{}
	}
	return &joinLobbyPayload{LobbyID: s.LobbyID, LobbyName: s.LobbyName, Members: members}
}

// Message is a decoded server frame. The concrete type is one of
// UsernameSet, LobbyCreated, LobbyJoined, LobbyUpdate, LobbyLeft,
// ServerError or Unknown.
type Message interface {
	Action() string
}

// UsernameSet confirms the name the server registered.
type UsernameSet struct {
	Username string
}

// LobbyCreated reports a lobby created on the client's behalf.
type LobbyCreated struct {
	Session Session
}

// LobbyJoined reports the client joined a lobby.
type LobbyJoined struct {
	Session Session
}

// LobbyUpdate carries new membership, ownership data, or both.
type LobbyUpdate struct {
	Session *Session
	Games   *Games
}

// LobbyLeft reports the client left its lobby.
type LobbyLeft struct{}

// ServerError is an error reported by the server.
type ServerError struct {
	Message string
}

// Unknown is any action without built-in handling.
type Unknown struct {
	Name    string
	Payload json.RawMessage
}

func (UsernameSet) Action() string  { return ActionUsernameSet }
func (LobbyCreated) Action() string { return ActionLobbyCreated }
func (LobbyJoined) Action() string  { return ActionLobbyJoined }
func (LobbyUpdate) Action() string  { return ActionLobbyUpdate }
func (LobbyLeft) Action() string    { return ActionLobbyLeft }
func (ServerError) Action() string  { return ActionError }
func (u Unknown) Action() string    { return u.Name }

// wireLobby accepts both member keys; servers send lobbyMembers while the
// client's own join_lobby uses members.
type wireLobby struct {
	LobbyID      string   `json:"lobbyId"`
	LobbyName    string   `json:"lobbyName"`
	LobbyMembers []Member `json:"lobbyMembers"`
	Members      []Member `json:"members"`
	Info         *Games   `json:"info"`
}

func (w wireLobby) session() Session {
	members := w.LobbyMembers
	if members == nil {
		members = w.Members
	}
	if members == nil {
		members = []Member{}
	}
	return Session{LobbyID: w.LobbyID, LobbyName: w.LobbyName, Members: members}
}

func (w wireLobby) hasMembership() bool {
	return w.LobbyID != "" || w.LobbyMembers != nil || w.Members != nil
}

// Decode parses one frame.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if env.Action == "" {
		return nil, fmt.Errorf("decode frame: missing action")
	}

	switch env.Action {
	case ActionUsernameSet:
		var p struct {
			Username string `json:"username"`
		}
		if s, ok := stringPayload(env.Payload); ok {
			return UsernameSet{Username: s}, nil
		}
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return UsernameSet{Username: p.Username}, nil

	case ActionLobbyCreated, ActionLobbyJoined:
		var w wireLobby
		if s, ok := stringPayload(env.Payload); ok {
			w.LobbyID = s
		} else if err := decodePayload(env, &w); err != nil {
			return nil, err
		}
		if w.LobbyID == "" {
			return nil, fmt.Errorf("decode %s: missing lobbyId", env.Action)
		}
		if env.Action == ActionLobbyCreated {
			return LobbyCreated{Session: w.session()}, nil
		}
		return LobbyJoined{Session: w.session()}, nil

	case ActionLobbyUpdate:
		var w wireLobby
		if err := decodePayload(env, &w); err != nil {
			return nil, err
		}
		var msg LobbyUpdate
		if w.hasMembership() {
			s := w.session()
			msg.Session = &s
		}
		msg.Games = w.Info
		return msg, nil

	case ActionLobbyLeft:
		return LobbyLeft{}, nil

	case ActionError:
		if s, ok := stringPayload(env.Payload); ok {
			return ServerError{Message: s}, nil
		}
		var p struct {
			Message string `json:"message"`
		}
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return ServerError{Message: p.Message}, nil

	default:
		return Unknown{Name: env.Action, Payload: env.Payload}, nil
	}
}

func decodePayload(env Envelope, v interface{}) error {
	if len(env.Payload) == 0 || bytes.Equal(env.Payload, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Action, err)
	}
	return nil
}

// stringPayload reports whether the payload is a bare JSON string.
func stringPayload(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func encode(action string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", action, err)
	}
	return json.Marshal(Envelope{Action: action, Payload: raw})
}
