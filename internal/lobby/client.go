// Package lobby is the client side of the lobby protocol: it publishes the
// local library to a lobby server and tracks the session state the server
// reports back.
package lobby

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/adamancini/gamedeck/internal/logging"
	"github.com/adamancini/gamedeck/internal/types"
)

const (
	// HandshakeTimeout bounds the websocket opening handshake.
	HandshakeTimeout = 10 * time.Second

	writeTimeout = 10 * time.Second
	closeTimeout = 2 * time.Second
)

// ErrNotConnected is the cause of errors returned by sends while no
// connection is open.
var ErrNotConnected = stderrors.New("lobby: not connected")

// Observer receives session events. Calls are made from the connection's
// reader goroutine, one at a time, in arrival order, so an observer must not
// call Close or Connect itself.
type Observer interface {
	OnUsername(username string)
	OnLobby(s Session)
	OnLobbyGames(g Games)
	OnLobbyLeft()
	OnError(message string)
	// OnDisconnect is called once per connection. err is nil after Close.
	OnDisconnect(err error)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) OnUsername(string)  {}
func (NopObserver) OnLobby(Session)    {}
func (NopObserver) OnLobbyGames(Games) {}
func (NopObserver) OnLobbyLeft()       {}
func (NopObserver) OnError(string)     {}
func (NopObserver) OnDisconnect(error) {}

// HandlerFunc handles an action without built-in handling.
type HandlerFunc func(payload json.RawMessage)

// Client owns at most one lobby connection.
type Client struct {
	dialer   *websocket.Dialer
	observer Observer
	log      *logrus.Entry

	// dispatchMu keeps message handling sequential.
	dispatchMu sync.Mutex
	// writeMu serializes frames; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	mu       sync.Mutex
	conn     *websocket.Conn
	open     bool
	done     chan struct{}
	state    types.LobbyState
	username string
	session  *Session
	games    *Games
	pending  *joinLobbyPayload
	handlers map[string]HandlerFunc
}

// NewClient creates a disconnected client. A nil observer discards events.
func NewClient(observer Observer) *Client {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Client{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: HandshakeTimeout,
		},
		observer: observer,
		log:      logging.NewLogger("lobby"),
		state:    types.LobbyDisconnected,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers fn for action. It replaces any earlier handler.
func (c *Client) Handle(action string, fn HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[action] = fn
}

// Connect opens a connection to serverURL and publishes the library. Any
// existing connection is closed first. The token is sent as a bearer
// Authorization header when set.
func (c *Client) Connect(ctx context.Context, serverURL, token, username string, games UserGames) error {
	c.teardown()

	c.setState(types.LobbyConnecting)
	log := c.log.WithField("server", serverURL)
	log.Debug("connecting")

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, serverURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.setState(types.LobbyDisconnected)
		return gderr.Wrap(err, gderr.ErrCodeNotConnected, "failed to connect to lobby server").
			WithDetail("server", serverURL)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.username = username
	c.mu.Unlock()

	if err := c.write(conn, ActionSetUserData, setUserDataPayload{Username: username, Games: games}); err != nil {
		c.mu.Lock()
		c.conn, c.done = nil, nil
		c.state = types.LobbyDisconnected
		c.mu.Unlock()
		conn.Close()
		return gderr.Wrap(err, gderr.ErrCodeNotConnected, "failed to publish library")
	}

	// The connection counts as open from here. A join deferred before this
	// point is flushed now; later ones are sent directly.
	c.mu.Lock()
	c.open = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if pending != nil {
		log.WithField("lobby", pending.LobbyID).Debug("sending deferred join")
		if err := c.write(conn, ActionJoinLobby, pending); err != nil {
			log.WithError(err).Error("failed to send deferred join")
		}
	}

	go c.readLoop(conn, done)
	log.Info("connected to lobby server")
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.connectionLost(conn, err)
			return
		}
		c.HandleMessage(data)
	}
}

// connectionLost resets state after a read error on conn. Nothing happens
// if conn has already been replaced or closed.
func (c *Client) connectionLost(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.open = false
	c.state = types.LobbyDisconnected
	c.session = nil
	c.games = nil
	c.mu.Unlock()
	conn.Close()

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.WithError(err).Info("lobby server closed the connection")
	} else {
		c.log.WithError(err).Warn("lobby connection lost")
	}
	c.observer.OnDisconnect(err)
}

// HandleMessage decodes and dispatches one frame. Malformed frames are
// logged and dropped.
func (c *Client) HandleMessage(data []byte) {
	msg, err := Decode(data)
	if err != nil {
		c.log.WithError(err).Warn("dropping malformed frame")
		return
	}
	c.dispatch(msg)
}

func (c *Client) dispatch(msg Message) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	log := c.log.WithField("action", msg.Action())
	log.Debug("received")

	switch m := msg.(type) {
	case UsernameSet:
		c.mu.Lock()
		c.username = m.Username
		if c.state.IsConnected() {
			c.state = types.LobbyAuthenticated
		}
		c.mu.Unlock()
		c.observer.OnUsername(m.Username)

	case LobbyCreated:
		s := m.Session.clone()
		c.mu.Lock()
		c.session = &s
		c.mu.Unlock()
		c.sendOrDefer(joinCreated(s))

	case LobbyJoined:
		s := m.Session.clone()
		c.mu.Lock()
		c.session = &s
		if c.state.IsConnected() {
			c.state = types.LobbyInLobby
		}
		c.mu.Unlock()
		c.observer.OnLobby(s.clone())

	case LobbyUpdate:
		if m.Session != nil {
			s := m.Session.clone()
			c.mu.Lock()
			c.session = &s
			c.mu.Unlock()
			c.observer.OnLobby(s.clone())
		}
		if m.Games != nil {
			g := m.Games.clone()
			c.mu.Lock()
			c.games = &g
			c.mu.Unlock()
			c.observer.OnLobbyGames(g.clone())
		}

	case LobbyLeft:
		c.mu.Lock()
		c.session = nil
		c.games = nil
		if c.state.IsConnected() {
			c.state = types.LobbyAuthenticated
		}
		c.mu.Unlock()
		c.observer.OnLobbyLeft()

	case ServerError:
		log.WithField("message", m.Message).Warn("lobby server reported an error")
		c.observer.OnError(m.Message)

	case Unknown:
		c.mu.Lock()
		h := c.handlers[m.Name]
		c.mu.Unlock()
		if h == nil {
			log.Warn("unhandled action")
			return
		}
		h(m.Payload)
	}
}

// sendOrDefer sends join now when open, otherwise holds it for the next
// Connect. Only the most recent deferred join is kept.
func (c *Client) sendOrDefer(join *joinLobbyPayload) {
	c.mu.Lock()
	if !c.open {
		c.pending = join
		c.mu.Unlock()
		c.log.WithField("lobby", join.LobbyID).Debug("not connected, deferring join")
		return
	}
	conn := c.conn
	c.mu.Unlock()

	if err := c.write(conn, ActionJoinLobby, join); err != nil {
		c.log.WithError(err).Error("failed to send join")
	}
}

// SendAction sends one frame. Without an open connection it logs the error
// and returns an error wrapping ErrNotConnected; nothing is queued.
func (c *Client) SendAction(action string, payload interface{}) error {
	c.mu.Lock()
	conn, open := c.conn, c.open
	c.mu.Unlock()

	if !open {
		c.log.WithField("action", action).Error("connection is not open, cannot send")
		return gderr.Wrap(ErrNotConnected, gderr.ErrCodeNotConnected, "cannot send "+action).
			WithDetail("action", action)
	}
	return c.write(conn, action, payload)
}

// CreateLobby asks the server to create a lobby named name.
func (c *Client) CreateLobby(name string) error {
	return c.SendAction(ActionCreateLobby, createLobbyPayload{LobbyName: name})
}

// JoinLobby asks to join an existing lobby.
func (c *Client) JoinLobby(id string) error {
	return c.SendAction(ActionJoinLobby, joinByIDPayload{LobbyID: id})
}

// LeaveLobby asks to leave the current lobby.
func (c *Client) LeaveLobby() error {
	return c.SendAction(ActionLeaveLobby, struct{}{})
}

func (c *Client) write(conn *websocket.Conn, action string, payload interface{}) error {
	data, err := encode(action, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and waits for the reader to finish. It is safe
// to call on a disconnected client.
func (c *Client) Close() error {
	if c.teardown() {
		c.observer.OnDisconnect(nil)
	}
	return nil
}

// teardown closes the current connection, if any, and reports whether
// there was one.
func (c *Client) teardown() bool {
	c.mu.Lock()
	conn, done := c.conn, c.done
	c.conn, c.done = nil, nil
	c.open = false
	c.state = types.LobbyDisconnected
	c.session = nil
	c.games = nil
	c.mu.Unlock()

	if conn == nil {
		return false
	}

	c.writeMu.Lock()
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	c.writeMu.Unlock()
	if err != nil {
		c.log.WithError(err).Debug("close frame not sent")
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(closeTimeout):
		}
	}
	conn.Close()
	if done != nil {
		<-done
	}
	return true
}

func (c *Client) setState(s types.LobbyState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// State returns the connection state.
func (c *Client) State() types.LobbyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Username returns the name confirmed by the server, or the one sent.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Session returns a copy of the current lobby session.
func (c *Client) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return c.session.clone(), true
}

// Games returns a copy of the last lobby ownership data.
func (c *Client) Games() (Games, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.games == nil {
		return Games{}, false
	}
	return c.games.clone(), true
}
