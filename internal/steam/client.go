// Package steam reads Steam ownership from the companion backend and
// install state from the local library manifest.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/adamancini/gamedeck/internal/logging"
)

// DefaultTimeout bounds one owned-games request.
const DefaultTimeout = 30 * time.Second

// ownedGamesPath is served by the companion backend.
const ownedGamesPath = "/api/owned-games"

// maxBody caps the response size read from the backend.
const maxBody = 32 << 20

// OwnedGame is one entry of the owned-games response.
type OwnedGame struct {
	AppID      json.Number `json:"appid"`
	Name       string      `json:"name"`
	ImgIconURL string      `json:"img_icon_url"`
}

// ownedGamesResponse mirrors the backend body. Games stays raw so a
// non-array value can be told apart from an empty list.
type ownedGamesResponse struct {
	Games json.RawMessage `json:"games"`
}

// Client fetches owned games from the companion backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Entry
}

// NewClient creates a client for baseURL with the default timeout.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: DefaultTimeout})
}

// NewClientWithHTTP creates a client with a custom http.Client.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		log:     logging.NewLogger("steam"),
	}
}

// OwnedGames returns the games owned by the account behind token.
func (c *Client) OwnedGames(ctx context.Context, token string) ([]OwnedGame, error) {
	if token == "" {
		return nil, gderr.AuthRequired("steam", "no Steam token configured (set steam.token)")
	}

	url := c.baseURL + ownedGamesPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, gderr.Wrap(err, gderr.ErrCodeInvalidInput, "build owned-games request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	c.log.WithField("url", url).Debug("fetching owned games")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, gderr.Wrap(err, gderr.ErrCodeCommandFailed, "owned-games request failed").WithDetail("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, gderr.AuthRequired("steam", "token expired, please log in again")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, gderr.New(gderr.ErrCodeCommandFailed, fmt.Sprintf("server error: %d", resp.StatusCode)).
			WithDetail("url", url).
			WithDetail("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, gderr.Wrap(err, gderr.ErrCodeCommandFailed, "read owned-games response")
	}

	var parsed ownedGamesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, gderr.MalformedResponse("owned-games", err)
	}
	trimmed := strings.TrimSpace(string(parsed.Games))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, gderr.MalformedResponse("owned-games", fmt.Errorf("games is not an array"))
	}

	var games []OwnedGame
	if err := json.Unmarshal(parsed.Games, &games); err != nil {
		return nil, gderr.MalformedResponse("owned-games", err)
	}

	c.log.Debugf("backend reported %d owned games", len(games))
	return games, nil
}
