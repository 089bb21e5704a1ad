// Package legendary drives the legendary CLI, the Epic Games launcher
// replacement, to list owned games and register existing installs.
package legendary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/adamancini/gamedeck/internal/logging"
)

// DefaultBinary is the executable looked up in PATH.
const DefaultBinary = "legendary"

// Default per-invocation timeouts.
const (
	DefaultCommandTimeout = 5 * time.Minute
	DefaultVersionTimeout = 10 * time.Second
)

// notLoggedIn is the account value reported by status --json without a session.
const notLoggedIn = "<not logged in>"

// KeyImage is one artwork entry of a game.
type KeyImage struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Metadata holds the parts of the store metadata gamedeck reads.
type Metadata struct {
	KeyImages []KeyImage `json:"keyImages"`
}

// Game is one owned game reported by list-games.
type Game struct {
	AppName  string   `json:"app_name"`
	AppTitle string   `json:"app_title"`
	Metadata Metadata `json:"metadata"`
}

// Thumbnail returns the first key image URL, or "".
func (g Game) Thumbnail() string {
	for _, img := range g.Metadata.KeyImages {
		if img.URL != "" {
			return img.URL
		}
	}
	return ""
}

// Status is the subset of status --json gamedeck reads.
type Status struct {
	Account        string `json:"account"`
	GamesAvailable int    `json:"games_available"`
	GamesInstalled int    `json:"games_installed"`
	ConfigDir      string `json:"config_directory"`
	Version        string `json:"legendary_version"`
}

// LoggedIn reports whether legendary holds a session.
func (s *Status) LoggedIn() bool {
	return s.Account != "" && s.Account != notLoggedIn
}

// ImportOutcome classifies a successful import call.
type ImportOutcome int

const (
	// Imported means legendary registered the install.
	Imported ImportOutcome = iota
	// AlreadyImported means legendary knew the install already.
	AlreadyImported
)

// Client runs legendary commands.
type Client struct {
	binary         string
	runner         CommandRunner
	commandTimeout time.Duration
	versionTimeout time.Duration
	log            *logrus.Entry
}

// NewClient creates a client that runs binary with os/exec.
func NewClient(binary string) *Client {
	return NewClientWithRunner(binary, &DefaultCommandRunner{})
}

// NewClientWithRunner creates a client with a custom command runner.
// This is primarily used for testing with mock runners.
func NewClientWithRunner(binary string, runner CommandRunner) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{
		binary:         binary,
		runner:         runner,
		commandTimeout: DefaultCommandTimeout,
		versionTimeout: DefaultVersionTimeout,
		log:            logging.NewLogger("legendary"),
	}
}

// SetTimeouts overrides the per-invocation timeouts. Zero keeps a default.
func (c *Client) SetTimeouts(command, version time.Duration) {
	if command > 0 {
		c.commandTimeout = command
	}
	if version > 0 {
		c.versionTimeout = version
	}
}

// Binary returns the executable name or path.
func (c *Client) Binary() string {
	return c.binary
}

// ListGames returns every owned game in the order legendary reports them.
func (c *Client) ListGames(ctx context.Context) ([]Game, error) {
	args := []string{"list-games", "--json"}
	stdout, stderr, err := c.run(ctx, c.commandTimeout, args...)
	if err != nil {
		return nil, c.classify(args, stdout, stderr, err)
	}

	var games []Game
	if err := json.Unmarshal(stdout, &games); err != nil {
		return nil, gderr.MalformedResponse(commandString(c.binary, args), err)
	}
	c.log.Debugf("legendary reported %d owned games", len(games))
	return games, nil
}

// Import registers an existing install folder, including DLCs.
// A response saying the game is already imported counts as success.
func (c *Client) Import(ctx context.Context, appName, path string) (ImportOutcome, error) {
	args := []string{"import", "--with-dlcs", appName, path}
	stdout, stderr, err := c.run(ctx, c.commandTimeout, args...)

	if isAlreadyImported(stdout) || isAlreadyImported(stderr) {
		c.log.WithField("app", appName).Info("already imported")
		return AlreadyImported, nil
	}
	if err != nil {
		return Imported, c.classify(args, stdout, stderr, err)
	}

	c.log.WithField("app", appName).WithField("path", path).Info("imported")
	return Imported, nil
}

// Version returns the output of --version, trimmed.
func (c *Client) Version(ctx context.Context) (string, error) {
	args := []string{"--version"}
	stdout, stderr, err := c.run(ctx, c.versionTimeout, args...)
	if err != nil {
		return "", c.classify(args, stdout, stderr, err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// Status returns the account state reported by status --json.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	args := []string{"status", "--json"}
	stdout, stderr, err := c.run(ctx, c.versionTimeout, args...)
	if err != nil {
		return nil, c.classify(args, stdout, stderr, err)
	}

	var status Status
	if err := json.Unmarshal(stdout, &status); err != nil {
		return nil, gderr.MalformedResponse(commandString(c.binary, args), err)
	}
	return &status, nil
}

// RequireAuth returns an AUTH_REQUIRED error when no session exists.
func (c *Client) RequireAuth(ctx context.Context) error {
	status, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if !status.LoggedIn() {
		return gderr.AuthRequired("epic", "run 'gamedeck epic auth'")
	}
	return nil
}

// AuthCommand returns the interactive login command. The caller attaches
// stdio and runs it.
func (c *Client) AuthCommand(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, c.binary, "auth")
}

func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) ([]byte, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.log.Debugf("running %s", commandString(c.binary, args))
	stdout, stderr, err := c.runner.Run(ctx, c.binary, args...)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("timed out after %s: %w", timeout, ctx.Err())
	}
	return stdout, stderr, err
}

// classify maps a failed invocation onto an error code.
func (c *Client) classify(args []string, stdout, stderr []byte, err error) error {
	cmd := commandString(c.binary, args)
	if errors.Is(err, exec.ErrNotFound) {
		return gderr.ToolMissing(c.binary, err)
	}
	output := strings.TrimSpace(string(stderr))
	if output == "" {
		output = strings.TrimSpace(string(stdout))
	}
	if needsLogin(output) {
		return gderr.AuthRequired("epic", "run 'gamedeck epic auth'").WithDetail("output", output)
	}
	return gderr.CommandFailed(cmd, output, err)
}

func isAlreadyImported(out []byte) bool {
	return strings.Contains(strings.ToLower(string(out)), "already imported")
}

func needsLogin(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "login failed") ||
		strings.Contains(lower, "not logged in") ||
		strings.Contains(lower, "no saved credentials")
}
