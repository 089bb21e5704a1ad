package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/adamancini/gamedeck/internal/lobby"
	"github.com/adamancini/gamedeck/internal/output"
)

// lobbyPrinter prints lobby events as they arrive.
type lobbyPrinter struct {
	mu     sync.Mutex
	out    *output.Writer
	stderr io.Writer
	lost   chan error
}

func newLobbyPrinter(out *output.Writer, stderr io.Writer) *lobbyPrinter {
	return &lobbyPrinter{out: out, stderr: stderr, lost: make(chan error, 1)}
}

func (p *lobbyPrinter) write(v interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.out.Write(v); err != nil {
		fmt.Fprintf(p.stderr, "Error writing output: %v\n", err)
	}
}

func (p *lobbyPrinter) OnUsername(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.Printf("Signed in as %s\n", username)
}

func (p *lobbyPrinter) OnLobby(s lobby.Session) {
	p.write(s)
}

func (p *lobbyPrinter) OnLobbyGames(g lobby.Games) {
	p.write(lobby.Compare(g))
}

func (p *lobbyPrinter) OnLobbyLeft() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.Printf("Left the lobby.\n")
}

func (p *lobbyPrinter) OnError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.stderr, "Lobby server error: %s\n", message)
}

func (p *lobbyPrinter) OnDisconnect(err error) {
	if err == nil {
		return
	}
	select {
	case p.lost <- err:
	default:
	}
}

func newLobbyCmd() *cobra.Command {
	var (
		create   string
		join     string
		server   string
		username string
	)

	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Share your catalog with a lobby",
		Long: `Lobby connects to the lobby server, publishes your catalog, and prints
lobby membership and the games members have in common until interrupted.

The server defaults to ws://<backend_ip>:<backend_port> from the settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if create != "" && join != "" {
				return gderr.New(gderr.ErrCodeInvalidInput, "--create and --join cannot be used together")
			}

			env, err := openEnvironment(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			if server == "" {
				server = env.settings.ServerURL()
			}
			if server == "" {
				return gderr.ConfigInvalid("no lobby server configured; set backend_ip and backend_port or pass --server")
			}
			if username == "" {
				username = env.settings.Username
			}
			if username == "" {
				return gderr.ConfigInvalid("no username configured; set username or pass --username")
			}

			snap, err := env.store.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			printer := newLobbyPrinter(writer, cmd.ErrOrStderr())
			client := lobby.NewClient(printer)

			if err := client.Connect(cmd.Context(), server, env.settings.Steam.Token, username, lobby.FromSnapshot(snap)); err != nil {
				return err
			}
			defer client.Close()

			switch {
			case create != "":
				err = client.CreateLobby(create)
			case join != "":
				err = client.JoinLobby(join)
			}
			if err != nil {
				return err
			}

			select {
			case <-cmd.Context().Done():
				if _, ok := client.Session(); ok {
					_ = client.LeaveLobby()
				}
				return nil
			case err := <-printer.lost:
				return gderr.Wrap(err, gderr.ErrCodeNotConnected, "lost connection to lobby server")
			}
		},
	}

	cmd.Flags().StringVar(&create, "create", "", "Create a lobby with this name and join it")
	cmd.Flags().StringVar(&join, "join", "", "Join the lobby with this id")
	cmd.Flags().StringVar(&server, "server", "", "Lobby server websocket URL")
	cmd.Flags().StringVar(&username, "username", "", "Name shown to other members (default from settings)")

	return cmd
}
