// Package interactive provides interactive prompts for user confirmation.
package interactive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/adamancini/gamedeck/internal/matcher"
)

// ErrAborted is returned when the user quits an interactive session.
var ErrAborted = errors.New("aborted by user")

// Response represents the user's response to a prompt.
type Response int

const (
	ResponseYes  Response = iota // Proceed with this import
	ResponseNo                   // Skip this import
	ResponseAll                  // Approve all remaining imports
	ResponseQuit                 // Abort interactive mode
)

// Prompter asks the user to approve import candidates one at a time.
type Prompter struct {
	out        io.Writer
	scanner    *bufio.Scanner
	approveAll bool

	approved int
	skipped  int
}

// NewPrompter creates a prompter with stdin/stdout.
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stdout)
}

// NewPrompterWithIO creates a prompter with custom input/output.
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		out:     out,
		scanner: bufio.NewScanner(in),
	}
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompt displays a question and reads the response.
func (p *Prompter) prompt(format string, args ...interface{}) Response {
	if p.approveAll {
		return ResponseYes
	}

	_, _ = fmt.Fprintf(p.out, format, args...)
	_, _ = fmt.Fprint(p.out, " [y/n/a/q] ")

	if !p.scanner.Scan() {
		return ResponseQuit
	}

	input := strings.ToLower(strings.TrimSpace(p.scanner.Text()))
	switch input {
	case "y", "yes":
		return ResponseYes
	case "n", "no":
		return ResponseNo
	case "a", "all":
		p.approveAll = true
		return ResponseYes
	case "q", "quit":
		return ResponseQuit
	default:
		// Default to no for invalid input
		_, _ = fmt.Fprintln(p.out, "Invalid response, skipping.")
		return ResponseNo
	}
}

// Approve asks whether c should be imported. Quitting returns ErrAborted.
func (p *Prompter) Approve(c matcher.Candidate, size int64) (bool, error) {
	_, _ = fmt.Fprintf(p.out, "  + %s (%s, %s)\n", c.Title, c.FullPath, FormatBytes(size))

	switch p.prompt("    -> Import %s?", c.ID) {
	case ResponseNo:
		_, _ = fmt.Fprintf(p.out, "    %s Skipped\n", skipSymbol)
		p.skipped++
		return false, nil
	case ResponseQuit:
		_, _ = fmt.Fprintln(p.out, "\nAborted.")
		return false, ErrAborted
	default:
		p.approved++
		return true, nil
	}
}

// Summary prints how many candidates were approved and skipped.
func (p *Prompter) Summary() {
	_, _ = fmt.Fprintln(p.out, "\nSummary:")
	_, _ = fmt.Fprintf(p.out, "  Approved: %d\n", p.approved)
	if p.skipped > 0 {
		_, _ = fmt.Fprintf(p.out, "  Skipped: %d\n", p.skipped)
	}
}

// Confirm asks a yes/no question. Anything but yes, including end of
// input, is no.
func (p *Prompter) Confirm(format string, args ...interface{}) bool {
	_, _ = fmt.Fprintf(p.out, format, args...)
	_, _ = fmt.Fprint(p.out, " [y/n] ")
	if !p.scanner.Scan() {
		return false
	}
	input := strings.ToLower(strings.TrimSpace(p.scanner.Text()))
	return input == "y" || input == "yes"
}

const skipSymbol = "-"

// FormatBytes renders a byte count with a decimal unit, e.g. "25 MB".
// Negative counts render as 0 B.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
