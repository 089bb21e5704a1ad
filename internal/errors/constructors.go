package errors

import (
	stderrors "errors"
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *DeckError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("settings file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *DeckError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid settings: %s", reason))
}

// ToolMissing creates an error for an external binary that cannot be found
func ToolMissing(tool string, err error) *DeckError {
	return Wrap(err, ErrCodeToolMissing, fmt.Sprintf("%s not found in PATH", tool)).
		WithDetail("tool", tool)
}

// AuthRequired creates an error for a provider that needs the user to log in
func AuthRequired(provider, hint string) *DeckError {
	return New(ErrCodeAuthRequired, fmt.Sprintf("%s authentication required: %s", provider, hint)).
		WithDetail("provider", provider)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, output string, err error) *DeckError {
	deckErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)
	if output != "" {
		deckErr = deckErr.WithDetail("output", output)
	}

	// Extract exit code if available
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		deckErr = deckErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return deckErr
}

// MalformedResponse creates an error for output that could not be decoded
func MalformedResponse(source string, err error) *DeckError {
	return Wrap(err, ErrCodeMalformedResponse, fmt.Sprintf("malformed response from %s", source)).
		WithDetail("source", source)
}

// AlreadyImported marks a benign import response from the Epic CLI
func AlreadyImported(appName string) *DeckError {
	return New(ErrCodeAlreadyImported, fmt.Sprintf("%s is already imported", appName)).
		WithDetail("app", appName)
}

// ManifestNotFound creates an error for a missing installed-games manifest
func ManifestNotFound(path string, err error) *DeckError {
	return Wrap(err, ErrCodeManifestNotFound, fmt.Sprintf("manifest not found: %s", path)).
		WithDetail("path", path)
}

// StoreFailed wraps a catalog store failure
func StoreFailed(op string, err error) *DeckError {
	return Wrap(err, ErrCodeStoreFailed, fmt.Sprintf("catalog %s failed", op)).
		WithDetail("operation", op)
}

// NotConnected creates an error for an action sent without an open session
func NotConnected(action string) *DeckError {
	return New(ErrCodeNotConnected, fmt.Sprintf("cannot send %s: not connected", action)).
		WithDetail("action", action)
}
