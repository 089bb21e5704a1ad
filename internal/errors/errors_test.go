package errors

import (
	stderrors "errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeckError(t *testing.T) {
	err := New(ErrCodeStoreFailed, "store failed")
	assert.Equal(t, ErrCodeStoreFailed, err.Code)
	assert.Equal(t, "STORE_FAILED: store failed", err.Error())

	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeCommandFailed, "command failed")
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.Contains(t, wrapped.Error(), "caused by: underlying error")

	assert.True(t, Is(wrapped, ErrCodeCommandFailed))
	assert.False(t, Is(wrapped, ErrCodeAuthRequired))
	assert.False(t, Is(nil, ErrCodeCommandFailed))

	detailed := err.WithDetail("table", "epic_games").WithDetail("rows", 3)
	assert.Equal(t, "epic_games", detailed.Details["table"])
	assert.Equal(t, 3, detailed.Details["rows"])
}

func TestGetCodeThroughWrapping(t *testing.T) {
	inner := AuthRequired("epic", "run gamedeck epic auth")
	outer := fmt.Errorf("epic pass: %w", inner)

	assert.Equal(t, ErrCodeAuthRequired, GetCode(outer))
	assert.True(t, Is(outer, ErrCodeAuthRequired))
	assert.Equal(t, ErrorCode(""), GetCode(fmt.Errorf("plain")))

	var deckErr *DeckError
	require.True(t, stderrors.As(outer, &deckErr))
	assert.Equal(t, "epic", deckErr.Details["provider"])
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *DeckError
		code ErrorCode
		key  string
		want interface{}
	}{
		{"config not found", ConfigNotFound("/x.yaml"), ErrCodeConfigNotFound, "path", "/x.yaml"},
		{"tool missing", ToolMissing("legendary", exec.ErrNotFound), ErrCodeToolMissing, "tool", "legendary"},
		{"malformed", MalformedResponse("list-games", nil), ErrCodeMalformedResponse, "source", "list-games"},
		{"already imported", AlreadyImported("Fortnite"), ErrCodeAlreadyImported, "app", "Fortnite"},
		{"manifest", ManifestNotFound("/vdf", nil), ErrCodeManifestNotFound, "path", "/vdf"},
		{"store", StoreFailed("upsert", nil), ErrCodeStoreFailed, "operation", "upsert"},
		{"not connected", NotConnected("create_lobby"), ErrCodeNotConnected, "action", "create_lobby"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.want, tt.err.Details[tt.key])
		})
	}
}

func TestCommandFailedOutput(t *testing.T) {
	err := CommandFailed("legendary import", "boom", fmt.Errorf("exit status 1"))
	assert.Equal(t, "boom", err.Details["output"])
	assert.NotContains(t, err.Details, "exitCode")

	err = CommandFailed("legendary import", "", nil)
	assert.NotContains(t, err.Details, "output")
}

func TestToJSON(t *testing.T) {
	err := ConfigInvalid("backendPort must be between 1 and 65535")
	assert.Contains(t, err.ToJSON(), `"code": "CONFIG_INVALID"`)
}
