package interactive

import (
	"bytes"
	"strings"
	"testing"

	"github.com/adamancini/gamedeck/internal/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptResponses(t *testing.T) {
	tests := []struct {
		input string
		want  Response
	}{
		{"y\n", ResponseYes},
		{"YES\n", ResponseYes},
		{"n\n", ResponseNo},
		{"q\n", ResponseQuit},
		{"", ResponseQuit},
		{"invalid\n", ResponseNo},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			out := &bytes.Buffer{}
			p := NewPrompterWithIO(strings.NewReader(tt.input), out)
			assert.Equal(t, tt.want, p.prompt("Test prompt?"))
			assert.Contains(t, out.String(), "Test prompt? [y/n/a/q]")
		})
	}
}

func TestPromptInvalidResponseMessage(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewPrompterWithIO(strings.NewReader("maybe\n"), out)
	p.prompt("Test prompt?")
	assert.Contains(t, out.String(), "Invalid response")
}

func TestPromptAllApprovesRemaining(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewPrompterWithIO(strings.NewReader("a\n"), out)

	assert.Equal(t, ResponseYes, p.prompt("First?"))
	// No more input, yet later prompts are approved without asking.
	assert.Equal(t, ResponseYes, p.prompt("Second?"))
	assert.NotContains(t, out.String(), "Second?")
}

func TestApprove(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewPrompterWithIO(strings.NewReader("y\nn\nq\n"), out)
	c := matcher.Candidate{FullPath: "/games/SuperWidget", ID: "sw1", Title: "Super Widget"}

	ok, err := p.Approve(c, 25_000_000)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Approve(c, 25_000_000)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.Approve(c, 25_000_000)
	assert.ErrorIs(t, err, ErrAborted)

	assert.Contains(t, out.String(), "Super Widget (/games/SuperWidget, 25 MB)")
	assert.Contains(t, out.String(), "Import sw1?")
	assert.Contains(t, out.String(), "Skipped")

	out.Reset()
	p.Summary()
	assert.Contains(t, out.String(), "Approved: 1")
	assert.Contains(t, out.String(), "Skipped: 1")
}

func TestConfirm(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewPrompterWithIO(strings.NewReader("yes\nnope\n"), out)
	assert.True(t, p.Confirm("Delete %d backups?", 3))
	assert.False(t, p.Confirm("Again?"))
	assert.False(t, p.Confirm("At EOF?"))
	assert.Contains(t, out.String(), "Delete 3 backups? [y/n]")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "999 B", FormatBytes(999))
	assert.Equal(t, "20 MB", FormatBytes(20_000_000))
	assert.Equal(t, "1.5 kB", FormatBytes(1500))
	assert.Equal(t, "3.2 GB", FormatBytes(3_200_000_000))
	assert.Equal(t, "0 B", FormatBytes(-5))
}
