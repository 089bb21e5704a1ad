// Package output handles formatting command results as text, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// TextRenderer is implemented by results with a dedicated text layout.
type TextRenderer interface {
	RenderText(w io.Writer) error
}

// Writer renders command results as text, JSON or YAML.
type Writer struct {
	format Format
	w      io.Writer
}

// NewWriter creates a new output writer.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, w: w}
}

// Format returns the configured format.
func (w *Writer) Format() Format {
	return w.format
}

// IsText reports whether results are rendered for humans.
func (w *Writer) IsText() bool {
	return w.format == FormatText || w.format == ""
}

// Write outputs the given value in the configured format.
func (w *Writer) Write(v interface{}) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		switch r := v.(type) {
		case TextRenderer:
			return r.RenderText(w.w)
		case fmt.Stringer:
			_, err := fmt.Fprintln(w.w, r.String())
			return err
		}
		_, err := fmt.Fprintf(w.w, "%+v\n", v)
		return err
	}
}

// Printf writes free-form text. It is a no-op for structured formats so
// commands can mix status lines with a final structured result.
func (w *Writer) Printf(format string, args ...interface{}) {
	if !w.IsText() {
		return
	}
	fmt.Fprintf(w.w, format, args...)
}

// ParseFormat parses a format string into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// Table writes aligned columns.
type Table struct {
	tw *tabwriter.Writer
}

// NewTable starts a table with the given header.
func NewTable(w io.Writer, header ...string) *Table {
	t := &Table{tw: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
	if len(header) > 0 {
		t.Row(header...)
	}
	return t
}

// Row appends one row.
func (t *Table) Row(cols ...string) {
	fmt.Fprintln(t.tw, strings.Join(cols, "\t"))
}

// Flush writes the buffered rows.
func (t *Table) Flush() error {
	return t.tw.Flush()
}
