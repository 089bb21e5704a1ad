package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/adamancini/gamedeck/internal/reconcile"
)

// progressPrinter writes one line per distinct progress step. Concurrent
// passes share it.
type progressPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

func newProgressPrinter(w io.Writer, enabled bool) reconcile.Progress {
	if !enabled {
		return reconcile.NopProgress{}
	}
	return &progressPrinter{w: w}
}

func (p *progressPrinter) Update(s reconcile.Status) {
	line := fmt.Sprintf("[%3d%%] %s", s.Percent(), s.Message)

	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	_, _ = fmt.Fprintln(p.w, line)
}

func (p *progressPrinter) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = ""
}
