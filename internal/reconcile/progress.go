package reconcile

// Status is one progress report.
type Status struct {
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Message   string `json:"message"`
}

// Percent returns progress as 0-100. An empty total reports 100.
func (s Status) Percent() int {
	if s.Total <= 0 {
		return 100
	}
	p := s.Processed * 100 / s.Total
	if p > 100 {
		return 100
	}
	return p
}

// Progress receives updates while a pass runs. Within one pass updates are
// delivered one at a time and Processed never decreases. Passes for
// different providers may report at the same time, so an implementation
// shared between passes must be safe for concurrent use.
type Progress interface {
	Update(Status)
	// Complete is called once when a pass has finished writing.
	Complete()
}

// NopProgress discards progress.
type NopProgress struct{}

func (NopProgress) Update(Status) {}
func (NopProgress) Complete()     {}

// ProgressFunc adapts a function to Progress. Complete is a no-op.
type ProgressFunc func(Status)

func (f ProgressFunc) Update(s Status) { f(s) }
func (f ProgressFunc) Complete()       {}

// rowProgress turns per-row catalog callbacks into status updates.
func rowProgress(p Progress, message string) func(processed, total int) {
	return func(processed, total int) {
		p.Update(Status{Processed: processed, Total: total, Message: message})
	}
}
