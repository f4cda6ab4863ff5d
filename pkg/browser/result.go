package browser

import (
	"time"
)

// ActionResult is the outcome of one Request.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// Screenshot is the audit capture of a mutating flow
	Screenshot string `json:"screenshot,omitempty"`

	// DOMSnapshot is the cleaned page markup saved when a flow fails
	DOMSnapshot string `json:"dom_snapshot,omitempty"`

	Error *Error `json:"error,omitempty"`

	Entity string        `json:"entity,omitempty"`
	URL    string        `json:"url,omitempty"`
	Editor EditorContext `json:"editor,omitempty"`

	// Fields is set when the request carried field descriptors
	Fields *BatchResult `json:"fields,omitempty"`

	// Skipped lists actions not clicked because their target state already held
	Skipped []string `json:"skipped,omitempty"`

	// Console holds console errors and warnings seen during the flow
	Console []ConsoleEntry `json:"console,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// Partial reports whether some but not all fields were applied.
func (r ActionResult) Partial() bool {
	return r.Fields != nil && r.Fields.Applied > 0 && r.Fields.Failed > 0
}

func (r *ActionResult) finish() {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
}
