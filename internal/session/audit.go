package session

import (
	"fmt"
	"io"
)

// Audit writes the human-readable log attached to the operator
// notification. A nil writer makes every call a no-op.
type Audit struct {
	w io.Writer
}

// NewAudit wraps a writer; w may be nil.
func NewAudit(w io.Writer) *Audit {
	return &Audit{w: w}
}

// Line writes a single formatted log line.
func (a *Audit) Line(format string, args ...any) {
	if a == nil || a.w == nil {
		return
	}
	fmt.Fprintf(a.w, format+"\n", args...)
}

// Section writes a blank-line-separated section header.
func (a *Audit) Section(title string) {
	if a == nil || a.w == nil {
		return
	}
	fmt.Fprintf(a.w, "\n%s\n", title)
}
