package prompt

import (
	"fmt"

	"schemalens/internal/telemetry"
)

// Entry is one component's contribution to a section.
type Entry struct {
	Component string `json:"component"`
	Version   int    `json:"version"`
	Priority  int    `json:"priority"`
	Text      string `json:"text"`
}

// Section groups entries that share a prompt-section name. Its priority is
// the highest priority among its entries.
type Section struct {
	Name     string  `json:"name"`
	Priority int     `json:"priority"`
	Entries  []Entry `json:"entries"`
}

// Failure records a component whose summarizer failed.
type Failure struct {
	Component string `json:"component"`
	Version   int    `json:"version"`
	Err       error  `json:"-"`
	Panicked  bool   `json:"panicked"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("summarize %s@%d: %v", f.Component, f.Version, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Reason labels the failure for metrics.
func (f Failure) Reason() string {
	if f.Panicked {
		return telemetry.ReasonPanic
	}
	return telemetry.ReasonError
}

// Result describes one assembly.
type Result struct {
	Text      string    `json:"text"`
	Sections  []Section `json:"sections"`
	Failures  []Failure `json:"failures,omitempty"`
	Skipped   []string  `json:"skipped,omitempty"`
	Dropped   []string  `json:"dropped,omitempty"`
	Chars     int       `json:"chars"`
	Tokens    int       `json:"tokens"`
	Truncated bool      `json:"truncated,omitempty"`
}

// Section returns the named section.
func (r *Result) Section(name string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}
