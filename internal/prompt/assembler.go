// Package prompt compiles an entity's components into the natural-language
// context block handed to the language model.
//
// Each attached component contributes at most one entry: the output of its
// schema's summarize function, or, for schemas that name a prompt section
// but have no summarizer, a plain rendering of its llm projection. Entries
// are grouped into sections by name and ordered by priority.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"schemalens/internal/ecs"
	"schemalens/internal/logging"
	"schemalens/internal/projection"
	"schemalens/internal/schema"
	"schemalens/internal/telemetry"
)

// Assembler turns an entity's components into one prompt block.
// The zero value is not usable; construct it with NewAssembler.
type Assembler struct {
	// addSectionHeaders introduces each section with a markdown header
	addSectionHeaders bool

	// sectionSeparator is inserted between sections
	sectionSeparator string

	// entrySeparator is inserted between entries within a section
	entrySeparator string

	// renderProjections lets schemas without a summarizer contribute their
	// raw llm projection
	renderProjections bool

	// maxChars caps the block length in characters (0 = no limit)
	maxChars int
}

// truncationMarker ends a block that lost sections or entries to maxChars.
const truncationMarker = "[Content truncated due to length limits]"

// slowAssembly is the duration above which an assembly is logged as a
// warning.
const slowAssembly = 50 * time.Millisecond

// NewAssembler creates an assembler with default settings.
func NewAssembler() *Assembler {
	return &Assembler{
		addSectionHeaders: true,
		sectionSeparator:  "\n\n",
		entrySeparator:    "\n",
		renderProjections: true,
	}
}

// SetSectionHeaders controls whether section headers are added.
func (a *Assembler) SetSectionHeaders(enabled bool) {
	a.addSectionHeaders = enabled
}

// SetSeparators configures the separators between sections and entries.
func (a *Assembler) SetSeparators(section, entry string) {
	a.sectionSeparator = section
	a.entrySeparator = entry
}

// SetRenderProjections controls whether schemas without a summarize
// function contribute their llm projection.
func (a *Assembler) SetRenderProjections(enabled bool) {
	a.renderProjections = enabled
}

// SetMaxChars sets the truncation limit. Zero disables truncation.
func (a *Assembler) SetMaxChars(n int) {
	if n < 0 {
		n = 0
	}
	a.maxChars = n
}

// Assemble returns the prompt block for e. It never fails: components whose
// summarizer errors or panics are left out and logged.
func (a *Assembler) Assemble(e *ecs.Entity, r projection.Resolver) string {
	return a.AssembleReport(e, r).Text
}

// AssembleReport is Assemble plus a report of what went into the block.
func (a *Assembler) AssembleReport(e *ecs.Entity, r projection.Resolver) *Result {
	timer := logging.StartTimer(logging.CategoryPrompt, "Assembler.Assemble")
	defer timer.StopWithThreshold(slowAssembly)

	res := &Result{}
	if e == nil {
		return res
	}

	bySection := make(map[string]*Section)
	e.Each(func(inst *schema.Instance) {
		s, ok := r.Resolve(inst)
		if !ok {
			res.Skipped = append(res.Skipped, inst.Type)
			logging.PromptDebug("entity %s: skipping component %q with no schema", e.ID, inst.Type)
			return
		}

		text, fail := a.contribution(inst, s)
		if fail != nil {
			res.Failures = append(res.Failures, *fail)
			telemetry.SummarizeFailures.WithLabelValues(s.Type(), fail.Reason()).Inc()
			logging.Get(logging.CategoryPrompt).Warn("entity %s: %s", e.ID, fail.Error())
			return
		}

		text = strings.TrimSpace(text)
		if text == "" {
			res.Dropped = append(res.Dropped, s.Type())
			telemetry.DroppedContributions.WithLabelValues(s.Type()).Inc()
			return
		}

		llm := s.LLM()
		sec, ok := bySection[llm.Section]
		if !ok {
			sec = &Section{Name: llm.Section, Priority: llm.Priority}
			bySection[llm.Section] = sec
		}
		if llm.Priority > sec.Priority {
			sec.Priority = llm.Priority
		}
		sec.Entries = append(sec.Entries, Entry{
			Component: s.Type(),
			Version:   s.Version(),
			Priority:  llm.Priority,
			Text:      text,
		})
	})

	res.Sections, res.Text, res.Truncated = a.fit(orderSections(bySection))
	res.Chars = utf8.RuneCountInString(res.Text)
	res.Tokens = EstimateTokens(res.Text)

	telemetry.Assemblies.Inc()
	telemetry.AssemblyChars.Observe(float64(res.Chars))
	logging.Get(logging.CategoryPrompt).Debug(
		"Assembled prompt for %s: %d sections, %d failures, %d chars, ~%d tokens",
		e.ID, len(res.Sections), len(res.Failures), res.Chars, res.Tokens,
	)
	return res
}

// contribution computes one component's text, isolating summarizer errors
// and panics.
func (a *Assembler) contribution(inst *schema.Instance, s *schema.ComponentSchema) (text string, fail *Failure) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			fail = &Failure{Component: s.Type(), Version: s.Version(), Err: fmt.Errorf("summarize panicked: %v", r), Panicked: true}
		}
	}()

	if s.HasSummary() {
		out, err := s.Summarize(inst.Data)
		if err != nil {
			return "", &Failure{Component: s.Type(), Version: s.Version(), Err: err}
		}
		return out, nil
	}
	if a.renderProjections && s.LLM().Section != "" {
		return renderProjection(s, projection.Project(inst, s, schema.AudienceLLM)), nil
	}
	return "", nil
}

// renderProjection writes "name: value" lines in schema field order.
func renderProjection(s *schema.ComponentSchema, d schema.Data) string {
	var lines []string
	for _, f := range s.Fields() {
		v, ok := d[f.Name]
		if !ok || v == nil {
			continue
		}
		val := formatValue(v)
		if val == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", humanize(f.Name), val))
	}
	return strings.Join(lines, "\n")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := formatValue(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := formatValue(t[k]); s != "" {
				parts = append(parts, k+"="+s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

func (a *Assembler) renderSection(sec Section) string {
	parts := make([]string, 0, len(sec.Entries)+1)
	if a.addSectionHeaders {
		parts = append(parts, sectionHeader(sec.Name))
	}
	for _, e := range sec.Entries {
		parts = append(parts, e.Text)
	}
	return strings.Join(parts, a.entrySeparator)
}

// sectionHeader returns a markdown header for a section name.
// "social_ties" becomes "## Social Ties".
func sectionHeader(name string) string {
	if name == "" {
		return "## General"
	}
	return "## " + cases.Title(language.English).String(humanize(name))
}

// orderSections sorts sections by descending priority then name, and
// entries by descending priority then component type and version.
func orderSections(bySection map[string]*Section) []Section {
	out := make([]Section, 0, len(bySection))
	for _, sec := range bySection {
		sort.Slice(sec.Entries, func(i, j int) bool {
			ei, ej := sec.Entries[i], sec.Entries[j]
			if ei.Priority != ej.Priority {
				return ei.Priority > ej.Priority
			}
			if ei.Component != ej.Component {
				return ei.Component < ej.Component
			}
			return ei.Version < ej.Version
		})
		out = append(out, *sec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (a *Assembler) render(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, sec := range sections {
		parts = append(parts, a.renderSection(sec))
	}
	return strings.Join(parts, a.sectionSeparator)
}

// fit renders sections within maxChars. When the block is too long it keeps
// whole entries in order until the next one would not fit, then appends the
// truncation marker if the marker itself fits. A section is kept only with
// at least one entry, and the returned sections are exactly what the text
// shows.
func (a *Assembler) fit(sections []Section) ([]Section, string, bool) {
	text := a.render(sections)
	if a.maxChars <= 0 || utf8.RuneCountInString(text) <= a.maxChars {
		return sections, text, false
	}

	marker := a.sectionSeparator + truncationMarker
	budget := a.maxChars - utf8.RuneCountInString(marker)
	withMarker := budget >= 0
	if !withMarker {
		budget = a.maxChars
	}

	var kept []Section
	for _, sec := range sections {
		part := sec
		part.Entries = nil
		for _, e := range sec.Entries {
			candidate := part
			candidate.Entries = append(append([]Entry(nil), part.Entries...), e)
			trial := append(append([]Section(nil), kept...), candidate)
			if utf8.RuneCountInString(a.render(trial)) > budget {
				break
			}
			part = candidate
		}
		if len(part.Entries) > 0 {
			kept = append(kept, part)
		}
		if len(part.Entries) < len(sec.Entries) {
			break
		}
	}

	text = a.render(kept)
	if withMarker {
		if text == "" {
			text = truncationMarker
		} else {
			text += marker
		}
	}
	return kept, text, true
}

// EstimateTokens approximates the token count of s (about four characters
// per token).
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}
