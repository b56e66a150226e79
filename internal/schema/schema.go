package schema

import (
	"encoding/json"
	"fmt"
)

// Data is the erased representation of a component's fields.
type Data = map[string]any

// Instance is one component attached to an entity.
type Instance struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Data    Data   `json:"data"`
}

// NewInstance wraps data for the given type and version.
func NewInstance(typ string, version int, data Data) *Instance {
	if data == nil {
		data = Data{}
	}
	return &Instance{Type: typ, Version: version, Data: data}
}

// ValidateFunc is an extra, author-supplied check run after field shapes pass.
type ValidateFunc func(d Data) bool

// SummarizeFunc renders an instance as prompt text. An empty string means
// there is nothing worth saying. Errors (and panics) are isolated by the
// prompt assembler.
type SummarizeFunc func(d Data) (string, error)

// DefaultFunc constructs a fresh default instance.
type DefaultFunc func() Data

// UIMeta is schema-level rendering metadata.
type UIMeta struct {
	Icon          string `yaml:"icon,omitempty" json:"icon,omitempty"`
	Color         string `yaml:"color,omitempty" json:"color,omitempty"`
	PanelPriority int    `yaml:"panel_priority,omitempty" json:"panelPriority,omitempty"`
	Title         string `yaml:"title,omitempty" json:"title,omitempty"`
}

// LLMMeta controls how a component contributes to prompts.
type LLMMeta struct {
	Section   string        `yaml:"section,omitempty"`
	Priority  int           `yaml:"priority,omitempty"`
	Summarize SummarizeFunc `yaml:"-"`
}

// ComponentSchema is the normalized, immutable description of one
// component type. Construct it with Build.
type ComponentSchema struct {
	typ      string
	version  int
	category string

	fields []FieldDescriptor
	index  map[string]int

	ui  UIMeta
	llm LLMMeta

	validate      ValidateFunc
	createDefault DefaultFunc
}

// Type returns the component type name.
func (s *ComponentSchema) Type() string { return s.typ }

// Version returns the schema version.
func (s *ComponentSchema) Version() int { return s.version }

// Category returns the grouping category (e.g. "social", "farming").
func (s *ComponentSchema) Category() string { return s.category }

// Key returns "type@version".
func (s *ComponentSchema) Key() string { return fmt.Sprintf("%s@%d", s.typ, s.version) }

// UI returns the schema-level UI metadata.
func (s *ComponentSchema) UI() UIMeta { return s.ui }

// LLM returns the prompt metadata.
func (s *ComponentSchema) LLM() LLMMeta { return s.llm }

// HasSummary reports whether the schema contributes a narrative summary.
func (s *ComponentSchema) HasSummary() bool { return s.llm.Summarize != nil }

// Fields returns the field descriptors in declaration order.
func (s *ComponentSchema) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a descriptor by name.
func (s *ComponentSchema) Field(name string) (FieldDescriptor, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.fields[i], true
}

// Summarize calls the schema's summarize function. It returns "" when the
// schema has none. Panics are not recovered here.
func (s *ComponentSchema) Summarize(d Data) (string, error) {
	if s.llm.Summarize == nil {
		return "", nil
	}
	return s.llm.Summarize(d)
}

// NewInstance constructs a default instance of this schema.
func (s *ComponentSchema) NewInstance() *Instance {
	return NewInstance(s.typ, s.version, s.CreateDefault())
}

// Decode converts validated erased data into a typed struct for consumers
// that work with concrete component types.
func Decode[T any](d Data) (T, error) {
	var out T
	raw, err := json.Marshal(d)
	if err != nil {
		return out, fmt.Errorf("encode component data: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode component data into %T: %w", out, err)
	}
	return out, nil
}
