package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Description is the author-facing declaration of a component type.
// Build turns it into a ComponentSchema.
type Description struct {
	Type     string            `yaml:"type" validate:"required,max=64"`
	Version  int               `yaml:"version" validate:"min=1"`
	Category string            `yaml:"category" validate:"required"`
	Fields   []FieldDescriptor `yaml:"fields" validate:"dive"`
	UI       UIMeta            `yaml:"ui"`
	LLM      LLMMeta           `yaml:"-"`

	// Validate runs after every field has the right shape.
	Validate ValidateFunc `yaml:"-"`

	// CreateDefault returns a fresh default. Field defaults fill any key it
	// leaves out. When nil, the default is built from field defaults alone.
	CreateDefault DefaultFunc `yaml:"-"`
}

// describeValidate checks the struct-level rules of a Description.
var describeValidate = validator.New()

// Build normalizes a description into an immutable ComponentSchema.
// Every problem in the description is reported in one *BuildError.
func Build(desc Description) (*ComponentSchema, error) {
	var errs []error

	if err := describeValidate.Struct(desc); err != nil {
		errs = append(errs, describeErrors(err)...)
	}

	index := make(map[string]int, len(desc.Fields))
	for i, f := range desc.Fields {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("%w: field #%d has no name", ErrInvalidDescription, i))
			continue
		}
		if _, dup := index[f.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate field %q", ErrInvalidDescription, f.Name))
			continue
		}
		index[f.Name] = i

		if !f.Type.Valid() {
			errs = append(errs, fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidDescription, f.Name, f.Type))
		}
		if f.Type == TypeEnum && len(f.Enum) == 0 {
			errs = append(errs, fmt.Errorf("%w: enum field %q declares no values", ErrInvalidDescription, f.Name))
		}
		if missing := f.Visibility.Missing(); len(missing) > 0 {
			errs = append(errs, fmt.Errorf("%w: field %q lacks %v", ErrMissingVisibility, f.Name, missing))
		}
		if f.Visibility.LLM == LLMVisible && f.Visibility.Dev == Hidden {
			errs = append(errs, fmt.Errorf("%w: field %q", ErrLLMNotDevVisible, f.Name))
		}
		if f.Visibility.LLM == LLMSummarized && desc.LLM.Summarize == nil {
			errs = append(errs, fmt.Errorf("%w: field %q", ErrSummarizedWithoutSummary, f.Name))
		}
		if f.HasDefault() && f.Type.Valid() {
			if err := f.checkValue(normalize(f.Default)); err != nil {
				errs = append(errs, fmt.Errorf("%w: %v", ErrDefaultInvalid, err))
			}
		}
	}

	if desc.LLM.Summarize != nil && strings.TrimSpace(desc.LLM.Section) == "" {
		errs = append(errs, ErrSummarizeWithoutSection)
	}

	if len(errs) > 0 {
		return nil, &BuildError{Type: desc.Type, Version: desc.Version, Err: errors.Join(errs...)}
	}

	fields := make([]FieldDescriptor, len(desc.Fields))
	copy(fields, desc.Fields)
	for i := range fields {
		fields[i].Default = normalize(fields[i].Default)
		fields[i].Enum = append([]string(nil), fields[i].Enum...)
	}

	s := &ComponentSchema{
		typ:           desc.Type,
		version:       desc.Version,
		category:      desc.Category,
		fields:        fields,
		index:         index,
		ui:            desc.UI,
		llm:           desc.LLM,
		validate:      desc.Validate,
		createDefault: desc.CreateDefault,
	}
	s.llm.Section = strings.TrimSpace(s.llm.Section)

	if err := s.checkDefault(); err != nil {
		return nil, &BuildError{Type: desc.Type, Version: desc.Version, Err: err}
	}
	return s, nil
}

// MustBuild is like Build but panics on error. Use it from init().
func MustBuild(desc Description) *ComponentSchema {
	s, err := Build(desc)
	if err != nil {
		panic(err)
	}
	return s
}

// checkDefault verifies that the synthesized default covers every required
// field and passes Validate.
func (s *ComponentSchema) checkDefault() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: CreateDefault panicked: %v", ErrDefaultInvalid, r)
		}
	}()

	def := s.CreateDefault()
	var errs []error
	for _, f := range s.fields {
		if !f.Required {
			continue
		}
		if v, ok := def[f.Name]; !ok || v == nil {
			errs = append(errs, fmt.Errorf("%w: %q", ErrRequiredWithoutDefault, f.Name))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if issues := s.Diagnose(def); len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, is := range issues {
			msgs[i] = is.String()
		}
		return fmt.Errorf("%w: %s", ErrDefaultInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

func describeErrors(err error) []error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{fmt.Errorf("%w: %v", ErrInvalidDescription, err)}
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidDescription, fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return out
}
