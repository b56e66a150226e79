package schema

import "fmt"

// FieldType is the semantic shape of a field value.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeEnum    FieldType = "enum"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeEnum, TypeArray, TypeObject:
		return true
	}
	return false
}

// WidgetKind tells a generic renderer which control to build.
type WidgetKind string

const (
	WidgetText     WidgetKind = "text"
	WidgetTextArea WidgetKind = "textarea"
	WidgetNumber   WidgetKind = "number"
	WidgetSlider   WidgetKind = "slider"
	WidgetToggle   WidgetKind = "toggle"
	WidgetSelect   WidgetKind = "select"
	WidgetList     WidgetKind = "list"
	WidgetJSON     WidgetKind = "json"
	WidgetReadonly WidgetKind = "readonly"
)

// DefaultWidget picks a widget for a field type when the author gave none.
func DefaultWidget(t FieldType) WidgetKind {
	switch t {
	case TypeNumber:
		return WidgetNumber
	case TypeBoolean:
		return WidgetToggle
	case TypeEnum:
		return WidgetSelect
	case TypeArray:
		return WidgetList
	case TypeObject:
		return WidgetJSON
	default:
		return WidgetText
	}
}

// Range bounds a numeric widget.
type Range struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step,omitempty" json:"step,omitempty"`
}

// UIHints carry rendering metadata for one field.
type UIHints struct {
	Widget WidgetKind `yaml:"widget,omitempty" json:"widget,omitempty"`
	Group  string     `yaml:"group,omitempty" json:"group,omitempty"`
	Order  int        `yaml:"order,omitempty" json:"order,omitempty"`
	Icon   string     `yaml:"icon,omitempty" json:"icon,omitempty"`
	Range  *Range     `yaml:"range,omitempty" json:"range,omitempty"`
}

// FieldDescriptor is the per-field metadata of a component schema.
type FieldDescriptor struct {
	Name        string     `yaml:"name"`
	Type        FieldType  `yaml:"type"`
	Required    bool       `yaml:"required"`
	Default     any        `yaml:"default"`
	Enum        []string   `yaml:"enum,omitempty"`
	Visibility  Visibility `yaml:"visibility"`
	UI          UIHints    `yaml:"ui"`
	Mutable     bool       `yaml:"mutable"`
	Description string     `yaml:"description,omitempty"`
}

// HasDefault reports whether the field declares a default value.
func (f FieldDescriptor) HasDefault() bool {
	return f.Default != nil
}

// checkValue verifies that v has the field's shape. A nil value is accepted
// only for optional fields.
func (f FieldDescriptor) checkValue(v any) error {
	if v == nil {
		if f.Required {
			return fmt.Errorf("field %q is required but null", f.Name)
		}
		return nil
	}
	switch f.Type {
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("field %q: want string, got %T", f.Name, v)
		}
	case TypeNumber:
		if _, ok := toFloat(v); !ok {
			return fmt.Errorf("field %q: want number, got %T", f.Name, v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("field %q: want boolean, got %T", f.Name, v)
		}
	case TypeEnum:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("field %q: want enum string, got %T", f.Name, v)
		}
		if !f.allows(s) {
			return fmt.Errorf("field %q: %q is not one of %v", f.Name, s, f.Enum)
		}
	case TypeArray:
		if !isList(v) {
			return fmt.Errorf("field %q: want array, got %T", f.Name, v)
		}
	case TypeObject:
		if !isMap(v) {
			return fmt.Errorf("field %q: want object, got %T", f.Name, v)
		}
	default:
		return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	}
	return nil
}

func (f FieldDescriptor) allows(s string) bool {
	for _, e := range f.Enum {
		if e == s {
			return true
		}
	}
	return false
}
