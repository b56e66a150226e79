package schema

import "fmt"

// Validate narrows an untyped value against the schema. It never panics:
// anything malformed, including a panicking author validator, is simply
// invalid. Unknown keys and missing optional fields are tolerated so that
// data persisted by older schema versions still loads.
//
// Use Diagnose to find out why a value was rejected.
func (s *ComponentSchema) Validate(v any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return len(s.Diagnose(v)) == 0
}

// Diagnose lists every reason v fails validation. An empty result means v
// is valid.
func (s *ComponentSchema) Diagnose(v any) (issues []Issue) {
	defer func() {
		if r := recover(); r != nil {
			issues = append(issues, Issue{Message: fmt.Sprintf("validator panicked: %v", r)})
		}
	}()

	d, ok := asData(v)
	if !ok {
		return []Issue{{Message: fmt.Sprintf("want object, got %T", v)}}
	}

	for _, f := range s.fields {
		val, present := d[f.Name]
		if !present {
			if f.Required {
				issues = append(issues, Issue{Field: f.Name, Message: "required field missing"})
			}
			continue
		}
		if err := f.checkValue(val); err != nil {
			issues = append(issues, Issue{Field: f.Name, Message: err.Error()})
		}
	}

	if len(issues) == 0 && s.validate != nil && !s.validate(d) {
		issues = append(issues, Issue{Message: "custom validation rejected value"})
	}
	return issues
}

// CreateDefault returns a fresh default value. The result never shares
// slices or maps with the schema or with previous calls.
func (s *ComponentSchema) CreateDefault() Data {
	var base Data
	if s.createDefault != nil {
		base = s.createDefault()
	}

	out := make(Data, len(s.fields))
	for k, v := range base {
		out[k] = normalize(v)
	}
	for _, f := range s.fields {
		if _, ok := out[f.Name]; ok || !f.HasDefault() {
			continue
		}
		out[f.Name] = normalize(f.Default)
	}
	return out
}
