// Package schemas declares the concrete component schemas of the
// simulation. Importing it registers every schema with registry.Default();
// the caller freezes the registry once startup is done.
package schemas

import (
	"fmt"
	"strings"

	"schemalens/internal/registry"
	"schemalens/internal/schema"
)

// Identity is the typed view of the identity component.
type Identity struct {
	Name    string  `json:"name"`
	Species string  `json:"species"`
	Age     float64 `json:"age"`
	Title   string  `json:"title,omitempty"`
}

// Needs is the typed view of the needs component. Values run from 0
// (satisfied) to 1 (desperate), except Energy which runs the other way.
type Needs struct {
	Hunger float64 `json:"hunger"`
	Energy float64 `json:"energy"`
	Social float64 `json:"social"`
	Safety float64 `json:"safety"`
}

// Personality is the typed view of the personality component.
type Personality struct {
	Temperament string   `json:"temperament"`
	Interests   []string `json:"interests"`
	Openness    float64  `json:"openness"`
}

// Core agent schemas.
var (
	IdentitySchema    *schema.ComponentSchema
	NeedsSchema       *schema.ComponentSchema
	PersonalitySchema *schema.ComponentSchema
)

// private hides a field from everyone but the owning agent and developers.
func private() schema.Visibility {
	return schema.Visibility{Player: schema.Hidden, LLM: schema.LLMHidden, Agent: schema.Shown, User: schema.Hidden, Dev: schema.Shown}
}

func unitRange() *schema.Range {
	return &schema.Range{Min: 0, Max: 1, Step: 0.01}
}

func init() {
	IdentitySchema = registry.Declare(schema.Description{
		Type:     "identity",
		Version:  1,
		Category: "agent",
		UI:       schema.UIMeta{Icon: "id-card", Color: "#5b7fa6", PanelPriority: 100, Title: "Identity"},
		Fields: []schema.FieldDescriptor{
			{Name: "name", Type: schema.TypeString, Required: true, Default: "Unnamed", Visibility: schema.Everyone(), Mutable: true,
				UI: schema.UIHints{Group: "identity", Order: 0}},
			{Name: "species", Type: schema.TypeEnum, Required: true, Default: "human",
				Enum:       []string{"human", "elf", "dwarf", "orc", "halfling", "spirit"},
				Visibility: schema.Everyone(), UI: schema.UIHints{Group: "identity", Order: 1}},
			{Name: "age", Type: schema.TypeNumber, Required: true, Default: 18.0, Visibility: schema.Everyone(),
				UI: schema.UIHints{Widget: schema.WidgetNumber, Group: "identity", Order: 2, Range: &schema.Range{Min: 0, Max: 1000}}},
			{Name: "title", Type: schema.TypeString, Visibility: schema.Everyone(), Mutable: true,
				UI: schema.UIHints{Group: "identity", Order: 3}},
		},
		LLM: schema.LLMMeta{
			Section:  "identity",
			Priority: 100,
			Summarize: func(d schema.Data) (string, error) {
				id, err := schema.Decode[Identity](d)
				if err != nil {
					return "", err
				}
				name := id.Name
				if id.Title != "" {
					name = id.Title + " " + name
				}
				return fmt.Sprintf("You are %s, a %d-year-old %s.", name, int(id.Age), id.Species), nil
			},
		},
	})

	NeedsSchema = registry.Declare(schema.Description{
		Type:     "needs",
		Version:  2,
		Category: "agent",
		UI:       schema.UIMeta{Icon: "heart-pulse", Color: "#c0504d", PanelPriority: 90, Title: "Needs"},
		Fields: []schema.FieldDescriptor{
			{Name: "hunger", Type: schema.TypeNumber, Required: true, Default: 0.0, Visibility: schema.Summarized(),
				UI: schema.UIHints{Widget: schema.WidgetSlider, Group: "body", Order: 0, Range: unitRange()}},
			{Name: "energy", Type: schema.TypeNumber, Required: true, Default: 1.0, Visibility: schema.Summarized(),
				UI: schema.UIHints{Widget: schema.WidgetSlider, Group: "body", Order: 1, Range: unitRange()}},
			{Name: "social", Type: schema.TypeNumber, Required: true, Default: 0.2, Visibility: schema.Summarized(),
				UI: schema.UIHints{Widget: schema.WidgetSlider, Group: "mind", Order: 2, Range: unitRange()}},
			{Name: "safety", Type: schema.TypeNumber, Required: true, Default: 0.0, Visibility: schema.Summarized(),
				UI: schema.UIHints{Widget: schema.WidgetSlider, Group: "mind", Order: 3, Range: unitRange()}},
			{Name: "last_meal_tick", Type: schema.TypeNumber, Visibility: schema.DevOnly()},
		},
		Validate: func(d schema.Data) bool {
			for _, k := range []string{"hunger", "energy", "social", "safety"} {
				if f, ok := schema.Number(d[k]); ok && (f < 0 || f > 1) {
					return false
				}
			}
			return true
		},
		LLM: schema.LLMMeta{
			Section:   "needs",
			Priority:  80,
			Summarize: summarizeNeeds,
		},
	})

	PersonalitySchema = registry.Declare(schema.Description{
		Type:     "personality",
		Version:  1,
		Category: "cognitive",
		UI:       schema.UIMeta{Icon: "masks", PanelPriority: 60, Title: "Personality"},
		Fields: []schema.FieldDescriptor{
			{Name: "temperament", Type: schema.TypeEnum, Required: true, Default: "steady",
				Enum:       []string{"steady", "fiery", "gloomy", "cheerful", "anxious"},
				Visibility: schema.Summarized(), UI: schema.UIHints{Group: "traits", Order: 0}},
			{Name: "interests", Type: schema.TypeArray, Required: true, Default: []any{}, Visibility: schema.Summarized(), Mutable: true,
				UI: schema.UIHints{Widget: schema.WidgetList, Group: "traits", Order: 1}},
			{Name: "openness", Type: schema.TypeNumber, Required: true, Default: 0.5, Visibility: private(),
				UI: schema.UIHints{Widget: schema.WidgetSlider, Group: "traits", Order: 2, Range: unitRange()}},
		},
		LLM: schema.LLMMeta{
			Section:   "personality",
			Priority:  60,
			Summarize: summarizePersonality,
		},
	})
}

func summarizeNeeds(d schema.Data) (string, error) {
	n, err := schema.Decode[Needs](d)
	if err != nil {
		return "", err
	}
	var parts []string
	switch {
	case n.Hunger >= 0.8:
		parts = append(parts, "You are starving.")
	case n.Hunger >= 0.5:
		parts = append(parts, "You are hungry.")
	}
	switch {
	case n.Energy <= 0.2:
		parts = append(parts, "You are exhausted.")
	case n.Energy <= 0.4:
		parts = append(parts, "You are tired.")
	}
	if n.Social >= 0.7 {
		parts = append(parts, "You feel lonely.")
	}
	if n.Safety >= 0.6 {
		parts = append(parts, "You feel unsafe.")
	}
	return strings.Join(parts, " "), nil
}

func summarizePersonality(d schema.Data) (string, error) {
	p, err := schema.Decode[Personality](d)
	if err != nil {
		return "", err
	}
	interests := "no particular interests"
	if len(p.Interests) > 0 {
		interests = "an interest in " + joinAnd(p.Interests)
	}
	return fmt.Sprintf("You are %s by temperament, with %s.", p.Temperament, interests), nil
}

// joinAnd renders a list as "a", "a and b" or "a, b and c".
func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
