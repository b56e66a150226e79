package schemas

import (
	"fmt"
	"sort"
	"strings"

	"schemalens/internal/registry"
	"schemalens/internal/schema"
)

// Memory is one episodic memory.
type Memory struct {
	Tick       float64 `json:"tick"`
	Text       string  `json:"text"`
	Importance float64 `json:"importance"`
}

// EpisodicMemory is the typed view of the episodic_memory component.
type EpisodicMemory struct {
	Memories []Memory `json:"memories"`
	Capacity float64  `json:"capacity"`
}

// Grudge is one jealousy target.
type Grudge struct {
	Target    string  `json:"target"`
	Intensity float64 `json:"intensity"`
	Cause     string  `json:"cause,omitempty"`
}

// Jealousy is the typed view of the jealousy component.
type Jealousy struct {
	Targets []Grudge `json:"targets"`
}

// Relationships is the typed view of the relationships component.
// Affinity runs from -1 (hatred) to 1 (devotion).
type Relationships struct {
	Affinity map[string]float64 `json:"affinity"`
	Partner  string             `json:"partner,omitempty"`
}

var (
	EpisodicMemorySchema *schema.ComponentSchema
	JealousySchema       *schema.ComponentSchema
	RelationshipsSchema  *schema.ComponentSchema
)

const (
	recalledMemories  = 3
	jealousyThreshold = 0.3
)

func init() {
	EpisodicMemorySchema = registry.Declare(schema.Description{
		Type:     "episodic_memory",
		Version:  1,
		Category: "cognitive",
		UI:       schema.UIMeta{Icon: "scroll", PanelPriority: 40, Title: "Memories"},
		Fields: []schema.FieldDescriptor{
			{Name: "memories", Type: schema.TypeArray, Required: true, Default: []any{}, Description: "Remembered events, oldest first",
				Visibility: schema.Visibility{Player: schema.Hidden, LLM: schema.LLMSummarized, Agent: schema.Shown, User: schema.Shown, Dev: schema.Shown},
				UI:         schema.UIHints{Widget: schema.WidgetJSON, Group: "memories"}},
			{Name: "capacity", Type: schema.TypeNumber, Required: true, Default: 50.0, Visibility: schema.DevOnly(),
				UI: schema.UIHints{Group: "memories", Order: 1}},
		},
		LLM: schema.LLMMeta{
			Section:   "memories",
			Priority:  40,
			Summarize: summarizeMemories,
		},
	})

	JealousySchema = registry.Declare(schema.Description{
		Type:     "jealousy",
		Version:  1,
		Category: "social",
		UI:       schema.UIMeta{Icon: "eye", PanelPriority: 20},
		Fields: []schema.FieldDescriptor{
			{Name: "targets", Type: schema.TypeArray, Required: true, Default: []any{},
				Visibility: schema.Visibility{Player: schema.Hidden, LLM: schema.LLMSummarized, Agent: schema.Shown, User: schema.Hidden, Dev: schema.Shown},
				UI:         schema.UIHints{Widget: schema.WidgetJSON}},
		},
		LLM: schema.LLMMeta{
			Section:   "feelings",
			Priority:  50,
			Summarize: summarizeJealousy,
		},
	})

	RelationshipsSchema = registry.Declare(schema.Description{
		Type:     "relationships",
		Version:  1,
		Category: "social",
		UI:       schema.UIMeta{Icon: "people", PanelPriority: 50, Title: "Relationships"},
		Fields: []schema.FieldDescriptor{
			{Name: "affinity", Type: schema.TypeObject, Required: true, Default: map[string]any{}, Visibility: schema.Summarized(),
				UI: schema.UIHints{Widget: schema.WidgetJSON, Group: "bonds"}},
			{Name: "partner", Type: schema.TypeString, Visibility: schema.Everyone(), Mutable: true,
				UI: schema.UIHints{Group: "bonds", Order: -1}},
		},
		Validate: func(d schema.Data) bool {
			aff, _ := d["affinity"].(map[string]any)
			for _, v := range aff {
				if _, ok := schema.Number(v); !ok {
					return false
				}
			}
			return true
		},
		LLM: schema.LLMMeta{
			Section:   "social",
			Priority:  50,
			Summarize: summarizeRelationships,
		},
	})
}

func summarizeMemories(d schema.Data) (string, error) {
	m, err := schema.Decode[EpisodicMemory](d)
	if err != nil {
		return "", err
	}
	if len(m.Memories) == 0 {
		return "", nil
	}
	recalled := append([]Memory(nil), m.Memories...)
	sort.SliceStable(recalled, func(i, j int) bool {
		if recalled[i].Importance != recalled[j].Importance {
			return recalled[i].Importance > recalled[j].Importance
		}
		return recalled[i].Tick > recalled[j].Tick
	})
	if len(recalled) > recalledMemories {
		recalled = recalled[:recalledMemories]
	}
	lines := make([]string, len(recalled))
	for i, mem := range recalled {
		lines[i] = "- " + mem.Text
	}
	return "You remember:\n" + strings.Join(lines, "\n"), nil
}

func summarizeJealousy(d schema.Data) (string, error) {
	j, err := schema.Decode[Jealousy](d)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, g := range j.Targets {
		if g.Intensity < jealousyThreshold {
			continue
		}
		s := "You are jealous of " + g.Target
		if g.Cause != "" {
			s += " because " + g.Cause
		}
		parts = append(parts, s+".")
	}
	return strings.Join(parts, " "), nil
}

func summarizeRelationships(d schema.Data) (string, error) {
	r, err := schema.Decode[Relationships](d)
	if err != nil {
		return "", err
	}
	var friends, rivals []string
	for name, a := range r.Affinity {
		switch {
		case a >= 0.6:
			friends = append(friends, name)
		case a <= -0.4:
			rivals = append(rivals, name)
		}
	}
	sort.Strings(friends)
	sort.Strings(rivals)

	var parts []string
	if r.Partner != "" {
		parts = append(parts, fmt.Sprintf("Your partner is %s.", r.Partner))
	}
	if len(friends) > 0 {
		parts = append(parts, fmt.Sprintf("You are close to %s.", joinAnd(friends)))
	}
	if len(rivals) > 0 {
		parts = append(parts, fmt.Sprintf("You dislike %s.", joinAnd(rivals)))
	}
	return strings.Join(parts, " "), nil
}
