package schemas

import (
	"fmt"
	"strings"

	"schemalens/internal/registry"
	"schemalens/internal/schema"
)

// Soul is the typed view of the soul component.
type Soul struct {
	TrueName    string   `json:"true_name"`
	Incarnation float64  `json:"incarnation"`
	PastLives   []string `json:"past_lives"`
	Karma       float64  `json:"karma"`
}

// Magic is the typed view of the magic component.
type Magic struct {
	Paradigm    string   `json:"paradigm"`
	Mana        float64  `json:"mana"`
	MaxMana     float64  `json:"max_mana"`
	KnownSpells []string `json:"known_spells"`
}

// MagicParadigms are the recognised schools of magic.
var MagicParadigms = []string{"none", "academic", "divine", "animist", "pact", "wild"}

var (
	SoulSchema  *schema.ComponentSchema
	MagicSchema *schema.ComponentSchema
)

func init() {
	SoulSchema = registry.Declare(schema.Description{
		Type:     "soul",
		Version:  1,
		Category: "soul",
		UI:       schema.UIMeta{Icon: "spark", Color: "#8e7cc3", PanelPriority: 10, Title: "Soul"},
		Fields: []schema.FieldDescriptor{
			{Name: "true_name", Type: schema.TypeString, Required: true, Default: "",
				Visibility: schema.Visibility{Player: schema.Hidden, LLM: schema.LLMHidden, Agent: schema.Shown, User: schema.Hidden, Dev: schema.Shown},
				UI:         schema.UIHints{Group: "essence"}},
			{Name: "incarnation", Type: schema.TypeNumber, Required: true, Default: 1.0, Visibility: schema.Summarized(),
				UI: schema.UIHints{Widget: schema.WidgetReadonly, Group: "essence", Order: 1}},
			{Name: "past_lives", Type: schema.TypeArray, Required: true, Default: []any{}, Visibility: schema.Summarized(),
				UI: schema.UIHints{Widget: schema.WidgetList, Group: "history", Order: 2}},
			{Name: "karma", Type: schema.TypeNumber, Required: true, Default: 0.0, Visibility: private(),
				UI: schema.UIHints{Widget: schema.WidgetSlider, Group: "essence", Order: 3, Range: &schema.Range{Min: -1, Max: 1, Step: 0.01}}},
		},
		LLM: schema.LLMMeta{
			Section:  "soul",
			Priority: 10,
			Summarize: func(d schema.Data) (string, error) {
				s, err := schema.Decode[Soul](d)
				if err != nil {
					return "", err
				}
				if len(s.PastLives) == 0 {
					return "", nil
				}
				return fmt.Sprintf("This is incarnation %d of your soul. You dimly recall past lives as %s.",
					int(s.Incarnation), joinAnd(s.PastLives)), nil
			},
		},
	})

	MagicSchema = registry.Declare(schema.Description{
		Type:     "magic",
		Version:  1,
		Category: "magic",
		UI:       schema.UIMeta{Icon: "wand", Color: "#3d85c6", PanelPriority: 35, Title: "Magic"},
		Fields: []schema.FieldDescriptor{
			{Name: "paradigm", Type: schema.TypeEnum, Required: true, Default: "none", Enum: MagicParadigms, Visibility: schema.Everyone(),
				UI: schema.UIHints{Group: "casting"}},
			{Name: "mana", Type: schema.TypeNumber, Required: true, Default: 0.0, Visibility: schema.Summarized(),
				UI: schema.UIHints{Widget: schema.WidgetSlider, Group: "casting", Order: 1}},
			{Name: "max_mana", Type: schema.TypeNumber, Required: true, Default: 0.0, Visibility: schema.Summarized(),
				UI: schema.UIHints{Widget: schema.WidgetReadonly, Group: "casting", Order: 2}},
			{Name: "known_spells", Type: schema.TypeArray, Required: true, Default: []any{}, Visibility: schema.Summarized(),
				UI: schema.UIHints{Widget: schema.WidgetList, Group: "spells", Order: 3}},
		},
		Validate: func(d schema.Data) bool {
			mana, _ := schema.Number(d["mana"])
			maxMana, _ := schema.Number(d["max_mana"])
			return mana >= 0 && mana <= maxMana
		},
		LLM: schema.LLMMeta{
			Section:  "abilities",
			Priority: 45,
			Summarize: func(d schema.Data) (string, error) {
				m, err := schema.Decode[Magic](d)
				if err != nil {
					return "", err
				}
				if m.Paradigm == "none" {
					return "", nil
				}
				var b strings.Builder
				fmt.Fprintf(&b, "You practice %s magic", m.Paradigm)
				if m.MaxMana > 0 {
					fmt.Fprintf(&b, " (mana %d/%d)", int(m.Mana), int(m.MaxMana))
				}
				b.WriteString(".")
				if len(m.KnownSpells) > 0 {
					fmt.Fprintf(&b, " You know %s.", joinAnd(m.KnownSpells))
				}
				return b.String(), nil
			},
		},
	})
}
