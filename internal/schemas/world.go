package schemas

import (
	"schemalens/internal/registry"
	"schemalens/internal/schema"
)

// PlantStages lists the plant growth stages in order.
var PlantStages = []string{"seed", "sprout", "vegetative", "flowering", "fruiting", "withered"}

// Plant is the typed view of the plant component.
type Plant struct {
	Species   string         `json:"species"`
	Stage     string         `json:"stage"`
	Growth    float64        `json:"growth"`
	Hydration float64        `json:"hydration"`
	Health    float64        `json:"health"`
	Genome    map[string]any `json:"genome,omitempty"`
}

// Animal is the typed view of the animal component.
type Animal struct {
	Species  string  `json:"species"`
	Tameness float64 `json:"tameness"`
	Hunger   float64 `json:"hunger"`
	Owner    string  `json:"owner,omitempty"`
	Wild     bool    `json:"wild"`
}

var (
	PlantSchema  *schema.ComponentSchema
	AnimalSchema *schema.ComponentSchema
)

func init() {
	// Plants never reach a prompt: no section and no summary.
	PlantSchema = registry.Declare(schema.Description{
		Type:     "plant",
		Version:  1,
		Category: "farming",
		UI:       schema.UIMeta{Icon: "sprout", Color: "#6a9f3a", PanelPriority: 30, Title: "Plant"},
		Fields: []schema.FieldDescriptor{
			{Name: "species", Type: schema.TypeString, Required: true, Default: "wild_grass", Visibility: schema.Everyone(),
				UI: schema.UIHints{Widget: schema.WidgetReadonly, Group: "plant"}},
			{Name: "stage", Type: schema.TypeEnum, Required: true, Default: "seed", Enum: PlantStages, Visibility: schema.Everyone(),
				UI: schema.UIHints{Group: "plant", Order: 1}},
			{Name: "growth", Type: schema.TypeNumber, Required: true, Default: 0.0, Visibility: schema.Everyone(),
				UI: schema.UIHints{Widget: schema.WidgetSlider, Group: "plant", Order: 2, Range: unitRange()}},
			{Name: "hydration", Type: schema.TypeNumber, Required: true, Default: 0.5, Visibility: schema.Everyone(), Mutable: true,
				UI: schema.UIHints{Widget: schema.WidgetSlider, Group: "care", Order: 3, Range: unitRange(), Icon: "droplet"}},
			{Name: "health", Type: schema.TypeNumber, Required: true, Default: 1.0, Visibility: schema.Everyone(),
				UI: schema.UIHints{Widget: schema.WidgetSlider, Group: "care", Order: 4, Range: unitRange()}},
			{Name: "genome", Type: schema.TypeObject, Visibility: schema.DevOnly()},
		},
	})

	// Animals have no summarizer; their llm-visible fields are rendered
	// directly under "companions".
	AnimalSchema = registry.Declare(schema.Description{
		Type:     "animal",
		Version:  1,
		Category: "husbandry",
		UI:       schema.UIMeta{Icon: "paw", Color: "#a6784f", PanelPriority: 30, Title: "Animal"},
		Fields: []schema.FieldDescriptor{
			{Name: "species", Type: schema.TypeString, Required: true, Default: "chicken", Visibility: schema.Everyone(),
				UI: schema.UIHints{Widget: schema.WidgetReadonly}},
			{Name: "tameness", Type: schema.TypeNumber, Required: true, Default: 0.0, Visibility: schema.Everyone(),
				UI: schema.UIHints{Widget: schema.WidgetSlider, Order: 1, Range: unitRange()}},
			{Name: "hunger", Type: schema.TypeNumber, Required: true, Default: 0.0,
				Visibility: schema.Visibility{Player: schema.Shown, LLM: schema.LLMHidden, Agent: schema.Shown, User: schema.Shown, Dev: schema.Shown},
				UI:         schema.UIHints{Widget: schema.WidgetSlider, Order: 2, Range: unitRange()}},
			{Name: "owner", Type: schema.TypeString, Visibility: schema.Everyone(), Mutable: true,
				UI: schema.UIHints{Order: 3}},
			{Name: "wild", Type: schema.TypeBoolean, Required: true, Default: true, Visibility: schema.Everyone(),
				UI: schema.UIHints{Order: 4}},
		},
		LLM: schema.LLMMeta{Section: "companions", Priority: 20},
	})
}
