package schema

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventoryYAML = `
schemas:
  - type: inventory
    version: 1
    category: economy
    ui:
      icon: backpack
      color: "#aa8844"
      panel_priority: 30
    llm:
      section: Possessions
      priority: 40
      summary_template: |
        {{if .items}}Carries {{join .items ", "}}.{{end}}
        {{if pos .coins}}Has {{.coins}} coins.{{end}}
    fields:
      - name: items
        type: array
        required: true
        default: []
        visibility: {player: true, llm: summarized, agent: true, user: true, dev: true}
        ui: {widget: list, group: contents, order: 1}
      - name: coins
        type: number
        required: true
        default: 0
        visibility: {player: true, llm: summarized, agent: true, user: true, dev: true}
        ui: {group: contents, order: 2, range: {min: 0, max: 100000}}
`

func TestParseDescriptions(t *testing.T) {
	descs, err := ParseDescriptions([]byte(inventoryYAML))
	require.NoError(t, err)
	require.Len(t, descs, 1)

	d := descs[0]
	assert.Equal(t, "inventory", d.Type)
	assert.Equal(t, 30, d.UI.PanelPriority)
	assert.Equal(t, "Possessions", d.LLM.Section)
	require.NotNil(t, d.LLM.Summarize)
	require.Len(t, d.Fields, 2)
	assert.Equal(t, LLMSummarized, d.Fields[0].Visibility.LLM)
	assert.Equal(t, Shown, d.Fields[0].Visibility.Player)
	assert.Equal(t, WidgetList, d.Fields[0].UI.Widget)
	require.NotNil(t, d.Fields[1].UI.Range)
	assert.Equal(t, 100000.0, d.Fields[1].UI.Range.Max)

	s, err := Build(d)
	require.NoError(t, err)

	empty, err := s.Summarize(s.CreateDefault())
	require.NoError(t, err)
	assert.Equal(t, "", empty, "nothing to say for an empty inventory")

	text, err := s.Summarize(Data{"items": []any{"rope", "lantern"}, "coins": 12.0})
	require.NoError(t, err)
	assert.Contains(t, text, "Carries rope, lantern.")
	assert.Contains(t, text, "Has 12 coins.")
}

func TestParseDescriptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad visibility", "schemas:\n  - type: x\n    fields:\n      - name: a\n        visibility: {llm: sometimes}\n"},
		{"unknown key", "schemas:\n  - type: x\n    colour: red\n"},
		{"bad template", "schemas:\n  - type: x\n    llm: {section: S, summary_template: \"{{.a\"}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDescriptions([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseDescriptions_MissingVisibilityFailsBuild(t *testing.T) {
	descs, err := ParseDescriptions([]byte("schemas:\n  - type: x\n    version: 1\n    category: c\n    fields:\n      - name: a\n        type: string\n        visibility: {player: true, llm: true, agent: true, user: true}\n"))
	require.NoError(t, err)

	_, err = Build(descs[0])
	assert.ErrorIs(t, err, ErrMissingVisibility)
}

func TestLoadDescriptions(t *testing.T) {
	fsys := fstest.MapFS{"schemas/inventory.yaml": {Data: []byte(inventoryYAML)}}

	descs, err := LoadDescriptions(fsys, "schemas/inventory.yaml")
	require.NoError(t, err)
	assert.Len(t, descs, 1)

	_, err = LoadDescriptions(fsys, "schemas/missing.yaml")
	assert.Error(t, err)
}

func TestParseAudience(t *testing.T) {
	for _, a := range AllAudiences() {
		got, err := ParseAudience(string(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	got, err := ParseAudience(" DEV ")
	require.NoError(t, err)
	assert.Equal(t, AudienceDev, got)

	_, err = ParseAudience("admin")
	assert.Error(t, err)
}

func TestVisibilityIncludes(t *testing.T) {
	v := Visibility{Player: Shown, LLM: LLMSummarized, Agent: Hidden, User: Shown, Dev: Shown}

	assert.True(t, v.Includes(AudiencePlayer))
	assert.False(t, v.Includes(AudienceLLM), "summarized never includes the raw value")
	assert.False(t, v.Includes(AudienceAgent))
	assert.True(t, v.Complete())
	assert.Empty(t, v.Missing())

	assert.Equal(t, AllAudiences(), Visibility{}.Missing())
	assert.True(t, Everyone().Includes(AudienceLLM))
	assert.False(t, DevOnly().Includes(AudienceUser))
}
