package prompt

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemalens/internal/ecs"
	"schemalens/internal/registry"
	"schemalens/internal/schema"
)

func describe(typ, section string, priority int, summarize schema.SummarizeFunc, fields ...schema.FieldDescriptor) schema.Description {
	if len(fields) == 0 {
		fields = []schema.FieldDescriptor{
			{Name: "note", Type: schema.TypeString, Required: true, Default: "", Visibility: schema.Everyone()},
		}
	}
	return schema.Description{
		Type:     typ,
		Version:  1,
		Category: "test",
		Fields:   fields,
		LLM:      schema.LLMMeta{Section: section, Priority: priority, Summarize: summarize},
	}
}

func constant(text string) schema.SummarizeFunc {
	return func(schema.Data) (string, error) { return text, nil }
}

func interestsDesc(empty string) schema.Description {
	return describe("personality", "Personality", 50, func(d schema.Data) (string, error) {
		list, _ := d["interests"].([]any)
		if len(list) == 0 {
			return empty, nil
		}
		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = v.(string)
		}
		return "Interested in " + strings.Join(parts, " and ") + ".", nil
	}, schema.FieldDescriptor{
		Name: "interests", Type: schema.TypeArray, Required: true, Default: []any{}, Visibility: schema.Summarized(),
	})
}

func setup(t *testing.T, descs ...schema.Description) (*registry.Registry, *ecs.Entity) {
	t.Helper()
	r := registry.New()
	e := &ecs.Entity{ID: "agent-1"}
	for _, d := range descs {
		s, err := schema.Build(d)
		require.NoError(t, err)
		require.NoError(t, r.Register(s))
		e.Attach(s.NewInstance())
	}
	r.Freeze()
	return r, e
}

func TestAssemble_SummarizeFailureIsIsolated(t *testing.T) {
	r, e := setup(t,
		describe("needs", "Needs", 90, constant("Hungry.")),
		describe("identity", "Identity", 100, constant("A miller named Ilse.")),
		describe("jealousy", "Feelings", 40, func(schema.Data) (string, error) {
			panic("nil pointer in jealousy summary")
		}),
		describe("episodic_memory", "Memories", 30, func(schema.Data) (string, error) {
			return "", errors.New("memory index corrupt")
		}),
	)

	res := NewAssembler().AssembleReport(e, r)

	assert.Contains(t, res.Text, "## Identity\nA miller named Ilse.")
	assert.Contains(t, res.Text, "## Needs\nHungry.")
	assert.NotContains(t, res.Text, "## Feelings")
	assert.NotContains(t, res.Text, "## Memories")

	require.Len(t, res.Failures, 2)
	byType := map[string]Failure{}
	for _, f := range res.Failures {
		byType[f.Component] = f
	}
	assert.True(t, byType["jealousy"].Panicked)
	assert.Contains(t, byType["jealousy"].Error(), "nil pointer in jealousy summary")
	assert.False(t, byType["episodic_memory"].Panicked)
	assert.Equal(t, "error", byType["episodic_memory"].Reason())
}

func TestAssemble_EmptyInterests(t *testing.T) {
	t.Run("non-empty summary keeps the section", func(t *testing.T) {
		r, e := setup(t, interestsDesc("no particular interests"))
		out := NewAssembler().Assemble(e, r)
		assert.Equal(t, "## Personality\nno particular interests", out)
	})

	t.Run("empty summary drops the section", func(t *testing.T) {
		r, e := setup(t, interestsDesc(""))
		res := NewAssembler().AssembleReport(e, r)
		assert.Empty(t, res.Text)
		assert.Empty(t, res.Sections)
		assert.Equal(t, []string{"personality"}, res.Dropped)
	})

	t.Run("populated interests", func(t *testing.T) {
		r, e := setup(t, interestsDesc(""))
		inst, _ := e.Component("personality")
		inst.Data["interests"] = []any{"bees", "rivers"}
		out := NewAssembler().Assemble(e, r)
		assert.Equal(t, "## Personality\nInterested in bees and rivers.", out)
	})
}

func TestAssemble_NeverEmitsEmptySections(t *testing.T) {
	r, e := setup(t,
		describe("a", "Shared", 10, constant("   ")),
		describe("b", "Shared", 20, constant("\n")),
		describe("c", "Lonely", 5, constant("")),
		describe("d", "Kept", 1, constant("something")),
	)

	res := NewAssembler().AssembleReport(e, r)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, "Kept", res.Sections[0].Name)
	for _, s := range res.Sections {
		assert.NotEmpty(t, s.Entries)
		for _, en := range s.Entries {
			assert.NotEmpty(t, strings.TrimSpace(en.Text))
		}
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, res.Dropped)
}

func TestAssemble_Ordering(t *testing.T) {
	r, e := setup(t,
		describe("zeta", "Social", 50, constant("zeta")),
		describe("alpha", "Social", 50, constant("alpha")),
		describe("loud", "Social", 70, constant("loud")),
		describe("farm", "Farming", 60, constant("farm")),
		describe("bees", "Apiary", 60, constant("bees")),
		describe("quiet", "Background", 1, constant("quiet")),
	)

	res := NewAssembler().AssembleReport(e, r)

	var names []string
	for _, s := range res.Sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Social", "Apiary", "Farming", "Background"}, names,
		"sections by max entry priority, ties by name")

	social, ok := res.Section("Social")
	require.True(t, ok)
	assert.Equal(t, 70, social.Priority)
	var order []string
	for _, en := range social.Entries {
		order = append(order, en.Text)
	}
	assert.Equal(t, []string{"loud", "alpha", "zeta"}, order, "entries by priority, ties by component type")

	assert.Equal(t,
		"## Social\nloud\nalpha\nzeta\n\n## Apiary\nbees\n\n## Farming\nfarm\n\n## Background\nquiet",
		res.Text)
}

func TestAssemble_OrderIndependentOfRegistration(t *testing.T) {
	descs := []schema.Description{
		describe("b", "S", 10, constant("b")),
		describe("a", "S", 10, constant("a")),
		describe("c", "T", 10, constant("c")),
	}
	r1, e1 := setup(t, descs...)
	r2, e2 := setup(t, descs[2], descs[1], descs[0])

	a := NewAssembler()
	assert.Equal(t, a.Assemble(e1, r1), a.Assemble(e2, r2))
}

func TestAssemble_ProjectionFallback(t *testing.T) {
	r, e := setup(t,
		describe("weather_sense", "world_state", 20, nil,
			schema.FieldDescriptor{Name: "feels_like", Type: schema.TypeString, Required: true, Default: "cold", Visibility: schema.Everyone()},
			schema.FieldDescriptor{Name: "wind", Type: schema.TypeArray, Required: true, Default: []any{"north", "gusty"}, Visibility: schema.Everyone()},
			schema.FieldDescriptor{Name: "seed", Type: schema.TypeNumber, Required: true, Default: 42.0, Visibility: schema.DevOnly()},
		),
		describe("untagged", "", 0, nil),
	)

	a := NewAssembler()
	assert.Equal(t, "## World State\nfeels like: cold\nwind: north, gusty", a.Assemble(e, r))

	a.SetRenderProjections(false)
	assert.Empty(t, a.Assemble(e, r))
}

func TestAssemble_SkipsUnknownComponents(t *testing.T) {
	r, e := setup(t, describe("needs", "Needs", 1, constant("ok")))
	e.Attach(schema.NewInstance("retired_component", 3, schema.Data{}))

	res := NewAssembler().AssembleReport(e, r)
	assert.Equal(t, []string{"retired_component"}, res.Skipped)
	assert.Equal(t, "## Needs\nok", res.Text)
}

func TestAssemble_HeadersAndSeparators(t *testing.T) {
	r, e := setup(t,
		describe("a", "A", 2, constant("one")),
		describe("b", "B", 1, constant("two")),
	)

	a := NewAssembler()
	a.SetSectionHeaders(false)
	a.SetSeparators("\n---\n", " ")
	assert.Equal(t, "one\n---\ntwo", a.Assemble(e, r))
}

func TestAssemble_Truncation(t *testing.T) {
	long := strings.Repeat("word ", 40)
	r, e := setup(t,
		describe("a", "A", 3, constant(long)),
		describe("b", "B", 2, constant(long)),
		describe("c", "C", 1, constant(long)),
	)

	a := NewAssembler()
	a.SetMaxChars(450)
	res := a.AssembleReport(e, r)

	assert.True(t, res.Truncated)
	assert.True(t, strings.HasSuffix(res.Text, "\n\n"+truncationMarker))
	assert.Contains(t, res.Text, "## A")
	assert.NotContains(t, res.Text, "## B")
	assert.NotContains(t, res.Text, "## C")
	assert.LessOrEqual(t, res.Chars, 450)
	assert.Equal(t, utf8.RuneCountInString(res.Text), res.Chars)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, "A", res.Sections[0].Name)
}

func TestAssemble_TruncationNeverLeavesBareHeader(t *testing.T) {
	r, e := setup(t,
		describe("a", "A", 2, constant("x")),
		describe("b", "B", 1, constant(strings.Repeat("y", 200))),
	)

	a := NewAssembler()
	a.SetMaxChars(13)
	res := a.AssembleReport(e, r)

	// the marker does not fit in 13 characters, so only whole content remains
	assert.Equal(t, "## A\nx", res.Text)
	assert.True(t, res.Truncated)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, "A", res.Sections[0].Name)
	assert.LessOrEqual(t, res.Chars, 13)
}

func TestAssemble_TruncationDropsWholeEntries(t *testing.T) {
	r, e := setup(t,
		describe("a", "Shared", 2, constant("short")),
		describe("b", "Shared", 1, constant(strings.Repeat("y", 200))),
	)

	a := NewAssembler()
	a.SetMaxChars(60)
	res := a.AssembleReport(e, r)

	assert.Equal(t, "## Shared\nshort\n\n"+truncationMarker, res.Text)
	require.Len(t, res.Sections, 1)
	require.Len(t, res.Sections[0].Entries, 1)
	assert.Equal(t, "a", res.Sections[0].Entries[0].Component)
}

func TestAssemble_TruncationKeepsValidUTF8(t *testing.T) {
	r, e := setup(t,
		describe("a", "A", 2, constant(strings.Repeat("é", 10))),
		describe("b", "B", 1, constant(strings.Repeat("é", 100))),
	)

	for _, limit := range []int{50, 80} {
		a := NewAssembler()
		a.SetMaxChars(limit)
		res := a.AssembleReport(e, r)

		assert.True(t, utf8.ValidString(res.Text), "limit %d", limit)
		assert.LessOrEqual(t, res.Chars, limit)
		assert.True(t, res.Truncated)
		assert.NotContains(t, res.Text, "## B")
	}
}

func TestAssemble_NoTruncationWithinLimit(t *testing.T) {
	r, e := setup(t, describe("a", "A", 1, constant("fits")))

	a := NewAssembler()
	a.SetMaxChars(100)
	res := a.AssembleReport(e, r)

	assert.False(t, res.Truncated)
	assert.Equal(t, "## A\nfits", res.Text)
}

func TestAssemble_NilEntity(t *testing.T) {
	res := NewAssembler().AssembleReport(nil, registry.New())
	assert.Empty(t, res.Text)
	assert.Zero(t, res.Tokens)
}

func TestSectionHeader(t *testing.T) {
	tests := map[string]string{
		"Needs":       "## Needs",
		"social_ties": "## Social Ties",
		"world state": "## World State",
		"":            "## General",
	}
	for in, want := range tests {
		assert.Equal(t, want, sectionHeader(in), in)
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}
