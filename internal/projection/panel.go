package projection

import (
	"errors"
	"fmt"
	"sort"

	"schemalens/internal/ecs"
	"schemalens/internal/schema"
)

// ErrNotUIAudience is returned when a panel is requested for an audience
// without a panel surface.
var ErrNotUIAudience = errors.New("audience has no UI panel")

// DefaultGroup holds fields that declare no UI group.
const DefaultGroup = "general"

// PanelField is one rendered field.
type PanelField struct {
	Name        string            `json:"name"`
	Type        schema.FieldType  `json:"type"`
	Widget      schema.WidgetKind `json:"widget"`
	Value       any               `json:"value"`
	Enum        []string          `json:"enum,omitempty"`
	Range       *schema.Range     `json:"range,omitempty"`
	Icon        string            `json:"icon,omitempty"`
	Mutable     bool              `json:"mutable"`
	Description string            `json:"description,omitempty"`
}

// PanelGroup is a titled run of fields.
type PanelGroup struct {
	Name   string       `json:"name"`
	Fields []PanelField `json:"fields"`
}

// Panel is the UI description of one component for one audience.
type Panel struct {
	Type     string       `json:"type"`
	Version  int          `json:"version"`
	Category string       `json:"category"`
	Title    string       `json:"title"`
	Icon     string       `json:"icon,omitempty"`
	Color    string       `json:"color,omitempty"`
	Priority int          `json:"priority"`
	Groups   []PanelGroup `json:"groups"`
}

// Len returns the number of fields across all groups.
func (p *Panel) Len() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Fields)
	}
	return n
}

func isUIAudience(a schema.Audience) bool {
	return a == schema.AudiencePlayer || a == schema.AudienceDev
}

// BuildPanel shapes the projection of inst into grouped, ordered panel
// fields. Only the player and dev audiences have panels.
func BuildPanel(inst *schema.Instance, s *schema.ComponentSchema, audience schema.Audience) (*Panel, error) {
	if !isUIAudience(audience) {
		return nil, fmt.Errorf("panel for %q: %w", audience, ErrNotUIAudience)
	}
	if inst == nil || s == nil {
		return nil, errors.New("panel: nil instance or schema")
	}

	visible := Project(inst, s, audience)
	ui := s.UI()
	p := &Panel{
		Type:     s.Type(),
		Version:  s.Version(),
		Category: s.Category(),
		Title:    ui.Title,
		Icon:     ui.Icon,
		Color:    ui.Color,
		Priority: ui.PanelPriority,
	}
	if p.Title == "" {
		p.Title = s.Type()
	}

	type placed struct {
		field PanelField
		order int
		pos   int
	}
	groups := make(map[string][]placed)
	for pos, f := range s.Fields() {
		v, ok := visible[f.Name]
		if !ok {
			continue
		}
		widget := f.UI.Widget
		if widget == "" {
			widget = schema.DefaultWidget(f.Type)
		}
		group := f.UI.Group
		if group == "" {
			group = DefaultGroup
		}
		groups[group] = append(groups[group], placed{
			field: PanelField{
				Name:        f.Name,
				Type:        f.Type,
				Widget:      widget,
				Value:       v,
				Enum:        f.Enum,
				Range:       f.UI.Range,
				Icon:        f.UI.Icon,
				Mutable:     f.Mutable,
				Description: f.Description,
			},
			order: f.UI.Order,
			pos:   pos,
		})
	}

	names := make([]string, 0, len(groups))
	lowest := make(map[string]int, len(groups))
	for name, fs := range groups {
		sort.SliceStable(fs, func(i, j int) bool {
			if fs[i].order != fs[j].order {
				return fs[i].order < fs[j].order
			}
			return fs[i].pos < fs[j].pos
		})
		names = append(names, name)
		lowest[name] = fs[0].order
	}
	sort.Slice(names, func(i, j int) bool {
		if lowest[names[i]] != lowest[names[j]] {
			return lowest[names[i]] < lowest[names[j]]
		}
		return names[i] < names[j]
	})

	p.Groups = make([]PanelGroup, 0, len(names))
	for _, name := range names {
		g := PanelGroup{Name: name}
		for _, pl := range groups[name] {
			g.Fields = append(g.Fields, pl.field)
		}
		p.Groups = append(p.Groups, g)
	}
	return p, nil
}

// BuildPanels builds a panel for every resolvable component of e, ordered
// by descending panel priority then type. Components with no visible
// fields produce no panel.
func BuildPanels(e *ecs.Entity, r Resolver, audience schema.Audience) ([]*Panel, error) {
	if !isUIAudience(audience) {
		return nil, fmt.Errorf("panels for %q: %w", audience, ErrNotUIAudience)
	}
	var out []*Panel
	for _, typ := range e.Types() {
		inst := e.Components[typ]
		s, ok := r.Resolve(inst)
		if !ok {
			continue
		}
		p, err := BuildPanel(inst, s, audience)
		if err != nil {
			return nil, err
		}
		if p.Len() == 0 {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}
