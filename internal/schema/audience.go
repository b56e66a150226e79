// Package schema implements the component schema layer: per-field metadata,
// the schema builder, runtime validation of untyped component data and
// default synthesis.
//
// Components are stored as erased records (Data) tagged with a type name and
// version. A ComponentSchema describes one such type once, and every other
// layer (registry, projection, prompt assembly, persistence) works from that
// description instead of per-component code.
package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Audience identifies a consumer of component data.
type Audience string

const (
	// AudiencePlayer is the in-game UI panel.
	AudiencePlayer Audience = "player"

	// AudienceLLM is the prompt compiler feeding the language model.
	AudienceLLM Audience = "llm"

	// AudienceAgent is the owning agent introspecting its own state.
	AudienceAgent Audience = "agent"

	// AudienceUser is end-user tooling (mods, save editors).
	AudienceUser Audience = "user"

	// AudienceDev is developer tooling.
	AudienceDev Audience = "dev"
)

// AllAudiences returns the five audiences in canonical order.
func AllAudiences() []Audience {
	return []Audience{AudiencePlayer, AudienceLLM, AudienceAgent, AudienceUser, AudienceDev}
}

// ParseAudience converts a name to an Audience.
func ParseAudience(s string) (Audience, error) {
	a := Audience(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllAudiences() {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown audience %q", s)
}

// Flag is the visibility of a field for a non-llm audience.
// The zero value means the author never declared it.
type Flag int8

const (
	FlagUnset Flag = iota
	Shown
	Hidden
)

func (f Flag) String() string {
	switch f {
	case Shown:
		return "true"
	case Hidden:
		return "false"
	default:
		return "unset"
	}
}

// UnmarshalYAML accepts true/false (or shown/hidden).
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(node.Value) {
	case "true", "shown", "visible", "yes":
		*f = Shown
	case "false", "hidden", "no":
		*f = Hidden
	default:
		return fmt.Errorf("line %d: invalid visibility %q (want true or false)", node.Line, node.Value)
	}
	return nil
}

// LLMVisibility is the tri-state visibility of a field for the llm audience.
// The zero value means the author never declared it.
type LLMVisibility int8

const (
	LLMUnset LLMVisibility = iota

	// LLMVisible includes the raw value in the llm projection.
	LLMVisible

	// LLMHidden omits the field from the llm projection.
	LLMHidden

	// LLMSummarized omits the raw value; the field reaches the prompt only
	// through the schema's summarize function.
	LLMSummarized
)

func (v LLMVisibility) String() string {
	switch v {
	case LLMVisible:
		return "true"
	case LLMHidden:
		return "false"
	case LLMSummarized:
		return "summarized"
	default:
		return "unset"
	}
}

// UnmarshalYAML accepts true, false or summarized.
func (v *LLMVisibility) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(node.Value) {
	case "true", "visible", "yes":
		*v = LLMVisible
	case "false", "hidden", "no":
		*v = LLMHidden
	case "summarized", "summary":
		*v = LLMSummarized
	default:
		return fmt.Errorf("line %d: invalid llm visibility %q (want true, false or summarized)", node.Line, node.Value)
	}
	return nil
}

// Visibility declares, for one field, what each audience may see.
type Visibility struct {
	Player Flag          `yaml:"player"`
	LLM    LLMVisibility `yaml:"llm"`
	Agent  Flag          `yaml:"agent"`
	User   Flag          `yaml:"user"`
	Dev    Flag          `yaml:"dev"`
}

// Missing returns the audiences with no declared entry.
func (v Visibility) Missing() []Audience {
	var missing []Audience
	if v.Player == FlagUnset {
		missing = append(missing, AudiencePlayer)
	}
	if v.LLM == LLMUnset {
		missing = append(missing, AudienceLLM)
	}
	if v.Agent == FlagUnset {
		missing = append(missing, AudienceAgent)
	}
	if v.User == FlagUnset {
		missing = append(missing, AudienceUser)
	}
	if v.Dev == FlagUnset {
		missing = append(missing, AudienceDev)
	}
	return missing
}

// Complete reports whether all five audiences are declared.
func (v Visibility) Complete() bool {
	return len(v.Missing()) == 0
}

// Includes reports whether the raw value is part of the audience's view.
// A summarized llm field is not included.
func (v Visibility) Includes(a Audience) bool {
	switch a {
	case AudiencePlayer:
		return v.Player == Shown
	case AudienceAgent:
		return v.Agent == Shown
	case AudienceUser:
		return v.User == Shown
	case AudienceDev:
		return v.Dev == Shown
	case AudienceLLM:
		switch v.LLM {
		case LLMVisible:
			return true
		case LLMHidden, LLMSummarized, LLMUnset:
			return false
		}
	}
	return false
}

// Everyone is a shorthand for a field visible to every audience.
func Everyone() Visibility {
	return Visibility{Player: Shown, LLM: LLMVisible, Agent: Shown, User: Shown, Dev: Shown}
}

// DevOnly is a shorthand for internal bookkeeping fields.
func DevOnly() Visibility {
	return Visibility{Player: Hidden, LLM: LLMHidden, Agent: Hidden, User: Hidden, Dev: Shown}
}

// Summarized is a shorthand for a field every UI audience sees raw but the
// llm only sees through the summary.
func Summarized() Visibility {
	return Visibility{Player: Shown, LLM: LLMSummarized, Agent: Shown, User: Shown, Dev: Shown}
}
