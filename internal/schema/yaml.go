package schema

import (
	"bytes"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// yamlFile is the on-disk layout of a schema file:
//
//	schemas:
//	  - type: inventory
//	    version: 1
//	    category: economy
//	    llm:
//	      section: Possessions
//	      priority: 40
//	      summary_template: "Carries {{join .items \", \"}}."
//	    fields: [...]
type yamlFile struct {
	Schemas []yamlSchema `yaml:"schemas"`
}

type yamlSchema struct {
	Description `yaml:",inline"`
	LLM         yamlLLM `yaml:"llm"`
}

type yamlLLM struct {
	Section         string `yaml:"section"`
	Priority        int    `yaml:"priority"`
	SummaryTemplate string `yaml:"summary_template"`
}

// ParseDescriptions decodes schema descriptions from YAML. Summary templates
// are compiled here so a broken template fails at load time.
func ParseDescriptions(data []byte) ([]Description, error) {
	var file yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	out := make([]Description, 0, len(file.Schemas))
	for _, ys := range file.Schemas {
		desc := ys.Description
		desc.LLM = LLMMeta{Section: ys.LLM.Section, Priority: ys.LLM.Priority}
		if strings.TrimSpace(ys.LLM.SummaryTemplate) != "" {
			fn, err := TemplateSummary(desc.Type, ys.LLM.SummaryTemplate)
			if err != nil {
				return nil, err
			}
			desc.LLM.Summarize = fn
		}
		out = append(out, desc)
	}
	return out, nil
}

// LoadDescriptions reads and parses one YAML schema file from fsys.
func LoadDescriptions(fsys fs.FS, path string) ([]Description, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	descs, err := ParseDescriptions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return descs, nil
}

var summaryFuncs = template.FuncMap{
	"join": func(v any, sep string) string {
		list, ok := normalize(v).([]any)
		if !ok {
			return ""
		}
		parts := make([]string, len(list))
		for i, e := range list {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, sep)
	},
	"count": func(v any) int {
		if list, ok := normalize(v).([]any); ok {
			return len(list)
		}
		return 0
	},
	"pos": func(v any) bool {
		n, ok := toFloat(v)
		return ok && n > 0
	},
	"lower": strings.ToLower,
}

// TemplateSummary compiles a text/template into a SummarizeFunc. The
// template executes against the component data; surrounding whitespace is
// trimmed so a template that renders nothing contributes nothing.
func TemplateSummary(name, text string) (SummarizeFunc, error) {
	tmpl, err := template.New(name).Funcs(summaryFuncs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("summary template for %s: %w", name, err)
	}
	return func(d Data) (string, error) {
		var b strings.Builder
		if err := tmpl.Execute(&b, d); err != nil {
			return "", fmt.Errorf("summary template for %s: %w", name, err)
		}
		return strings.TrimSpace(b.String()), nil
	}, nil
}
