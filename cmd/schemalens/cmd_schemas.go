package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"schemalens/internal/registry"
	"schemalens/internal/schema"
)

var (
	listCategory string
	showVersion  int
)

// schemasCmd groups schema introspection commands
var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Inspect the registered component schemas",
}

var schemasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered schemas",
	Args:  cobra.NoArgs,
	RunE:  listSchemas,
}

var schemasShowCmd = &cobra.Command{
	Use:   "show [type]",
	Short: "Show the fields and per-audience visibility of a schema",
	Args:  cobra.ExactArgs(1),
	RunE:  showSchema,
}

var schemasCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify every registered schema (visibility, defaults)",
	Args:  cobra.NoArgs,
	RunE:  checkSchemas,
}

func init() {
	schemasListCmd.Flags().StringVar(&listCategory, "category", "", "Only list schemas in this category")
	schemasShowCmd.Flags().IntVar(&showVersion, "version", 0, "Schema version (default: latest)")
}

type schemaRow struct {
	Type     string `json:"type"`
	Version  int    `json:"version"`
	Category string `json:"category"`
	Section  string `json:"section,omitempty"`
	Priority int    `json:"priority"`
	Fields   int    `json:"fields"`
	Summary  bool   `json:"summary"`
}

func listSchemas(cmd *cobra.Command, args []string) error {
	r := registry.Default()
	all := r.All()
	if listCategory != "" {
		all = r.GetByCategory(listCategory)
	}

	rows := make([]schemaRow, len(all))
	for i, s := range all {
		rows[i] = schemaRow{
			Type:     s.Type(),
			Version:  s.Version(),
			Category: s.Category(),
			Section:  s.LLM().Section,
			Priority: s.LLM().Priority,
			Fields:   len(s.Fields()),
			Summary:  s.HasSummary(),
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, rows)
	}

	cells := make([][]string, len(rows))
	for i, row := range rows {
		section := row.Section
		if section == "" {
			section = "-"
		}
		cells[i] = []string{
			row.Type,
			strconv.Itoa(row.Version),
			row.Category,
			section,
			strconv.Itoa(row.Priority),
			strconv.Itoa(row.Fields),
			strconv.FormatBool(row.Summary),
		}
	}
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d schemas", len(rows))))
	fmt.Fprintln(out, renderTable([]string{"TYPE", "VERSION", "CATEGORY", "SECTION", "PRIORITY", "FIELDS", "SUMMARY"}, cells))
	return nil
}

func lookupSchema(typ string, version int) (*schema.ComponentSchema, error) {
	r := registry.Default()
	var (
		s  *schema.ComponentSchema
		ok bool
	)
	if version > 0 {
		s, ok = r.GetVersion(typ, version)
	} else {
		s, ok = r.Get(typ)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrUnknownType, typ)
	}
	return s, nil
}

func showSchema(cmd *cobra.Command, args []string) error {
	s, err := lookupSchema(args[0], showVersion)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		llm := map[string]any{"section": s.LLM().Section, "priority": s.LLM().Priority, "summary": s.HasSummary()}
		return writeJSON(out, map[string]any{
			"type":     s.Type(),
			"version":  s.Version(),
			"category": s.Category(),
			"ui":       s.UI(),
			"llm":      llm,
			"fields":   s.Fields(),
			"default":  s.CreateDefault(),
		})
	}

	fmt.Fprintln(out, titleStyle.Render(s.Key())+" "+subtitleStyle.Render(s.Category()))
	llm := s.LLM()
	if llm.Section != "" {
		how := "projection"
		if s.HasSummary() {
			how = "summary"
		}
		fmt.Fprintf(out, "%s %s (priority %d, %s)\n", labelStyle.Render("prompt section:"), llm.Section, llm.Priority, how)
	} else {
		fmt.Fprintln(out, mutedStyle.Render("not part of prompts"))
	}
	if versions := registry.Default().Versions(s.Type()); len(versions) > 1 {
		vs := make([]string, len(versions))
		for i, v := range versions {
			vs[i] = strconv.Itoa(v.Version())
		}
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("versions:"), strings.Join(vs, ", "))
	}
	fmt.Fprintln(out)

	def := s.CreateDefault()
	var rows [][]string
	for _, f := range s.Fields() {
		v := f.Visibility
		rows = append(rows, []string{
			f.Name,
			string(f.Type),
			strconv.FormatBool(f.Required),
			v.Player.String(),
			v.LLM.String(),
			v.Agent.String(),
			v.User.String(),
			v.Dev.String(),
			formatAny(def[f.Name]),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"FIELD", "TYPE", "REQUIRED", "PLAYER", "LLM", "AGENT", "USER", "DEV", "DEFAULT"}, rows))
	return nil
}

func checkSchemas(cmd *cobra.Command, args []string) error {
	r := registry.Default()
	out := cmd.OutOrStdout()

	err := r.Check()
	if err == nil {
		fmt.Fprintln(out, okStyle.Render("ok")+fmt.Sprintf(" %d schemas checked", r.Len()))
		return nil
	}

	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			fmt.Fprintln(out, errorStyle.Render("✗ ")+e.Error())
		}
	} else {
		fmt.Fprintln(out, errorStyle.Render("✗ ")+err.Error())
	}
	return fmt.Errorf("schema check failed")
}
