package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"schemalens/internal/ecs"
	"schemalens/internal/logging"
	"schemalens/internal/persist"
	"schemalens/internal/projection"
	"schemalens/internal/prompt"
	"schemalens/internal/registry"
	"schemalens/internal/schema"
)

var (
	// World source flags
	snapshotPath string
	dbPath       string

	projectAudience string
	panelAudience   string
	renderPrompt    bool
	maxChars        int
	saveLoaded      bool
	exportPath      string
)

// projectCmd prints what one audience sees of an entity
var projectCmd = &cobra.Command{
	Use:   "project [entity]",
	Short: "Project an entity's components for an audience",
	Long: `Prints the fields of every component of the entity that the given
audience may see. Summarized fields never appear raw, not even for the llm
audience.

Example:
  schemalens project Ilse --audience player --snapshot save.json`,
	Args: cobra.ExactArgs(1),
	RunE: projectEntity,
}

// panelCmd prints the UI panels of an entity
var panelCmd = &cobra.Command{
	Use:   "panel [entity]",
	Short: "Build the UI panels of an entity for the player or dev audience",
	Args:  cobra.ExactArgs(1),
	RunE:  showPanels,
}

// promptCmd assembles the LLM prompt of an entity
var promptCmd = &cobra.Command{
	Use:   "prompt [entity]",
	Short: "Assemble the LLM prompt for an entity",
	Long: `Collects every component's LLM contribution, groups them into sections
and prints the prompt. Components whose summarizer fails are left out and
reported.`,
	Args: cobra.ExactArgs(1),
	RunE: assemblePrompt,
}

// loadCmd validates a saved world
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a saved world and report substituted components",
	Long: `Validates every saved component against the registered schemas.
Components that fail validation are replaced by their schema default and
components of unknown types are discarded. Each case is reported.

Use --save to write the repaired world into the sqlite store and
--export to write it as a snapshot file.`,
	Args: cobra.NoArgs,
	RunE: loadWorldCmd,
}

func init() {
	for _, c := range []*cobra.Command{projectCmd, panelCmd, promptCmd, loadCmd} {
		c.Flags().StringVar(&snapshotPath, "snapshot", "", "Read the world from a JSON snapshot instead of the store")
		c.Flags().StringVar(&dbPath, "db", "", "Store database path (default: persist.database_path)")
	}
	projectCmd.Flags().StringVarP(&projectAudience, "audience", "a", "dev", "Audience: player, llm, agent, user, dev")
	panelCmd.Flags().StringVarP(&panelAudience, "audience", "a", "player", "Audience: player or dev")
	promptCmd.Flags().BoolVar(&renderPrompt, "render", false, "Render the prompt as terminal markdown")
	promptCmd.Flags().IntVar(&maxChars, "max-chars", -1, "Truncate the prompt (default: prompt.max_chars)")
	loadCmd.Flags().BoolVar(&saveLoaded, "save", false, "Write the repaired world and substitutions to the store")
	loadCmd.Flags().StringVar(&exportPath, "export", "", "Write the repaired world to a snapshot file (bare names go to persist.snapshot_dir)")
}

func storePath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.Persist.DatabasePath
}

// loadWorld reads the world from the snapshot flag or the store. Only the
// load command records substitutions; the read paths open an existing
// store and leave it untouched.
func loadWorld(ctx context.Context, record bool) (*ecs.World, []persist.Substitution, error) {
	timer := logging.StartTimer(logging.CategoryCLI, "loadWorld")
	defer timer.Stop()

	loader := persist.NewLoader(registry.Default())
	if snapshotPath != "" {
		snap, err := persist.LoadSnapshotFile(snapshotPath)
		if err != nil {
			return nil, nil, err
		}
		w, subs := loader.LoadWorld(snap)
		return w, subs, nil
	}

	path := storePath()
	if !record {
		if _, err := os.Stat(path); err != nil {
			return nil, nil, fmt.Errorf("no saved world at %s: %w", path, err)
		}
	}
	store, err := persist.OpenStore(path)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()
	if record {
		return store.Restore(ctx, loader)
	}

	snap, err := store.LoadSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	w, subs := loader.LoadWorld(snap)
	return w, subs, nil
}

func findEntity(w *ecs.World, ref string) (*ecs.Entity, error) {
	if e, ok := w.Entity(ref); ok {
		return e, nil
	}
	if e, ok := w.FindByName(ref); ok {
		return e, nil
	}
	return nil, fmt.Errorf("no entity with id or name %q", ref)
}

func loadEntity(cmd *cobra.Command, ref string) (*ecs.Entity, error) {
	w, subs, err := loadWorld(cmd.Context(), false)
	if err != nil {
		return nil, err
	}
	if len(subs) > 0 {
		logging.Get(logging.CategoryCLI).Warn("%d saved components were substituted; run 'schemalens load' for details", len(subs))
	}
	return findEntity(w, ref)
}

func projectEntity(cmd *cobra.Command, args []string) error {
	audience, err := schema.ParseAudience(projectAudience)
	if err != nil {
		return err
	}
	e, err := loadEntity(cmd, args[0])
	if err != nil {
		return err
	}

	projected := projection.ProjectEntity(e, registry.Default(), audience)
	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, projected)
	}

	fmt.Fprintln(out, titleStyle.Render(e.Name)+" "+subtitleStyle.Render("as seen by "+string(audience)))
	for _, typ := range e.Types() {
		data, ok := projected[typ]
		if !ok {
			continue
		}
		fmt.Fprintln(out, labelStyle.Render(typ))
		if len(data) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("  (nothing visible)"))
			continue
		}
		names := make([]string, 0, len(data))
		for name := range data {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %s: %s\n", name, formatAny(data[name]))
		}
	}
	return nil
}

func showPanels(cmd *cobra.Command, args []string) error {
	audience, err := schema.ParseAudience(panelAudience)
	if err != nil {
		return err
	}
	e, err := loadEntity(cmd, args[0])
	if err != nil {
		return err
	}
	panels, err := projection.BuildPanels(e, registry.Default(), audience)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, panels)
	}
	for _, p := range panels {
		fmt.Fprintln(out, renderPanel(p))
	}
	return nil
}

func renderPanel(p *projection.Panel) string {
	var b strings.Builder
	title := p.Title
	if p.Icon != "" {
		title = "[" + p.Icon + "] " + title
	}
	b.WriteString(titleStyle.Render(title))
	for _, g := range p.Groups {
		b.WriteString("\n" + subtitleStyle.Render(g.Name))
		for _, f := range g.Fields {
			line := fmt.Sprintf("\n  %s: %s", labelStyle.Render(f.Name), formatAny(f.Value))
			hint := string(f.Widget)
			if f.Mutable {
				hint += ", editable"
			}
			b.WriteString(line + " " + mutedStyle.Render("("+hint+")"))
		}
	}
	return panelStyle.Render(b.String())
}

func newAssembler() *prompt.Assembler {
	a := prompt.NewAssembler()
	a.SetSectionHeaders(cfg.Prompt.SectionHeaders)
	a.SetRenderProjections(cfg.Prompt.RenderProjections)
	limit := cfg.Prompt.MaxChars
	if maxChars >= 0 {
		limit = maxChars
	}
	a.SetMaxChars(limit)
	return a
}

func assemblePrompt(cmd *cobra.Command, args []string) error {
	e, err := loadEntity(cmd, args[0])
	if err != nil {
		return err
	}
	res := newAssembler().AssembleReport(e, registry.Default())

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, res)
	}

	text := res.Text
	if renderPrompt && text != "" {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			return fmt.Errorf("failed to create renderer: %w", err)
		}
		if text, err = renderer.Render(res.Text); err != nil {
			return fmt.Errorf("failed to render prompt: %w", err)
		}
	}
	fmt.Fprintln(out, text)

	for _, f := range res.Failures {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("left out: ")+f.Error())
	}
	fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render(fmt.Sprintf("%d sections, %d chars, ~%d tokens", len(res.Sections), res.Chars, res.Tokens)))
	return nil
}

func loadWorldCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w, subs, err := loadWorld(ctx, true)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := writeJSON(out, subs); err != nil {
			return err
		}
	} else {
		printSubstitutions(out, w, subs)
	}

	if exportPath != "" {
		path := exportPath
		if filepath.Dir(path) == "." {
			path = filepath.Join(cfg.Persist.SnapshotDir, path)
		}
		if err := persist.SaveSnapshotFile(path, persist.Capture(w)); err != nil {
			return err
		}
		logging.Get(logging.CategoryCLI).Info("exported world to %s", path)
	}
	if saveLoaded {
		store, err := persist.OpenStore(storePath())
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveWorld(ctx, w); err != nil {
			return err
		}
		// Restore already logged substitutions found in the store itself.
		if snapshotPath != "" {
			if err := store.RecordSubstitutions(ctx, subs); err != nil {
				return err
			}
		}
		logging.Get(logging.CategoryCLI).Info("saved world to %s", store.Path())
	}
	return nil
}

func printSubstitutions(out io.Writer, w *ecs.World, subs []persist.Substitution) {
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d entities at tick %d", w.Len(), w.Tick)))
	if len(subs) == 0 {
		fmt.Fprintln(out, okStyle.Render("ok")+" every component validated")
		return
	}
	rows := make([][]string, len(subs))
	for i, s := range subs {
		name := s.EntityID
		if e, ok := w.Entity(s.EntityID); ok && e.Name != "" {
			name = e.Name
		}
		rows[i] = []string{name, s.Component, strconv.Itoa(s.Version), string(s.Action), s.Reason, strings.Join(s.Issues, "; ")}
	}
	fmt.Fprintln(out, renderTable([]string{"ENTITY", "COMPONENT", "VERSION", "ACTION", "REASON", "ISSUES"}, rows))
}
