package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/minios-linux/lokey/changelog"
	"github.com/minios-linux/lokey/config"
	"github.com/minios-linux/lokey/csvfile"
	"github.com/minios-linux/lokey/fsutil"
	"github.com/minios-linux/lokey/i18n"
	"github.com/minios-linux/lokey/langmeta"
	"github.com/minios-linux/lokey/merge"
	"github.com/minios-linux/lokey/pofile"
	"github.com/minios-linux/lokey/registry"
	"github.com/minios-linux/lokey/similarity"
	"github.com/minios-linux/lokey/source"
)

// ---------------------------------------------------------------------------
// init (write .lokey.yaml)
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var (
		langs string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("Write a .lokey.yaml with detected defaults"),
		Long: `Create .lokey.yaml in the project root.

Languages default to those already present in the store. Sources default
to Assets/ for Unity projects. An existing file is left alone unless
--force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(rootDir)
			if err != nil {
				return err
			}
			path := filepath.Join(root, config.LokeyFileName)
			if fsutil.FileExists(path) && !force {
				logWarning(i18n.T("%s already exists (use --force to overwrite)"), config.LokeyFileName)
				return nil
			}

			proj := config.Detect(root)
			cfg := config.Default()
			cfg.Sources = proj.SourceDirs
			cfg.Languages = config.StoreLanguages(filepath.Join(cfg.StorePath(root), registry.LanguagesDir))
			if langs != "" {
				cfg.Languages = nil
				for _, l := range splitList(langs) {
					canon, err := langmeta.Canonical(l)
					if err != nil {
						return fmt.Errorf(i18n.T("invalid language %q: %w"), l, err)
					}
					cfg.Languages = append(cfg.Languages, canon)
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(root); err != nil {
				return err
			}
			logSuccess(i18n.T("Wrote %s for %s"), config.LokeyFileName, proj.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&langs, "lang", "", i18n.T("Translation languages (comma-separated)"))
	cmd.Flags().BoolVar(&force, "force", false, i18n.T("Overwrite an existing config"))

	return cmd
}

// ---------------------------------------------------------------------------
// status (read-only: keys, languages, groups)
// ---------------------------------------------------------------------------

type statusReport struct {
	Project   string                   `json:"project"`
	Version   string                   `json:"version"`
	Root      string                   `json:"root"`
	Store     string                   `json:"store"`
	Default   string                   `json:"default_language"`
	Keys      int                      `json:"keys"`
	States    map[string]int           `json:"states"`
	Languages []registry.LanguageStats `json:"languages"`
	Groups    int                      `json:"groups"`
	LastPass  *registry.Pass           `json:"last_pass,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show keys, languages and translation progress"),
		Long: `Show project info, key states, per-language translation progress
and the number of open similarity groups. Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			p, err := openProject()
			if err != nil {
				return err
			}
			return runStatus(p, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatText, i18n.T("Output format: text or json"))

	return cmd
}

func buildStatus(p *project) statusReport {
	states := make(map[string]int)
	for st, n := range p.reg.CountStates() {
		states[st.String()] = n
	}
	return statusReport{
		Project:   p.info.Name,
		Version:   p.info.Version,
		Root:      p.root,
		Store:     p.reg.Dir(),
		Default:   p.reg.DefaultLanguage,
		Keys:      p.reg.Len(),
		States:    states,
		Languages: p.reg.Stats(p.lock),
		Groups:    len(p.reg.GroupKeys()),
		LastPass:  p.reg.LastPass,
	}
}

func runStatus(p *project, format string) error {
	rep := buildStatus(p)
	if format == formatJSON {
		return printJSON(rep)
	}

	fmt.Printf("\n%s%s%s\n", colorBlue, i18n.T("Project"), colorReset)
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("  %-12s %s\n", i18n.T("Name:"), rep.Project)
	fmt.Printf("  %-12s %s\n", i18n.T("Version:"), rep.Version)
	fmt.Printf("  %-12s %s\n", i18n.T("Root:"), rep.Root)
	fmt.Printf("  %-12s %s\n", i18n.T("Store:"), p.rel(rep.Store))
	fmt.Printf("  %-12s %s\n", i18n.T("Default:"), langmeta.Label(rep.Default))
	fmt.Printf("  %-12s %s\n", i18n.T("Lock:"), p.lock.Summary())
	if rep.LastPass != nil {
		fmt.Printf("  %-12s %s (%d files)\n", i18n.T("Last pass:"),
			rep.LastPass.Time.Local().Format("2006-01-02 15:04"), rep.LastPass.Files)
	}
	fmt.Println()

	if rep.Keys == 0 {
		logInfo("%s", i18n.T("No keys registered. Run 'lokey extract' to scan the project."))
		return nil
	}

	fmt.Printf("%s%s%s\n", colorBlue, i18n.T("Keys"), colorReset)
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("  %-12s %d\n", i18n.T("Total:"), rep.Keys)
	for _, st := range []registry.TextState{registry.StateNew, registry.StateRecent, registry.StateMissing} {
		if n := rep.States[st.String()]; n > 0 {
			fmt.Printf("  %-12s %d\n", st.String()+":", n)
		}
	}
	if rep.Groups > 0 {
		fmt.Printf("  %-12s %d\n", i18n.T("Similar:"), rep.Groups)
	}
	fmt.Println()

	if len(rep.Languages) == 0 {
		logInfo("%s", i18n.T("No translation languages. Add some to .lokey.yaml or import a CSV."))
		return nil
	}

	fmt.Printf("%s%s%s\n", colorBlue, i18n.T("Translation Statistics"), colorReset)
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("%-10s %-22s %-8s %-8s\n", "Lang", "Progress", "Stale", "Untrans.")
	for _, s := range rep.Languages {
		fmt.Printf("%-10s %s %-8d %-8d  %s\n", s.Language, progressBar(percentOf(s.Translated, rep.Keys), 15), s.Stale, s.Untranslated, langmeta.Label(s.Language))
	}
	fmt.Println()
	return nil
}

// ---------------------------------------------------------------------------
// extract (walk sources, reconcile registry)
// ---------------------------------------------------------------------------

type extractReport struct {
	Pass   registry.Pass  `json:"pass"`
	Diff   registry.Diff  `json:"diff"`
	Errors []extractError `json:"errors,omitempty"`
	DryRun bool           `json:"dry_run"`
}

type extractError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func newExtractCmd() *cobra.Command {
	var (
		dryRun bool
		policy string
		format string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: i18n.T("Walk the project and reconcile the key registry"),
		Long: `Scan configured sources (or the whole project) for translatable text.

New texts become keys marked "new"; keys not found anymore are marked
"missing" (remove them with 'lokey prune'). Keys found again follow the
reconcile policy: keep (default), recent or clear.

Files that fail to parse are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			p, err := openProject()
			if err != nil {
				return err
			}
			if policy == "" {
				policy = p.cfg.Reconcile
			}
			pol, err := registry.ParsePolicy(policy)
			if err != nil {
				return err
			}

			r, err := p.runner()
			if err != nil {
				return err
			}
			if format == formatText {
				logInfo(i18n.T("Scanning %s..."), p.root)
			}
			res, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}

			rep := extractReport{DryRun: dryRun}
			for _, fe := range res.Errors {
				rep.Errors = append(rep.Errors, extractError{Path: fe.Path, Error: fe.Err.Error()})
				if format == formatText {
					logWarning("%s", fe.Error())
				}
			}

			rep.Diff = p.reg.Reconcile(res.Occurrences, pol)
			rep.Pass = p.reg.RecordPass(len(res.Files), time.Now())

			if !dryRun {
				if err := p.save(); err != nil {
					return err
				}
			}

			if format == formatJSON {
				return printJSON(rep)
			}
			printDiff(rep.Diff)
			msg := i18n.N("Scanned %d file: %d new, %d missing, %d kept", "Scanned %d files: %d new, %d missing, %d kept", len(res.Files))
			if dryRun {
				logInfo(msg+" "+i18n.T("(dry run, nothing saved)"), len(res.Files), len(rep.Diff.New), len(rep.Diff.Missing), len(rep.Diff.Kept))
			} else {
				logSuccess(msg, len(res.Files), len(rep.Diff.New), len(rep.Diff.Missing), len(rep.Diff.Kept))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, i18n.T("Show changes without saving"))
	cmd.Flags().StringVar(&policy, "policy", "", i18n.T("Reconcile policy for keys found again: keep, recent, clear"))
	cmd.Flags().StringVar(&format, "format", formatText, i18n.T("Output format: text or json"))

	return cmd
}

const maxListed = 20

func printDiff(d registry.Diff) {
	printKeys := func(label, color string, keys []string) {
		if len(keys) == 0 {
			return
		}
		fmt.Printf("%s%s (%d)%s\n", color, label, len(keys), colorReset)
		for i, k := range keys {
			if i == maxListed {
				fmt.Printf("  ... %d more\n", len(keys)-maxListed)
				break
			}
			fmt.Printf("  %s\n", truncate(k, 70))
		}
	}
	printKeys(i18n.T("New"), colorGreen, d.New)
	printKeys(i18n.T("Missing"), colorYellow, d.Missing)
}

// ---------------------------------------------------------------------------
// similar (near-duplicate detection)
// ---------------------------------------------------------------------------

type similarGroup struct {
	Key     string   `json:"key"`
	Members []string `json:"members"`
	Score   float64  `json:"score"`
	New     bool     `json:"new"`
}

func newSimilarCmd() *cobra.Command {
	var (
		threshold float64
		metric    string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "similar",
		Short: i18n.T("Detect near-duplicate keys"),
		Long: `Group keys whose pairwise similarity reaches the threshold and record
each group for review. Groups are advisory: keys are never merged.

Metrics: levenshtein (normalized edit distance), tokens (word overlap),
japanese (morphological token overlap). Dismissed groups are not reported
again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			p, err := openProject()
			if err != nil {
				return err
			}
			if metric == "" {
				metric = p.cfg.Similarity.Metric
			}
			if threshold == 0 {
				threshold = p.cfg.Similarity.Threshold
			}
			if threshold <= 0 || threshold > 1 {
				return fmt.Errorf(i18n.T("threshold %v out of range (0,1]"), threshold)
			}
			m, err := similarity.MetricByName(metric)
			if err != nil {
				return err
			}

			groups := runSimilar(p, similarity.NewEngine(m, threshold), metric, time.Now())
			if err := p.save(); err != nil {
				return err
			}

			if format == formatJSON {
				return printJSON(groups)
			}
			if len(groups) == 0 {
				logSuccess("%s", i18n.T("No similar keys found"))
				return nil
			}
			for _, g := range groups {
				mark := " "
				if g.New {
					mark = colorGreen + "*" + colorReset
				}
				fmt.Printf("%s %.2f  %s\n", mark, g.Score, colorBlue+g.Key+colorReset)
				for _, k := range g.Members {
					fmt.Printf("        %s\n", truncate(k, 70))
				}
			}
			logInfo(i18n.N("%d group of similar keys (dismiss with 'lokey similar dismiss KEY')",
				"%d groups of similar keys (dismiss with 'lokey similar dismiss KEY')", len(groups)), len(groups))
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, i18n.T("Minimum similarity in (0,1] (default from config)"))
	cmd.Flags().StringVar(&metric, "metric", "", i18n.T("Metric: levenshtein, tokens, japanese"))
	cmd.Flags().StringVar(&format, "format", formatText, i18n.T("Output format: text or json"))

	cmd.AddCommand(newSimilarDismissCmd())

	return cmd
}

// runSimilar detects groups among the live keys and upserts their
// metadata. Dismissed groups are skipped.
func runSimilar(p *project, e *similarity.Engine, metric string, now time.Time) []similarGroup {
	var keys []string
	for _, k := range p.reg.Keys() {
		if p.reg.TextState(k) != registry.StateMissing {
			keys = append(keys, k)
		}
	}

	var out []similarGroup
	for _, g := range e.Groups(keys) {
		if p.reg.Dismissed(g.Key) {
			continue
		}
		reason := fmt.Sprintf("%s >= %.2f", metric, e.Threshold)
		_, created := p.reg.UpsertGroup(g.Members, reason, g.Score, sourceInfo(p.reg, g.Members), now)
		out = append(out, similarGroup{Key: g.Key, Members: g.Members, Score: g.Score, New: created})
	}
	return out
}

// sourceInfo lists the distinct first sources of group members.
func sourceInfo(reg *registry.Registry, members []string) string {
	var refs []source.Ref
	for _, m := range members {
		if src := reg.Sources(m); len(src) > 0 {
			refs, _ = source.Append(refs, src[0])
		}
	}
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

func newSimilarDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss KEY",
		Short: i18n.T("Dismiss a similarity group"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			if !p.reg.DismissGroup(args[0]) {
				return fmt.Errorf(i18n.T("no similarity group %q"), args[0])
			}
			if err := p.save(); err != nil {
				return err
			}
			logSuccess(i18n.T("Dismissed %s"), args[0])
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// export (CSV / PO)
// ---------------------------------------------------------------------------

func newExportCmd() *cobra.Command {
	var (
		current bool
		out     string
		format  string
		lang    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: i18n.T("Write the translation table (CSV or PO)"),
		Long: `Write the translation table.

CSV: the header row lists the default language then every translation
language; each following row is one key. When the CSV already exists its
translations take precedence for keys it contains, and keys it lacks get
blank translations. --current ignores the existing file and writes only
the registry's keys and translations.

PO: one language (--lang) as a gettext catalog. Sources become references,
the translator context an extracted comment, stale translations fuzzy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			switch format {
			case "csv":
				if out == "" {
					out = p.cfg.CSVPath(p.root)
				}
				return exportCSV(p, out, current)
			case "po":
				if lang == "" {
					return errors.New(i18n.T("--lang is required for PO export"))
				}
				if out == "" {
					out = filepath.Join(filepath.Dir(p.cfg.CSVPath(p.root)), lang+".po")
				}
				return exportPO(p, out, lang)
			}
			return fmt.Errorf(i18n.T("unknown export format %q (valid: csv, po)"), format)
		},
	}

	cmd.Flags().BoolVar(&current, "current", false, i18n.T("Export current keys only, ignoring an existing CSV"))
	cmd.Flags().StringVarP(&out, "out", "o", "", i18n.T("Output file (default from config)"))
	cmd.Flags().StringVar(&format, "format", "csv", i18n.T("Output format: csv or po"))
	cmd.Flags().StringVar(&lang, "lang", "", i18n.T("Language for PO export"))

	return cmd
}

func exportCSV(p *project, out string, current bool) error {
	tbl := csvfile.FromStore(p.reg.DefaultLanguage, p.reg)

	if !current {
		prior, err := csvfile.ParseFile(out)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logInfo(i18n.T("No existing %s, exporting current keys"), p.rel(out))
		case err != nil:
			return err
		default:
			merged, stats := merge.Merge(tbl, prior)
			logInfo(i18n.T("Merged with existing CSV: %d kept, %d blank, %d dropped"),
				stats.Kept, stats.Blank, len(stats.Dropped))
			tbl = merged
		}
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	if err := tbl.WriteFile(out); err != nil {
		return err
	}
	logSuccess(i18n.N("Exported %d key to %s", "Exported %d keys to %s", tbl.Len()), tbl.Len(), p.rel(out))
	return nil
}

func exportPO(p *project, out, lang string) error {
	if !containsString(p.reg.Languages(), lang) {
		return fmt.Errorf("%w: %q", registry.ErrUnknownLanguage, lang)
	}
	f := pofile.Export(p.reg, lang, pofile.ExportOptions{
		Project: strings.TrimSpace(p.info.Name + " " + p.info.Version),
		Fuzzy: func(key string) bool {
			return p.reg.TranslationStatus(lang, key, p.lock) == registry.Stale
		},
	})
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	if err := f.WriteFile(out); err != nil {
		return err
	}
	logSuccess(i18n.N("Exported %d key to %s", "Exported %d keys to %s", len(f.Entries)), len(f.Entries), p.rel(out))
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// import (CSV / PO)
// ---------------------------------------------------------------------------

func newImportCmd() *cobra.Command {
	var (
		in      string
		addKeys bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: i18n.T("Read translations from CSV or PO"),
		Long: `Read translations into the store. Files ending in .po are read as
gettext catalogs of their Language header; anything else as CSV.

Languages in the file that the store lacks are added. Rows for unknown keys
are skipped unless --add-keys registers them as external-file keys.
Imported translations are recorded in the lock file so later context edits
mark them stale.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			if in == "" {
				in = p.cfg.CSVPath(p.root)
			}

			tbl, err := readTable(p, in)
			if errors.Is(err, fs.ErrNotExist) {
				logWarning(i18n.T("%s not found, nothing to import"), p.rel(in))
				return nil
			}
			if err != nil {
				return err
			}

			res, err := merge.Import(tbl, p.reg, merge.ImportOptions{
				DefaultLanguage: p.reg.DefaultLanguage,
				AddKeys:         addKeys,
				SourcePath:      p.rel(in),
			})
			if err != nil {
				return err
			}
			for _, c := range res.Changes {
				p.recordTranslation(c.Lang, c.Key, c.Text)
			}
			if err := p.save(); err != nil {
				return err
			}

			for _, l := range res.Languages {
				logInfo(i18n.T("Added language %s"), langmeta.Label(l))
			}
			if len(res.Skipped) > 0 {
				logWarning(i18n.N("Skipped %d unknown key (use --add-keys to register)",
					"Skipped %d unknown keys (use --add-keys to register)", len(res.Skipped)), len(res.Skipped))
			}
			logSuccess(i18n.T("Imported %d translations, added %d keys"), len(res.Changes), len(res.Added))
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", i18n.T("Input file (default from config)"))
	cmd.Flags().BoolVar(&addKeys, "add-keys", false, i18n.T("Register unknown keys instead of skipping them"))

	return cmd
}

func readTable(p *project, path string) (*csvfile.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".po") {
		f, err := pofile.ParseFile(path)
		if err != nil {
			return nil, err
		}
		return f.Table(p.reg.DefaultLanguage)
	}
	return csvfile.ParseFile(path)
}

// ---------------------------------------------------------------------------
// prune (drop missing keys)
// ---------------------------------------------------------------------------

func newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: i18n.T("Remove keys no longer found in the project"),
		Long: `Remove every key marked "missing" by the last extraction, together with
its translations, lock file checksums and similarity groups.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			removed := p.reg.Prune()
			if len(removed) == 0 {
				logInfo("%s", i18n.T("Nothing to prune"))
				return nil
			}
			p.lock.Clean(p.reg.Keys())
			if err := p.save(); err != nil {
				return err
			}
			logSuccess(i18n.N("Removed %d key", "Removed %d keys", len(removed)), len(removed))
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// category (translator context)
// ---------------------------------------------------------------------------

func newCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: i18n.T("Manage translator context categories"),
		Long: `Categories describe where a key is used. Each category has a template
containing {value}; a key's context is its non-empty category values
rendered through their templates.

  lokey category add speaker "Spoken by {value}."
  lokey category set "Hello" speaker Guard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			for _, c := range p.reg.Categories() {
				fmt.Printf("%-16s %s\n", c.Name, c.Template)
			}
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add NAME [TEMPLATE]",
			Short: i18n.T("Add a category"),
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var template string
				if len(args) == 2 {
					template = args[1]
				}
				return withProject(func(p *project) error {
					if template == "" && !hasCategory(p.reg, args[0]) {
						template = registry.ValuePlaceholder
					}
					if !p.reg.AddCategory(args[0], template) {
						logInfo(i18n.T("Category %s updated"), args[0])
						return nil
					}
					logSuccess(i18n.T("Category %s added"), args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rename OLD NEW",
			Short: i18n.T("Rename a category for every key"),
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withProject(func(p *project) error {
					if err := p.reg.RenameCategory(args[0], args[1]); err != nil {
						return err
					}
					logSuccess(i18n.T("Category %s renamed to %s"), args[0], args[1])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set KEY CATEGORY VALUE",
			Short: i18n.T("Set a key's value for a category"),
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withProject(func(p *project) error {
					if err := p.reg.SetContext(args[0], args[1], args[2]); err != nil {
						return err
					}
					logSuccess(i18n.T("Context: %s"), p.reg.Context(args[0]))
					return nil
				})
			},
		},
	)

	return cmd
}

func hasCategory(reg *registry.Registry, name string) bool {
	for _, c := range reg.Categories() {
		if c.Name == name {
			return true
		}
	}
	return false
}

// withProject opens the project, runs fn and saves on success.
func withProject(fn func(p *project) error) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	return p.save()
}

// ---------------------------------------------------------------------------
// context (inspect one key)
// ---------------------------------------------------------------------------

func newContextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context KEY",
		Short: i18n.T("Show a key's context, sources and translations"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			key := args[0]
			e, ok := p.reg.Lookup(key)
			if !ok {
				return fmt.Errorf("%w: %q", registry.ErrUnknownKey, key)
			}

			fmt.Printf("%s%s%s\n", colorBlue, key, colorReset)
			fmt.Printf("  %-10s %s\n", i18n.T("State:"), e.State)
			if ctx := p.reg.Context(key); ctx != "" {
				fmt.Printf("  %-10s %s\n", i18n.T("Context:"), ctx)
			}
			for _, ref := range e.Sources {
				fmt.Printf("  %-10s %s\n", i18n.T("Source:"), ref)
			}
			for _, lang := range p.reg.Languages() {
				text, _ := p.reg.Translation(lang, key)
				st := p.reg.TranslationStatus(lang, key, p.lock)
				fmt.Printf("  %-10s %-13s %s\n", lang, "["+st.String()+"]", text)
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// changelog
// ---------------------------------------------------------------------------

func newChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: i18n.T("Read and update the project changelog"),
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: i18n.T("Show unreleased changes and the latest release"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			c, _, err := openChangelog()
			if err != nil {
				return err
			}
			var releases []*changelog.Release
			if u := c.Unreleased(); u != nil {
				releases = append(releases, u)
			}
			if l := c.Latest(); l != nil {
				releases = append(releases, l)
			}
			if format == formatJSON {
				return printJSON(releases)
			}
			view := &changelog.Changelog{Releases: releases}
			return view.Write(os.Stdout)
		},
	}
	show.Flags().StringVar(&format, "format", formatText, i18n.T("Output format: text or json"))

	add := &cobra.Command{
		Use:   "add CATEGORY CHANGE",
		Short: i18n.T("Add a change to the Unreleased section"),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, path, err := openChangelog()
			if err != nil {
				return err
			}
			if err := c.Add(args[0], args[1]); err != nil {
				return err
			}
			return c.WriteFile(path)
		},
	}

	var when string
	release := &cobra.Command{
		Use:   "release VERSION",
		Short: i18n.T("Tag the Unreleased section as VERSION"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if when != "" {
				d, err := dateparse.ParseAny(when)
				if err != nil {
					return fmt.Errorf(i18n.T("invalid date %q: %w"), when, err)
				}
				day = d
			}
			c, path, err := openChangelog()
			if err != nil {
				return err
			}
			r, err := c.Release(args[0], day)
			if err != nil {
				return err
			}
			if err := c.WriteFile(path); err != nil {
				return err
			}
			logSuccess(i18n.T("Released %s (%s)"), r.Version, r.Date.Format(changelog.DateLayout))
			return nil
		},
	}
	release.Flags().StringVar(&when, "date", "", i18n.T("Release date (default today)"))

	cmd.AddCommand(show, add, release)
	return cmd
}

// openChangelog reads the configured changelog. A missing file is logged
// and treated as empty.
func openChangelog() (*changelog.Changelog, string, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadLokeyFile(root)
	if err != nil {
		return nil, "", err
	}
	path := cfg.ChangelogPath(root)
	c, err := changelog.ParseFile(path)
	if errors.Is(err, changelog.ErrNotFound) {
		logInfo("%v", err)
		return c, path, nil
	}
	return c, path, err
}
