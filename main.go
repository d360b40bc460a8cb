// lokey: localization key manager for game projects.
//
// Extracts translatable text from Unity scenes, prefabs, data assets,
// Go scripts and text files into a key registry, flags near-duplicate
// keys and round-trips translations through CSV and PO files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/minios-linux/lokey/i18n"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors, cleared by setupColors when stderr is not a terminal.
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func setupColors() {
	fd := os.Stderr.Fd()
	if os.Getenv("NO_COLOR") != "" || (!isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)) {
		colorReset, colorRed, colorGreen, colorYellow, colorBlue = "", "", "", "", ""
	}
}

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var rootDir string

const (
	formatText = "text"
	formatJSON = "json"
)

func checkFormat(format string) error {
	if format != formatText && format != formatJSON {
		return fmt.Errorf(i18n.T("unknown output format %q (valid: text, json)"), format)
	}
	return nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lokey",
		Short: i18n.T("Localization key manager for game projects"),
		Long: `lokey: localization key manager for game projects.

Walks scenes, prefabs, ScriptableObject assets, JSON data, Go scripts and
text files for translatable strings, keeps them in a key registry next to
the project, detects near-duplicate keys and exchanges translations with
translators through CSV or PO files.

Commands:
  init        Write a .lokey.yaml with detected defaults
  status      Show keys, languages and translation progress
  extract     Walk the project and reconcile the key registry
  similar     Detect near-duplicate keys
  export      Write the translation table (CSV or PO)
  import      Read translations from CSV or PO
  prune       Remove keys no longer found in the project
  category    Manage translator context categories
  context     Show a key's context, sources and translations
  changelog   Read and update the project changelog`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))

	root.AddCommand(
		newInitCmd(),
		newStatusCmd(),
		newExtractCmd(),
		newSimilarCmd(),
		newExportCmd(),
		newImportCmd(),
		newPruneCmd(),
		newCategoryCmd(),
		newContextCmd(),
		newChangelogCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	setupColors()
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		stop()
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lokey version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// Output helpers
// ---------------------------------------------------------------------------

// progressBar renders a colored bar of width cells followed by the percent.
func progressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset +
		fmt.Sprintf(" %3d%%", percent)
}

// percentOf returns part as an integer percentage of total.
func percentOf(part, total int) int {
	if total == 0 {
		return 0
	}
	return part * 100 / total
}

// truncate shortens s to n runes for table cells, keeping it on one line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
