// Package extract walks a game project and collects translatable strings
// together with the source that produced them.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/lokey/source"
)

// ErrBusy is returned when Run is called while a pass is in progress.
var ErrBusy = errors.New("extraction already running")

// DefaultExtensions maps file extensions to source types.
var DefaultExtensions = map[string]source.Type{
	".unity":  source.Scene,
	".prefab": source.Prefab,
	".asset":  source.ScriptableObject,
	".yaml":   source.ScriptableObject,
	".yml":    source.ScriptableObject,
	".json":   source.ScriptableObject,
	".go":     source.Script,
	".txt":    source.ExternalFile,
}

// skipDirs contains directory names to skip during project scanning.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"Library":      true,
	"Temp":         true,
	"Logs":         true,
	"obj":          true,
}

// Options configures a Runner.
type Options struct {
	// Root is the project directory. Reference paths are relative to it.
	Root string
	// Sources lists folders or single files relative to Root. Empty means
	// the whole project.
	Sources []string
	// Include and Exclude are glob patterns matched against slash-separated
	// paths relative to Root. "**" crosses directories.
	Include []string
	Exclude []string
	// Extensions overrides DefaultExtensions when non-empty.
	Extensions map[string]source.Type
	// Keywords are xgettext-style call specs for Go scripts.
	Keywords []string
	// Schemas declares the translatable fields of data kinds.
	Schemas *Schemas
	// Workers bounds concurrent file parsing (default: GOMAXPROCS).
	Workers int
	// SkipPaths are directories relative to Root never entered
	// (e.g. the store directory).
	SkipPaths []string
}

// FileError records a file that could not be read or parsed. The pass
// continues without it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }

// Result is the outcome of one extraction pass.
type Result struct {
	// Occurrences holds one entry per distinct text in first-seen order.
	Occurrences []source.Occurrence
	// Files is the sorted list of scanned files relative to Root.
	Files []string
	// Errors lists per-file failures.
	Errors []*FileError
}

// Runner performs extraction passes. A Runner may be reused but runs at
// most one pass at a time.
type Runner struct {
	opts    Options
	exts    map[string]source.Type
	include []glob.Glob
	exclude []glob.Glob
	skip    map[string]bool
	scripts *goScanner
	running atomic.Bool
}

// NewRunner validates opts and compiles its filters.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Schemas == nil {
		s, err := NewSchemas(UnitySchemas()...)
		if err != nil {
			return nil, err
		}
		opts.Schemas = s
	}
	if len(opts.Keywords) == 0 {
		opts.Keywords = DefaultKeywords
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	r := &Runner{
		opts:    opts,
		exts:    opts.Extensions,
		skip:    make(map[string]bool),
		scripts: newGoScanner(opts.Keywords, opts.Schemas),
	}
	if len(r.exts) == 0 {
		r.exts = DefaultExtensions
	}
	var err error
	if r.include, err = compileGlobs(opts.Include); err != nil {
		return nil, err
	}
	if r.exclude, err = compileGlobs(opts.Exclude); err != nil {
		return nil, err
	}
	for _, p := range opts.SkipPaths {
		if p = cleanRel(p); p != "" && p != "." {
			r.skip[p] = true
		}
	}
	return r, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	var out []glob.Glob
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func cleanRel(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "./")
}

// SourceType returns the source type of a file by extension.
func (r *Runner) SourceType(path string) (source.Type, bool) {
	t, ok := r.exts[strings.ToLower(filepath.Ext(path))]
	return t, ok
}

func (r *Runner) accept(rel string) bool {
	if _, ok := r.SourceType(rel); !ok {
		return false
	}
	if strings.HasSuffix(rel, "_test.go") {
		return false
	}
	for _, g := range r.exclude {
		if g.Match(rel) {
			return false
		}
	}
	if len(r.include) == 0 {
		return true
	}
	for _, g := range r.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// FindSources lists the files of the configured sources, relative to Root,
// sorted and deduplicated. Missing sources are skipped.
func (r *Runner) FindSources() ([]string, error) {
	roots := r.opts.Sources
	if len(roots) == 0 {
		roots = []string{"."}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(rel string) {
		if !seen[rel] && r.accept(rel) {
			seen[rel] = true
			files = append(files, rel)
		}
	}

	for _, src := range roots {
		start := filepath.Join(r.opts.Root, src)
		info, err := os.Stat(start)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("scanning %s: %w", src, err)
		}
		if !info.IsDir() {
			add(cleanRel(src))
			continue
		}
		err = filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries
			}
			rel, relErr := filepath.Rel(r.opts.Root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				name := d.Name()
				if path != start && (skipDirs[name] || strings.HasPrefix(name, ".")) {
					return filepath.SkipDir
				}
				if r.skip[rel] {
					return filepath.SkipDir
				}
				return nil
			}
			add(rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", src, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Run performs one extraction pass. A second call while a pass is in
// progress returns ErrBusy. Cancelling ctx stops the pass with ctx.Err().
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer r.running.Store(false)

	files, err := r.FindSources()
	if err != nil {
		return nil, err
	}

	texts := make([][]string, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, rel := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts[i], errs[i] = r.parseFile(rel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Files: files}
	index := make(map[string]int)
	for i, rel := range files {
		if errs[i] != nil {
			res.Errors = append(res.Errors, &FileError{Path: rel, Err: errs[i]})
		}
		t, _ := r.SourceType(rel)
		ref := source.NewRef(t, rel)
		for _, text := range texts[i] {
			j, ok := index[text]
			if !ok {
				j = len(res.Occurrences)
				index[text] = j
				res.Occurrences = append(res.Occurrences, source.Occurrence{Text: text})
			}
			res.Occurrences[j].Refs, _ = source.Append(res.Occurrences[j].Refs, ref)
		}
	}
	return res, nil
}

// parseFile extracts the texts of one file. A parse error may come with
// partial results.
func (r *Runner) parseFile(rel string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(r.opts.Root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	t, _ := r.SourceType(rel)
	switch t {
	case source.Script:
		return r.scripts.ParseGoSource(rel, data)
	case source.ExternalFile:
		return ParseTextFile(data), nil
	default:
		if strings.EqualFold(filepath.Ext(rel), ".json") {
			return r.opts.Schemas.ParseJSONAsset(data)
		}
		return r.opts.Schemas.ParseYAMLAsset(data)
	}
}
