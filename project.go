package main

import (
	"fmt"
	"path/filepath"

	"github.com/minios-linux/lokey/config"
	"github.com/minios-linux/lokey/extract"
	"github.com/minios-linux/lokey/lockfile"
	"github.com/minios-linux/lokey/registry"
)

// project bundles everything a command needs: configuration, detected
// project info, the key registry and the lock file.
type project struct {
	root string
	cfg  *config.LokeyFile
	info *config.Project
	reg  *registry.Registry
	lock *lockfile.LockFile
}

// openProject loads the project at rootDir. Languages and categories
// declared in the config are created in the registry when missing.
func openProject() (*project, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadLokeyFile(root)
	if err != nil {
		return nil, err
	}

	store := cfg.StorePath(root)
	reg, err := registry.Load(store, cfg.DefaultLanguage)
	if err != nil {
		return nil, err
	}
	lock, err := lockfile.Load(store)
	if err != nil {
		return nil, err
	}

	for _, lang := range cfg.Languages {
		reg.AddLanguage(lang)
	}
	for _, c := range cfg.Categories {
		reg.AddCategory(c.Name, c.Template)
	}

	return &project{
		root: root,
		cfg:  cfg,
		info: config.Detect(root),
		reg:  reg,
		lock: lock,
	}, nil
}

// save writes the registry and the lock file.
func (p *project) save() error {
	if err := p.reg.Save(); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}
	if err := p.lock.Save(); err != nil {
		return fmt.Errorf("saving lock file: %w", err)
	}
	return nil
}

// rel returns path relative to the project root for display.
func (p *project) rel(path string) string {
	if r, err := filepath.Rel(p.root, path); err == nil {
		return r
	}
	return path
}

// runner builds the source walker from the configuration. Without
// configured sources a Unity project scans Assets/ and anything else the
// whole tree.
func (p *project) runner() (*extract.Runner, error) {
	schemas, err := p.cfg.SchemaTable()
	if err != nil {
		return nil, err
	}
	exts, err := p.cfg.ExtensionMap()
	if err != nil {
		return nil, err
	}

	sources := p.cfg.Sources
	if len(sources) == 0 {
		sources = p.info.SourceDirs
	}

	return extract.NewRunner(extract.Options{
		Root:       p.root,
		Sources:    sources,
		Include:    p.cfg.Include,
		Exclude:    p.cfg.Exclude,
		Extensions: exts,
		Keywords:   p.cfg.Keywords,
		Schemas:    schemas,
		Workers:    p.cfg.Workers,
		SkipPaths:  []string{p.rel(p.cfg.StorePath(p.root))},
	})
}

// recordTranslation updates the lock file after a translation changed.
func (p *project) recordTranslation(lang, key, text string) {
	if text == "" {
		p.lock.Forget(lang, key)
		return
	}
	p.lock.Record(lang, key, p.reg.LockContent(key))
}
