package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const maxDefinitionSize = 256 * 1024 // 256KB per workflow file

// Catalog holds the set of known workflow definitions, keyed by type.
// It is safe for concurrent use; Reload swaps the whole set atomically.
type Catalog struct {
	dir    string
	logger *zap.Logger

	mu        sync.RWMutex
	workflows map[string]*Workflow
}

// NewCatalog creates a catalog backed by the YAML files in dir.
// The built-in defaults are always present; files in dir override them
// by type. Malformed files are logged and skipped, never fatal.
func NewCatalog(dir string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{
		dir:       dir,
		logger:    logger,
		workflows: make(map[string]*Workflow),
	}
	c.Reload()
	return c
}

// Reload re-reads all definitions from disk over the built-in defaults.
func (c *Catalog) Reload() {
	next := make(map[string]*Workflow)
	for _, w := range Defaults() {
		next[w.Type] = w
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to read workflow directory",
				zap.String("dir", c.dir), zap.Error(err))
		}
		c.swap(next)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isYAML(name) {
			continue
		}
		path := filepath.Join(c.dir, name)
		w, err := parseDefinition(path)
		if err != nil {
			c.logger.Warn("skipping invalid workflow definition",
				zap.String("file", name), zap.Error(err))
			continue
		}
		next[w.Type] = w
	}

	c.swap(next)
	c.logger.Debug("workflow catalog loaded", zap.Int("count", len(next)))
}

func (c *Catalog) swap(next map[string]*Workflow) {
	c.mu.Lock()
	c.workflows = next
	c.mu.Unlock()
}

// Get returns the workflow for the given type.
func (c *Catalog) Get(workflowType string) (*Workflow, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.workflows[workflowType]
	return w, ok
}

// List returns all workflows sorted by type.
func (c *Catalog) List() []*Workflow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Workflow, 0, len(c.workflows))
	for _, w := range c.workflows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Types returns the sorted set of known workflow types.
func (c *Catalog) Types() []string {
	list := c.List()
	types := make([]string, len(list))
	for i, w := range list {
		types[i] = w.Type
	}
	return types
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// parseDefinition loads and validates a single workflow YAML file.
func parseDefinition(path string) (*Workflow, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat definition: %w", err)
	}
	if info.Size() > maxDefinitionSize {
		return nil, fmt.Errorf("definition too large: %d bytes", info.Size())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}

	var w Workflow
	if err := k.Unmarshal("", &w); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}

	if err := validate(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

// validate checks the structural invariants of a definition.
func validate(w *Workflow) error {
	if w.Type == "" {
		return errors.New("workflow type is required")
	}
	if len(w.Phases) == 0 {
		return fmt.Errorf("workflow %q has no phases", w.Type)
	}
	seen := make(map[string]struct{}, len(w.Phases))
	for i, p := range w.Phases {
		if p.Name == "" {
			return fmt.Errorf("workflow %q: phase %d has no name", w.Type, i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("workflow %q: duplicate phase %q", w.Type, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
