package prompts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/ampdesign/llm"
)

// OverridePattern matches override files below the prompt directory.
const OverridePattern = "**/*.md"

// Library serves the built-in prompts with any file overrides from a
// directory laid over them. An override file is named <stage>.md and may
// start with a YAML front matter block setting role, goal and backstory;
// the body, when not empty, replaces the task template.
type Library struct {
	dir      string
	logger   *slog.Logger
	debounce time.Duration

	mu        sync.RWMutex
	builtin   map[string]Prompt
	overrides map[string]Prompt
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// WithDebounce sets how long Watch waits for more changes before reloading.
func WithDebounce(d time.Duration) Option {
	return func(l *Library) {
		l.debounce = d
	}
}

// NewLibrary creates a library and loads the overrides in dir. An empty dir
// serves the built-ins only.
func NewLibrary(dir string, opts ...Option) (*Library, error) {
	l := &Library{
		dir:       dir,
		logger:    slog.Default(),
		debounce:  200 * time.Millisecond,
		builtin:   Builtin(),
		overrides: make(map[string]Prompt),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns the effective prompt for a stage.
func (l *Library) Get(stage string) (Prompt, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if p, ok := l.overrides[stage]; ok {
		return p, true
	}
	p, ok := l.builtin[stage]
	return p, ok
}

// Messages renders the chat messages for a stage.
func (l *Library) Messages(stage string, data Data) ([]llm.Message, error) {
	p, ok := l.Get(stage)
	if !ok {
		return nil, fmt.Errorf("no prompt for stage %s", stage)
	}
	return p.Messages(stage, data)
}

// Overridden lists the stages whose prompt comes from a file.
func (l *Library) Overridden() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stages := make([]string, 0, len(l.overrides))
	for s := range l.overrides {
		stages = append(stages, s)
	}
	sort.Strings(stages)
	return stages
}

// Reload rereads every override file. Files that fail to load are logged
// and skipped; the previous override for that stage is dropped.
func (l *Library) Reload() error {
	overrides := make(map[string]Prompt)
	if l.dir == "" {
		l.swap(overrides)
		return nil
	}

	matches, err := doublestar.Glob(os.DirFS(l.dir), OverridePattern)
	if err != nil {
		return fmt.Errorf("glob prompt overrides: %w", err)
	}
	sort.Strings(matches)

	for _, match := range matches {
		stage := strings.TrimSuffix(path.Base(match), ".md")
		base, ok := l.builtin[stage]
		if !ok {
			l.logger.Warn("Ignoring prompt override for unknown stage", "path", match, "stage", stage)
			continue
		}
		if _, dup := overrides[stage]; dup {
			l.logger.Warn("Duplicate prompt override ignored", "path", match, "stage", stage)
			continue
		}

		p, err := loadOverride(filepath.Join(l.dir, filepath.FromSlash(match)), base)
		if err != nil {
			l.logger.Warn("Failed to load prompt override", "path", match, "error", err)
			continue
		}
		overrides[stage] = p
		l.logger.Debug("Loaded prompt override", "path", match, "stage", stage)
	}

	l.swap(overrides)
	return nil
}

func (l *Library) swap(overrides map[string]Prompt) {
	l.mu.Lock()
	l.overrides = overrides
	l.mu.Unlock()
}

var frontMatterDelim = []byte("---")

// loadOverride reads one override file on top of base.
func loadOverride(file string, base Prompt) (Prompt, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Prompt{}, err
	}

	p := base
	body := data
	trimmed := bytes.TrimLeft(data, "\ufeff \t\r\n")
	if bytes.HasPrefix(trimmed, frontMatterDelim) {
		rest := bytes.TrimPrefix(trimmed, frontMatterDelim)
		end := bytes.Index(rest, append([]byte("\n"), frontMatterDelim...))
		if end < 0 {
			return Prompt{}, fmt.Errorf("front matter is not closed")
		}
		if err := yaml.Unmarshal(rest[:end], &p); err != nil {
			return Prompt{}, fmt.Errorf("parse front matter: %w", err)
		}
		body = rest[end+1+len(frontMatterDelim):]
	}

	if task := strings.TrimSpace(string(body)); task != "" {
		if _, err := template.New(file).Parse(task); err != nil {
			return Prompt{}, fmt.Errorf("parse task template: %w", err)
		}
		p.Task = task
	}
	return p, nil
}

// Watch reloads the overrides whenever a file below the directory changes,
// until ctx is cancelled. It returns once the watches are in place.
func (l *Library) Watch(ctx context.Context) error {
	if l.dir == "" {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := l.addWatches(fsw); err != nil {
		fsw.Close()
		return err
	}

	go l.processEvents(ctx, fsw)

	l.logger.Info("Watching prompt overrides", "dir", l.dir, "debounce", l.debounce)
	return nil
}

func (l *Library) addWatches(fsw *fsnotify.Watcher) error {
	return filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != l.dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// processEvents collects changes and reloads once they settle.
func (l *Library) processEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()

	ticker := time.NewTicker(l.debounce)
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fsw.Add(event.Name); err != nil {
						l.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
					pending = true
					continue
				}
			}
			if strings.HasSuffix(event.Name, ".md") {
				pending = true
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			l.logger.Error("Prompt watcher error", "error", err)

		case <-ticker.C:
			if !pending {
				continue
			}
			pending = false
			if err := l.Reload(); err != nil {
				l.logger.Error("Failed to reload prompt overrides", "error", err)
				continue
			}
			l.logger.Info("Reloaded prompt overrides", "overridden", l.Overridden())
		}
	}
}
