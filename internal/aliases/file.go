package aliases

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/pkg/lifecycle"
)

// fileFormat is the YAML alias file layout. Both sections may be used at
// once:
//
//	aliases:
//	  HEMOGRAMA COMPLETO: HEMOGRAMA
//	procedures:
//	  GLICOSE: [GLICEMIA, GLUCOSE]
type fileFormat struct {
	Aliases    map[string]string   `yaml:"aliases"`
	Procedures map[string][]string `yaml:"procedures"`
}

// ParseFile decodes alias YAML into alias -> canonical pairs. Unknown keys
// are rejected so typos do not silently drop aliases.
func ParseFile(data []byte) (map[string]string, error) {
	var f fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode alias file: %w", err)
	}

	pairs := make(map[string]string, len(f.Aliases))
	for alias, canonical := range f.Aliases {
		pairs[alias] = canonical
	}
	for canonical, spellings := range f.Procedures {
		for _, alias := range spellings {
			if prev, ok := pairs[alias]; ok && engine.Fold(prev) != engine.Fold(canonical) {
				return nil, fmt.Errorf("alias %q maps to both %q and %q", alias, prev, canonical)
			}
			pairs[alias] = canonical
		}
	}
	return pairs, nil
}

// LoadFile reads and parses an alias file into a snapshot.
func LoadFile(path string) (*engine.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	pairs, err := ParseFile(data)
	if err != nil {
		return nil, err
	}
	return engine.NewSnapshot(pairs), nil
}

// FileSource serves the snapshot of a YAML alias file. When watched, it
// reloads on change and keeps serving the last good snapshot if the file
// becomes invalid or disappears.
type FileSource struct {
	path     string
	logger   *slog.Logger
	current  atomic.Pointer[engine.Snapshot]
	watching atomic.Bool
	done     chan struct{}
}

// NewFileSource loads path. The initial load must succeed.
func NewFileSource(path string, logger *slog.Logger) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve alias file path: %w", err)
	}

	f := &FileSource{
		path:   abs,
		logger: logger.With("source", "aliases-file"),
		done:   make(chan struct{}),
	}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Snapshot returns the current snapshot.
func (f *FileSource) Snapshot(ctx context.Context) (*engine.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.current.Load(), nil
}

// Reload re-reads the file. On failure the previous snapshot is kept.
func (f *FileSource) Reload() error {
	s, err := LoadFile(f.path)
	if err != nil {
		if f.current.Load() != nil {
			f.logger.Warn("alias file reload failed, keeping previous snapshot", "path", f.path, "error", err)
		}
		return err
	}

	prev := f.current.Swap(s)
	if prev == nil || prev.Digest() != s.Digest() {
		f.logger.Info("alias file loaded", "path", f.path, "aliases", s.Len(), "digest", s.Digest())
	}
	return nil
}

// Watch reloads the file on change until ctx ends. The parent directory is
// watched so editors that replace the file by rename are followed. A source
// is watched at most once.
func (f *FileSource) Watch(ctx context.Context) error {
	if !f.watching.CompareAndSwap(false, true) {
		return errors.New("alias file already watched")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.watching.Store(false)
		return fmt.Errorf("create alias file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		f.watching.Store(false)
		return fmt.Errorf("watch alias file directory: %w", err)
	}

	go func() {
		defer close(f.done)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != f.path {
					continue
				}
				switch {
				case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
					f.Reload()
				case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
					f.logger.Warn("alias file removed, keeping previous snapshot", "path", f.path)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.logger.Error("alias file watcher error", "error", err)
			}
		}
	}()

	return nil
}

// Start watches the file for the lifetime of lc.
func (f *FileSource) Start(lc *lifecycle.Coordinator) {
	lc.OnStartup("aliases-file", f.Watch)
	lc.OnShutdown("aliases-file", func(ctx context.Context) error {
		if !f.watching.Load() {
			return nil
		}
		select {
		case <-f.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
