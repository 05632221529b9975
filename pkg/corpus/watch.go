package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces bursts of file events into one re-ingestion.
const DefaultDebounce = 500 * time.Millisecond

// IsTextFile reports whether name has an extension Watch and LoadDir ingest.
func IsTextFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}

// LoadDir reads every text file directly inside dir, sorted by name.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && IsTextFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		docs = append(docs, NewDocument(name, string(data)))
	}
	return docs, nil
}

// Watch re-ingests dir whenever its text files change, until ctx is done.
// A debounce of zero uses DefaultDebounce. Ingestion failures are logged and
// leave the current corpus active.
func (m *Manager) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating corpus watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching corpus dir: %w", err)
	}

	m.logger.Info("watching corpus directory", zap.String("dir", dir))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsTextFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("corpus watcher error: %w", err)
		case <-timer.C:
			m.reingestDir(ctx, dir)
		}
	}
}

func (m *Manager) reingestDir(ctx context.Context, dir string) {
	docs, err := LoadDir(dir)
	if err != nil {
		m.logger.Warn("failed to read corpus directory", zap.String("dir", dir), zap.Error(err))
		return
	}

	if _, err := m.Ingest(ctx, docs); err != nil {
		if errors.Is(err, ErrIngestion) {
			m.logger.Warn("skipping re-ingestion", zap.String("dir", dir), zap.Error(err))
			return
		}
		m.logger.Error("re-ingestion failed", zap.String("dir", dir), zap.Error(err))
	}
}
