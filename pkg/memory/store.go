// Package memory implements the persistent free-text memory artifact and the
// request/response augmentation built on top of it.
package memory

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store is an append-only sequence of fact strings persisted as lines in a
// text file. Reads are served from an in-process cache that is invalidated by
// filesystem events, so external edits to the artifact are picked up without
// re-reading the file on every request.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	facts  []string
	loaded bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore opens (or lazily creates) the memory artifact at path. If the
// filesystem watcher cannot be established, the store degrades to reloading
// the file on every read.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("memory store path is empty")
	}

	s := &Store{
		path:   path,
		logger: slog.Default().With("component", "memory"),
		done:   make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("filesystem watcher unavailable, memory reads will not be cached", "error", err)
		return s, nil
	}

	// Watch the parent directory so create/rename of the artifact itself
	// is observed even before the file exists.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		s.logger.Warn("cannot watch memory directory, memory reads will not be cached", "error", err)
		watcher.Close()
		return s, nil
	}

	s.watcher = watcher
	go s.watch()

	return s, nil
}

// watch invalidates the cache whenever the artifact changes on disk.
func (s *Store) watch() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) == filepath.Clean(s.path) {
				s.invalidate()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("memory watcher error", "error", err)
			s.invalidate()
		case <-s.done:
			return
		}
	}
}

func (s *Store) invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.facts = nil
	s.mu.Unlock()
}

// Facts returns all persisted facts in insertion order. A missing artifact
// is an empty memory, not an error.
func (s *Store) Facts() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Without a watcher there is no safe cache; reload every time.
	if s.loaded && s.watcher != nil {
		return append([]string(nil), s.facts...), nil
	}

	facts, err := s.readAll()
	if err != nil {
		return nil, err
	}

	s.facts = facts
	s.loaded = true
	return append([]string(nil), facts...), nil
}

// readAll reads the artifact line by line. Callers hold s.mu.
func (s *Store) readAll() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open memory artifact: %w", err)
	}
	defer f.Close()

	var facts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		facts = append(facts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read memory artifact: %w", err)
	}

	return facts, nil
}

// Append persists one fact as a new line, open-append-close. Embedded
// newlines are flattened so one fact stays one line.
func (s *Store) Append(fact string) error {
	fact = strings.TrimSpace(strings.ReplaceAll(fact, "\n", " "))
	if fact == "" {
		return fmt.Errorf("refusing to append empty fact")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open memory artifact for append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(fact + "\n"); err != nil {
		return fmt.Errorf("failed to append fact: %w", err)
	}

	if s.loaded {
		s.facts = append(s.facts, fact)
	}

	return nil
}

// Close stops the filesystem watcher.
func (s *Store) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
