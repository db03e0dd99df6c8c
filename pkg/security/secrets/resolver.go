package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Credential is a resolved secret. Value is safe to call from any
// goroutine; file-backed credentials may change between calls.
type Credential interface {
	// Value returns the current secret value.
	Value() string

	// Close releases any watcher resources.
	Close() error
}

// Resolve interprets a credential reference. The supported forms are a
// literal value, "env:NAME", and "file:/path". Empty references resolve to
// an empty credential.
func Resolve(ref string) (Credential, error) {
	switch {
	case ref == "":
		return staticCredential(""), nil

	case strings.HasPrefix(ref, "env:"):
		name := strings.TrimPrefix(ref, "env:")
		value, ok := os.LookupEnv(name)
		if !ok {
			return nil, fmt.Errorf("credential environment variable %q is not set", name)
		}
		return staticCredential(value), nil

	case strings.HasPrefix(ref, "file:"):
		return newFileCredential(strings.TrimPrefix(ref, "file:"))

	default:
		return staticCredential(ref), nil
	}
}

// staticCredential is a fixed value.
type staticCredential string

func (c staticCredential) Value() string { return string(c) }
func (c staticCredential) Close() error  { return nil }

// fileCredential reads its value from a file and reloads when the file
// changes, so rotated secrets take effect without a restart.
type fileCredential struct {
	path    string
	mu      sync.RWMutex
	value   string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func newFileCredential(path string) (*fileCredential, error) {
	value, err := readSecretFile(path)
	if err != nil {
		return nil, err
	}

	c := &fileCredential{path: path, value: value, done: make(chan struct{})}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Watching is best-effort; the initial value still works.
		slog.Warn("credential file watch unavailable", "path", path, "error", err)
		return c, nil
	}
	// Watch the directory: editors and secret managers typically replace
	// the file rather than writing it in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		slog.Warn("credential file watch unavailable", "path", path, "error", err)
		return c, nil
	}

	c.watcher = watcher
	go c.watch()
	return c, nil
}

// Value implements Credential.
func (c *fileCredential) Value() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Close implements Credential.
func (c *fileCredential) Close() error {
	close(c.done)
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// watch reloads the credential when its file is rewritten or replaced.
func (c *fileCredential) watch() {
	for {
		select {
		case <-c.done:
			return

		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Name != c.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			value, err := readSecretFile(c.path)
			if err != nil {
				slog.Warn("credential file reload failed", "path", c.path, "error", err)
				continue
			}
			c.mu.Lock()
			changed := c.value != value
			c.value = value
			c.mu.Unlock()
			if changed {
				slog.Info("credential reloaded", "path", c.path)
			}

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("credential file watch error", "path", c.path, "error", err)
		}
	}
}

// readSecretFile reads and trims a secret file.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read credential file %q: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
