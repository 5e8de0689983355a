package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

var (
	// ErrNotFound reports a note path with no file behind it.
	ErrNotFound = errors.New("note not found")

	// ErrVault wraps every other storage failure. Wrapped messages name
	// the failed operation so user notices can repeat it.
	ErrVault = errors.New("vault error")
)

// debounceWindow batches rapid file events into one notification.
const debounceWindow = 200 * time.Millisecond

// Event is one change notification. Path is vault-relative, slash-separated.
type Event struct {
	Path string
}

// Vault is a filesystem note collection rooted at a single directory. All
// paths crossing its API are vault-relative; anything escaping the root is
// rejected.
type Vault struct {
	root   string
	logger *slog.Logger
}

// Open returns a Vault rooted at dir, creating the directory if needed.
func Open(dir string, logger *slog.Logger) (*Vault, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	root := filepath.Clean(dir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating vault root: %v", ErrVault, err)
	}
	return &Vault{root: root, logger: logger}, nil
}

// Root returns the vault's root directory.
func (v *Vault) Root() string {
	return v.root
}

// AbsPath resolves a vault-relative path for handing to external programs.
func (v *Vault) AbsPath(rel string) (string, error) {
	return v.abs(rel)
}

func (v *Vault) abs(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: invalid note path %q", ErrVault, rel)
	}
	p := filepath.Join(v.root, filepath.FromSlash(rel))
	if p != v.root && !strings.HasPrefix(p, v.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes vault: %s", ErrVault, rel)
	}
	return p, nil
}

// Read returns a note's full content.
func (v *Vault) Read(rel string) (string, error) {
	p, err := v.abs(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return "", fmt.Errorf("%w: reading %s: %v", ErrVault, rel, err)
	}
	return string(data), nil
}

// Write replaces a note's content atomically: temp file in the same
// directory, exclusive lock, fsync, rename.
func (v *Vault) Write(rel, content string) error {
	p, err := v.abs(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("%w: creating folder for %s: %v", ErrVault, rel, err)
	}
	if err := atomicWrite(p, []byte(content)); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrVault, rel, err)
	}
	return nil
}

// Create writes a new note, refusing to clobber an existing one.
func (v *Vault) Create(rel, content string) error {
	if v.Exists(rel) {
		return fmt.Errorf("%w: creating %s: already exists", ErrVault, rel)
	}
	return v.Write(rel, content)
}

// Exists reports whether a note is present.
func (v *Vault) Exists(rel string) bool {
	p, err := v.abs(rel)
	if err != nil {
		return false
	}
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

// MkdirAll creates a folder inside the vault.
func (v *Vault) MkdirAll(rel string) error {
	p, err := v.abs(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		return fmt.Errorf("%w: creating folder %s: %v", ErrVault, rel, err)
	}
	return nil
}

// List returns every markdown note in the vault, vault-relative and sorted.
// Hidden directories (.calctl, .obsidian, .git) are skipped.
func (v *Vault) List() ([]string, error) {
	var notes []string
	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return err
		}
		notes = append(notes, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing notes: %v", ErrVault, err)
	}
	sort.Strings(notes)
	return notes, nil
}

// Watch emits a debounced Event whenever a markdown note changes anywhere
// under the root. Directories created later are picked up. The channel
// closes when ctx is cancelled; sends never block, a pending event is
// dropped if the receiver lags.
func (v *Vault) Watch(ctx context.Context) (<-chan Event, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: starting watcher: %v", ErrVault, err)
	}

	addErr := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != v.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
	if addErr != nil {
		w.Close()
		return nil, fmt.Errorf("%w: watching vault: %v", ErrVault, addErr)
	}

	ch := make(chan Event, 1)
	go func() {
		defer close(ch)
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		var pending string

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create != 0 {
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
						if !strings.HasPrefix(filepath.Base(ev.Name), ".") {
							_ = w.Add(ev.Name)
						}
						continue
					}
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				base := filepath.Base(ev.Name)
				if !strings.HasSuffix(base, ".md") || strings.HasPrefix(base, ".") {
					continue
				}
				rel, err := filepath.Rel(v.root, ev.Name)
				if err != nil {
					continue
				}
				pending = filepath.ToSlash(rel)
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(debounceWindow)
				fire = timer.C
			case <-fire:
				select {
				case ch <- Event{Path: pending}:
				default:
					v.logger.Debug("vault: watch event dropped", slog.String("path", pending))
				}
				timer = nil
				fire = nil
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				v.logger.Warn("vault: watcher error", slog.String("error", err.Error()))
			}
		}
	}()
	return ch, nil
}

// atomicWrite is modeled on the usual temp-lock-sync-rename dance so a
// crashed write never leaves a half-written note behind.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".calctl-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := syscall.Flock(int(tmp.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	success = true
	return nil
}
