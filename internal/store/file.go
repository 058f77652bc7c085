package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileBackend stores each key as <dir>/<key>.json. Watch relies on fsnotify;
// a change is attributed to this backend's own writer when the file content
// matches what it last wrote, otherwise the origin is left empty (external).
type FileBackend struct {
	dir    string
	logger *slog.Logger

	mu        sync.Mutex
	lastWrite map[string]fileStamp
}

type fileStamp struct {
	origin string
	sum    [32]byte
}

func OpenFile(dir string, logger *slog.Logger) (*FileBackend, error) {
	dir = filepath.Clean(strings.TrimSpace(dir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileBackend{dir: dir, logger: loggerOr(logger), lastWrite: map[string]fileStamp{}}, nil
}

func (b *FileBackend) Area() Area   { return AreaLocal }
func (b *FileBackend) Dir() string  { return b.dir }
func (b *FileBackend) Close() error { return nil }

// path escapes key into a single file name. The escaping is reversible, so a
// watcher in another process recovers "work/list" from "work%2Flist.json".
func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, url.PathEscape(key)+".json")
}

func (b *FileBackend) keyForPath(p string) (string, bool) {
	base := filepath.Base(p)
	if !strings.HasSuffix(base, ".json") {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(base, ".json"))
	if err != nil {
		return "", false
	}
	return key, true
}

func (b *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *FileBackend) Set(_ context.Context, key string, value []byte, origin string) error {
	p := b.path(key)
	if cur, err := os.ReadFile(p); err == nil && bytes.Equal(cur, value) {
		return nil
	}
	b.mu.Lock()
	b.lastWrite[key] = fileStamp{origin: origin, sum: sha256.Sum256(value)}
	b.mu.Unlock()
	return writeFileAtomic(p, value)
}

func (b *FileBackend) originFor(key string, sum [32]byte) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.lastWrite[key]; ok && st.sum == sum {
		return st.origin
	}
	return ""
}

func (b *FileBackend) Watch(ctx context.Context, fn func(Change)) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(b.dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Editors and atomic renames produce several events per write; only
		// emit when the content actually differs from what we last reported.
		seen := map[string][32]byte{}
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				b.logger.Warn("file watch error", "dir", b.dir, "error", err)
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				key, ok := b.keyForPath(evt.Name)
				if !ok {
					continue
				}
				v, err := os.ReadFile(evt.Name)
				if err != nil {
					continue
				}
				sum := sha256.Sum256(v)
				if prev, ok := seen[key]; ok && prev == sum {
					continue
				}
				seen[key] = sum
				fn(Change{Key: key, Area: AreaLocal, Origin: b.originFor(key, sum), Value: v})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = w.Close()
			wg.Wait()
		})
	}, nil
}
