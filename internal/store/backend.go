package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// Area says which storage slot a backend represents. Only changes in the
// shared local area are treated as cross-context signals.
type Area string

const (
	AreaLocal   Area = "local"
	AreaSession Area = "session"
)

// Change is emitted by Backend.Watch whenever a key's value changes.
// Origin is the writer's origin id when known, "" otherwise.
type Change struct {
	Key    string `json:"key"`
	Area   Area   `json:"area"`
	Origin string `json:"origin,omitempty"`
	Value  []byte `json:"-"`
}

// Backend is a key/value slot holding JSON blobs.
//
// Set must be a no-op (and emit nothing) when the stored value is unchanged.
type Backend interface {
	Area() Area
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, origin string) error
	Watch(ctx context.Context, fn func(Change)) (stop func(), err error)
	Close() error
}

var ErrUnknownBackend = errors.New("unknown backend")

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"

	DefaultPollInterval = 500 * time.Millisecond
)

type OpenOptions struct {
	// Kind is one of sqlite|file|memory (default sqlite).
	Kind string
	// Dir is the data directory for sqlite/file backends.
	Dir          string
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Open constructs the backend selected by opts.Kind.
func Open(ctx context.Context, opts OpenOptions) (Backend, error) {
	kind := strings.ToLower(strings.TrimSpace(opts.Kind))
	if kind == "" {
		kind = BackendSQLite
	}
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" && kind != BackendMemory {
		return nil, errors.New("store: data dir is empty")
	}
	switch kind {
	case BackendSQLite:
		return OpenSQLite(ctx, filepath.Join(dir, "todo.sqlite"), opts.PollInterval, opts.Logger)
	case BackendFile:
		return OpenFile(dir, opts.Logger)
	case BackendMemory:
		return NewMemory(AreaLocal), nil
	default:
		return nil, fmt.Errorf("%w: %s (expected sqlite|file|memory)", ErrUnknownBackend, kind)
	}
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
