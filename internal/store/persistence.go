package store

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"todo-cli/internal/model"

	"github.com/google/uuid"
)

// DefaultKey is the single fixed slot name: one list per storage origin.
const DefaultKey = "todoListState"

// Persistence is the load/save/notify boundary between a todo provider and a
// Backend. Each instance has its own origin id; changes written under that id
// are never reported back to it.
type Persistence struct {
	backend Backend
	key     string
	origin  string
	logger  *slog.Logger
}

type PersistenceOption func(*Persistence)

func WithKey(key string) PersistenceOption {
	return func(p *Persistence) {
		if k := strings.TrimSpace(key); k != "" {
			p.key = k
		}
	}
}

func WithOrigin(origin string) PersistenceOption {
	return func(p *Persistence) {
		if o := strings.TrimSpace(origin); o != "" {
			p.origin = o
		}
	}
}

func WithLogger(l *slog.Logger) PersistenceOption {
	return func(p *Persistence) { p.logger = loggerOr(l) }
}

func NewPersistence(b Backend, opts ...PersistenceOption) *Persistence {
	p := &Persistence{
		backend: b,
		key:     DefaultKey,
		origin:  uuid.NewString(),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Persistence) Key() string      { return p.key }
func (p *Persistence) Origin() string   { return p.origin }
func (p *Persistence) Backend() Backend { return p.backend }

// Load returns the stored snapshot. Missing keys, read errors and malformed
// JSON all report ok=false; Load never fails the caller.
func (p *Persistence) Load(ctx context.Context) (model.State, bool) {
	raw, ok, err := p.backend.Get(ctx, p.key)
	if err != nil {
		p.logger.Debug("load failed", "key", p.key, "error", err)
		return model.State{}, false
	}
	if !ok {
		return model.State{}, false
	}
	return decodeState(raw, p.logger)
}

func decodeState(raw []byte, logger *slog.Logger) (model.State, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return model.State{}, false
	}
	var st model.State
	if err := json.Unmarshal(raw, &st); err != nil {
		logger.Debug("ignoring malformed stored state", "error", err)
		return model.State{}, false
	}
	return st, true
}

// Save writes the full snapshot.
func (p *Persistence) Save(ctx context.Context, st model.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return p.backend.Set(ctx, p.key, b, p.origin)
}

// OnExternalChange calls fn whenever another context writes this key in the
// shared local area. Same-origin writes and session-area changes are ignored.
func (p *Persistence) OnExternalChange(ctx context.Context, fn func()) (func(), error) {
	return p.backend.Watch(ctx, func(c Change) {
		if !p.isExternal(c) {
			return
		}
		p.logger.Debug("external change", "key", c.Key, "origin", c.Origin)
		fn()
	})
}

func (p *Persistence) isExternal(c Change) bool {
	return c.Key == p.key && c.Area == AreaLocal && c.Origin != p.origin
}
