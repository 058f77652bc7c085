// Package provider owns one todo list for one execution context (a CLI run, a
// TUI session, a web server). It bootstraps from persistence, persists after
// every transition and reloads whenever another context writes the shared slot.
//
// There is no conflict detection: two contexts editing at once resolve as
// last-writer-wins.
package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"todo-cli/internal/model"
	"todo-cli/internal/todo"
)

// Persister is the persistence boundary (see store.Persistence).
type Persister interface {
	Load(ctx context.Context) (model.State, bool)
	Save(ctx context.Context, st model.State) error
	OnExternalChange(ctx context.Context, fn func()) (cancel func(), err error)
}

type Provider struct {
	persist Persister
	reducer todo.Reducer
	logger  *slog.Logger

	mu    sync.Mutex
	state model.State
	seq   uint64

	// saveMu orders saves; it is taken before mu, never while holding it.
	saveMu  sync.Mutex
	savedAt uint64

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(model.State)

	stopWatch func()
	started   bool
}

type Option func(*Provider)

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithReducer(r todo.Reducer) Option {
	return func(p *Provider) { p.reducer = r }
}

func New(persist Persister, opts ...Option) *Provider {
	p := &Provider{
		persist: persist,
		logger:  slog.Default(),
		subs:    map[int]func(model.State){},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start loads the persisted snapshot (if any) and subscribes to external
// changes until Close.
func (p *Provider) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return errors.New("provider already started")
	}
	p.started = true
	p.mu.Unlock()

	if err := p.reload(ctx); err != nil {
		return err
	}

	stop, err := p.persist.OnExternalChange(context.WithoutCancel(ctx), func() {
		if err := p.reload(context.Background()); err != nil {
			p.logger.Warn("reload after external change failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.stopWatch = stop
	p.mu.Unlock()
	return nil
}

// reload adopts the stored snapshot. The value came from storage, so it is
// not written back.
func (p *Provider) reload(ctx context.Context) error {
	st, ok := p.persist.Load(ctx)
	if !ok {
		p.logger.Debug("no stored state; keeping current")
		return nil
	}
	if err := p.apply(todo.LoadState{State: st}); err != nil {
		return err
	}
	p.notify(p.State())
	return nil
}

// Dispatch applies a, persists the result and notifies subscribers. Reducer
// errors (todo.ErrInvalidAction) leave the state untouched. A save error is
// returned, but the in-memory state has already advanced.
//
// The state lock is not held while saving: a save can synchronously reload
// other providers sharing the backend, and they may be dispatching too.
func (p *Provider) Dispatch(ctx context.Context, a todo.Action) error {
	if err := p.apply(a); err != nil {
		p.logger.Error("dispatch rejected", "action", todo.ActionType(a), "error", err)
		return err
	}

	saveErr := p.saveLatest(ctx)
	snapshot := p.State()
	if saveErr != nil {
		p.logger.Error("persist failed", "action", todo.ActionType(a), "error", saveErr)
	} else {
		p.logger.Debug("dispatched", "action", todo.ActionType(a), "items", snapshot.Len())
	}
	p.notify(snapshot)
	return saveErr
}

func (p *Provider) apply(a todo.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.reducer.Reduce(p.state, a)
	if err != nil {
		return err
	}
	p.state = next
	p.seq++
	return nil
}

// saveLatest writes the newest state unless a concurrent Dispatch already
// wrote it (or something newer).
func (p *Provider) saveLatest(ctx context.Context) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	p.mu.Lock()
	st, seq := p.state.Clone(), p.seq
	p.mu.Unlock()
	if seq <= p.savedAt {
		return nil
	}
	if err := p.persist.Save(ctx, st); err != nil {
		return err
	}
	p.savedAt = seq
	return nil
}

// State returns a copy of the current snapshot.
func (p *Provider) State() model.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// Subscribe registers fn to run after every transition, including reloads
// triggered by other contexts. fn must not call Dispatch synchronously.
func (p *Provider) Subscribe(fn func(model.State)) (cancel func()) {
	p.subMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.subMu.Unlock()
	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

func (p *Provider) notify(st model.State) {
	p.subMu.Lock()
	fns := make([]func(model.State), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()
	for _, fn := range fns {
		fn(st.Clone())
	}
}

// Close stops listening for external changes.
func (p *Provider) Close() {
	p.mu.Lock()
	stop := p.stopWatch
	p.stopWatch = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
}
