package todo

import (
	"fmt"
	"strings"
	"time"

	"todo-cli/internal/model"
)

// Reducer applies actions to snapshots. The zero value is ready to use.
type Reducer struct {
	// NewID overrides item id generation (tests).
	NewID func() (string, error)
	// Now overrides the clock used by the default id generator.
	Now func() time.Time
}

var defaultReducer Reducer

// Reduce applies a with the default reducer.
func Reduce(st model.State, a Action) (model.State, error) {
	return defaultReducer.Reduce(st, a)
}

// Reduce returns the state produced by applying a to st. st is never modified.
// References to ids that are not present are no-ops.
func (r Reducer) Reduce(st model.State, a Action) (model.State, error) {
	switch a := a.(type) {
	case LoadState:
		return a.State.Clone(), nil
	case Add:
		return r.add(st, a)
	case Delete:
		return deleteItem(st, a.ID), nil
	case ToggleDone:
		return toggleDone(st, a.ID), nil
	case Edit:
		return edit(st, a), nil
	case Reorder:
		return reorder(st, a.SourceIndex, a.DestinationIndex), nil
	case Move:
		return move(st, a.ID, a.TargetID), nil
	}
	return st, fmt.Errorf("%w: %T", ErrInvalidAction, a)
}

func (r Reducer) newID() (string, error) {
	if r.NewID != nil {
		return r.NewID()
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	return newItemID(now)
}

func (r Reducer) add(st model.State, a Add) (model.State, error) {
	// Persisted titles are never empty; callers validate first, this keeps the invariant
	// if one forgets.
	if strings.TrimSpace(a.Title) == "" {
		return st, nil
	}
	id, err := r.newID()
	if err != nil {
		return st, fmt.Errorf("generate item id: %w", err)
	}
	items := make([]model.TodoItem, 0, len(st.TodoItems)+1)
	items = append(items, model.TodoItem{ID: id, Title: a.Title, Details: a.Details, Done: false})
	items = append(items, st.TodoItems...)
	return model.State{TodoItems: items}, nil
}

func deleteItem(st model.State, id string) model.State {
	if _, ok := st.Index(id); !ok {
		return st
	}
	items := make([]model.TodoItem, 0, len(st.TodoItems)-1)
	for _, it := range st.TodoItems {
		if it.ID != id {
			items = append(items, it)
		}
	}
	return model.State{TodoItems: items}
}

func toggleDone(st model.State, id string) model.State {
	i, ok := st.Index(id)
	if !ok {
		return st
	}
	out := st.Clone()
	out.TodoItems[i].Done = !out.TodoItems[i].Done
	return out
}

func edit(st model.State, a Edit) model.State {
	if strings.TrimSpace(a.Title) == "" {
		return st
	}
	i, ok := st.Index(a.ID)
	if !ok {
		return st
	}
	out := st.Clone()
	out.TodoItems[i].Title = a.Title
	out.TodoItems[i].Details = a.Details
	return out
}

func reorder(st model.State, from, to int) model.State {
	n := len(st.TodoItems)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return st
	}
	items := make([]model.TodoItem, 0, n)
	items = append(items, st.TodoItems[:from]...)
	items = append(items, st.TodoItems[from+1:]...)

	moved := st.TodoItems[from]
	items = append(items, model.TodoItem{})
	copy(items[to+1:], items[to:])
	items[to] = moved
	return model.State{TodoItems: items}
}

func move(st model.State, id, targetID string) model.State {
	from, ok := st.Index(id)
	if !ok {
		return st
	}
	to, ok := st.Index(targetID)
	if !ok {
		return st
	}
	return reorder(st, from, to)
}
