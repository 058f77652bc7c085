package model

import "encoding/json"

// TodoItem is a single entry in the list.
type TodoItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Details string `json:"details,omitempty"`
	Done    bool   `json:"done"`
}

// State is the full list snapshot. Slice order is the user's manual order;
// any done/not-done grouping is applied at render time only.
type State struct {
	TodoItems []TodoItem `json:"todoItems"`
}

// MarshalJSON keeps the persisted shape stable: an empty list is written as [] rather than null.
func (s State) MarshalJSON() ([]byte, error) {
	type wire State
	w := wire(s)
	if w.TodoItems == nil {
		w.TodoItems = []TodoItem{}
	}
	return json.Marshal(w)
}

func (s State) Clone() State {
	if s.TodoItems == nil {
		return State{}
	}
	items := make([]TodoItem, len(s.TodoItems))
	copy(items, s.TodoItems)
	return State{TodoItems: items}
}

func (s State) Index(id string) (int, bool) {
	for i, it := range s.TodoItems {
		if it.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s State) Find(id string) (TodoItem, bool) {
	i, ok := s.Index(id)
	if !ok {
		return TodoItem{}, false
	}
	return s.TodoItems[i], true
}

func (s State) Len() int { return len(s.TodoItems) }
