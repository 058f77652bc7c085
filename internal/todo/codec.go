package todo

import (
	"bytes"
	"encoding/json"
	"fmt"

	"todo-cli/internal/model"
)

// envelope is the {type, data} shape views use to send intents.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeAction parses a {type, data} intent. An unrecognised type yields
// ErrInvalidAction; a recognised type with a malformed payload yields a decode error.
func DecodeAction(b []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	data := env.Data
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}

	switch env.Type {
	case TypeLoadState:
		var st model.State
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return LoadState{State: st}, nil
	case TypeAdd:
		// Accept both {title, details} and the nested {todoItem: {title, details}}.
		var a struct {
			Add
			TodoItem *Add `json:"todoItem"`
		}
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		if a.TodoItem != nil {
			return *a.TodoItem, nil
		}
		return a.Add, nil
	case TypeDelete:
		var a Delete
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return a, nil
	case TypeToggleDone:
		var a ToggleDone
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return a, nil
	case TypeEdit:
		var a Edit
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return a, nil
	case TypeReorder:
		var a Reorder
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return a, nil
	case TypeMove:
		var a Move
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidAction, env.Type)
}

// EncodeAction is the inverse of DecodeAction.
func EncodeAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidAction)
	}
	var data any = a
	if ls, ok := a.(LoadState); ok {
		data = ls.State
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: a.actionType(), Data: raw})
}
