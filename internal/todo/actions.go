package todo

import "todo-cli/internal/model"

// Action is one user intent the reducer understands. The set is closed: every
// variant lives in this package.
type Action interface {
	actionType() string
}

// Wire names for the {type, data} intent envelope.
const (
	TypeLoadState  = "loadState"
	TypeAdd        = "add"
	TypeDelete     = "delete"
	TypeToggleDone = "toggleDone"
	TypeEdit       = "edit"
	TypeReorder    = "onDragEnd"
	TypeMove       = "move"
)

// LoadState replaces the whole snapshot (bootstrap or an external change).
type LoadState struct {
	State model.State
}

// Add prepends a new item. The id is generated by the reducer.
type Add struct {
	Title   string `json:"title"`
	Details string `json:"details,omitempty"`
}

type Delete struct {
	ID string `json:"id"`
}

type ToggleDone struct {
	ID string `json:"id"`
}

type Edit struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Details string `json:"details"`
}

// Reorder moves the item at SourceIndex to DestinationIndex. Both indices are
// positions in the stored (unsorted) sequence.
type Reorder struct {
	SourceIndex      int `json:"sourceIndex"`
	DestinationIndex int `json:"destinationIndex"`
}

// Move is Reorder expressed with stable ids: the item ID takes the position
// currently held by TargetID.
type Move struct {
	ID       string `json:"id"`
	TargetID string `json:"targetId"`
}

func (LoadState) actionType() string  { return TypeLoadState }
func (Add) actionType() string        { return TypeAdd }
func (Delete) actionType() string     { return TypeDelete }
func (ToggleDone) actionType() string { return TypeToggleDone }
func (Edit) actionType() string       { return TypeEdit }
func (Reorder) actionType() string    { return TypeReorder }
func (Move) actionType() string       { return TypeMove }

// ActionType returns the wire name of a, or "" for nil.
func ActionType(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionType()
}
