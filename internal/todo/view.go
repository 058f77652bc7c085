package todo

import (
	"sort"

	"todo-cli/internal/model"
)

// View is the display ordering of a snapshot: open items before done ones,
// manual order preserved within each group. It remembers where every row
// lives in the stored sequence so reorders can be sent back in store terms.
type View struct {
	Items []model.TodoItem

	storeIndex []int
}

func NewView(st model.State) View {
	idx := make([]int, len(st.TodoItems))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return !st.TodoItems[idx[a]].Done && st.TodoItems[idx[b]].Done
	})
	items := make([]model.TodoItem, len(idx))
	for i, si := range idx {
		items[i] = st.TodoItems[si]
	}
	return View{Items: items, storeIndex: idx}
}

func (v View) Len() int { return len(v.Items) }

// StoreIndex maps a display row to its position in the stored sequence.
func (v View) StoreIndex(row int) (int, bool) {
	if row < 0 || row >= len(v.storeIndex) {
		return -1, false
	}
	return v.storeIndex[row], true
}

// Row is the inverse of StoreIndex.
func (v View) Row(id string) (int, bool) {
	for i, it := range v.Items {
		if it.ID == id {
			return i, true
		}
	}
	return -1, false
}

// ReorderAction turns a drag from display row `from` onto display row `to`
// into a Move carrying ids, so no index translation is needed downstream.
func (v View) ReorderAction(from, to int) (Move, bool) {
	if from == to || from < 0 || to < 0 || from >= len(v.Items) || to >= len(v.Items) {
		return Move{}, false
	}
	return Move{ID: v.Items[from].ID, TargetID: v.Items[to].ID}, true
}

// IndexReorder is ReorderAction expressed as store indices, for clients that
// speak the onDragEnd wire action.
func (v View) IndexReorder(from, to int) (Reorder, bool) {
	if from == to {
		return Reorder{}, false
	}
	src, ok := v.StoreIndex(from)
	if !ok {
		return Reorder{}, false
	}
	dst, ok := v.StoreIndex(to)
	if !ok {
		return Reorder{}, false
	}
	return Reorder{SourceIndex: src, DestinationIndex: dst}, true
}

type Stats struct {
	Total int `json:"total"`
	Open  int `json:"open"`
	Done  int `json:"done"`
}

func Summarize(st model.State) Stats {
	var s Stats
	for _, it := range st.TodoItems {
		s.Total++
		if it.Done {
			s.Done++
		} else {
			s.Open++
		}
	}
	return s
}
