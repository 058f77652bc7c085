package tui

import (
	"fmt"
	"io"

	"todo-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

type todoListItem struct {
	item model.TodoItem
}

func (i todoListItem) FilterValue() string { return i.item.Title + " " + i.item.Details }
func (i todoListItem) Title() string       { return i.item.Title }
func (i todoListItem) Description() string { return i.item.Details }

// todoDelegate renders one line per item: a checkbox and the title.
type todoDelegate struct{}

func (todoDelegate) Height() int                             { return 1 }
func (todoDelegate) Spacing() int                            { return 0 }
func (todoDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (todoDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(todoListItem)
	contentW := m.Width()
	if !ok || contentW < 4 {
		return
	}
	box := "[ ] "
	if it.item.Done {
		box = "[x] "
	}
	line := fitWidth(box+it.item.Title, contentW)

	switch {
	case index == m.Index():
		line = styleSelected.Render(line)
	case it.item.Done:
		line = styleDone.Render(line)
	}
	fmt.Fprint(w, line)
}

func newTodoList() list.Model {
	l := list.New(nil, todoDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	l.SetStatusBarItemName("item", "items")
	// q is handled by the app model.
	l.KeyMap.Quit.SetKeys()
	l.KeyMap.ForceQuit.SetKeys()
	// Emacs-style aliases, as in the rest of the keymap.
	l.KeyMap.CursorUp.SetKeys(append(l.KeyMap.CursorUp.Keys(), "ctrl+p")...)
	l.KeyMap.CursorDown.SetKeys(append(l.KeyMap.CursorDown.Keys(), "ctrl+n")...)
	// d deletes; keep paging on the other defaults.
	l.KeyMap.NextPage.SetKeys("right", "l", "pgdown", "f")
	return l
}
