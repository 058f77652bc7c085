package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"todo-cli/internal/model"
	"todo-cli/internal/todo"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type dispatcher interface {
	Dispatch(ctx context.Context, a todo.Action) error
	State() model.State
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
)

type appModel struct {
	p       dispatcher
	logger  *slog.Logger
	updates <-chan model.State
	keys    keyMap

	view todo.View
	list list.Model

	mode      mode
	editingID string
	title     textinput.Model
	details   textarea.Model

	width  int
	height int

	status    string
	statusErr bool
}

func newAppModel(p dispatcher, logger *slog.Logger, updates <-chan model.State) appModel {
	if logger == nil {
		logger = slog.Default()
	}
	ti := textinput.New()
	ti.Placeholder = "Title"
	ti.Prompt = "Title: "
	ti.CharLimit = 500

	ta := textarea.New()
	ta.Placeholder = "Details (markdown)"
	ta.ShowLineNumbers = false
	ta.SetHeight(6)

	m := appModel{
		p:       p,
		logger:  logger,
		updates: updates,
		keys:    defaultKeyMap(),
		list:    newTodoList(),
		title:   ti,
		details: ta,
	}
	_ = m.setState(p.State())
	return m
}

func (m appModel) Init() tea.Cmd { return waitForState(m.updates) }

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case stateChangedMsg:
		cmd := m.setState(msg.state)
		return m, tea.Batch(cmd, waitForState(m.updates))

	case tea.KeyMsg:
		if m.mode != modeList {
			return m.updateForm(msg)
		}
		if m.list.FilterState() == list.Filtering {
			break
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Add):
		m.openForm(modeAdd, model.TodoItem{})
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Edit):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.openForm(modeEdit, it)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Toggle):
		if it, ok := m.selected(); ok {
			m.dispatch(todo.ToggleDone{ID: it.ID}, it.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if it, ok := m.selected(); ok {
			m.dispatch(todo.Delete{ID: it.ID}, "")
			m.setStatus("deleted: "+it.Title, false)
		}
		return m, nil

	case key.Matches(msg, m.keys.MoveUp):
		m.moveSelected(-1)
		return m, nil

	case key.Matches(msg, m.keys.MoveDown):
		m.moveSelected(+1)
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if it, ok := m.selected(); ok {
			if err := copyToClipboard(it.Title); err != nil {
				m.setStatus("copy failed: "+err.Error(), true)
			} else {
				m.setStatus("copied: "+it.Title, false)
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		cmd := m.setState(m.p.State())
		m.setStatus("reloaded", false)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closeForm()
		return m, nil

	case key.Matches(msg, m.keys.SwitchField):
		if m.title.Focused() {
			m.title.Blur()
			return m, m.details.Focus()
		}
		m.details.Blur()
		return m, m.title.Focus()

	case key.Matches(msg, m.keys.Submit), msg.Type == tea.KeyEnter && m.title.Focused():
		m.submitForm()
		return m, nil
	}

	var cmd tea.Cmd
	if m.title.Focused() {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.details, cmd = m.details.Update(msg)
	}
	return m, cmd
}

func (m *appModel) openForm(md mode, it model.TodoItem) {
	m.mode = md
	m.editingID = it.ID
	m.title.SetValue(it.Title)
	m.title.CursorEnd()
	m.details.SetValue(it.Details)
	m.details.Blur()
	m.title.Focus()
	m.status = ""
}

func (m *appModel) closeForm() {
	m.mode = modeList
	m.editingID = ""
	m.title.Blur()
	m.details.Blur()
}

func (m *appModel) submitForm() {
	title := m.title.Value()
	if err := todo.ValidateTitle(title); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	details := m.details.Value()

	switch m.mode {
	case modeAdd:
		before := m.p.State()
		if !m.dispatch(todo.Add{Title: title, Details: details}, "") {
			return
		}
		for _, it := range m.p.State().TodoItems {
			if _, ok := before.Index(it.ID); !ok {
				m.selectID(it.ID)
				break
			}
		}
		m.setStatus("added: "+strings.TrimSpace(title), false)
	case modeEdit:
		if !m.dispatch(todo.Edit{ID: m.editingID, Title: title, Details: details}, m.editingID) {
			return
		}
		m.setStatus("saved", false)
	}
	m.closeForm()
}

// moveSelected swaps the selected item with its display neighbour.
func (m *appModel) moveSelected(delta int) {
	it, ok := m.selected()
	if !ok {
		return
	}
	from, ok := m.view.Row(it.ID)
	if !ok {
		return
	}
	a, ok := m.view.ReorderAction(from, from+delta)
	if !ok {
		return
	}
	m.dispatch(a, it.ID)
}

// dispatch applies a and refreshes the list, keeping selectID selected when
// set. It reports whether the action was accepted.
func (m *appModel) dispatch(a todo.Action, selectID string) bool {
	err := m.p.Dispatch(context.Background(), a)
	// The state may have advanced even when persisting failed.
	_ = m.setState(m.p.State())
	if selectID != "" {
		m.selectID(selectID)
	}
	if err != nil {
		m.logger.Error("tui dispatch", "action", todo.ActionType(a), "error", err)
		m.setStatus(err.Error(), true)
		return false
	}
	return true
}

// setState rebuilds the list in display order. The returned command re-runs
// an active filter.
func (m *appModel) setState(st model.State) tea.Cmd {
	keep := ""
	if it, ok := m.selected(); ok {
		keep = it.ID
	}
	idx := m.list.Index()

	m.view = todo.NewView(st)
	items := make([]list.Item, 0, m.view.Len())
	for _, it := range m.view.Items {
		items = append(items, todoListItem{item: it})
	}
	cmd := m.list.SetItems(items)
	if m.list.FilterState() != list.Unfiltered {
		return cmd
	}

	if row, ok := m.view.Row(keep); ok && keep != "" {
		m.list.Select(row)
		return cmd
	}
	if n := m.view.Len(); n > 0 {
		m.list.Select(min(idx, n-1))
	}
	return cmd
}

func (m *appModel) selectID(id string) {
	if m.list.FilterState() != list.Unfiltered {
		return
	}
	if row, ok := m.view.Row(id); ok {
		m.list.Select(row)
	}
}

func (m appModel) selected() (model.TodoItem, bool) {
	it, ok := m.list.SelectedItem().(todoListItem)
	if !ok {
		return model.TodoItem{}, false
	}
	return it.item, true
}

func (m *appModel) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m appModel) paneWidths() (left, right int) {
	left = m.width * 2 / 5
	if left < 20 {
		left = min(m.width, 20)
	}
	return left, max(m.width-left-1, 0)
}

func (m *appModel) resize() {
	left, right := m.paneWidths()
	m.list.SetSize(left, max(m.height-3, 1))
	m.title.Width = max(right-len(m.title.Prompt)-2, 10)
	m.details.SetWidth(max(right-2, 10))
}

func (m appModel) View() string {
	if m.width == 0 {
		return ""
	}
	stats := todo.Summarize(model.State{TodoItems: m.view.Items})
	header := styleHeader.Render("Todo") + styleMuted.Render(fmt.Sprintf("  %d open · %d done", stats.Open, stats.Done))

	bodyH := max(m.height-3, 1)
	left, right := m.paneWidths()
	listPane := m.list.View()
	if m.view.Len() == 0 {
		listPane = styleMuted.Render("No items. Press a to add one.")
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		normalizePane(listPane, left, bodyH),
		" ",
		normalizePane(m.rightPane(right), right, bodyH),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.footer())
}

func (m appModel) rightPane(width int) string {
	if m.mode != modeList {
		heading := "New item"
		if m.mode == modeEdit {
			heading = "Edit item"
		}
		return styleHeader.Render(heading) + "\n\n" + m.title.View() + "\n\n" + m.details.View()
	}
	it, ok := m.selected()
	if !ok {
		return ""
	}
	var b strings.Builder
	state := "open"
	if it.Done {
		state = "done"
	}
	b.WriteString(styleHeader.Render(it.Title))
	b.WriteString("\n")
	b.WriteString(styleMuted.Render(state + " · " + it.ID))
	if md := renderMarkdown(it.Details, width-2); md != "" {
		b.WriteString("\n\n")
		b.WriteString(md)
	}
	return styleDetail.Render(b.String())
}

func (m appModel) footer() string {
	if m.status != "" {
		if m.statusErr {
			return styleError.Render(m.status)
		}
		return styleMuted.Render(m.status)
	}
	bindings := m.keys.listHelp()
	if m.mode != modeList {
		bindings = m.keys.formHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return fitWidth(styleMuted.Render(strings.Join(parts, "  ")), m.width)
}
