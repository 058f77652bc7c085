// Package tui is the interactive terminal view over a provider.Provider.
package tui

import (
	"log/slog"

	"todo-cli/internal/model"
	"todo-cli/internal/provider"
	"todo-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	// Logger receives TUI diagnostics. The terminal is owned by bubbletea, so
	// callers normally pass a file-backed logger.
	Logger *slog.Logger

	// StateDir holds tui_state.json (last selected item). Empty disables it.
	StateDir string
}

// Run blocks until the user quits.
func Run(p *provider.Provider, opts Options) error {
	applyColorProfilePreference()

	updates := make(chan model.State, 1)
	cancel := p.Subscribe(func(st model.State) { offerLatest(updates, st) })
	defer cancel()

	m := newAppModel(p, opts.Logger, updates)
	m.selectID(store.LoadTUIState(opts.StateDir).SelectedItemID)

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(appModel); ok {
		it, _ := fm.selected()
		if err := store.SaveTUIState(opts.StateDir, store.TUIState{SelectedItemID: it.ID}); err != nil {
			m.logger.Warn("save tui state", "error", err)
		}
	}
	return nil
}

// offerLatest replaces any pending snapshot with st so a slow UI only ever
// sees the newest state.
func offerLatest(ch chan model.State, st model.State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

type stateChangedMsg struct{ state model.State }

func waitForState(ch <-chan model.State) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateChangedMsg{state: st}
	}
}
