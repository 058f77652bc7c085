package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

const tuiStateFileName = "tui_state.json"

// TUIState is per-user UI state restored when the TUI relaunches. It is
// never synced between sessions, and missing or invalid files read as empty.
type TUIState struct {
	Version int `json:"version"`

	SelectedItemID string `json:"selectedItemId,omitempty"`
}

func LoadTUIState(dir string) TUIState {
	empty := TUIState{Version: 1}
	if strings.TrimSpace(dir) == "" {
		return empty
	}
	b, err := os.ReadFile(filepath.Join(dir, tuiStateFileName))
	if err != nil {
		return empty
	}
	var st TUIState
	if err := json.Unmarshal(b, &st); err != nil {
		return empty
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return st
}

func SaveTUIState(dir string, st TUIState) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, tuiStateFileName), b)
}
