// Package publish writes the list as Markdown files: an index task list plus
// one page per item that has details.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"todo-cli/internal/model"
)

type WriteOptions struct {
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// Write renders st into toDir/todo.md and toDir/items/<id>.md.
func Write(st model.State, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	itemsDir := filepath.Join(toDir, "items")
	if err := os.MkdirAll(itemsDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexPath := filepath.Join(toDir, "todo.md")
	if err := writeFile(indexPath, []byte(RenderIndexMarkdown(st)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	written := []string{indexPath}

	// Stop on first error.
	for _, it := range st.TodoItems {
		if strings.TrimSpace(it.Details) == "" {
			continue
		}
		p := filepath.Join(itemsDir, it.ID+".md")
		if err := writeFile(p, []byte(RenderItemMarkdown(it)), opt.Overwrite); err != nil {
			return WriteResult{Written: written}, err
		}
		written = append(written, p)
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
