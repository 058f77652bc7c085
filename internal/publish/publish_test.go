package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todo-cli/internal/model"
)

var sample = model.State{TodoItems: []model.TodoItem{
	{ID: "a", Title: "Paid [rent]", Done: true},
	{ID: "b", Title: "Plan trip", Details: "Book **hotel**"},
	{ID: "c", Title: "Call mum"},
}}

func TestRenderIndexMarkdown(t *testing.T) {
	t.Parallel()

	got := RenderIndexMarkdown(sample)
	want := strings.Join([]string{
		"# Todo",
		"",
		"2 open, 1 done",
		"",
		"- [ ] [Plan trip](items/b.md)",
		"- [ ] Call mum",
		`- [x] Paid \[rent\]`,
		"",
	}, "\n")
	if got != want {
		t.Fatalf("index mismatch:\n--- got\n%s\n--- want\n%s", got, want)
	}
}

func TestRenderItemMarkdown_IncludesDetails(t *testing.T) {
	t.Parallel()

	md := RenderItemMarkdown(sample.TodoItems[1])
	for _, want := range []string{"# Plan trip", "- ID: b", "- State: open", "## Details", "Book **hotel**"} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
}

func TestWrite_PagesAndOverwrite(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "site")
	res, err := Write(sample, dir, WriteOptions{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(res.Written) != 2 {
		t.Fatalf("expected index + one item page; got %v", res.Written)
	}
	if _, err := os.Stat(filepath.Join(dir, "items", "b.md")); err != nil {
		t.Fatalf("item page missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "items", "c.md")); !os.IsNotExist(err) {
		t.Fatalf("items without details get no page; stat err=%v", err)
	}

	if _, err := Write(sample, dir, WriteOptions{}); err == nil {
		t.Fatalf("expected existing files to be refused without Overwrite")
	}
	if _, err := Write(sample, dir, WriteOptions{Overwrite: true}); err != nil {
		t.Fatalf("Write overwrite: %v", err)
	}
	if _, err := Write(sample, "  ", WriteOptions{}); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
