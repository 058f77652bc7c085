package publish

import (
	"strconv"
	"strings"

	"todo-cli/internal/model"
	"todo-cli/internal/todo"
)

// RenderIndexMarkdown renders the list as a GFM task list in display order.
// Items with details link to their own page under items/.
func RenderIndexMarkdown(st model.State) string {
	var b strings.Builder
	s := todo.Summarize(st)
	b.WriteString("# Todo\n\n")
	b.WriteString(countLine(s) + "\n\n")
	for _, it := range todo.NewView(st).Items {
		b.WriteString(checkbox(it.Done))
		title := escapeInline(it.Title)
		if strings.TrimSpace(it.Details) != "" {
			title = "[" + title + "](items/" + it.ID + ".md)"
		}
		b.WriteString(title + "\n")
	}
	return b.String()
}

// RenderItemMarkdown renders one item's page.
func RenderItemMarkdown(it model.TodoItem) string {
	var b strings.Builder
	b.WriteString("# " + escapeInline(it.Title) + "\n\n")
	state := "open"
	if it.Done {
		state = "done"
	}
	b.WriteString("- ID: " + it.ID + "\n")
	b.WriteString("- State: " + state + "\n")
	if d := strings.TrimSpace(it.Details); d != "" {
		b.WriteString("\n## Details\n\n" + d + "\n")
	}
	return b.String()
}

func countLine(s todo.Stats) string {
	return strconv.Itoa(s.Open) + " open, " + strconv.Itoa(s.Done) + " done"
}

func checkbox(done bool) string {
	if done {
		return "- [x] "
	}
	return "- [ ] "
}

// escapeInline keeps a title on one line and stops it from opening a link.
func escapeInline(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
