package cli

import (
	"strconv"
	"strings"

	"todo-cli/internal/model"
	"todo-cli/internal/todo"

	"github.com/spf13/cobra"
)

func newListCmd(app *App) *cobra.Command {
	var sorted bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items (storage order; --sorted for display order)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			st := s.p.State()
			if sorted {
				st = model.State{TodoItems: todo.NewView(st).Items}
			}
			return writeOut(cmd, app, map[string]any{"data": st})
		},
	}
	cmd.Flags().BoolVar(&sorted, "sorted", false, "Open items first, as shown in the TUI and web views")
	return cmd
}

func newAddCmd(app *App) *cobra.Command {
	var details string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add an item to the top of the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			if err := todo.ValidateTitle(title); err != nil {
				return writeErr(cmd, err)
			}
			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			before := s.p.State()
			if err := s.p.Dispatch(cmd.Context(), todo.Add{Title: title, Details: details}); err != nil {
				return writeErr(cmd, err)
			}
			it, ok := addedItem(before, s.p.State())
			if !ok {
				return writeErr(cmd, errNotFound("item", title))
			}
			return writeOut(cmd, app, map[string]any{"data": it})
		},
	}
	cmd.Flags().StringVar(&details, "details", "", "Item details (markdown)")
	return cmd
}

// addedItem finds the item present in after but not in before.
func addedItem(before, after model.State) (model.TodoItem, bool) {
	for _, it := range after.TodoItems {
		if _, ok := before.Index(it.ID); !ok {
			return it, true
		}
	}
	return model.TodoItem{}, false
}

func newEditCmd(app *App) *cobra.Command {
	var title, details string
	cmd := &cobra.Command{
		Use:   "edit <item-id>",
		Short: "Edit an item's title and/or details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if cmd.Flags().Changed("title") {
				if err := todo.ValidateTitle(title); err != nil {
					return writeErr(cmd, err)
				}
			}
			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			cur, ok := s.p.State().Find(id)
			if !ok {
				return writeErr(cmd, errNotFound("item", id))
			}
			a := todo.Edit{ID: id, Title: cur.Title, Details: cur.Details}
			if cmd.Flags().Changed("title") {
				a.Title = title
			}
			if cmd.Flags().Changed("details") {
				a.Details = details
			}
			return dispatchItem(cmd, app, s, a, id)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&details, "details", "", "New details (empty clears)")
	return cmd
}

func newDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <item-id>",
		Short: "Toggle an item's done flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			if _, ok := s.p.State().Find(id); !ok {
				return writeErr(cmd, errNotFound("item", id))
			}
			return dispatchItem(cmd, app, s, todo.ToggleDone{ID: id}, id)
		},
	}
}

func newRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <item-id>",
		Aliases: []string{"delete"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			if _, ok := s.p.State().Find(id); !ok {
				return writeErr(cmd, errNotFound("item", id))
			}
			if err := s.p.Dispatch(cmd.Context(), todo.Delete{ID: id}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		},
	}
}

func newMoveCmd(app *App) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "move <item-id> --to <target-id>",
		Short: "Move an item to the position currently held by another item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			target := strings.TrimSpace(to)
			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			st := s.p.State()
			for _, want := range []string{id, target} {
				if _, ok := st.Find(want); !ok {
					return writeErr(cmd, errNotFound("item", want))
				}
			}
			if err := s.p.Dispatch(cmd.Context(), todo.Move{ID: id, TargetID: target}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": s.p.State()})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target item id")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newReorderCmd(app *App) *cobra.Command {
	var view bool
	cmd := &cobra.Command{
		Use:   "reorder <from> <to>",
		Short: "Move the item at index <from> to index <to>",
		Long: strings.TrimSpace(`
Move the item at index <from> to index <to> (0-based).

Indices refer to storage order unless --view is given, in which case they are
display indices (open items first, as listed by ` + "`todo list --sorted`" + `).
`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			st := s.p.State()
			for _, i := range []int{from, to} {
				if i < 0 || i >= st.Len() {
					return writeErr(cmd, indexError{index: i, len: st.Len()})
				}
			}
			var a todo.Action = todo.Reorder{SourceIndex: from, DestinationIndex: to}
			if view {
				r, ok := todo.NewView(st).IndexReorder(from, to)
				if !ok {
					return writeOut(cmd, app, map[string]any{"data": st})
				}
				a = r
			}
			if err := s.p.Dispatch(cmd.Context(), a); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": s.p.State()})
		},
	}
	cmd.Flags().BoolVar(&view, "view", false, "Interpret indices in display order")
	return cmd
}

func dispatchItem(cmd *cobra.Command, app *App, s *session, a todo.Action, id string) error {
	if err := s.p.Dispatch(cmd.Context(), a); err != nil {
		return writeErr(cmd, err)
	}
	it, ok := s.p.State().Find(id)
	if !ok {
		return writeErr(cmd, errNotFound("item", id))
	}
	return writeOut(cmd, app, map[string]any{"data": it})
}
