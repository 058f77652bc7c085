package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"todo-cli/internal/todo"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate keeps tests away from ~/.todo and returns a fresh data dir.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("TODO_CONFIG_DIR", t.TempDir())
	return t.TempDir()
}

func mustRun(t *testing.T, args ...string) any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("todo %v failed: %v\nstderr:\n%s", args, err, stderr)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v\nstdout:\n%s", err, stdout)
	}
	data, ok := env["data"]
	if !ok {
		t.Fatalf("expected data key; got %s", stdout)
	}
	return data
}

func itemsOf(t *testing.T, data any) []map[string]any {
	t.Helper()
	raw, _ := data.(map[string]any)["todoItems"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		out = append(out, it.(map[string]any))
	}
	return out
}

func titles(items []map[string]any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it["title"].(string))
	}
	return out
}

func TestCLI_AddListToggleEditRemove(t *testing.T) {
	dir := isolate(t)
	base := []string{"--dir", dir, "--backend", "file"}
	run := func(args ...string) any { return mustRun(t, append(append([]string{}, base...), args...)...) }

	milk := run("add", "Buy", "milk", "--details", "2 litres").(map[string]any)
	if milk["title"] != "Buy milk" || milk["details"] != "2 litres" || milk["done"] != false {
		t.Fatalf("unexpected added item: %#v", milk)
	}
	id := milk["id"].(string)

	run("add", "Walk dog")
	if got := titles(itemsOf(t, run("list"))); strings.Join(got, ",") != "Walk dog,Buy milk" {
		t.Fatalf("list order: %v", got)
	}

	if done := run("done", id).(map[string]any); done["done"] != true {
		t.Fatalf("expected done=true; got %#v", done)
	}
	if got := titles(itemsOf(t, run("list", "--sorted"))); strings.Join(got, ",") != "Walk dog,Buy milk" {
		t.Fatalf("sorted order: %v", got)
	}

	edited := run("edit", id, "--title", "Buy oat milk").(map[string]any)
	if edited["title"] != "Buy oat milk" || edited["details"] != "2 litres" {
		t.Fatalf("edit should keep details when only --title is given: %#v", edited)
	}

	run("rm", id)
	if got := titles(itemsOf(t, run("list"))); strings.Join(got, ",") != "Walk dog" {
		t.Fatalf("after rm: %v", got)
	}

	_, _, err := runCLI(t, append(append([]string{}, base...), "rm", id))
	var nf notFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected notFoundError for second rm; got %v", err)
	}
}

func TestCLI_RejectsEmptyTitle(t *testing.T) {
	dir := isolate(t)

	_, stderr, err := runCLI(t, []string{"--dir", dir, "add", "   "})
	if !errors.Is(err, todo.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle; got %v (stderr=%s)", err, stderr)
	}
	_, _, err = runCLI(t, []string{"--dir", dir, "dispatch", `{"type":"add","data":{"title":""}}`})
	if !errors.Is(err, todo.ErrEmptyTitle) {
		t.Fatalf("dispatch: expected ErrEmptyTitle; got %v", err)
	}
	if items := itemsOf(t, mustRun(t, "--dir", dir, "list")); len(items) != 0 {
		t.Fatalf("nothing should have been stored: %#v", items)
	}
}

func TestCLI_ReorderAndMove(t *testing.T) {
	dir := isolate(t)
	base := []string{"--dir", dir}
	run := func(args ...string) any { return mustRun(t, append(append([]string{}, base...), args...)...) }

	c := run("add", "C").(map[string]any)["id"].(string)
	run("add", "B")
	a := run("add", "A").(map[string]any)["id"].(string)

	got := titles(itemsOf(t, run("reorder", "0", "2")))
	if strings.Join(got, ",") != "B,C,A" {
		t.Fatalf("reorder 0->2: %v", got)
	}

	got = titles(itemsOf(t, run("move", a, "--to", c)))
	if strings.Join(got, ",") != "B,A,C" {
		t.Fatalf("move A onto C: %v", got)
	}

	_, _, err := runCLI(t, append(append([]string{}, base...), "reorder", "0", "9"))
	var ie indexError
	if !errors.As(err, &ie) {
		t.Fatalf("expected indexError; got %v", err)
	}
}

func TestCLI_ReorderViewTranslatesDisplayIndices(t *testing.T) {
	dir := isolate(t)
	base := []string{"--dir", dir}
	run := func(args ...string) any { return mustRun(t, append(append([]string{}, base...), args...)...) }

	run("add", "C")
	run("add", "B")
	a := run("add", "A").(map[string]any)["id"].(string)
	run("done", a)

	// Storage: A(done) B C. Display: B C A. Dragging display row 0 (B) onto
	// display row 1 (C) is storage 1 -> 2.
	got := titles(itemsOf(t, run("reorder", "--view", "0", "1")))
	if strings.Join(got, ",") != "A,C,B" {
		t.Fatalf("reorder --view: %v", got)
	}
}

func TestCLI_DispatchRawActions(t *testing.T) {
	dir := isolate(t)

	data := mustRun(t, "--dir", dir, "dispatch", `{"type":"add","data":{"todoItem":{"title":"Buy milk","details":""}}}`)
	items := itemsOf(t, data)
	if len(items) != 1 || items[0]["title"] != "Buy milk" {
		t.Fatalf("dispatch add: %#v", items)
	}

	_, _, err := runCLI(t, []string{"--dir", dir, "dispatch", `{"type":"explode","data":{}}`})
	if !errors.Is(err, todo.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction; got %v", err)
	}
}

func TestCLI_ExportImportRoundTrip(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(t.TempDir(), "export", "todo.json")

	mustRun(t, "--dir", dir, "add", "Keep me", "--details", "*markdown*")
	mustRun(t, "--dir", dir, "export", "--out", out)

	other := t.TempDir()
	data := mustRun(t, "--dir", other, "--backend", "file", "import", out)
	items := itemsOf(t, data)
	if len(items) != 1 || items[0]["title"] != "Keep me" || items[0]["details"] != "*markdown*" {
		t.Fatalf("import: %#v", items)
	}

	bad := filepath.Join(t.TempDir(), "dup.json")
	if err := os.WriteFile(bad, []byte(`{"todoItems":[{"id":"x","title":"a","done":false},{"id":"x","title":"b","done":false}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := runCLI(t, []string{"--dir", other, "import", bad}); err == nil {
		t.Fatalf("expected duplicate-id import to fail")
	}
}

func TestCLI_StatsAndEDN(t *testing.T) {
	dir := isolate(t)

	id := mustRun(t, "--dir", dir, "add", "one").(map[string]any)["id"].(string)
	mustRun(t, "--dir", dir, "add", "two")
	mustRun(t, "--dir", dir, "done", id)

	stats := mustRun(t, "--dir", dir, "stats").(map[string]any)
	if stats["total"] != float64(2) || stats["open"] != float64(1) || stats["done"] != float64(1) {
		t.Fatalf("stats: %#v", stats)
	}

	stdout, _, err := runCLI(t, []string{"--dir", dir, "--format", "edn", "stats"})
	if err != nil {
		t.Fatalf("edn stats: %v", err)
	}
	if got := strings.TrimSpace(string(stdout)); got != "{:data {:done 1 :open 1 :total 2}}" {
		t.Fatalf("edn output: %q", got)
	}
}

func TestCLI_ConfigSetIsUsedAsDefault(t *testing.T) {
	dir := isolate(t)

	mustRun(t, "config", "set", "dir", dir)
	mustRun(t, "config", "set", "backend", "file")
	cfg := mustRun(t, "config").(map[string]any)
	if cfg["dir"] != dir || cfg["backend"] != "file" {
		t.Fatalf("config: %#v", cfg)
	}

	mustRun(t, "add", "from config")
	if _, err := os.Stat(filepath.Join(dir, "todoListState.json")); err != nil {
		t.Fatalf("expected file backend in configured dir: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "set", "backend", "redis"}); err == nil {
		t.Fatalf("expected unknown backend to be rejected")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCLI_WatchPrintsExternalChanges(t *testing.T) {
	dir := isolate(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out, errOut syncBuffer
	watch := NewRootCmd()
	watch.SetOut(&out)
	watch.SetErr(&errOut)
	watch.SetArgs([]string{"--dir", dir, "--backend", "file", "--log-level", "info", "watch"})
	done := make(chan error, 1)
	go func() { done <- watch.ExecuteContext(ctx) }()

	waitFor(t, "watch to start", func() bool { return strings.Contains(errOut.String(), "watching") })
	mustRun(t, "--dir", dir, "--backend", "file", "add", "seen by watcher")
	waitFor(t, "watch output", func() bool { return strings.Contains(out.String(), "seen by watcher") })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not stop on cancel")
	}
}

func TestCLI_PublishAndDocs(t *testing.T) {
	dir := isolate(t)
	site := filepath.Join(t.TempDir(), "site")

	mustRun(t, "--dir", dir, "add", "Plan trip", "--details", "Book hotel")
	res := mustRun(t, "--dir", dir, "publish", "--to", site).(map[string]any)
	if written, _ := res["written"].([]any); len(written) != 2 {
		t.Fatalf("publish wrote %#v", res)
	}
	b, err := os.ReadFile(filepath.Join(site, "todo.md"))
	if err != nil || !strings.Contains(string(b), "- [ ] [Plan trip](items/") {
		t.Fatalf("todo.md: %q err=%v", b, err)
	}

	topics := mustRun(t, "docs").(map[string]any)["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected docs topics")
	}
	stdout, _, err := runCLI(t, []string{"docs", "actions", "--raw"})
	if err != nil || !strings.HasPrefix(string(stdout), "# Actions") {
		t.Fatalf("docs --raw: %q err=%v", stdout, err)
	}
}

func TestCLI_DoctorReportsCorruptStorage(t *testing.T) {
	dir := isolate(t)

	mustRun(t, "--dir", dir, "--backend", "file", "add", "fine")
	rep := mustRun(t, "--dir", dir, "--backend", "file", "doctor", "--fail").(map[string]any)
	if issues, _ := rep["issues"].([]any); len(issues) != 0 {
		t.Fatalf("healthy list reported issues: %#v", rep)
	}

	if err := os.WriteFile(filepath.Join(dir, "todoListState.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := runCLI(t, []string{"--dir", dir, "--backend", "file", "doctor", "--fail"})
	if err == nil {
		t.Fatalf("expected doctor --fail to fail on corrupt storage")
	}
	// Sessions still start, with an empty list.
	if items := itemsOf(t, mustRun(t, "--dir", dir, "--backend", "file", "list")); len(items) != 0 {
		t.Fatalf("corrupt storage should load as empty; got %#v", items)
	}
}
