package web

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todo-cli/internal/model"
	"todo-cli/internal/provider"
	"todo-cli/internal/store"
	"todo-cli/internal/todo"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*Server, *provider.Provider, *httptest.Server) {
	t.Helper()

	n := 0
	r := todo.Reducer{NewID: func() (string, error) {
		n++
		return fmt.Sprintf("id-%d", n), nil
	}}
	p := provider.New(store.NewPersistence(store.NewMemory(store.AreaLocal)), provider.WithReducer(r))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	srv, err := NewServer(ServerConfig{Provider: p})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		p.Close()
	})
	return srv, p, ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	_, _, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(b)) != "ok" {
		t.Fatalf("health: %d %q", resp.StatusCode, b)
	}
}

func TestServer_ActionsDispatchAndState(t *testing.T) {
	t.Parallel()

	_, p, ts := newTestServer(t)

	resp, out := postJSON(t, ts.URL+"/actions", `{"type":"add","data":{"title":"Buy milk","details":""}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add: status %d body %#v", resp.StatusCode, out)
	}
	if p.State().Len() != 1 {
		t.Fatalf("provider not updated: %#v", p.State())
	}

	resp, out = postJSON(t, ts.URL+"/actions", `{"type":"toggleDone","data":{"id":"id-1"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle: status %d body %#v", resp.StatusCode, out)
	}

	get, err := http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatalf("GET /state: %v", err)
	}
	defer get.Body.Close()
	var env struct {
		Data model.State `json:"data"`
	}
	if err := json.NewDecoder(get.Body).Decode(&env); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	want := model.State{TodoItems: []model.TodoItem{{ID: "id-1", Title: "Buy milk", Done: true}}}
	if len(env.Data.TodoItems) != 1 || env.Data.TodoItems[0] != want.TodoItems[0] {
		t.Fatalf("state: %#v", env.Data)
	}
}

func TestServer_ActionsRejectBadIntents(t *testing.T) {
	t.Parallel()

	_, p, ts := newTestServer(t)
	for _, body := range []string{
		`{"type":"explode","data":{}}`,
		`{"type":"add","data":{"title":"   "}}`,
		`{"type":"edit","data":{"id":"x","title":""}}`,
		`not json`,
	} {
		resp, out := postJSON(t, ts.URL+"/actions", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400; got %d", body, resp.StatusCode)
		}
		if out["error"] == nil {
			t.Fatalf("%s: expected error body; got %#v", body, out)
		}
	}
	if p.State().Len() != 0 {
		t.Fatalf("rejected intents must not change state")
	}
}

func TestServer_HomeRendersItemsInDisplayOrder(t *testing.T) {
	t.Parallel()

	_, p, ts := newTestServer(t)
	ctx := context.Background()
	_ = p.Dispatch(ctx, todo.Add{Title: "Second", Details: "**bold** <script>alert(1)</script>"})
	_ = p.Dispatch(ctx, todo.Add{Title: "Finished"})
	_ = p.Dispatch(ctx, todo.ToggleDone{ID: "id-2"})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	page := string(b)

	if !strings.Contains(page, `id="todo-main"`) || !strings.Contains(page, "<strong>bold</strong>") {
		t.Fatalf("page missing main or rendered markdown:\n%s", page)
	}
	if strings.Contains(page, "<script>alert(1)</script>") {
		t.Fatalf("raw HTML in details must not pass through")
	}
	if strings.Index(page, "Second") > strings.Index(page, "Finished") {
		t.Fatalf("open items should render before done ones")
	}
	if !strings.Contains(page, "1 open · 1 done") {
		t.Fatalf("summary missing:\n%s", page)
	}
}

func TestServer_UIAddAndItemButtons(t *testing.T) {
	t.Parallel()

	_, p, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/ui/add", "application/json", strings.NewReader(`{"title":"  ","details":""}`))
	if err != nil {
		t.Fatalf("POST /ui/add: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if p.State().Len() != 0 || !strings.Contains(string(b), "error") {
		t.Fatalf("blank title should patch an error signal; got %q", b)
	}

	for _, title := range []string{"B", "A"} {
		resp, err := http.Post(ts.URL+"/ui/add", "application/json", strings.NewReader(`{"title":"`+title+`"}`))
		if err != nil {
			t.Fatalf("POST /ui/add: %v", err)
		}
		resp.Body.Close()
	}
	// Storage: A(id-2) B(id-1). Move A down => B A.
	resp, err = http.Post(ts.URL+"/ui/items/id-2/down", "application/json", nil)
	if err != nil {
		t.Fatalf("down: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("down: status %d", resp.StatusCode)
	}
	if st := p.State(); st.TodoItems[0].Title != "B" || st.TodoItems[1].Title != "A" {
		t.Fatalf("after down: %#v", st)
	}

	resp, _ = http.Post(ts.URL+"/ui/items/id-1/delete", "application/json", nil)
	resp.Body.Close()
	if p.State().Len() != 1 {
		t.Fatalf("delete: %#v", p.State())
	}

	resp, _ = http.Post(ts.URL+"/ui/items/nope/toggle", "application/json", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown item: status %d", resp.StatusCode)
	}
}

func TestServer_EventsStreamPatchesOnChange(t *testing.T) {
	t.Parallel()

	_, p, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	waitLine := func(substr string) {
		t.Helper()
		for {
			select {
			case ln, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed before %q", substr)
				}
				if strings.Contains(ln, substr) {
					return
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %q", substr)
			}
		}
	}

	waitLine("todo-main")
	if err := p.Dispatch(context.Background(), todo.Add{Title: "Walk dog"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	waitLine("Walk dog")
}

func TestServer_WebsocketIntentsAndPushes(t *testing.T) {
	t.Parallel()

	_, p, ts := newTestServer(t)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var f wsFrame
	if err := conn.ReadJSON(&f); err != nil || f.State == nil || f.State.Len() != 0 {
		t.Fatalf("initial frame: %#v err=%v", f, err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"add","data":{"title":"via ws"}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		f = wsFrame{}
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read: %v", err)
		}
		if f.State != nil && f.State.Len() == 1 {
			break
		}
	}
	if f.State.TodoItems[0].Title != "via ws" || p.State().Len() != 1 {
		t.Fatalf("unexpected state: %#v", f.State)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"nope"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		f = wsFrame{}
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read: %v", err)
		}
		if f.Error != "" {
			break
		}
	}
}

func TestServer_RejectsCrossSiteWrites(t *testing.T) {
	t.Parallel()

	_, p, ts := newTestServer(t)
	host := strings.TrimPrefix(ts.URL, "http://")
	add := `{"type":"add","data":{"title":"sneaky"}}`

	post := func(path, contentType, origin string) int {
		t.Helper()
		req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(add))
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Content-Type", contentType)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	cases := []struct {
		name, path, contentType, origin string
		want                            int
	}{
		{"foreign origin form post", "/actions", "text/plain", "http://evil.example", http.StatusForbidden},
		{"host used as subdomain", "/actions", "application/json", "http://" + host + ".evil.example", http.StatusForbidden},
		{"plain text without origin", "/actions", "text/plain", "", http.StatusUnsupportedMediaType},
		{"foreign origin ui add", "/ui/add", "application/json", "http://evil.example", http.StatusForbidden},
		{"foreign origin ui button", "/ui/items/id-1/delete", "application/json", "http://evil.example", http.StatusForbidden},
	}
	for _, tc := range cases {
		if got := post(tc.path, tc.contentType, tc.origin); got != tc.want {
			t.Fatalf("%s: status %d; want %d", tc.name, got, tc.want)
		}
	}
	if p.State().Len() != 0 {
		t.Fatalf("rejected requests changed state: %#v", p.State())
	}

	if got := post("/actions", "application/json; charset=utf-8", ts.URL); got != http.StatusOK {
		t.Fatalf("same-origin post: status %d", got)
	}
	if p.State().Len() != 1 {
		t.Fatalf("same-origin add not applied: %#v", p.State())
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://" + host + ".evil.example"}})
	if err == nil {
		t.Fatalf("expected websocket upgrade to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("websocket refusal: resp=%v err=%v", resp, err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {ts.URL}})
	if err != nil {
		t.Fatalf("same-origin dial: %v", err)
	}
	conn.Close()
}

func TestNewServer_RequiresProvider(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Fatalf("expected error without provider")
	}
}
