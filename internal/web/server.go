// Package web serves one todo list over HTTP: a live HTML page driven by
// Datastar SSE, a JSON action endpoint and a websocket for scripted clients.
// Every connected browser tab is a subscriber of the same provider.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"todo-cli/internal/model"
	"todo-cli/internal/todo"

	"github.com/starfederation/datastar-go/datastar"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

const defaultDatastarURL = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.5/bundles/datastar.js"

const maxActionBytes = 1 << 20

// Provider is the slice of provider.Provider the server needs.
type Provider interface {
	Dispatch(ctx context.Context, a todo.Action) error
	State() model.State
	Subscribe(fn func(model.State)) (cancel func())
}

type ServerConfig struct {
	Provider Provider
	Logger   *slog.Logger

	// DatastarURL is the script the page loads (default: jsDelivr bundle).
	DatastarURL string
}

type Server struct {
	cfg    ServerConfig
	logger *slog.Logger
	tmpl   *template.Template
	hub    *hub

	closeOnce sync.Once
	unsub     func()
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Provider == nil {
		return nil, errors.New("web: provider is nil")
	}
	cfg.DatastarURL = strings.TrimSpace(cfg.DatastarURL)
	if cfg.DatastarURL == "" {
		cfg.DatastarURL = defaultDatastarURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.New("base").ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, logger: logger, tmpl: tmpl, hub: newHub()}
	s.unsub = cfg.Provider.Subscribe(func(model.State) { s.hub.broadcast() })
	return s, nil
}

// Close detaches from the provider and ends all open streams.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.unsub()
		s.hub.closeAll()
	})
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /actions", s.handleActions)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /ui/add", s.handleUIAdd)
	mux.HandleFunc("POST /ui/items/{itemId}/{op}", s.handleUIItem)
	mux.HandleFunc("GET /static/app.css", s.handleAppCSS)
	mux.HandleFunc("GET /{$}", s.handleHome)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": s.cfg.Provider.State()})
}

// handleActions accepts one {"type":...,"data":...} intent.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r) {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionBytes))
	if err != nil {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}
	if status, err := s.apply(r.Context(), raw); err != nil {
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.cfg.Provider.State()})
}

// apply decodes, validates and dispatches one intent. The returned status is
// meaningful only when err != nil.
func (s *Server) apply(ctx context.Context, raw []byte) (int, error) {
	a, err := todo.DecodeAction(raw)
	if err != nil {
		return http.StatusBadRequest, err
	}
	switch t := a.(type) {
	case todo.Add:
		err = todo.ValidateTitle(t.Title)
	case todo.Edit:
		err = todo.ValidateTitle(t.Title)
	}
	if err != nil {
		return http.StatusBadRequest, err
	}
	if err := s.cfg.Provider.Dispatch(ctx, a); err != nil {
		if errors.Is(err, todo.ErrInvalidAction) {
			return http.StatusBadRequest, err
		}
		return http.StatusInternalServerError, err
	}
	return http.StatusOK, nil
}

type itemVM struct {
	model.TodoItem
	DetailsHTML template.HTML
}

type mainVM struct {
	Items []itemVM
	Stats todo.Stats
}

type pageVM struct {
	DatastarURL string
	Main        mainVM
}

func buildMainVM(st model.State) mainVM {
	v := todo.NewView(st)
	vm := mainVM{Items: make([]itemVM, 0, v.Len()), Stats: todo.Summarize(st)}
	for _, it := range v.Items {
		vm.Items = append(vm.Items, itemVM{TodoItem: it, DetailsHTML: renderDetailsHTML(it.Details)})
	}
	return vm
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	html, err := s.renderTemplate("index.html", pageVM{
		DatastarURL: s.cfg.DatastarURL,
		Main:        buildMainVM(s.cfg.Provider.State()),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *Server) renderMain() (string, error) {
	return s.renderTemplate("main", buildMainVM(s.cfg.Provider.State()))
}

// handleEvents streams #todo-main patches: one on connect, then one per
// state change until the client goes away or the server closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ch, cancel := s.hub.subscribe()
	defer cancel()

	sse := datastar.NewSSE(w, r)
	patch := func() {
		html, err := s.renderMain()
		if err != nil {
			s.logger.Error("render main", "error", err)
			_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			return
		}
		_ = sse.PatchElements(html, datastar.WithSelector("#todo-main"), datastar.WithMode(datastar.ElementPatchModeOuter))
	}
	patch()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case _, ok := <-ch:
			if !ok {
				return
			}
			patch()
		}
	}
}

type addSignals struct {
	Title   string `json:"title"`
	Details string `json:"details"`
}

// handleUIAdd receives the page's signals from the add form.
func (s *Server) handleUIAdd(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r) {
		return
	}
	var sig addSignals
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBytes)).Decode(&sig); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	sse := datastar.NewSSE(w, r)
	if err := todo.ValidateTitle(sig.Title); err != nil {
		_ = sse.MarshalAndPatchSignals(map[string]any{"error": err.Error()})
		return
	}
	if err := s.cfg.Provider.Dispatch(r.Context(), todo.Add{Title: sig.Title, Details: sig.Details}); err != nil {
		_ = sse.MarshalAndPatchSignals(map[string]any{"error": err.Error()})
		return
	}
	_ = sse.MarshalAndPatchSignals(map[string]any{"title": "", "details": "", "error": ""})
}

// handleUIItem handles the per-row buttons: toggle, delete, up and down.
// up/down move by display row, so they are translated to a Move by id.
func (s *Server) handleUIItem(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r) {
		return
	}
	id := strings.TrimSpace(r.PathValue("itemId"))
	st := s.cfg.Provider.State()
	if _, ok := st.Find(id); !ok {
		http.NotFound(w, r)
		return
	}

	var a todo.Action
	switch r.PathValue("op") {
	case "toggle":
		a = todo.ToggleDone{ID: id}
	case "delete":
		a = todo.Delete{ID: id}
	case "up", "down":
		v := todo.NewView(st)
		row, _ := v.Row(id)
		to := row - 1
		if r.PathValue("op") == "down" {
			to = row + 1
		}
		mv, ok := v.ReorderAction(row, to)
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		a = mv
	default:
		http.NotFound(w, r)
		return
	}
	if err := s.cfg.Provider.Dispatch(r.Context(), a); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
