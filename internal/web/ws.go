package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"todo-cli/internal/model"

	"github.com/gorilla/websocket"
)

// wsFrame is what the server pushes: the full state after every change, or
// an error for a rejected intent.
type wsFrame struct {
	State *model.State `json:"state,omitempty"`
	Error string       `json:"error,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     sameOrigin,
}

const wsWriteTimeout = 10 * time.Second

// handleWS speaks the action protocol over a websocket: every text message
// is one {"type","data"} intent; the server replies with state frames.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxActionBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	var writeMu sync.Mutex
	send := func(f wsFrame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(f)
	}
	sendState := func() error {
		st := s.cfg.Provider.State()
		return send(wsFrame{State: &st})
	}

	if err := sendState(); err != nil {
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Unblocks ReadMessage once pushing stops.
		defer conn.Close()
		s.pumpStateToWS(ctx, ch, sendState)
	}()

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if mt != websocket.TextMessage {
			continue
		}
		if _, err := s.apply(ctx, msg); err != nil {
			s.logger.Debug("ws intent rejected", "error", err)
			if send(wsFrame{Error: err.Error()}) != nil {
				break
			}
		}
	}
	cancel()
	wg.Wait()
}

func (s *Server) pumpStateToWS(ctx context.Context, ch <-chan struct{}, sendState func() error) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if err := sendState(); err != nil {
				return
			}
		}
	}
}
