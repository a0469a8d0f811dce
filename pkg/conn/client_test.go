package conn

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gridwatch/pkg/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type recorder struct {
	mu     sync.Mutex
	states []model.ConnectionState
}

func (r *recorder) hook(s model.ConnectionState) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) get() []model.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ConnectionState(nil), r.states...)
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func newManager(t *testing.T, endpoint string, h Handler, rec *recorder) *Manager {
	t.Helper()
	var buf bytes.Buffer
	m, err := New(endpoint, h, WithStateHook(rec.hook), WithLogger(log.New(&buf, "", 0)))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func sameStates(got, want []model.ConnectionState) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestNewRejectsNonWebsocketEndpoint(t *testing.T) {
	for _, ep := range []string{"http://localhost:8000/stream", "", "ws://"} {
		if _, err := New(ep, HandlerFunc(func([]byte) bool { return false })); err == nil {
			t.Fatalf("expected error for %q", ep)
		}
	}
}

func TestRunStreamThenComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for _, msg := range []string{"a", "b", "done", "late"} {
			_ = c.WriteMessage(websocket.BinaryMessage, []byte(msg))
		}
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_, _, _ = c.ReadMessage()
	}))
	defer srv.Close()

	var got []string
	rec := &recorder{}
	m := newManager(t, wsURL(srv), HandlerFunc(func(p []byte) bool {
		got = append(got, string(p))
		return string(p) == "done"
	}), rec)

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if m.State() != model.StateCompleted {
		t.Fatalf("expected Completed, got %v", m.State())
	}
	want := []model.ConnectionState{model.StateConnecting, model.StateConnected, model.StateCompleted}
	if !sameStates(rec.get(), want) {
		t.Fatalf("unexpected transitions %v", rec.get())
	}
	if strings.Join(got, ",") != "a,b,done,late" {
		t.Fatalf("handler saw %v", got)
	}
}

func TestRunNormalCloseIsDisconnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
		_, _, _ = c.ReadMessage()
	}))
	defer srv.Close()

	rec := &recorder{}
	m := newManager(t, wsURL(srv), HandlerFunc(func([]byte) bool { return false }), rec)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if m.State() != model.StateDisconnected {
		t.Fatalf("expected Disconnected, got %v", m.State())
	}
}

func TestRunAbruptCloseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = c.WriteMessage(websocket.BinaryMessage, []byte("a"))
		_ = c.UnderlyingConn().Close()
	}))
	defer srv.Close()

	rec := &recorder{}
	m := newManager(t, wsURL(srv), HandlerFunc(func([]byte) bool { return false }), rec)
	if err := m.Run(context.Background()); err == nil {
		t.Fatalf("expected read error")
	}
	want := []model.ConnectionState{model.StateConnecting, model.StateConnected, model.StateError}
	if !sameStates(rec.get(), want) {
		t.Fatalf("unexpected transitions %v", rec.get())
	}
}

func TestRunDialFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	rec := &recorder{}
	m := newManager(t, wsURL(srv), HandlerFunc(func([]byte) bool { return false }), rec)
	if err := m.Run(context.Background()); err == nil {
		t.Fatalf("expected dial error")
	}
	want := []model.ConnectionState{model.StateConnecting, model.StateError}
	if !sameStates(rec.get(), want) {
		t.Fatalf("unexpected transitions %v", rec.get())
	}
}

func TestRunCancelIsDisconnected(t *testing.T) {
	closed := make(chan int, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if ce, ok := err.(*websocket.CloseError); ok {
					closed <- ce.Code
				} else {
					closed <- -1
				}
				return
			}
		}
	}))
	defer srv.Close()

	rec := &recorder{}
	connected := make(chan struct{})
	var once sync.Once
	m, err := New(wsURL(srv), HandlerFunc(func([]byte) bool { return false }),
		WithLogger(log.New(&bytes.Buffer{}, "", 0)),
		WithStateHook(func(s model.ConnectionState) {
			rec.hook(s)
			if s == model.StateConnected {
				once.Do(func() { close(connected) })
			}
		}))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatalf("never connected")
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
	if m.State() != model.StateDisconnected {
		t.Fatalf("expected Disconnected, got %v", m.State())
	}
	select {
	case code := <-closed:
		if code != websocket.CloseNormalClosure {
			t.Fatalf("expected normal close frame, got %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server never saw the close")
	}
}

func TestTerminalStateIsSticky(t *testing.T) {
	rec := &recorder{}
	m := newManager(t, "ws://localhost:1/stream", HandlerFunc(func([]byte) bool { return false }), rec)
	m.setState(model.StateConnected)
	if !m.setState(model.StateCompleted) {
		t.Fatalf("expected Completed to apply")
	}
	if m.setState(model.StateDisconnected) || m.setState(model.StateError) {
		t.Fatalf("terminal state changed")
	}
	if m.State() != model.StateCompleted {
		t.Fatalf("expected Completed, got %v", m.State())
	}
}
