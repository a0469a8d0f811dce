package replay

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const DefaultInterval = 100 * time.Millisecond

type ServerOption func(*Server)

// WithInterval sets the delay between frames. Zero streams without pause.
func WithInterval(d time.Duration) ServerOption {
	return func(s *Server) {
		if d >= 0 {
			s.interval = d
		}
	}
}

func WithServerLogger(l *log.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// Server replays the same item list to every websocket client.
type Server struct {
	upgrader websocket.Upgrader
	items    []Item
	interval time.Duration
	logger   *log.Logger
}

func NewServer(items []Item, opts ...ServerOption) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		items:    items,
		interval: DefaultInterval,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/stream", s.HandleStream)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// HandleStream upgrades the request and streams every item, then the
// completion message, then a normal close.
func (s *Server) HandleStream(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("ws upgrade failed remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	defer c.Close()
	s.logger.Printf("stream client connected remote=%s records=%d", r.RemoteAddr, len(s.items))

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var ticker *time.Ticker
	if s.interval > 0 {
		ticker = time.NewTicker(s.interval)
		defer ticker.Stop()
	}
	for i, it := range s.items {
		if i > 0 && ticker != nil {
			select {
			case <-ticker.C:
			case <-gone:
				s.logger.Printf("stream client disconnected remote=%s sent=%d", r.RemoteAddr, i)
				return
			case <-r.Context().Done():
				return
			}
		}
		if err := s.send(c, MapRecord(it.Record, it.Timestep, it.Source)); err != nil {
			s.logger.Printf("stream send failed remote=%s err=%v", r.RemoteAddr, err)
			return
		}
	}
	if err := s.send(c, Complete{Complete: true}); err != nil {
		s.logger.Printf("stream send failed remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	select {
	case <-gone:
	case <-time.After(2 * time.Second):
	}
	s.logger.Printf("stream complete remote=%s sent=%d", r.RemoteAddr, len(s.items))
}

func (s *Server) send(c *websocket.Conn, v interface{}) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, b)
}
