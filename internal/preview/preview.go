// Package preview serves a read-only view of the cube over HTTP: a
// websocket frame stream and a health document.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis-cube8/internal/control"
	"github.com/coreman2200/arcaluminis-cube8/internal/cube"
	"github.com/coreman2200/arcaluminis-cube8/internal/scan"
)

// Source is what the preview reads. Stats may be nil.
type Source struct {
	Cube   *cube.Cube
	State  *control.State
	Stats  func() scan.Stats
	Driver string
}

type Frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	Mode    int    `json:"mode"`
	Paused  bool   `json:"paused"`
	Layers  []byte `json:"layers"` // cube.Frame.Bytes
}

type Server struct {
	mu        sync.RWMutex
	src       Source
	clock     clockwork.Clock
	frameID   uint64
	startTime time.Time
	clients   map[*websocket.Conn]bool
}

func New(src Source, clock clockwork.Clock) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{
		src:       src,
		clock:     clock,
		startTime: clock.Now(),
		clients:   map[*websocket.Conn]bool{},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return withCORS(mux)
}

// frame must be called with s.mu held.
func (s *Server) frame() Frame {
	return Frame{
		T:       s.clock.Now().UnixNano(),
		FrameID: s.frameID,
		Mode:    s.src.State.Mode(),
		Paused:  s.src.State.Paused(),
		Layers:  s.src.Cube.Snapshot().Bytes(),
	}
}

// HandleFramesWS sends the current frame on connect, then every broadcast.
// Anything the client sends is read and dropped.
func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	b, _ := json.Marshal(s.frame())
	conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[conn] = true
	s.mu.Unlock()
	log.Debug().Str("remote", r.RemoteAddr).Msg("preview client")

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type Health struct {
	UptimeS float64     `json:"uptime_s"`
	FrameID uint64      `json:"frame_id"`
	Mode    int         `json:"mode"`
	Paused  bool        `json:"paused"`
	Lit     int         `json:"lit"`
	Driver  string      `json:"driver"`
	Clients int         `json:"clients"`
	Scan    *scan.Stats `json:"scan,omitempty"`
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := Health{
		UptimeS: s.clock.Since(s.startTime).Seconds(),
		FrameID: s.frameID,
		Mode:    s.src.State.Mode(),
		Paused:  s.src.State.Paused(),
		Lit:     s.src.Cube.Lit(),
		Driver:  s.src.Driver,
		Clients: len(s.clients),
	}
	s.mu.RUnlock()
	if s.src.Stats != nil {
		st := s.src.Stats()
		h.Scan = &st
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h)
}

// Broadcast sends one frame to every client.
func (s *Server) Broadcast() {
	s.mu.Lock()
	s.frameID++
	b, _ := json.Marshal(s.frame())
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

// Run broadcasts fps frames a second until ctx ends.
func (s *Server) Run(ctx context.Context, fps int) {
	t := s.clock.NewTicker(time.Second / time.Duration(max(1, fps)))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			s.Broadcast()
		}
	}
}

// ListenAndServe serves Handler on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	log.Info().Str("addr", addr).Msg("preview server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
