// Package server exposes a classroom to a browser: a websocket carrying board,
// chat and parameter updates, plus a few plain HTTP endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blackboard/entities/params"
	"blackboard/entities/shape"
	"blackboard/tools/logger"
	"blackboard/tools/surface/raster"
)

// sendBuffer is how many outbound frames a slow client may fall behind by
// before frames are dropped for it
const sendBuffer = 64

// Room is the classroom as seen from the network
type Room interface {
	Submit(text string)
	Pointer(phase string, p shape.Point, text string) error
	SelectTool(name string) error
	Slide(name string, value float64) error
	FinishPolygon() error
	Clear() error
	Export() ([]byte, error)
	Commands() []shape.Command
	Viewport() shape.Viewport
	Parameters() []params.Parameter
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Event is an outbound websocket frame
type Event struct {
	Type        string             `json:"type"`
	Primitives  json.RawMessage    `json:"primitives,omitempty"`
	Provisional any                `json:"provisional,omitempty"`
	Sender      string             `json:"sender,omitempty"`
	Content     string             `json:"content,omitempty"`
	Timestamp   *time.Time         `json:"timestamp,omitempty"`
	Parameters  []params.Parameter `json:"parameters,omitempty"`
}

// BoardEvent carries the exported primitives of the whole board and the
// primitive being dragged out, if any
func BoardEvent(primitives []byte, provisional any) Event {
	return Event{Type: "board", Primitives: json.RawMessage(primitives), Provisional: provisional}
}

// MessageEvent carries one chat or system message
func MessageEvent(sender, content string, at time.Time) Event {
	return Event{Type: "message", Sender: sender, Content: content, Timestamp: &at}
}

// ParametersEvent carries the full parameter list
func ParametersEvent(ps []params.Parameter) Event {
	if ps == nil {
		ps = []params.Parameter{}
	}
	return Event{Type: "parameters", Parameters: ps}
}

// Inbound is a frame sent by the browser. Pointer frames carry Text when the
// text or label tool places a shape.
type Inbound struct {
	Type  string  `json:"type"`
	Text  string  `json:"text,omitempty"`
	Phase string  `json:"phase,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Tool  string  `json:"tool,omitempty"`
	Name  string  `json:"name,omitempty"`
	Value float64 `json:"value,omitempty"`
}

// Server serves one room
type Server struct {
	room     Room
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	clients     map[*client]struct{}
	unsubscribe func()
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// New creates a server and subscribes it to the room's events
func New(room Room, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	s := &Server{
		room: room,
		log:  log.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	s.unsubscribe = room.Subscribe(s.broadcast)
	return s
}

// Handler returns the routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/clear", s.handleClear)
	mux.HandleFunc("/api/parameters", s.handleParameters)
	mux.HandleFunc("/api/snapshot.png", s.handleSnapshot)
	return mux
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Close()
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// Close drops every client and unsubscribes from the room
func (s *Server) Close() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[*client]struct{})
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	for c := range clients {
		c.close()
	}
}

// --- Websocket ---

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}

	// the snapshot is queued before registering so it precedes any broadcast
	if data, err := s.room.Export(); err == nil {
		s.queue(c, BoardEvent(data, nil))
	} else {
		s.log.Error("export for new client: %v", err)
	}
	s.queue(c, ParametersEvent(s.room.Parameters()))

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("client connected from %s", r.RemoteAddr)

	go s.writeLoop(c)
	s.readLoop(c)

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
	s.log.Info("client %s disconnected", r.RemoteAddr)
}

func (s *Server) readLoop(c *client) {
	for {
		var in Inbound
		if err := c.conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read: %v", err)
			}
			return
		}
		if err := s.dispatch(in); err != nil {
			s.log.Warn("%s frame: %v", in.Type, err)
			s.queue(c, MessageEvent("System", err.Error(), time.Now()))
		}
	}
}

func (s *Server) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Debug("write: %v", err)
				c.close()
				return
			}
		}
	}
}

func (s *Server) dispatch(in Inbound) error {
	switch in.Type {
	case "instruction":
		s.room.Submit(in.Text)
		return nil
	case "pointer":
		return s.room.Pointer(in.Phase, shape.Pt(in.X, in.Y), in.Text)
	case "tool":
		return s.room.SelectTool(in.Tool)
	case "slider":
		return s.room.Slide(in.Name, in.Value)
	case "finish_polygon":
		return s.room.FinishPolygon()
	}
	return fmt.Errorf("unknown frame type %q", in.Type)
}

func (s *Server) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("failed to marshal %s event: %v", ev.Type, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.push(c, data)
	}
}

func (s *Server) queue(c *client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("failed to marshal %s event: %v", ev.Type, err)
		return
	}
	s.push(c, data)
}

func (s *Server) push(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		s.log.Warn("client %s is behind, dropping frame", c.conn.RemoteAddr())
	}
}

// --- HTTP ---

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.room.Export()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="whiteboard-export.json"`)
	w.Write(data)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.room.Clear(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	ps := s.room.Parameters()
	if ps == nil {
		ps = []params.Parameter{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ps); err != nil {
		s.log.Warn("write parameters: %v", err)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	img, err := Render(s.room.Commands(), s.room.Viewport(), s.log)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := img.PNG(w); err != nil {
		s.log.Warn("write snapshot: %v", err)
	}
}

// Render draws commands onto a fresh raster canvas the size of vp. A board's
// live sequence never holds a Graph; passing one is an error.
func Render(cmds []shape.Command, vp shape.Viewport, log *logger.Logger) (*raster.Canvas, error) {
	c := raster.New(int(vp.Width), int(vp.Height), log)
	var errs []error
	for i, cmd := range cmds {
		if err := c.Add(fmt.Sprintf("snap-%d", i), cmd); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Redraw(); err != nil {
		errs = append(errs, err)
	}
	return c, errors.Join(errs...)
}
