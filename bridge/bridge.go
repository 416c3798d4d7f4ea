// Package bridge exposes a field over a websocket. Hosts stream hand poses,
// audio levels, and scene changes in as JSON; every tick the bridge answers
// with a binary particle frame, and every stats window with a telemetry
// summary. Input is queued and applied at tick boundaries so hosts never
// race the simulation.
package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/driftfield/field"
	"github.com/pthm-cable/driftfield/scene"
	"github.com/pthm-cable/driftfield/telemetry"
)

const (
	tickRate    = 60
	sendBuffer  = 64
	inboxBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// outMessage is one outbound unit: a JSON header, optionally followed by a
// binary payload. Header and payload travel together so a slow client drops
// whole frames, never half of one.
type outMessage struct {
	header  []byte
	payload []byte
}

type client struct {
	conn *websocket.Conn
	send chan outMessage
}

func (c *client) writePump() {
	defer c.conn.Close()
	for m := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, m.header); err != nil {
			return
		}
		if m.payload != nil {
			if err := c.conn.WriteMessage(websocket.BinaryMessage, m.payload); err != nil {
				return
			}
		}
	}
}

// hub tracks connected clients. All membership changes and sends happen
// under one lock so a send channel is never written after it closes.
type hub struct {
	mu      sync.Mutex
	closed  bool
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

func (h *hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast queues m for every client, dropping it for clients whose send
// buffer is full.
func (h *hub) broadcast(m outMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- m:
		default:
		}
	}
}

// send queues m for one client if it is still connected.
func (h *hub) send(c *client, m outMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		select {
		case c.send <- m:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

type inbound struct {
	c   *client
	msg Message
}

// Options configures the bridge itself; the field is configured separately.
type Options struct {
	// FrameStride sends every Nth particle in outbound frames. Zero means
	// every particle.
	FrameStride int
}

// Server owns a field and drives it at the tick rate while clients are
// connected. Inbound messages are parked in an inbox and applied between
// ticks.
type Server struct {
	field  *field.Field
	stride int

	hub   *hub
	inbox chan inbound

	quit        chan struct{}
	loopDone    chan struct{}
	loopStarted atomic.Bool
	once        sync.Once
}

// NewServer builds the field from fopts and wraps it. The server installs
// its own stats broadcast; a callback already present in fopts still runs.
func NewServer(fopts field.Options, opts Options) (*Server, error) {
	stride := opts.FrameStride
	if stride < 1 {
		stride = 1
	}

	s := &Server{
		stride:   stride,
		hub:      newHub(),
		inbox:    make(chan inbound, inboxBuffer),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	userCB := fopts.StatsCallback
	fopts.StatsCallback = func(ws telemetry.WindowStats) {
		s.broadcastStats(ws)
		if userCB != nil {
			userCB(ws)
		}
	}

	f, err := field.New(fopts)
	if err != nil {
		return nil, err
	}
	s.field = f
	return s, nil
}

// Field returns the wrapped field. Callers must not mutate it while Loop is
// running.
func (s *Server) Field() *field.Field { return s.field }

// Handler returns the websocket endpoint handler.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleWS)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan outMessage, sendBuffer)}
	if !s.hub.add(c) {
		conn.Close()
		return
	}
	slog.Info("host connected", "remote", conn.RemoteAddr().String())

	go c.writePump()
	s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.remove(c)
		slog.Info("host disconnected", "remote", c.conn.RemoteAddr().String())
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("malformed message", "error", err)
			continue
		}
		select {
		case s.inbox <- inbound{c: c, msg: msg}:
		default:
			slog.Warn("inbox full, dropping message", "type", msg.Type)
		}
	}
}

// Loop runs the tick loop until Close. Each tick drains the inbox, steps the
// field by the measured wall-clock delta, and broadcasts the frame.
func (s *Server) Loop() {
	s.loopStarted.Store(true)
	defer close(s.loopDone)

	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-s.quit:
			return
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now

			s.drainInbox()
			s.field.Step(dt)
			s.broadcastFrame()
		}
	}
}

func (s *Server) drainInbox() {
	for {
		select {
		case in := <-s.inbox:
			s.apply(in)
		default:
			return
		}
	}
}

func (s *Server) apply(in inbound) {
	switch in.msg.Type {
	case MsgHands:
		s.field.SetHands(toFrame(in.msg.Hands))
	case MsgAudio:
		if in.msg.Level != nil {
			s.field.SetAudioLevel(*in.msg.Level)
		}
	case MsgScene:
		if in.msg.Scene == nil {
			return
		}
		sc, err := toScene(in.msg.Scene)
		if err != nil {
			slog.Warn("scene message", "error", err)
		}
		s.field.ApplyScene(sc)
	case MsgSceneClear:
		s.field.ClearScene()
	case MsgMode:
		m, err := scene.ParseMode(in.msg.Mode)
		if err != nil {
			slog.Warn("mode message", "error", err)
			return
		}
		s.field.SetMode(m)
	case MsgProbe:
		if in.msg.Index != nil {
			s.sendProbe(in.c, *in.msg.Index)
		}
	default:
		slog.Warn("unknown message type", "type", in.msg.Type)
	}
}

func (s *Server) sendProbe(c *client, index int) {
	reply := ProbeReply{Type: "probe", Index: index}
	if p, ok := s.field.Probe(index); ok {
		reply.Found = true
		reply.Position = [3]float32{p.Position.X, p.Position.Y, p.Position.Z}
		reply.Velocity = [3]float32{p.Velocity.X, p.Velocity.Y, p.Velocity.Z}
		reply.Home = [3]float32{p.Home.X, p.Home.Y, p.Home.Z}
		reply.Color = [3]float32{p.Color.R, p.Color.G, p.Color.B}
		reply.Size = p.Size
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	s.hub.send(c, outMessage{header: data})
}

func (s *Server) broadcastFrame() {
	if s.hub.count() == 0 {
		return
	}
	hdr, err := json.Marshal(FrameHeader{
		Type:   "frame",
		Tick:   s.field.Tick(),
		Count:  (s.field.Count() + s.stride - 1) / s.stride,
		Stride: s.stride,
	})
	if err != nil {
		return
	}
	payload := encodeFramePayload(s.field.Positions(), s.field.Colors(), s.field.Sizes(), s.stride)
	s.hub.broadcast(outMessage{header: hdr, payload: payload})
}

func (s *Server) broadcastStats(ws telemetry.WindowStats) {
	data, err := json.Marshal(StatsMessage{Type: "stats", Stats: ws})
	if err != nil {
		return
	}
	s.hub.broadcast(outMessage{header: data})
}

// ListenAndServe starts the tick loop and serves the websocket endpoint at
// /ws until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	go s.Loop()
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Handler())
	slog.Info("bridge listening", "addr", addr, "path", "/ws")
	return http.ListenAndServe(addr, mux)
}

// Close stops the loop, disconnects all clients, and closes the field.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		close(s.quit)
		if s.loopStarted.Load() {
			<-s.loopDone
		}
		s.hub.closeAll()
		err = s.field.Close()
	})
	return err
}
