// Package monitor streams transmitted frames and diagnostics over websockets
// and accepts playback control.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
	diag "github.com/coreman2200/funtimes-stripdriver/internal/diagnostics"
	"github.com/coreman2200/funtimes-stripdriver/internal/led"
	"github.com/coreman2200/funtimes-stripdriver/internal/sequence"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many messages may queue for one client before new
	// ones are dropped.
	sendBuffer = 64
	// backlog is how many diagnostics a new /diag client is sent on connect.
	backlog = 32
)

type channelInfo struct {
	Handle channel.Handle `json:"handle"`
	Pin    string         `json:"pin"`
	Pixels int            `json:"pixels"`
}

// client is one websocket subscriber with its own writer goroutine.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// queue hands b to the writer without blocking. Callers hold the hub lock.
func (c *client) queue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Hub fans engine frames out to websocket clients.
type Hub struct {
	mu          sync.Mutex
	startTime   time.Time
	stats       func() led.Stats
	writeWait   time.Duration
	channels    map[channel.Handle]channelInfo
	players     map[channel.Handle]*sequence.SafePlayer
	clients     map[*client]bool
	diagClients map[*client]bool
	recent      []diag.Diagnostic
	upgrader    websocket.Upgrader
}

// New returns a hub whose /health counters come from stats, usually
// Engine.Stats. A nil stats reports zero counters.
func New(stats func() led.Stats) *Hub {
	if stats == nil {
		stats = func() led.Stats { return led.Stats{} }
	}
	return &Hub{
		startTime:   time.Now(),
		stats:       stats,
		writeWait:   writeWait,
		channels:    map[channel.Handle]channelInfo{},
		players:     map[channel.Handle]*sequence.SafePlayer{},
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// AttachPlayer exposes p to /control.
func (h *Hub) AttachPlayer(p *sequence.SafePlayer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.players[p.P.Handle()] = p
}

// OnFrame is an engine observer. It never waits on a client; frames for a
// client whose queue is full are dropped.
func (h *Hub) OnFrame(f led.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.channels[f.Handle] = channelInfo{Handle: f.Handle, Pin: f.Pin, Pixels: len(f.RGB) / 3}
	if f.Err != nil {
		h.pushLocked(diag.TransmitFailed(f))
		return
	}
	if len(h.clients) == 0 {
		return
	}
	type frame struct {
		T       int64          `json:"t"`
		FrameID uint64         `json:"frame_id"`
		Handle  channel.Handle `json:"handle"`
		RGB     []byte         `json:"rgb"`
	}
	b, _ := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: f.Seq, Handle: f.Handle, RGB: f.RGB})
	for c := range h.clients {
		c.queue(b)
	}
}

// Push sends d to every /diag client.
func (h *Hub) Push(d diag.Diagnostic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushLocked(d)
}

func (h *Hub) pushLocked(d diag.Diagnostic) {
	h.recent = append(h.recent, d)
	if len(h.recent) > backlog {
		h.recent = h.recent[len(h.recent)-backlog:]
	}
	b, _ := json.Marshal(d)
	for c := range h.diagClients {
		c.queue(b)
	}
}

// subscribe upgrades the request and keeps the client in set until the peer
// goes away or a write fails. join runs under the hub lock before the client
// is sent anything else.
func (h *Hub) subscribe(w http.ResponseWriter, r *http.Request, set map[*client]bool, join func(*client)) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if join != nil {
		join(c)
	}
	set[c] = true
	h.mu.Unlock()

	go h.write(set, c)
	go func() {
		defer h.drop(set, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) write(set map[*client]bool, c *client) {
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Str("peer", c.conn.RemoteAddr().String()).Msg("monitor write")
			h.drop(set, c)
			return
		}
	}
}

// drop removes c from set and closes it. Repeated calls are no-ops.
func (h *Hub) drop(set map[*client]bool, c *client) {
	h.mu.Lock()
	if !set[c] {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	close(c.send)
	h.mu.Unlock()
	c.conn.Close()
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	h.subscribe(w, r, h.clients, nil)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	h.subscribe(w, r, h.diagClients, func(c *client) {
		for _, d := range h.recent {
			b, _ := json.Marshal(d)
			c.queue(b)
		}
	})
}

// Control is a /control request.
type Control struct {
	Channel channel.Handle `json:"channel"`
	Action  string         `json:"action"` // start | pause | resume | stop | seek
	Tick    int            `json:"tick,omitempty"`
}

// PlayerStatus is the /control reply.
type PlayerStatus struct {
	Channel channel.Handle `json:"channel"`
	State   string         `json:"state"`
	Clip    int            `json:"clip"`
	Effect  string         `json:"effect,omitempty"`
	Error   string         `json:"error,omitempty"`
}

var (
	errNoPlayer  = errors.New("no program on channel")
	errBadAction = errors.New("unknown action")
)

func (h *Hub) applyControl(msg Control) PlayerStatus {
	st := PlayerStatus{Channel: msg.Channel}
	h.mu.Lock()
	sp, ok := h.players[msg.Channel]
	h.mu.Unlock()
	if !ok {
		st.Error = errNoPlayer.Error()
		return st
	}
	sp.With(func(p *sequence.Player) {
		switch msg.Action {
		case "start":
			p.Start()
		case "pause":
			p.Pause()
		case "resume":
			p.Resume()
		case "stop":
			p.Stop()
		case "seek":
			p.Seek(msg.Tick)
		default:
			st.Error = errBadAction.Error()
		}
		st.State = string(p.State)
		if c, idx, ok := p.Current(); ok {
			st.Clip = idx
			st.Effect = c.Effect
		}
	})
	if st.Error == "" {
		h.Push(diag.ProgramState(msg.Channel, st.State))
	}
	return st
}

func (h *Hub) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Control
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("control message")
			continue
		}
		if err := conn.WriteJSON(h.applyControl(msg)); err != nil {
			return
		}
	}
}

// Health is the /health document.
type Health struct {
	Frames   uint64        `json:"frames"`
	Errors   uint64        `json:"errors"`
	UptimeS  float64       `json:"uptime_s"`
	Channels []channelInfo `json:"channels"`
}

func (h *Hub) Health() Health {
	st := h.stats()
	h.mu.Lock()
	defer h.mu.Unlock()
	out := Health{
		Frames:   st.Frames,
		Errors:   st.Errors,
		UptimeS:  time.Since(h.startTime).Seconds(),
		Channels: make([]channelInfo, 0, len(h.channels)),
	}
	for _, c := range h.channels {
		out.Channels = append(out.Channels, c)
	}
	sort.Slice(out.Channels, func(i, j int) bool { return out.Channels[i].Handle < out.Channels[j].Handle })
	return out
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Health())
}

// Routes returns the monitor's HTTP handler.
func (h *Hub) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleFramesWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/control", h.HandleControlWS)
	mux.HandleFunc("/health", h.HandleHealth)
	return withCORS(mux)
}

// Serve listens on addr until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	log.Info().Str("addr", addr).Msg("monitor listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}
