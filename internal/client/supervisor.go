package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"agentchat/internal/logging"
	"agentchat/internal/protocol"
	"agentchat/internal/state"
)

const (
	defaultReconnectDelay = 3 * time.Second
	defaultPingInterval   = 30 * time.Second
	writeDeadline         = 10 * time.Second
	sendBufCap            = 256
	defaultReplayCapacity = 256
)

var (
	ErrClosed         = errors.New("supervisor closed")
	ErrNotConnected   = errors.New("not connected")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Handler receives every decoded inbound frame, including frames dropped
// by the state machine while the error fence is active. Downstream
// consumers make their own filtering decisions.
type Handler func(msg *protocol.Message)

// Options configures a Supervisor. Zero values fall back to defaults.
type Options struct {
	URL            string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	ReplayCapacity int
	Logger         *logrus.Entry

	// OnStateChange fires after every reducer dispatch with the new state.
	// This is the re-render trigger for whatever owns the display.
	OnStateChange func(state.SessionState)
}

// Supervisor owns at most one live WebSocket at a time and turns its
// unordered, partially-stale frame stream into a consistent SessionState.
// It holds the error fence, drives parser → reducer → subscriber
// dispatch, and reconnects with a fixed delay after transport loss.
type Supervisor struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *logrus.Entry
	onStateChange  func(state.SessionState)

	mu        sync.Mutex
	conn      *websocket.Conn // current handle; nil while disconnected
	send      chan []byte     // outbound queue for the current handle
	dialing   bool
	closed    bool
	fenced    bool
	sess      state.SessionState
	reconnect *time.Timer

	subMu       sync.RWMutex
	subscribers map[string]Handler
	replay      *RingBuffer
}

// New creates a Supervisor. It does not connect; call Connect.
func New(opts Options) *Supervisor {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.ReplayCapacity <= 0 {
		opts.ReplayCapacity = defaultReplayCapacity
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("supervisor")
	}
	return &Supervisor{
		url:            opts.URL,
		reconnectDelay: opts.ReconnectDelay,
		pingInterval:   opts.PingInterval,
		logger:         opts.Logger,
		onStateChange:  opts.OnStateChange,
		sess:           state.New(),
		subscribers:    make(map[string]Handler),
		replay:         NewRingBuffer(opts.ReplayCapacity),
	}
}

// State returns a snapshot of the current session state.
func (s *Supervisor) State() state.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// Connect dials the backend. A call while a connection is open or a dial
// is in flight is a no-op. A failed dial schedules a reconnect attempt
// so the caller does not need its own retry loop.
func (s *Supervisor) Connect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.conn != nil || s.dialing {
		s.mu.Unlock()
		return nil
	}
	s.dialing = true
	s.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)

	s.mu.Lock()
	s.dialing = false
	if s.closed {
		s.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return ErrClosed
	}
	if err != nil {
		s.logger.WithError(err).Warn("dial failed")
		s.scheduleReconnectLocked()
		s.mu.Unlock()
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	send := make(chan []byte, sendBufCap)
	s.conn = conn
	s.send = send
	s.mu.Unlock()

	s.logger.WithField("url", s.url).Info("connected")
	go s.readPump(conn)
	go s.writePump(conn, send)
	return nil
}

// Close tears the supervisor down: cancels any pending reconnect,
// detaches the close path from the current connection, then closes it.
// The supervisor cannot be reused afterwards.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	conn := s.conn
	// Detach before closing so the read pump's exit path sees a stale
	// handle and does not dispatch or schedule a reconnect.
	s.conn = nil
	if s.send != nil {
		close(s.send)
		s.send = nil
	}
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Subscribe registers a handler for every inbound frame and replays
// recent frames so a late subscriber can catch up. Returns an id for
// Unsubscribe.
func (s *Supervisor) Subscribe(h Handler) string {
	for _, msg := range s.replay.ReadAll() {
		h(msg)
	}

	id := uuid.New().String()
	s.subMu.Lock()
	s.subscribers[id] = h
	s.subMu.Unlock()
	return id
}

// Unsubscribe removes a previously registered handler.
func (s *Supervisor) Unsubscribe(id string) {
	s.subMu.Lock()
	delete(s.subscribers, id)
	s.subMu.Unlock()
}

// readPump reads frames from one connection until it dies.
func (s *Supervisor) readPump(conn *websocket.Conn) {
	defer s.handleClose(conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debugf("websocket read error: %v", err)
			}
			return
		}
		s.handleFrame(conn, raw)
	}
}

// writePump drains the outbound queue and sends keepalive pings.
func (s *Supervisor) writePump(conn *websocket.Conn, send chan []byte) {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			ping, err := protocol.NewPing()
			if err != nil {
				continue
			}
			data, err := json.Marshal(ping)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// handleFrame decodes, classifies, and applies one inbound frame, then
// forwards the raw message to subscribers. Frames from a superseded
// connection are ignored entirely.
func (s *Supervisor) handleFrame(conn *websocket.Conn, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		// Malformed frames are not fatal and carry no state.
		s.logger.Debugf("dropping malformed frame: %v", err)
		return
	}

	s.mu.Lock()
	if s.conn != conn || s.closed {
		s.mu.Unlock()
		return
	}

	res := state.Parse(msg, s.fenced)
	if res.ResetFence {
		s.fenced = false
	}

	var snaps []state.SessionState
	dispatch := func(a state.Action) {
		s.sess = state.Reduce(s.sess, a)
		snaps = append(snaps, s.sess)
	}

	if res.Action != nil {
		if es, ok := res.Action.(state.EngineStateChanged); ok {
			if _, valid := state.ParseEngineState(es.State); !valid {
				s.logger.Warnf("protocol violation: unknown engine_state %q", es.State)
			}
		}
		dispatch(res.Action)
	}

	// Compound dispatches that need multiple reducer calls applied
	// atomically with fence changes.
	switch msg.Type {
	case protocol.TypeError:
		dispatch(state.EngineStateChanged{State: string(state.EngineIdle)})
		dispatch(state.ThinkingEnd{})
		s.fenced = true

	case protocol.TypeChatResponse:
		var p protocol.ChatResponsePayload
		if len(msg.Data) > 0 {
			json.Unmarshal(msg.Data, &p)
		}
		if p.Error != "" {
			dispatch(state.SetError{Message: p.Error})
			s.fenced = true
		}
		// Exactly one idle-reset per chat_response, fenced or not.
		dispatch(state.EngineStateChanged{State: string(state.EngineIdle)})
		dispatch(state.ThinkingEnd{})
	}

	cb := s.onStateChange
	s.mu.Unlock()

	if cb != nil {
		for _, snap := range snaps {
			cb(snap)
		}
	}

	// Raw forwarding happens even while fenced: the fence only gates
	// state-machine interpretation, not visibility.
	s.forward(msg)
}

// forward records a frame in the replay buffer and fans it out.
func (s *Supervisor) forward(msg *protocol.Message) {
	s.replay.Write(msg)

	s.subMu.RLock()
	handlers := make([]Handler, 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handlers = append(handlers, h)
	}
	s.subMu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

// handleClose runs when a connection's read pump exits. Close events from
// a handle that is no longer current are ignored: no dispatch, no
// reconnect.
func (s *Supervisor) handleClose(conn *websocket.Conn) {
	conn.Close()

	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	if s.send != nil {
		close(s.send)
		s.send = nil
	}
	s.sess = state.Reduce(s.sess, state.Disconnected{})
	snap := s.sess
	s.scheduleReconnectLocked()
	cb := s.onStateChange
	s.mu.Unlock()

	s.logger.Info("connection lost")
	if cb != nil {
		cb(snap)
	}
}

// scheduleReconnectLocked arms a single reconnect attempt, replacing any
// already-scheduled one. Caller holds s.mu.
func (s *Supervisor) scheduleReconnectLocked() {
	if s.closed {
		return
	}
	if s.reconnect != nil {
		s.reconnect.Stop()
	}
	s.reconnect = time.AfterFunc(s.reconnectDelay, func() {
		s.mu.Lock()
		if s.closed || s.conn != nil || s.dialing {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		s.Connect()
	})
}

// Send queues a wire-ready message on the current connection.
func (s *Supervisor) Send(msg *protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.send == nil {
		return ErrNotConnected
	}
	select {
	case s.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// dispatchLocal applies a client-originated action outside the frame path.
func (s *Supervisor) dispatchLocal(a state.Action) {
	s.mu.Lock()
	s.sess = state.Reduce(s.sess, a)
	snap := s.sess
	cb := s.onStateChange
	s.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// SendChat sends a chat request. Attachments are server-issued file IDs.
func (s *Supervisor) SendChat(message string, attachments []string) error {
	msg, err := protocol.NewChat(message, attachments)
	if err != nil {
		return err
	}
	return s.Send(msg)
}

// SendStop interrupts the in-flight agent turn.
func (s *Supervisor) SendStop() error {
	msg, err := protocol.NewStop()
	if err != nil {
		return err
	}
	return s.Send(msg)
}

// SwitchProvider requests a provider/model change and marks the session
// as switching until the next connected handshake.
func (s *Supervisor) SwitchProvider(provider, model string, options map[string]string) error {
	msg, err := protocol.NewSwitch(provider, model, options)
	if err != nil {
		return err
	}
	if err := s.Send(msg); err != nil {
		return err
	}
	s.dispatchLocal(state.Switching{})
	return nil
}

// RespondPermission answers a server permission prompt.
func (s *Supervisor) RespondPermission(requestID, optionID string, cancelled bool) error {
	msg, err := protocol.NewPermissionResponse(requestID, optionID, cancelled)
	if err != nil {
		return err
	}
	return s.Send(msg)
}

// ResumeSession asks the backend to resume a prior session.
func (s *Supervisor) ResumeSession(sessionID string) error {
	msg, err := protocol.NewResumeSession(sessionID)
	if err != nil {
		return err
	}
	if err := s.Send(msg); err != nil {
		return err
	}
	s.dispatchLocal(state.Switching{})
	return nil
}

// NewSession asks the backend for a fresh session.
func (s *Supervisor) NewSession() error {
	msg, err := protocol.NewNewSession()
	if err != nil {
		return err
	}
	if err := s.Send(msg); err != nil {
		return err
	}
	s.dispatchLocal(state.Switching{})
	return nil
}

// ClearHistory asks the backend to clear the server-side transcript.
func (s *Supervisor) ClearHistory() error {
	msg, err := protocol.NewClearHistory()
	if err != nil {
		return err
	}
	return s.Send(msg)
}

// ClearError dismisses a surfaced error without touching the fence.
func (s *Supervisor) ClearError() {
	s.dispatchLocal(state.ClearError{})
}
