package engineio

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	outgoingBuffer = 256
	writeWait      = 10 * time.Second
)

// Session represents an Engine.IO session
type Session struct {
	id        string
	conn      *websocket.Conn
	server    *Server
	outgoing  chan *Packet
	closeOnce sync.Once
	closed    chan struct{}

	// writeMu serializes writes; a websocket conn allows one writer.
	writeMu sync.Mutex

	mu           sync.RWMutex
	pingTimer    *time.Timer
	pingTimeout  *time.Timer
	onMessage    func([]byte)
	closeHooks   []func(string)
	lastActivity time.Time
}

// NewSession creates a new Engine.IO session
func NewSession(id string, conn *websocket.Conn, server *Server) *Session {
	return &Session{
		id:           id,
		conn:         conn,
		server:       server,
		outgoing:     make(chan *Packet, outgoingBuffer),
		closed:       make(chan struct{}),
		lastActivity: time.Now(),
	}
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// Start starts the session loops
func (s *Session) Start() {
	go s.writeLoop()
	go s.readLoop()
	s.schedulePing()
}

// Send queues a packet for the client without blocking.
func (s *Session) Send(packet *Packet) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	select {
	case s.outgoing <- packet:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	default:
		return ErrSlowClient
	}
}

// Close closes the session
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		close(s.closed)

		s.mu.Lock()
		if s.pingTimer != nil {
			s.pingTimer.Stop()
		}
		if s.pingTimeout != nil {
			s.pingTimeout.Stop()
		}
		hooks := s.closeHooks
		s.mu.Unlock()

		s.writeMu.Lock()
		_ = s.writeLocked((&Packet{Type: PacketTypeClose}).Encode())
		_ = s.conn.Close()
		s.writeMu.Unlock()

		s.server.log.Debug("engineio.session.close", "sid", s.id, "reason", reason)

		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i](reason)
		}
	})
}

// OnMessage sets the message handler
func (s *Session) OnMessage(fn func([]byte)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// OnClose registers a close handler. Handlers run once, most recent first.
func (s *Session) OnClose(fn func(string)) {
	s.addCloseHook(fn)
}

// LastActivity returns when the client last sent anything
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

func (s *Session) addCloseHook(fn func(string)) {
	s.mu.Lock()
	s.closeHooks = append(s.closeHooks, fn)
	s.mu.Unlock()
}

func (s *Session) readLoop() {
	defer s.Close(ReasonReadError)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		s.updateActivity()

		packet, err := DecodePacket(data)
		if err != nil {
			continue
		}

		s.handlePacket(packet)
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case packet := <-s.outgoing:
			if err := s.write(packet.Encode()); err != nil {
				s.Close(ReasonWriteError)
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *Session) write(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeLocked(frame)
}

// writeLocked must be called with writeMu held.
func (s *Session) writeLocked(frame []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Session) handlePacket(packet *Packet) {
	switch packet.Type {
	case PacketTypePing:
		_ = s.Send(&Packet{Type: PacketTypePong})
	case PacketTypePong:
		s.handlePong()
	case PacketTypeMessage:
		s.handleMessage(packet.Data)
	case PacketTypeClose:
		s.Close(ReasonClientClosed)
	}
}

func (s *Session) handlePong() {
	s.mu.Lock()
	if s.pingTimeout != nil {
		s.pingTimeout.Stop()
	}
	s.mu.Unlock()
	s.schedulePing()
}

func (s *Session) handleMessage(data []byte) {
	s.mu.RLock()
	handler := s.onMessage
	s.mu.RUnlock()

	if handler != nil {
		handler(data)
	}
}

func (s *Session) schedulePing() {
	interval := time.Duration(s.server.config.PingInterval) * time.Millisecond
	timer := time.AfterFunc(interval, func() {
		if s.Send(&Packet{Type: PacketTypePing}) == nil {
			s.schedulePingTimeout()
		}
	})

	s.mu.Lock()
	s.pingTimer = timer
	s.mu.Unlock()
}

func (s *Session) schedulePingTimeout() {
	timeout := time.Duration(s.server.config.PingTimeout) * time.Millisecond
	timer := time.AfterFunc(timeout, func() {
		s.Close(ReasonPingTimeout)
	})

	s.mu.Lock()
	s.pingTimeout = timer
	s.mu.Unlock()
}

func (s *Session) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}
