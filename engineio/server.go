package engineio

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ramory-l/sio/internal/logging"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSlowClient    = errors.New("slow client")
)

// Close reasons passed to OnClose handlers.
const (
	ReasonServerShutdown   = "server shutdown"
	ReasonServerDisconnect = "server disconnect"
	ReasonClientClosed     = "client closed"
	ReasonReadError        = "read error"
	ReasonWriteError       = "write error"
	ReasonPingTimeout      = "ping timeout"
)

// Config holds Engine.IO server configuration
type Config struct {
	PingInterval int // milliseconds
	PingTimeout  int // milliseconds
	MaxPayload   int // bytes

	// CheckOrigin validates the websocket handshake origin. Nil accepts all.
	CheckOrigin func(r *http.Request) bool

	Logger *slog.Logger
}

// DefaultConfig returns default Engine.IO configuration
func DefaultConfig() *Config {
	return &Config{
		PingInterval: 25000, // 25 seconds
		PingTimeout:  20000, // 20 seconds
		MaxPayload:   1e6,   // 1MB
	}
}

// Server represents an Engine.IO server
type Server struct {
	config    *Config
	log       *slog.Logger
	upgrader  websocket.Upgrader
	sessions  sync.Map
	onConnect func(*Session)
}

// NewServer creates a new Engine.IO server
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &Server{
		config: config,
		log:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeHTTP handles HTTP requests and upgrades to WebSocket
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle WebSocket upgrade
	if r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "Only WebSocket transport is supported", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("engineio.upgrade", logging.Error(err))
		return
	}
	if s.config.MaxPayload > 0 {
		conn.SetReadLimit(int64(s.config.MaxPayload))
	}

	sid := uuid.NewString()
	session := NewSession(sid, conn, s)

	handshake, err := EncodeHandshake(sid, s.config.PingInterval, s.config.PingTimeout, s.config.MaxPayload)
	if err != nil {
		conn.Close()
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, handshake); err != nil {
		s.log.Debug("engineio.handshake", "sid", sid, logging.Error(err))
		conn.Close()
		return
	}

	s.sessions.Store(sid, session)
	session.addCloseHook(func(string) {
		s.sessions.Delete(sid)
	})

	session.Start()

	if s.onConnect != nil {
		s.onConnect(session)
	}
}

// OnConnect sets the connection handler
func (s *Server) OnConnect(fn func(*Session)) {
	s.onConnect = fn
}

// GetSession retrieves a session by ID
func (s *Server) GetSession(sid string) (*Session, bool) {
	val, ok := s.sessions.Load(sid)
	if !ok {
		return nil, false
	}
	return val.(*Session), true
}

// Close closes all sessions
func (s *Server) Close() {
	s.sessions.Range(func(key, value interface{}) bool {
		value.(*Session).Close(ReasonServerShutdown)
		return true
	})
}
