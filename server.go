package sio

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ramory-l/sio/engineio"
)

// Server represents a Socket.IO server
type Server struct {
	eio            *engineio.Server
	log            *slog.Logger
	adapterFactory AdapterFactory
	namespaces     map[string]*Namespace
	nsMu           sync.RWMutex
}

// Config represents Socket.IO server configuration
type Config struct {
	PingInterval int
	PingTimeout  int
	MaxPayload   int

	// CheckOrigin validates websocket handshakes. Nil accepts every origin.
	CheckOrigin func(r *http.Request) bool

	// Adapter builds the room adapter for each namespace. Nil selects the
	// in-memory adapter; use a clustered factory to share rooms across servers.
	Adapter AdapterFactory

	Logger *slog.Logger
}

// NewServer creates a new Socket.IO server
func NewServer(config *Config) *Server {
	if config == nil {
		config = &Config{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	eioConfig := engineio.DefaultConfig()
	if config.PingInterval > 0 {
		eioConfig.PingInterval = config.PingInterval
	}
	if config.PingTimeout > 0 {
		eioConfig.PingTimeout = config.PingTimeout
	}
	if config.MaxPayload > 0 {
		eioConfig.MaxPayload = config.MaxPayload
	}
	eioConfig.CheckOrigin = config.CheckOrigin
	eioConfig.Logger = logger

	factory := config.Adapter
	if factory == nil {
		factory = MemoryAdapterFactory
	}

	server := &Server{
		eio:            engineio.NewServer(eioConfig),
		log:            logger,
		adapterFactory: factory,
		namespaces:     make(map[string]*Namespace),
	}

	// Create default namespace
	server.Of(RootNamespace)

	server.eio.OnConnect(server.handleConnection)

	return server
}

// Of returns a namespace, creating it if it doesn't exist
func (s *Server) Of(name string) *Namespace {
	if name == "" {
		name = RootNamespace
	}

	s.nsMu.RLock()
	ns, exists := s.namespaces[name]
	s.nsMu.RUnlock()

	if exists {
		return ns
	}

	s.nsMu.Lock()
	defer s.nsMu.Unlock()

	// Double-check after acquiring write lock
	if ns, exists := s.namespaces[name]; exists {
		return ns
	}

	ns = NewNamespace(name, s)
	s.namespaces[name] = ns

	return ns
}

// OnConnect sets the connection handler for the default namespace
func (s *Server) OnConnect(handler func(*Socket)) {
	s.Of(RootNamespace).OnConnect(handler)
}

// Emit broadcasts to all clients in the default namespace
func (s *Server) Emit(event string, data ...interface{}) error {
	return s.Of(RootNamespace).Emit(event, data...)
}

// To returns a BroadcastOperator for the default namespace
func (s *Server) To(rooms ...string) *BroadcastOperator {
	return s.Of(RootNamespace).To(rooms...)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/socket.io/") {
		http.NotFound(w, r)
		return
	}

	s.eio.ServeHTTP(w, r)
}

// Close closes every connection, then every namespace adapter
func (s *Server) Close() error {
	s.eio.Close()

	s.nsMu.RLock()
	defer s.nsMu.RUnlock()

	var errs []error
	for _, ns := range s.namespaces {
		if err := ns.Adapter().Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Server) handleConnection(session *engineio.Session) {
	// Default to root namespace
	s.Of(RootNamespace).addSocket(session)
}
