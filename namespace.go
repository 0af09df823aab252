package sio

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ramory-l/sio/engineio"
	"github.com/ramory-l/sio/internal/logging"
)

// Namespace represents a Socket.IO namespace. It is the Host its adapter
// delivers through.
type Namespace struct {
	name      string
	server    *Server
	log       *slog.Logger
	adapter   Adapter
	sockets   map[string]*Socket
	mu        sync.RWMutex
	onConnect func(*Socket)
}

var _ Host = (*Namespace)(nil)

// NewNamespace creates a new namespace
func NewNamespace(name string, server *Server) *Namespace {
	ns := &Namespace{
		name:    name,
		server:  server,
		log:     server.log.With("nsp", name),
		sockets: make(map[string]*Socket),
	}

	ns.adapter = server.adapterFactory(ns)

	return ns
}

// Name returns the namespace name
func (ns *Namespace) Name() string {
	return ns.name
}

// Adapter returns the adapter managing this namespace's rooms
func (ns *Namespace) Adapter() Adapter {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.adapter
}

// OnConnect sets the connection handler for this namespace
func (ns *Namespace) OnConnect(handler func(*Socket)) {
	ns.onConnect = handler
}

// To returns a BroadcastOperator for emitting to specific rooms
func (ns *Namespace) To(rooms ...string) *BroadcastOperator {
	return &BroadcastOperator{
		namespace: ns,
		rooms:     rooms,
	}
}

// Emit broadcasts an event to all sockets in the namespace
func (ns *Namespace) Emit(event string, data ...interface{}) error {
	return ns.To().Emit(event, data...)
}

// Sockets returns all connected sockets
func (ns *Namespace) Sockets() []*Socket {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	sockets := make([]*Socket, 0, len(ns.sockets))
	for _, socket := range ns.sockets {
		sockets = append(sockets, socket)
	}
	return sockets
}

// SocketIDs returns the IDs of all locally connected sockets
func (ns *Namespace) SocketIDs() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	ids := make([]string, 0, len(ns.sockets))
	for id := range ns.sockets {
		ids = append(ids, id)
	}
	return ids
}

// GetSocket retrieves a socket by ID
func (ns *Namespace) GetSocket(id string) (*Socket, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	socket, ok := ns.sockets[id]
	return socket, ok
}

// Deliver sends an encoded packet to one local socket
func (ns *Namespace) Deliver(socketID string, data []byte) error {
	socket, ok := ns.GetSocket(socketID)
	if !ok {
		return nil
	}

	return socket.session.Send(&engineio.Packet{
		Type: engineio.PacketTypeMessage,
		Data: data,
	})
}

// SetAdapter replaces the adapter, closing the previous one
func (ns *Namespace) SetAdapter(adapter Adapter) {
	ns.mu.Lock()
	prev := ns.adapter
	ns.adapter = adapter
	ns.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			ns.log.Warn("namespace.adapter.close", logging.Error(err))
		}
	}
}

func (ns *Namespace) addSocket(session *engineio.Session) {
	socket := NewSocket(session.ID(), session, ns)

	ns.mu.Lock()
	ns.sockets[socket.ID()] = socket
	ns.mu.Unlock()

	// Auto-join own room
	if err := socket.Join(socket.ID()); err != nil {
		ns.log.Warn("namespace.join", "sid", socket.ID(), logging.Error(err))
	}

	connectPacket := &Packet{
		Type:      PacketTypeConnect,
		Namespace: ns.name,
		Data:      map[string]interface{}{"sid": socket.ID()},
	}
	if err := socket.sendPacket(connectPacket); err != nil {
		ns.log.Debug("namespace.connect", "sid", socket.ID(), logging.Error(err))
	}

	if ns.onConnect != nil {
		ns.onConnect(socket)
	}
}

func (ns *Namespace) removeSocket(id string) {
	ns.mu.Lock()
	delete(ns.sockets, id)
	ns.mu.Unlock()

	if err := ns.Adapter().RemoveAll(context.Background(), id); err != nil {
		ns.log.Warn("namespace.leave_all", "sid", id, logging.Error(err))
	}
}

// BroadcastOperator provides methods for broadcasting to specific rooms
type BroadcastOperator struct {
	namespace *Namespace
	rooms     []string
	except    []string
}

// To adds rooms to broadcast to
func (b *BroadcastOperator) To(rooms ...string) *BroadcastOperator {
	b.rooms = append(b.rooms, rooms...)
	return b
}

// Except excludes specific socket IDs from the broadcast
func (b *BroadcastOperator) Except(socketIDs ...string) *BroadcastOperator {
	b.except = append(b.except, socketIDs...)
	return b
}

// Emit broadcasts an event through the namespace adapter, reaching every
// server in the cluster when the adapter is a clustered one.
func (b *BroadcastOperator) Emit(event string, data ...interface{}) error {
	args := make([]interface{}, 0, len(data)+1)
	args = append(args, event)
	args = append(args, data...)

	packet := &Packet{
		Type:      PacketTypeEvent,
		Namespace: b.namespace.name,
		Data:      args,
	}

	return b.namespace.Adapter().Broadcast(packet, &BroadcastOptions{
		Rooms:  b.rooms,
		Except: b.except,
	})
}
