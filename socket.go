package sio

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ramory-l/sio/engineio"
	"github.com/ramory-l/sio/internal/logging"
)

// Socket represents a client connection
type Socket struct {
	id           string
	session      *engineio.Session
	namespace    *Namespace
	handlers     map[string][]EventHandler
	handlersMu   sync.RWMutex
	ackID        atomic.Int64
	ackHandlers  sync.Map
	data         sync.Map
	onDisconnect []func(string)
	disconnectMu sync.RWMutex
}

// EventHandler handles Socket.IO events
type EventHandler func(...interface{})

// AckHandler handles acknowledgment responses
type AckHandler func(...interface{})

// NewSocket creates a new socket
func NewSocket(id string, session *engineio.Session, namespace *Namespace) *Socket {
	socket := &Socket{
		id:        id,
		session:   session,
		namespace: namespace,
		handlers:  make(map[string][]EventHandler),
	}

	session.OnMessage(socket.handleMessage)
	session.OnClose(socket.handleClose)

	return socket
}

// ID returns the socket ID
func (s *Socket) ID() string {
	return s.id
}

// Namespace returns the namespace the socket is connected to
func (s *Socket) Namespace() *Namespace {
	return s.namespace
}

// Emit sends an event to the client
func (s *Socket) Emit(event string, data ...interface{}) error {
	return s.sendPacket(s.eventPacket(event, data, nil))
}

// EmitWithAck sends an event and expects an acknowledgment
func (s *Socket) EmitWithAck(event string, ack AckHandler, data ...interface{}) error {
	id := int(s.ackID.Add(1))
	s.ackHandlers.Store(id, ack)

	if err := s.sendPacket(s.eventPacket(event, data, &id)); err != nil {
		s.ackHandlers.Delete(id)
		return err
	}
	return nil
}

// Broadcast returns an operator that emits to every socket in the namespace
// except this one.
func (s *Socket) Broadcast() *BroadcastOperator {
	return s.namespace.To().Except(s.id)
}

// On registers an event handler
func (s *Socket) On(event string, handler EventHandler) {
	s.handlersMu.Lock()
	s.handlers[event] = append(s.handlers[event], handler)
	s.handlersMu.Unlock()
}

// Off removes event handlers
func (s *Socket) Off(event string) {
	s.handlersMu.Lock()
	delete(s.handlers, event)
	s.handlersMu.Unlock()
}

// Join adds the socket to a room. The socket is a member even when an error
// is returned; the error means other servers may not see broadcasts to the
// room until it is joined again.
func (s *Socket) Join(room string) error {
	return s.JoinContext(context.Background(), room)
}

// JoinContext is Join with a context for the adapter's transport call
func (s *Socket) JoinContext(ctx context.Context, room string) error {
	return s.namespace.Adapter().Add(ctx, s.id, room)
}

// Leave removes the socket from a room
func (s *Socket) Leave(room string) error {
	return s.LeaveContext(context.Background(), room)
}

// LeaveContext is Leave with a context for the adapter's transport call
func (s *Socket) LeaveContext(ctx context.Context, room string) error {
	return s.namespace.Adapter().Remove(ctx, s.id, room)
}

// Rooms returns all rooms the socket is in
func (s *Socket) Rooms() []string {
	return s.namespace.Adapter().SocketRooms(s.id)
}

// Set stores arbitrary data on the socket
func (s *Socket) Set(key string, value interface{}) {
	s.data.Store(key, value)
}

// Get retrieves data from the socket
func (s *Socket) Get(key string) (interface{}, bool) {
	return s.data.Load(key)
}

// OnDisconnect registers a disconnect handler
func (s *Socket) OnDisconnect(handler func(string)) {
	s.disconnectMu.Lock()
	s.onDisconnect = append(s.onDisconnect, handler)
	s.disconnectMu.Unlock()
}

// Disconnect disconnects the socket
func (s *Socket) Disconnect() {
	s.session.Close(engineio.ReasonServerDisconnect)
}

func (s *Socket) eventPacket(event string, data []interface{}, id *int) *Packet {
	args := make([]interface{}, 0, len(data)+1)
	args = append(args, event)
	args = append(args, data...)

	return &Packet{
		Type:      PacketTypeEvent,
		Namespace: s.namespace.name,
		Data:      args,
		ID:        id,
	}
}

func (s *Socket) sendPacket(packet *Packet) error {
	encoded, err := packet.Encode()
	if err != nil {
		return err
	}

	return s.session.Send(&engineio.Packet{
		Type: engineio.PacketTypeMessage,
		Data: []byte(encoded),
	})
}

func (s *Socket) handleMessage(data []byte) {
	packet, err := DecodePacket(string(data))
	if err != nil {
		s.namespace.log.Debug("socket.decode", "sid", s.id, logging.Error(err))
		return
	}

	switch packet.Type {
	case PacketTypeEvent:
		s.handleEvent(packet)
	case PacketTypeAck:
		s.handleAck(packet)
	case PacketTypeDisconnect:
		s.Disconnect()
	}
}

func (s *Socket) handleEvent(packet *Packet) {
	dataArray, ok := packet.Data.([]interface{})
	if !ok || len(dataArray) == 0 {
		return
	}

	event, ok := dataArray[0].(string)
	if !ok {
		return
	}

	args := dataArray[1:]

	if packet.ID != nil {
		ackID := packet.ID
		ackFunc := func(ackData ...interface{}) {
			_ = s.sendPacket(&Packet{
				Type:      PacketTypeAck,
				Namespace: s.namespace.name,
				Data:      ackData,
				ID:        ackID,
			})
		}
		args = append(args, ackFunc)
	}

	s.handlersMu.RLock()
	handlers := s.handlers[event]
	s.handlersMu.RUnlock()

	for _, handler := range handlers {
		go handler(args...)
	}
}

func (s *Socket) handleAck(packet *Packet) {
	if packet.ID == nil {
		return
	}

	val, ok := s.ackHandlers.LoadAndDelete(*packet.ID)
	if !ok {
		return
	}

	handler := val.(AckHandler)

	var args []interface{}
	if dataArray, ok := packet.Data.([]interface{}); ok {
		args = dataArray
	}

	go handler(args...)
}

func (s *Socket) handleClose(reason string) {
	s.disconnectMu.RLock()
	handlers := s.onDisconnect
	s.disconnectMu.RUnlock()

	for _, handler := range handlers {
		go handler(reason)
	}

	// Leaves every room through the adapter
	s.namespace.removeSocket(s.id)
}
