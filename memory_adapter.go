package sio

import (
	"context"
	"sync"
)

// MemoryAdapter is an in-memory implementation of the Adapter interface.
// It is also the local room registry the clustered adapters build on.
type MemoryAdapter struct {
	rooms       map[string]map[string]struct{} // room -> socketIDs
	socketRooms map[string]map[string]struct{} // socketID -> rooms
	mu          sync.RWMutex
	host        Host
}

var _ Adapter = (*MemoryAdapter)(nil)

// NewMemoryAdapter creates a new in-memory adapter
func NewMemoryAdapter(host Host) *MemoryAdapter {
	return &MemoryAdapter{
		rooms:       make(map[string]map[string]struct{}),
		socketRooms: make(map[string]map[string]struct{}),
		host:        host,
	}
}

// MemoryAdapterFactory is the default AdapterFactory.
func MemoryAdapterFactory(host Host) Adapter {
	return NewMemoryAdapter(host)
}

// Host returns the namespace the adapter delivers to
func (a *MemoryAdapter) Host() Host {
	return a.host
}

// Join adds a socket to a room and reports whether the room was created.
func (a *MemoryAdapter) Join(socketID, room string) (created bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	members := a.rooms[room]
	if members == nil {
		members = make(map[string]struct{})
		a.rooms[room] = members
		created = true
	}
	members[socketID] = struct{}{}

	if a.socketRooms[socketID] == nil {
		a.socketRooms[socketID] = make(map[string]struct{})
	}
	a.socketRooms[socketID][room] = struct{}{}

	return created
}

// Leave removes a socket from a room and reports whether the room became
// empty and was deleted.
func (a *MemoryAdapter) Leave(socketID, room string) (emptied bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rooms := a.socketRooms[socketID]; rooms != nil {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(a.socketRooms, socketID)
		}
	}

	return a.dropMember(room, socketID)
}

// LeaveAll removes a socket from every room and returns the rooms that became
// empty. The second result is false when the socket was in no room.
func (a *MemoryAdapter) LeaveAll(socketID string) (emptied []string, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rooms, ok := a.socketRooms[socketID]
	if !ok {
		return nil, false
	}

	for room := range rooms {
		if a.dropMember(room, socketID) {
			emptied = append(emptied, room)
		}
	}
	delete(a.socketRooms, socketID)

	return emptied, true
}

// dropMember must be called with mu held.
func (a *MemoryAdapter) dropMember(room, socketID string) bool {
	members, ok := a.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[socketID]; !ok {
		return false
	}
	delete(members, socketID)
	if len(members) == 0 {
		delete(a.rooms, room)
		return true
	}
	return false
}

// Add adds a socket to a room
func (a *MemoryAdapter) Add(_ context.Context, socketID, room string) error {
	a.Join(socketID, room)
	return nil
}

// Remove removes a socket from a room
func (a *MemoryAdapter) Remove(_ context.Context, socketID, room string) error {
	a.Leave(socketID, room)
	return nil
}

// RemoveAll removes a socket from all rooms
func (a *MemoryAdapter) RemoveAll(_ context.Context, socketID string) error {
	a.LeaveAll(socketID)
	return nil
}

// Sockets returns all socket IDs in a room
func (a *MemoryAdapter) Sockets(room string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return keys(a.rooms[room])
}

// SocketRooms returns all rooms a socket is in
func (a *MemoryAdapter) SocketRooms(socketID string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return keys(a.socketRooms[socketID])
}

// Rooms returns every non-empty room
func (a *MemoryAdapter) Rooms() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]string, 0, len(a.rooms))
	for room := range a.rooms {
		result = append(result, room)
	}
	return result
}

// Broadcast sends a packet to all local sockets matching opts
func (a *MemoryAdapter) Broadcast(packet *Packet, opts *BroadcastOptions) error {
	if a.host == nil {
		return nil
	}
	if opts == nil {
		opts = &BroadcastOptions{}
	}

	targets := a.targets(opts)
	if len(targets) == 0 {
		return nil
	}

	encoded, err := packet.Encode()
	if err != nil {
		return err
	}

	data := []byte(encoded)
	for _, socketID := range targets {
		// A slow or closing socket must not stop delivery to the rest.
		_ = a.host.Deliver(socketID, data)
	}

	return nil
}

func (a *MemoryAdapter) targets(opts *BroadcastOptions) []string {
	exclude := make(map[string]struct{}, len(opts.Except))
	for _, sid := range opts.Except {
		exclude[sid] = struct{}{}
	}

	seen := make(map[string]struct{})
	var result []string
	add := func(sid string) {
		if _, skip := exclude[sid]; skip {
			return
		}
		if _, dup := seen[sid]; dup {
			return
		}
		seen[sid] = struct{}{}
		result = append(result, sid)
	}

	if len(opts.Rooms) == 0 {
		for _, sid := range a.host.SocketIDs() {
			add(sid)
		}
		return result
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, room := range opts.Rooms {
		for sid := range a.rooms[room] {
			add(sid)
		}
	}
	return result
}

// Close cleans up the adapter
func (a *MemoryAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rooms = make(map[string]map[string]struct{})
	a.socketRooms = make(map[string]map[string]struct{})

	return nil
}

func keys(set map[string]struct{}) []string {
	result := make([]string, 0, len(set))
	for k := range set {
		result = append(result, k)
	}
	return result
}
