package sio

import "context"

// RootNamespace is the namespace used when a packet or server call names none.
const RootNamespace = "/"

// Adapter is the interface for managing rooms and broadcasting.
//
// Membership calls take a context because clustered implementations talk to
// an external transport when a room appears or disappears locally. The
// returned error reports transport failures; membership is updated either way.
type Adapter interface {
	// Add adds a socket to a room
	Add(ctx context.Context, socketID, room string) error

	// Remove removes a socket from a room
	Remove(ctx context.Context, socketID, room string) error

	// RemoveAll removes a socket from all rooms
	RemoveAll(ctx context.Context, socketID string) error

	// Sockets returns all socket IDs in a room
	Sockets(room string) []string

	// SocketRooms returns all rooms a socket is in
	SocketRooms(socketID string) []string

	// Broadcast sends a packet to all sockets matching opts
	Broadcast(packet *Packet, opts *BroadcastOptions) error

	// Close cleans up the adapter
	Close() error
}

// AdapterFactory builds the adapter for one namespace.
type AdapterFactory func(host Host) Adapter

// Host is the namespace side of an adapter: it knows which sockets are
// connected locally and how to hand them encoded packets.
type Host interface {
	// Name returns the namespace name
	Name() string

	// SocketIDs returns the IDs of all locally connected sockets
	SocketIDs() []string

	// Deliver sends an encoded packet to one local socket
	Deliver(socketID string, data []byte) error
}

// BroadcastOptions select the recipients of a broadcast. An empty Rooms
// targets the whole namespace.
type BroadcastOptions struct {
	Rooms  []string `msgpack:"rooms"`
	Except []string `msgpack:"except"`
}
