package redisadapter

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ramory-l/sio"
)

var errNoPacket = errors.New("envelope carries no packet")

// envelope is the unit exchanged between servers, encoded as the msgpack
// array [uid, packet, opts].
type envelope struct {
	_msgpack struct{} `msgpack:",as_array"`

	UID    string
	Packet *sio.Packet
	Opts   *sio.BroadcastOptions
}

func encodeEnvelope(uid string, packet *sio.Packet, opts *sio.BroadcastOptions) ([]byte, error) {
	b, err := msgpack.Marshal(&envelope{UID: uid, Packet: packet, Opts: opts})
	if err != nil {
		return nil, fmt.Errorf("redisadapter: encode envelope: %w", err)
	}
	return b, nil
}

func decodeEnvelope(b []byte) (*envelope, error) {
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("redisadapter: decode envelope: %w", err)
	}
	if env.Packet == nil {
		return nil, fmt.Errorf("redisadapter: decode envelope: %w", errNoPacket)
	}
	if env.Opts == nil {
		env.Opts = &sio.BroadcastOptions{}
	}
	return &env, nil
}
