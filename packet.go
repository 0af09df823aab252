package sio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyPacket is returned by DecodePacket for zero-length input.
	ErrEmptyPacket       = errors.New("empty packet")
	ErrInvalidPacketType = errors.New("invalid packet type")
)

// PacketType is the Socket.IO v5 packet type digit.
type PacketType int

const (
	PacketTypeConnect PacketType = iota
	PacketTypeDisconnect
	PacketTypeEvent
	PacketTypeAck
	PacketTypeConnectError
	PacketTypeBinaryEvent
	PacketTypeBinaryAck
)

var packetTypeNames = [...]string{
	PacketTypeConnect:      "connect",
	PacketTypeDisconnect:   "disconnect",
	PacketTypeEvent:        "event",
	PacketTypeAck:          "ack",
	PacketTypeConnectError: "connect_error",
	PacketTypeBinaryEvent:  "binary_event",
	PacketTypeBinaryAck:    "binary_ack",
}

func (pt PacketType) String() string {
	if pt < 0 || int(pt) >= len(packetTypeNames) {
		return "unknown"
	}
	return packetTypeNames[pt]
}

// Packet is one Socket.IO packet. The msgpack tags define its shape inside
// cluster envelopes; Encode and DecodePacket handle the client text format.
type Packet struct {
	Type      PacketType  `msgpack:"type"`
	Namespace string      `msgpack:"nsp"`
	Data      interface{} `msgpack:"data"`
	ID        *int        `msgpack:"id,omitempty"`
}

// NamespaceOrRoot returns the packet namespace, or RootNamespace when unset.
func (p *Packet) NamespaceOrRoot() string {
	if p.Namespace == "" {
		return RootNamespace
	}
	return p.Namespace
}

// Encode renders the packet as <type>[<nsp>,][<id>][<json data>]. The root
// namespace is implied and never written.
func (p *Packet) Encode() (string, error) {
	buf := make([]byte, 0, 64)
	buf = strconv.AppendInt(buf, int64(p.Type), 10)

	if nsp := p.NamespaceOrRoot(); nsp != RootNamespace {
		buf = append(buf, nsp...)
		buf = append(buf, ',')
	}
	if p.ID != nil {
		buf = strconv.AppendInt(buf, int64(*p.ID), 10)
	}
	if p.Data != nil {
		data, err := json.Marshal(p.Data)
		if err != nil {
			return "", fmt.Errorf("encode %s data: %w", p.Type, err)
		}
		buf = append(buf, data...)
	}

	return string(buf), nil
}

// DecodePacket parses the client text format. Packets without a namespace
// belong to RootNamespace.
func DecodePacket(data string) (*Packet, error) {
	if data == "" {
		return nil, ErrEmptyPacket
	}
	if data[0] < '0' || data[0] > '0'+byte(PacketTypeBinaryAck) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPacketType, data[0])
	}

	p := &Packet{
		Type:      PacketType(data[0] - '0'),
		Namespace: RootNamespace,
	}
	rest := data[1:]

	if strings.HasPrefix(rest, "/") {
		nsp, tail, found := strings.Cut(rest, ",")
		p.Namespace = nsp
		if !found {
			return p, nil
		}
		rest = tail
	}

	if digits := leadingDigits(rest); digits > 0 {
		id, err := strconv.Atoi(rest[:digits])
		if err != nil {
			return nil, fmt.Errorf("decode ack id: %w", err)
		}
		p.ID = &id
		rest = rest[digits:]
	}

	if rest != "" {
		if err := json.Unmarshal([]byte(rest), &p.Data); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", p.Type, err)
		}
	}

	return p, nil
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
