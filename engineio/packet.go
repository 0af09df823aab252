package engineio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrEmptyPacket       = errors.New("empty packet")
	ErrInvalidPacketType = errors.New("invalid packet type")
)

// PacketType is the single-digit Engine.IO v4 frame type.
type PacketType byte

const (
	PacketTypeOpen PacketType = iota
	PacketTypeClose
	PacketTypePing
	PacketTypePong
	PacketTypeMessage
	PacketTypeUpgrade
	PacketTypeNoop
)

var packetTypeNames = [...]string{
	PacketTypeOpen:    "open",
	PacketTypeClose:   "close",
	PacketTypePing:    "ping",
	PacketTypePong:    "pong",
	PacketTypeMessage: "message",
	PacketTypeUpgrade: "upgrade",
	PacketTypeNoop:    "noop",
}

// Valid reports whether pt is a known frame type.
func (pt PacketType) Valid() bool {
	return int(pt) < len(packetTypeNames)
}

func (pt PacketType) String() string {
	if !pt.Valid() {
		return "unknown(" + strconv.Itoa(int(pt)) + ")"
	}
	return packetTypeNames[pt]
}

// Packet is one Engine.IO frame. Data is the raw payload after the type digit.
type Packet struct {
	Type PacketType
	Data []byte
}

// Encode returns the text frame for the packet.
func (p *Packet) Encode() []byte {
	return p.AppendEncode(make([]byte, 0, len(p.Data)+1))
}

// AppendEncode appends the text frame for the packet to dst.
func (p *Packet) AppendEncode(dst []byte) []byte {
	dst = append(dst, '0'+byte(p.Type))
	return append(dst, p.Data...)
}

// DecodePacket parses a text frame. The returned Data never aliases frame.
func DecodePacket(frame []byte) (*Packet, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyPacket
	}

	pt := PacketType(frame[0] - '0')
	if frame[0] < '0' || !pt.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPacketType, frame[0])
	}

	p := &Packet{Type: pt}
	if payload := frame[1:]; len(payload) > 0 {
		p.Data = append([]byte(nil), payload...)
	}
	return p, nil
}

// HandshakeData is the payload of the open packet sent after the upgrade.
type HandshakeData struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// EncodeHandshake builds the open packet for a websocket-only session.
func EncodeHandshake(sid string, pingInterval, pingTimeout, maxPayload int) ([]byte, error) {
	payload, err := json.Marshal(HandshakeData{
		SID:          sid,
		Upgrades:     []string{},
		PingInterval: pingInterval,
		PingTimeout:  pingTimeout,
		MaxPayload:   maxPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode handshake: %w", err)
	}

	return (&Packet{Type: PacketTypeOpen, Data: payload}).Encode(), nil
}
