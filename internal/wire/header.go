// Package wire owns the PLDM fixed-header framing primitives: the 4-byte
// header (request/response bit, instance id, PLDM type, command) and the
// message-type prefix byte added by the transport adapter before a message
// leaves the process.
package wire

import (
	"errors"
	"fmt"
)

// HeaderLen is the fixed PLDM message-header size in bytes.
const HeaderLen = 4

// MessageTypePrefix is the one-byte framing prefix the transport adapter
// adds before emission and strips on receipt (spec §4.1, §6).
const MessageTypePrefix byte = 0x01

const (
	instanceIDMask uint8 = 0x1F
	datagramBit    uint8 = 0x40
	requestBit     uint8 = 0x80
	pldmTypeMask   uint8 = 0x3F
)

var (
	ErrShortHeader  = errors.New("wire: short header")
	ErrBadPrefix    = errors.New("wire: unexpected message-type prefix")
	ErrInstanceID   = errors.New("wire: instance id out of range")
	ErrPldmType     = errors.New("wire: pldm type out of range")
)

// Header is the fixed PLDM message header.
type Header struct {
	Request    bool
	Datagram   bool
	InstanceID uint8 // 5-bit rolling field, 0..31
	PLDMType   uint8 // 6-bit field, 0..63
	Command    uint8
}

// Message is one complete PLDM message: header plus command payload.
type Message struct {
	Header  Header
	Payload []byte
}

// EncodeHeader renders h as its 4-byte wire form.
func EncodeHeader(h Header) ([]byte, error) {
	if h.InstanceID > instanceIDMask {
		return nil, fmt.Errorf("%w: %d", ErrInstanceID, h.InstanceID)
	}
	if h.PLDMType > pldmTypeMask {
		return nil, fmt.Errorf("%w: %d", ErrPldmType, h.PLDMType)
	}
	buf := make([]byte, HeaderLen)
	b0 := h.InstanceID & instanceIDMask
	if h.Request {
		b0 |= requestBit
	}
	if h.Datagram {
		b0 |= datagramBit
	}
	buf[0] = b0
	buf[1] = h.PLDMType & pldmTypeMask
	buf[2] = h.Command
	buf[3] = 0
	return buf, nil
}

// DecodeHeader parses the fixed 4-byte PLDM header.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("%w: got %d bytes", ErrShortHeader, len(b))
	}
	return Header{
		Request:    b[0]&requestBit != 0,
		Datagram:   b[0]&datagramBit != 0,
		InstanceID: b[0] & instanceIDMask,
		PLDMType:   b[1] & pldmTypeMask,
		Command:    b[2],
	}, nil
}

// EncodeMessage renders msg with its message-type prefix, as emitted on the
// wire by the transport adapter.
func EncodeMessage(msg Message) ([]byte, error) {
	head, err := EncodeHeader(msg.Header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(head)+len(msg.Payload))
	out = append(out, MessageTypePrefix)
	out = append(out, head...)
	out = append(out, msg.Payload...)
	return out, nil
}

// DecodeMessage strips the message-type prefix and parses the fixed header.
// A prefix or length mismatch is reported as ErrBadPrefix/ErrShortHeader so
// the transport adapter can fold it into its retry policy.
func DecodeMessage(raw []byte) (Message, error) {
	if len(raw) < 1+HeaderLen {
		return Message{}, fmt.Errorf("%w: got %d bytes", ErrShortHeader, len(raw))
	}
	if raw[0] != MessageTypePrefix {
		return Message{}, fmt.Errorf("%w: got 0x%02x", ErrBadPrefix, raw[0])
	}
	head, err := DecodeHeader(raw[1 : 1+HeaderLen])
	if err != nil {
		return Message{}, err
	}
	payload := raw[1+HeaderLen:]
	out := make([]byte, len(payload))
	copy(out, payload)
	return Message{Header: head, Payload: out}, nil
}
