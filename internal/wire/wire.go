// Package wire encodes and decodes Wayland messages for the protocol
// bindings go-wayland does not ship, and for the test compositor.
//
// A message is an 8 byte header followed by 32-bit aligned arguments in
// host byte order:
//
//	word 0: object id
//	word 1: size in bytes (upper 16 bits) | opcode (lower 16 bits)
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size of a message header in bytes.
const HeaderSize = 8

// MaxMessageSize is the largest message libwayland accepts.
const MaxMessageSize = 4096

var byteOrder = binary.NativeEndian

// ErrShortMessage is returned when decoding runs past the end of a
// message's arguments.
var ErrShortMessage = errors.New("wire: message too short")

// Message is one request or event.
type Message struct {
	Object uint32
	Opcode uint16
	Args   []byte
}

// Size returns the encoded size of m including the header.
func (m *Message) Size() int {
	return HeaderSize + len(m.Args)
}

// AppendTo appends the encoded message to buf.
func (m *Message) AppendTo(buf []byte) []byte {
	buf = byteOrder.AppendUint32(buf, m.Object)
	buf = byteOrder.AppendUint32(buf, uint32(m.Size())<<16|uint32(m.Opcode))
	return append(buf, m.Args...)
}

// Bytes returns the encoded message.
func (m *Message) Bytes() []byte {
	return m.AppendTo(make([]byte, 0, m.Size()))
}

// DecodeHeader parses a message header.
func DecodeHeader(buf []byte) (object uint32, opcode uint16, size int) {
	object = byteOrder.Uint32(buf[0:4])
	word := byteOrder.Uint32(buf[4:8])
	return object, uint16(word & 0xFFFF), int(word >> 16)
}

// Encoder builds the argument payload of a request.
type Encoder struct {
	msg Message
}

// NewRequest starts a message to object with the given opcode.
func NewRequest(object uint32, opcode uint16) *Encoder {
	return &Encoder{msg: Message{Object: object, Opcode: opcode}}
}

// NewEvent starts an event from object. Events and requests share the
// same encoding; only the direction differs.
func NewEvent(object uint32, opcode uint16) *Encoder {
	return NewRequest(object, opcode)
}

// Uint appends an unsigned 32-bit argument.
func (e *Encoder) Uint(v uint32) *Encoder {
	e.msg.Args = byteOrder.AppendUint32(e.msg.Args, v)
	return e
}

// Int appends a signed 32-bit argument.
func (e *Encoder) Int(v int32) *Encoder {
	return e.Uint(uint32(v))
}

// Object appends an object id; 0 encodes a null object.
func (e *Encoder) Object(id uint32) *Encoder {
	return e.Uint(id)
}

// NewID appends a new_id argument of a statically known interface.
func (e *Encoder) NewID(id uint32) *Encoder {
	return e.Uint(id)
}

// String appends a string argument: length including the terminating
// NUL, the bytes, the NUL, then padding to a 4 byte boundary.
func (e *Encoder) String(s string) *Encoder {
	n := len(s) + 1
	e.Uint(uint32(n))
	e.msg.Args = append(e.msg.Args, s...)
	e.msg.Args = append(e.msg.Args, 0)
	for pad := padding(n); pad > 0; pad-- {
		e.msg.Args = append(e.msg.Args, 0)
	}
	return e
}

// Message returns the finished message.
func (e *Encoder) Message() *Message {
	return &e.msg
}

// Decoder reads arguments from an event payload. The first decoding
// error is sticky and reported by Err.
type Decoder struct {
	buf []byte
	err error
}

// NewDecoder returns a decoder over args.
func NewDecoder(args []byte) *Decoder {
	return &Decoder{buf: args}
}

// Err returns the first error encountered.
func (d *Decoder) Err() error {
	return d.err
}

// Uint reads an unsigned 32-bit argument.
func (d *Decoder) Uint() uint32 {
	if d.err != nil {
		return 0
	}
	if len(d.buf) < 4 {
		d.err = ErrShortMessage
		return 0
	}
	v := byteOrder.Uint32(d.buf)
	d.buf = d.buf[4:]
	return v
}

// Int reads a signed 32-bit argument.
func (d *Decoder) Int() int32 {
	return int32(d.Uint())
}

// Object reads an object id.
func (d *Decoder) Object() uint32 {
	return d.Uint()
}

// String reads a string argument. A zero length decodes as "".
func (d *Decoder) String() string {
	n := int(d.Uint())
	if d.err != nil || n == 0 {
		return ""
	}
	total := n + padding(n)
	if len(d.buf) < total {
		d.err = fmt.Errorf("%w: string of %d bytes", ErrShortMessage, n)
		return ""
	}
	s := string(d.buf[:n-1])
	d.buf = d.buf[total:]
	return s
}

func padding(n int) int {
	return (4 - n%4) % 4
}
