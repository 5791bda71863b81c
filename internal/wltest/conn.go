package wltest

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"github.com/1broseidon/hyprbar/internal/wire"
)

// maxFDsPerRead matches libwayland's MAX_FDS_OUT; the control buffer is
// sized for that many descriptors.
const maxFDsPerRead = 28

var errClosed = errors.New("wltest: use of closed connection")

// conn is the compositor end of a client connection. Events are queued
// by send and written by flush; incoming bytes are buffered by fill and
// split into requests by next.
type conn struct {
	fd int

	out []byte

	in    []byte
	inFDs []int

	closed bool
}

func newConn(fd int) *conn {
	return &conn{fd: fd}
}

func (c *conn) send(m *wire.Message) {
	if !c.closed {
		c.out = m.AppendTo(c.out)
	}
}

func (c *conn) flush() error {
	if c.closed {
		return errClosed
	}
	for len(c.out) > 0 {
		n, err := unix.SendmsgN(c.fd, c.out, nil, nil, unix.MSG_NOSIGNAL)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("sendmsg: %w", err)
		}
		c.out = c.out[n:]
	}
	c.out = c.out[:0]
	return nil
}

// fill performs one blocking read and buffers whatever arrived. It
// returns io.EOF when the client has closed the connection.
func (c *conn) fill() error {
	if c.closed {
		return errClosed
	}
	buf := make([]byte, wire.MaxMessageSize)
	oob := make([]byte, unix.CmsgSpace(maxFDsPerRead*4))
	for {
		n, oobn, _, _, err := unix.Recvmsg(c.fd, buf, oob, unix.MSG_CMSG_CLOEXEC)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("recvmsg: %w", err)
		}
		if oobn > 0 {
			fds, err := parseRights(oob[:oobn])
			if err != nil {
				return err
			}
			c.inFDs = append(c.inFDs, fds...)
		}
		if n == 0 {
			return io.EOF
		}
		c.in = append(c.in, buf[:n]...)
		return nil
	}
}

func parseRights(oob []byte) ([]int, error) {
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("parse control message: %w", err)
	}
	var fds []int
	for i := range scms {
		rights, err := unix.ParseUnixRights(&scms[i])
		if err != nil {
			continue
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

// next returns the next complete buffered request. ok is false when the
// buffer holds no complete message.
func (c *conn) next() (msg wire.Message, ok bool, err error) {
	if len(c.in) < wire.HeaderSize {
		return wire.Message{}, false, nil
	}
	object, opcode, size := wire.DecodeHeader(c.in)
	if size < wire.HeaderSize || size > wire.MaxMessageSize {
		return wire.Message{}, false, fmt.Errorf("invalid message size %d for object %d", size, object)
	}
	if len(c.in) < size {
		return wire.Message{}, false, nil
	}
	msg = wire.Message{
		Object: object,
		Opcode: opcode,
		Args:   append([]byte(nil), c.in[wire.HeaderSize:size]...),
	}
	c.in = c.in[size:]
	if len(c.in) == 0 {
		c.in = nil
	}
	return msg, true, nil
}

// takeFD pops the oldest received descriptor.
func (c *conn) takeFD() (int, bool) {
	if len(c.inFDs) == 0 {
		return -1, false
	}
	fd := c.inFDs[0]
	c.inFDs = c.inFDs[1:]
	return fd, true
}

func (c *conn) discardFDs() {
	for _, fd := range c.inFDs {
		unix.Close(fd)
	}
	c.inFDs = nil
}

func (c *conn) close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.discardFDs()
	return unix.Close(c.fd)
}
