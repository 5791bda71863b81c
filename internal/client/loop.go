package client

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/1broseidon/hyprbar/internal/errdefs"
)

const pollReadable = unix.POLLIN | unix.POLLHUP | unix.POLLERR

// Run is the event loop. Each pass waits for the compositor, the control
// socket or stdin, dispatches every compositor event that has arrived and
// then repaints every configured bar in the order they were added.
// Requests are written as they are made, so nothing is left to flush
// before the wait. Run returns when the connection fails or a bar cannot
// be painted.
func (c *Client) Run() error {
	stdin := -1
	if c.opts.Stdin != nil {
		stdin = int(c.opts.Stdin.Fd())
	}

	for {
		fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
		controlIdx, stdinIdx := -1, -1
		if c.control != nil {
			controlIdx = len(fds)
			fds = append(fds, unix.PollFd{Fd: int32(c.control.Fd()), Events: unix.POLLIN})
		}
		if stdin >= 0 {
			stdinIdx = len(fds)
			fds = append(fds, unix.PollFd{Fd: int32(stdin), Events: unix.POLLIN})
		}

		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return &errdefs.ConnectionError{Op: "poll", Err: err}
		}

		if fds[0].Revents&pollReadable != 0 {
			if err := c.dispatchPending(); err != nil {
				return &errdefs.ConnectionError{Op: "dispatch", Err: err}
			}
			if c.err != nil {
				return c.err
			}
		}
		if controlIdx >= 0 && fds[controlIdx].Revents&unix.POLLIN != 0 {
			if err := c.control.ServeOne(); err != nil {
				c.logger.Warn("control request failed", "error", err)
			}
		}
		if stdinIdx >= 0 && fds[stdinIdx].Revents&pollReadable != 0 {
			if !drain(stdin) {
				c.logger.Debug("stdin closed")
				stdin = -1
			}
		}

		if err := c.repaint(); err != nil {
			return err
		}
	}
}

// dispatchPending handles one event and then every further event that
// can be read without blocking.
func (c *Client) dispatchPending() error {
	for {
		if err := c.dispatch(); err != nil {
			return err
		}
		if c.err != nil {
			return nil
		}
		more, err := readable(c.fd)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// repaint paints every configured bar that is still open.
func (c *Client) repaint() error {
	for _, e := range c.bars {
		if !e.bar.Active() {
			continue
		}
		if err := e.bar.Paint(c.buffers); err != nil {
			return err
		}
	}
	return nil
}

// drain reads and discards what is waiting on fd. It reports false once
// the other end is closed.
func drain(fd int) bool {
	var buf [4096]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err == nil && n > 0
	}
}
