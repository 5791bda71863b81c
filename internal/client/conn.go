package client

import (
	"errors"
	"fmt"
	"reflect"
	"syscall"
	"unsafe"

	wl "github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"
)

// socketFD returns the descriptor of the socket behind ctx so the event
// loop can wait on it next to its other sources. go-wayland keeps the
// connection in an unexported field; the first field that is a
// syscall.Conn is taken to be it.
func socketFD(ctx *wl.Context) (int, error) {
	v := reflect.ValueOf(ctx).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() != reflect.Pointer && f.Kind() != reflect.Interface {
			continue
		}
		if f.IsNil() {
			continue
		}
		field := reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem().Interface()
		sc, ok := field.(syscall.Conn)
		if !ok {
			continue
		}
		raw, err := sc.SyscallConn()
		if err != nil {
			return -1, fmt.Errorf("compositor socket: %w", err)
		}
		fd := -1
		if err := raw.Control(func(s uintptr) { fd = int(s) }); err != nil {
			return -1, fmt.Errorf("compositor socket: %w", err)
		}
		return fd, nil
	}
	return -1, errors.New("compositor socket: no connection in wayland context")
}

// readable reports whether fd has input waiting, without blocking.
func readable(fd int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && fds[0].Revents&pollReadable != 0, nil
	}
}
