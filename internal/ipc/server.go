package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"
)

// StatusProvider reports the live state of the bars. It is called on the
// goroutine that calls ServeOne.
type StatusProvider interface {
	Status() StatusData
}

// requestTimeout bounds how long a single client may hold the event loop.
const requestTimeout = time.Second

// Server answers control requests on a unix socket. It does not run its
// own goroutine: the owner polls Fd for readability and calls ServeOne,
// which handles exactly one connection.
type Server struct {
	socketPath string
	listener   *net.UnixListener
	fd         int
	status     StatusProvider
	startTime  time.Time
	logger     *slog.Logger
}

// NewServer creates a new IPC server
func NewServer(socketPath string, status StatusProvider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		socketPath: socketPath,
		fd:         -1,
		status:     status,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	// Remove a stale socket left by a previous run.
	os.Remove(s.socketPath)

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: s.socketPath, Net: "unix"})
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		s.Stop()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	raw, err := listener.SyscallConn()
	if err != nil {
		s.Stop()
		return fmt.Errorf("failed to access IPC socket: %w", err)
	}
	if err := raw.Control(func(fd uintptr) { s.fd = int(fd) }); err != nil {
		s.Stop()
		return fmt.Errorf("failed to access IPC socket: %w", err)
	}

	s.logger.Info("control socket listening", "path", s.socketPath)
	return nil
}

// Fd returns the listening socket's descriptor for poll(2), or -1 when the
// server is not listening.
func (s *Server) Fd() int {
	return s.fd
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// ServeOne accepts a pending connection and answers its request. If no
// connection is pending it returns nil without blocking for long.
func (s *Server) ServeOne() error {
	if s.listener == nil {
		return errors.New("IPC server is not listening")
	}
	s.listener.SetDeadline(time.Now().Add(10 * time.Millisecond))
	conn, err := s.listener.Accept()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil
		}
		return fmt.Errorf("IPC accept: %w", err)
	}
	s.handleConnection(conn)
	return nil
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(requestTimeout))

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	// Parse request
	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}
	s.logger.Debug("control request", "command", req.Command)

	// Handle command
	resp := s.handleCommand(req)

	// Send response
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandPing:
		resp, _ := NewOKResponse(PongData{PID: os.Getpid()})
		return resp
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleGetStatus returns the current bar status
func (s *Server) handleGetStatus() *Response {
	status := s.status.Status()
	status.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
	if status.Bars == nil {
		status.Bars = []BarStatus{}
	}

	resp, err := NewOKResponse(status)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop closes the listener and removes the socket file
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
	s.fd = -1
	os.Remove(s.socketPath)
}
