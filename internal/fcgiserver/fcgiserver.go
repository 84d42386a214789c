// Package fcgiserver implements the UNIX-socket FastCGI front end: one
// listener bound with an explicit backlog, net/http/fcgi's standard
// library responder running over it, and a shutdown sequence that stops
// new accepts with shutdown(SHUT_RD) before unlinking the socket path.
package fcgiserver

import (
	"fmt"
	"net"
	"net/http"
	"net/http/fcgi"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// backlog is the pending-connection queue length passed to listen(2),
// matching the front end's fixed accept-queue depth.
const backlog = 10

// Server owns one UNIX-socket listener and the FastCGI responder loop
// running over it. The zero value is not usable; construct with Listen.
type Server struct {
	path     string
	file     *os.File
	listener net.Listener

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// Listen creates (replacing any stale socket file left behind by an
// unclean exit) and binds a UNIX socket at path with the server's fixed
// backlog, ready for Serve.
func Listen(path string) (*Server, error) {
	_ = os.Remove(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("fcgiserver: socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("fcgiserver: bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("fcgiserver: listen: %w", err)
	}

	file := os.NewFile(uintptr(fd), "fcgi-socket")
	listener, err := net.FileListener(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("fcgiserver: file listener: %w", err)
	}

	return &Server{path: path, file: file, listener: listener, done: make(chan struct{})}, nil
}

// Serve runs the FastCGI responder loop, dispatching one goroutine per
// accepted connection the way net/http/fcgi's own Serve already does. It
// blocks until Shutdown closes the listener, at which point it returns
// nil instead of the Accept error Shutdown provoked.
func (s *Server) Serve(handler http.Handler) error {
	defer close(s.done)
	err := fcgi.Serve(s.listener, handler)

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil
	}
	return err
}

// Shutdown stops new connections from being accepted, unlinks the socket
// path, and waits for Serve to return. In-flight requests already handed
// to a worker goroutine are not interrupted; they finish writing their
// response on the connection they were accepted from.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	unix.Shutdown(int(s.file.Fd()), unix.SHUT_RD)
	s.listener.Close()
	s.file.Close()
	os.Remove(s.path)
	<-s.done
}
