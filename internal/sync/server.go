package sync

import (
	"bufio"
	"errors"
	"net"
	"sync"

	"cinehub/internal/logging"
)

// Server accepts line-oriented TCP feed subscribers.
type Server struct {
	Addr string
	Hub  *Hub

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

// Run blocks until Close is called or the listener fails. It returns nil
// after Close.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	logging.Info().Str("addr", ln.Addr().String()).Msg("tcp feed listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Warn().Err(err).Msg("tcp feed accept")
			continue
		}

		s.Hub.Add(conn)
		s.Hub.Welcome(conn)
		logging.Debug().Str("remote", conn.RemoteAddr().String()).Msg("tcp feed client connected")

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				logging.Debug().Str("remote", c.RemoteAddr().String()).Msg("tcp feed client disconnected")
			}()

			// subscribers never send anything meaningful; drain until EOF
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

// ListenAddr is the bound address once Run has started listening.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
