package events

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"

	"moviedb/pkg/logging"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Server streams events to plain TCP subscribers, one JSON object per line.
type Server struct {
	Addr string
	Hub  *Hub

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Close stops accepting subscribers. Connected ones stay in the hub until
// they disconnect.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	s.ln = nil
	return err
}

// Serve accepts subscribers on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	log := logging.With("events")
	log.Info().Str("addr", ln.Addr().String()).Msg("tcp event stream listening")

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if delay == 0 {
				delay = minAcceptDelay
			} else if delay *= 2; delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			log.Warn().Err(err).Dur("retry_in", delay).Msg("tcp accept failed")
			time.Sleep(delay)
			continue
		}
		delay = 0

		if _, err := conn.Write([]byte(`{"type":"welcome","transport":"tcp"}` + "\n")); err != nil {
			_ = conn.Close()
			continue
		}
		s.Hub.Add(conn)
		log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("tcp subscriber connected")

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				log.Debug().Str("remote", c.RemoteAddr().String()).Msg("tcp subscriber disconnected")
			}()

			sc := bufio.NewScanner(c)
			for sc.Scan() {
				// incoming lines are ignored
			}
		}(conn)
	}
}
