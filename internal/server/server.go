// Package server implements the connection handler (C5) and accept loop
// (C7): binding the listener, one goroutine per accepted connection, and
// the three modes a connection can run in — client,
// replica feed, and follower-outbound-to-leader.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"redisd/internal/command"
	"redisd/internal/config"
	"redisd/internal/logging"
	"redisd/internal/replication"
	"redisd/internal/store"
)

// Server owns the shared state every connection handler touches and the
// listener that feeds it new connections.
type Server struct {
	Conf  *config.Config
	Store *store.Store
	Repl  *replication.Manager

	listener net.Listener
	wg       sync.WaitGroup
	ready    chan struct{}
}

// New returns a Server ready to Run.
func New(conf *config.Config, st *store.Store, repl *replication.Manager) *Server {
	return &Server{Conf: conf, Store: st, Repl: repl, ready: make(chan struct{})}
}

// Run binds the listener and accepts connections until ctx is cancelled.
// If the server is configured as a replica, it also spawns the
// follower-outbound connection to the master.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Conf.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Conf.Addr(), err)
	}
	s.listener = ln
	close(s.ready)
	logging.L().Info().Str("addr", s.Conf.Addr()).Msg("listening")

	if s.Conf.IsReplica {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runFollower(ctx)
		}()
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				logging.L().Warn().Err(err).Msg("accept failed")
				continue
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleClient(ctx, conn)
		}()
	}
}

// Shutdown closes the listener, unblocking Run's accept loop.
func (s *Server) Shutdown() {
	if s.listener != nil {
		s.listener.Close()
	}
}

// Addr blocks until the listener is bound and returns its address — used
// by tests that bind to port 0 and need the OS-assigned port.
func (s *Server) Addr() string {
	<-s.ready
	return s.listener.Addr().String()
}

// newContext bundles the shared state into the dispatcher's Context.
func (s *Server) newContext() *command.Context {
	return &command.Context{Store: s.Store, Repl: s.Repl, Conf: s.Conf}
}
