// Package server implements the TCP game server
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"rats/internal/game"
	"rats/pkg/logger"
)

// Config holds the server settings
type Config struct {
	MaxConns     int
	Message      string
	WriteTimeout time.Duration
	MailboxSize  int
	Rules        game.Rules
	Dealer       *game.Dealer
}

func (c Config) withDefaults() Config {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = 256
	}
	return c
}

// Server accepts connections and runs one session per admitted client
type Server struct {
	cfg       Config
	hub       *Hub
	admission *Admission
	sessions  sync.WaitGroup
	logger    *logger.Logger
}

// NewServer creates a new server instance
func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		cfg:       cfg,
		hub:       NewHub(cfg.MaxConns, cfg.Rules, cfg.Dealer),
		admission: NewAdmission(cfg.MaxConns),
		logger:    logger.Server,
	}
}

// Hub returns the shared server state
func (s *Server) Hub() *Hub {
	return s.hub
}

// Serve accepts connections on ln until ctx is done or ln fails. On return
// every session has been closed and has finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.shutdown()

	s.logger.Info("Server listening on %s (max %d connections)", ln.Addr(), s.cfg.MaxConns)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("Accept: %v", err)
				continue
			}
			return err
		}

		ticket, ok := s.admission.TryAcquire()
		if !ok {
			s.logger.Warn("Connection limit reached, refusing %s", conn.RemoteAddr())
			conn.Close()
			continue
		}

		session := newSession(conn, s.hub, s.cfg)
		s.hub.Register(session)

		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			defer ticket.Release()
			session.Run(ctx)
		}()
	}
}

func (s *Server) shutdown() {
	s.hub.CloseAll()
	s.sessions.Wait()
	s.logger.Info("Server stopped")
}
