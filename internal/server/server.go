package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nmmd-io/nmmd/dispatch"
	"github.com/nmmd-io/nmmd/internal/config"
	"github.com/nmmd-io/nmmd/internal/events"
	"github.com/nmmd-io/nmmd/internal/storage"
)

// Server is the TCP command daemon. Clients send newline-delimited commands
// and get one reply line back. Commands are routed through a pattern
// dispatcher; the Server itself is the handler owner via its embedded table.
type Server struct {
	*dispatch.HandlerTable

	cfg   config.ServerConfig
	log   *slog.Logger
	store *storage.Store
	hub   *events.Hub

	disp  *dispatch.PatternDispatcher
	bound *dispatch.Bound

	startedAt time.Time
	active    atomic.Int64
	served    atomic.Int64
	sem       chan struct{}

	ln       net.Listener
	ready    chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

// reply is what command handlers return. shutdown stops the whole daemon
// after the reply is written.
type reply struct {
	text     string
	status   string
	close    bool
	shutdown bool
}

// New builds a server with the built-in command set registered.
func New(cfg config.ServerConfig, st *storage.Store, hub *events.Hub, logger *slog.Logger) (*Server, error) {
	s := &Server{
		HandlerTable: dispatch.NewHandlerTable(),
		cfg:          cfg,
		log:          logger,
		store:        st,
		hub:          hub,
		disp:         dispatch.NewPatternDispatcher(),
		startedAt:    time.Now(),
		ready:        make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	if cfg.MaxBacklog > 0 {
		s.sem = make(chan struct{}, cfg.MaxBacklog)
	}
	if err := s.registerCommands(); err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}
	s.bound = s.disp.Bind(s)
	return s, nil
}

// Addr returns the bound listen address. Valid only after Start has opened
// the listener; callers should wait on Ready first.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Ready is closed once the listener is accepting connections.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Stop initiates shutdown. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		if s.ln != nil {
			_ = s.ln.Close()
		}
	})
}

// Start listens and serves until ctx is cancelled or a quit command arrives.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.ln = ln
	close(s.ready)
	s.log.Info("command server listening", "addr", ln.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stopped:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopped:
				s.hub.Publish(events.KindShutdown, "", nil)
				s.wg.Wait()
				s.log.Info("command server stopped",
					"served", s.served.Load(),
					"uptime", time.Since(s.startedAt).Round(time.Second).String(),
				)
				return ctx.Err()
			default:
			}
			s.log.Error("accept failed", "error", err)
			continue
		}
		if s.sem != nil {
			select {
			case s.sem <- struct{}{}:
			default:
				s.log.Warn("connection limit reached, rejecting client",
					"remote", conn.RemoteAddr().String(), "limit", s.cfg.MaxBacklog)
				_, _ = fmt.Fprintln(conn, "busy: connection limit reached")
				_ = conn.Close()
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	if s.sem != nil {
		defer func() { <-s.sem }()
	}

	connID := uuid.NewString()[:8]
	remote := conn.RemoteAddr().String()
	log := s.log.With("conn", connID, "remote", remote)

	s.active.Add(1)
	defer s.active.Add(-1)
	s.hub.Publish(events.KindConnOpened, connID, map[string]string{"remote": remote})
	defer s.hub.Publish(events.KindConnClosed, connID, nil)

	log.Debug("client connected")

	scanner := bufio.NewScanner(conn)
	for {
		if s.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
				log.Debug("client read ended", "error", err)
			}
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		rep := s.handleLine(ctx, connID, remote, line)
		if _, err := fmt.Fprintf(conn, "%s\n", rep.text); err != nil {
			log.Warn("write reply failed", "error", err)
			return
		}
		if rep.shutdown {
			log.Info("quit command received, stopping daemon")
			s.Stop()
			return
		}
		if rep.close {
			return
		}
	}
}

// handleLine routes one command line through the dispatcher, records the
// exchange, and returns the reply.
func (s *Server) handleLine(ctx context.Context, connID, remote, line string) reply {
	s.served.Add(1)
	inv := dispatch.NewInvocation(line)
	msg := storage.Message{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Remote:     remote,
		Text:       line,
	}

	cand, err := s.bound.GetMethod(inv)
	if err != nil {
		if errors.Is(err, dispatch.ErrNoMatch) {
			msg.Status = storage.StatusUnknown
			msg.Reply = s.helpText()
			s.finishLine(ctx, connID, msg, events.KindNoMatch)
			return reply{text: msg.Reply, status: msg.Status}
		}
		s.log.Error("dispatch failed", "conn", connID, "error", err)
		msg.Status = storage.StatusError
		msg.Reply = "error: internal dispatch failure"
		s.finishLine(ctx, connID, msg, events.KindHandlerErr)
		return reply{text: msg.Reply, status: msg.Status}
	}

	if cand.Name != "generic_handler" {
		msg.Command = strings.TrimPrefix(cand.Name, "cmd_")
	}

	res, err := s.bound.Apply(cand, inv)
	if err != nil {
		s.log.Error("handler failed", "conn", connID, "handler", cand.Name, "error", err)
		msg.Status = storage.StatusError
		msg.Reply = fmt.Sprintf("error: %v", err)
		s.finishLine(ctx, connID, msg, events.KindHandlerErr)
		return reply{text: msg.Reply, status: msg.Status}
	}

	rep, ok := res.(reply)
	if !ok {
		rep = reply{text: fmt.Sprint(res), status: storage.StatusOK}
	}
	if rep.status == "" {
		rep.status = storage.StatusOK
	}

	msg.Status = rep.status
	msg.Reply = rep.text
	kind := events.KindDispatched
	if rep.status == storage.StatusUnknown {
		kind = events.KindNoMatch
	}
	s.finishLine(ctx, connID, msg, kind)
	return rep
}

func (s *Server) finishLine(ctx context.Context, connID string, msg storage.Message, kind string) {
	if err := s.store.Record(ctx, msg); err != nil {
		s.log.Warn("record message failed", "error", err)
	}
	s.hub.Publish(kind, connID, map[string]string{
		"command": msg.Command,
		"status":  msg.Status,
	})
}

// Stats is a point-in-time snapshot for the status command and HTTP API.
type Stats struct {
	StartedAt   time.Time `json:"started_at"`
	Uptime      string    `json:"uptime"`
	ActiveConns int64     `json:"active_connections"`
	Served      int64     `json:"messages_served"`
}

func (s *Server) Stats() Stats {
	return Stats{
		StartedAt:   s.startedAt.UTC(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		ActiveConns: s.active.Load(),
		Served:      s.served.Load(),
	}
}
