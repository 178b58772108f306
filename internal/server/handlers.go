package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nmmd-io/nmmd/dispatch"
	"github.com/nmmd-io/nmmd/internal/storage"
)

// registerCommands wires the built-in command set. Patterns are matched
// anchored at the start of the line, in registration order.
func (s *Server) registerCommands() error {
	commands := []struct {
		name    string
		pattern string
		fn      dispatch.HandlerFunc
	}{
		{"cmd_ping", `ping$`, s.cmdPing},
		{"cmd_status", `status$`, s.cmdStatus},
		{"cmd_help", `(?:help|\?)$`, s.cmdHelp},
		{"cmd_recent", `recent(?:\s+(\d+))?$`, s.cmdRecent},
		{"cmd_quit", `(?:quit|exit)$`, s.cmdQuit},
	}
	for _, c := range commands {
		s.Set(c.name, c.fn)
		if err := s.disp.Register(c.name, dispatch.NewInvocation(c.pattern)); err != nil {
			return err
		}
	}
	// Fallback for lines no pattern matches.
	s.Set("generic_handler", s.cmdUnknown)
	return nil
}

func (s *Server) cmdPing(_ dispatch.Invocation) (any, error) {
	return reply{text: "pong"}, nil
}

func (s *Server) cmdStatus(_ dispatch.Invocation) (any, error) {
	st := s.Stats()
	return reply{text: fmt.Sprintf(
		"up %s, %d active connection(s), %d message(s) served",
		st.Uptime, st.ActiveConns, st.Served,
	)}, nil
}

func (s *Server) cmdHelp(_ dispatch.Invocation) (any, error) {
	return reply{text: s.helpText()}, nil
}

// cmdRecent replies with the last N logged messages, default 5.
func (s *Server) cmdRecent(inv dispatch.Invocation) (any, error) {
	limit := 5
	if len(inv.Args) > 1 {
		if m, ok := inv.Args[1].(*dispatch.Match); ok && len(m.Groups) > 1 && m.Groups[1] != "" {
			n, err := strconv.Atoi(m.Groups[1])
			if err != nil {
				return nil, fmt.Errorf("recent: bad count %q", m.Groups[1])
			}
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msgs, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return reply{text: "no messages logged"}, nil
	}

	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString(" | ")
		}
		fmt.Fprintf(&b, "%s %s %q -> %s", m.ReceivedAt.Format(time.RFC3339), m.Remote, m.Text, m.Status)
	}
	return reply{text: b.String()}, nil
}

func (s *Server) cmdQuit(_ dispatch.Invocation) (any, error) {
	return reply{text: "bye", close: true, shutdown: true}, nil
}

func (s *Server) cmdUnknown(_ dispatch.Invocation) (any, error) {
	return reply{text: "unknown command; " + s.helpText(), status: storage.StatusUnknown}, nil
}

func (s *Server) helpText() string {
	return "commands: ping, status, recent [n], help, quit"
}
