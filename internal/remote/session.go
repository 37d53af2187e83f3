package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/virtops/tunnelctl/internal/logging"
	"github.com/virtops/tunnelctl/internal/observability"
	"github.com/virtops/tunnelctl/internal/tunnel"
)

// Config describes one remote session. Daemon and Match come together or not
// at all: with a daemon the session speaks whatever protocol the daemon
// implements and Match decides when a reply is complete; without one the
// session talks to the login shell and frames replies on the exit-code
// marker.
type Config struct {
	Hostname string
	Daemon   []string
	Match    string
	Options  []string
}

// Session runs commands on one remote host over a pooled ssh tunnel. It is
// constructed once and reused across many invocations; the transport itself
// is borrowed from the pool per call. A session serializes its own
// exchanges, but two sessions sharing a pooling key must be serialized by
// the caller.
type Session struct {
	pool *tunnel.Pool
	cfg  Config
	fr   framing

	mu     sync.Mutex
	stdout string
	stderr string
	result string
}

func NewSession(pool *tunnel.Pool, cfg Config) (*Session, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: nil pool", ErrInvalidSession)
	}
	if strings.TrimSpace(cfg.Hostname) == "" {
		return nil, fmt.Errorf("%w: hostname required", ErrInvalidSession)
	}
	if (len(cfg.Daemon) == 0) != (cfg.Match == "") {
		return nil, fmt.Errorf("%w: daemon and match must be given together or not at all", ErrInvalidSession)
	}
	for i, tok := range cfg.Daemon {
		if strings.TrimSpace(tok) == "" {
			return nil, fmt.Errorf("%w: empty daemon token at index %d", ErrInvalidSession, i)
		}
	}
	for i, opt := range cfg.Options {
		if strings.TrimSpace(opt) == "" {
			return nil, fmt.Errorf("%w: empty ssh option at index %d", ErrInvalidSession, i)
		}
	}

	var fr framing = shellFraming{}
	if len(cfg.Daemon) > 0 {
		pf, err := newPatternFraming(cfg.Match)
		if err != nil {
			return nil, err
		}
		fr = pf
	}
	return &Session{pool: pool, cfg: cfg, fr: fr}, nil
}

func (s *Session) Hostname() string { return s.cfg.Hostname }

// Stdout returns everything captured on stdout during the last Run.
func (s *Session) Stdout() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stdout
}

// Stderr returns everything captured on stderr during the last Run.
func (s *Session) Stderr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stderr
}

// Result returns the last parsed result: the exit code in shell mode, the
// matched payload in daemon mode.
func (s *Session) Result() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) key() tunnel.Key {
	return tunnel.NewKey(s.cfg.Hostname, s.cfg.Daemon)
}

func (s *Session) mode() string {
	if len(s.cfg.Daemon) > 0 {
		return "daemon"
	}
	return "shell"
}

// Kill evicts the session's pooled tunnel, forcing the next Run to spawn a
// fresh one.
func (s *Session) Kill() {
	s.pool.Release(s.key())
}

// Run executes one command and returns the captured stdout. In shell mode a
// non-zero remote exit code is returned as *CommandError; in daemon mode the
// configured pattern decides completion and the matched payload lands in
// Result. A zero timeout waits forever.
func (s *Session) Run(ctx context.Context, argv []string, timeout time.Duration) (out string, err error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("%w: empty argv", ErrInvalidCommand)
	}
	for i, tok := range argv {
		if tok == "" {
			return "", fmt.Errorf("%w: empty token at argv[%d]", ErrInvalidCommand, i)
		}
	}
	if timeout < 0 {
		return "", fmt.Errorf("%w: negative timeout %s", ErrInvalidCommand, timeout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stdout, s.stderr, s.result = "", "", ""

	start := time.Now()
	defer func() {
		observability.RecordExchange(s.cfg.Hostname, s.mode(), outcomeLabel(err), time.Since(start))
	}()

	wire := s.fr.WireString(argv)
	logging.Debugf("remote.Session.Run host=%q sending=[%s]", s.cfg.Hostname, wire)

	if err := s.exchange(ctx, wire, timeout); err != nil {
		return "", err
	}
	logging.Debugf("remote.Session.Run host=%q matched=[%s]", s.cfg.Hostname, s.result)

	if len(s.cfg.Daemon) == 0 {
		if err := s.parseShellResult(wire); err != nil {
			return "", err
		}
	}
	return s.stdout, nil
}

// parseShellResult extracts the decimal exit code from the matched marker
// and converts a non-zero code into a CommandError.
func (s *Session) parseShellResult(wire string) error {
	_, code, ok := strings.Cut(s.result, "=")
	if !ok || code == "" {
		s.pool.Release(s.key())
		return fmt.Errorf("%w: output of [%s]", ErrResultParse, wire)
	}
	s.result = code
	if code != "0" {
		logging.Errorf("remote.Session command failed host=%q cmd=[%s] code=%s stdout=[%s] stderr=[%s]",
			s.cfg.Hostname, wire, code, s.stdout, s.stderr)
		return &CommandError{
			Hostname: s.cfg.Hostname,
			Command:  wire,
			Code:     code,
			Stdout:   s.stdout,
			Stderr:   s.stderr,
		}
	}
	return nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCommandTimeout):
		return "timeout"
	case isCommandError(err):
		return "command_failed"
	default:
		return "error"
	}
}

func isCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
