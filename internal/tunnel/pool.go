package tunnel

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/virtops/tunnelctl/internal/logging"
	"github.com/virtops/tunnelctl/internal/observability"
)

var ErrHostnameRequired = errors.New("tunnel: hostname required")

// Config controls how the pool invokes the external ssh client. Tests
// substitute /bin/sh to exercise the full subprocess path without a network.
type Config struct {
	ClientPath string
	ClientArgs []string
}

func DefaultConfig() Config {
	return Config{
		ClientPath: "ssh",
		ClientArgs: []string{"-x", "-T", "-oBatchMode=yes"},
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.ClientPath) == "" {
		c.ClientPath = def.ClientPath
	}
	if c.ClientArgs == nil {
		c.ClientArgs = def.ClientArgs
	}
	return c
}

// Pool is a registry of transports keyed by destination. Acquire returns the
// pooled transport for a key or spawns one; Release kills and forgets it.
// The registry is guarded, so sessions with distinct keys may be driven from
// independent goroutines. Request/response traffic on a single key is the
// caller's to serialize.
type Pool struct {
	cfg     Config
	verbose atomic.Bool

	mu      sync.Mutex
	tunnels map[Key]*Transport
}

func NewPool(cfg Config) *Pool {
	return &Pool{
		cfg:     cfg.WithDefaults(),
		tunnels: make(map[Key]*Transport),
	}
}

// EnableVerbose makes every subsequently spawned transport request maximum
// ssh debug verbosity. Already-open tunnels are unaffected.
func (p *Pool) EnableVerbose() {
	p.verbose.Store(true)
}

// Acquire returns the live transport registered for the key, spawning and
// registering one when absent. It never waits for the remote side to become
// ready; readiness is established by the caller's first exchange.
func (p *Pool) Acquire(hostname string, daemon, options []string) (*Transport, error) {
	if strings.TrimSpace(hostname) == "" {
		return nil, ErrHostnameRequired
	}
	key := NewKey(hostname, daemon)

	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.tunnels[key]; ok {
		logging.Debugf("tunnel.Pool.Acquire reuse key=%q pid=%d", key, t.PID())
		return t, nil
	}

	argv := p.buildArgv(hostname, daemon, options)
	logging.Debugf("tunnel.Pool.Acquire spawn key=%q argv=[%s]", key, strings.Join(argv, " "))
	t, err := spawn(key, argv)
	if err != nil {
		return nil, err
	}
	p.tunnels[key] = t
	observability.RecordTunnelSpawn(hostname)
	observability.SetOpenTunnels(len(p.tunnels))
	return t, nil
}

// buildArgv composes the client invocation: base args disabling interactive
// prompts and pty allocation, the verbosity flag, caller options, the
// destination, and any daemon command appended as trailing arguments.
func (p *Pool) buildArgv(hostname string, daemon, options []string) []string {
	argv := make([]string, 0, 1+len(p.cfg.ClientArgs)+1+len(options)+1+len(daemon))
	argv = append(argv, p.cfg.ClientPath)
	argv = append(argv, p.cfg.ClientArgs...)
	if p.verbose.Load() {
		argv = append(argv, "-vvv")
	}
	argv = append(argv, options...)
	argv = append(argv, hostname)
	argv = append(argv, daemon...)
	return argv
}

// Release kills the transport registered under key, if any, and removes the
// registry entry. Kill failures are logged, not returned; the entry is gone
// either way. Releasing an absent key is a no-op.
func (p *Pool) Release(key Key) {
	p.mu.Lock()
	t, ok := p.tunnels[key]
	if ok {
		delete(p.tunnels, key)
	}
	open := len(p.tunnels)
	p.mu.Unlock()
	if !ok {
		return
	}

	logging.Debugf("tunnel.Pool.Release key=%q pid=%d", key, t.PID())
	if err := t.Kill(); err != nil {
		logging.Warnf("tunnel.Pool.Release kill failed key=%q err=%v", key, err)
	}
	observability.RecordTunnelEviction(key.Hostname)
	observability.SetOpenTunnels(open)
}

// Lookup returns the registered transport for key without spawning.
func (p *Pool) Lookup(key Key) (*Transport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tunnels[key]
	return t, ok
}

// Status is one pooled transport as reported by Snapshot.
type Status struct {
	Hostname string `json:"hostname"`
	Daemon   string `json:"daemon,omitempty"`
	PID      int    `json:"pid"`
	Alive    bool   `json:"alive"`
}

func (p *Pool) Snapshot() []Status {
	p.mu.Lock()
	out := make([]Status, 0, len(p.tunnels))
	for key, t := range p.tunnels {
		out = append(out, Status{
			Hostname: key.Hostname,
			Daemon:   key.Daemon,
			PID:      t.PID(),
			Alive:    t.Alive(),
		})
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Hostname != out[j].Hostname {
			return out[i].Hostname < out[j].Hostname
		}
		return out[i].Daemon < out[j].Daemon
	})
	return out
}

// Shutdown releases every registered transport.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	keys := make([]Key, 0, len(p.tunnels))
	for key := range p.tunnels {
		keys = append(keys, key)
	}
	p.mu.Unlock()

	for _, key := range keys {
		p.Release(key)
	}
}
