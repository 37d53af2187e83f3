package tunnel

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/virtops/tunnelctl/internal/logging"
)

// Key identifies one pooled transport: a destination plus the daemon command
// started on it, if any. Two sessions with equal keys share one transport.
type Key struct {
	Hostname string
	Daemon   string
}

// NewKey quotes each daemon token before joining so token boundaries survive:
// ["a b"] and ["a", "b"] map to distinct keys.
func NewKey(hostname string, daemon []string) Key {
	if len(daemon) == 0 {
		return Key{Hostname: hostname}
	}
	quoted := make([]string, len(daemon))
	for i, tok := range daemon {
		quoted[i] = strconv.Quote(tok)
	}
	return Key{Hostname: hostname, Daemon: strings.Join(quoted, " ")}
}

func (k Key) String() string {
	if k.Daemon == "" {
		return k.Hostname
	}
	return k.Hostname + " [" + k.Daemon + "]"
}

// Transport is one live ssh client subprocess with pollable pipes attached.
type Transport struct {
	key    Key
	cmd    *exec.Cmd
	stdin  *os.File
	stdout *LineStream
	stderr *LineStream
	exited atomic.Bool
}

func spawn(key Key, argv []string) (*Transport, error) {
	cmd := exec.Command(argv[0], argv[1:]...)

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("tunnel: stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW)
		return nil, fmt.Errorf("tunnel: stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW)
		return nil, fmt.Errorf("tunnel: stderr pipe: %w", err)
	}

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW, stderrR, stderrW)
		return nil, fmt.Errorf("tunnel: spawn %q: %w", argv[0], err)
	}
	// The child owns its ends now.
	closeAll(stdinR, stdoutW, stderrW)

	t := &Transport{
		key:    key,
		cmd:    cmd,
		stdin:  stdinW,
		stdout: NewLineStream(stdoutR),
		stderr: NewLineStream(stderrR),
	}
	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		t.exited.Store(true)
		logging.Debugf("tunnel.Transport exited key=%q pid=%d err=%v", t.key, pid, err)
	}()
	return t, nil
}

func (t *Transport) Key() Key { return t.key }

func (t *Transport) PID() int {
	if t.cmd.Process == nil {
		return 0
	}
	return t.cmd.Process.Pid
}

// Alive is a non-blocking liveness probe.
func (t *Transport) Alive() bool {
	return !t.exited.Load()
}

// WriteLine sends one request line to the transport's stdin.
func (t *Transport) WriteLine(line string) error {
	if _, err := io.WriteString(t.stdin, line+"\n"); err != nil {
		return fmt.Errorf("tunnel: write to %s: %w", t.key, err)
	}
	return nil
}

func (t *Transport) Stdout() *LineStream { return t.stdout }
func (t *Transport) Stderr() *LineStream { return t.stderr }

// Kill terminates the subprocess and closes its pipes. Killing an already
// dead process is not an error.
func (t *Transport) Kill() error {
	var killErr error
	if t.cmd.Process != nil && t.Alive() {
		killErr = t.cmd.Process.Kill()
	}
	_ = t.stdin.Close()
	_ = t.stdout.Close()
	_ = t.stderr.Close()
	if killErr != nil && !t.Alive() {
		// Lost the race against natural exit.
		return nil
	}
	return killErr
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
