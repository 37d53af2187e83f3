package remote

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSession = errors.New("remote: invalid session")
	ErrInvalidCommand = errors.New("remote: invalid command")

	// Fatal transport failures. Each one evicts the pooled tunnel, so a
	// retry spawns a fresh process instead of reusing a known-bad channel.
	ErrHostKeyVerification = errors.New("remote: host key verification failed")
	ErrUnknownHost         = errors.New("remote: could not resolve hostname")
	ErrConnectTimeout      = errors.New("remote: timed out connecting to host")
	ErrTunnelRead          = errors.New("remote: tunnel read failed")

	// ErrResultParse means the shell-mode exit-code marker could not be
	// extracted from the captured output.
	ErrResultParse = errors.New("remote: failed to parse result marker")

	// ErrCommandTimeout means no completion signal arrived within the
	// caller's budget. The tunnel is evicted; the remote command cannot be
	// interrupted without tearing the channel down.
	ErrCommandTimeout = errors.New("remote: timed out waiting for reply")
)

// CommandError reports a shell-mode command that completed with a non-zero
// exit code. The channel itself is healthy, so the tunnel is not evicted.
type CommandError struct {
	Hostname string
	Command  string
	Code     string
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("remote: command [%s] on %s returned %s", e.Command, e.Hostname, e.Code)
}
