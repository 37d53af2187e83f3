package remote

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/virtops/tunnelctl/internal/logging"
)

// pollInterval is how long the exchange sleeps when neither stream had data.
const pollInterval = 200 * time.Millisecond

// fatalSignatures are the ssh client failures surfaced on stderr that make
// the channel unusable. Any hit evicts the tunnel and aborts the poll.
var fatalSignatures = []struct {
	re  *regexp.Regexp
	err error
}{
	{regexp.MustCompile(`Host key verification failed\.`), ErrHostKeyVerification},
	{regexp.MustCompile(`Could not resolve hostname .*: Name or service not known`), ErrUnknownHost},
	{regexp.MustCompile(`connect to host .*: Connection timed out`), ErrConnectTimeout},
}

// firstError keeps the earlier stream's error when both fail in one
// iteration; stdout is polled first.
func firstError(outErr, errErr error) error {
	if outErr != nil {
		return outErr
	}
	return errErr
}

// exchange sends one request line and polls both streams until the framing
// matches, a fatal transport signature appears, the timeout budget runs out,
// or ctx is canceled. Fatal signatures win over the timeout; the timeout
// wins over waiting longer.
func (s *Session) exchange(ctx context.Context, wire string, timeout time.Duration) error {
	key := s.key()
	tr, err := s.pool.Acquire(s.cfg.Hostname, s.cfg.Daemon, s.cfg.Options)
	if err != nil {
		return err
	}
	if !tr.Alive() {
		logging.Infof("remote.Session tunnel to %q died, respawning", s.cfg.Hostname)
		s.pool.Release(key)
		tr, err = s.pool.Acquire(s.cfg.Hostname, s.cfg.Daemon, s.cfg.Options)
		if err != nil {
			return err
		}
	}

	if err := tr.WriteLine(wire); err != nil {
		s.pool.Release(key)
		return err
	}

	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			s.pool.Release(key)
			return err
		}

		outLines, outErr := tr.Stdout().Poll()
		errLines, errErr := tr.Stderr().Poll()
		readErr := firstError(outErr, errErr)

		for _, line := range outLines {
			logging.Tracef("remote.tunnel host=%q stdout=[%s]", s.cfg.Hostname, line)
			s.stdout += line + "\n"
		}
		for _, line := range errLines {
			logging.Tracef("remote.tunnel host=%q stderr=[%s]", s.cfg.Hostname, line)
			s.stderr += line + "\n"
		}

		if result, ok := s.fr.Complete(s.stdout); ok {
			s.result = result
			return nil
		}

		for _, line := range errLines {
			for _, sig := range fatalSignatures {
				if sig.re.MatchString(line) {
					s.pool.Release(key)
					return fmt.Errorf("%w: %s", sig.err, s.cfg.Hostname)
				}
			}
		}

		if readErr != nil {
			s.pool.Release(key)
			return fmt.Errorf("%w: %s: %v", ErrTunnelRead, s.cfg.Hostname, readErr)
		}

		if timeout > 0 && time.Since(start) >= timeout {
			logging.Debugf("remote.Session timeout after %s waiting for reply to [%s]", timeout, wire)
			s.pool.Release(key)
			return fmt.Errorf("%w: no reply to [%s] within %s", ErrCommandTimeout, wire, timeout)
		}

		if len(outLines) == 0 && len(errLines) == 0 {
			select {
			case <-ctx.Done():
				s.pool.Release(key)
				return ctx.Err()
			case <-time.After(pollInterval):
			}
		}
	}
}
