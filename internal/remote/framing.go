package remote

import (
	"fmt"
	"regexp"
	"strings"
)

// framing decides when accumulated stdout holds a complete response and what
// payload the completion yields. The two implementations are the closed set
// of protocols a session can speak; the choice is made at construction.
type framing interface {
	// WireString builds the request line for one command.
	WireString(argv []string) string
	// Complete reports whether stdout holds a full response and returns the
	// matched payload.
	Complete(stdout string) (string, bool)
}

// resultPattern anchors on the exit-code marker echoed by the remote shell.
// A command that prints a matching line itself completes the exchange early;
// that is inherent to the marker protocol.
var resultPattern = regexp.MustCompile(`(?m)(RET=\d+)\n`)

// shellFraming wraps the command so the remote login shell echoes the exit
// code on its own line whether the command succeeds or fails.
type shellFraming struct{}

func (shellFraming) WireString(argv []string) string {
	return strings.Join(argv, " ") + ` && echo "RET="$? || echo "RET="$?`
}

func (shellFraming) Complete(stdout string) (string, bool) {
	m := resultPattern.FindStringSubmatch(stdout)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// patternFraming frames daemon replies with the caller's completion regexp.
// The first capture group is the payload; the full match when the pattern
// has no groups.
type patternFraming struct {
	re *regexp.Regexp
}

func newPatternFraming(expr string) (patternFraming, error) {
	re, err := regexp.Compile("(?m)" + expr)
	if err != nil {
		return patternFraming{}, fmt.Errorf("%w: match pattern: %v", ErrInvalidSession, err)
	}
	return patternFraming{re: re}, nil
}

func (f patternFraming) WireString(argv []string) string {
	return strings.Join(argv, " ")
}

func (f patternFraming) Complete(stdout string) (string, bool) {
	m := f.re.FindStringSubmatch(stdout)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return m[1], true
	}
	return m[0], true
}
