package remote

import (
	"errors"
	"testing"

	"github.com/virtops/tunnelctl/internal/testutil/testlog"
)

func TestShellFramingWireString(t *testing.T) {
	testlog.Start(t)
	got := shellFraming{}.WireString([]string{"sudo", "rndc", "reload"})
	want := `sudo rndc reload && echo "RET="$? || echo "RET="$?`
	if got != want {
		t.Fatalf("wire string mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestShellFramingComplete(t *testing.T) {
	testlog.Start(t)
	fr := shellFraming{}

	if _, ok := fr.Complete("partial output\nRET="); ok {
		t.Fatalf("marker without digits must not complete")
	}
	if _, ok := fr.Complete("RET=3"); ok {
		t.Fatalf("marker without newline must not complete")
	}

	result, ok := fr.Complete("line one\nRET=0\n")
	if !ok || result != "RET=0" {
		t.Fatalf("unexpected completion: %q ok=%v", result, ok)
	}

	// The marker protocol has no start-of-output delimiter: a command that
	// prints a RET line itself matches first.
	result, ok = fr.Complete("RET=7\nreal output later\nRET=0\n")
	if !ok || result != "RET=7" {
		t.Fatalf("expected first marker to win, got %q ok=%v", result, ok)
	}
}

func TestPatternFramingGroupSelection(t *testing.T) {
	testlog.Start(t)
	fr, err := newPatternFraming(`(OK|ERR) (.+)$`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if _, ok := fr.Complete("still waiting"); ok {
		t.Fatalf("unmatched output must not complete")
	}
	result, ok := fr.Complete("noise\nOK done\n")
	if !ok || result != "OK" {
		t.Fatalf("unexpected completion: %q ok=%v", result, ok)
	}

	groupless, err := newPatternFraming(`READY$`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	result, ok = groupless.Complete("boot\nREADY\n")
	if !ok || result != "READY" {
		t.Fatalf("expected full match fallback, got %q ok=%v", result, ok)
	}
}

func TestPatternFramingRejectsBadRegexp(t *testing.T) {
	testlog.Start(t)
	_, err := newPatternFraming(`(unclosed`)
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestPatternFramingWireStringIsVerbatim(t *testing.T) {
	testlog.Start(t)
	fr, err := newPatternFraming(`(OK|ERR)`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := fr.WireString([]string{"GET", "vm.state"}); got != "GET vm.state" {
		t.Fatalf("daemon requests must be sent as-is, got %q", got)
	}
}
