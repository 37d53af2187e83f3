package tunnel

import (
	"os"
	"testing"

	"github.com/virtops/tunnelctl/internal/testutil/testlog"
)

func newPipeStream(t *testing.T) (*LineStream, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	s := NewLineStream(r)
	t.Cleanup(func() {
		_ = s.Close()
		_ = w.Close()
	})
	return s, w
}

func TestLineStreamSplitsLinesAndKeepsPartial(t *testing.T) {
	testlog.Start(t)
	s, w := newPipeStream(t)

	if _, err := w.WriteString("alpha\nbe"); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines, err := s.Poll()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(lines) != 1 || lines[0] != "alpha" {
		t.Fatalf("unexpected lines: %+v", lines)
	}

	if _, err := w.WriteString("ta\r\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines, err = s.Poll()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(lines) != 1 || lines[0] != "beta" {
		t.Fatalf("expected partial joined and CR dropped, got: %+v", lines)
	}
}

func TestLineStreamNoDataReturnsNothing(t *testing.T) {
	testlog.Start(t)
	s, _ := newPipeStream(t)

	lines, err := s.Poll()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got: %+v", lines)
	}
}

func TestLineStreamFlushesTailOnEOF(t *testing.T) {
	testlog.Start(t)
	s, w := newPipeStream(t)

	if _, err := w.WriteString("done\ntail-without-newline"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	lines, err := s.Poll()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(lines) != 2 || lines[0] != "done" || lines[1] != "tail-without-newline" {
		t.Fatalf("unexpected lines at EOF: %+v", lines)
	}

	lines, err = s.Poll()
	if err != nil {
		t.Fatalf("poll after eof: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected drained stream, got: %+v", lines)
	}
}
