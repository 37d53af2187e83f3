package tunnel

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"
)

// pollReadWindow bounds each drain attempt. The deadline makes reads on the
// pipe return instead of blocking when the remote side has nothing to say.
const pollReadWindow = time.Millisecond

// LineStream drains the read end of an os.Pipe without blocking, splitting
// complete lines off and retaining any partial line for the next poll.
// Carriage returns are ignored. Not safe for concurrent use.
type LineStream struct {
	f       *os.File
	pending []byte
	eof     bool
}

func NewLineStream(f *os.File) *LineStream {
	return &LineStream{f: f}
}

// Poll reads everything immediately available and returns the complete lines
// gathered so far. It never blocks longer than the poll read window. After
// the writer side closes, a trailing unterminated line is flushed as-is.
func (s *LineStream) Poll() ([]string, error) {
	buf := make([]byte, 4096)
	for !s.eof {
		if err := s.f.SetReadDeadline(time.Now().Add(pollReadWindow)); err != nil {
			return s.cutLines(), err
		}
		n, err := s.f.Read(buf)
		if n > 0 {
			s.pending = append(s.pending, buf[:n]...)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			break
		}
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
			s.eof = true
			break
		}
		return s.cutLines(), err
	}
	return s.cutLines(), nil
}

func (s *LineStream) cutLines() []string {
	var lines []string
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			break
		}
		line := s.pending[:i]
		s.pending = s.pending[i+1:]
		lines = append(lines, string(dropCR(line)))
	}
	if s.eof && len(s.pending) > 0 {
		lines = append(lines, string(dropCR(s.pending)))
		s.pending = nil
	}
	return lines
}

func (s *LineStream) Close() error {
	return s.f.Close()
}

func dropCR(b []byte) []byte {
	if !bytes.ContainsRune(b, '\r') {
		return b
	}
	return bytes.ReplaceAll(b, []byte{'\r'}, nil)
}
