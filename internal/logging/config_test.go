package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{"", zerolog.InfoLevel, false},
		{"trace", zerolog.TraceLevel, true},
		{"diagnostics", zerolog.TraceLevel, true},
		{"DEBUG", zerolog.DebugLevel, true},
		{" info ", zerolog.InfoLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"error", zerolog.ErrorLevel, true},
		{"bogus", zerolog.InfoLevel, false},
	}
	for _, tc := range cases {
		got, ok := parseLevel(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseLevel(%q) = (%v, %v), want (%v, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseBool(t *testing.T) {
	if v, ok := parseBool("true"); !v || !ok {
		t.Fatalf("expected true override")
	}
	if _, ok := parseBool(""); ok {
		t.Fatalf("empty value should not override")
	}
	if _, ok := parseBool("maybe"); ok {
		t.Fatalf("garbage value should not override")
	}
}

func TestLevelHelpersWriteThroughConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	apply(Config{Level: zerolog.TraceLevel, Timestamp: false, NoColor: true, Out: &buf})
	defer apply(DefaultConfig())

	Tracef("trace line %d", 1)
	Debugf("debug line")
	Infof("info line")
	Warnf("warn line")
	Errorf("error line")

	out := buf.String()
	for _, want := range []string{"trace line 1", "debug line", "info line", "warn line", "error line"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestTraceEnabledFollowsLevel(t *testing.T) {
	apply(Config{Level: zerolog.TraceLevel, Timestamp: false})
	if !TraceEnabled() {
		t.Fatalf("expected trace enabled at trace level")
	}
	apply(Config{Level: zerolog.InfoLevel, Timestamp: false})
	if TraceEnabled() {
		t.Fatalf("expected trace disabled at info level")
	}
}
