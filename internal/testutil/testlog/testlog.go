package testlog

import (
	"testing"

	"github.com/virtops/tunnelctl/internal/logging"
)

// Start wires the test binary to the shared logging profile and brackets the
// test's output with start/done markers, which keeps interleaved subprocess
// logs attributable under -v.
func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logging.Infof("test=%s start", t.Name())
	t.Cleanup(func() {
		logging.Infof("test=%s done failed=%v", t.Name(), t.Failed())
	})
}
