package observability

import (
	"testing"
	"time"

	"github.com/virtops/tunnelctl/internal/logging"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordTunnelSpawn("hv-01")
	RecordTunnelEviction("hv-01")
	SetOpenTunnels(3)
	RecordExchange("hv-01", "shell", "ok", 12*time.Millisecond)
	RecordExchange("hv-01", "daemon", "timeout", 1200*time.Millisecond)

	logging.Infof("observability/metrics: registration idempotent and recording paths executed")
}
