package telemetry

import (
	"github.com/armon/go-metrics"
)

const (
	bridgeMetricsPrefix  = "bridge"
	scannerMetricsPrefix = "scanner"
)

func IncrSwapOut(kind string) {
	metrics.IncrCounterWithLabels([]string{bridgeMetricsPrefix, "swapout_counter"}, 1,
		[]metrics.Label{{Name: "kind", Value: kind}})
}

func IncrSwapIn(kind string) {
	metrics.IncrCounterWithLabels([]string{bridgeMetricsPrefix, "swapin_counter"}, 1,
		[]metrics.Label{{Name: "kind", Value: kind}})
}

func IncrRejected(op string, reason string) {
	metrics.IncrCounterWithLabels([]string{bridgeMetricsPrefix, "rejected_counter"}, 1,
		[]metrics.Label{{Name: "op", Value: op}, {Name: "reason", Value: reason}})
}

func SetLastSwapOutID(id uint64) {
	metrics.SetGauge([]string{bridgeMetricsPrefix, "last_swapout_id"}, float32(id))
}

func IncrIngress(status string) {
	metrics.IncrCounterWithLabels([]string{scannerMetricsPrefix, "ingress_counter"}, 1,
		[]metrics.Label{{Name: "status", Value: status}})
}

func SetScannedBlock(chain string, block uint64) {
	metrics.SetGaugeWithLabels([]string{scannerMetricsPrefix, "scanned_block"}, float32(block),
		[]metrics.Label{{Name: "chain", Value: chain}})
}
