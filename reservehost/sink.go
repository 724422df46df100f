package reservehost

import (
	"log/slog"

	"reservecore/internal/reserve"
	"reservecore/observability"
	"reservecore/observability/logging"
)

// loggingMetricsSink is the EventSink a Registry wires into its Logic: it
// logs every ReserveDataUpdated observation at debug level and records
// the rates and liquidity index into the reserve metrics registry. It
// does not touch AccruedToTreasury directly since that value is not part
// of the ReserveDataUpdated observation; callers that need it read it
// from a Snapshot.
type loggingMetricsSink struct {
	logger  *slog.Logger
	metrics *observability.ReserveMetrics
}

func (s loggingMetricsSink) OnReserveDataUpdated(e reserve.DataUpdated) {
	if s.logger != nil {
		logging.ForReserve(s.logger, e.ReserveAddress).Debug("reserve data updated",
			"liquidity_rate", e.LiquidityRate.String(),
			"stable_rate", e.StableBorrowRate.String(),
			"variable_rate", e.VariableBorrowRate.String(),
			"liquidity_index", e.LiquidityIndex.String(),
			"variable_borrow_index", e.VariableBorrowIndex.String(),
		)
	}
	if s.metrics != nil {
		s.metrics.RecordRateSnapshot(e.ReserveAddress, e.LiquidityRate, e.VariableBorrowRate, e.StableBorrowRate, e.LiquidityIndex)
	}
}

var _ reserve.EventSink = loggingMetricsSink{}
