package config

import (
	"math/big"

	"reservecore/internal/fixedpoint"
	"reservecore/internal/ratestrategy"
)

func bpsToRay(bps uint64) *big.Int {
	num := new(big.Int).Mul(big.NewInt(int64(bps)), fixedpoint.Ray)
	return num.Quo(num, big.NewInt(10_000))
}

// ToParameters converts the TOML basis-point curve into ray-scaled rate
// strategy parameters, validating the two optimal-ratio fields in the
// process.
func (c ReserveCurve) ToParameters() (*ratestrategy.Parameters, error) {
	return ratestrategy.NewParameters(
		bpsToRay(c.OptimalUsageRatioBps),
		bpsToRay(c.OptimalStableToTotalDebtRatioBps),
		bpsToRay(c.BaseVariableBorrowRateBps),
		bpsToRay(c.VariableRateSlope1Bps),
		bpsToRay(c.VariableRateSlope2Bps),
		bpsToRay(c.StableRateSlope1Bps),
		bpsToRay(c.StableRateSlope2Bps),
		bpsToRay(c.BaseStableRateOffsetBps),
		bpsToRay(c.StableRateExcessOffsetBps),
	)
}
