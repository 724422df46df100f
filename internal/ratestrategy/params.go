// Package ratestrategy implements the stateless, parameterized two-slope
// rate curve that converts a reserve's utilization into supply, stable-
// borrow, and variable-borrow rates.
package ratestrategy

import (
	"errors"
	"math/big"

	"reservecore/internal/fixedpoint"
)

// ErrInvalidOptimalUsageRatio is returned when OptimalUsageRatio exceeds
// Ray at construction time.
var ErrInvalidOptimalUsageRatio = errors.New("ratestrategy: optimal usage ratio exceeds ray")

// ErrInvalidOptimalStableToTotalDebtRatio is returned when
// OptimalStableToTotalDebtRatio exceeds Ray at construction time.
var ErrInvalidOptimalStableToTotalDebtRatio = errors.New("ratestrategy: optimal stable-to-total-debt ratio exceeds ray")

// Parameters holds the immutable curve configuration for one reserve. All
// fields are ray-scaled (1e27) unless noted otherwise.
type Parameters struct {
	OptimalUsageRatio               *big.Int
	MaxExcessUsageRatio             *big.Int
	OptimalStableToTotalDebtRatio   *big.Int
	MaxExcessStableToTotalDebtRatio *big.Int
	BaseVariableBorrowRate          *big.Int
	VariableRateSlope1              *big.Int
	VariableRateSlope2              *big.Int
	StableRateSlope1                *big.Int
	StableRateSlope2                *big.Int
	BaseStableRateOffset            *big.Int
	StableRateExcessOffset          *big.Int
}

// NewParameters validates and constructs a Parameters instance, deriving
// the two "max excess" ratios from Ray so callers never have to keep them
// consistent by hand.
func NewParameters(
	optimalUsageRatio *big.Int,
	optimalStableToTotalDebtRatio *big.Int,
	baseVariableBorrowRate *big.Int,
	variableRateSlope1 *big.Int,
	variableRateSlope2 *big.Int,
	stableRateSlope1 *big.Int,
	stableRateSlope2 *big.Int,
	baseStableRateOffset *big.Int,
	stableRateExcessOffset *big.Int,
) (*Parameters, error) {
	if optimalUsageRatio == nil || optimalUsageRatio.Cmp(fixedpoint.Ray) > 0 {
		return nil, ErrInvalidOptimalUsageRatio
	}
	if optimalStableToTotalDebtRatio == nil || optimalStableToTotalDebtRatio.Cmp(fixedpoint.Ray) > 0 {
		return nil, ErrInvalidOptimalStableToTotalDebtRatio
	}

	zeroIfNil := func(x *big.Int) *big.Int {
		if x == nil {
			return big.NewInt(0)
		}
		return new(big.Int).Set(x)
	}

	return &Parameters{
		OptimalUsageRatio:               new(big.Int).Set(optimalUsageRatio),
		MaxExcessUsageRatio:             new(big.Int).Sub(fixedpoint.Ray, optimalUsageRatio),
		OptimalStableToTotalDebtRatio:   new(big.Int).Set(optimalStableToTotalDebtRatio),
		MaxExcessStableToTotalDebtRatio: new(big.Int).Sub(fixedpoint.Ray, optimalStableToTotalDebtRatio),
		BaseVariableBorrowRate:          zeroIfNil(baseVariableBorrowRate),
		VariableRateSlope1:              zeroIfNil(variableRateSlope1),
		VariableRateSlope2:              zeroIfNil(variableRateSlope2),
		StableRateSlope1:                zeroIfNil(stableRateSlope1),
		StableRateSlope2:                zeroIfNil(stableRateSlope2),
		BaseStableRateOffset:            zeroIfNil(baseStableRateOffset),
		StableRateExcessOffset:          zeroIfNil(stableRateExcessOffset),
	}, nil
}
