package ratestrategy

import (
	"math/big"

	"reservecore/internal/fixedpoint"
)

// CalculateInput bundles the per-call market state the curve needs. All
// debt and liquidity fields are wad-scaled; rates and ratios are
// ray-scaled. AvailableLiquidity is expected to already reflect
// aTokenAssetBalance + liquidityAdded - liquidityTaken, computed by the
// caller from the single balanceOf snapshot taken during cache().
type CalculateInput struct {
	Unbacked                *big.Int
	AvailableLiquidity      *big.Int
	TotalStableDebt         *big.Int
	TotalVariableDebt       *big.Int
	AverageStableBorrowRate *big.Int
	ReserveFactorBps        uint64
}

// Rates is the triple of forward rates produced by CalculateInterestRates,
// all ray-scaled and annualized.
type Rates struct {
	Liquidity      *big.Int
	StableBorrow   *big.Int
	VariableBorrow *big.Int
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	return x
}

// CalculateInterestRates implements the two-slope curve of §4.3: a pure,
// deterministic function of the supplied input and the receiver's fixed
// parameters. It never reads or writes reserve state.
func (p *Parameters) CalculateInterestRates(in CalculateInput) Rates {
	unbacked := orZero(in.Unbacked)
	totalStableDebt := orZero(in.TotalStableDebt)
	totalVariableDebt := orZero(in.TotalVariableDebt)
	availableLiquidity := orZero(in.AvailableLiquidity)
	averageStableBorrowRate := orZero(in.AverageStableBorrowRate)

	totalDebt := new(big.Int).Add(totalStableDebt, totalVariableDebt)

	supplyRate := big.NewInt(0)
	variableRate := new(big.Int).Set(p.BaseVariableBorrowRate)
	stableRate := new(big.Int).Add(p.VariableRateSlope1, p.BaseStableRateOffset)

	if totalDebt.Sign() > 0 {
		stableToTotalDebtRatio, _ := fixedpoint.RayDiv(totalStableDebt, totalDebt)

		availableLiquidityPlusDebt := new(big.Int).Add(availableLiquidity, totalDebt)
		borrowUsage, _ := fixedpoint.RayDiv(totalDebt, availableLiquidityPlusDebt)

		supplyDenominator := new(big.Int).Add(availableLiquidityPlusDebt, unbacked)
		supplyUsage, _ := fixedpoint.RayDiv(totalDebt, supplyDenominator)

		if borrowUsage.Cmp(p.OptimalUsageRatio) > 0 {
			excess, _ := fixedpoint.RayDiv(
				new(big.Int).Sub(borrowUsage, p.OptimalUsageRatio),
				p.MaxExcessUsageRatio,
			)
			variableRate.Add(variableRate, p.VariableRateSlope1)
			variableRate.Add(variableRate, fixedpoint.RayMul(p.VariableRateSlope2, excess))

			stableRate.Add(stableRate, p.StableRateSlope1)
			stableRate.Add(stableRate, fixedpoint.RayMul(p.StableRateSlope2, excess))
		} else {
			variableComponent, _ := fixedpoint.RayDiv(fixedpoint.RayMul(p.VariableRateSlope1, borrowUsage), p.OptimalUsageRatio)
			variableRate.Add(variableRate, variableComponent)

			stableComponent, _ := fixedpoint.RayDiv(fixedpoint.RayMul(p.StableRateSlope1, borrowUsage), p.OptimalUsageRatio)
			stableRate.Add(stableRate, stableComponent)
		}

		if stableToTotalDebtRatio.Cmp(p.OptimalStableToTotalDebtRatio) > 0 {
			excessStable, _ := fixedpoint.RayDiv(
				new(big.Int).Sub(stableToTotalDebtRatio, p.OptimalStableToTotalDebtRatio),
				p.MaxExcessStableToTotalDebtRatio,
			)
			stableRate.Add(stableRate, fixedpoint.RayMul(p.StableRateExcessOffset, excessStable))
		}

		weightedVariable := fixedpoint.RayMul(fixedpoint.WadToRay(totalVariableDebt), variableRate)
		weightedStable := fixedpoint.RayMul(fixedpoint.WadToRay(totalStableDebt), averageStableBorrowRate)
		weighted := new(big.Int).Add(weightedVariable, weightedStable)
		overall, _ := fixedpoint.RayDiv(weighted, fixedpoint.WadToRay(totalDebt))

		supplyRate = fixedpoint.PercentMul(fixedpoint.RayMul(overall, supplyUsage), 10_000-in.ReserveFactorBps)
	}

	return Rates{
		Liquidity:      supplyRate,
		StableBorrow:   stableRate,
		VariableBorrow: variableRate,
	}
}
