package reserve

import (
	"fmt"
	"math/big"

	"reservecore/internal/fixedpoint"
	"reservecore/internal/interestmath"
	"reservecore/internal/ratestrategy"
)

// Logic is the reserve-logic component of §4.4. It is stateless itself —
// all mutable state lives in the ReserveData/ReserveCache values passed
// into its methods — and owns only the handles to the external
// collaborators it is allowed to query, exactly once per action, from
// Cache.
type Logic struct {
	StableDebt    StableDebtSource
	VariableDebt  VariableDebtSource
	AssetBalance  AssetBalanceSource
	ReserveConfig ReserveConfigSource
	Events        EventSink
}

func subDelta(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

func (l *Logic) sink() EventSink {
	if l == nil || l.Events == nil {
		return DiscardSink{}
	}
	return l.Events
}

// Init sets both indexes to Ray and records the collaborator handles for
// a freshly created reserve. It fails with ErrAlreadyInitialized if the
// reserve already has an aToken address on record.
func Init(reserve *ReserveData, aToken, stableDebtToken, variableDebtToken, strategyAddress string) error {
	if reserve == nil {
		return fmt.Errorf("reserve: init: %w", ErrNotInitialized)
	}
	if reserve.ATokenAddress != "" {
		return ErrAlreadyInitialized
	}
	reserve.LiquidityIndex = new(big.Int).Set(fixedpoint.Ray)
	reserve.VariableBorrowIndex = new(big.Int).Set(fixedpoint.Ray)
	reserve.CurrentLiquidityRate = big.NewInt(0)
	reserve.CurrentStableBorrowRate = big.NewInt(0)
	reserve.CurrentVariableBorrowRate = big.NewInt(0)
	reserve.AccruedToTreasury = big.NewInt(0)
	reserve.Unbacked = big.NewInt(0)
	reserve.ATokenAddress = aToken
	reserve.StableDebtTokenAddress = stableDebtToken
	reserve.VariableDebtTokenAddress = variableDebtToken
	reserve.InterestRateStrategyAddress = strategyAddress
	return nil
}

// Cache takes the single-read snapshot described in §4.4: one read per
// storage field, duplicated into the cache's Next... mirrors, plus one
// query each against the stable-debt, variable-debt, and asset-balance
// collaborators. This is the only place in one action those
// collaborators are queried.
func (l *Logic) Cache(reserve *ReserveData, reserveAddress string) (*ReserveCache, error) {
	if reserve == nil {
		return nil, ErrNotInitialized
	}

	reserveFactorBps := reserve.Configuration.ReserveFactorBps()
	if l != nil && l.ReserveConfig != nil {
		bps, err := l.ReserveConfig.GetReserveFactorBps(reserve.Configuration)
		if err != nil {
			return nil, fmt.Errorf("reserve: cache: reserve config: %w", err)
		}
		reserveFactorBps = bps
	}

	var scaledVariableDebt = big.NewInt(0)
	if l != nil && l.VariableDebt != nil {
		v, err := l.VariableDebt.ScaledTotalSupply(reserveAddress)
		if err != nil {
			return nil, fmt.Errorf("reserve: cache: variable debt: %w", err)
		}
		scaledVariableDebt = zeroIfNil(v)
	}

	principalStable := big.NewInt(0)
	totalStable := big.NewInt(0)
	avgStableRate := big.NewInt(0)
	var stableLastUpdate uint64
	if l != nil && l.StableDebt != nil {
		principal, total, avgRate, lastUpdate, err := l.StableDebt.GetSupplyData(reserveAddress)
		if err != nil {
			return nil, fmt.Errorf("reserve: cache: stable debt: %w", err)
		}
		principalStable = zeroIfNil(principal)
		totalStable = zeroIfNil(total)
		avgStableRate = zeroIfNil(avgRate)
		stableLastUpdate = lastUpdate
	}

	aTokenBalance := big.NewInt(0)
	if l != nil && l.AssetBalance != nil && reserve.ATokenAddress != "" {
		bal, err := l.AssetBalance.BalanceOf(reserve.ATokenAddress)
		if err != nil {
			return nil, fmt.Errorf("reserve: cache: asset balance: %w", err)
		}
		aTokenBalance = zeroIfNil(bal)
	}

	currLiquidityIndex := rayIfZero(reserve.LiquidityIndex)
	currVariableBorrowIndex := rayIfZero(reserve.VariableBorrowIndex)

	c := &ReserveCache{
		CurrLiquidityIndex:         currLiquidityIndex,
		CurrVariableBorrowIndex:    currVariableBorrowIndex,
		CurrLiquidityRate:          zeroIfNil(reserve.CurrentLiquidityRate),
		CurrStableBorrowRate:       zeroIfNil(reserve.CurrentStableBorrowRate),
		CurrVariableBorrowRate:     zeroIfNil(reserve.CurrentVariableBorrowRate),
		ReserveConfiguration:       reserve.Configuration,
		ReserveFactorBps:           reserveFactorBps,
		ReserveLastUpdateTimestamp: reserve.LastUpdateTimestamp,

		CurrScaledVariableDebt:        scaledVariableDebt,
		CurrPrincipalStableDebt:       principalStable,
		CurrTotalStableDebt:           totalStable,
		CurrAvgStableBorrowRate:       avgStableRate,
		StableDebtLastUpdateTimestamp: stableLastUpdate,

		CurrATokenBalance: aTokenBalance,
	}

	c.NextLiquidityIndex = new(big.Int).Set(currLiquidityIndex)
	c.NextVariableBorrowIndex = new(big.Int).Set(currVariableBorrowIndex)
	c.NextScaledVariableDebt = new(big.Int).Set(scaledVariableDebt)
	c.NextPrincipalStableDebt = new(big.Int).Set(principalStable)
	c.NextTotalStableDebt = new(big.Int).Set(totalStable)
	c.NextAvgStableBorrowRate = new(big.Int).Set(avgStableRate)
	c.NextLiquidityRate = new(big.Int).Set(c.CurrLiquidityRate)
	c.NextStableBorrowRate = new(big.Int).Set(c.CurrStableBorrowRate)
	c.NextVariableBorrowRate = new(big.Int).Set(c.CurrVariableBorrowRate)

	return c, nil
}

// UpdateState rolls the reserve's indexes forward to now and capitalizes
// the protocol's treasury share of accrued borrow interest, per §4.4. It
// is idempotent when now equals the reserve's last update timestamp and
// rejects now < lastUpdateTimestamp with ErrTimeWentBackwards.
func (l *Logic) UpdateState(reserve *ReserveData, cache *ReserveCache, now uint64) error {
	if reserve == nil || cache == nil {
		return ErrNotInitialized
	}
	if now < reserve.LastUpdateTimestamp {
		return ErrTimeWentBackwards
	}
	if reserve.LastUpdateTimestamp == now {
		return nil
	}

	if err := l.updateIndexes(reserve, cache, now); err != nil {
		return err
	}
	if err := l.accrueToTreasury(reserve, cache); err != nil {
		return err
	}
	reserve.LastUpdateTimestamp = now
	return nil
}

func (l *Logic) updateIndexes(reserve *ReserveData, cache *ReserveCache, now uint64) error {
	delta := now - cache.ReserveLastUpdateTimestamp

	if cache.CurrLiquidityRate.Sign() != 0 {
		factor := interestmath.Linear(cache.CurrLiquidityRate, delta)
		next := fixedpoint.RayMul(factor, cache.CurrLiquidityIndex)
		narrowed, err := fixedpoint.NarrowTo128(next)
		if err != nil {
			return fmt.Errorf("reserve: update state: liquidity index: %w", err)
		}
		reserve.LiquidityIndex = narrowed
		cache.NextLiquidityIndex = new(big.Int).Set(narrowed)
	} else {
		reserve.LiquidityIndex = new(big.Int).Set(cache.CurrLiquidityIndex)
		cache.NextLiquidityIndex = new(big.Int).Set(cache.CurrLiquidityIndex)
	}

	if cache.CurrScaledVariableDebt.Sign() != 0 {
		factor := interestmath.Compounded(cache.CurrVariableBorrowRate, delta)
		next := fixedpoint.RayMul(factor, cache.CurrVariableBorrowIndex)
		narrowed, err := fixedpoint.NarrowTo128(next)
		if err != nil {
			return fmt.Errorf("reserve: update state: variable borrow index: %w", err)
		}
		reserve.VariableBorrowIndex = narrowed
		cache.NextVariableBorrowIndex = new(big.Int).Set(narrowed)
	} else {
		reserve.VariableBorrowIndex = new(big.Int).Set(cache.CurrVariableBorrowIndex)
		cache.NextVariableBorrowIndex = new(big.Int).Set(cache.CurrVariableBorrowIndex)
	}

	return nil
}

func (l *Logic) accrueToTreasury(reserve *ReserveData, cache *ReserveCache) error {
	if cache.ReserveFactorBps == 0 {
		return nil
	}

	prevVariable := fixedpoint.RayMul(cache.CurrScaledVariableDebt, cache.CurrVariableBorrowIndex)
	currVariable := fixedpoint.RayMul(cache.CurrScaledVariableDebt, cache.NextVariableBorrowIndex)

	cumulatedStable := interestmath.Compounded(cache.CurrAvgStableBorrowRate, subDelta(cache.ReserveLastUpdateTimestamp, cache.StableDebtLastUpdateTimestamp))
	prevStable := fixedpoint.RayMul(cache.CurrPrincipalStableDebt, cumulatedStable)

	accrued := new(big.Int).Add(currVariable, cache.CurrTotalStableDebt)
	accrued.Sub(accrued, prevVariable)
	accrued.Sub(accrued, prevStable)
	if accrued.Sign() < 0 {
		return ErrInvariantViolation
	}
	if accrued.Sign() == 0 {
		return nil
	}

	mintAmount := fixedpoint.PercentMul(accrued, cache.ReserveFactorBps)
	if mintAmount.Sign() == 0 {
		return nil
	}

	scaledMint, err := fixedpoint.RayDiv(mintAmount, cache.NextLiquidityIndex)
	if err != nil {
		return fmt.Errorf("reserve: accrue to treasury: %w", err)
	}
	total := new(big.Int).Add(zeroIfNil(reserve.AccruedToTreasury), scaledMint)
	narrowed, err := fixedpoint.NarrowTo128(total)
	if err != nil {
		return fmt.Errorf("reserve: accrue to treasury: %w", err)
	}
	reserve.AccruedToTreasury = narrowed
	return nil
}

// UpdateInterestRates invokes the rate strategy with the freshly minted
// or burned debt already folded into cache.Next..., writes the three
// resulting rates back to the reserve, and emits ReserveDataUpdated.
func (l *Logic) UpdateInterestRates(
	reserve *ReserveData,
	cache *ReserveCache,
	params *ratestrategy.Parameters,
	reserveAddress string,
	liquidityAdded, liquidityTaken *big.Int,
) error {
	if reserve == nil || cache == nil || params == nil {
		return ErrNotInitialized
	}

	totalVariableDebt := fixedpoint.RayMul(cache.NextScaledVariableDebt, cache.NextVariableBorrowIndex)

	availableLiquidity := new(big.Int).Add(cache.CurrATokenBalance, zeroIfNil(liquidityAdded))
	availableLiquidity.Sub(availableLiquidity, zeroIfNil(liquidityTaken))
	if availableLiquidity.Sign() < 0 {
		availableLiquidity.SetInt64(0)
	}

	rates := params.CalculateInterestRates(ratestrategy.CalculateInput{
		Unbacked:                zeroIfNil(reserve.Unbacked),
		AvailableLiquidity:      availableLiquidity,
		TotalStableDebt:         cache.NextTotalStableDebt,
		TotalVariableDebt:       totalVariableDebt,
		AverageStableBorrowRate: cache.NextAvgStableBorrowRate,
		ReserveFactorBps:        cache.ReserveFactorBps,
	})

	liquidityRate, err := fixedpoint.NarrowTo128(rates.Liquidity)
	if err != nil {
		return fmt.Errorf("reserve: update interest rates: liquidity rate: %w", err)
	}
	stableRate, err := fixedpoint.NarrowTo128(rates.StableBorrow)
	if err != nil {
		return fmt.Errorf("reserve: update interest rates: stable rate: %w", err)
	}
	variableRate, err := fixedpoint.NarrowTo128(rates.VariableBorrow)
	if err != nil {
		return fmt.Errorf("reserve: update interest rates: variable rate: %w", err)
	}

	reserve.CurrentLiquidityRate = liquidityRate
	reserve.CurrentStableBorrowRate = stableRate
	reserve.CurrentVariableBorrowRate = variableRate

	l.sink().OnReserveDataUpdated(DataUpdated{
		ReserveAddress:      reserveAddress,
		LiquidityRate:       new(big.Int).Set(liquidityRate),
		StableBorrowRate:    new(big.Int).Set(stableRate),
		VariableBorrowRate:  new(big.Int).Set(variableRate),
		LiquidityIndex:      new(big.Int).Set(cache.NextLiquidityIndex),
		VariableBorrowIndex: new(big.Int).Set(cache.NextVariableBorrowIndex),
	})

	return nil
}

// CumulateToLiquidityIndex capitalizes an instant fee (for example a
// flash-loan premium) directly into the liquidity index without moving
// rates. It fails with fixedpoint.ErrDivisionByZero when totalLiquidity
// is zero.
func (l *Logic) CumulateToLiquidityIndex(reserve *ReserveData, totalLiquidity, amount *big.Int) (*big.Int, error) {
	if reserve == nil {
		return nil, ErrNotInitialized
	}
	share, err := fixedpoint.RayDiv(fixedpoint.WadToRay(amount), fixedpoint.WadToRay(totalLiquidity))
	if err != nil {
		return nil, fmt.Errorf("reserve: cumulate to liquidity index: %w", err)
	}
	factor := new(big.Int).Add(share, fixedpoint.Ray)
	next := fixedpoint.RayMul(factor, rayIfZero(reserve.LiquidityIndex))

	narrowed, err := fixedpoint.NarrowTo128(next)
	if err != nil {
		return nil, fmt.Errorf("reserve: cumulate to liquidity index: %w", err)
	}
	reserve.LiquidityIndex = narrowed
	return next, nil
}
