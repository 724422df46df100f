// Package reserve implements the stateful heart of the core: the
// per-reserve record, index roll-forward, treasury capitalization, and
// the glue that invokes the rate strategy.
package reserve

import (
	"math/big"

	"reservecore/internal/fixedpoint"
)

// Configuration is the packed bitmap attached to a reserve. Only the
// reserve-factor field is interpreted by this package; any other bits
// (caps, pause flags, and so on) belong to the external collaborators
// listed in the spec and are carried through untouched.
type Configuration uint64

const reserveFactorMask = 0xFFFF

// ReserveFactorBps decodes the basis-point reserve factor packed into the
// low 16 bits of the configuration bitmap.
func (c Configuration) ReserveFactorBps() uint64 {
	return uint64(c) & reserveFactorMask
}

// WithReserveFactorBps returns a copy of the configuration with the
// reserve-factor bits replaced.
func (c Configuration) WithReserveFactorBps(bps uint64) Configuration {
	return Configuration((uint64(c) &^ reserveFactorMask) | (bps & reserveFactorMask))
}

// ReserveData is the persistent, per-asset record described in §3. Index
// and rate fields are ray-scaled; AccruedToTreasury is a scaled wad
// amount. All *big.Int fields are expected to fit in 128 bits; callers
// that persist this record should run it through reservecodec before
// writing it to storage.
type ReserveData struct {
	Configuration Configuration

	LiquidityIndex            *big.Int
	VariableBorrowIndex       *big.Int
	CurrentLiquidityRate      *big.Int
	CurrentStableBorrowRate   *big.Int
	CurrentVariableBorrowRate *big.Int

	LastUpdateTimestamp uint64

	AccruedToTreasury *big.Int
	Unbacked          *big.Int

	ATokenAddress               string
	StableDebtTokenAddress      string
	VariableDebtTokenAddress    string
	InterestRateStrategyAddress string
}

// State is the coarse reserve lifecycle described in §4.4.
type State int

const (
	// StateUninitialized is the reserve before Init is called.
	StateUninitialized State = iota
	// StateEmpty is an initialized reserve with no outstanding debt and
	// no supplied liquidity.
	StateEmpty
	// StateProducing is an initialized reserve with nonzero debt or
	// nonzero supplied liquidity.
	StateProducing
)

// DeriveState classifies a reserve from the debt and liquidity snapshots
// taken into a cache. It is purely observational: nothing in this
// package branches on it, it exists for callers (such as dashboards) that
// want to report where a reserve sits in its lifecycle.
func DeriveState(reserve *ReserveData, cache *ReserveCache) State {
	if reserve == nil || reserve.ATokenAddress == "" {
		return StateUninitialized
	}
	if cache == nil {
		return StateEmpty
	}
	if cache.CurrScaledVariableDebt.Sign() > 0 ||
		cache.CurrTotalStableDebt.Sign() > 0 ||
		cache.CurrATokenBalance.Sign() > 0 {
		return StateProducing
	}
	return StateEmpty
}

// ReserveCache is the ephemeral, stack-local snapshot described in §3. It
// is created by Cache, mutated in place by UpdateState and by the
// caller's own debt-mint/burn bookkeeping (which patches the Next...
// fields), and consumed by UpdateInterestRates.
type ReserveCache struct {
	CurrLiquidityIndex        *big.Int
	CurrVariableBorrowIndex   *big.Int
	CurrLiquidityRate         *big.Int
	CurrStableBorrowRate      *big.Int
	CurrVariableBorrowRate    *big.Int
	ReserveConfiguration      Configuration
	ReserveFactorBps          uint64
	ReserveLastUpdateTimestamp uint64

	CurrScaledVariableDebt        *big.Int
	CurrPrincipalStableDebt       *big.Int
	CurrTotalStableDebt           *big.Int
	CurrAvgStableBorrowRate       *big.Int
	StableDebtLastUpdateTimestamp uint64

	// CurrATokenBalance is the aToken's held balance of the underlying
	// asset, sampled once via AssetBalanceSource during Cache.
	CurrATokenBalance *big.Int

	NextLiquidityIndex      *big.Int
	NextVariableBorrowIndex *big.Int

	NextScaledVariableDebt  *big.Int
	NextPrincipalStableDebt *big.Int
	NextTotalStableDebt     *big.Int
	NextAvgStableBorrowRate *big.Int

	NextLiquidityRate      *big.Int
	NextStableBorrowRate   *big.Int
	NextVariableBorrowRate *big.Int
}

func zeroIfNil(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(x)
}

func rayIfZero(x *big.Int) *big.Int {
	if x == nil || x.Sign() == 0 {
		return new(big.Int).Set(fixedpoint.Ray)
	}
	return new(big.Int).Set(x)
}
