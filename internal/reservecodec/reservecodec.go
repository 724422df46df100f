// Package reservecodec packs a ReserveData record into the fixed-width
// 256-bit words a persistent key/value store would hold, mirroring the
// way the lending core's account state narrows big.Int balances into
// uint256 words before a write.
package reservecodec

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"reservecore/internal/fixedpoint"
	"reservecore/internal/reserve"
)

// ErrRecordOverflow is returned when a ReserveData field does not fit in
// the packed layout's lanes.
var ErrRecordOverflow = errors.New("reservecodec: field does not fit in packed layout")

const timestampBits = 40

// Record is the on-disk layout for one reserve: every ray/wad field is
// narrowed to 128 bits and packed two-to-a-word, and LastUpdateTimestamp
// is limited to 40 bits (good until the year 36812; Encode rejects wider
// values) and packed alongside the stable borrow rate.
type Record struct {
	// IndexWord packs LiquidityIndex (low 128 bits) and
	// VariableBorrowIndex (high 128 bits).
	IndexWord uint256.Int

	// RatesWord packs CurrentLiquidityRate (low 128 bits) and
	// CurrentVariableBorrowRate (high 128 bits).
	RatesWord uint256.Int

	// StableRateAndTimestampWord packs CurrentStableBorrowRate (low 128
	// bits) and LastUpdateTimestamp (next 40 bits above that).
	StableRateAndTimestampWord uint256.Int

	// TreasuryWord packs AccruedToTreasury (low 128 bits) and Unbacked
	// (high 128 bits).
	TreasuryWord uint256.Int

	Configuration uint64
}

func narrow128(x *big.Int, field string) (*uint256.Int, error) {
	narrowed, err := fixedpoint.NarrowTo128(x)
	if err != nil {
		return nil, fmt.Errorf("reservecodec: encode %s: %w", field, ErrRecordOverflow)
	}
	u, overflow := uint256.FromBig(narrowed)
	if overflow {
		return nil, fmt.Errorf("reservecodec: encode %s: %w", field, ErrRecordOverflow)
	}
	return u, nil
}

func packLowHigh(low, high *uint256.Int) uint256.Int {
	var word uint256.Int
	word.Lsh(high, 128)
	word.Or(&word, low)
	return word
}

// Encode narrows every ray/wad field to 128 bits and packs a ReserveData
// into its persistent Record. It fails with ErrRecordOverflow if any
// field does not fit, or if LastUpdateTimestamp exceeds 40 bits.
func Encode(data *reserve.ReserveData) (*Record, error) {
	if data == nil {
		return nil, fmt.Errorf("reservecodec: encode: %w", reserve.ErrNotInitialized)
	}

	liquidityIndex, err := narrow128(zeroIfNil(data.LiquidityIndex), "liquidity index")
	if err != nil {
		return nil, err
	}
	variableBorrowIndex, err := narrow128(zeroIfNil(data.VariableBorrowIndex), "variable borrow index")
	if err != nil {
		return nil, err
	}
	liquidityRate, err := narrow128(zeroIfNil(data.CurrentLiquidityRate), "liquidity rate")
	if err != nil {
		return nil, err
	}
	variableRate, err := narrow128(zeroIfNil(data.CurrentVariableBorrowRate), "variable borrow rate")
	if err != nil {
		return nil, err
	}
	stableRate, err := narrow128(zeroIfNil(data.CurrentStableBorrowRate), "stable borrow rate")
	if err != nil {
		return nil, err
	}
	accrued, err := narrow128(zeroIfNil(data.AccruedToTreasury), "accrued to treasury")
	if err != nil {
		return nil, err
	}
	unbacked, err := narrow128(zeroIfNil(data.Unbacked), "unbacked")
	if err != nil {
		return nil, err
	}

	if data.LastUpdateTimestamp>>timestampBits != 0 {
		return nil, fmt.Errorf("reservecodec: encode last update timestamp: %w", ErrRecordOverflow)
	}
	timestamp := new(uint256.Int).SetUint64(data.LastUpdateTimestamp)

	return &Record{
		IndexWord:                  packLowHigh(liquidityIndex, variableBorrowIndex),
		RatesWord:                  packLowHigh(liquidityRate, variableRate),
		StableRateAndTimestampWord: packLowHigh(stableRate, timestamp),
		TreasuryWord:               packLowHigh(accrued, unbacked),
		Configuration:              uint64(data.Configuration),
	}, nil
}

// Decode unpacks a Record back into a ReserveData. Caller-owned fields
// that are not part of the packed layout (the collaborator addresses)
// are left zero-valued; callers that track those separately should set
// them after Decode returns.
func Decode(rec *Record) (*reserve.ReserveData, error) {
	if rec == nil {
		return nil, fmt.Errorf("reservecodec: decode: %w", ErrRecordOverflow)
	}

	var mask128 uint256.Int
	mask128.SetAllOne()
	mask128.Rsh(&mask128, 128)

	liquidityIndex := new(uint256.Int).And(&rec.IndexWord, &mask128)
	variableBorrowIndex := new(uint256.Int).Rsh(&rec.IndexWord, 128)

	liquidityRate := new(uint256.Int).And(&rec.RatesWord, &mask128)
	variableRate := new(uint256.Int).Rsh(&rec.RatesWord, 128)

	stableRate := new(uint256.Int).And(&rec.StableRateAndTimestampWord, &mask128)
	timestamp := new(uint256.Int).Rsh(&rec.StableRateAndTimestampWord, 128)

	accrued := new(uint256.Int).And(&rec.TreasuryWord, &mask128)
	unbacked := new(uint256.Int).Rsh(&rec.TreasuryWord, 128)

	return &reserve.ReserveData{
		Configuration:             reserve.Configuration(rec.Configuration),
		LiquidityIndex:            liquidityIndex.ToBig(),
		VariableBorrowIndex:       variableBorrowIndex.ToBig(),
		CurrentLiquidityRate:      liquidityRate.ToBig(),
		CurrentStableBorrowRate:   stableRate.ToBig(),
		CurrentVariableBorrowRate: variableRate.ToBig(),
		LastUpdateTimestamp:       timestamp.Uint64(),
		AccruedToTreasury:         accrued.ToBig(),
		Unbacked:                  unbacked.ToBig(),
	}, nil
}

func zeroIfNil(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	return x
}
