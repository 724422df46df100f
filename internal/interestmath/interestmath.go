// Package interestmath implements the two interest-accrual formulas the
// reserve core rolls indexes forward with: simple linear interest for the
// supply side and a truncated binomial approximation of continuous
// compounding for the variable-borrow side.
package interestmath

import (
	"math/big"

	"reservecore/internal/fixedpoint"
)

// SecondsPerYear is the fixed annualization divisor (365 days) used to
// convert an annualized ray rate into a per-second accrual factor.
const SecondsPerYear = 365 * 86400

var secondsPerYearBig = big.NewInt(SecondsPerYear)
var secondsPerYearSquared = new(big.Int).Mul(secondsPerYearBig, secondsPerYearBig)

// Linear returns L(r, delta) = Ray + (r*delta)/Y, the growth factor applied
// to the liquidity index. It returns Ray exactly when delta is zero or the
// rate is zero.
func Linear(rate *big.Int, delta uint64) *big.Int {
	if rate == nil || rate.Sign() == 0 || delta == 0 {
		return new(big.Int).Set(fixedpoint.Ray)
	}
	term := new(big.Int).Mul(rate, new(big.Int).SetUint64(delta))
	term.Quo(term, secondsPerYearBig)
	return term.Add(term, fixedpoint.Ray)
}

// Compounded returns C(r, delta), the third-order binomial approximation of
// (1 + r/Y)^delta. It returns Ray exactly when delta is zero. The
// approximation deliberately under-compensates lenders and under-charges
// borrowers relative to true continuous compounding; this is a protocol-
// observable property and must not be "corrected" with an exp identity.
func Compounded(rate *big.Int, delta uint64) *big.Int {
	if delta == 0 {
		return new(big.Int).Set(fixedpoint.Ray)
	}
	if rate == nil || rate.Sign() == 0 {
		return new(big.Int).Set(fixedpoint.Ray)
	}

	d := new(big.Int).SetUint64(delta)
	dMinus1 := new(big.Int).Sub(d, big.NewInt(1))
	dMinus2 := new(big.Int).Sub(d, big.NewInt(2))
	if dMinus2.Sign() < 0 {
		dMinus2.SetInt64(0)
	}

	basePow2 := fixedpoint.RayMul(rate, rate)
	basePow2.Quo(basePow2, secondsPerYearSquared)

	basePow3 := fixedpoint.RayMul(basePow2, rate)
	basePow3.Quo(basePow3, secondsPerYearBig)

	t1 := new(big.Int).Mul(rate, d)
	t1.Quo(t1, secondsPerYearBig)

	t2 := new(big.Int).Mul(d, dMinus1)
	t2.Mul(t2, basePow2)
	t2.Quo(t2, big.NewInt(2))

	t3 := new(big.Int).Mul(d, dMinus1)
	t3.Mul(t3, dMinus2)
	t3.Mul(t3, basePow3)
	t3.Quo(t3, big.NewInt(6))

	result := new(big.Int).Set(fixedpoint.Ray)
	result.Add(result, t1)
	result.Add(result, t2)
	result.Add(result, t3)
	return result
}
