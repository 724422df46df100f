// Package fixedpoint implements the half-up fixed-point arithmetic the
// reserve core is built on: wad (1e18) for token amounts and ray (1e27)
// for rates and indexes.
package fixedpoint

import (
	"errors"
	"math/big"
)

// ErrDivisionByZero is returned by the division helpers when the
// denominator is zero.
var ErrDivisionByZero = errors.New("fixedpoint: division by zero")

// ErrOverflow is returned when narrowing a value to a fixed bit width
// would lose information.
var ErrOverflow = errors.New("fixedpoint: narrowing overflow")

var (
	// Wad is the 1e18 scale used for token amounts.
	Wad = mustBigInt("1000000000000000000")
	// Ray is the 1e27 scale used for rates and indexes.
	Ray = mustBigInt("1000000000000000000000000000")

	halfWad    = halfUp(Wad)
	halfRay    = halfUp(Ray)
	rayOverWad = new(big.Int).Quo(Ray, Wad)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("fixedpoint: invalid constant " + value)
	}
	return v
}

func halfUp(x *big.Int) *big.Int {
	half := new(big.Int).Add(x, big.NewInt(1))
	return half.Rsh(half, 1)
}

// halfOf computes floor(x/2) for positive x, the rounding addend Aave's
// wadDiv/rayDiv add to the numerator before the final division. Unlike
// halfUp (which rounds a fixed scale up to the nearest integer), this
// addend is derived from the denominator itself and must floor, not
// ceil, or an odd denominator rounds the quotient one unit too high.
func halfOf(x *big.Int) *big.Int {
	if x == nil || x.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Rsh(x, 1)
}

// RayMul computes (a*b + Ray/2) / Ray with half-up rounding.
func RayMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Add(product, halfRay)
	return product.Quo(product, Ray)
}

// RayDiv computes (a*Ray + b/2) / b with half-up rounding.
func RayDiv(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil || b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	numerator := new(big.Int).Mul(a, Ray)
	numerator.Add(numerator, halfOf(b))
	return numerator.Quo(numerator, b), nil
}

// WadMul computes (a*b + Wad/2) / Wad with half-up rounding.
func WadMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Add(product, halfWad)
	return product.Quo(product, Wad)
}

// WadDiv computes (a*Wad + b/2) / b with half-up rounding.
func WadDiv(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil || b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	numerator := new(big.Int).Mul(a, Wad)
	numerator.Add(numerator, halfOf(b))
	return numerator.Quo(numerator, b), nil
}

// WadToRay upscales a wad value to ray precision.
func WadToRay(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(x, rayOverWad)
}

// RayToWad downscales a ray value to wad precision with half-up rounding.
func RayToWad(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	result := new(big.Int).Add(x, halfOf(rayOverWad))
	return result.Quo(result, rayOverWad)
}

var basisPointsScale = big.NewInt(10_000)
var halfBasisPoint = big.NewInt(5_000)

// PercentMul applies a basis-point (0-10000) percentage to x with half-up
// rounding, independent of the wad/ray scale of x.
func PercentMul(x *big.Int, bps uint64) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(x, new(big.Int).SetUint64(bps))
	product.Add(product, halfBasisPoint)
	return product.Quo(product, basisPointsScale)
}

// maxUint128 is the largest value that fits in an unsigned 128-bit word.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// NarrowTo128 checks that x is a non-negative value that fits in 128 bits,
// the storage width mandated for reserve indexes, rates, and the treasury
// accrual counter. It fails closed: any value that would not round-trip
// through a 128-bit word is reported as ErrOverflow.
func NarrowTo128(x *big.Int) (*big.Int, error) {
	if x == nil {
		return nil, ErrOverflow
	}
	if x.Sign() < 0 || x.Cmp(maxUint128) > 0 {
		return nil, ErrOverflow
	}
	return new(big.Int).Set(x), nil
}
