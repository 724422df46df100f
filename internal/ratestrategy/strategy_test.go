package ratestrategy

import (
	"math/big"
	"testing"

	"reservecore/internal/fixedpoint"
)

func rayPct(pct int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(pct), mustBigInt("10000000000000000000000000"))
}

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), fixedpoint.Wad)
}

func mustBigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad constant")
	}
	return v
}

func scenarioParams(t *testing.T) *Parameters {
	t.Helper()
	params, err := NewParameters(
		rayPct(80), // optimalUsageRatio
		rayPct(100),
		big.NewInt(0), // baseVariableBorrowRate
		rayPct(4),     // variableRateSlope1
		rayPct(75),    // variableRateSlope2
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
	)
	if err != nil {
		t.Fatalf("NewParameters: %v", err)
	}
	return params
}

func TestNewParametersRejectsOutOfRange(t *testing.T) {
	tooHigh := new(big.Int).Add(fixedpoint.Ray, big.NewInt(1))
	if _, err := NewParameters(tooHigh, big.NewInt(0), nil, nil, nil, nil, nil, nil, nil); err != ErrInvalidOptimalUsageRatio {
		t.Fatalf("expected ErrInvalidOptimalUsageRatio, got %v", err)
	}
	if _, err := NewParameters(big.NewInt(0), tooHigh, nil, nil, nil, nil, nil, nil, nil); err != ErrInvalidOptimalStableToTotalDebtRatio {
		t.Fatalf("expected ErrInvalidOptimalStableToTotalDebtRatio, got %v", err)
	}
}

// Property 2: with totalDebt == 0 the curve returns the floor rates
// untouched by utilization.
func TestCalculateInterestRatesZeroDebt(t *testing.T) {
	params := scenarioParams(t)
	rates := params.CalculateInterestRates(CalculateInput{
		AvailableLiquidity: wad(1_000),
		ReserveFactorBps:   1000,
	})
	if rates.Liquidity.Sign() != 0 {
		t.Fatalf("liquidity rate = %s, want 0", rates.Liquidity)
	}
	wantStable := new(big.Int).Add(params.VariableRateSlope1, params.BaseStableRateOffset)
	if rates.StableBorrow.Cmp(wantStable) != 0 {
		t.Fatalf("stable rate = %s, want %s", rates.StableBorrow, wantStable)
	}
	if rates.VariableBorrow.Cmp(params.BaseVariableBorrowRate) != 0 {
		t.Fatalf("variable rate = %s, want %s", rates.VariableBorrow, params.BaseVariableBorrowRate)
	}
}

func TestCalculateInterestRatesScenarioD(t *testing.T) {
	params := scenarioParams(t)
	rates := params.CalculateInterestRates(CalculateInput{
		TotalVariableDebt: wad(400),
		TotalStableDebt:   big.NewInt(0),
		// availableLiquidity (600) already excludes the 400 wad of debt.
		AvailableLiquidity: wad(600),
		ReserveFactorBps:   1000,
	})

	wantVariable := rayPct(2) // 0.04 * 0.4/0.8 = 0.02
	if rates.VariableBorrow.Cmp(wantVariable) != 0 {
		t.Fatalf("variable rate = %s, want %s", rates.VariableBorrow, wantVariable)
	}

	// supplyRate = 0.02 * 0.4 * 0.9 = 0.0072
	wantSupply := mustBigInt("7200000000000000000000000")
	if rates.Liquidity.Cmp(wantSupply) != 0 {
		t.Fatalf("liquidity rate = %s, want %s", rates.Liquidity, wantSupply)
	}
}

func TestCalculateInterestRatesScenarioE(t *testing.T) {
	params := scenarioParams(t)
	rates := params.CalculateInterestRates(CalculateInput{
		TotalVariableDebt: wad(900),
		TotalStableDebt:   big.NewInt(0),
		// availableLiquidity (100) + totalDebt (900) = 1000; borrowUsage = 0.9.
		AvailableLiquidity: wad(100),
		ReserveFactorBps:   1000,
	})

	// variableRate = base(0) + slope1(0.04) + slope2(0.75)*excess(0.5) = 0.415
	wantVariable := mustBigInt("415000000000000000000000000")
	if rates.VariableBorrow.Cmp(wantVariable) != 0 {
		t.Fatalf("variable rate = %s, want %s", rates.VariableBorrow, wantVariable)
	}
}

func TestCalculateInterestRatesMonotoneInUtilization(t *testing.T) {
	params := scenarioParams(t)
	prevVariable := big.NewInt(-1)
	for _, debt := range []int64{0, 100, 400, 800, 900, 999} {
		liquidity := wad(1000 - debt)
		rates := params.CalculateInterestRates(CalculateInput{
			TotalVariableDebt: wad(debt),
			AvailableLiquidity: func() *big.Int {
				if liquidity.Sign() < 0 {
					return big.NewInt(0)
				}
				return liquidity
			}(),
			ReserveFactorBps: 1000,
		})
		if rates.VariableBorrow.Cmp(prevVariable) < 0 {
			t.Fatalf("variable rate decreased at debt=%d: %s < %s", debt, rates.VariableBorrow, prevVariable)
		}
		prevVariable = rates.VariableBorrow
	}
}
