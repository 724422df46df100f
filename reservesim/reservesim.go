// Package reservesim provides in-memory fakes of the four external
// collaborators the reserve core reads but does not own: the stable and
// variable debt tokens, the underlying asset balance, and the reserve
// configuration bitmap decoder. It exists for demos and the reservectl
// CLI harness, not for production wiring.
package reservesim

import (
	"math/big"
	"sync"

	"reservecore/internal/reserve"
)

// StableDebtBook is an in-memory stand-in for a stable debt token's
// supply snapshot, keyed by reserve address.
type StableDebtBook struct {
	mu      sync.Mutex
	entries map[string]stableEntry
}

type stableEntry struct {
	principal  *big.Int
	total      *big.Int
	avgRate    *big.Int
	lastUpdate uint64
}

// NewStableDebtBook returns an empty stable debt book.
func NewStableDebtBook() *StableDebtBook {
	return &StableDebtBook{entries: make(map[string]stableEntry)}
}

// Set records the stable debt snapshot for a reserve.
func (b *StableDebtBook) Set(reserveAddress string, principal, total, avgRate *big.Int, lastUpdate uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[reserveAddress] = stableEntry{
		principal:  new(big.Int).Set(principal),
		total:      new(big.Int).Set(total),
		avgRate:    new(big.Int).Set(avgRate),
		lastUpdate: lastUpdate,
	}
}

// GetSupplyData implements reserve.StableDebtSource.
func (b *StableDebtBook) GetSupplyData(reserveAddress string) (*big.Int, *big.Int, *big.Int, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[reserveAddress]
	if !ok {
		return big.NewInt(0), big.NewInt(0), big.NewInt(0), 0, nil
	}
	return new(big.Int).Set(e.principal), new(big.Int).Set(e.total), new(big.Int).Set(e.avgRate), e.lastUpdate, nil
}

var _ reserve.StableDebtSource = (*StableDebtBook)(nil)

// VariableDebtBook is an in-memory stand-in for a variable debt token's
// scaled total supply, keyed by reserve address.
type VariableDebtBook struct {
	mu      sync.Mutex
	balance map[string]*big.Int
}

// NewVariableDebtBook returns an empty variable debt book.
func NewVariableDebtBook() *VariableDebtBook {
	return &VariableDebtBook{balance: make(map[string]*big.Int)}
}

// Set records the scaled total supply for a reserve.
func (b *VariableDebtBook) Set(reserveAddress string, scaled *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance[reserveAddress] = new(big.Int).Set(scaled)
}

// ScaledTotalSupply implements reserve.VariableDebtSource.
func (b *VariableDebtBook) ScaledTotalSupply(reserveAddress string) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.balance[reserveAddress]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(v), nil
}

var _ reserve.VariableDebtSource = (*VariableDebtBook)(nil)

// AssetLedger is an in-memory stand-in for an underlying asset token,
// keyed by holder address (typically the reserve's aToken address).
type AssetLedger struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

// NewAssetLedger returns an empty asset ledger.
func NewAssetLedger() *AssetLedger {
	return &AssetLedger{balances: make(map[string]*big.Int)}
}

// Credit adds amount to holder's balance.
func (l *AssetLedger) Credit(holder string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.balances[holder]
	if !ok {
		cur = big.NewInt(0)
	}
	l.balances[holder] = new(big.Int).Add(cur, amount)
}

// BalanceOf implements reserve.AssetBalanceSource.
func (l *AssetLedger) BalanceOf(holder string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.balances[holder]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(v), nil
}

var _ reserve.AssetBalanceSource = (*AssetLedger)(nil)

// StaticReserveConfig decodes the reserve factor directly from the
// packed Configuration bitmap, the straightforward case where governance
// has not layered any remapping on top of the low 16 bits.
type StaticReserveConfig struct{}

// GetReserveFactorBps implements reserve.ReserveConfigSource.
func (StaticReserveConfig) GetReserveFactorBps(config reserve.Configuration) (uint64, error) {
	return config.ReserveFactorBps(), nil
}

var _ reserve.ReserveConfigSource = StaticReserveConfig{}
