package reserve

import "math/big"

// DataUpdated is the ReserveDataUpdated observation emitted once per
// UpdateInterestRates call, regardless of whether the rates changed.
type DataUpdated struct {
	ReserveAddress      string
	LiquidityRate       *big.Int
	StableBorrowRate    *big.Int
	VariableBorrowRate  *big.Int
	LiquidityIndex      *big.Int
	VariableBorrowIndex *big.Int
}

// EventSink receives observations emitted by the reserve logic. A nil
// sink is a valid no-op receiver.
type EventSink interface {
	OnReserveDataUpdated(DataUpdated)
}

// DiscardSink is an EventSink that drops every observation. It is the
// default used when a caller does not care to observe reserve updates.
type DiscardSink struct{}

// OnReserveDataUpdated implements EventSink.
func (DiscardSink) OnReserveDataUpdated(DataUpdated) {}
