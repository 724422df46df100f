package reserve

import "math/big"

// StableDebtSource is the external stable-debt token snapshot described in
// §6 (StableDebtTokenSnapshot.getSupplyData).
type StableDebtSource interface {
	GetSupplyData(reserveAddress string) (principal, total, avgRate *big.Int, lastUpdate uint64, err error)
}

// VariableDebtSource is the external variable-debt token collaborator
// (VariableDebtToken.scaledTotalSupply).
type VariableDebtSource interface {
	ScaledTotalSupply(reserveAddress string) (*big.Int, error)
}

// AssetBalanceSource is the external asset-token balance collaborator
// (AssetToken.balanceOf) used to sample the aToken's held liquidity.
type AssetBalanceSource interface {
	BalanceOf(holder string) (*big.Int, error)
}

// ReserveConfigSource decodes the reserve factor out of a packed
// configuration bitmap (ReserveConfiguration.getReserveFactor). It is
// modeled as a collaborator, not a pure function on Configuration,
// because real deployments keep the bitmap layout and governance-facing
// decode logic outside this core.
type ReserveConfigSource interface {
	GetReserveFactorBps(config Configuration) (uint64, error)
}
