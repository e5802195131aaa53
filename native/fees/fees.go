package fees

import (
	"fmt"
	"math/big"

	"dealchain/core/state"
)

// MaxBps is the basis-point denominator; a rate of MaxBps charges the whole
// value.
const MaxBps = 10_000

// Compute returns value*bps/10000 rounded down. Nil or non-positive values
// produce a zero fee.
func Compute(value *big.Int, bps uint32) *big.Int {
	if value == nil || value.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(value, new(big.Int).SetUint64(uint64(bps)))
	return fee.Div(fee, big.NewInt(MaxBps))
}

// ValidateRate rejects rates above MaxBps.
func ValidateRate(bps uint32) error {
	if bps > MaxBps {
		return fmt.Errorf("fees: bps out of range: %d", bps)
	}
	return nil
}

// Rate returns the completion fee in force inside tx, zero before genesis sets
// one.
func Rate(tx *state.Tx) (uint32, error) {
	bps, _, err := tx.FeeRate()
	return bps, err
}

// Accrue adds amount to the ledger's fee counter inside tx.
func Accrue(tx *state.Tx, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("fees: negative accrual")
	}
	current, err := tx.FeesAccrued()
	if err != nil {
		return err
	}
	return tx.SetFeesAccrued(new(big.Int).Add(current, amount))
}

// Drain resets the fee counter and returns the amount it held.
func Drain(tx *state.Tx) (*big.Int, error) {
	current, err := tx.FeesAccrued()
	if err != nil {
		return nil, err
	}
	if current.Sign() == 0 {
		return current, nil
	}
	if err := tx.SetFeesAccrued(big.NewInt(0)); err != nil {
		return nil, err
	}
	return current, nil
}
