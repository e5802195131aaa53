package state

import (
	"fmt"
	"math/big"
)

// FeesAccrued returns the running total of fees awaiting withdrawal.
func (tx *Tx) FeesAccrued() (*big.Int, error) {
	return tx.loadAmount(feesAccruedKey)
}

// SetFeesAccrued overwrites the fee accrual counter.
func (tx *Tx) SetFeesAccrued(amount *big.Int) error {
	return tx.writeAmount(feesAccruedKey, amount)
}

// FeeRate returns the configured fee in basis points. The boolean is false
// when no rate has been stored yet.
func (tx *Tx) FeeRate() (uint32, bool, error) {
	var bps uint32
	ok, err := tx.kvGet(feeRateKey, &bps)
	if err != nil {
		return 0, false, err
	}
	return bps, ok, nil
}

// SetFeeRate stores the fee in basis points.
func (tx *Tx) SetFeeRate(bps uint32) error {
	if bps > 10_000 {
		return fmt.Errorf("state: fee bps out of range: %d", bps)
	}
	return tx.kvPut(feeRateKey, bps)
}

// Owner returns the administrator identity. The boolean is false when no
// owner has been stored yet.
func (tx *Tx) Owner() ([20]byte, bool, error) {
	var owner [20]byte
	ok, err := tx.kvGet(ownerKey, &owner)
	if err != nil {
		return [20]byte{}, false, err
	}
	return owner, ok, nil
}

// SetOwner stores the administrator identity.
func (tx *Tx) SetOwner(owner [20]byte) error {
	return tx.kvPut(ownerKey, owner)
}
