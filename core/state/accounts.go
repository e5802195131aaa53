package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"dealchain/core/types"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the stored
	// balance.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
	// ErrBalanceOverflow is returned when a credit would not fit in 256 bits.
	ErrBalanceOverflow = errors.New("state: balance overflow")
)

func (tx *Tx) loadAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := tx.kvGet(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

func (tx *Tx) writeAmount(key []byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative amount")
	}
	return tx.kvPut(key, amount)
}

// addChecked returns a+b, failing when the sum exceeds 256 bits.
func addChecked(a, b *big.Int) (*big.Int, error) {
	left, overflow := uint256.FromBig(a)
	if overflow {
		return nil, ErrBalanceOverflow
	}
	right, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrBalanceOverflow
	}
	sum, overflow := new(uint256.Int).AddOverflow(left, right)
	if overflow {
		return nil, ErrBalanceOverflow
	}
	return sum.ToBig(), nil
}

// subChecked returns a-b, failing when b exceeds a.
func subChecked(a, b *big.Int) (*big.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, ErrInsufficientBalance
	}
	return new(big.Int).Sub(a, b), nil
}

// Balance returns the native-currency balance held by addr.
func (tx *Tx) Balance(addr [20]byte) (*big.Int, error) {
	return tx.loadAmount(balanceKey(addr))
}

// SetBalance overwrites the balance held by addr.
func (tx *Tx) SetBalance(addr [20]byte, amount *big.Int) error {
	if amount != nil {
		if _, overflow := uint256.FromBig(amount); overflow {
			return ErrBalanceOverflow
		}
	}
	return tx.writeAmount(balanceKey(addr), amount)
}

// Credit adds amount to the balance held by addr.
func (tx *Tx) Credit(addr [20]byte, amount *big.Int) error {
	if err := requireNonNegative(amount); err != nil {
		return err
	}
	current, err := tx.Balance(addr)
	if err != nil {
		return err
	}
	next, err := addChecked(current, amount)
	if err != nil {
		return err
	}
	return tx.writeAmount(balanceKey(addr), next)
}

// Debit removes amount from the balance held by addr.
func (tx *Tx) Debit(addr [20]byte, amount *big.Int) error {
	if err := requireNonNegative(amount); err != nil {
		return err
	}
	current, err := tx.Balance(addr)
	if err != nil {
		return err
	}
	next, err := subChecked(current, amount)
	if err != nil {
		return err
	}
	return tx.writeAmount(balanceKey(addr), next)
}

// Custody returns the amount currently held on behalf of a deal.
func (tx *Tx) Custody(kind types.DealType, id uint64) (*big.Int, error) {
	return tx.loadAmount(custodyKey(kind, id))
}

// CreditCustody increases the amount held on behalf of a deal.
func (tx *Tx) CreditCustody(kind types.DealType, id uint64, amount *big.Int) error {
	if err := requireNonNegative(amount); err != nil {
		return err
	}
	current, err := tx.Custody(kind, id)
	if err != nil {
		return err
	}
	next, err := addChecked(current, amount)
	if err != nil {
		return err
	}
	return tx.writeAmount(custodyKey(kind, id), next)
}

// DebitCustody decreases the amount held on behalf of a deal.
func (tx *Tx) DebitCustody(kind types.DealType, id uint64, amount *big.Int) error {
	if err := requireNonNegative(amount); err != nil {
		return err
	}
	current, err := tx.Custody(kind, id)
	if err != nil {
		return err
	}
	next, err := subChecked(current, amount)
	if err != nil {
		return err
	}
	return tx.writeAmount(custodyKey(kind, id), next)
}

func requireNonNegative(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: amount must be non-negative")
	}
	return nil
}
