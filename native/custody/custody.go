package custody

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	coreerrors "dealchain/core/errors"
	"dealchain/core/state"
	"dealchain/core/types"
)

// VaultAddress is the module account holding every escrowed unit until a
// terminal transition or fee withdrawal releases it.
var VaultAddress = deriveVaultAddress()

func deriveVaultAddress() [20]byte {
	hash := ethcrypto.Keccak256([]byte("dealchain/custody"))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// RecipientPolicy decides whether a party can receive a disbursement. A
// non-nil error aborts the surrounding transition.
type RecipientPolicy interface {
	Accept(to [20]byte, amount *big.Int) error
}

// AcceptAll lets every recipient receive funds.
type AcceptAll struct{}

// Accept implements RecipientPolicy.
func (AcceptAll) Accept([20]byte, *big.Int) error { return nil }

// DenyList refuses disbursements to the listed identities.
type DenyList map[[20]byte]struct{}

// Accept implements RecipientPolicy.
func (d DenyList) Accept(to [20]byte, _ *big.Int) error {
	if _, blocked := d[to]; blocked {
		return fmt.Errorf("recipient %x refuses funds", to)
	}
	return nil
}

// Vault implements the transfer-or-abort primitive. All methods operate on a
// staging transaction; any error they return must abort it.
type Vault struct {
	policy RecipientPolicy
}

// NewVault constructs a vault with the supplied recipient policy. A nil policy
// accepts every recipient.
func NewVault(policy RecipientPolicy) *Vault {
	v := &Vault{}
	v.SetPolicy(policy)
	return v
}

// SetPolicy replaces the recipient policy.
func (v *Vault) SetPolicy(policy RecipientPolicy) {
	if policy == nil {
		policy = AcceptAll{}
	}
	v.policy = policy
}

// Escrow moves amount from the payer's balance into the vault and books it to
// the deal's custody ledger.
func (v *Vault) Escrow(tx *state.Tx, kind types.DealType, id uint64, from [20]byte, amount *big.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if err := tx.Debit(from, amount); err != nil {
		if errors.Is(err, state.ErrInsufficientBalance) {
			return fmt.Errorf("%w: balance of %x below %s", coreerrors.ErrInsufficientFunds, from, amount)
		}
		return err
	}
	if err := tx.Credit(VaultAddress, amount); err != nil {
		return wrapTransfer(err)
	}
	return tx.CreditCustody(kind, id, amount)
}

// Cover fails with InsufficientFunds unless the payer's balance backs the full
// amount it offered, even when only part of it is escrowed.
func (v *Vault) Cover(tx *state.Tx, from [20]byte, paid *big.Int) error {
	balance, err := tx.Balance(from)
	if err != nil {
		return err
	}
	if paid != nil && balance.Cmp(paid) < 0 {
		return fmt.Errorf("%w: balance of %x below paid %s", coreerrors.ErrInsufficientFunds, from, paid)
	}
	return nil
}

// Disburse releases amount from the deal's custody ledger to the recipient.
// Refusal by the recipient or an unrepresentable balance fails with
// TransferFailed. A zero amount is a no-op.
func (v *Vault) Disburse(tx *state.Tx, kind types.DealType, id uint64, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("custody: negative disbursement")
	}
	if err := v.policy.Accept(to, amount); err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrTransferFailed, err)
	}
	if err := tx.DebitCustody(kind, id, amount); err != nil {
		return fmt.Errorf("custody: %s deal %d holds less than %s: %w", kind, id, amount, err)
	}
	return v.move(tx, to, amount)
}

// Retain removes amount from the deal's custody ledger while keeping it in the
// vault, where it backs the fee accrual counter.
func (v *Vault) Retain(tx *state.Tx, kind types.DealType, id uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := tx.DebitCustody(kind, id, amount); err != nil {
		return fmt.Errorf("custody: %s deal %d holds less than fee %s: %w", kind, id, amount, err)
	}
	return nil
}

// Release pays amount from the vault to a recipient without touching any deal
// ledger. Used for fee withdrawal.
func (v *Vault) Release(tx *state.Tx, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := v.policy.Accept(to, amount); err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrTransferFailed, err)
	}
	return v.move(tx, to, amount)
}

func (v *Vault) move(tx *state.Tx, to [20]byte, amount *big.Int) error {
	if err := tx.Debit(VaultAddress, amount); err != nil {
		return fmt.Errorf("custody: vault underfunded: %w", err)
	}
	if err := tx.Credit(to, amount); err != nil {
		return wrapTransfer(err)
	}
	return nil
}

func wrapTransfer(err error) error {
	if errors.Is(err, state.ErrBalanceOverflow) {
		return fmt.Errorf("%w: %v", coreerrors.ErrTransferFailed, err)
	}
	return err
}

func requirePositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("custody: amount must be positive")
	}
	return nil
}
