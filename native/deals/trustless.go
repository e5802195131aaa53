package deals

import (
	"fmt"
	"math/big"

	coreerrors "dealchain/core/errors"
	"dealchain/core/state"
	"dealchain/core/types"
	"dealchain/native/fees"
)

// Trustless operation names used in transition notifications and metrics.
const (
	OpTrustlessCreateAsBuyer  = "createAsBuyer"
	OpTrustlessCreateAsSeller = "createAsSeller"
	OpTrustlessBuyerCancel    = "buyerCancel"
	OpTrustlessSellerCancel   = "sellerCancel"
	OpTrustlessBuyerConfirm   = "buyerConfirm"
	OpTrustlessSellerConfirm  = "sellerConfirm"
	OpTrustlessComplete       = "complete"
)

// TrustlessDeal returns the record stored under id.
func (e *Engine) TrustlessDeal(id uint64) (*types.TrustlessDeal, error) {
	var out *types.TrustlessDeal
	err := e.view(func(tx *state.Tx) error {
		deal, err := loadTrustless(tx, id)
		out = deal
		return err
	})
	return out, err
}

// TrustlessCount returns the number of trustless deals ever created.
func (e *Engine) TrustlessCount() (uint64, error) {
	var out uint64
	err := e.view(func(tx *state.Tx) error {
		count, err := tx.TrustlessCount()
		out = count
		return err
	})
	return out, err
}

func loadTrustless(tx *state.Tx, id uint64) (*types.TrustlessDeal, error) {
	deal, ok, err := tx.TrustlessDeal(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: trustless deal %d does not exist", coreerrors.ErrInvalidID, id)
	}
	return deal, nil
}

func requireTrustlessState(deal *types.TrustlessDeal, want types.TrustlessState) error {
	if deal.State != want {
		return fmt.Errorf("%w: trustless deal %d is %s, expected %s", coreerrors.ErrInvalidState, deal.ID, deal.State, want)
	}
	return nil
}

// CreateTrustlessAsBuyer opens a deal with the caller as buyer. The caller
// escrows value+buyerDeposit out of paid; the seller confirms later with
// sellerDeposit.
func (e *Engine) CreateTrustlessAsBuyer(caller [20]byte, value *big.Int, seller [20]byte, sellerDeposit, buyerDeposit, paid *big.Int) (uint64, error) {
	value, sellerDeposit, buyerDeposit, paid = amountOrZero(value), amountOrZero(sellerDeposit), amountOrZero(buyerDeposit), amountOrZero(paid)
	if err := requireIdentity(caller, "buyer"); err != nil {
		return 0, err
	}
	if err := requireIdentity(seller, "seller"); err != nil {
		return 0, err
	}
	if seller == caller {
		return 0, fmt.Errorf("%w: seller and buyer must differ", coreerrors.ErrInvalidParty)
	}
	required := new(big.Int).Add(value, buyerDeposit)
	switch {
	case value.Sign() <= 0:
		return 0, fmt.Errorf("%w: value must be positive", coreerrors.ErrInvalidValue)
	case buyerDeposit.Cmp(value) < 0:
		return 0, fmt.Errorf("%w: buyer deposit %s below value %s", coreerrors.ErrInvalidValue, buyerDeposit, value)
	case sellerDeposit.Sign() <= 0:
		return 0, fmt.Errorf("%w: seller deposit must be positive", coreerrors.ErrInvalidValue)
	case paid.Cmp(required) < 0:
		return 0, fmt.Errorf("%w: paid %s below value plus buyer deposit %s", coreerrors.ErrInvalidValue, paid, required)
	}
	var id uint64
	err := e.apply(func(tx *state.Tx, now int64) ([]*types.Event, error) {
		if err := e.vault.Cover(tx, caller, paid); err != nil {
			return nil, err
		}
		deal := &types.TrustlessDeal{
			Buyer:         caller,
			Seller:        seller,
			CreatorRole:   types.RoleBuyer,
			Value:         value,
			BuyerDeposit:  buyerDeposit,
			SellerDeposit: sellerDeposit,
			CreationTime:  now,
			State:         types.TrustlessPendingSellerDeposit,
		}
		newID, err := tx.AppendTrustless(deal)
		if err != nil {
			return nil, err
		}
		deal.ID = newID
		if err := e.vault.Escrow(tx, types.DealTrustless, newID, caller, required); err != nil {
			return nil, err
		}
		id = newID
		return []*types.Event{NewTrustlessCreatedEvent(deal)}, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreateTrustlessAsSeller opens a deal with the caller as seller. The caller
// escrows sellerDeposit out of paid; the buyer confirms later with
// value+buyerDeposit.
func (e *Engine) CreateTrustlessAsSeller(caller [20]byte, value *big.Int, buyer [20]byte, sellerDeposit, buyerDeposit, paid *big.Int) (uint64, error) {
	value, sellerDeposit, buyerDeposit, paid = amountOrZero(value), amountOrZero(sellerDeposit), amountOrZero(buyerDeposit), amountOrZero(paid)
	if err := requireIdentity(caller, "seller"); err != nil {
		return 0, err
	}
	if err := requireIdentity(buyer, "buyer"); err != nil {
		return 0, err
	}
	if buyer == caller {
		return 0, fmt.Errorf("%w: seller and buyer must differ", coreerrors.ErrInvalidParty)
	}
	switch {
	case value.Sign() <= 0:
		return 0, fmt.Errorf("%w: value must be positive", coreerrors.ErrInvalidValue)
	case buyerDeposit.Sign() <= 0:
		return 0, fmt.Errorf("%w: buyer deposit must be positive", coreerrors.ErrInvalidValue)
	case sellerDeposit.Sign() <= 0:
		return 0, fmt.Errorf("%w: seller deposit must be positive", coreerrors.ErrInvalidValue)
	case paid.Cmp(sellerDeposit) < 0:
		return 0, fmt.Errorf("%w: paid %s below seller deposit %s", coreerrors.ErrInvalidValue, paid, sellerDeposit)
	}
	var id uint64
	err := e.apply(func(tx *state.Tx, now int64) ([]*types.Event, error) {
		if err := e.vault.Cover(tx, caller, paid); err != nil {
			return nil, err
		}
		deal := &types.TrustlessDeal{
			Buyer:         buyer,
			Seller:        caller,
			CreatorRole:   types.RoleSeller,
			Value:         value,
			BuyerDeposit:  buyerDeposit,
			SellerDeposit: sellerDeposit,
			CreationTime:  now,
			State:         types.TrustlessPendingBuyerDeposit,
		}
		newID, err := tx.AppendTrustless(deal)
		if err != nil {
			return nil, err
		}
		deal.ID = newID
		if err := e.vault.Escrow(tx, types.DealTrustless, newID, caller, sellerDeposit); err != nil {
			return nil, err
		}
		id = newID
		return []*types.Event{NewTrustlessCreatedEvent(deal)}, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// transitionTrustless loads the deal, runs step and persists the returned
// state.
func (e *Engine) transitionTrustless(id uint64, op string, step func(tx *state.Tx, deal *types.TrustlessDeal, now int64) (types.TrustlessState, error)) error {
	return e.apply(func(tx *state.Tx, now int64) ([]*types.Event, error) {
		deal, err := loadTrustless(tx, id)
		if err != nil {
			return nil, err
		}
		next, err := step(tx, deal, now)
		if err != nil {
			return nil, err
		}
		deal.State = next
		if err := tx.PutTrustless(deal); err != nil {
			return nil, err
		}
		return []*types.Event{NewTrustlessTransitionEvent(deal, op)}, nil
	})
}

// TrustlessBuyerCancel withdraws a buyer-created deal the seller has not yet
// confirmed, refunding value+buyerDeposit.
func (e *Engine) TrustlessBuyerCancel(caller [20]byte, id uint64) error {
	return e.transitionTrustless(id, OpTrustlessBuyerCancel, func(tx *state.Tx, deal *types.TrustlessDeal, _ int64) (types.TrustlessState, error) {
		if err := requireCaller(caller, deal.Buyer, "buyer"); err != nil {
			return 0, err
		}
		if err := requireTrustlessState(deal, types.TrustlessPendingSellerDeposit); err != nil {
			return 0, err
		}
		refund := new(big.Int).Add(deal.BuyerDeposit, deal.Value)
		if err := e.vault.Disburse(tx, types.DealTrustless, deal.ID, deal.Buyer, refund); err != nil {
			return 0, err
		}
		return types.TrustlessCancelledByCreator, nil
	})
}

// TrustlessSellerCancel withdraws a seller-created deal the buyer has not yet
// confirmed, refunding sellerDeposit.
func (e *Engine) TrustlessSellerCancel(caller [20]byte, id uint64) error {
	return e.transitionTrustless(id, OpTrustlessSellerCancel, func(tx *state.Tx, deal *types.TrustlessDeal, _ int64) (types.TrustlessState, error) {
		if err := requireCaller(caller, deal.Seller, "seller"); err != nil {
			return 0, err
		}
		if err := requireTrustlessState(deal, types.TrustlessPendingBuyerDeposit); err != nil {
			return 0, err
		}
		if err := e.vault.Disburse(tx, types.DealTrustless, deal.ID, deal.Seller, deal.SellerDeposit); err != nil {
			return 0, err
		}
		return types.TrustlessCancelledByCreator, nil
	})
}

// TrustlessBuyerConfirm accepts a seller-created deal, escrowing
// value+buyerDeposit out of paid.
func (e *Engine) TrustlessBuyerConfirm(caller [20]byte, id uint64, paid *big.Int) error {
	paid = amountOrZero(paid)
	return e.transitionTrustless(id, OpTrustlessBuyerConfirm, func(tx *state.Tx, deal *types.TrustlessDeal, _ int64) (types.TrustlessState, error) {
		if err := requireCaller(caller, deal.Buyer, "buyer"); err != nil {
			return 0, err
		}
		if err := requireTrustlessState(deal, types.TrustlessPendingBuyerDeposit); err != nil {
			return 0, err
		}
		required := new(big.Int).Add(deal.Value, deal.BuyerDeposit)
		if paid.Cmp(required) < 0 {
			return 0, fmt.Errorf("%w: paid %s below value plus buyer deposit %s", coreerrors.ErrInsufficientFunds, paid, required)
		}
		if err := e.vault.Cover(tx, caller, paid); err != nil {
			return 0, err
		}
		if err := e.vault.Escrow(tx, types.DealTrustless, deal.ID, caller, required); err != nil {
			return 0, err
		}
		return types.TrustlessConfirmed, nil
	})
}

// TrustlessSellerConfirm accepts a buyer-created deal, escrowing sellerDeposit
// out of paid.
func (e *Engine) TrustlessSellerConfirm(caller [20]byte, id uint64, paid *big.Int) error {
	paid = amountOrZero(paid)
	return e.transitionTrustless(id, OpTrustlessSellerConfirm, func(tx *state.Tx, deal *types.TrustlessDeal, _ int64) (types.TrustlessState, error) {
		if err := requireCaller(caller, deal.Seller, "seller"); err != nil {
			return 0, err
		}
		if err := requireTrustlessState(deal, types.TrustlessPendingSellerDeposit); err != nil {
			return 0, err
		}
		if paid.Cmp(deal.SellerDeposit) < 0 {
			return 0, fmt.Errorf("%w: paid %s below seller deposit %s", coreerrors.ErrInsufficientFunds, paid, deal.SellerDeposit)
		}
		if err := e.vault.Cover(tx, caller, paid); err != nil {
			return 0, err
		}
		if err := e.vault.Escrow(tx, types.DealTrustless, deal.ID, caller, deal.SellerDeposit); err != nil {
			return 0, err
		}
		return types.TrustlessConfirmed, nil
	})
}

// TrustlessComplete settles a confirmed deal. The buyer gets buyerDeposit back
// and the seller receives sellerDeposit+value minus the fee, which is accrued.
func (e *Engine) TrustlessComplete(caller [20]byte, id uint64) error {
	return e.transitionTrustless(id, OpTrustlessComplete, func(tx *state.Tx, deal *types.TrustlessDeal, _ int64) (types.TrustlessState, error) {
		if err := requireCaller(caller, deal.Buyer, "buyer"); err != nil {
			return 0, err
		}
		if err := requireTrustlessState(deal, types.TrustlessConfirmed); err != nil {
			return 0, err
		}
		bps, err := fees.Rate(tx)
		if err != nil {
			return 0, err
		}
		fee := fees.Compute(deal.Value, bps)
		if err := fees.Accrue(tx, fee); err != nil {
			return 0, err
		}
		if err := e.vault.Retain(tx, types.DealTrustless, deal.ID, fee); err != nil {
			return 0, err
		}
		if err := e.vault.Disburse(tx, types.DealTrustless, deal.ID, deal.Buyer, deal.BuyerDeposit); err != nil {
			return 0, err
		}
		payout := new(big.Int).Add(deal.SellerDeposit, deal.Value)
		payout.Sub(payout, fee)
		if err := e.vault.Disburse(tx, types.DealTrustless, deal.ID, deal.Seller, payout); err != nil {
			return 0, err
		}
		return types.TrustlessCompleted, nil
	})
}
