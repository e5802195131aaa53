package deals

import (
	"fmt"
	"math"
	"math/big"

	coreerrors "dealchain/core/errors"
	"dealchain/core/state"
	"dealchain/core/types"
)

// Arbitrer operation names used in transition notifications and metrics.
const (
	OpArbitrerCreateAsBuyer  = "createAsBuyer"
	OpArbitrerCreateAsSeller = "createAsSeller"
	OpArbitrerSellerCancel   = "sellerCancel"
	OpArbitrerBuyerConfirm   = "buyerConfirm"
	OpArbitrerApprove        = "approve"
	OpArbitrerClaimExpired   = "claimExpired"
)

// ArbitrerDeal returns the record stored under id.
func (e *Engine) ArbitrerDeal(id uint64) (*types.ArbitrerDeal, error) {
	var out *types.ArbitrerDeal
	err := e.view(func(tx *state.Tx) error {
		deal, err := loadArbitrer(tx, id)
		out = deal
		return err
	})
	return out, err
}

// ArbitrerCount returns the number of arbitrer deals ever created.
func (e *Engine) ArbitrerCount() (uint64, error) {
	var out uint64
	err := e.view(func(tx *state.Tx) error {
		count, err := tx.ArbitrerCount()
		out = count
		return err
	})
	return out, err
}

func loadArbitrer(tx *state.Tx, id uint64) (*types.ArbitrerDeal, error) {
	deal, ok, err := tx.ArbitrerDeal(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: arbitrer deal %d does not exist", coreerrors.ErrInvalidID, id)
	}
	return deal, nil
}

func requireArbitrerState(deal *types.ArbitrerDeal, want types.ArbitrerState) error {
	if deal.State != want {
		return fmt.Errorf("%w: arbitrer deal %d is %s, expected %s", coreerrors.ErrInvalidState, deal.ID, deal.State, want)
	}
	return nil
}

func validateArbitrerParties(arbitrer, buyer, seller [20]byte) error {
	if err := requireIdentity(arbitrer, "arbitrer"); err != nil {
		return err
	}
	if err := requireIdentity(buyer, "buyer"); err != nil {
		return err
	}
	if err := requireIdentity(seller, "seller"); err != nil {
		return err
	}
	if arbitrer == buyer || arbitrer == seller || buyer == seller {
		return fmt.Errorf("%w: arbitrer, buyer and seller must be distinct", coreerrors.ErrInvalidParty)
	}
	return nil
}

func validateDuration(duration int64) error {
	if duration < OneDay {
		return fmt.Errorf("%w: duration %ds shorter than one day", coreerrors.ErrInvalidDuration, duration)
	}
	return nil
}

func expirationFrom(now, duration int64) (int64, error) {
	if duration > math.MaxInt64-now {
		return 0, fmt.Errorf("%w: duration %ds overflows the clock", coreerrors.ErrInvalidDuration, duration)
	}
	return now + duration, nil
}

// CreateArbitrerAsBuyer opens an arbitrated deal with the caller as buyer,
// escrowing value out of paid. The arbitrer may approve until now+duration.
func (e *Engine) CreateArbitrerAsBuyer(caller [20]byte, value *big.Int, arbitrer, seller [20]byte, duration int64, paid *big.Int) (uint64, error) {
	value, paid = amountOrZero(value), amountOrZero(paid)
	if err := validateArbitrerParties(arbitrer, caller, seller); err != nil {
		return 0, err
	}
	switch {
	case value.Sign() <= 0:
		return 0, fmt.Errorf("%w: value must be positive", coreerrors.ErrInvalidValue)
	case paid.Cmp(value) < 0:
		return 0, fmt.Errorf("%w: paid %s below value %s", coreerrors.ErrInvalidValue, paid, value)
	}
	if err := validateDuration(duration); err != nil {
		return 0, err
	}
	var id uint64
	err := e.apply(func(tx *state.Tx, now int64) ([]*types.Event, error) {
		expiration, err := expirationFrom(now, duration)
		if err != nil {
			return nil, err
		}
		if err := e.vault.Cover(tx, caller, paid); err != nil {
			return nil, err
		}
		deal := &types.ArbitrerDeal{
			Arbitrer:       arbitrer,
			Buyer:          caller,
			Seller:         seller,
			CreatorRole:    types.RoleBuyer,
			Value:          value,
			CreationTime:   now,
			ExpirationTime: expiration,
			State:          types.ArbitrerPendingApproval,
		}
		newID, err := tx.AppendArbitrer(deal)
		if err != nil {
			return nil, err
		}
		deal.ID = newID
		if err := e.vault.Escrow(tx, types.DealArbitrer, newID, caller, value); err != nil {
			return nil, err
		}
		id = newID
		return []*types.Event{NewArbitrerCreatedEvent(deal)}, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreateArbitrerAsSeller opens an arbitrated deal with the caller as seller.
// Nothing is escrowed until the buyer confirms.
func (e *Engine) CreateArbitrerAsSeller(caller [20]byte, value *big.Int, arbitrer, buyer [20]byte, duration int64) (uint64, error) {
	value = amountOrZero(value)
	if err := validateArbitrerParties(arbitrer, buyer, caller); err != nil {
		return 0, err
	}
	if value.Sign() <= 0 {
		return 0, fmt.Errorf("%w: value must be positive", coreerrors.ErrInvalidValue)
	}
	if err := validateDuration(duration); err != nil {
		return 0, err
	}
	var id uint64
	err := e.apply(func(tx *state.Tx, now int64) ([]*types.Event, error) {
		expiration, err := expirationFrom(now, duration)
		if err != nil {
			return nil, err
		}
		deal := &types.ArbitrerDeal{
			Arbitrer:       arbitrer,
			Buyer:          buyer,
			Seller:         caller,
			CreatorRole:    types.RoleSeller,
			Value:          value,
			CreationTime:   now,
			ExpirationTime: expiration,
			State:          types.ArbitrerPendingBuyerConfirmation,
		}
		newID, err := tx.AppendArbitrer(deal)
		if err != nil {
			return nil, err
		}
		deal.ID = newID
		id = newID
		return []*types.Event{NewArbitrerCreatedEvent(deal)}, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (e *Engine) transitionArbitrer(id uint64, op string, step func(tx *state.Tx, deal *types.ArbitrerDeal, now int64) (types.ArbitrerState, error)) error {
	return e.apply(func(tx *state.Tx, now int64) ([]*types.Event, error) {
		deal, err := loadArbitrer(tx, id)
		if err != nil {
			return nil, err
		}
		next, err := step(tx, deal, now)
		if err != nil {
			return nil, err
		}
		deal.State = next
		if err := tx.PutArbitrer(deal); err != nil {
			return nil, err
		}
		return []*types.Event{NewArbitrerTransitionEvent(deal, op)}, nil
	})
}

// ArbitrerSellerCancel withdraws a seller-created deal the buyer has not
// confirmed. No funds are held, so nothing moves.
func (e *Engine) ArbitrerSellerCancel(caller [20]byte, id uint64) error {
	return e.transitionArbitrer(id, OpArbitrerSellerCancel, func(_ *state.Tx, deal *types.ArbitrerDeal, _ int64) (types.ArbitrerState, error) {
		if err := requireCaller(caller, deal.Seller, "seller"); err != nil {
			return 0, err
		}
		if err := requireArbitrerState(deal, types.ArbitrerPendingBuyerConfirmation); err != nil {
			return 0, err
		}
		return types.ArbitrerCancelledByCreator, nil
	})
}

// ArbitrerBuyerConfirm accepts a seller-created deal before it expires,
// escrowing value out of paid.
func (e *Engine) ArbitrerBuyerConfirm(caller [20]byte, id uint64, paid *big.Int) error {
	paid = amountOrZero(paid)
	return e.transitionArbitrer(id, OpArbitrerBuyerConfirm, func(tx *state.Tx, deal *types.ArbitrerDeal, now int64) (types.ArbitrerState, error) {
		if err := requireCaller(caller, deal.Buyer, "buyer"); err != nil {
			return 0, err
		}
		if err := requireArbitrerState(deal, types.ArbitrerPendingBuyerConfirmation); err != nil {
			return 0, err
		}
		if paid.Cmp(deal.Value) < 0 {
			return 0, fmt.Errorf("%w: paid %s below value %s", coreerrors.ErrInvalidValue, paid, deal.Value)
		}
		if err := e.vault.Cover(tx, caller, paid); err != nil {
			return 0, err
		}
		if now >= deal.ExpirationTime {
			return 0, fmt.Errorf("%w: arbitrer deal %d expired at %d", coreerrors.ErrExpired, deal.ID, deal.ExpirationTime)
		}
		if err := e.vault.Escrow(tx, types.DealArbitrer, deal.ID, caller, deal.Value); err != nil {
			return 0, err
		}
		return types.ArbitrerPendingApproval, nil
	})
}

// Approve releases the escrowed value to the seller. Only the arbitrer may
// approve, and only before expiry.
func (e *Engine) Approve(caller [20]byte, id uint64) error {
	return e.transitionArbitrer(id, OpArbitrerApprove, func(tx *state.Tx, deal *types.ArbitrerDeal, now int64) (types.ArbitrerState, error) {
		if err := requireCaller(caller, deal.Arbitrer, "arbitrer"); err != nil {
			return 0, err
		}
		if err := requireArbitrerState(deal, types.ArbitrerPendingApproval); err != nil {
			return 0, err
		}
		if now >= deal.ExpirationTime {
			return 0, fmt.Errorf("%w: arbitrer deal %d expired at %d", coreerrors.ErrExpired, deal.ID, deal.ExpirationTime)
		}
		if err := e.vault.Disburse(tx, types.DealArbitrer, deal.ID, deal.Seller, deal.Value); err != nil {
			return 0, err
		}
		return types.ArbitrerCompleted, nil
	})
}

// ClaimExpired returns the escrowed value to the buyer once the approval
// window has strictly passed.
func (e *Engine) ClaimExpired(caller [20]byte, id uint64) error {
	return e.transitionArbitrer(id, OpArbitrerClaimExpired, func(tx *state.Tx, deal *types.ArbitrerDeal, now int64) (types.ArbitrerState, error) {
		if err := requireCaller(caller, deal.Buyer, "buyer"); err != nil {
			return 0, err
		}
		if err := requireArbitrerState(deal, types.ArbitrerPendingApproval); err != nil {
			return 0, err
		}
		if now <= deal.ExpirationTime {
			return 0, fmt.Errorf("%w: arbitrer deal %d expires at %d", coreerrors.ErrNotYetExpired, deal.ID, deal.ExpirationTime)
		}
		if err := e.vault.Disburse(tx, types.DealArbitrer, deal.ID, deal.Buyer, deal.Value); err != nil {
			return 0, err
		}
		return types.ArbitrerValueClaimedExpired, nil
	})
}
