package types

import (
	"fmt"
	"math/big"
)

// Role identifies which counterparty initiated a deal.
type Role uint8

const (
	RoleBuyer Role = iota
	RoleSeller
)

// Valid reports whether the role is one of the two supported variants.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

func (r Role) String() string {
	switch r {
	case RoleBuyer:
		return "buyer"
	case RoleSeller:
		return "seller"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// ParseRole maps the lowercase label back to a Role.
func ParseRole(label string) (Role, error) {
	switch label {
	case "buyer":
		return RoleBuyer, nil
	case "seller":
		return RoleSeller, nil
	default:
		return 0, fmt.Errorf("unknown role %q", label)
	}
}

// DealType tags which of the two independent deal sequences a record belongs
// to.
type DealType uint8

const (
	DealTrustless DealType = iota
	DealArbitrer
)

func (t DealType) String() string {
	switch t {
	case DealTrustless:
		return "trustless"
	case DealArbitrer:
		return "arbitrer"
	default:
		return fmt.Sprintf("dealType(%d)", uint8(t))
	}
}

// TrustlessState enumerates the lifecycle states of a trustless deal. The
// numeric values are shared with ArbitrerState on the wire but the two types
// never mix.
type TrustlessState uint8

const (
	TrustlessPendingSellerDeposit TrustlessState = 3
	TrustlessPendingBuyerDeposit  TrustlessState = 4
	TrustlessConfirmed            TrustlessState = 5
	TrustlessCancelledByCreator   TrustlessState = 6
	TrustlessCompleted            TrustlessState = 7
)

// Valid reports whether the status value is within the supported range.
func (s TrustlessState) Valid() bool {
	switch s {
	case TrustlessPendingSellerDeposit, TrustlessPendingBuyerDeposit, TrustlessConfirmed,
		TrustlessCancelledByCreator, TrustlessCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted.
func (s TrustlessState) Terminal() bool {
	return s == TrustlessCancelledByCreator || s == TrustlessCompleted
}

func (s TrustlessState) String() string {
	switch s {
	case TrustlessPendingSellerDeposit:
		return "PendingSellerDeposit"
	case TrustlessPendingBuyerDeposit:
		return "PendingBuyerDeposit"
	case TrustlessConfirmed:
		return "Confirmed"
	case TrustlessCancelledByCreator:
		return "CancelledByCreator"
	case TrustlessCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("TrustlessState(%d)", uint8(s))
	}
}

// ArbitrerState enumerates the lifecycle states of an arbitrer deal.
type ArbitrerState uint8

const (
	ArbitrerPendingApproval          ArbitrerState = 0
	ArbitrerPendingBuyerConfirmation ArbitrerState = 1
	ArbitrerValueClaimedExpired      ArbitrerState = 2
	ArbitrerCancelledByCreator       ArbitrerState = 6
	ArbitrerCompleted                ArbitrerState = 7
)

// Valid reports whether the status value is within the supported range.
func (s ArbitrerState) Valid() bool {
	switch s {
	case ArbitrerPendingApproval, ArbitrerPendingBuyerConfirmation, ArbitrerValueClaimedExpired,
		ArbitrerCancelledByCreator, ArbitrerCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted.
func (s ArbitrerState) Terminal() bool {
	return s == ArbitrerValueClaimedExpired || s == ArbitrerCancelledByCreator || s == ArbitrerCompleted
}

func (s ArbitrerState) String() string {
	switch s {
	case ArbitrerPendingApproval:
		return "PendingArbitrerApproval"
	case ArbitrerPendingBuyerConfirmation:
		return "ArbitrerPendingBuyerConfirmation"
	case ArbitrerValueClaimedExpired:
		return "ValueClaimedExpired"
	case ArbitrerCancelledByCreator:
		return "CancelledByCreator"
	case ArbitrerCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("ArbitrerState(%d)", uint8(s))
	}
}

// TrustlessDeal is a collateralised buyer/seller escrow without a third party.
// Every field except State is fixed at creation.
type TrustlessDeal struct {
	ID            uint64
	Buyer         [20]byte
	Seller        [20]byte
	CreatorRole   Role
	Value         *big.Int
	BuyerDeposit  *big.Int
	SellerDeposit *big.Int
	CreationTime  int64
	State         TrustlessState
}

// Clone returns a deep copy of the deal so callers can safely mutate the copy
// without affecting the stored instance.
func (d *TrustlessDeal) Clone() *TrustlessDeal {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Value = cloneAmount(d.Value)
	clone.BuyerDeposit = cloneAmount(d.BuyerDeposit)
	clone.SellerDeposit = cloneAmount(d.SellerDeposit)
	return &clone
}

// ArbitrerDeal is a buyer/seller escrow adjudicated by a third party before
// ExpirationTime.
type ArbitrerDeal struct {
	ID             uint64
	Arbitrer       [20]byte
	Buyer          [20]byte
	Seller         [20]byte
	CreatorRole    Role
	Value          *big.Int
	CreationTime   int64
	ExpirationTime int64
	State          ArbitrerState
}

// Clone returns a deep copy of the deal.
func (d *ArbitrerDeal) Clone() *ArbitrerDeal {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Value = cloneAmount(d.Value)
	return &clone
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
