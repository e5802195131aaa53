package deals

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"dealchain/core/types"
)

const (
	// EventTypeTrustlessCreated is emitted once per successful trustless
	// creation.
	EventTypeTrustlessCreated = "deals.trustless.created"
	// EventTypeTrustlessTransition is emitted after every later trustless
	// state change.
	EventTypeTrustlessTransition = "deals.trustless.transition"
	// EventTypeArbitrerCreated is emitted once per successful arbitrer
	// creation.
	EventTypeArbitrerCreated = "deals.arbitrer.created"
	// EventTypeArbitrerTransition is emitted after every later arbitrer state
	// change.
	EventTypeArbitrerTransition = "deals.arbitrer.transition"

	noArbitrer = "none"
)

func formatAddress(addr [20]byte) string {
	return common.BytesToAddress(addr[:]).Hex()
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// NewTrustlessCreatedEvent builds the creation notification for a trustless
// deal. The time attribute carries the creation time.
func NewTrustlessCreatedEvent(deal *types.TrustlessDeal) *types.Event {
	if deal == nil {
		return nil
	}
	return &types.Event{
		Type: EventTypeTrustlessCreated,
		Attributes: map[string]string{
			"dealType": types.DealTrustless.String(),
			"id":       formatID(deal.ID),
			"buyer":    formatAddress(deal.Buyer),
			"seller":   formatAddress(deal.Seller),
			"arbitrer": noArbitrer,
			"time":     strconv.FormatInt(deal.CreationTime, 10),
			"value":    amountOrZero(deal.Value).String(),
			"state":    deal.State.String(),
		},
	}
}

// NewArbitrerCreatedEvent builds the creation notification for an arbitrer
// deal. The time attribute carries the expiration time.
func NewArbitrerCreatedEvent(deal *types.ArbitrerDeal) *types.Event {
	if deal == nil {
		return nil
	}
	return &types.Event{
		Type: EventTypeArbitrerCreated,
		Attributes: map[string]string{
			"dealType": types.DealArbitrer.String(),
			"id":       formatID(deal.ID),
			"buyer":    formatAddress(deal.Buyer),
			"seller":   formatAddress(deal.Seller),
			"arbitrer": formatAddress(deal.Arbitrer),
			"time":     strconv.FormatInt(deal.ExpirationTime, 10),
			"value":    amountOrZero(deal.Value).String(),
			"state":    deal.State.String(),
		},
	}
}

// NewTrustlessTransitionEvent reports the state a trustless deal moved to.
func NewTrustlessTransitionEvent(deal *types.TrustlessDeal, operation string) *types.Event {
	if deal == nil {
		return nil
	}
	return &types.Event{
		Type: EventTypeTrustlessTransition,
		Attributes: map[string]string{
			"id":        formatID(deal.ID),
			"operation": operation,
			"state":     deal.State.String(),
		},
	}
}

// NewArbitrerTransitionEvent reports the state an arbitrer deal moved to.
func NewArbitrerTransitionEvent(deal *types.ArbitrerDeal, operation string) *types.Event {
	if deal == nil {
		return nil
	}
	return &types.Event{
		Type: EventTypeArbitrerTransition,
		Attributes: map[string]string{
			"id":        formatID(deal.ID),
			"operation": operation,
			"state":     deal.State.String(),
		},
	}
}
