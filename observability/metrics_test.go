package observability

import (
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"dealchain/core/types"
	"dealchain/native/deals"
)

type typedEvent struct {
	evt *types.Event
}

func (e typedEvent) EventType() string   { return e.evt.Type }
func (e typedEvent) Event() *types.Event { return e.evt }

func TestDealMetricsCountNotifications(t *testing.T) {
	m := Deals()
	created := deals.NewArbitrerCreatedEvent(&types.ArbitrerDeal{Value: big.NewInt(5), State: types.ArbitrerPendingBuyerConfirmation})
	before := testutil.ToFloat64(m.created.WithLabelValues("arbitrer"))
	m.Emit(typedEvent{evt: created})
	if got := testutil.ToFloat64(m.created.WithLabelValues("arbitrer")); got != before+1 {
		t.Fatalf("created counter %v, want %v", got, before+1)
	}

	transition := deals.NewArbitrerTransitionEvent(&types.ArbitrerDeal{State: types.ArbitrerCompleted}, deals.OpArbitrerApprove)
	m.Emit(typedEvent{evt: transition})
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("arbitrer", "approve", "Completed")); got < 1 {
		t.Fatalf("transition not counted: %v", got)
	}
}

func TestObserveOperationOutcome(t *testing.T) {
	m := Deals()
	m.ObserveOperation("trustless", "complete", "", time.Millisecond)
	m.ObserveOperation("trustless", "complete", "TransferFailed", time.Millisecond)
	if got := testutil.ToFloat64(m.operations.WithLabelValues("trustless", "complete", "ok")); got < 1 {
		t.Fatalf("success not counted: %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("trustless", "complete", "TransferFailed")); got < 1 {
		t.Fatalf("failure not counted: %v", got)
	}
}

func TestDealTypeOf(t *testing.T) {
	if got := dealTypeOf(deals.EventTypeTrustlessTransition); got != "trustless" {
		t.Fatalf("unexpected deal type %q", got)
	}
	if got := dealTypeOf("bogus"); got != "unknown" {
		t.Fatalf("unexpected deal type %q", got)
	}
}
