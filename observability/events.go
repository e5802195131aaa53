package observability

import (
	"strings"

	"dealchain/core/events"
	"dealchain/native/admin"
	"dealchain/native/deals"
)

// Emit implements events.Emitter so the registry can observe committed
// notifications directly.
func (m *dealMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	var attrs map[string]string
	if payload, ok := evt.(events.Payload); ok {
		if typed := payload.Event(); typed != nil {
			attrs = typed.Attributes
		}
	}
	switch eventType {
	case admin.EventTypeFeesWithdrawn:
		m.feesWithdrawn.Inc()
	case deals.EventTypeTrustlessCreated, deals.EventTypeArbitrerCreated:
		m.created.WithLabelValues(normalizeLabel(attrs["dealType"])).Inc()
	case deals.EventTypeTrustlessTransition, deals.EventTypeArbitrerTransition:
		m.transitions.WithLabelValues(dealTypeOf(eventType), normalizeLabel(attrs["operation"]), normalizeLabel(attrs["state"])).Inc()
	}
}

// dealTypeOf extracts the middle segment of deals.<type>.<suffix>.
func dealTypeOf(eventType string) string {
	parts := strings.Split(eventType, ".")
	if len(parts) < 3 {
		return "unknown"
	}
	return parts[1]
}
