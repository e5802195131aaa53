package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"dealchain/core/types"
)

type testPayload struct {
	evt *types.Event
}

func (p testPayload) EventType() string   { return p.evt.Type }
func (p testPayload) Event() *types.Event { return p.evt }

func TestEventLoggerWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	newEventLogger(logger).Emit(testPayload{evt: &types.Event{
		Type:       "deals.trustless.created",
		Attributes: map[string]string{"id": "0", "state": "PendingSellerDeposit"},
	}})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "event committed", line["msg"])
	require.Equal(t, "deals.trustless.created", line["type"])
	require.Equal(t, "0", line["id"])
	require.Equal(t, "PendingSellerDeposit", line["state"])
}

func TestEventLoggerIgnoresNil(t *testing.T) {
	var buf bytes.Buffer
	newEventLogger(slog.New(slog.NewJSONHandler(&buf, nil))).Emit(nil)
	require.Zero(t, buf.Len())
}
