package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"dealchain/core/events"
	"dealchain/core/state"
	"dealchain/native/admin"
	"dealchain/native/deals"
	"dealchain/rpc/middleware"
	"dealchain/storage"
)

const testNow int64 = 1_700_000_000

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func hexOf(addr [20]byte) string {
	return common.BytesToAddress(addr[:]).Hex()
}

var (
	ownerAddr    = testAddress(0x0A)
	buyerAddr    = testAddress(0x01)
	sellerAddr   = testAddress(0x02)
	arbitrerAddr = testAddress(0x03)
)

type testEnv struct {
	engine  *deals.Engine
	admin   *admin.Module
	feed    *events.Feed
	handler http.Handler
	now     int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	_, err := manager.ApplyGenesis(state.Genesis{
		Owner:  ownerAddr,
		FeeBps: 10,
		Allocs: []state.GenesisAlloc{
			{Address: buyerAddr, Balance: big.NewInt(2_200_000)},
			{Address: sellerAddr, Balance: big.NewInt(300_000)},
		},
	})
	require.NoError(t, err)

	env := &testEnv{now: testNow}
	env.engine = deals.NewEngine(manager)
	env.engine.SetNowFunc(func() int64 { return env.now })
	env.admin = admin.NewModule(manager, env.engine.Vault())
	env.feed = events.NewFeed(64)
	env.engine.SetEmitter(env.feed)
	env.admin.SetEmitter(env.feed)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer(Config{
		Engine:        env.engine,
		Admin:         env.admin,
		Feed:          env.feed,
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{}, logger),
		Logger:        logger,
	})
	env.handler = server.Handler()
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, caller [20]byte, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != ([20]byte{}) {
		req.Header.Set(middleware.CallerHeader, hexOf(caller))
	}
	recorder := httptest.NewRecorder()
	env.handler.ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out))
	return out
}

func requireKind(t *testing.T, recorder *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	require.Equal(t, status, recorder.Code, recorder.Body.String())
	body := decode[errorResponse](t, recorder)
	require.Equal(t, kind, body.Error.Kind)
}

func (env *testEnv) balance(t *testing.T, addr [20]byte) string {
	t.Helper()
	recorder := env.do(t, http.MethodGet, "/v1/accounts/"+hexOf(addr), [20]byte{}, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	return decode[accountResult](t, recorder).Balance
}

func TestTrustlessLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(t, http.MethodPost, "/v1/trustless/buyer", buyerAddr, map[string]string{
		"seller":        hexOf(sellerAddr),
		"value":         "1000000",
		"sellerDeposit": "300000",
		"buyerDeposit":  "1200000",
		"paid":          "2200000",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	require.Equal(t, uint64(0), decode[createResult](t, recorder).ID)

	recorder = env.do(t, http.MethodGet, "/v1/trustless/0", [20]byte{}, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	view := decode[trustlessJSON](t, recorder)
	require.Equal(t, "PendingSellerDeposit", view.State)
	require.Equal(t, uint8(3), view.StateCode)
	require.Equal(t, "2200000", view.Custody)
	require.Equal(t, "buyer", view.CreatorRole)

	recorder = env.do(t, http.MethodPost, "/v1/trustless/0/seller-confirm", sellerAddr, map[string]string{"paid": "300000"})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.Equal(t, "Confirmed", decode[stateResult](t, recorder).State)

	recorder = env.do(t, http.MethodPost, "/v1/trustless/0/complete", buyerAddr, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.Equal(t, "Completed", decode[stateResult](t, recorder).State)

	require.Equal(t, "1200000", env.balance(t, buyerAddr))
	require.Equal(t, "1299000", env.balance(t, sellerAddr))

	recorder = env.do(t, http.MethodGet, "/v1/admin", [20]byte{}, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	snapshot := decode[adminResult](t, recorder)
	require.Equal(t, "1000", snapshot.FeesAccrued)
	require.Equal(t, hexOf(ownerAddr), snapshot.Owner)

	recorder = env.do(t, http.MethodGet, "/v1/trustless", [20]byte{}, nil)
	require.Equal(t, uint64(1), decode[countResult](t, recorder).Count)
}

func TestArbitrerApproveOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(t, http.MethodPost, "/v1/arbitrer/buyer", buyerAddr, map[string]interface{}{
		"arbitrer":        hexOf(arbitrerAddr),
		"seller":          hexOf(sellerAddr),
		"value":           "500000",
		"durationSeconds": deals.OneDay,
		"paid":            "500000",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	recorder = env.do(t, http.MethodPost, "/v1/arbitrer/0/approve", buyerAddr, nil)
	requireKind(t, recorder, http.StatusForbidden, "Unauthorized")

	recorder = env.do(t, http.MethodPost, "/v1/arbitrer/0/claim-expired", buyerAddr, nil)
	requireKind(t, recorder, http.StatusConflict, "NotYetExpired")

	recorder = env.do(t, http.MethodPost, "/v1/arbitrer/0/approve", arbitrerAddr, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.Equal(t, "Completed", decode[stateResult](t, recorder).State)
	require.Equal(t, "800000", env.balance(t, sellerAddr))

	recorder = env.do(t, http.MethodGet, "/v1/arbitrer/0", [20]byte{}, nil)
	view := decode[arbitrerJSON](t, recorder)
	require.Equal(t, testNow+deals.OneDay, view.ExpirationTime)
	require.Equal(t, "0", view.Custody)
}

func TestArbitrerClaimExpiredOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.do(t, http.MethodPost, "/v1/arbitrer/buyer", buyerAddr, map[string]interface{}{
		"arbitrer":        hexOf(arbitrerAddr),
		"seller":          hexOf(sellerAddr),
		"value":           "500000",
		"durationSeconds": deals.OneDay,
		"paid":            "500000",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	env.now = testNow + deals.OneDay + 1
	recorder = env.do(t, http.MethodPost, "/v1/arbitrer/0/approve", arbitrerAddr, nil)
	requireKind(t, recorder, http.StatusConflict, "Expired")

	recorder = env.do(t, http.MethodPost, "/v1/arbitrer/0/claim-expired", buyerAddr, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.Equal(t, "ValueClaimedExpired", decode[stateResult](t, recorder).State)
	require.Equal(t, "2200000", env.balance(t, buyerAddr))
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		method string
		path   string
		caller [20]byte
		body   interface{}
		status int
		kind   string
	}{
		{"unknown id", http.MethodGet, "/v1/trustless/9", [20]byte{}, nil, http.StatusNotFound, "InvalidId"},
		{"malformed id", http.MethodGet, "/v1/arbitrer/abc", [20]byte{}, nil, http.StatusBadRequest, kindBadRequest},
		{"bad address", http.MethodGet, "/v1/accounts/nope", [20]byte{}, nil, http.StatusBadRequest, kindBadRequest},
		{"same party", http.MethodPost, "/v1/trustless/buyer", buyerAddr, map[string]string{
			"seller": hexOf(buyerAddr), "value": "1", "paid": "1",
		}, http.StatusBadRequest, "InvalidParty"},
		{"zero value", http.MethodPost, "/v1/trustless/seller", sellerAddr, map[string]string{
			"buyer": hexOf(buyerAddr), "value": "0",
		}, http.StatusBadRequest, "InvalidValue"},
		{"short duration", http.MethodPost, "/v1/arbitrer/seller", sellerAddr, map[string]interface{}{
			"arbitrer": hexOf(arbitrerAddr), "buyer": hexOf(buyerAddr), "value": "10", "durationSeconds": 60,
		}, http.StatusBadRequest, "InvalidDuration"},
		{"negative amount", http.MethodPost, "/v1/trustless/seller", sellerAddr, map[string]string{
			"buyer": hexOf(buyerAddr), "value": "-5",
		}, http.StatusBadRequest, kindBadRequest},
		{"unknown field", http.MethodPost, "/v1/admin/fee-rate", ownerAddr, map[string]interface{}{
			"feeBps": 5, "extra": true,
		}, http.StatusBadRequest, kindBadRequest},
		{"insufficient balance", http.MethodPost, "/v1/trustless/seller", sellerAddr, map[string]string{
			"buyer": hexOf(buyerAddr), "value": "10", "buyerDeposit": "10", "sellerDeposit": "400000", "paid": "400000",
		}, http.StatusPaymentRequired, "InsufficientFunds"},
		{"not owner", http.MethodPost, "/v1/admin/withdraw", buyerAddr, nil, http.StatusForbidden, "Unauthorized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := env.do(t, tc.method, tc.path, tc.caller, tc.body)
			requireKind(t, recorder, tc.status, tc.kind)
		})
	}
}

func TestWritesRequireCaller(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.do(t, http.MethodPost, "/v1/trustless/0/complete", [20]byte{}, nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = env.do(t, http.MethodGet, "/v1/trustless", [20]byte{}, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestAdminOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(t, http.MethodPost, "/v1/admin/fee-rate", ownerAddr, map[string]interface{}{"feeBps": 10_001})
	requireKind(t, recorder, http.StatusBadRequest, "InvalidValue")

	recorder = env.do(t, http.MethodPost, "/v1/admin/fee-rate", ownerAddr, map[string]interface{}{"feeBps": 25})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.Equal(t, uint32(25), decode[adminResult](t, recorder).FeeBps)

	recorder = env.do(t, http.MethodPost, "/v1/admin/withdraw", ownerAddr, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "0", decode[withdrawResult](t, recorder).Amount)

	recorder = env.do(t, http.MethodPost, "/v1/admin/owner", ownerAddr, map[string]string{"owner": hexOf(sellerAddr)})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.Equal(t, hexOf(sellerAddr), decode[adminResult](t, recorder).Owner)

	recorder = env.do(t, http.MethodPost, "/v1/admin/fee-rate", ownerAddr, map[string]interface{}{"feeBps": 1})
	requireKind(t, recorder, http.StatusForbidden, "Unauthorized")
}

func TestEventsFeedOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.do(t, http.MethodPost, "/v1/trustless/seller", sellerAddr, map[string]string{
		"buyer":         hexOf(buyerAddr),
		"value":         "100",
		"buyerDeposit":  "100",
		"sellerDeposit": "50",
		"paid":          "50",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	recorder = env.do(t, http.MethodPost, "/v1/trustless/0/seller-cancel", sellerAddr, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.Equal(t, "CancelledByCreator", decode[stateResult](t, recorder).State)

	recorder = env.do(t, http.MethodGet, "/v1/events", [20]byte{}, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	result := decode[eventsResult](t, recorder)
	require.Len(t, result.Events, 2)
	require.Equal(t, uint64(2), result.Latest)
	require.Equal(t, deals.EventTypeTrustlessCreated, result.Events[0].Type)
	require.Equal(t, "none", result.Events[0].Attributes["arbitrer"])
	require.Equal(t, deals.EventTypeTrustlessTransition, result.Events[1].Type)
	require.Equal(t, deals.OpTrustlessSellerCancel, result.Events[1].Attributes["operation"])

	recorder = env.do(t, http.MethodGet, "/v1/events?after=1&limit=5", [20]byte{}, nil)
	result = decode[eventsResult](t, recorder)
	require.Len(t, result.Events, 1)
	require.Equal(t, uint64(2), result.Events[0].Sequence)

	recorder = env.do(t, http.MethodGet, "/v1/events?limit=0", [20]byte{}, nil)
	requireKind(t, recorder, http.StatusBadRequest, kindBadRequest)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.do(t, http.MethodGet, "/healthz", [20]byte{}, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	env.do(t, http.MethodGet, "/v1/trustless", [20]byte{}, nil)
	recorder = env.do(t, http.MethodGet, "/metrics", [20]byte{}, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "dealchain_http_requests_total")
}
