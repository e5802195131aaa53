package admin

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"dealchain/core/events"
	coreerrors "dealchain/core/errors"
	"dealchain/core/state"
	"dealchain/native/custody"
	"dealchain/native/deals"
	"dealchain/storage"
)

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	ownerAddr  = newTestAddress(0x0A)
	buyerAddr  = newTestAddress(0x01)
	sellerAddr = newTestAddress(0x02)
)

func newTestModule(t *testing.T) (*Module, *deals.Engine, *events.Feed) {
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
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	engine := deals.NewEngine(manager)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	module := NewModule(manager, engine.Vault())
	feed := events.NewFeed(16)
	module.SetEmitter(feed)
	return module, engine, feed
}

func completeDeal(t *testing.T, engine *deals.Engine) {
	t.Helper()
	id, err := engine.CreateTrustlessAsBuyer(buyerAddr, big.NewInt(1_000_000), sellerAddr, big.NewInt(300_000), big.NewInt(1_200_000), big.NewInt(2_200_000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := engine.TrustlessSellerConfirm(sellerAddr, id, big.NewInt(300_000)); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := engine.TrustlessComplete(buyerAddr, id); err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func TestOwnerAndRate(t *testing.T) {
	module, _, _ := newTestModule(t)
	owner, err := module.Owner()
	if err != nil || owner != ownerAddr {
		t.Fatalf("unexpected owner %x %v", owner, err)
	}
	if ok, _ := module.IsAdmin(ownerAddr); !ok {
		t.Fatalf("owner must be admin")
	}
	if ok, _ := module.IsAdmin(buyerAddr); ok {
		t.Fatalf("buyer must not be admin")
	}
	bps, err := module.FeeRate()
	if err != nil || bps != 10 {
		t.Fatalf("unexpected rate %d %v", bps, err)
	}
}

func TestSetFeeRate(t *testing.T) {
	module, engine, feed := newTestModule(t)
	if err := module.SetFeeRate(buyerAddr, 50); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := module.SetFeeRate(ownerAddr, 10_001); !errors.Is(err, coreerrors.ErrInvalidValue) {
		t.Fatalf("expected invalid value, got %v", err)
	}
	if err := module.SetFeeRate(ownerAddr, 100); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	completeDeal(t, engine)
	accrued, _ := engine.FeesAccrued()
	if accrued.Int64() != 10_000 {
		t.Fatalf("completion must read the updated rate, accrued %s", accrued)
	}
	records := feed.Since(0, 0)
	if len(records) != 1 || records[0].Type != EventTypeFeeRateUpdated || records[0].Attributes["feeBps"] != "100" {
		t.Fatalf("unexpected events %+v", records)
	}
}

func TestWithdrawFees(t *testing.T) {
	module, engine, _ := newTestModule(t)

	paid, err := module.WithdrawFees(ownerAddr)
	if err != nil || paid.Sign() != 0 {
		t.Fatalf("empty withdrawal must be a no-op: %v %v", paid, err)
	}

	completeDeal(t, engine)
	if _, err := module.WithdrawFees(sellerAddr); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	paid, err = module.WithdrawFees(ownerAddr)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if paid.Int64() != 1_000 {
		t.Fatalf("expected 1000 withdrawn, got %s", paid)
	}
	balance, _ := engine.Balance(ownerAddr)
	if balance.Int64() != 1_000 {
		t.Fatalf("owner balance %s", balance)
	}
	accrued, _ := engine.FeesAccrued()
	if accrued.Sign() != 0 {
		t.Fatalf("accrual must reset, got %s", accrued)
	}
	vault, _ := engine.Balance(custody.VaultAddress)
	if vault.Sign() != 0 {
		t.Fatalf("vault must be empty, got %s", vault)
	}
}

func TestWithdrawRefusedKeepsAccrual(t *testing.T) {
	module, engine, _ := newTestModule(t)
	completeDeal(t, engine)
	engine.SetRecipientPolicy(custody.DenyList{ownerAddr: {}})
	if _, err := module.WithdrawFees(ownerAddr); !errors.Is(err, coreerrors.ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	accrued, _ := engine.FeesAccrued()
	if accrued.Int64() != 1_000 {
		t.Fatalf("accrual must survive a failed withdrawal, got %s", accrued)
	}
}

func TestTransferOwnership(t *testing.T) {
	module, _, _ := newTestModule(t)
	if err := module.TransferOwnership(ownerAddr, [20]byte{}); !errors.Is(err, coreerrors.ErrInvalidParty) {
		t.Fatalf("expected invalid party, got %v", err)
	}
	if err := module.TransferOwnership(buyerAddr, buyerAddr); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := module.TransferOwnership(ownerAddr, sellerAddr); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if ok, _ := module.IsAdmin(sellerAddr); !ok {
		t.Fatalf("new owner must be admin")
	}
	if err := module.SetFeeRate(ownerAddr, 5); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("previous owner must lose access, got %v", err)
	}
	snapshot, err := module.Snapshot()
	if err != nil || snapshot.Owner != sellerAddr || snapshot.FeeBps != 10 {
		t.Fatalf("unexpected snapshot %+v %v", snapshot, err)
	}
}
