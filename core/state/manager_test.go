package state

import (
	"errors"
	"math/big"
	"testing"

	"dealchain/core/types"
	"dealchain/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() {
		db.Close()
	})
	return NewManager(db)
}

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestUpdateDiscardsWritesOnError(t *testing.T) {
	manager := newTestManager(t)
	addr := testAddress(0x01)
	boom := errors.New("boom")

	err := manager.Update(func(tx *Tx) error {
		if err := tx.Credit(addr, big.NewInt(500)); err != nil {
			t.Fatalf("credit: %v", err)
		}
		balance, err := tx.Balance(addr)
		if err != nil || balance.Int64() != 500 {
			t.Fatalf("staged balance not visible inside tx: %v %v", balance, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	err = manager.View(func(tx *Tx) error {
		balance, err := tx.Balance(addr)
		if err != nil {
			return err
		}
		if balance.Sign() != 0 {
			t.Fatalf("rolled back credit leaked: %s", balance)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestUpdateThenRunsHookOnlyAfterCommit(t *testing.T) {
	manager := newTestManager(t)
	addr := testAddress(0x01)

	hooked := false
	err := manager.UpdateThen(func(tx *Tx) error {
		return errors.New("boom")
	}, func() { hooked = true })
	if err == nil || hooked {
		t.Fatalf("hook must not run for a failed update: %v %v", err, hooked)
	}

	err = manager.UpdateThen(func(tx *Tx) error {
		return tx.Credit(addr, big.NewInt(7))
	}, func() {
		hooked = true
		// The lock is still held, so a concurrent writer cannot have committed yet.
		if !manager.mu.TryLock() {
			return
		}
		manager.mu.Unlock()
		t.Errorf("hook ran without the ledger lock")
	})
	if err != nil || !hooked {
		t.Fatalf("hook must run after commit: %v %v", err, hooked)
	}
	_ = manager.View(func(tx *Tx) error {
		balance, _ := tx.Balance(addr)
		if balance.Int64() != 7 {
			t.Fatalf("credit not committed before hook: %s", balance)
		}
		return nil
	})
}

func TestViewRejectsWrites(t *testing.T) {
	manager := newTestManager(t)
	err := manager.View(func(tx *Tx) error {
		return tx.Credit(testAddress(0x02), big.NewInt(1))
	})
	if !errors.Is(err, errReadOnly) {
		t.Fatalf("expected read-only error, got %v", err)
	}
}

func TestDebitAndOverflow(t *testing.T) {
	manager := newTestManager(t)
	addr := testAddress(0x03)
	err := manager.Update(func(tx *Tx) error {
		if err := tx.Credit(addr, big.NewInt(10)); err != nil {
			return err
		}
		if err := tx.Debit(addr, big.NewInt(11)); !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("expected insufficient balance, got %v", err)
		}
		ceiling := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
		if err := tx.Credit(addr, ceiling); !errors.Is(err, ErrBalanceOverflow) {
			t.Fatalf("expected overflow, got %v", err)
		}
		return tx.Debit(addr, big.NewInt(4))
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	_ = manager.View(func(tx *Tx) error {
		balance, _ := tx.Balance(addr)
		if balance.Int64() != 6 {
			t.Fatalf("expected balance 6, got %s", balance)
		}
		return nil
	})
}

func TestDealSequencesAreIndependent(t *testing.T) {
	manager := newTestManager(t)
	err := manager.Update(func(tx *Tx) error {
		for i := 0; i < 3; i++ {
			id, err := tx.AppendTrustless(&types.TrustlessDeal{
				ID:            99,
				Buyer:         testAddress(0x01),
				Seller:        testAddress(0x02),
				CreatorRole:   types.RoleBuyer,
				Value:         big.NewInt(int64(100 + i)),
				BuyerDeposit:  big.NewInt(110),
				SellerDeposit: big.NewInt(30),
				CreationTime:  1_700_000_000,
				State:         types.TrustlessPendingSellerDeposit,
			})
			if err != nil {
				return err
			}
			if id != uint64(i) {
				t.Fatalf("expected trustless id %d, got %d", i, id)
			}
		}
		id, err := tx.AppendArbitrer(&types.ArbitrerDeal{
			Arbitrer:       testAddress(0x03),
			Buyer:          testAddress(0x01),
			Seller:         testAddress(0x02),
			CreatorRole:    types.RoleSeller,
			Value:          big.NewInt(1000),
			CreationTime:   1_700_000_000,
			ExpirationTime: 1_700_086_400,
			State:          types.ArbitrerPendingBuyerConfirmation,
		})
		if err != nil {
			return err
		}
		if id != 0 {
			t.Fatalf("arbitrer sequence must start at 0, got %d", id)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = manager.View(func(tx *Tx) error {
		count, _ := tx.TrustlessCount()
		if count != 3 {
			t.Fatalf("expected 3 trustless deals, got %d", count)
		}
		deal, ok, err := tx.TrustlessDeal(2)
		if err != nil || !ok {
			t.Fatalf("load trustless 2: %v %v", ok, err)
		}
		if deal.ID != 2 || deal.Value.Int64() != 102 || deal.State != types.TrustlessPendingSellerDeposit {
			t.Fatalf("unexpected record %+v", deal)
		}
		if _, ok, _ := tx.TrustlessDeal(3); ok {
			t.Fatalf("id beyond sequence must not resolve")
		}
		arb, ok, err := tx.ArbitrerDeal(0)
		if err != nil || !ok {
			t.Fatalf("load arbitrer 0: %v %v", ok, err)
		}
		if arb.ExpirationTime != 1_700_086_400 || arb.CreatorRole != types.RoleSeller {
			t.Fatalf("unexpected arbitrer record %+v", arb)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestPutRequiresAppendedRecord(t *testing.T) {
	manager := newTestManager(t)
	err := manager.Update(func(tx *Tx) error {
		return tx.PutArbitrer(&types.ArbitrerDeal{ID: 0, State: types.ArbitrerCompleted, Value: big.NewInt(1)})
	})
	if err == nil {
		t.Fatalf("expected error writing unappended record")
	}
}

func TestCustodyLedger(t *testing.T) {
	manager := newTestManager(t)
	err := manager.Update(func(tx *Tx) error {
		if err := tx.CreditCustody(types.DealTrustless, 0, big.NewInt(210)); err != nil {
			return err
		}
		if err := tx.DebitCustody(types.DealArbitrer, 0, big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("custody ledgers must be independent per deal type, got %v", err)
		}
		return tx.DebitCustody(types.DealTrustless, 0, big.NewInt(110))
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	_ = manager.View(func(tx *Tx) error {
		held, _ := tx.Custody(types.DealTrustless, 0)
		if held.Int64() != 100 {
			t.Fatalf("expected 100 held, got %s", held)
		}
		return nil
	})
}

func TestApplyGenesisOnce(t *testing.T) {
	manager := newTestManager(t)
	g := Genesis{
		Owner:  testAddress(0x0A),
		FeeBps: 10,
		Allocs: []GenesisAlloc{{Address: testAddress(0x01), Balance: big.NewInt(1_000)}},
	}
	applied, err := manager.ApplyGenesis(g)
	if err != nil || !applied {
		t.Fatalf("first genesis: %v %v", applied, err)
	}
	applied, err = manager.ApplyGenesis(g)
	if err != nil || applied {
		t.Fatalf("second genesis must be a no-op: %v %v", applied, err)
	}
	_ = manager.View(func(tx *Tx) error {
		balance, _ := tx.Balance(testAddress(0x01))
		if balance.Int64() != 1_000 {
			t.Fatalf("genesis credited twice: %s", balance)
		}
		owner, ok, _ := tx.Owner()
		if !ok || owner != testAddress(0x0A) {
			t.Fatalf("unexpected owner %x", owner)
		}
		bps, ok, _ := tx.FeeRate()
		if !ok || bps != 10 {
			t.Fatalf("unexpected fee rate %d", bps)
		}
		return nil
	})
}
