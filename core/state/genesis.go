package state

import (
	"fmt"
	"math/big"
)

// GenesisAlloc seeds an account balance when the ledger is first opened.
type GenesisAlloc struct {
	Address [20]byte
	Balance *big.Int
}

// Genesis captures the initial ledger contents.
type Genesis struct {
	Owner  [20]byte
	FeeBps uint32
	Allocs []GenesisAlloc
}

// ApplyGenesis writes the initial owner, fee rate and balances exactly once.
// It reports whether anything was written; subsequent calls are no-ops so a
// restarted node keeps its ledger.
func (m *Manager) ApplyGenesis(g Genesis) (bool, error) {
	applied := false
	err := m.Update(func(tx *Tx) error {
		var marker bool
		done, err := tx.kvGet(genesisMarkerKey, &marker)
		if err != nil {
			return err
		}
		if done && marker {
			return nil
		}
		if err := tx.SetOwner(g.Owner); err != nil {
			return err
		}
		if err := tx.SetFeeRate(g.FeeBps); err != nil {
			return err
		}
		for _, alloc := range g.Allocs {
			if alloc.Balance == nil || alloc.Balance.Sign() < 0 {
				return fmt.Errorf("state: genesis balance for %x must be non-negative", alloc.Address)
			}
			if err := tx.Credit(alloc.Address, alloc.Balance); err != nil {
				return fmt.Errorf("state: genesis credit %x: %w", alloc.Address, err)
			}
		}
		if err := tx.kvPut(genesisMarkerKey, true); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
