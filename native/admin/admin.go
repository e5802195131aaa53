package admin

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"dealchain/core/events"
	coreerrors "dealchain/core/errors"
	"dealchain/core/state"
	"dealchain/core/types"
	"dealchain/native/custody"
	"dealchain/native/fees"
)

const (
	// EventTypeFeeRateUpdated is emitted after the owner changes the fee.
	EventTypeFeeRateUpdated = "admin.feeRate.updated"
	// EventTypeOwnershipTransferred is emitted after the owner hands over
	// administration.
	EventTypeOwnershipTransferred = "admin.owner.transferred"
	// EventTypeFeesWithdrawn is emitted after accrued fees leave the vault.
	EventTypeFeesWithdrawn = "admin.fees.withdrawn"
)

var errNilState = errors.New("admin: state not configured")

type adminEvent struct {
	evt *types.Event
}

func (e adminEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e adminEvent) Event() *types.Event { return e.evt }

// Snapshot is a point-in-time view of the administrative parameters.
type Snapshot struct {
	Owner       [20]byte
	FeeBps      uint32
	FeesAccrued *big.Int
}

// Module owns contract administration: the owner identity, the completion
// fee rate and withdrawal of accrued fees. It shares the engine's vault so
// withdrawals honour the same recipient policy.
type Module struct {
	state   *state.Manager
	vault   *custody.Vault
	emitter events.Emitter
}

// NewModule constructs the administrative module. A nil vault falls back to an
// accept-all vault.
func NewModule(st *state.Manager, vault *custody.Vault) *Module {
	if vault == nil {
		vault = custody.NewVault(nil)
	}
	return &Module{state: st, vault: vault, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil discards events.
func (m *Module) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

func (m *Module) withState() (*state.Manager, error) {
	if m == nil || m.state == nil {
		return nil, errNilState
	}
	return m.state, nil
}

// Owner returns the administrator identity, or the zero address before
// genesis.
func (m *Module) Owner() ([20]byte, error) {
	st, err := m.withState()
	if err != nil {
		return [20]byte{}, err
	}
	var owner [20]byte
	err = st.View(func(tx *state.Tx) error {
		stored, _, err := tx.Owner()
		owner = stored
		return err
	})
	return owner, err
}

// IsAdmin reports whether caller is the configured owner.
func (m *Module) IsAdmin(caller [20]byte) (bool, error) {
	owner, err := m.Owner()
	if err != nil {
		return false, err
	}
	return owner != ([20]byte{}) && owner == caller, nil
}

// FeeRate returns the current completion fee in basis points.
func (m *Module) FeeRate() (uint32, error) {
	st, err := m.withState()
	if err != nil {
		return 0, err
	}
	var bps uint32
	err = st.View(func(tx *state.Tx) error {
		rate, err := fees.Rate(tx)
		bps = rate
		return err
	})
	return bps, err
}

// Snapshot returns the owner, fee rate and accrued fees in one consistent
// read.
func (m *Module) Snapshot() (*Snapshot, error) {
	st, err := m.withState()
	if err != nil {
		return nil, err
	}
	out := &Snapshot{}
	err = st.View(func(tx *state.Tx) error {
		owner, _, err := tx.Owner()
		if err != nil {
			return err
		}
		bps, err := fees.Rate(tx)
		if err != nil {
			return err
		}
		accrued, err := tx.FeesAccrued()
		if err != nil {
			return err
		}
		out.Owner, out.FeeBps, out.FeesAccrued = owner, bps, accrued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func requireOwner(tx *state.Tx, caller [20]byte) error {
	owner, ok, err := tx.Owner()
	if err != nil {
		return err
	}
	if !ok || owner == ([20]byte{}) || owner != caller {
		return fmt.Errorf("%w: caller is not the owner", coreerrors.ErrUnauthorized)
	}
	return nil
}

// update runs fn inside a ledger transaction and emits evt after the commit,
// still holding the ledger lock.
func (m *Module) update(fn func(tx *state.Tx) (*types.Event, error)) error {
	st, err := m.withState()
	if err != nil {
		return err
	}
	var evt *types.Event
	return st.UpdateThen(func(tx *state.Tx) error {
		out, err := fn(tx)
		evt = out
		return err
	}, func() {
		if evt != nil && m.emitter != nil {
			m.emitter.Emit(adminEvent{evt: evt})
		}
	})
}

// SetFeeRate changes the completion fee. Only the owner may call it and the
// rate may not exceed 10000 basis points.
func (m *Module) SetFeeRate(caller [20]byte, bps uint32) error {
	if err := fees.ValidateRate(bps); err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrInvalidValue, err)
	}
	return m.update(func(tx *state.Tx) (*types.Event, error) {
		if err := requireOwner(tx, caller); err != nil {
			return nil, err
		}
		if err := tx.SetFeeRate(bps); err != nil {
			return nil, err
		}
		return &types.Event{
			Type:       EventTypeFeeRateUpdated,
			Attributes: map[string]string{"feeBps": strconv.FormatUint(uint64(bps), 10)},
		}, nil
	})
}

// TransferOwnership hands administration to newOwner.
func (m *Module) TransferOwnership(caller, newOwner [20]byte) error {
	if newOwner == ([20]byte{}) {
		return fmt.Errorf("%w: new owner must not be empty", coreerrors.ErrInvalidParty)
	}
	return m.update(func(tx *state.Tx) (*types.Event, error) {
		if err := requireOwner(tx, caller); err != nil {
			return nil, err
		}
		if err := tx.SetOwner(newOwner); err != nil {
			return nil, err
		}
		return &types.Event{
			Type: EventTypeOwnershipTransferred,
			Attributes: map[string]string{
				"previous": common.BytesToAddress(caller[:]).Hex(),
				"owner":    common.BytesToAddress(newOwner[:]).Hex(),
			},
		}, nil
	})
}

// WithdrawFees pays the whole fee accrual from the vault to the owner and
// resets the counter. It returns the amount paid; an empty accrual is a no-op.
func (m *Module) WithdrawFees(caller [20]byte) (*big.Int, error) {
	paid := big.NewInt(0)
	err := m.update(func(tx *state.Tx) (*types.Event, error) {
		if err := requireOwner(tx, caller); err != nil {
			return nil, err
		}
		amount, err := fees.Drain(tx)
		if err != nil {
			return nil, err
		}
		if amount.Sign() == 0 {
			return nil, nil
		}
		if err := m.vault.Release(tx, caller, amount); err != nil {
			return nil, err
		}
		paid = amount
		return &types.Event{
			Type: EventTypeFeesWithdrawn,
			Attributes: map[string]string{
				"owner":  common.BytesToAddress(caller[:]).Hex(),
				"amount": amount.String(),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}
