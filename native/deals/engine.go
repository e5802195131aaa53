package deals

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"dealchain/core/events"
	coreerrors "dealchain/core/errors"
	"dealchain/core/state"
	"dealchain/core/types"
	"dealchain/native/custody"
)

// OneDay is the minimum lifetime of an arbitrer deal, in seconds.
const OneDay int64 = 86_400

var errNilState = errors.New("deals engine: state not configured")

type dealEvent struct {
	evt *types.Event
}

func (e dealEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e dealEvent) Event() *types.Event { return e.evt }

// Engine runs the trustless and arbitrer deal state machines. Every public
// operation is one indivisible step: authorisation, state and time checks,
// custody movements, fee accrual and the state change commit together or not
// at all. Notifications are emitted only after a successful commit.
type Engine struct {
	state   *state.Manager
	vault   *custody.Vault
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a deal engine over the supplied ledger with a no-op
// emitter and an accept-all custody vault.
func NewEngine(st *state.Manager) *Engine {
	return &Engine{
		state:   st,
		vault:   custody.NewVault(nil),
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetRecipientPolicy configures which parties may receive disbursements.
func (e *Engine) SetRecipientPolicy(policy custody.RecipientPolicy) { e.vault.SetPolicy(policy) }

// Vault exposes the custody vault so collaborators share its policy.
func (e *Engine) Vault() *custody.Vault { return e.vault }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(dealEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// apply reads the clock once, runs fn inside a ledger transaction and emits
// the returned events after the commit, before any later operation runs.
func (e *Engine) apply(fn func(tx *state.Tx, now int64) ([]*types.Event, error)) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	now := e.now()
	var pending []*types.Event
	return e.state.UpdateThen(func(tx *state.Tx) error {
		evts, err := fn(tx, now)
		if err != nil {
			return err
		}
		pending = evts
		return nil
	}, func() {
		for _, evt := range pending {
			e.emit(evt)
		}
	})
}

func (e *Engine) view(fn func(tx *state.Tx) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.View(fn)
}

// Balance returns the native-currency balance of addr.
func (e *Engine) Balance(addr [20]byte) (*big.Int, error) {
	var out *big.Int
	err := e.view(func(tx *state.Tx) error {
		balance, err := tx.Balance(addr)
		out = balance
		return err
	})
	return out, err
}

// FeesAccrued returns the fees collected from completed trustless deals and
// not yet withdrawn.
func (e *Engine) FeesAccrued() (*big.Int, error) {
	var out *big.Int
	err := e.view(func(tx *state.Tx) error {
		accrued, err := tx.FeesAccrued()
		out = accrued
		return err
	})
	return out, err
}

// CustodyHeld returns the amount the vault currently holds for a deal.
func (e *Engine) CustodyHeld(kind types.DealType, id uint64) (*big.Int, error) {
	var out *big.Int
	err := e.view(func(tx *state.Tx) error {
		held, err := tx.Custody(kind, id)
		out = held
		return err
	})
	return out, err
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func requireCaller(caller, want [20]byte, role string) error {
	if caller != want {
		return fmt.Errorf("%w: caller is not the %s", coreerrors.ErrUnauthorized, role)
	}
	return nil
}

func requireIdentity(addr [20]byte, role string) error {
	if addr == ([20]byte{}) {
		return fmt.Errorf("%w: %s identity is empty", coreerrors.ErrInvalidParty, role)
	}
	return nil
}
