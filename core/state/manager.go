package state

import (
	"errors"
	"fmt"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"dealchain/storage"
)

var errReadOnly = errors.New("state: write in read-only transaction")

// Manager owns the ledger database and serialises every operation against it.
// Mutations run inside Update on a staging Tx whose writes reach the database
// in one batch, and only when the callback succeeds.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Update executes fn against a staging transaction. If fn returns an error
// every write it performed is discarded; otherwise the writes are committed
// atomically. Calls are serialised so no two operations interleave.
func (m *Manager) Update(fn func(tx *Tx) error) error {
	return m.UpdateThen(fn, nil)
}

// UpdateThen behaves like Update and, once the commit succeeds, runs onCommit
// before the next operation may start. Notifications published from onCommit
// therefore follow commit order.
func (m *Manager) UpdateThen(fn func(tx *Tx) error, onCommit func()) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := newTx(m.db, false)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.commit(); err != nil {
		return err
	}
	if onCommit != nil {
		onCommit()
	}
	return nil
}

// View executes fn against the committed state. Writes inside fn fail.
func (m *Manager) View(fn func(tx *Tx) error) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(newTx(m.db, true))
}

// Tx is a staging overlay over the committed database. Reads observe the
// transaction's own pending writes first.
type Tx struct {
	db       storage.Database
	pending  map[string][]byte
	readOnly bool
}

func newTx(db storage.Database, readOnly bool) *Tx {
	return &Tx{db: db, pending: make(map[string][]byte), readOnly: readOnly}
}

func (tx *Tx) get(key []byte) ([]byte, error) {
	if value, ok := tx.pending[string(key)]; ok {
		return value, nil
	}
	value, err := tx.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

func (tx *Tx) put(key, value []byte) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.pending[string(key)] = append([]byte(nil), value...)
	return nil
}

func (tx *Tx) commit() error {
	if len(tx.pending) == 0 {
		return nil
	}
	batch := tx.db.NewBatch()
	for key, value := range tx.pending {
		batch.Put([]byte(key), value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	tx.pending = make(map[string][]byte)
	return nil
}

// Pending reports how many keys the transaction has staged.
func (tx *Tx) Pending() int { return len(tx.pending) }

func hashKey(parts ...[]byte) []byte {
	return ethcrypto.Keccak256(parts...)
}

// kvPut stores the provided value under key using RLP encoding.
func (tx *Tx) kvPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return tx.put(key, encoded)
}

// kvGet decodes the value stored under key into out. The boolean reports
// whether the key existed.
func (tx *Tx) kvGet(key []byte, out interface{}) (bool, error) {
	data, err := tx.get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}
