package state

import (
	"fmt"
	"math/big"

	"dealchain/core/types"
)

type storedTrustless struct {
	ID            uint64
	Buyer         [20]byte
	Seller        [20]byte
	CreatorRole   uint8
	Value         *big.Int
	BuyerDeposit  *big.Int
	SellerDeposit *big.Int
	CreationTime  uint64
	State         uint8
}

func newStoredTrustless(d *types.TrustlessDeal) (*storedTrustless, error) {
	if d == nil {
		return nil, fmt.Errorf("state: nil trustless deal")
	}
	if !d.CreatorRole.Valid() {
		return nil, fmt.Errorf("state: invalid creator role %d", d.CreatorRole)
	}
	if !d.State.Valid() {
		return nil, fmt.Errorf("state: invalid trustless state %d", d.State)
	}
	if d.CreationTime < 0 {
		return nil, fmt.Errorf("state: negative creation time")
	}
	clone := d.Clone()
	return &storedTrustless{
		ID:            clone.ID,
		Buyer:         clone.Buyer,
		Seller:        clone.Seller,
		CreatorRole:   uint8(clone.CreatorRole),
		Value:         clone.Value,
		BuyerDeposit:  clone.BuyerDeposit,
		SellerDeposit: clone.SellerDeposit,
		CreationTime:  uint64(clone.CreationTime),
		State:         uint8(clone.State),
	}, nil
}

func (s *storedTrustless) toDeal() (*types.TrustlessDeal, error) {
	deal := &types.TrustlessDeal{
		ID:            s.ID,
		Buyer:         s.Buyer,
		Seller:        s.Seller,
		CreatorRole:   types.Role(s.CreatorRole),
		Value:         s.Value,
		BuyerDeposit:  s.BuyerDeposit,
		SellerDeposit: s.SellerDeposit,
		CreationTime:  int64(s.CreationTime),
		State:         types.TrustlessState(s.State),
	}
	if !deal.State.Valid() || !deal.CreatorRole.Valid() {
		return nil, fmt.Errorf("state: corrupt trustless deal %d", s.ID)
	}
	return deal.Clone(), nil
}

type storedArbitrer struct {
	ID             uint64
	Arbitrer       [20]byte
	Buyer          [20]byte
	Seller         [20]byte
	CreatorRole    uint8
	Value          *big.Int
	CreationTime   uint64
	ExpirationTime uint64
	State          uint8
}

func newStoredArbitrer(d *types.ArbitrerDeal) (*storedArbitrer, error) {
	if d == nil {
		return nil, fmt.Errorf("state: nil arbitrer deal")
	}
	if !d.CreatorRole.Valid() {
		return nil, fmt.Errorf("state: invalid creator role %d", d.CreatorRole)
	}
	if !d.State.Valid() {
		return nil, fmt.Errorf("state: invalid arbitrer state %d", d.State)
	}
	if d.CreationTime < 0 || d.ExpirationTime < 0 {
		return nil, fmt.Errorf("state: negative deal time")
	}
	clone := d.Clone()
	return &storedArbitrer{
		ID:             clone.ID,
		Arbitrer:       clone.Arbitrer,
		Buyer:          clone.Buyer,
		Seller:         clone.Seller,
		CreatorRole:    uint8(clone.CreatorRole),
		Value:          clone.Value,
		CreationTime:   uint64(clone.CreationTime),
		ExpirationTime: uint64(clone.ExpirationTime),
		State:          uint8(clone.State),
	}, nil
}

func (s *storedArbitrer) toDeal() (*types.ArbitrerDeal, error) {
	deal := &types.ArbitrerDeal{
		ID:             s.ID,
		Arbitrer:       s.Arbitrer,
		Buyer:          s.Buyer,
		Seller:         s.Seller,
		CreatorRole:    types.Role(s.CreatorRole),
		Value:          s.Value,
		CreationTime:   int64(s.CreationTime),
		ExpirationTime: int64(s.ExpirationTime),
		State:          types.ArbitrerState(s.State),
	}
	if !deal.State.Valid() || !deal.CreatorRole.Valid() {
		return nil, fmt.Errorf("state: corrupt arbitrer deal %d", s.ID)
	}
	return deal.Clone(), nil
}

func (tx *Tx) loadCount(key []byte) (uint64, error) {
	var count uint64
	if _, err := tx.kvGet(key, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// TrustlessCount returns the length of the trustless sequence.
func (tx *Tx) TrustlessCount() (uint64, error) {
	return tx.loadCount(trustlessCountKey)
}

// AppendTrustless assigns the next sequence id to d, stores it and returns the
// id. The caller's value is left untouched.
func (tx *Tx) AppendTrustless(d *types.TrustlessDeal) (uint64, error) {
	count, err := tx.TrustlessCount()
	if err != nil {
		return 0, err
	}
	record, err := newStoredTrustless(d)
	if err != nil {
		return 0, err
	}
	record.ID = count
	if err := tx.kvPut(trustlessRecordKey(count), record); err != nil {
		return 0, err
	}
	if err := tx.kvPut(trustlessCountKey, count+1); err != nil {
		return 0, err
	}
	return count, nil
}

// TrustlessDeal loads the record stored under id. The boolean is false when id
// is outside the sequence.
func (tx *Tx) TrustlessDeal(id uint64) (*types.TrustlessDeal, bool, error) {
	count, err := tx.TrustlessCount()
	if err != nil {
		return nil, false, err
	}
	if id >= count {
		return nil, false, nil
	}
	record := new(storedTrustless)
	ok, err := tx.kvGet(trustlessRecordKey(id), record)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, fmt.Errorf("state: trustless deal %d missing below count %d", id, count)
	}
	deal, err := record.toDeal()
	if err != nil {
		return nil, false, err
	}
	return deal, true, nil
}

// PutTrustless overwrites an existing record.
func (tx *Tx) PutTrustless(d *types.TrustlessDeal) error {
	record, err := newStoredTrustless(d)
	if err != nil {
		return err
	}
	count, err := tx.TrustlessCount()
	if err != nil {
		return err
	}
	if record.ID >= count {
		return fmt.Errorf("state: trustless deal %d not appended", record.ID)
	}
	return tx.kvPut(trustlessRecordKey(record.ID), record)
}

// ArbitrerCount returns the length of the arbitrer sequence.
func (tx *Tx) ArbitrerCount() (uint64, error) {
	return tx.loadCount(arbitrerCountKey)
}

// AppendArbitrer assigns the next sequence id to d, stores it and returns the
// id.
func (tx *Tx) AppendArbitrer(d *types.ArbitrerDeal) (uint64, error) {
	count, err := tx.ArbitrerCount()
	if err != nil {
		return 0, err
	}
	record, err := newStoredArbitrer(d)
	if err != nil {
		return 0, err
	}
	record.ID = count
	if err := tx.kvPut(arbitrerRecordKey(count), record); err != nil {
		return 0, err
	}
	if err := tx.kvPut(arbitrerCountKey, count+1); err != nil {
		return 0, err
	}
	return count, nil
}

// ArbitrerDeal loads the record stored under id.
func (tx *Tx) ArbitrerDeal(id uint64) (*types.ArbitrerDeal, bool, error) {
	count, err := tx.ArbitrerCount()
	if err != nil {
		return nil, false, err
	}
	if id >= count {
		return nil, false, nil
	}
	record := new(storedArbitrer)
	ok, err := tx.kvGet(arbitrerRecordKey(id), record)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, fmt.Errorf("state: arbitrer deal %d missing below count %d", id, count)
	}
	deal, err := record.toDeal()
	if err != nil {
		return nil, false, err
	}
	return deal, true, nil
}

// PutArbitrer overwrites an existing record.
func (tx *Tx) PutArbitrer(d *types.ArbitrerDeal) error {
	record, err := newStoredArbitrer(d)
	if err != nil {
		return err
	}
	count, err := tx.ArbitrerCount()
	if err != nil {
		return err
	}
	if record.ID >= count {
		return fmt.Errorf("state: arbitrer deal %d not appended", record.ID)
	}
	return tx.kvPut(arbitrerRecordKey(record.ID), record)
}
