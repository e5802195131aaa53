package state

import (
	"encoding/binary"

	"dealchain/core/types"
)

var (
	balancePrefix        = []byte("balance:")
	custodyPrefix        = []byte("custody:")
	trustlessRecordBytes = []byte("deals/trustless/record/")
	arbitrerRecordBytes  = []byte("deals/arbitrer/record/")

	trustlessCountKey = hashKey([]byte("deals/trustless/count"))
	arbitrerCountKey  = hashKey([]byte("deals/arbitrer/count"))
	feesAccruedKey    = hashKey([]byte("fees/accrued"))
	feeRateKey        = hashKey([]byte("admin/fee-bps"))
	ownerKey          = hashKey([]byte("admin/owner"))
	genesisMarkerKey  = hashKey([]byte("genesis/applied"))
)

func balanceKey(addr [20]byte) []byte {
	return hashKey(balancePrefix, addr[:])
}

func idBytes(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

func custodyKey(kind types.DealType, id uint64) []byte {
	return hashKey(custodyPrefix, []byte{byte(kind)}, idBytes(id))
}

func trustlessRecordKey(id uint64) []byte {
	return hashKey(trustlessRecordBytes, idBytes(id))
}

func arbitrerRecordKey(id uint64) []byte {
	return hashKey(arbitrerRecordBytes, idBytes(id))
}
