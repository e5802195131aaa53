package rpc

import (
	"github.com/ethereum/go-ethereum/common"

	"dealchain/core/events"
	"dealchain/core/types"
	"dealchain/native/admin"
)

type createTrustlessAsBuyerParams struct {
	Seller        string `json:"seller"`
	Value         string `json:"value"`
	SellerDeposit string `json:"sellerDeposit"`
	BuyerDeposit  string `json:"buyerDeposit"`
	Paid          string `json:"paid"`
}

type createTrustlessAsSellerParams struct {
	Buyer         string `json:"buyer"`
	Value         string `json:"value"`
	SellerDeposit string `json:"sellerDeposit"`
	BuyerDeposit  string `json:"buyerDeposit"`
	Paid          string `json:"paid"`
}

type createArbitrerAsBuyerParams struct {
	Arbitrer        string `json:"arbitrer"`
	Seller          string `json:"seller"`
	Value           string `json:"value"`
	DurationSeconds int64  `json:"durationSeconds"`
	Paid            string `json:"paid"`
}

type createArbitrerAsSellerParams struct {
	Arbitrer        string `json:"arbitrer"`
	Buyer           string `json:"buyer"`
	Value           string `json:"value"`
	DurationSeconds int64  `json:"durationSeconds"`
}

type paymentParams struct {
	Paid string `json:"paid"`
}

type feeRateParams struct {
	FeeBps uint32 `json:"feeBps"`
}

type ownerParams struct {
	Owner string `json:"owner"`
}

type createResult struct {
	ID uint64 `json:"id"`
}

type countResult struct {
	Count uint64 `json:"count"`
}

type stateResult struct {
	ID    uint64 `json:"id"`
	State string `json:"state"`
}

type accountResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type eventsResult struct {
	Events []events.Record `json:"events"`
	Latest uint64          `json:"latest"`
}

type withdrawResult struct {
	Amount string `json:"amount"`
}

type adminResult struct {
	Owner       string `json:"owner"`
	FeeBps      uint32 `json:"feeBps"`
	FeesAccrued string `json:"feesAccrued"`
}

type trustlessJSON struct {
	ID            uint64 `json:"id"`
	Buyer         string `json:"buyer"`
	Seller        string `json:"seller"`
	CreatorRole   string `json:"creatorRole"`
	Value         string `json:"value"`
	BuyerDeposit  string `json:"buyerDeposit"`
	SellerDeposit string `json:"sellerDeposit"`
	CreationTime  int64  `json:"creationTime"`
	State         string `json:"state"`
	StateCode     uint8  `json:"stateCode"`
	Custody       string `json:"custody"`
}

type arbitrerJSON struct {
	ID             uint64 `json:"id"`
	Arbitrer       string `json:"arbitrer"`
	Buyer          string `json:"buyer"`
	Seller         string `json:"seller"`
	CreatorRole    string `json:"creatorRole"`
	Value          string `json:"value"`
	CreationTime   int64  `json:"creationTime"`
	ExpirationTime int64  `json:"expirationTime"`
	State          string `json:"state"`
	StateCode      uint8  `json:"stateCode"`
	Custody        string `json:"custody"`
}

func formatAddress(addr [20]byte) string {
	return common.BytesToAddress(addr[:]).Hex()
}

func newTrustlessJSON(deal *types.TrustlessDeal, custody string) trustlessJSON {
	return trustlessJSON{
		ID:            deal.ID,
		Buyer:         formatAddress(deal.Buyer),
		Seller:        formatAddress(deal.Seller),
		CreatorRole:   deal.CreatorRole.String(),
		Value:         deal.Value.String(),
		BuyerDeposit:  deal.BuyerDeposit.String(),
		SellerDeposit: deal.SellerDeposit.String(),
		CreationTime:  deal.CreationTime,
		State:         deal.State.String(),
		StateCode:     uint8(deal.State),
		Custody:       custody,
	}
}

func newArbitrerJSON(deal *types.ArbitrerDeal, custody string) arbitrerJSON {
	return arbitrerJSON{
		ID:             deal.ID,
		Arbitrer:       formatAddress(deal.Arbitrer),
		Buyer:          formatAddress(deal.Buyer),
		Seller:         formatAddress(deal.Seller),
		CreatorRole:    deal.CreatorRole.String(),
		Value:          deal.Value.String(),
		CreationTime:   deal.CreationTime,
		ExpirationTime: deal.ExpirationTime,
		State:          deal.State.String(),
		StateCode:      uint8(deal.State),
		Custody:        custody,
	}
}

func newAdminResult(snapshot *admin.Snapshot) adminResult {
	return adminResult{
		Owner:       formatAddress(snapshot.Owner),
		FeeBps:      snapshot.FeeBps,
		FeesAccrued: snapshot.FeesAccrued.String(),
	}
}
