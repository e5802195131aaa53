package rpc

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dealchain/core/events"
	"dealchain/core/types"
	"dealchain/native/deals"
)

var (
	trustlessType = types.DealTrustless.String()
	arbitrerType  = types.DealArbitrer.String()
)

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	balance, err := s.engine.Balance(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResult{Address: formatAddress(addr), Balance: balance.String()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeJSON(w, http.StatusOK, eventsResult{Events: []events.Record{}})
		return
	}
	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, badRequest("after must be a non-negative integer"))
			return
		}
		after = parsed
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, badRequest("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	writeJSON(w, http.StatusOK, eventsResult{Events: s.feed.Since(after, limit), Latest: s.feed.Latest()})
}

func (s *Server) handleTrustlessCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.engine.TrustlessCount()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResult{Count: count})
}

func (s *Server) handleTrustlessGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	deal, err := s.engine.TrustlessDeal(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	held, err := s.engine.CustodyHeld(types.DealTrustless, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTrustlessJSON(deal, held.String()))
}

func (s *Server) handleArbitrerCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.engine.ArbitrerCount()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResult{Count: count})
}

func (s *Server) handleArbitrerGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	deal, err := s.engine.ArbitrerDeal(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	held, err := s.engine.CustodyHeld(types.DealArbitrer, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newArbitrerJSON(deal, held.String()))
}

func (s *Server) handleTrustlessCreateAsBuyer(w http.ResponseWriter, r *http.Request) {
	var params createTrustlessAsBuyerParams
	if err := decodeBody(w, r, &params); err != nil {
		s.writeError(w, err)
		return
	}
	seller, err := parseAddress("seller", params.Seller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amounts, err := parseAmounts(
		[2]string{"value", params.Value},
		[2]string{"sellerDeposit", params.SellerDeposit},
		[2]string{"buyerDeposit", params.BuyerDeposit},
		[2]string{"paid", params.Paid},
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var id uint64
	err = s.run(r.Context(), trustlessType, deals.OpTrustlessCreateAsBuyer, func() error {
		var opErr error
		id, opErr = s.engine.CreateTrustlessAsBuyer(callerOf(r), amounts[0], seller, amounts[1], amounts[2], amounts[3])
		return opErr
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResult{ID: id})
}

func (s *Server) handleTrustlessCreateAsSeller(w http.ResponseWriter, r *http.Request) {
	var params createTrustlessAsSellerParams
	if err := decodeBody(w, r, &params); err != nil {
		s.writeError(w, err)
		return
	}
	buyer, err := parseAddress("buyer", params.Buyer)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amounts, err := parseAmounts(
		[2]string{"value", params.Value},
		[2]string{"sellerDeposit", params.SellerDeposit},
		[2]string{"buyerDeposit", params.BuyerDeposit},
		[2]string{"paid", params.Paid},
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var id uint64
	err = s.run(r.Context(), trustlessType, deals.OpTrustlessCreateAsSeller, func() error {
		var opErr error
		id, opErr = s.engine.CreateTrustlessAsSeller(callerOf(r), amounts[0], buyer, amounts[1], amounts[2], amounts[3])
		return opErr
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResult{ID: id})
}

func (s *Server) handleArbitrerCreateAsBuyer(w http.ResponseWriter, r *http.Request) {
	var params createArbitrerAsBuyerParams
	if err := decodeBody(w, r, &params); err != nil {
		s.writeError(w, err)
		return
	}
	arbitrer, err := parseAddress("arbitrer", params.Arbitrer)
	if err != nil {
		s.writeError(w, err)
		return
	}
	seller, err := parseAddress("seller", params.Seller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amounts, err := parseAmounts([2]string{"value", params.Value}, [2]string{"paid", params.Paid})
	if err != nil {
		s.writeError(w, err)
		return
	}
	var id uint64
	err = s.run(r.Context(), arbitrerType, deals.OpArbitrerCreateAsBuyer, func() error {
		var opErr error
		id, opErr = s.engine.CreateArbitrerAsBuyer(callerOf(r), amounts[0], arbitrer, seller, params.DurationSeconds, amounts[1])
		return opErr
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResult{ID: id})
}

func (s *Server) handleArbitrerCreateAsSeller(w http.ResponseWriter, r *http.Request) {
	var params createArbitrerAsSellerParams
	if err := decodeBody(w, r, &params); err != nil {
		s.writeError(w, err)
		return
	}
	arbitrer, err := parseAddress("arbitrer", params.Arbitrer)
	if err != nil {
		s.writeError(w, err)
		return
	}
	buyer, err := parseAddress("buyer", params.Buyer)
	if err != nil {
		s.writeError(w, err)
		return
	}
	value, err := parseAmount("value", params.Value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var id uint64
	err = s.run(r.Context(), arbitrerType, deals.OpArbitrerCreateAsSeller, func() error {
		var opErr error
		id, opErr = s.engine.CreateArbitrerAsSeller(callerOf(r), value, arbitrer, buyer, params.DurationSeconds)
		return opErr
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResult{ID: id})
}

// transition handles the POST /{id}/<operation> routes that take no body.
func (s *Server) transition(dealType, operation string, op func(caller [20]byte, id uint64) error, state func(id uint64) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.run(r.Context(), dealType, operation, func() error { return op(callerOf(r), id) }); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeState(w, id, state)
	}
}

// payment handles the confirm routes whose body carries the paid amount.
func (s *Server) payment(dealType, operation string, op func(caller [20]byte, id uint64, paid *big.Int) error, state func(id uint64) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		var params paymentParams
		if err := decodeBody(w, r, &params); err != nil {
			s.writeError(w, err)
			return
		}
		paid, err := parseAmount("paid", params.Paid)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.run(r.Context(), dealType, operation, func() error { return op(callerOf(r), id, paid) }); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeState(w, id, state)
	}
}

func (s *Server) writeState(w http.ResponseWriter, id uint64, state func(id uint64) (string, error)) {
	label, err := state(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResult{ID: id, State: label})
}

func (s *Server) trustlessState(id uint64) (string, error) {
	deal, err := s.engine.TrustlessDeal(id)
	if err != nil {
		return "", err
	}
	return deal.State.String(), nil
}

func (s *Server) arbitrerState(id uint64) (string, error) {
	deal, err := s.engine.ArbitrerDeal(id)
	if err != nil {
		return "", err
	}
	return deal.State.String(), nil
}

func (s *Server) handleTrustlessBuyerCancel(w http.ResponseWriter, r *http.Request) {
	s.transition(trustlessType, deals.OpTrustlessBuyerCancel, s.engine.TrustlessBuyerCancel, s.trustlessState)(w, r)
}

func (s *Server) handleTrustlessSellerCancel(w http.ResponseWriter, r *http.Request) {
	s.transition(trustlessType, deals.OpTrustlessSellerCancel, s.engine.TrustlessSellerCancel, s.trustlessState)(w, r)
}

func (s *Server) handleTrustlessBuyerConfirm(w http.ResponseWriter, r *http.Request) {
	s.payment(trustlessType, deals.OpTrustlessBuyerConfirm, s.engine.TrustlessBuyerConfirm, s.trustlessState)(w, r)
}

func (s *Server) handleTrustlessSellerConfirm(w http.ResponseWriter, r *http.Request) {
	s.payment(trustlessType, deals.OpTrustlessSellerConfirm, s.engine.TrustlessSellerConfirm, s.trustlessState)(w, r)
}

func (s *Server) handleTrustlessComplete(w http.ResponseWriter, r *http.Request) {
	s.transition(trustlessType, deals.OpTrustlessComplete, s.engine.TrustlessComplete, s.trustlessState)(w, r)
}

func (s *Server) handleArbitrerSellerCancel(w http.ResponseWriter, r *http.Request) {
	s.transition(arbitrerType, deals.OpArbitrerSellerCancel, s.engine.ArbitrerSellerCancel, s.arbitrerState)(w, r)
}

func (s *Server) handleArbitrerBuyerConfirm(w http.ResponseWriter, r *http.Request) {
	s.payment(arbitrerType, deals.OpArbitrerBuyerConfirm, s.engine.ArbitrerBuyerConfirm, s.arbitrerState)(w, r)
}

func (s *Server) handleArbitrerApprove(w http.ResponseWriter, r *http.Request) {
	s.transition(arbitrerType, deals.OpArbitrerApprove, s.engine.Approve, s.arbitrerState)(w, r)
}

func (s *Server) handleArbitrerClaimExpired(w http.ResponseWriter, r *http.Request) {
	s.transition(arbitrerType, deals.OpArbitrerClaimExpired, s.engine.ClaimExpired, s.arbitrerState)(w, r)
}

func parseAmounts(fields ...[2]string) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(fields))
	for _, field := range fields {
		amount, err := parseAmount(field[0], field[1])
		if err != nil {
			return nil, err
		}
		out = append(out, amount)
	}
	return out, nil
}
