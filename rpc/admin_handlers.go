package rpc

import (
	"net/http"
)

func (s *Server) handleAdminGet(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.admin.Snapshot()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAdminResult(snapshot))
}

func (s *Server) handleAdminSetFeeRate(w http.ResponseWriter, r *http.Request) {
	var params feeRateParams
	if err := decodeBody(w, r, &params); err != nil {
		s.writeError(w, err)
		return
	}
	err := s.run(r.Context(), "admin", "setFeeRate", func() error {
		return s.admin.SetFeeRate(callerOf(r), params.FeeBps)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.handleAdminGet(w, r)
}

func (s *Server) handleAdminWithdraw(w http.ResponseWriter, r *http.Request) {
	var amount string
	err := s.run(r.Context(), "admin", "withdrawFees", func() error {
		paid, opErr := s.admin.WithdrawFees(callerOf(r))
		if opErr == nil {
			amount = paid.String()
		}
		return opErr
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResult{Amount: amount})
}

func (s *Server) handleAdminTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var params ownerParams
	if err := decodeBody(w, r, &params); err != nil {
		s.writeError(w, err)
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.run(r.Context(), "admin", "transferOwnership", func() error {
		return s.admin.TransferOwnership(callerOf(r), owner)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.handleAdminGet(w, r)
}
