package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	coreerrors "dealchain/core/errors"
)

// kindBadRequest marks malformed input rejected before reaching the engine.
const kindBadRequest = "BadRequest"

const maxBodyBytes = 1 << 16

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func statusForKind(kind string) int {
	switch kind {
	case "InvalidId":
		return http.StatusNotFound
	case "Unauthorized":
		return http.StatusForbidden
	case "InvalidState", "Expired", "NotYetExpired":
		return http.StatusConflict
	case "InsufficientFunds":
		return http.StatusPaymentRequired
	case "TransferFailed":
		return http.StatusBadGateway
	case "InvalidParty", "InvalidValue", "InvalidDuration", kindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func classify(err error) string {
	if errors.Is(err, errBadRequest) {
		return kindBadRequest
	}
	return coreerrors.Kind(err)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := classify(err)
	status := statusForKind(kind)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		kind = "Internal"
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: message}})
}

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return badRequest("decode body: %v", err)
	}
	return nil
}

func parseAddress(field, raw string) ([20]byte, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return [20]byte{}, badRequest("%s must be a hex address", field)
	}
	return common.HexToAddress(raw), nil
}

// parseAmount accepts a base-10 integer string. Empty means zero.
func parseAmount(field, raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, badRequest("%s must be a decimal integer", field)
	}
	if value.Sign() < 0 {
		return nil, badRequest("%s must not be negative", field)
	}
	return value, nil
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, badRequest("id must be a non-negative integer")
	}
	return id, nil
}
