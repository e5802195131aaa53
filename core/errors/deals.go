package errors

import stderrors "errors"

var (
	ErrInvalidID         = stderrors.New("deals: invalid id")
	ErrInvalidParty      = stderrors.New("deals: invalid party")
	ErrInvalidValue      = stderrors.New("deals: invalid value")
	ErrInvalidDuration   = stderrors.New("deals: invalid duration")
	ErrUnauthorized      = stderrors.New("deals: unauthorized")
	ErrInvalidState      = stderrors.New("deals: invalid state")
	ErrExpired           = stderrors.New("deals: expired")
	ErrNotYetExpired     = stderrors.New("deals: not yet expired")
	ErrInsufficientFunds = stderrors.New("deals: insufficient funds")
	ErrTransferFailed    = stderrors.New("deals: transfer failed")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidID, "InvalidId"},
	{ErrInvalidParty, "InvalidParty"},
	{ErrInvalidValue, "InvalidValue"},
	{ErrInvalidDuration, "InvalidDuration"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidState, "InvalidState"},
	{ErrExpired, "Expired"},
	{ErrNotYetExpired, "NotYetExpired"},
	{ErrInsufficientFunds, "InsufficientFunds"},
	{ErrTransferFailed, "TransferFailed"},
}

// Kind returns the machine-checkable name of the taxonomy error wrapped by
// err, or "" when err is nil or outside the taxonomy.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if stderrors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}
