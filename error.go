package banklink

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var (
	ErrInternalServer    = errors.New("internal server error")
	ErrInvalidAmount     = errors.New("amount must be positive with at most 2 decimal places")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverloaded        = errors.New("service overloaded, try again later")
)

// ErrBadRequest is the InvalidPayload category.
type ErrBadRequest struct {
	Fields map[string]string `json:"fields"`
}

func (e ErrBadRequest) Error() string {
	return fmt.Sprintf("missing/invalid params: %v", e.Fields)
}

type ErrNotFound struct {
	ID int64 `json:"id"`
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("account %d not found", e.ID)
}

// ErrDebitFailed wraps a storage failure during the local debit.
// Nothing was debited when this is returned.
type ErrDebitFailed struct {
	Err error
}

func (e ErrDebitFailed) Error() string {
	return fmt.Sprintf("debit failed: %v", e.Err)
}

func (e ErrDebitFailed) Unwrap() error {
	return e.Err
}

// ErrCreditFailed wraps a storage failure while applying a credit.
type ErrCreditFailed struct {
	Err error
}

func (e ErrCreditFailed) Error() string {
	return fmt.Sprintf("credit failed: %v", e.Err)
}

func (e ErrCreditFailed) Unwrap() error {
	return e.Err
}

// ErrDestinationRejected is returned when the destination bank answered
// with a non-2xx status.
type ErrDestinationRejected struct {
	Status int
	Body   string
}

func (e ErrDestinationRejected) Error() string {
	return fmt.Sprintf("destination rejected credit: status %d", e.Status)
}

// ErrNetwork covers timeouts, connection errors and an open circuit breaker
// on the way to the destination bank.
type ErrNetwork struct {
	Err error
}

func (e ErrNetwork) Error() string {
	return fmt.Sprintf("destination unreachable: %v", e.Err)
}

func (e ErrNetwork) Unwrap() error {
	return e.Err
}

// ErrCompensationFailed means the debit could not be reversed after the
// remote credit failed. The source account is short by Amount and there is
// no credit anywhere; it needs manual reconciliation.
type ErrCompensationFailed struct {
	TransferID snowflake.ID
	FromID     int64
	ToID       int64
	Amount     decimal.Decimal
	// Cause is the remote credit failure that triggered compensation.
	Cause error
	Err   error
}

func (e ErrCompensationFailed) Error() string {
	return fmt.Sprintf(
		"transfer %s: reversal of %s on account %d failed after %v: %v",
		e.TransferID, e.Amount.StringFixed(2), e.FromID, e.Cause, e.Err,
	)
}

func (e ErrCompensationFailed) Unwrap() []error {
	return []error{e.Cause, e.Err}
}

// ErrorCategory names the failure class reported to clients.
func ErrorCategory(err error) string {
	var (
		errbr  ErrBadRequest
		errnf  ErrNotFound
		errdf  ErrDebitFailed
		errcf  ErrCreditFailed
		errdr  ErrDestinationRejected
		errnet ErrNetwork
		errcmp ErrCompensationFailed
	)
	switch {
	case errors.As(err, &errcmp):
		return "CompensationFailed"
	case errors.As(err, &errbr):
		return "InvalidPayload"
	case errors.Is(err, ErrInvalidAmount):
		return "InvalidAmount"
	case errors.As(err, &errnf):
		return "NotFound"
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.As(err, &errdf):
		return "DebitFailed"
	case errors.As(err, &errcf):
		return "CreditStorageError"
	case errors.As(err, &errdr):
		return "DestinationRejected"
	case errors.As(err, &errnet):
		return "NetworkError"
	case errors.Is(err, ErrOverloaded):
		return "Overloaded"
	default:
		return "InternalError"
	}
}
