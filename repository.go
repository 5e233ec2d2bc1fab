package banklink

import (
	"context"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/arhyth/banklink Repository,AccountTx

type Account struct {
	ID      int64           `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// Repository is the account store. Reads through GetAccount take no locks;
// every balance mutation goes through WithTx.
type Repository interface {
	GetAccount(ctx context.Context, id int64) (*Account, error)
	// WithTx runs fn in a single transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, including when fn panics. Row locks
	// taken through the AccountTx are held until WithTx returns.
	WithTx(ctx context.Context, fn func(AccountTx) error) error
}

type AccountTx interface {
	// GetForUpdate locks the row for the rest of the transaction. It returns
	// ErrNotFound when the account does not exist.
	GetForUpdate(ctx context.Context, id int64) (*Account, error)
	// UpsertZero creates a zero balance account if absent and returns it locked.
	UpsertZero(ctx context.Context, id int64) (*Account, error)
	SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error
}

var (
	// NUMERIC(12,2)
	maxBalance = decimal.New(1, 10).Sub(decimal.New(1, -2))
)

// validAmount reports whether amount can be moved between accounts without
// rounding: strictly positive, at most 2 fractional digits and within the
// column range.
func validAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	if !amount.Equal(amount.Truncate(2)) {
		return false
	}
	return amount.LessThanOrEqual(maxBalance)
}
