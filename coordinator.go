package banklink

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	compensateTimeout = 30 * time.Second
)

type TransferReq struct {
	FromID int64           `json:"from_id"`
	ToID   int64           `json:"to_id"`
	Amount decimal.Decimal `json:"amount"`
}

type TransferResult struct {
	TransferID snowflake.ID
	FromID     int64
	ToID       int64
	Amount     decimal.Decimal
}

// Coordinator moves money from a local account to an account at the
// destination bank: debit locally, credit remotely, and reverse the debit
// when the credit does not succeed. The debit and the reversal are separate
// transactions and no row lock is held during the remote call.
type Coordinator struct {
	repo   Repository
	client CreditClient
	bankID string
	node   *snowflake.Node
	log    *zerolog.Logger
}

func NewCoordinator(repo Repository, client CreditClient, bankID string, node *snowflake.Node, log *zerolog.Logger) *Coordinator {
	return &Coordinator{
		repo:   repo,
		client: client,
		bankID: bankID,
		node:   node,
		log:    log,
	}
}

func (c *Coordinator) Transfer(ctx context.Context, req TransferReq) (*TransferResult, error) {
	if !validAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}

	xfer := &TransferResult{
		TransferID: c.node.Generate(),
		FromID:     req.FromID,
		ToID:       req.ToID,
		Amount:     req.Amount,
	}
	log := c.log.With().
		Str("transfer_id", xfer.TransferID.String()).
		Int64("from_id", xfer.FromID).
		Int64("to_id", xfer.ToID).
		Str("amount", xfer.Amount.StringFixed(2)).
		Logger()

	if err := ctx.Err(); err != nil {
		return nil, ErrDebitFailed{Err: err}
	}
	// From the debit on, the saga runs to an end state even if the caller
	// goes away: a cancelled COMMIT would leave the debit in an unknown state.
	ctx = context.WithoutCancel(ctx)

	if err := c.debit(ctx, xfer); err != nil {
		log.Info().Err(err).Msg("debit refused")
		return nil, err
	}
	log.Debug().Msg("debit committed")

	creditErr := c.client.Credit(ctx, CreditReq{
		ToID:       xfer.ToID,
		Amount:     xfer.Amount,
		FromBank:   c.bankID,
		FromID:     xfer.FromID,
		TransferID: xfer.TransferID,
	})
	if creditErr == nil {
		log.Info().Msg("transfer complete")
		return xfer, nil
	}
	log.Warn().Err(creditErr).Msg("remote credit failed, reversing debit")

	if err := c.compensate(ctx, xfer); err != nil {
		cerr := ErrCompensationFailed{
			TransferID: xfer.TransferID,
			FromID:     xfer.FromID,
			ToID:       xfer.ToID,
			Amount:     xfer.Amount,
			Cause:      creditErr,
			Err:        err,
		}
		log.Error().Err(cerr).Msg("debit reversal failed, funds held nowhere")
		return nil, cerr
	}
	log.Info().Msg("debit reversed")

	return nil, creditErr
}

func (c *Coordinator) debit(ctx context.Context, xfer *TransferResult) error {
	err := c.repo.WithTx(ctx, func(tx AccountTx) error {
		acct, err := tx.GetForUpdate(ctx, xfer.FromID)
		if err != nil {
			return err
		}
		if acct.Balance.LessThan(xfer.Amount) {
			return ErrInsufficientFunds
		}
		return tx.SetBalance(ctx, xfer.FromID, acct.Balance.Sub(xfer.Amount))
	})

	var errnf ErrNotFound
	switch {
	case err == nil:
		return nil
	case errors.As(err, &errnf), errors.Is(err, ErrInsufficientFunds):
		return err
	default:
		return ErrDebitFailed{Err: err}
	}
}

// compensate adds back exactly the debited amount. An account that vanished
// in the meantime is left alone.
func (c *Coordinator) compensate(ctx context.Context, xfer *TransferResult) error {
	ctx, cancel := context.WithTimeout(ctx, compensateTimeout)
	defer cancel()

	return c.repo.WithTx(ctx, func(tx AccountTx) error {
		acct, err := tx.GetForUpdate(ctx, xfer.FromID)
		var errnf ErrNotFound
		if errors.As(err, &errnf) {
			c.log.Warn().
				Str("transfer_id", xfer.TransferID.String()).
				Int64("from_id", xfer.FromID).
				Msg("source account gone, nothing to reverse")
			return nil
		}
		if err != nil {
			return err
		}
		return tx.SetBalance(ctx, xfer.FromID, acct.Balance.Add(xfer.Amount))
	})
}
