package banklink

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks github.com/arhyth/banklink Service

type Service interface {
	Account(ctx context.Context, id int64) (*Account, error)
	ReceiveCredit(ctx context.Context, req CreditReq) (*CreditResult, error)
	Transfer(ctx context.Context, req TransferReq) (*TransferResult, error)
	Statement(ctx context.Context, w io.Writer, id int64) error
}

var (
	errBalanceOverflow = errors.New("balance exceeds NUMERIC(12,2)")
)

type ServiceOpts struct {
	BankID string
	// AutoProvision creates a zero balance account the first time an unknown
	// id is credited or summarized.
	AutoProvision bool
}

func NewService(repo Repository, coord *Coordinator, opts ServiceOpts, log *zerolog.Logger) *serviceImpl {
	return &serviceImpl{
		repo:  repo,
		coord: coord,
		opts:  opts,
		log:   log,
		now:   time.Now,
	}
}

type serviceImpl struct {
	repo  Repository
	coord *Coordinator
	opts  ServiceOpts
	log   *zerolog.Logger
	now   func() time.Time
}

var (
	_ Service = (*serviceImpl)(nil)
)

func (s *serviceImpl) Account(ctx context.Context, id int64) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *serviceImpl) ReceiveCredit(ctx context.Context, req CreditReq) (*CreditResult, error) {
	if !validAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}

	err := s.repo.WithTx(ctx, func(tx AccountTx) error {
		acct, err := s.lockOrProvision(ctx, tx, req.ToID)
		if err != nil {
			return err
		}
		bal := acct.Balance.Add(req.Amount)
		if bal.GreaterThan(maxBalance) {
			return errBalanceOverflow
		}
		return tx.SetBalance(ctx, req.ToID, bal)
	})

	var errnf ErrNotFound
	switch {
	case err == nil:
		return &CreditResult{ToID: req.ToID, Amount: req.Amount}, nil
	case errors.As(err, &errnf):
		return nil, err
	default:
		return nil, ErrCreditFailed{Err: err}
	}
}

func (s *serviceImpl) Transfer(ctx context.Context, req TransferReq) (*TransferResult, error) {
	return s.coord.Transfer(ctx, req)
}

func (s *serviceImpl) Statement(ctx context.Context, w io.Writer, id int64) error {
	acct, err := s.repo.GetAccount(ctx, id)
	var errnf ErrNotFound
	if errors.As(err, &errnf) && s.opts.AutoProvision {
		err = s.repo.WithTx(ctx, func(tx AccountTx) error {
			acct, err = tx.UpsertZero(ctx, id)
			return err
		})
	}
	if err != nil {
		return err
	}

	return renderStatement(w, statement{
		BankID:      s.opts.BankID,
		Account:     *acct,
		GeneratedAt: s.now(),
	})
}

func (s *serviceImpl) lockOrProvision(ctx context.Context, tx AccountTx, id int64) (*Account, error) {
	acct, err := tx.GetForUpdate(ctx, id)
	var errnf ErrNotFound
	if errors.As(err, &errnf) && s.opts.AutoProvision {
		s.log.Info().Int64("id", id).Msg("provisioning account")
		return tx.UpsertZero(ctx, id)
	}
	return acct, err
}
