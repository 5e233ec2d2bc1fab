package banklink_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/arhyth/banklink"
	"github.com/arhyth/banklink/mocks"
)

func newTestCoordinator(tt *testing.T, repo banklink.Repository, client banklink.CreditClient) *banklink.Coordinator {
	node, err := snowflake.NewNode(1)
	require.Nil(tt, err)
	log := zerolog.Nop()
	return banklink.NewCoordinator(repo, client, "BANK_A", node, &log)
}

func assertBalance(tt *testing.T, repo banklink.Repository, id int64, want string) {
	tt.Helper()
	acct, err := repo.GetAccount(context.Background(), id)
	require.Nil(tt, err)
	assert.True(tt, acct.Balance.Equal(decimal.RequireFromString(want)), "balance of %d: want %s, got %s", id, want, acct.Balance)
}

// flakyRepo lets the first `ok` transactions through and fails the rest.
type flakyRepo struct {
	banklink.Repository
	ok    int32
	calls atomic.Int32
}

func (f *flakyRepo) WithTx(ctx context.Context, fn func(banklink.AccountTx) error) error {
	if f.calls.Add(1) > f.ok {
		return errors.New("connection reset by peer")
	}
	return f.Repository.WithTx(ctx, fn)
}

func TestCoordinatorTransfer(t *testing.T) {
	t.Run("debits source and credits destination on success", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		store := banklink.NewMemoryStore()
		store.Seed(1, decimal.RequireFromString("100.00"))
		client := mocks.NewMockCreditClient(ctrl)
		client.EXPECT().
			Credit(gomock.Any(), gomock.AssignableToTypeOf(banklink.CreditReq{})).
			DoAndReturn(func(ctx context.Context, req banklink.CreditReq) error {
				as.Equal(int64(2), req.ToID)
				as.Equal(int64(1), req.FromID)
				as.Equal("BANK_A", req.FromBank)
				as.True(req.Amount.Equal(decimal.RequireFromString("30.00")))
				as.NotZero(req.TransferID)

				// debit is committed and the row is free while the call is out
				assertBalance(tt, store, 1, "70.00")
				lctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
				defer cancel()
				err := store.WithTx(lctx, func(tx banklink.AccountTx) error {
					_, err := tx.GetForUpdate(lctx, 1)
					return err
				})
				as.Nil(err)
				return nil
			}).
			Times(1)

		coord := newTestCoordinator(tt, store, client)
		res, err := coord.Transfer(context.Background(), banklink.TransferReq{
			FromID: 1,
			ToID:   2,
			Amount: decimal.RequireFromString("30.00"),
		})
		reqrd.Nil(err)
		as.Equal(int64(1), res.FromID)
		as.Equal(int64(2), res.ToID)
		as.NotZero(res.TransferID)
		assertBalance(tt, store, 1, "70.00")
	})

	t.Run("rejects non-positive or unrepresentable amounts without side effects", func(tt *testing.T) {
		for _, amt := range []string{"0", "0.00", "-5", "0.001", "10000000000.00"} {
			as := assert.New(tt)
			ctrl := gomock.NewController(tt)
			store := banklink.NewMemoryStore()
			store.Seed(1, decimal.RequireFromString("100.00"))
			client := mocks.NewMockCreditClient(ctrl)

			coord := newTestCoordinator(tt, store, client)
			res, err := coord.Transfer(context.Background(), banklink.TransferReq{
				FromID: 1,
				ToID:   2,
				Amount: decimal.RequireFromString(amt),
			})
			as.Nil(res, amt)
			as.ErrorIs(err, banklink.ErrInvalidAmount, amt)
			assertBalance(tt, store, 1, "100.00")
		}
	})

	t.Run("returns ErrInsufficientFunds and leaves balance untouched", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		store := banklink.NewMemoryStore()
		store.Seed(1, decimal.RequireFromString("100.00"))
		client := mocks.NewMockCreditClient(ctrl)

		coord := newTestCoordinator(tt, store, client)
		res, err := coord.Transfer(context.Background(), banklink.TransferReq{
			FromID: 1,
			ToID:   2,
			Amount: decimal.RequireFromString("150.00"),
		})
		as.Nil(res)
		as.ErrorIs(err, banklink.ErrInsufficientFunds)
		assertBalance(tt, store, 1, "100.00")
	})

	t.Run("returns ErrNotFound for a missing source account", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		store := banklink.NewMemoryStore()
		client := mocks.NewMockCreditClient(ctrl)

		coord := newTestCoordinator(tt, store, client)
		_, err := coord.Transfer(context.Background(), banklink.TransferReq{
			FromID: 999,
			ToID:   2,
			Amount: decimal.NewFromInt(1),
		})
		var errnf banklink.ErrNotFound
		as.ErrorAs(err, &errnf)
		as.Equal(int64(999), errnf.ID)
		_, err = store.GetAccount(context.Background(), 999)
		as.ErrorAs(err, &banklink.ErrNotFound{})
	})

	t.Run("restores source when destination rejects", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		store := banklink.NewMemoryStore()
		store.Seed(1, decimal.RequireFromString("100.00"))
		client := mocks.NewMockCreditClient(ctrl)
		client.EXPECT().
			Credit(gomock.Any(), gomock.Any()).
			Return(banklink.ErrDestinationRejected{Status: 500, Body: `{"error":"boom"}`}).
			Times(1)

		coord := newTestCoordinator(tt, store, client)
		res, err := coord.Transfer(context.Background(), banklink.TransferReq{
			FromID: 1,
			ToID:   2,
			Amount: decimal.RequireFromString("30.00"),
		})
		as.Nil(res)
		var errdr banklink.ErrDestinationRejected
		as.ErrorAs(err, &errdr)
		as.Equal(500, errdr.Status)
		as.Equal(`{"error":"boom"}`, errdr.Body)
		assertBalance(tt, store, 1, "100.00")
	})

	t.Run("restores source on network failure", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		store := banklink.NewMemoryStore()
		store.Seed(1, decimal.RequireFromString("100.00"))
		client := mocks.NewMockCreditClient(ctrl)
		client.EXPECT().
			Credit(gomock.Any(), gomock.Any()).
			Return(banklink.ErrNetwork{Err: context.DeadlineExceeded}).
			Times(1)

		coord := newTestCoordinator(tt, store, client)
		_, err := coord.Transfer(context.Background(), banklink.TransferReq{
			FromID: 1,
			ToID:   2,
			Amount: decimal.RequireFromString("30.00"),
		})
		as.ErrorAs(err, &banklink.ErrNetwork{})
		as.Equal("NetworkError", banklink.ErrorCategory(err))
		assertBalance(tt, store, 1, "100.00")
	})

	t.Run("surfaces ErrCompensationFailed when the reversal cannot commit", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		store := banklink.NewMemoryStore()
		store.Seed(1, decimal.RequireFromString("100.00"))
		repo := &flakyRepo{Repository: store, ok: 1}
		client := mocks.NewMockCreditClient(ctrl)
		client.EXPECT().
			Credit(gomock.Any(), gomock.Any()).
			Return(banklink.ErrDestinationRejected{Status: 503}).
			Times(1)

		coord := newTestCoordinator(tt, repo, client)
		_, err := coord.Transfer(context.Background(), banklink.TransferReq{
			FromID: 1,
			ToID:   2,
			Amount: decimal.RequireFromString("30.00"),
		})
		var errcmp banklink.ErrCompensationFailed
		as.ErrorAs(err, &errcmp)
		as.Equal(int64(1), errcmp.FromID)
		as.True(errcmp.Amount.Equal(decimal.RequireFromString("30.00")))
		as.ErrorAs(err, &banklink.ErrDestinationRejected{})
		as.Equal("CompensationFailed", banklink.ErrorCategory(err))
		// the known gap: source stays debited
		assertBalance(tt, store, 1, "70.00")
	})

	t.Run("wraps storage failure during debit as ErrDebitFailed", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		client := mocks.NewMockCreditClient(ctrl)
		dberr := errors.New("connection refused")
		repo.EXPECT().
			WithTx(gomock.Any(), gomock.Any()).
			Return(dberr).
			Times(1)

		coord := newTestCoordinator(tt, repo, client)
		_, err := coord.Transfer(context.Background(), banklink.TransferReq{
			FromID: 1,
			ToID:   2,
			Amount: decimal.NewFromInt(1),
		})
		as.ErrorAs(err, &banklink.ErrDebitFailed{})
		as.ErrorIs(err, dberr)
	})

	t.Run("wraps a failed balance write as ErrDebitFailed", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		tx := mocks.NewMockAccountTx(ctrl)
		client := mocks.NewMockCreditClient(ctrl)
		repo.EXPECT().
			WithTx(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, fn func(banklink.AccountTx) error) error {
				return fn(tx)
			})
		tx.EXPECT().
			GetForUpdate(gomock.Any(), int64(1)).
			Return(&banklink.Account{ID: 1, Balance: decimal.NewFromInt(100)}, nil)
		tx.EXPECT().
			SetBalance(gomock.Any(), int64(1), gomock.Any()).
			Return(errors.New("disk full"))

		coord := newTestCoordinator(tt, repo, client)
		_, err := coord.Transfer(context.Background(), banklink.TransferReq{
			FromID: 1,
			ToID:   2,
			Amount: decimal.NewFromInt(1),
		})
		as.ErrorAs(err, &banklink.ErrDebitFailed{})
	})

	t.Run("does not debit when the caller already gave up", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		store := banklink.NewMemoryStore()
		store.Seed(1, decimal.RequireFromString("100.00"))
		client := mocks.NewMockCreditClient(ctrl)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		coord := newTestCoordinator(tt, store, client)
		_, err := coord.Transfer(ctx, banklink.TransferReq{
			FromID: 1,
			ToID:   2,
			Amount: decimal.NewFromInt(1),
		})
		as.ErrorAs(err, &banklink.ErrDebitFailed{})
		assertBalance(tt, store, 1, "100.00")
	})

	t.Run("keeps compensating after the caller cancels mid-flight", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		store := banklink.NewMemoryStore()
		store.Seed(1, decimal.RequireFromString("100.00"))
		client := mocks.NewMockCreditClient(ctrl)

		ctx, cancel := context.WithCancel(context.Background())
		client.EXPECT().
			Credit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(cctx context.Context, req banklink.CreditReq) error {
				cancel()
				as.Nil(cctx.Err())
				return banklink.ErrNetwork{Err: errors.New("connection reset")}
			})

		coord := newTestCoordinator(tt, store, client)
		_, err := coord.Transfer(ctx, banklink.TransferReq{
			FromID: 1,
			ToID:   2,
			Amount: decimal.RequireFromString("12.34"),
		})
		as.ErrorAs(err, &banklink.ErrNetwork{})
		assertBalance(tt, store, 1, "100.00")
	})
}
