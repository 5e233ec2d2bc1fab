package banklink_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhyth/banklink"
)

var (
	testDBConnStr string
)

func init() {
	testDBConnStr = os.Getenv("TEST_DB_CONN_STR")
}

func TestPostgres(t *testing.T) {
	if testDBConnStr == "" {
		t.Skip("TEST_DB_CONN_STR not set")
	}
	reqrd := require.New(t)
	ctx := context.Background()

	cfg := banklink.DefaultConfig()
	cfg.Database.ConnectionString = testDBConnStr
	cfg.Database.Seed = map[int64]string{
		1: "100.00",
		2: "10.00",
	}
	lh, err := banklink.NewLocalHelper(ctx, cfg)
	reqrd.Nil(err)
	teardown, err := lh.InitDB(ctx)
	reqrd.Nil(err)
	t.Cleanup(teardown)
	reqrd.Nil(lh.SeedAccounts(ctx))

	nooplog := zerolog.Nop()
	endpt, err := banklink.NewPostgresEndpoint(ctx, testDBConnStr, &nooplog)
	reqrd.Nil(err)
	t.Cleanup(endpt.Close)

	t.Run("GetAccount reads seeded balance", func(tt *testing.T) {
		as := assert.New(tt)
		acct, err := endpt.GetAccount(ctx, 1)
		as.Nil(err)
		as.Equal("100.00", acct.Balance.StringFixed(2))
	})

	t.Run("GetAccount maps missing row to ErrNotFound", func(tt *testing.T) {
		as := assert.New(tt)
		acct, err := endpt.GetAccount(ctx, 999)
		as.Nil(acct)
		as.ErrorAs(err, &banklink.ErrNotFound{})
	})

	t.Run("WithTx commits balance update", func(tt *testing.T) {
		as := assert.New(tt)
		err := endpt.WithTx(ctx, func(tx banklink.AccountTx) error {
			acct, err := tx.GetForUpdate(ctx, 2)
			if err != nil {
				return err
			}
			return tx.SetBalance(ctx, 2, acct.Balance.Add(decimal.RequireFromString("0.75")))
		})
		as.Nil(err)
		acct, err := endpt.GetAccount(ctx, 2)
		as.Nil(err)
		as.Equal("10.75", acct.Balance.StringFixed(2))
	})

	t.Run("WithTx rolls back on error", func(tt *testing.T) {
		as := assert.New(tt)
		boom := errors.New("boom")
		err := endpt.WithTx(ctx, func(tx banklink.AccountTx) error {
			if _, err := tx.GetForUpdate(ctx, 1); err != nil {
				return err
			}
			if err := tx.SetBalance(ctx, 1, decimal.Zero); err != nil {
				return err
			}
			return boom
		})
		as.ErrorIs(err, boom)
		acct, err := endpt.GetAccount(ctx, 1)
		as.Nil(err)
		as.Equal("100.00", acct.Balance.StringFixed(2))
	})

	t.Run("SetBalance on missing row returns ErrNotFound", func(tt *testing.T) {
		as := assert.New(tt)
		err := endpt.WithTx(ctx, func(tx banklink.AccountTx) error {
			return tx.SetBalance(ctx, 404, decimal.NewFromInt(1))
		})
		as.ErrorAs(err, &banklink.ErrNotFound{})
	})

	t.Run("UpsertZero provisions once and keeps existing balance", func(tt *testing.T) {
		as := assert.New(tt)
		err := endpt.WithTx(ctx, func(tx banklink.AccountTx) error {
			acct, err := tx.UpsertZero(ctx, 77)
			if err != nil {
				return err
			}
			as.True(acct.Balance.IsZero())
			acct, err = tx.UpsertZero(ctx, 1)
			if err != nil {
				return err
			}
			as.Equal("100.00", acct.Balance.StringFixed(2))
			return nil
		})
		as.Nil(err)
		acct, err := endpt.GetAccount(ctx, 77)
		as.Nil(err)
		as.True(acct.Balance.IsZero())
	})

	t.Run("GetForUpdate blocks a second locker", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		locked := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- endpt.WithTx(ctx, func(tx banklink.AccountTx) error {
				if _, err := tx.GetForUpdate(ctx, 1); err != nil {
					return err
				}
				close(locked)
				<-release
				return nil
			})
		}()
		<-locked

		tctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		err := endpt.WithTx(tctx, func(tx banklink.AccountTx) error {
			_, err := tx.GetForUpdate(tctx, 1)
			return err
		})
		as.NotNil(err)

		close(release)
		reqrd.Nil(<-done)
	})
}
