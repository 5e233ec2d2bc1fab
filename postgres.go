package banklink

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	pgSelectAcctSQL = `
		SELECT client_id, balance
		FROM accounts
		WHERE client_id = $1;
	`

	pgSelectForUpdateAcctSQL = `
		SELECT client_id, balance
		FROM accounts
		WHERE client_id = $1
		FOR UPDATE;
	`

	pgInsertZeroAcctSQL = `
		INSERT INTO accounts (client_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (client_id) DO NOTHING;
	`

	pgUpdateAcctSQL = `
		UPDATE accounts
		SET balance = $1
		WHERE client_id = $2;
	`
)

type PostgresEndpoint struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger
}

var (
	_ Repository = (*PostgresEndpoint)(nil)
	_ AccountTx  = (*pgAccountTx)(nil)
)

func NewPostgresEndpoint(ctx context.Context, connStr string, log *zerolog.Logger) (*PostgresEndpoint, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	endpt := &PostgresEndpoint{
		pool: pool,
		log:  log,
	}
	return endpt, err
}

func (pg *PostgresEndpoint) Close() {
	pg.pool.Close()
}

func (pg *PostgresEndpoint) GetAccount(ctx context.Context, id int64) (*Account, error) {
	row := pg.pool.QueryRow(ctx, pgSelectAcctSQL, id)
	return scanAccount(row, id)
}

func (pg *PostgresEndpoint) WithTx(ctx context.Context, fn func(AccountTx) error) (err error) {
	conn, err := pg.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			pg.rollback(ctx, tx)
			panic(p)
		}
	}()

	if err = fn(&pgAccountTx{tx: tx}); err != nil {
		pg.rollback(ctx, tx)
		return err
	}

	return tx.Commit(ctx)
}

// rollback must run even when ctx is already done, otherwise the row locks
// stay with the connection until the server notices.
func (pg *PostgresEndpoint) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		pg.log.Err(err).Msg("transaction rollback fail")
	}
}

type pgAccountTx struct {
	tx pgx.Tx
}

func (t *pgAccountTx) GetForUpdate(ctx context.Context, id int64) (*Account, error) {
	row := t.tx.QueryRow(ctx, pgSelectForUpdateAcctSQL, id)
	return scanAccount(row, id)
}

func (t *pgAccountTx) UpsertZero(ctx context.Context, id int64) (*Account, error) {
	if _, err := t.tx.Exec(ctx, pgInsertZeroAcctSQL, id); err != nil {
		return nil, err
	}
	return t.GetForUpdate(ctx, id)
}

func (t *pgAccountTx) SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, pgUpdateAcctSQL, balance, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound{ID: id}
	}
	return nil
}

func scanAccount(row pgx.Row, id int64) (*Account, error) {
	acct := &Account{}
	if err := row.Scan(&acct.ID, &acct.Balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound{ID: id}
		}
		return nil, err
	}
	return acct, nil
}
