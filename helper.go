package banklink

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"text/template"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	//go:embed testdata/init_db.sql
	initDBSQL string
	//go:embed testdata/teardown_db.sql
	teardownDBSQL string
	//go:embed testdata/seed_accounts.tmpl
	seedAccountsTmpl string
)

// LocalHelper prepares a database for local runs and tests: schema and
// opening balances.
type LocalHelper struct {
	Conn *pgx.Conn
	Seed []Account
}

func NewLocalHelper(ctx context.Context, cfg *Config) (*LocalHelper, error) {
	seed, err := ParseSeed(cfg.Database.Seed)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.Connect(ctx, cfg.Database.ConnectionString)
	if err != nil {
		return nil, err
	}
	return &LocalHelper{
		Conn: conn,
		Seed: seed,
	}, nil
}

func (lh *LocalHelper) InitDB(ctx context.Context) (func(), error) {
	if _, err := lh.Conn.Exec(ctx, initDBSQL); err != nil {
		return nil, err
	}
	return lh.teardownDB(), nil
}

func (lh *LocalHelper) SeedAccounts(ctx context.Context) error {
	if len(lh.Seed) == 0 {
		return nil
	}
	tmpl, err := template.New("seed_accounts").Parse(seedAccountsTmpl)
	if err != nil {
		return err
	}
	rows := make([]struct {
		ID      int64
		Balance string
	}, len(lh.Seed))
	for i, a := range lh.Seed {
		rows[i].ID = a.ID
		rows[i].Balance = a.Balance.StringFixed(2)
	}
	buf := new(bytes.Buffer)
	if err = tmpl.Execute(buf, rows); err != nil {
		return err
	}

	_, err = lh.Conn.Exec(ctx, buf.String())
	return err
}

func (lh *LocalHelper) teardownDB() func() {
	return func() {
		defer lh.Conn.Close(context.Background())

		if _, err := lh.Conn.Exec(context.Background(), teardownDBSQL); err != nil {
			fmt.Fprintf(os.Stderr, "DB cleanup exec teardown sql: %s", err.Error())
			return
		}
	}
}

// SeedMemory applies opening balances to an in-memory store.
func SeedMemory(store *MemoryStore, seed map[int64]string) error {
	accts, err := ParseSeed(seed)
	if err != nil {
		return err
	}
	for _, a := range accts {
		store.Seed(a.ID, a.Balance)
	}
	return nil
}

// ParseSeed validates configured opening balances and returns them ordered
// by client id.
func ParseSeed(seed map[int64]string) ([]Account, error) {
	accts := make([]Account, 0, len(seed))
	for id, s := range seed {
		bal, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("seed balance for %d: %w", id, err)
		}
		if bal.IsNegative() || !bal.Equal(bal.Truncate(2)) || bal.GreaterThan(maxBalance) {
			return nil, fmt.Errorf("seed balance for %d: %q does not fit NUMERIC(12,2)", id, s)
		}
		accts = append(accts, Account{ID: id, Balance: bal})
	}
	sort.Slice(accts, func(i, j int) bool { return accts[i].ID < accts[j].ID })
	return accts, nil
}
