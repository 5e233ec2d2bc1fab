package banklink

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	errRowNotLocked = errors.New("row not locked in this transaction")
)

// MemoryStore is a Repository kept in process memory. Row locks are one slot
// channels so that waiting for a lock respects context cancellation. Writes
// are staged per transaction and only become visible on commit.
type MemoryStore struct {
	mu    sync.Mutex
	accts map[int64]decimal.Decimal
	locks map[int64]chan struct{}
}

var (
	_ Repository = (*MemoryStore)(nil)
	_ AccountTx  = (*memAccountTx)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accts: make(map[int64]decimal.Decimal),
		locks: make(map[int64]chan struct{}),
	}
}

// Seed sets a committed balance directly, bypassing row locks.
func (m *MemoryStore) Seed(id int64, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accts[id] = balance
}

func (m *MemoryStore) GetAccount(_ context.Context, id int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.accts[id]
	if !ok {
		return nil, ErrNotFound{ID: id}
	}
	return &Account{ID: id, Balance: bal}, nil
}

func (m *MemoryStore) WithTx(_ context.Context, fn func(AccountTx) error) error {
	tx := &memAccountTx{
		store:  m,
		held:   make(map[int64]chan struct{}),
		staged: make(map[int64]decimal.Decimal),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (m *MemoryStore) rowLock(id int64) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		m.locks[id] = l
	}
	return l
}

type memAccountTx struct {
	store  *MemoryStore
	held   map[int64]chan struct{}
	staged map[int64]decimal.Decimal
}

func (t *memAccountTx) lock(ctx context.Context, id int64) error {
	if _, ok := t.held[id]; ok {
		return nil
	}
	l := t.store.rowLock(id)
	select {
	case l <- struct{}{}:
		t.held[id] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *memAccountTx) GetForUpdate(ctx context.Context, id int64) (*Account, error) {
	if err := t.lock(ctx, id); err != nil {
		return nil, err
	}
	if bal, ok := t.staged[id]; ok {
		return &Account{ID: id, Balance: bal}, nil
	}
	return t.store.GetAccount(ctx, id)
}

func (t *memAccountTx) UpsertZero(ctx context.Context, id int64) (*Account, error) {
	acct, err := t.GetForUpdate(ctx, id)
	var errnf ErrNotFound
	if errors.As(err, &errnf) {
		t.staged[id] = decimal.Zero
		return &Account{ID: id, Balance: decimal.Zero}, nil
	}
	return acct, err
}

func (t *memAccountTx) SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	if _, ok := t.held[id]; !ok {
		return errRowNotLocked
	}
	if _, ok := t.staged[id]; !ok {
		if _, err := t.store.GetAccount(ctx, id); err != nil {
			return err
		}
	}
	t.staged[id] = balance
	return nil
}

func (t *memAccountTx) commit() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, bal := range t.staged {
		t.store.accts[id] = bal
	}
}

func (t *memAccountTx) release() {
	for id, l := range t.held {
		<-l
		delete(t.held, id)
	}
}
