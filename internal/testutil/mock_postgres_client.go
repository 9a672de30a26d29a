package testutil

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/wellcare/billing/internal/logger"
	"github.com/wellcare/billing/internal/postgres"
	"github.com/wellcare/billing/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

// txState stands in for an open transaction. Row locks taken during the
// transaction register their release here and are let go when the
// transaction ends, mirroring how SELECT FOR UPDATE locks behave.
type txState struct {
	mu      sync.Mutex
	unlocks []func()
}

func (t *txState) registerUnlock(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unlocks = append(t.unlocks, fn)
}

func (t *txState) release() {
	t.mu.Lock()
	unlocks := t.unlocks
	t.unlocks = nil
	t.mu.Unlock()

	for i := len(unlocks) - 1; i >= 0; i-- {
		unlocks[i]()
	}
}

// txStateFromContext returns the simulated transaction if one is open
func txStateFromContext(ctx context.Context) *txState {
	if st, ok := ctx.Value(types.CtxDBTransaction).(*txState); ok {
		return st
	}
	return nil
}

// RegisterTxUnlock defers fn until the simulated transaction in ctx ends.
// Returns false when no transaction is open.
func RegisterTxUnlock(ctx context.Context, fn func()) bool {
	st := txStateFromContext(ctx)
	if st == nil {
		return false
	}
	st.registerUnlock(fn)
	return true
}

// MockPostgresClient is a mock implementation of postgres client for testing
type MockPostgresClient struct {
	logger *logger.Logger
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) postgres.IClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function within a simulated transaction. Row
// locks taken by the in-memory stores are held until fn returns.
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	// If we're already in a transaction, reuse it
	if st := txStateFromContext(ctx); st != nil {
		return fn(ctx)
	}

	st := &txState{}
	defer st.release()

	txCtx := context.WithValue(ctx, types.CtxDBTransaction, st)
	return fn(txCtx)
}

// TxFromContext never returns a real transaction; the in-memory stores do
// not use sqlx.
func (c *MockPostgresClient) TxFromContext(ctx context.Context) *sqlx.Tx {
	return nil
}

// Querier is unused by the in-memory stores
func (c *MockPostgresClient) Querier(ctx context.Context) postgres.Querier {
	return nil
}
