package testutil

import (
	"context"
	"database/sql"

	"github.com/streamforge/billing/internal/postgres"
	"github.com/streamforge/billing/internal/types"
)

// MockDB satisfies postgres.IClient for service tests. WithTx just runs the
// function; advisory locks always succeed.
type MockDB struct{}

var _ postgres.IClient = (*MockDB)(nil)

func NewMockDB() *MockDB { return &MockDB{} }

func (m *MockDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MockDB) TxFromContext(ctx context.Context) *sql.Tx { return nil }

func (m *MockDB) LockKey(ctx context.Context, req types.LockRequest) error { return nil }

func (m *MockDB) TryLockKey(ctx context.Context, key string) (bool, error) { return true, nil }
