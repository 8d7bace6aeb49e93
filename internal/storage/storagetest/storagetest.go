// Package storagetest sets up throwaway SQLite stores for tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"tweeter/internal/storage"
)

// NewStore opens a fresh SQLite file under t.TempDir with the schema loaded.
func NewStore(t testing.TB) *storage.Store {
	t.Helper()

	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Config{
		Type: storage.TypeSQLite,
		Path: filepath.Join(t.TempDir(), "tweeter-test.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.InitSchema(ctx); err != nil {
		t.Fatal(err)
	}
	return store
}

// NewConn returns a connection on a fresh store, released at test end.
func NewConn(t testing.TB) *storage.Conn {
	t.Helper()

	conn, err := NewStore(t).Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Release() })
	return conn
}

// CountingQuerier wraps a Querier and counts the mutating statements sent
// through it.
type CountingQuerier struct {
	storage.Querier
	Writes int
}

func (c *CountingQuerier) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	c.Writes++
	return c.Querier.Execute(ctx, query, args...)
}

func (c *CountingQuerier) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	c.Writes++
	return c.Querier.Insert(ctx, query, args...)
}

func (c *CountingQuerier) InTx(ctx context.Context, fn func(q storage.Querier) error) error {
	return c.Querier.InTx(ctx, func(q storage.Querier) error {
		inner := &CountingQuerier{Querier: q}
		err := fn(inner)
		c.Writes += inner.Writes
		return err
	})
}
