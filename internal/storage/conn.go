package storage

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// Querier is what the resource handlers run statements against. Both a
// request-scoped Conn and the handle passed to an InTx callback satisfy it.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]Record, error)
	// QueryOne returns ErrNoRecord when nothing matches.
	QueryOne(ctx context.Context, query string, args ...any) (Record, error)
	// Execute returns the number of affected rows.
	Execute(ctx context.Context, query string, args ...any) (int64, error)
	// Insert runs an INSERT ... RETURNING <id> statement and returns the id.
	Insert(ctx context.Context, query string, args ...any) (int64, error)
	InTx(ctx context.Context, fn func(q Querier) error) error
}

// runner is the subset of sqlx shared by *sqlx.Conn and *sqlx.Tx.
type runner interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

////////////////////////////////////////////////////////////////////////////////

// Conn is one connection reserved for a single request. Mutating statements
// issued directly on it are committed before they return.
type Conn struct {
	conn *sqlx.Conn
	bind int

	once   sync.Once
	relErr error
}

// Release returns the connection to the pool. Calling it more than once is
// harmless.
func (c *Conn) Release() error {
	c.once.Do(func() {
		c.relErr = c.conn.Close()
	})
	return c.relErr
}

func (c *Conn) rebind(query string) string {
	return sqlx.Rebind(c.bind, query)
}

func (c *Conn) Query(ctx context.Context, query string, args ...any) ([]Record, error) {
	return queryAll(ctx, c.conn, c.rebind(query), args)
}

func (c *Conn) QueryOne(ctx context.Context, query string, args ...any) (Record, error) {
	return queryOne(ctx, c.conn, c.rebind(query), args)
}

func (c *Conn) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := c.InTx(ctx, func(q Querier) error {
		var err error
		n, err = q.Execute(ctx, query, args...)
		return err
	})
	return n, err
}

func (c *Conn) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := c.InTx(ctx, func(q Querier) error {
		var err error
		id, err = q.Insert(ctx, query, args...)
		return err
	})
	return id, err
}

// InTx runs fn inside one transaction, committing when fn returns nil and
// rolling back otherwise.
func (c *Conn) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := c.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txQuerier{tx: tx, bind: c.bind}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

type txQuerier struct {
	tx   *sqlx.Tx
	bind int
}

func (t *txQuerier) Query(ctx context.Context, query string, args ...any) ([]Record, error) {
	return queryAll(ctx, t.tx, sqlx.Rebind(t.bind, query), args)
}

func (t *txQuerier) QueryOne(ctx context.Context, query string, args ...any) (Record, error) {
	return queryOne(ctx, t.tx, sqlx.Rebind(t.bind, query), args)
}

func (t *txQuerier) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, sqlx.Rebind(t.bind, query), args...)
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}

func (t *txQuerier) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := t.tx.QueryRowxContext(ctx, sqlx.Rebind(t.bind, query), args...).Scan(&id); err != nil {
		return 0, classify(err)
	}
	return id, nil
}

// InTx on an open transaction joins it.
func (t *txQuerier) InTx(ctx context.Context, fn func(q Querier) error) error {
	return fn(t)
}

////////////////////////////////////////////////////////////////////////////////

func queryAll(ctx context.Context, r runner, query string, args []any) ([]Record, error) {
	rows, err := r.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		records = append(records, normalize(row))
	}
	return records, rows.Err()
}

func queryOne(ctx context.Context, r runner, query string, args []any) (Record, error) {
	row := make(map[string]any)
	if err := r.QueryRowxContext(ctx, query, args...).MapScan(row); err != nil {
		return nil, classify(err)
	}
	return normalize(row), nil
}

////////////////////////////////////////////////////////////////////////////////

type connKey struct{}

// WithConn returns a copy of ctx carrying conn.
func WithConn(ctx context.Context, conn *Conn) context.Context {
	return context.WithValue(ctx, connKey{}, conn)
}

// ConnFrom returns the request's connection, if the middleware attached one.
func ConnFrom(ctx context.Context) (*Conn, bool) {
	conn, ok := ctx.Value(connKey{}).(*Conn)
	return conn, ok
}

// Middleware gives every request its own connection and releases it when the
// handler returns, panics included.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.Acquire(r.Context())
		if err != nil {
			log.WithError(err).Error("storage unavailable")
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		defer conn.Release()

		next.ServeHTTP(w, r.WithContext(WithConn(r.Context(), conn)))
	})
}
