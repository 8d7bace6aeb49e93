// Package storage is the relational store accessor: it opens the database,
// hands out request-scoped connections and runs parameterized statements
// that come back as name-keyed records.
package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

////////////////////////////////////////////////////////////////////////////////

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

type Config struct {
	Type string `mapstructure:"type"` // "sqlite" or "postgres"
	Path string `mapstructure:"path"` // For SQLite
	DSN  string `mapstructure:"dsn"`  // For PostgreSQL
}

// Store owns the connection pool. Request code never touches the pool
// directly; it acquires a Conn and releases it when the request ends.
type Store struct {
	db   *sqlx.DB
	kind string
}

////////////////////////////////////////////////////////////////////////////////

func Open(ctx context.Context, cfg Config) (*Store, error) {
	logger := log.WithFields(log.Fields{
		"caller": "storage.Open",
		"type":   cfg.Type,
	})

	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Type {
	case TypeSQLite, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("SQLite database path is required")
		}
		logger.WithField("path", cfg.Path).Info("Connecting to SQLite database")
		db, err = sqlx.ConnectContext(ctx, "sqlite3", sqliteDSN(cfg.Path))
		cfg.Type = TypeSQLite
	case TypePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("PostgreSQL DSN is required")
		}
		logger.Info("Connecting to PostgreSQL database")
		db, err = sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
	}

	return &Store{db: db, kind: cfg.Type}, nil
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
}

// Type reports which backend the store talks to.
func (s *Store) Type() string { return s.kind }

func (s *Store) Close() error {
	return s.db.Close()
}

// Acquire reserves one connection for the caller's scope. The caller must
// Release it on every exit path.
func (s *Store) Acquire(ctx context.Context) (*Conn, error) {
	c, err := s.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Conn{conn: c, bind: sqlx.BindType(s.db.DriverName())}, nil
}

// InitSchema creates the tables if they do not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := SchemaSQLite
	if s.kind == TypePostgres {
		schema = SchemaPostgres
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	log.WithField("type", s.kind).Info("Schema initialized")
	return nil
}
