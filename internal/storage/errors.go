package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNoRecord is returned by QueryOne when no row matches.
	ErrNoRecord = errors.New("storage: no record")
	// ErrUnique marks a unique or primary key constraint violation.
	ErrUnique = errors.New("storage: unique constraint violated")
	// ErrForeignKey marks a foreign key constraint violation.
	ErrForeignKey = errors.New("storage: foreign key constraint violated")
)

// classify maps driver specific failures onto the sentinels above, keeping
// the driver error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRecord
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %w", ErrUnique, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %w", ErrForeignKey, err)
		}
		return err
	}

	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case "23505":
			return fmt.Errorf("%w: %w", ErrUnique, err)
		case "23503":
			return fmt.Errorf("%w: %w", ErrForeignKey, err)
		}
	}
	return err
}
