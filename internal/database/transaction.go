package database

import (
	"database/sql"
	"fmt"
)

// TxFunc is a function executed within a database transaction
type TxFunc func(tx *sql.Tx) error

// WithTransaction executes fn within a transaction.
// The transaction is committed when fn returns nil, and rolled back when
// fn returns an error or panics.
func WithTransaction(db *sql.DB, fn TxFunc) (err error) {
	if db == nil {
		return fmt.Errorf("cannot begin transaction: nil database")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("transaction rolled back after panic: %v", p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback failed: %v)", err, rbErr)
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
