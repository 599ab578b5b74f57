package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// queries implements store.Repository on top of a queryer. Queries are
// written with ? placeholders and rebound for the active driver.
type queries struct {
	q queryer
}

func (r *queries) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return r.q.GetContext(ctx, dest, r.q.Rebind(query), args...)
}

func (r *queries) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return r.q.SelectContext(ctx, dest, r.q.Rebind(query), args...)
}

func (r *queries) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.q.Rebind(query), args...)
}

// execAffected runs a statement and returns the number of rows it touched.
func (r *queries) execAffected(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := r.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unable to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
