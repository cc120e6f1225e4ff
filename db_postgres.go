package main

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

type PostgresDB struct {
	*sqlStore
	dsn string
}

func NewPostgresDB(ctx context.Context, dsn string) (*PostgresDB, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := &PostgresDB{sqlStore: newSQLStore(d, sq.Dollar, isPgUniqueViolation), dsn: dsn}
	if err := p.Init(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

// Init relies on migrations to create tables; it only verifies connectivity.
func (p *PostgresDB) Init(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func isPgUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
