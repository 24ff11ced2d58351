package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements repository.Store on a pgx pool. Every lookup is a point
// query; the only multi-record write path is Commit, which runs in a single
// transaction.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
