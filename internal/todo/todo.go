// Package todo persists todo items in Postgres.
package todo

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type Todo struct {
	ID        int32  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// NewTodo is the input to Create.
type NewTodo struct {
	Title     string
	Completed bool
}

// DB is the part of *pgxpool.Pool the store uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
