package todo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const columns = `id, title, completed`

type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Get returns the todo with id. found is false when no row matches.
func (s *Store) Get(ctx context.Context, id int32) (t Todo, found bool, err error) {
	row := s.db.QueryRow(ctx, `select `+columns+` from todo where id=$1`, id)
	return scanOptional("get", row)
}

// List returns every todo ordered by id.
func (s *Store) List(ctx context.Context) ([]Todo, error) {
	rows, err := s.db.Query(ctx, `select `+columns+` from todo order by id asc`)
	if err != nil {
		return nil, storageErr("list", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Todo])
	if err != nil {
		return nil, storageErr("list", err)
	}
	if out == nil {
		out = []Todo{}
	}
	return out, nil
}

// Create inserts a todo and returns it with its generated id.
func (s *Store) Create(ctx context.Context, in NewTodo) (Todo, error) {
	var t Todo
	err := s.db.QueryRow(ctx,
		`insert into todo(title, completed) values($1,$2) returning `+columns,
		in.Title, in.Completed,
	).Scan(&t.ID, &t.Title, &t.Completed)
	if err != nil {
		return Todo{}, storageErr("create", err)
	}
	return t, nil
}

// Complete marks the todo as completed. Completing an already completed todo
// returns it unchanged. found is false when no row matches.
func (s *Store) Complete(ctx context.Context, id int32) (t Todo, found bool, err error) {
	row := s.db.QueryRow(ctx, `update todo set completed=true where id=$1 returning `+columns, id)
	return scanOptional("complete", row)
}

func scanOptional(op string, row pgx.Row) (Todo, bool, error) {
	var t Todo
	if err := row.Scan(&t.ID, &t.Title, &t.Completed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Todo{}, false, nil
		}
		return Todo{}, false, storageErr(op, err)
	}
	return t, true, nil
}
