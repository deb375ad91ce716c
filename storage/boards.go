package storage

import (
	"context"
	"database/sql"
	"errors"

	"shareboard/domain"
)

type boardStore struct {
	q querier
}

const boardColumns = `id, owner_id, title, description`

func (s boardStore) FindByID(ctx context.Context, id int64) (*domain.Board, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+boardColumns+` FROM boards WHERE id = $1`, id)
	return scanBoard(row)
}

func (s boardStore) FindByOwner(ctx context.Context, ownerID int64) ([]domain.Board, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+boardColumns+` FROM boards WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, persistenceError("query boards", err)
	}
	defer rows.Close()
	var out []domain.Board
	for rows.Next() {
		var b domain.Board
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Description); err != nil {
			return nil, persistenceError("scan board", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s boardStore) FindByOwnerAndTitle(ctx context.Context, ownerID int64, title domain.BoardTitle) (*domain.Board, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+boardColumns+` FROM boards WHERE owner_id = $1 AND title = $2`, ownerID, string(title))
	return scanBoard(row)
}

func scanBoard(row *sql.Row) (*domain.Board, error) {
	var b domain.Board
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, persistenceError("scan board", err)
	}
	return &b, nil
}

func (s boardStore) Save(ctx context.Context, b *domain.Board) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO boards (owner_id, title, description) VALUES ($1, $2, $3) RETURNING id`,
		b.OwnerID, string(b.Title), b.Description).Scan(&b.ID)
	if err != nil {
		return persistenceError("insert board", err)
	}
	return nil
}

func (s boardStore) Update(ctx context.Context, b *domain.Board) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE boards SET title = $2, description = $3 WHERE id = $1`,
		b.ID, string(b.Title), b.Description)
	if err != nil {
		return persistenceError("update board", err)
	}
	return nil
}

func (s boardStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM boards WHERE id = $1`, id); err != nil {
		return persistenceError("delete board", err)
	}
	return nil
}
