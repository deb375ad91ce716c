package storage

import (
	"context"
	"database/sql"
	"errors"

	"shareboard/domain"
)

type userStore struct {
	q querier
}

func (s userStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s userStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, persistenceError("scan user", err)
	}
	return &u, nil
}

func (s userStore) Save(ctx context.Context, u *domain.User) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		u.Username, u.PasswordHash).Scan(&u.ID)
	if err != nil {
		return persistenceError("insert user", err)
	}
	return nil
}

func (s userStore) Update(ctx context.Context, u *domain.User) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE users SET username = $2, password_hash = $3 WHERE id = $1`,
		u.ID, u.Username, u.PasswordHash)
	if err != nil {
		return persistenceError("update user", err)
	}
	return nil
}

func (s userStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return persistenceError("delete user", err)
	}
	return nil
}
