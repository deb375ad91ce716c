package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shareboard/domain"
)

type taskStore struct {
	q querier
}

const taskColumns = `id, board_id, author_id, title, description, url, image, due, created, color, state, pos`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var boardID sql.NullInt64
	var due sql.NullTime
	err := row.Scan(&t.ID, &boardID, &t.AuthorID, &t.Title, &t.Description, &t.URL,
		&t.Image, &due, &t.Created, &t.Color, &t.State, &t.Position)
	if err != nil {
		return nil, err
	}
	if boardID.Valid {
		t.BoardID = &boardID.Int64
	}
	if due.Valid {
		d := due.Time
		t.Due = &d
	}
	return &t, nil
}

func (s taskStore) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("scan task", err)
	}
	return t, nil
}

func (s taskStore) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceError("query tasks", err)
	}
	defer rows.Close()
	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, persistenceError("scan task", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s taskStore) FindAllByBoard(ctx context.Context, boardID int64) ([]domain.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE board_id = $1 ORDER BY pos, id`, boardID)
}

func (s taskStore) FindAllByAuthor(ctx context.Context, authorID int64) ([]domain.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE author_id = $1 ORDER BY id`, authorID)
}

func (s taskStore) FindAllSharedWith(ctx context.Context, recipientID int64) ([]domain.SharedTask, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT t.id, t.board_id, t.author_id, t.title, t.description, t.url, t.image,
		        t.due, t.created, t.color, t.state, t.pos,
		        s.task_id, s.recipient_id, s.destination_board_id, s.pos
		   FROM shares s JOIN tasks t ON t.id = s.task_id
		  WHERE s.recipient_id = $1
		  ORDER BY t.id`, recipientID)
	if err != nil {
		return nil, persistenceError("query shared tasks", err)
	}
	defer rows.Close()
	var out []domain.SharedTask
	for rows.Next() {
		var st domain.SharedTask
		var boardID, destID sql.NullInt64
		var due sql.NullTime
		err := rows.Scan(&st.Task.ID, &boardID, &st.Task.AuthorID, &st.Task.Title,
			&st.Task.Description, &st.Task.URL, &st.Task.Image, &due, &st.Task.Created,
			&st.Task.Color, &st.Task.State, &st.Task.Position,
			&st.Share.TaskID, &st.Share.RecipientID, &destID, &st.Share.Position)
		if err != nil {
			return nil, persistenceError("scan shared task", err)
		}
		if boardID.Valid {
			st.Task.BoardID = &boardID.Int64
		}
		if destID.Valid {
			st.Share.DestinationBoardID = &destID.Int64
		}
		if due.Valid {
			d := due.Time
			st.Task.Due = &d
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s taskStore) Save(ctx context.Context, t *domain.Task) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO tasks (board_id, author_id, title, description, url, image, due, created, color, state, pos)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		t.BoardID, t.AuthorID, t.Title, t.Description, t.URL, t.Image, t.Due,
		t.Created, t.Color, string(t.State), t.Position).Scan(&t.ID)
	if err != nil {
		return persistenceError("insert task", err)
	}
	return nil
}

func (s taskStore) Update(ctx context.Context, t *domain.Task) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE tasks SET board_id = $2, title = $3, description = $4, url = $5,
		        image = $6, due = $7, color = $8, state = $9, pos = $10
		  WHERE id = $1`,
		t.ID, t.BoardID, t.Title, t.Description, t.URL, t.Image, t.Due,
		t.Color, string(t.State), t.Position)
	if err != nil {
		return persistenceError("update task", err)
	}
	return nil
}

func (s taskStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return persistenceError("delete task", err)
	}
	return nil
}

func (s taskStore) AddShare(ctx context.Context, sh domain.Share) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO shares (task_id, recipient_id, destination_board_id, pos)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (task_id, recipient_id)
		 DO UPDATE SET destination_board_id = EXCLUDED.destination_board_id, pos = EXCLUDED.pos`,
		sh.TaskID, sh.RecipientID, sh.DestinationBoardID, sh.Position)
	if err != nil {
		return persistenceError("upsert share", err)
	}
	return nil
}

func (s taskStore) UpdateSharePosition(ctx context.Context, taskID, recipientID int64, position int) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE shares SET pos = $3 WHERE task_id = $1 AND recipient_id = $2`,
		taskID, recipientID, position)
	if err != nil {
		return persistenceError("update share position", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("share (%d, %d) not found", taskID, recipientID)
	}
	return nil
}

func (s taskStore) RemoveShare(ctx context.Context, taskID, recipientID int64) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM shares WHERE task_id = $1 AND recipient_id = $2`, taskID, recipientID)
	if err != nil {
		return persistenceError("delete share", err)
	}
	return nil
}

func (s taskStore) FindShare(ctx context.Context, taskID, recipientID int64) (*domain.Share, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT task_id, recipient_id, destination_board_id, pos
		   FROM shares WHERE task_id = $1 AND recipient_id = $2`, taskID, recipientID)
	sh, err := scanShare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("scan share", err)
	}
	return sh, nil
}

func scanShare(row rowScanner) (*domain.Share, error) {
	var sh domain.Share
	var destID sql.NullInt64
	if err := row.Scan(&sh.TaskID, &sh.RecipientID, &destID, &sh.Position); err != nil {
		return nil, err
	}
	if destID.Valid {
		sh.DestinationBoardID = &destID.Int64
	}
	return &sh, nil
}

func (s taskStore) queryShares(ctx context.Context, query string, args ...any) ([]domain.Share, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceError("query shares", err)
	}
	defer rows.Close()
	var out []domain.Share
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, persistenceError("scan share", err)
		}
		out = append(out, *sh)
	}
	return out, rows.Err()
}

func (s taskStore) SharesByTask(ctx context.Context, taskID int64) ([]domain.Share, error) {
	return s.queryShares(ctx,
		`SELECT task_id, recipient_id, destination_board_id, pos
		   FROM shares WHERE task_id = $1 ORDER BY recipient_id`, taskID)
}

func (s taskStore) SharesByDestination(ctx context.Context, boardID int64) ([]domain.Share, error) {
	return s.queryShares(ctx,
		`SELECT task_id, recipient_id, destination_board_id, pos
		   FROM shares WHERE destination_board_id = $1 ORDER BY pos, task_id`, boardID)
}
