package core

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"shareboard/domain"
)

// TaskDraft carries the author-supplied fields of a new task.
type TaskDraft struct {
	Title       string
	Description string
	URL         string
	Image       []byte
	Due         *time.Time
	Color       string
}

// CreateTask appends a new task to the end of the acting user's named board.
func (s *Service) CreateTask(ctx context.Context, userID int64, title domain.BoardTitle, draft TaskDraft) (*domain.Task, error) {
	if draft.Title == "" {
		return nil, fmt.Errorf("%w: task title is required", domain.ErrInvalidReference)
	}
	board, err := s.ports.Boards.FindByOwnerAndTitle(ctx, userID, title)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	if board == nil {
		return nil, fmt.Errorf("%w: board %q", domain.ErrNotFound, title)
	}
	task := &domain.Task{
		BoardID:     &board.ID,
		AuthorID:    userID,
		Title:       draft.Title,
		Description: draft.Description,
		URL:         draft.URL,
		Image:       draft.Image,
		Due:         draft.Due,
		Created:     time.Now().UTC(),
		Color:       draft.Color,
		State:       domain.StateNotCompleted,
	}
	err = s.tx.InTransaction(ctx, func(p Ports) error {
		entries, err := boardEntries(ctx, p, board)
		if err != nil {
			return err
		}
		task.Position = len(entries)
		return p.Tasks.Save(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	s.logger.WithFields(log.Fields{"task": task.ID, "board": board.ID, "user": userID}).Info("task created")
	return task, nil
}

// TaskUpdate carries requested field changes; nil pointers mean "leave as
// is". Image replaces the blob when non-nil, RemoveImage clears it.
type TaskUpdate struct {
	Title       *string
	Description *string
	Due         *time.Time
	Color       *string
	URL         *string
	Image       []byte
	RemoveImage bool
	State       *domain.TaskState
}

// UpdateTask applies the requested changes after consulting the permission
// table for the acting user's role. A request that changes nothing succeeds
// without a write; a content change attempted by a non-author is rejected
// with ErrPermissionDenied before anything is applied.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID int64, upd TaskUpdate) error {
	task, err := s.ports.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("%w: task %d", domain.ErrNotFound, taskID)
	}
	r := roleOf(userID, task)
	if r == roleRecipient {
		share, err := s.ports.Tasks.FindShare(ctx, taskID, userID)
		if err != nil {
			return fmt.Errorf("load share: %w", err)
		}
		if share == nil {
			return fmt.Errorf("%w: task %d is not held by user %d", domain.ErrPermissionDenied, taskID, userID)
		}
	}

	changed := false
	apply := func(f field, differs bool, set func()) error {
		if !differs {
			return nil
		}
		if !allowed(f, r) {
			return fmt.Errorf("%w: only the author may change %s", domain.ErrPermissionDenied, f)
		}
		set()
		changed = true
		return nil
	}

	steps := []func() error{
		func() error {
			return apply(fieldTitle, upd.Title != nil && *upd.Title != task.Title, func() { task.Title = *upd.Title })
		},
		func() error {
			return apply(fieldDescription, upd.Description != nil && *upd.Description != task.Description, func() { task.Description = *upd.Description })
		},
		func() error {
			differs := upd.Due != nil && (task.Due == nil || !task.Due.Equal(*upd.Due))
			return apply(fieldDue, differs, func() { due := *upd.Due; task.Due = &due })
		},
		func() error {
			return apply(fieldColor, upd.Color != nil && *upd.Color != task.Color, func() { task.Color = *upd.Color })
		},
		func() error {
			return apply(fieldURL, upd.URL != nil && *upd.URL != task.URL, func() { task.URL = *upd.URL })
		},
		func() error {
			if upd.RemoveImage {
				return apply(fieldImage, len(task.Image) > 0, func() { task.Image = nil })
			}
			return apply(fieldImage, upd.Image != nil, func() { task.Image = upd.Image })
		},
		func() error {
			return apply(fieldState, upd.State != nil && *upd.State != task.State, func() { task.State = *upd.State })
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	if !changed {
		return nil
	}
	if err := s.ports.Tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	s.invalidate(ctx, s.holderIDs(ctx, task)...)
	return nil
}

// holderIDs lists every user holding the task: the author plus all share
// recipients. Used for cache invalidation; share-list failures degrade to
// invalidating the author only.
func (s *Service) holderIDs(ctx context.Context, task *domain.Task) []int64 {
	ids := []int64{task.AuthorID}
	shares, err := s.ports.Tasks.SharesByTask(ctx, task.ID)
	if err != nil {
		s.logger.WithFields(log.Fields{"task": task.ID, "error": err}).Warn("listing share recipients for invalidation")
		return ids
	}
	for _, sh := range shares {
		ids = append(ids, sh.RecipientID)
	}
	return ids
}

// DeleteTask removes the task for the acting user. The author hard-deletes
// it everywhere, cascading share revocation and renumbering every affected
// board; a recipient merely revokes their own inbound share.
func (s *Service) DeleteTask(ctx context.Context, userID, taskID int64) error {
	task, err := s.ports.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("%w: task %d", domain.ErrNotFound, taskID)
	}
	if task.AuthorID != userID {
		return s.RemoveMyShare(ctx, userID, taskID)
	}

	holders := s.holderIDs(ctx, task)
	err = s.tx.InTransaction(ctx, func(p Ports) error {
		shares, err := p.Tasks.SharesByTask(ctx, taskID)
		if err != nil {
			return fmt.Errorf("list shares: %w", err)
		}
		for _, sh := range shares {
			if err := p.Tasks.RemoveShare(ctx, taskID, sh.RecipientID); err != nil {
				return &domain.InconsistencyError{Op: "delete task", Err: err}
			}
		}
		if err := p.Tasks.Delete(ctx, taskID); err != nil {
			return &domain.InconsistencyError{Op: "delete task", Err: err}
		}
		if task.BoardID != nil {
			if err := s.renumberBoardID(ctx, p, *task.BoardID); err != nil {
				return err
			}
		}
		for _, sh := range shares {
			if sh.DestinationBoardID == nil {
				continue
			}
			if err := s.renumberBoardID(ctx, p, *sh.DestinationBoardID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, holders...)
	s.logger.WithFields(log.Fields{"task": taskID, "user": userID}).Info("task deleted by author")
	return nil
}

// renumberBoardID reloads a board's merged entries and closes any position
// gap left by a removal. Missing boards are skipped.
func (s *Service) renumberBoardID(ctx context.Context, p Ports, boardID int64) error {
	board, err := p.Boards.FindByID(ctx, boardID)
	if err != nil {
		return fmt.Errorf("load board %d: %w", boardID, err)
	}
	if board == nil {
		return nil
	}
	entries, err := boardEntries(ctx, p, board)
	if err != nil {
		return err
	}
	return renumber(ctx, p, "renumber", entries)
}

// MoveTask relocates a task the acting user authored to the end of another
// of their boards and renumbers the origin. Moving to the board the task is
// already in succeeds without effect. Existing shares keep their recorded
// destinations and re-resolve on the recipients' next view load.
func (s *Service) MoveTask(ctx context.Context, userID, taskID int64, dest domain.BoardTitle) error {
	task, err := s.ports.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("%w: task %d", domain.ErrNotFound, taskID)
	}
	if task.AuthorID != userID {
		return fmt.Errorf("%w: only the author may move a task", domain.ErrPermissionDenied)
	}
	destBoard, err := s.ports.Boards.FindByOwnerAndTitle(ctx, userID, dest)
	if err != nil {
		return fmt.Errorf("load destination board: %w", err)
	}
	if destBoard == nil {
		return fmt.Errorf("%w: board %q", domain.ErrNotFound, dest)
	}
	if task.BoardID != nil && *task.BoardID == destBoard.ID {
		return nil
	}
	originID := task.BoardID
	err = s.tx.InTransaction(ctx, func(p Ports) error {
		entries, err := boardEntries(ctx, p, destBoard)
		if err != nil {
			return err
		}
		task.BoardID = &destBoard.ID
		task.Position = len(entries)
		if err := p.Tasks.Update(ctx, task); err != nil {
			return &domain.InconsistencyError{Op: "move task", Err: err}
		}
		if originID != nil {
			return s.renumberBoardID(ctx, p, *originID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}
