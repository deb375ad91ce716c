package core

import (
	"context"
	"fmt"

	"shareboard/domain"
)

// renumber rewrites the entries' holder-local positions to the contiguous
// sequence 0..N-1, persisting every row whose stored position changed.
// Authored rows write the task position, shared rows the share position. A
// failure partway is reported as an InconsistencyError; run inside a
// transaction it rolls the earlier writes back.
func renumber(ctx context.Context, p Ports, op string, entries []viewEntry) error {
	for i := range entries {
		e := &entries[i]
		if e.share != nil {
			if e.share.Position == i {
				continue
			}
			e.share.Position = i
			if err := p.Tasks.UpdateSharePosition(ctx, e.share.TaskID, e.share.RecipientID, i); err != nil {
				return &domain.InconsistencyError{Op: op, Err: err}
			}
			continue
		}
		if e.task.Position == i {
			continue
		}
		e.task.Position = i
		if err := p.Tasks.Update(ctx, &e.task); err != nil {
			return &domain.InconsistencyError{Op: op, Err: err}
		}
	}
	return nil
}

// entryIndex locates the entry holding the task, or -1.
func entryIndex(entries []viewEntry, taskID int64) int {
	for i := range entries {
		if entries[i].task.ID == taskID {
			return i
		}
	}
	return -1
}

// moveEntry lifts the entry at from and reinserts it at to, shifting the
// rest. Bounds are the caller's responsibility.
func moveEntry(entries []viewEntry, from, to int) []viewEntry {
	e := entries[from]
	entries = append(entries[:from], entries[from+1:]...)
	entries = append(entries, viewEntry{})
	copy(entries[to+1:], entries[to:])
	entries[to] = e
	return entries
}

// ReorderTask moves a task to the requested index inside the acting user's
// own board view and renumbers that board. The target must lie in
// [0, size-1]; out-of-range requests fail without effect. Other holders'
// boards are untouched since positions are holder-local.
func (s *Service) ReorderTask(ctx context.Context, userID, taskID int64, newPos int) error {
	board, err := s.holderBoard(ctx, userID, taskID)
	if err != nil {
		return err
	}
	err = s.tx.InTransaction(ctx, func(p Ports) error {
		entries, err := boardEntries(ctx, p, board)
		if err != nil {
			return err
		}
		from := entryIndex(entries, taskID)
		if from < 0 {
			return fmt.Errorf("%w: task %d not in board %q", domain.ErrNotFound, taskID, board.Title)
		}
		if newPos < 0 || newPos >= len(entries) {
			return fmt.Errorf("%w: position %d out of range [0,%d]", domain.ErrInvalidReference, newPos, len(entries)-1)
		}
		entries = moveEntry(entries, from, newPos)
		return renumber(ctx, p, "reorder", entries)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// holderBoard resolves the board in which the acting user holds the task:
// the owning board for the author, the recorded share destination for a
// recipient.
func (s *Service) holderBoard(ctx context.Context, userID, taskID int64) (*domain.Board, error) {
	task, err := s.ports.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %d", domain.ErrNotFound, taskID)
	}
	if task.AuthorID == userID {
		if task.BoardID == nil {
			return nil, fmt.Errorf("%w: task %d has no board", domain.ErrNotFound, taskID)
		}
		board, err := s.ports.Boards.FindByID(ctx, *task.BoardID)
		if err != nil {
			return nil, fmt.Errorf("load board: %w", err)
		}
		if board == nil {
			return nil, fmt.Errorf("%w: board %d", domain.ErrNotFound, *task.BoardID)
		}
		return board, nil
	}
	share, err := s.ports.Tasks.FindShare(ctx, taskID, userID)
	if err != nil {
		return nil, fmt.Errorf("load share: %w", err)
	}
	if share == nil || share.DestinationBoardID == nil {
		return nil, fmt.Errorf("%w: task %d is not held by user %d", domain.ErrNotFound, taskID, userID)
	}
	board, err := s.ports.Boards.FindByID(ctx, *share.DestinationBoardID)
	if err != nil {
		return nil, fmt.Errorf("load destination board: %w", err)
	}
	if board == nil {
		return nil, fmt.Errorf("%w: board %d", domain.ErrNotFound, *share.DestinationBoardID)
	}
	return board, nil
}
