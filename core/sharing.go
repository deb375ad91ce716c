package core

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"shareboard/domain"
)

// ShareTask shares a task the acting user authored with another user,
// targeting the recipient's board of the given title. The destination board
// must already exist; it is never created implicitly. Sharing an identical
// active pair again is an idempotent no-op; re-sharing towards a different
// board updates the recorded destination instead of duplicating the share.
func (s *Service) ShareTask(ctx context.Context, userID, taskID int64, recipientUsername string, dest domain.BoardTitle) (*domain.Share, error) {
	task, err := s.ports.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %d", domain.ErrNotFound, taskID)
	}
	if task.AuthorID != userID {
		return nil, fmt.Errorf("%w: only the author may share a task", domain.ErrPermissionDenied)
	}
	recipient, err := s.ports.Users.FindByUsername(ctx, recipientUsername)
	if err != nil {
		return nil, fmt.Errorf("load recipient: %w", err)
	}
	if recipient == nil {
		return nil, fmt.Errorf("%w: user %q", domain.ErrNotFound, recipientUsername)
	}
	if recipient.ID == userID {
		return nil, fmt.Errorf("%w: cannot share a task with its author", domain.ErrInvalidReference)
	}
	destBoard, err := s.ports.Boards.FindByOwnerAndTitle(ctx, recipient.ID, dest)
	if err != nil {
		return nil, fmt.Errorf("load destination board: %w", err)
	}
	if destBoard == nil {
		return nil, fmt.Errorf("%w: user %q has no %q board", domain.ErrNotFound, recipientUsername, dest)
	}

	var share *domain.Share
	err = s.tx.InTransaction(ctx, func(p Ports) error {
		existing, err := p.Tasks.FindShare(ctx, taskID, recipient.ID)
		if err != nil {
			return fmt.Errorf("load share: %w", err)
		}
		if existing != nil && existing.DestinationBoardID != nil && *existing.DestinationBoardID == destBoard.ID {
			share = existing
			return nil
		}
		entries, err := boardEntries(ctx, p, destBoard)
		if err != nil {
			return err
		}
		sh := domain.Share{
			TaskID:             taskID,
			RecipientID:        recipient.ID,
			DestinationBoardID: &destBoard.ID,
			Position:           len(entries),
		}
		if err := p.Tasks.AddShare(ctx, sh); err != nil {
			return &domain.InconsistencyError{Op: "share task", Err: err}
		}
		if existing != nil && existing.DestinationBoardID != nil {
			if err := s.renumberBoardID(ctx, p, *existing.DestinationBoardID); err != nil {
				return err
			}
		}
		share = &sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID, recipient.ID)
	s.logger.WithFields(log.Fields{
		"task":      taskID,
		"recipient": recipient.ID,
		"board":     destBoard.ID,
	}).Info("task shared")
	return share, nil
}

// RevokeShare withdraws a share the acting user authored. The task vanishes
// only from that recipient's view; the author's copy and every other
// recipient stay untouched.
func (s *Service) RevokeShare(ctx context.Context, userID, taskID int64, recipientUsername string) error {
	task, err := s.ports.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("%w: task %d", domain.ErrNotFound, taskID)
	}
	if task.AuthorID != userID {
		return fmt.Errorf("%w: only the author may revoke a share", domain.ErrPermissionDenied)
	}
	recipient, err := s.ports.Users.FindByUsername(ctx, recipientUsername)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	if recipient == nil {
		return fmt.Errorf("%w: user %q", domain.ErrNotFound, recipientUsername)
	}
	if err := s.removeShare(ctx, taskID, recipient.ID); err != nil {
		return err
	}
	s.invalidate(ctx, userID, recipient.ID)
	return nil
}

// RemoveMyShare lets a recipient drop an inbound share from their own view.
// It is the recipient-side counterpart of RevokeShare and never touches the
// author's copy.
func (s *Service) RemoveMyShare(ctx context.Context, userID, taskID int64) error {
	if err := s.removeShare(ctx, taskID, userID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// removeShare deletes the (task, recipient) share row and closes the
// position gap in the recipient's destination board.
func (s *Service) removeShare(ctx context.Context, taskID, recipientID int64) error {
	return s.tx.InTransaction(ctx, func(p Ports) error {
		share, err := p.Tasks.FindShare(ctx, taskID, recipientID)
		if err != nil {
			return fmt.Errorf("load share: %w", err)
		}
		if share == nil {
			return fmt.Errorf("%w: task %d is not shared with user %d", domain.ErrNotFound, taskID, recipientID)
		}
		if err := p.Tasks.RemoveShare(ctx, taskID, recipientID); err != nil {
			return &domain.InconsistencyError{Op: "revoke share", Err: err}
		}
		if share.DestinationBoardID != nil {
			return s.renumberBoardID(ctx, p, *share.DestinationBoardID)
		}
		return nil
	})
}

// ShareRecipients lists the users the task is currently shared with. Only
// holders of the task may ask.
func (s *Service) ShareRecipients(ctx context.Context, userID, taskID int64) ([]domain.User, error) {
	task, err := s.ports.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %d", domain.ErrNotFound, taskID)
	}
	if task.AuthorID != userID {
		if share, err := s.ports.Tasks.FindShare(ctx, taskID, userID); err != nil {
			return nil, fmt.Errorf("load share: %w", err)
		} else if share == nil {
			return nil, fmt.Errorf("%w: task %d is not held by user %d", domain.ErrPermissionDenied, taskID, userID)
		}
	}
	shares, err := s.ports.Tasks.SharesByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	users := make([]domain.User, 0, len(shares))
	for _, sh := range shares {
		u, err := s.ports.Users.FindByID(ctx, sh.RecipientID)
		if err != nil {
			return nil, fmt.Errorf("load user %d: %w", sh.RecipientID, err)
		}
		if u != nil {
			users = append(users, *u)
		}
	}
	return users, nil
}
