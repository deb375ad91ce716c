package core

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"shareboard/domain"
)

// Boards lists the acting user's boards.
func (s *Service) Boards(ctx context.Context, userID int64) ([]domain.Board, error) {
	boards, err := s.ports.Boards.FindByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	return boards, nil
}

// CreateBoard adds a board with the given canonical title for the acting
// user. One board per title, at most cfg.MaxBoards overall.
func (s *Service) CreateBoard(ctx context.Context, userID int64, title domain.BoardTitle, description string) (*domain.Board, error) {
	boards, err := s.ports.Boards.FindByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	if len(boards) >= s.cfg.MaxBoards {
		return nil, fmt.Errorf("%w: at most %d boards per user", domain.ErrCapacityExceeded, s.cfg.MaxBoards)
	}
	for i := range boards {
		if boards[i].Title == title {
			return nil, fmt.Errorf("%w: board %q", domain.ErrAlreadyExists, title)
		}
	}
	board := &domain.Board{OwnerID: userID, Title: title, Description: description}
	if err := s.ports.Boards.Save(ctx, board); err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}
	s.invalidate(ctx, userID)
	s.logger.WithFields(log.Fields{"board": board.ID, "title": title, "user": userID}).Info("board created")
	return board, nil
}

// UpdateBoardDescription changes a board's free-text description. An
// unchanged description succeeds without a write.
func (s *Service) UpdateBoardDescription(ctx context.Context, userID int64, title domain.BoardTitle, description string) error {
	board, err := s.ports.Boards.FindByOwnerAndTitle(ctx, userID, title)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	if board == nil {
		return fmt.Errorf("%w: board %q", domain.ErrNotFound, title)
	}
	if board.Description == description {
		return nil
	}
	board.Description = description
	if err := s.ports.Boards.Update(ctx, board); err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// DeleteBoard removes one of the acting user's boards. Authored tasks inside
// it that nobody else holds are deleted with it; tasks with active shares
// are detached from the board instead so recipients keep them through their
// recorded destinations. Inbound shares destined to the board are dropped
// with it so no share row is left pointing at a board that no longer exists.
func (s *Service) DeleteBoard(ctx context.Context, userID int64, title domain.BoardTitle) error {
	board, err := s.ports.Boards.FindByOwnerAndTitle(ctx, userID, title)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	if board == nil {
		return fmt.Errorf("%w: board %q", domain.ErrNotFound, title)
	}
	affected := []int64{userID}
	err = s.tx.InTransaction(ctx, func(p Ports) error {
		tasks, err := p.Tasks.FindAllByBoard(ctx, board.ID)
		if err != nil {
			return fmt.Errorf("load board tasks: %w", err)
		}
		for i := range tasks {
			t := &tasks[i]
			shares, err := p.Tasks.SharesByTask(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("list shares: %w", err)
			}
			if len(shares) == 0 {
				if err := p.Tasks.Delete(ctx, t.ID); err != nil {
					return &domain.InconsistencyError{Op: "delete board", Err: err}
				}
				continue
			}
			for _, sh := range shares {
				affected = append(affected, sh.RecipientID)
			}
			t.BoardID = nil
			if err := p.Tasks.Update(ctx, t); err != nil {
				return &domain.InconsistencyError{Op: "delete board", Err: err}
			}
		}
		inbound, err := p.Tasks.SharesByDestination(ctx, board.ID)
		if err != nil {
			return fmt.Errorf("list inbound shares: %w", err)
		}
		for _, sh := range inbound {
			if err := p.Tasks.RemoveShare(ctx, sh.TaskID, sh.RecipientID); err != nil {
				return &domain.InconsistencyError{Op: "delete board", Err: err}
			}
		}
		if err := p.Boards.Delete(ctx, board.ID); err != nil {
			return &domain.InconsistencyError{Op: "delete board", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, affected...)
	s.logger.WithFields(log.Fields{"board": board.ID, "title": title, "user": userID}).Info("board deleted")
	return nil
}

// AvailableTitles returns the canonical titles the acting user could still
// create a board under. Empty once the board cap is reached.
func (s *Service) AvailableTitles(ctx context.Context, userID int64) ([]domain.BoardTitle, error) {
	boards, err := s.ports.Boards.FindByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	if len(boards) >= s.cfg.MaxBoards {
		return nil, nil
	}
	taken := make(map[domain.BoardTitle]bool, len(boards))
	for i := range boards {
		taken[boards[i].Title] = true
	}
	var free []domain.BoardTitle
	for _, t := range domain.BoardTitles() {
		if !taken[t] {
			free = append(free, t)
		}
	}
	return free, nil
}

// BoardTitlesByUsername lists another user's board titles, as offered to the
// author when picking a share destination.
func (s *Service) BoardTitlesByUsername(ctx context.Context, username string) ([]domain.BoardTitle, error) {
	user, err := s.ports.Users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", domain.ErrNotFound, username)
	}
	boards, err := s.ports.Boards.FindByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	titles := make([]domain.BoardTitle, 0, len(boards))
	for i := range boards {
		titles = append(titles, boards[i].Title)
	}
	return titles, nil
}
