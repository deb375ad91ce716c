package core

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"shareboard/domain"
)

// Register creates a new account and its starter Academic board.
func (s *Service) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidReference)
	}
	user := &domain.User{Username: username}
	if err := user.SetPassword(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	err := s.tx.InTransaction(ctx, func(p Ports) error {
		existing, err := p.Users.FindByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: user %q", domain.ErrAlreadyExists, username)
		}
		if err := p.Users.Save(ctx, user); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		starter := &domain.Board{
			OwnerID:     user.ID,
			Title:       domain.TitleAcademic,
			Description: "Your first board",
		}
		if err := p.Boards.Save(ctx, starter); err != nil {
			return fmt.Errorf("save starter board: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(log.Fields{"user": user.ID, "username": username}).Info("user registered")
	return user, nil
}

// Authenticate verifies a username/password pair and returns the account.
// Unknown users and wrong passwords report the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.ports.Users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil || !user.CheckPassword(password) {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrPermissionDenied)
	}
	return user, nil
}

// DeleteAccount destroys the acting user's account: authored tasks are
// hard-deleted with their shares revoked, inbound shares are dropped, boards
// are removed, and finally the user row itself.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	affected := []int64{userID}
	err := s.tx.InTransaction(ctx, func(p Ports) error {
		authored, err := p.Tasks.FindAllByAuthor(ctx, userID)
		if err != nil {
			return fmt.Errorf("load authored tasks: %w", err)
		}
		destBoards := make(map[int64]struct{})
		for i := range authored {
			shares, err := p.Tasks.SharesByTask(ctx, authored[i].ID)
			if err != nil {
				return fmt.Errorf("list shares: %w", err)
			}
			for _, sh := range shares {
				affected = append(affected, sh.RecipientID)
				if sh.DestinationBoardID != nil {
					destBoards[*sh.DestinationBoardID] = struct{}{}
				}
				if err := p.Tasks.RemoveShare(ctx, sh.TaskID, sh.RecipientID); err != nil {
					return &domain.InconsistencyError{Op: "delete account", Err: err}
				}
			}
			if err := p.Tasks.Delete(ctx, authored[i].ID); err != nil {
				return &domain.InconsistencyError{Op: "delete account", Err: err}
			}
		}
		inbound, err := p.Tasks.FindAllSharedWith(ctx, userID)
		if err != nil {
			return fmt.Errorf("load inbound shares: %w", err)
		}
		for i := range inbound {
			if err := p.Tasks.RemoveShare(ctx, inbound[i].Share.TaskID, userID); err != nil {
				return &domain.InconsistencyError{Op: "delete account", Err: err}
			}
		}
		boards, err := p.Boards.FindByOwner(ctx, userID)
		if err != nil {
			return fmt.Errorf("load boards: %w", err)
		}
		for i := range boards {
			if err := p.Boards.Delete(ctx, boards[i].ID); err != nil {
				return &domain.InconsistencyError{Op: "delete account", Err: err}
			}
		}
		for boardID := range destBoards {
			if err := s.renumberBoardID(ctx, p, boardID); err != nil {
				return err
			}
		}
		if err := p.Users.Delete(ctx, userID); err != nil {
			return &domain.InconsistencyError{Op: "delete account", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, affected...)
	s.logger.WithFields(log.Fields{"user": userID}).Info("account deleted")
	return nil
}

// User returns an account by id.
func (s *Service) User(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.ports.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}
	return user, nil
}
