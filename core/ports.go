package core

import (
	"context"

	"shareboard/domain"
)

// UserStore persists accounts. Lookups return (nil, nil) when no row matches.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Save inserts the user and assigns its ID.
	Save(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id int64) error
}

// BoardStore persists boards.
type BoardStore interface {
	FindByID(ctx context.Context, id int64) (*domain.Board, error)
	FindByOwner(ctx context.Context, ownerID int64) ([]domain.Board, error)
	FindByOwnerAndTitle(ctx context.Context, ownerID int64, title domain.BoardTitle) (*domain.Board, error)
	Save(ctx context.Context, b *domain.Board) error
	Update(ctx context.Context, b *domain.Board) error
	Delete(ctx context.Context, id int64) error
}

// TaskStore persists tasks and the share relations hanging off them.
type TaskStore interface {
	FindByID(ctx context.Context, id int64) (*domain.Task, error)
	FindAllByBoard(ctx context.Context, boardID int64) ([]domain.Task, error)
	FindAllByAuthor(ctx context.Context, authorID int64) ([]domain.Task, error)
	// FindAllSharedWith returns every task shared to the recipient together
	// with the share row it was loaded through.
	FindAllSharedWith(ctx context.Context, recipientID int64) ([]domain.SharedTask, error)
	Save(ctx context.Context, t *domain.Task) error
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id int64) error

	// AddShare upserts on (task, recipient): re-sharing the same pair updates
	// the destination and position instead of inserting a second row.
	AddShare(ctx context.Context, sh domain.Share) error
	UpdateSharePosition(ctx context.Context, taskID, recipientID int64, position int) error
	RemoveShare(ctx context.Context, taskID, recipientID int64) error
	FindShare(ctx context.Context, taskID, recipientID int64) (*domain.Share, error)
	SharesByTask(ctx context.Context, taskID int64) ([]domain.Share, error)
	SharesByDestination(ctx context.Context, boardID int64) ([]domain.Share, error)
}

// Ports bundles the three persistence capabilities the core depends on.
type Ports struct {
	Users  UserStore
	Boards BoardStore
	Tasks  TaskStore
}

// Transactor runs fn against a transactional view of the ports. Every write
// issued through the ports passed to fn commits atomically when fn returns
// nil and rolls back otherwise.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(p Ports) error) error
}

// ViewCache caches a user's merged board views between mutations.
type ViewCache interface {
	Get(ctx context.Context, userID int64) ([]BoardView, bool)
	Set(ctx context.Context, userID int64, views []BoardView)
	Invalidate(ctx context.Context, userIDs ...int64)
}
