package api

import (
	"context"
	"time"

	"shareboard/core"
	"shareboard/domain"
)

// Service abstracts the engine for handlers.
type Service interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	DeleteAccount(ctx context.Context, userID int64) error
	User(ctx context.Context, userID int64) (*domain.User, error)

	CreateBoard(ctx context.Context, userID int64, title domain.BoardTitle, description string) (*domain.Board, error)
	UpdateBoardDescription(ctx context.Context, userID int64, title domain.BoardTitle, description string) error
	DeleteBoard(ctx context.Context, userID int64, title domain.BoardTitle) error
	AvailableTitles(ctx context.Context, userID int64) ([]domain.BoardTitle, error)
	BoardTitlesByUsername(ctx context.Context, username string) ([]domain.BoardTitle, error)

	Views(ctx context.Context, userID int64) ([]core.BoardView, error)
	BoardTasks(ctx context.Context, userID int64, title domain.BoardTitle) (*core.BoardView, error)
	SearchTasks(ctx context.Context, userID int64, term string) ([]domain.Task, error)
	DueBefore(ctx context.Context, userID int64, deadline time.Time) ([]domain.Task, error)

	CreateTask(ctx context.Context, userID int64, title domain.BoardTitle, draft core.TaskDraft) (*domain.Task, error)
	UpdateTask(ctx context.Context, userID, taskID int64, upd core.TaskUpdate) error
	DeleteTask(ctx context.Context, userID, taskID int64) error
	MoveTask(ctx context.Context, userID, taskID int64, dest domain.BoardTitle) error
	ReorderTask(ctx context.Context, userID, taskID int64, newPos int) error

	ShareTask(ctx context.Context, userID, taskID int64, recipientUsername string, dest domain.BoardTitle) (*domain.Share, error)
	RevokeShare(ctx context.Context, userID, taskID int64, recipientUsername string) error
	RemoveMyShare(ctx context.Context, userID, taskID int64) error
	ShareRecipients(ctx context.Context, userID, taskID int64) ([]domain.User, error)
}

// Sessions issues and validates the tokens the API authenticates with.
type Sessions interface {
	IssueToken(userID int64) (string, error)
	UserIDFromAuthHeader(string) (int64, error)
}
