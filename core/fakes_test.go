package core

import (
	"context"
	"errors"
	"io"
	"sort"

	log "github.com/sirupsen/logrus"

	"shareboard/domain"
)

// fakeDB backs all three ports with in-memory maps. Writes are applied
// directly; the fake Transactor is a passthrough, which is enough to test
// engine semantics.
type fakeDB struct {
	users  map[int64]domain.User
	boards map[int64]domain.Board
	tasks  map[int64]domain.Task
	shares map[[2]int64]domain.Share
	nextID int64

	// failTaskUpdate makes Update fail for the given task id, simulating a
	// persistence failure mid-renumber.
	failTaskUpdate int64
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:  map[int64]domain.User{},
		boards: map[int64]domain.Board{},
		tasks:  map[int64]domain.Task{},
		shares: map[[2]int64]domain.Share{},
	}
}

func (f *fakeDB) ports() Ports {
	return Ports{Users: f, Boards: fakeBoards{f}, Tasks: fakeTasks{f}}
}

func (f *fakeDB) InTransaction(ctx context.Context, fn func(p Ports) error) error {
	return fn(f.ports())
}

func (f *fakeDB) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeDB) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeDB) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) Save(ctx context.Context, u *domain.User) error {
	u.ID = f.id()
	f.users[u.ID] = *u
	return nil
}

func (f *fakeDB) Update(ctx context.Context, u *domain.User) error {
	f.users[u.ID] = *u
	return nil
}

func (f *fakeDB) Delete(ctx context.Context, id int64) error {
	delete(f.users, id)
	return nil
}

type fakeBoards struct{ *fakeDB }
type fakeTasks struct{ *fakeDB }

func (f fakeBoards) FindByID(ctx context.Context, id int64) (*domain.Board, error) {
	b, ok := f.boards[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f fakeBoards) FindByOwner(ctx context.Context, ownerID int64) ([]domain.Board, error) {
	var out []domain.Board
	for _, b := range f.boards {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeBoards) FindByOwnerAndTitle(ctx context.Context, ownerID int64, title domain.BoardTitle) (*domain.Board, error) {
	for _, b := range f.boards {
		if b.OwnerID == ownerID && b.Title == title {
			b := b
			return &b, nil
		}
	}
	return nil, nil
}

func (f fakeBoards) Save(ctx context.Context, b *domain.Board) error {
	b.ID = f.id()
	f.boards[b.ID] = *b
	return nil
}

func (f fakeBoards) Update(ctx context.Context, b *domain.Board) error {
	f.boards[b.ID] = *b
	return nil
}

func (f fakeBoards) Delete(ctx context.Context, id int64) error {
	delete(f.boards, id)
	return nil
}

func (f fakeTasks) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f fakeTasks) FindAllByBoard(ctx context.Context, boardID int64) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range f.tasks {
		if t.BoardID != nil && *t.BoardID == boardID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeTasks) FindAllByAuthor(ctx context.Context, authorID int64) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range f.tasks {
		if t.AuthorID == authorID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeTasks) FindAllSharedWith(ctx context.Context, recipientID int64) ([]domain.SharedTask, error) {
	var out []domain.SharedTask
	for _, sh := range f.shares {
		if sh.RecipientID != recipientID {
			continue
		}
		t, ok := f.tasks[sh.TaskID]
		if !ok {
			continue
		}
		out = append(out, domain.SharedTask{Task: t, Share: sh})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Task.ID < out[j].Task.ID })
	return out, nil
}

func (f fakeTasks) Save(ctx context.Context, t *domain.Task) error {
	t.ID = f.id()
	f.tasks[t.ID] = *t
	return nil
}

var errInjected = errors.New("injected persistence failure")

func (f fakeTasks) Update(ctx context.Context, t *domain.Task) error {
	if f.failTaskUpdate != 0 && t.ID == f.failTaskUpdate {
		return errInjected
	}
	f.tasks[t.ID] = *t
	return nil
}

func (f fakeTasks) Delete(ctx context.Context, id int64) error {
	delete(f.tasks, id)
	return nil
}

func (f fakeTasks) AddShare(ctx context.Context, sh domain.Share) error {
	f.shares[[2]int64{sh.TaskID, sh.RecipientID}] = sh
	return nil
}

func (f fakeTasks) UpdateSharePosition(ctx context.Context, taskID, recipientID int64, position int) error {
	key := [2]int64{taskID, recipientID}
	sh, ok := f.shares[key]
	if !ok {
		return errors.New("share not found")
	}
	sh.Position = position
	f.shares[key] = sh
	return nil
}

func (f fakeTasks) RemoveShare(ctx context.Context, taskID, recipientID int64) error {
	delete(f.shares, [2]int64{taskID, recipientID})
	return nil
}

func (f fakeTasks) FindShare(ctx context.Context, taskID, recipientID int64) (*domain.Share, error) {
	sh, ok := f.shares[[2]int64{taskID, recipientID}]
	if !ok {
		return nil, nil
	}
	return &sh, nil
}

func (f fakeTasks) SharesByTask(ctx context.Context, taskID int64) ([]domain.Share, error) {
	var out []domain.Share
	for _, sh := range f.shares {
		if sh.TaskID == taskID {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipientID < out[j].RecipientID })
	return out, nil
}

func (f fakeTasks) SharesByDestination(ctx context.Context, boardID int64) ([]domain.Share, error) {
	var out []domain.Share
	for _, sh := range f.shares {
		if sh.DestinationBoardID != nil && *sh.DestinationBoardID == boardID {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func newTestService(db *fakeDB, cfg Config) *Service {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return New(Ports{Users: db, Boards: fakeBoards{db}, Tasks: fakeTasks{db}}, db, nil, cfg, logger)
}

// seedUser inserts a user directly.
func seedUser(db *fakeDB, username string) domain.User {
	u := domain.User{ID: db.id(), Username: username}
	db.users[u.ID] = u
	return u
}

func seedBoard(db *fakeDB, ownerID int64, title domain.BoardTitle) domain.Board {
	b := domain.Board{ID: db.id(), OwnerID: ownerID, Title: title}
	db.boards[b.ID] = b
	return b
}
