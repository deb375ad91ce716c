package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"shareboard/domain"
)

// ViewTask is one slot of a holder's board: the task itself and whether it is
// held through a share. Position is holder-local.
type ViewTask struct {
	Task     domain.Task `json:"task"`
	ViaShare bool        `json:"viaShare,omitempty"`
	Position int         `json:"position"`
}

// BoardView is a board with its merged, position-sorted task list.
type BoardView struct {
	Board domain.Board `json:"board"`
	Tasks []ViewTask   `json:"tasks"`
}

// viewEntry is the internal form of a board slot. share is nil for rows the
// board owner authored.
type viewEntry struct {
	task  domain.Task
	share *domain.Share
}

func (e *viewEntry) position() int {
	if e.share != nil {
		return e.share.Position
	}
	return e.task.Position
}

// sortEntries orders by holder-local position, breaking ties by creation date
// then id so the exposed order is deterministic.
func sortEntries(entries []viewEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if a.position() != b.position() {
			return a.position() < b.position()
		}
		if !a.task.Created.Equal(b.task.Created) {
			return a.task.Created.Before(b.task.Created)
		}
		return a.task.ID < b.task.ID
	})
}

// boardEntries loads the merged slot list for one board: tasks the owner
// authored into it plus tasks shared to the owner with this board recorded as
// destination. A stray self-share never duplicates an authored row.
func boardEntries(ctx context.Context, p Ports, board *domain.Board) ([]viewEntry, error) {
	authored, err := p.Tasks.FindAllByBoard(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("load board %d tasks: %w", board.ID, err)
	}
	entries := make([]viewEntry, 0, len(authored))
	for _, t := range authored {
		entries = append(entries, viewEntry{task: t})
	}
	shares, err := p.Tasks.SharesByDestination(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("load board %d shares: %w", board.ID, err)
	}
	for i := range shares {
		sh := shares[i]
		if sh.RecipientID != board.OwnerID {
			continue
		}
		t, err := p.Tasks.FindByID(ctx, sh.TaskID)
		if err != nil {
			return nil, fmt.Errorf("load shared task %d: %w", sh.TaskID, err)
		}
		if t == nil || t.AuthorID == board.OwnerID {
			continue
		}
		entries = append(entries, viewEntry{task: *t, share: &sh})
	}
	sortEntries(entries)
	return entries, nil
}

// Views returns the acting user's boards with their merged task lists,
// reconciled from authored tasks and inbound shares.
func (s *Service) Views(ctx context.Context, userID int64) ([]BoardView, error) {
	if s.cache != nil {
		if views, ok := s.cache.Get(ctx, userID); ok {
			return views, nil
		}
	}
	boards, err := s.ports.Boards.FindByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	perBoard := make([][]viewEntry, len(boards))
	for i := range boards {
		entries, err := boardEntries(ctx, s.ports, &boards[i])
		if err != nil {
			return nil, err
		}
		perBoard[i] = entries
	}
	if s.cfg.TitleFallback {
		if err := s.applyTitleFallback(ctx, userID, boards, perBoard); err != nil {
			return nil, err
		}
	}
	views := make([]BoardView, len(boards))
	for i := range boards {
		sortEntries(perBoard[i])
		tasks := make([]ViewTask, len(perBoard[i]))
		for j := range perBoard[i] {
			e := &perBoard[i][j]
			tasks[j] = ViewTask{Task: e.task, ViaShare: e.share != nil, Position: e.position()}
		}
		views[i] = BoardView{Board: boards[i], Tasks: tasks}
	}
	if s.cache != nil {
		s.cache.Set(ctx, userID, views)
	}
	return views, nil
}

// applyTitleFallback materializes legacy share rows that carry no destination
// board id by matching the author's owning-board title against the
// recipient's boards. Shares that cannot resolve are simply left out.
func (s *Service) applyTitleFallback(ctx context.Context, userID int64, boards []domain.Board, perBoard [][]viewEntry) error {
	inbound, err := s.ports.Tasks.FindAllSharedWith(ctx, userID)
	if err != nil {
		return fmt.Errorf("load inbound shares: %w", err)
	}
	for i := range inbound {
		st := inbound[i]
		if st.Share.DestinationBoardID != nil || st.Task.AuthorID == userID {
			continue
		}
		if st.Task.BoardID == nil {
			continue
		}
		authorBoard, err := s.ports.Boards.FindByID(ctx, *st.Task.BoardID)
		if err != nil {
			return fmt.Errorf("load author board %d: %w", *st.Task.BoardID, err)
		}
		if authorBoard == nil {
			continue
		}
		for j := range boards {
			if boards[j].Title == authorBoard.Title {
				perBoard[j] = append(perBoard[j], viewEntry{task: st.Task, share: &inbound[i].Share})
				break
			}
		}
	}
	return nil
}

// BoardTasks returns the merged, sorted task list of one of the acting
// user's boards.
func (s *Service) BoardTasks(ctx context.Context, userID int64, title domain.BoardTitle) (*BoardView, error) {
	views, err := s.Views(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].Board.Title == title {
			return &views[i], nil
		}
	}
	return nil, fmt.Errorf("%w: board %q", domain.ErrNotFound, title)
}

// SearchTasks returns every task in the user's merged views whose title or
// description contains the term.
func (s *Service) SearchTasks(ctx context.Context, userID int64, term string) ([]domain.Task, error) {
	views, err := s.Views(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []domain.Task
	for i := range views {
		for j := range views[i].Tasks {
			if t := views[i].Tasks[j].Task; t.MatchesSearch(term) {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// DueBefore returns the user's tasks due on or before the deadline, soonest
// first.
func (s *Service) DueBefore(ctx context.Context, userID int64, deadline time.Time) ([]domain.Task, error) {
	views, err := s.Views(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []domain.Task
	for i := range views {
		for j := range views[i].Tasks {
			if t := views[i].Tasks[j].Task; t.DueBy(deadline) {
				out = append(out, t)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Due.Before(*out[j].Due) })
	return out, nil
}
