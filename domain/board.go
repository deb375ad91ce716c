package domain

import (
	"fmt"
	"strings"
)

// BoardTitle is one of the fixed canonical board categories. A user holds at
// most one board per title.
type BoardTitle string

const (
	TitleAcademic BoardTitle = "Academic"
	TitleWork     BoardTitle = "Work"
	TitleLeisure  BoardTitle = "Leisure"
)

// MaxBoardsPerUser caps how many boards one user may hold.
const MaxBoardsPerUser = 3

// BoardTitles returns every canonical title in display order.
func BoardTitles() []BoardTitle {
	return []BoardTitle{TitleAcademic, TitleWork, TitleLeisure}
}

// ParseBoardTitle resolves a case-insensitive title string to its canonical
// value. Unknown titles return ErrInvalidReference.
func ParseBoardTitle(s string) (BoardTitle, error) {
	for _, t := range BoardTitles() {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown board title %q", ErrInvalidReference, s)
}

// Board is a titled, per-user container of an ordered task list.
type Board struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"ownerId"`
	Title       BoardTitle `json:"title"`
	Description string     `json:"description,omitempty"`
}
