package domain

import (
	"strings"
	"time"
)

// TaskState is the completion state of a task.
type TaskState string

const (
	StateNotCompleted TaskState = "not_completed"
	StateCompleted    TaskState = "completed"
)

// Task is a to-do item. It has exactly one author and lives in exactly one of
// the author's boards; recipients see the same row through share relations,
// never a copy. BoardID is nil when the author deleted the owning board but
// active shares kept the task alive.
type Task struct {
	ID          int64      `json:"id"`
	BoardID     *int64     `json:"boardId,omitempty"`
	AuthorID    int64      `json:"authorId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	Image       []byte     `json:"image,omitempty"`
	Due         *time.Time `json:"due,omitempty"`
	Created     time.Time  `json:"created"`
	Color       string     `json:"color,omitempty"`
	State       TaskState  `json:"state"`
	// Position is the zero-based index within the author's owning board,
	// contiguous across that board at rest.
	Position int `json:"position"`
}

// MatchesSearch reports whether the task title or description contains the
// term, case-insensitively. An empty term matches nothing.
func (t *Task) MatchesSearch(term string) bool {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(t.Title), term) ||
		strings.Contains(strings.ToLower(t.Description), term)
}

// DueBy reports whether the task has a due date on or before the deadline.
func (t *Task) DueBy(deadline time.Time) bool {
	return t.Due != nil && !t.Due.After(deadline)
}
