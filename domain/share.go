package domain

// Share links a task to a recipient user. At most one active share exists per
// (task, recipient) pair; re-sharing updates the destination instead of
// duplicating the relation.
//
// DestinationBoardID names the recipient's board the task appears in and is
// the authoritative placement reference. It is nil only on legacy rows
// created before destinations were recorded; those resolve by board title
// when the fallback is enabled.
type Share struct {
	TaskID             int64  `json:"taskId"`
	RecipientID        int64  `json:"recipientId"`
	DestinationBoardID *int64 `json:"destinationBoardId,omitempty"`
	// Position is the zero-based index within the recipient's destination
	// board. It is recipient-local: reordering by one holder never moves the
	// task in any other holder's board.
	Position int `json:"position"`
}

// SharedTask pairs a task with the share relation it was loaded through.
type SharedTask struct {
	Task  Task  `json:"task"`
	Share Share `json:"share"`
}
