package core

import "shareboard/domain"

// field identifies a mutable task attribute for permission checks.
type field int

const (
	fieldTitle field = iota
	fieldDescription
	fieldDue
	fieldColor
	fieldURL
	fieldImage
	fieldState
	fieldPosition
)

var fieldNames = map[field]string{
	fieldTitle:       "title",
	fieldDescription: "description",
	fieldDue:         "due",
	fieldColor:       "color",
	fieldURL:         "url",
	fieldImage:       "image",
	fieldState:       "state",
	fieldPosition:    "position",
}

func (f field) String() string { return fieldNames[f] }

type role int

const (
	roleAuthor role = iota
	roleRecipient
)

// mutationGrants is the single declarative permission table: content fields
// are author-only, completion state and holder-local position are open to any
// holder.
var mutationGrants = map[field]map[role]bool{
	fieldTitle:       {roleAuthor: true},
	fieldDescription: {roleAuthor: true},
	fieldDue:         {roleAuthor: true},
	fieldColor:       {roleAuthor: true},
	fieldURL:         {roleAuthor: true},
	fieldImage:       {roleAuthor: true},
	fieldState:       {roleAuthor: true, roleRecipient: true},
	fieldPosition:    {roleAuthor: true, roleRecipient: true},
}

func roleOf(userID int64, t *domain.Task) role {
	if t.AuthorID == userID {
		return roleAuthor
	}
	return roleRecipient
}

func allowed(f field, r role) bool {
	return mutationGrants[f][r]
}
