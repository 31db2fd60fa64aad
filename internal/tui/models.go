package tui

import (
	"fmt"

	"github.com/pders01/userdir/internal/users"
)

type View int

const (
	ViewUsers View = iota
	ViewDetail
)

func (v View) String() string {
	switch v {
	case ViewUsers:
		return "users"
	case ViewDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// userItem adapts a users.User to the bubbles list.
type userItem struct {
	user users.User
}

func (i userItem) Title() string { return i.user.FullName() }

func (i userItem) Description() string {
	desc := i.user.Email
	meta := i.user.Role
	if i.user.Age > 0 {
		if meta != "" {
			meta += " - "
		}
		meta += fmt.Sprintf("%d years old", i.user.Age)
	}
	if dept := i.user.Company.Department; dept != "" {
		meta += " • " + dept
	}
	if meta != "" {
		desc += " • " + meta
	}
	return desc
}

func (i userItem) FilterValue() string { return i.user.FullName() }

// stateChangedMsg is delivered whenever the list controller or the detail
// fetcher reports a transition.
type stateChangedMsg struct{}

type detailRenderedMsg struct {
	key     renderKey
	content string
}

type suggestionsMsg struct {
	query   string
	queries []string
}

type completionMsg struct {
	prefix string
	query  string
}

type statusMsg struct {
	text string
	kind StatusKind
}

type errorMsg struct {
	err error
}
