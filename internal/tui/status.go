package tui

import (
	"fmt"
	"strings"
)

// Canonical short status messages used across the app.
const (
	MsgLoadingUsers    = "Loading users..."
	MsgLoadingMore     = "Loading more users..."
	MsgLoadingDetail   = "Loading user details..."
	MsgSearchHint      = "Search users..."
	MsgRefreshing      = "Refreshing…"
	MsgHistoryCleared  = "Search history cleared"
	MsgHistoryDisabled = "Search history is disabled"
	MsgNoImage         = "No image for this user"
	MsgErrorTitle      = "Oops!"
	MsgNoResultsTitle  = "No Results"
	MsgNoUsersTitle    = "No Users"
)

func MsgUsersAvailable(n int) string {
	if n == 1 {
		return "1 user available"
	}
	return fmt.Sprintf("%d users available", n)
}

func MsgLoadFailed(refreshKey string) string {
	return fmt.Sprintf("Something went wrong loading the users. Press %s to try again.", refreshKey)
}

func MsgNoResults(query string) string {
	return fmt.Sprintf("No users found matching %q. Try a different search.", strings.TrimSpace(query))
}

func MsgNoUsers(refreshKey string) string {
	return fmt.Sprintf("No users available at the moment. Press %s to refresh.", refreshKey)
}

func MsgOpening(link string) string {
	return "Opening " + truncateMiddle(link, 48)
}

// emptyState is a centered title plus explanation shown instead of a list.
type emptyState struct {
	title   string
	message string
	kind    StatusKind
}

func MsgDetailFailed(refreshKey string) string {
	return fmt.Sprintf("Something went wrong loading this user. Press %s to try again.", refreshKey)
}
