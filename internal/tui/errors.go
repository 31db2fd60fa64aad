package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/userdir/internal/api"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// describeErr renders an error for the status bar. Remote problems use their
// short user-facing message.
func describeErr(err error) string {
	var p *api.Problem
	if errors.As(err, &p) {
		msg := p.Message()
		if p.Temporary {
			msg += ", try again"
		}
		return msg
	}
	return err.Error()
}
