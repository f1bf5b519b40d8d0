package tui

import (
	"errors"
	"fmt"

	"github.com/vitrinapp/vitrin/internal/remote"
)

// wrapErr prefixes an error with the action that produced it.
func wrapErr(action string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", action, err)
}

// friendly rewrites engine errors into status-bar wording. A conflict means
// the listing vanished server-side; the wrapped chain is noise to the viewer.
func friendly(err error) string {
	if errors.Is(err, remote.ErrConflict) {
		return "that listing is no longer available"
	}
	return err.Error()
}
