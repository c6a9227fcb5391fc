// Package forms provides the huh prompts used by the TUI.
package forms

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// NewOpenForm asks for a file path or URL to load. The answer is bound to
// locator.
func NewOpenForm(locator *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Open source").
				Description("Video file path or URL").
				Placeholder("~/videos/match.mp4").
				Value(locator).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("a path or URL is required")
					}
					return nil
				}),
		),
	).WithTheme(Theme()).WithShowHelp(false)
}

// NewConfirmResetForm asks before the session is discarded.
func NewConfirmResetForm(reset *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reset session?").
				Description("The source, thumbnails and any unsaved clip are released.").
				Affirmative("Reset").
				Negative("Keep").
				Value(reset),
		),
	).WithTheme(Theme()).WithShowHelp(false)
}
