package components

import (
	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/logging"
)

// AuthRequiredMsg asks the app to return to the login screen
type AuthRequiredMsg struct {
	Error *apperrors.ProcessedError
}

// HandleAuthError is the dedicated path for authentication failures. When
// processed requires a new sign-in, clear runs and the returned command
// routes to login without a toast. Other errors return nil so the caller
// can show them.
func HandleAuthError(processed *apperrors.ProcessedError, clear func() error) tea.Cmd {
	if processed == nil || !processed.RequiresAuth() {
		return nil
	}
	if clear != nil {
		if err := clear(); err != nil {
			logging.GetUILogger().Warn("Failed to clear credentials", "error", err)
		}
	}
	return func() tea.Msg {
		return AuthRequiredMsg{Error: processed}
	}
}
