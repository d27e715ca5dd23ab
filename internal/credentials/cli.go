package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// CLIHandler handles CLI commands for token management
type CLIHandler struct {
	manager *Manager
	stdin   io.Reader
	stdout  io.Writer
	tty     TerminalReader
}

// NewCLIHandler creates a new CLI handler for credential commands
func NewCLIHandler(manager *Manager, stdin io.Reader, stdout io.Writer, tty TerminalReader) *CLIHandler {
	return &CLIHandler{
		manager: manager,
		stdin:   stdin,
		stdout:  stdout,
		tty:     tty,
	}
}

// Set prompts for a token and stores it in the keyring
func (h *CLIHandler) Set(ctx context.Context) error {
	token, err := PromptTokenWithTTY(h.stdin, h.stdout, h.tty)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	if err := h.manager.Set(ctx, token); err != nil {
		if errors.Is(err, ErrKeyringNotAvailable) {
			return h.keyringNotAvailableError()
		}
		return fmt.Errorf("failed to store token: %w", err)
	}

	_, _ = fmt.Fprintln(h.stdout, "Session token stored in system keyring")
	return nil
}

// keyringNotAvailableError explains the environment variable fallback
func (h *CLIHandler) keyringNotAvailableError() error {
	return fmt.Errorf(`%w.

Alternative: export the token instead:
  export %s="your-session-token"

Run 'laftelplus credentials get' to verify it is detected.`, ErrKeyringNotAvailable, TokenEnvVar)
}

// Get displays where the token comes from without revealing it
func (h *CLIHandler) Get(ctx context.Context, jsonOutput bool) error {
	info, err := h.manager.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	if jsonOutput {
		data, err := info.JSON()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(h.stdout, string(data))
		return nil
	}

	if !info.Found {
		_, _ = fmt.Fprintf(h.stdout, "No session token found for account %s\n", info.Account)
		_, _ = fmt.Fprintf(h.stdout, "Searched:\n")
		_, _ = fmt.Fprintf(h.stdout, "  - System keyring: Not found\n")
		_, _ = fmt.Fprintf(h.stdout, "  - %s: Not set\n", TokenEnvVar)
		_, _ = fmt.Fprintf(h.stdout, "\nSuggestion: Run 'laftelplus credentials set'\n")
		return nil
	}

	_, _ = fmt.Fprintf(h.stdout, "Source: %s\n", info.Source)
	_, _ = fmt.Fprintf(h.stdout, "Account: %s\n", info.Account)
	_, _ = fmt.Fprintf(h.stdout, "Token: ******** (hidden)\n")
	_, _ = fmt.Fprintf(h.stdout, "Status: Available\n")
	return nil
}

// Delete removes the token from the keyring
func (h *CLIHandler) Delete(ctx context.Context) error {
	if err := h.manager.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	_, _ = fmt.Fprintln(h.stdout, "Session token removed from system keyring")
	return nil
}
