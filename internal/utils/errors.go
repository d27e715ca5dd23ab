package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrNotLoggedIn returns an error when no session token is available.
func ErrNotLoggedIn() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("not logged in to Laftel"),
		Suggestion: "Run 'laftelplus credentials set' or export LAFTELPLUS_TOKEN with your session token",
	}
}

// ErrHistoryDisabled returns an error when run history is switched off.
func ErrHistoryDisabled() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("run history is disabled"),
		Suggestion: "Set history.enabled: true in the config file or export LAFTELPLUS_HISTORY=true",
	}
}

// ErrConfirmationRequired returns an error for a destructive action that cannot prompt.
func ErrConfirmationRequired(action string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("confirmation required: %s", action),
		Suggestion: "Pass the backup as a file argument, or rerun with -y to replace without asking",
	}
}

// ErrUnknownListKind returns an error for a list name that is not rated, wish or hate.
func ErrUnknownListKind(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("unknown list: %s", name),
		Suggestion: "Valid lists: rated, wish, hate",
	}
}

// ErrListNotSyncable returns an error for a list without a remote listing.
func ErrListNotSyncable(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("list %s has no remote listing to sync", name),
		Suggestion: "Only rated and wish lists can be synced; use 'laftelplus hate export' to back up the hate list",
	}
}

// ErrSyncBusy returns an error when another operation holds the list.
func ErrSyncBusy(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("an operation on the %s list is already running", name),
		Suggestion: "Wait for it to finish and try again",
	}
}

// ErrInvalidBackup returns an error for a malformed import payload.
func ErrInvalidBackup(reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid backup data: %s", reason),
		Suggestion: "Use the exact text produced by 'laftelplus hate export'",
	}
}

// ErrRemoteFailure returns an error when the Laftel API is unreachable with smart suggestions.
func ErrRemoteFailure(op, reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("laftel request %s failed: %s", op, reason),
		Suggestion: getSmartSuggestion(reason),
	}
}

// getSmartSuggestion returns a context-aware suggestion based on the error reason.
func getSmartSuggestion(reason string) string {
	lowerReason := strings.ToLower(reason)

	if strings.Contains(lowerReason, "no such host") || strings.Contains(lowerReason, "dns") {
		return "Check your DNS settings and internet connection"
	}

	if strings.Contains(lowerReason, "connection refused") {
		return "Check if the API base URL in your config is correct"
	}

	if strings.Contains(lowerReason, "timeout") || strings.Contains(lowerReason, "i/o timeout") {
		return "The server may be slow or unreachable. Try again later"
	}

	if strings.Contains(lowerReason, "status 401") || strings.Contains(lowerReason, "status 403") {
		return "Your session token may have expired; run 'laftelplus credentials set' again"
	}

	if strings.Contains(lowerReason, "status 429") || strings.Contains(lowerReason, "rate limit") {
		return "Laftel is rate limiting requests; increase bulk.delay or try again later"
	}

	return "Check your internet connection and try again"
}

// ErrInvalidSetting returns an error for an unknown settings key or value.
func ErrInvalidSetting(key string, valid []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid setting: %s", key),
		Suggestion: fmt.Sprintf("Valid options: %s", strings.Join(valid, ", ")),
	}
}

// ErrCredentialsNotFound returns an error when no token is stored.
func ErrCredentialsNotFound(account string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no session token stored for %s", account),
		Suggestion: "Run 'laftelplus credentials set' to store one",
	}
}
