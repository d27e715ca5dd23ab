package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorWithSuggestionImplementsError(t *testing.T) {
	var _ error = &ErrorWithSuggestion{}
}

func TestErrorWithSuggestionError(t *testing.T) {
	err := &ErrorWithSuggestion{
		Err:        errors.New("something went wrong"),
		Suggestion: "Try doing X",
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "something went wrong") || !strings.Contains(errStr, "Suggestion: Try doing X") {
		t.Errorf("unexpected Error(): %s", errStr)
	}
	if err.GetSuggestion() != "Try doing X" {
		t.Errorf("GetSuggestion() = %s", err.GetSuggestion())
	}
}

func TestErrorWithSuggestionUnwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := WrapWithSuggestion(underlying, "suggestion")

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should see the wrapped error")
	}
	var ews *ErrorWithSuggestion
	if !errors.As(err, &ews) || ews.Suggestion != "suggestion" {
		t.Error("errors.As should find ErrorWithSuggestion")
	}
}

func TestDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		message    string
		suggestion string
	}{
		{"not logged in", ErrNotLoggedIn(), "not logged in", "credentials set"},
		{"unknown list", ErrUnknownListKind("watched"), "unknown list: watched", "rated, wish, hate"},
		{"not syncable", ErrListNotSyncable("hate"), "no remote listing", "hate export"},
		{"busy", ErrSyncBusy("wish"), "wish list is already running", "Wait"},
		{"backup", ErrInvalidBackup("not valid base64"), "invalid backup data: not valid base64", "hate export"},
		{"setting", ErrInvalidSetting("hideAll", []string{"hideRated", "hideHate"}), "invalid setting: hideAll", "hideRated, hideHate"},
		{"credentials", ErrCredentialsNotFound("default"), "no session token stored for default", "credentials set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ews *ErrorWithSuggestion
			if !errors.As(tt.err, &ews) {
				t.Fatalf("expected ErrorWithSuggestion, got %T", tt.err)
			}
			if !strings.Contains(ews.Err.Error(), tt.message) {
				t.Errorf("message %q does not contain %q", ews.Err.Error(), tt.message)
			}
			if !strings.Contains(ews.Suggestion, tt.suggestion) {
				t.Errorf("suggestion %q does not contain %q", ews.Suggestion, tt.suggestion)
			}
		})
	}
}

func TestErrRemoteFailureSuggestions(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"dial tcp: lookup api.laftel.net: no such host", "DNS"},
		{"connect: connection refused", "base URL"},
		{"context deadline exceeded (Client.Timeout exceeded): i/o timeout", "slow"},
		{"status 401", "expired"},
		{"status 429", "rate limiting"},
		{"something else", "internet connection"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			err := ErrRemoteFailure("sync rated", tt.reason)
			var ews *ErrorWithSuggestion
			if !errors.As(err, &ews) {
				t.Fatal("expected ErrorWithSuggestion")
			}
			if !strings.Contains(ews.Suggestion, tt.want) {
				t.Errorf("suggestion %q does not contain %q", ews.Suggestion, tt.want)
			}
			if !strings.Contains(err.Error(), "sync rated") {
				t.Errorf("message should name the operation: %s", err.Error())
			}
		})
	}
}
