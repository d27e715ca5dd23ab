// Package prompt handles interactive prompts with no-prompt mode support.
// It provides name-filtered list item selection and yes/no confirmation.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/views"
)

// Sentinel errors for prompt operations.
var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrNoPromptMode       = errors.New("interactive prompts disabled (--no-prompt / -y)")
	ErrNoItems            = errors.New("the list is empty")
	ErrNoMatches          = errors.New("no items match the filter")
)

// ItemSelector picks one cached list item, narrowing the list by a name filter first.
type ItemSelector struct {
	Items    []backend.ListItem
	Prompt   string
	Reader   io.Reader
	Writer   io.Writer
	NoPrompt bool
}

// Run executes the selection prompt.
// If NoPrompt is true, returns ErrNoPromptMode.
// A single candidate, before or after filtering, is selected without asking.
func (s *ItemSelector) Run() (*backend.ListItem, error) {
	if s.NoPrompt {
		return nil, ErrNoPromptMode
	}

	if len(s.Items) == 0 {
		return nil, ErrNoItems
	}

	if len(s.Items) == 1 {
		return &s.Items[0], nil
	}

	writer := s.Writer
	if writer == nil {
		writer = io.Discard
	}

	scanner := bufio.NewScanner(s.Reader)

	_, _ = fmt.Fprintf(writer, "%s\nFilter by name (or press Enter to show all): ", s.Prompt)
	if !scanner.Scan() {
		return nil, ErrSelectionCancelled
	}
	filtered := views.FilterByName(s.Items, scanner.Text())

	if len(filtered) == 0 {
		return nil, ErrNoMatches
	}

	if len(filtered) == 1 {
		_, _ = fmt.Fprintf(writer, "Auto-selected: %s\n", FormatItemLine(filtered[0]))
		return &filtered[0], nil
	}

	for i, item := range filtered {
		_, _ = fmt.Fprintf(writer, "  %d) %s\n", i+1, FormatItemLine(item))
	}

	_, _ = fmt.Fprintf(writer, "Select (0 to cancel): ")
	if !scanner.Scan() {
		return nil, ErrSelectionCancelled
	}

	input := strings.TrimSpace(scanner.Text())
	num, err := strconv.Atoi(input)
	if err != nil {
		return nil, fmt.Errorf("invalid selection: %s", input)
	}

	if num == 0 {
		return nil, ErrSelectionCancelled
	}

	if num < 1 || num > len(filtered) {
		return nil, fmt.Errorf("selection out of range: %d", num)
	}

	return &filtered[num-1], nil
}

// FormatItemLine formats an item as "Name [id: N, ★R]"
func FormatItemLine(item backend.ListItem) string {
	name := item.Name
	if name == "" {
		name = "(unnamed)"
	}

	meta := []string{fmt.Sprintf("id: %d", item.ID)}
	if item.Rating > 0 {
		meta = append(meta, fmt.Sprintf("★%d", item.Rating))
	}
	return fmt.Sprintf("%s [%s]", name, strings.Join(meta, ", "))
}

// Confirm asks a yes/no question; anything but y or yes is a no.
// In no-prompt mode the answer is always yes.
func Confirm(reader io.Reader, writer io.Writer, question string, noPrompt bool) bool {
	if noPrompt {
		return true
	}
	if writer == nil {
		writer = io.Discard
	}
	_, _ = fmt.Fprintf(writer, "%s [y/N]: ", question)
	if reader == nil {
		return false
	}

	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
