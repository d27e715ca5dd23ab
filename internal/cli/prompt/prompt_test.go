package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/DOCHIS/laftel-plus/backend"
)

// =============================================================================
// Test Helpers
// =============================================================================

func hateItems() []backend.ListItem {
	return []backend.ListItem{
		{ID: 11, Name: "Sword Art Online"},
		{ID: 12, Name: "Sword Oratoria"},
		{ID: 13, Name: "Mushishi"},
		{ID: 14, Name: ""},
		{ID: 15, Name: "Haikyu", Rating: 5},
	}
}

// =============================================================================
// TestItemSelection - name filter narrows the list before picking
// =============================================================================

func TestItemSelection(t *testing.T) {
	t.Run("filters by typed name", func(t *testing.T) {
		selector := &ItemSelector{
			Items:  hateItems(),
			Prompt: "Select item:",
			Reader: strings.NewReader("sword\n2\n"),
		}

		selected, err := selector.Run()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if selected.ID != 12 {
			t.Errorf("expected item 12, got %d", selected.ID)
		}
	})

	t.Run("case insensitive filtering", func(t *testing.T) {
		selector := &ItemSelector{
			Items:  hateItems(),
			Reader: strings.NewReader("MUSHI\n"),
		}

		selected, err := selector.Run()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if selected.ID != 13 {
			t.Errorf("expected item 13, got %d", selected.ID)
		}
	})

	t.Run("single match is auto-selected", func(t *testing.T) {
		var out bytes.Buffer
		selector := &ItemSelector{
			Items:  hateItems(),
			Reader: strings.NewReader("haik\n"),
			Writer: &out,
		}

		selected, err := selector.Run()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if selected.ID != 15 {
			t.Errorf("expected item 15, got %d", selected.ID)
		}
		if !strings.Contains(out.String(), "Auto-selected: Haikyu [id: 15, ★5]") {
			t.Errorf("expected auto-select notice, got: %s", out.String())
		}
	})

	t.Run("empty filter shows all items", func(t *testing.T) {
		var out bytes.Buffer
		selector := &ItemSelector{
			Items:  hateItems(),
			Reader: strings.NewReader("\n4\n"),
			Writer: &out,
		}

		selected, err := selector.Run()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if selected.ID != 14 {
			t.Errorf("expected item 14, got %d", selected.ID)
		}
		for _, want := range []string{"1) Sword Art Online [id: 11]", "4) (unnamed) [id: 14]", "5) Haikyu"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("expected %q in output, got: %s", want, out.String())
			}
		}
	})

	t.Run("no match returns error", func(t *testing.T) {
		selector := &ItemSelector{
			Items:  hateItems(),
			Reader: strings.NewReader("zzz\n"),
		}

		_, err := selector.Run()
		if !errors.Is(err, ErrNoMatches) {
			t.Errorf("expected ErrNoMatches, got %v", err)
		}
	})

	t.Run("cancel selection returns error", func(t *testing.T) {
		selector := &ItemSelector{
			Items:  hateItems(),
			Reader: strings.NewReader("sword\n0\n"),
		}

		_, err := selector.Run()
		if !errors.Is(err, ErrSelectionCancelled) {
			t.Errorf("expected ErrSelectionCancelled, got %v", err)
		}
	})

	t.Run("closed input cancels", func(t *testing.T) {
		selector := &ItemSelector{
			Items:  hateItems(),
			Reader: strings.NewReader(""),
		}

		_, err := selector.Run()
		if !errors.Is(err, ErrSelectionCancelled) {
			t.Errorf("expected ErrSelectionCancelled, got %v", err)
		}
	})

	t.Run("invalid and out of range selections", func(t *testing.T) {
		for _, input := range []string{"sword\nabc\n", "sword\n9\n"} {
			selector := &ItemSelector{
				Items:  hateItems(),
				Reader: strings.NewReader(input),
			}
			if _, err := selector.Run(); err == nil {
				t.Errorf("expected error for input %q", input)
			}
		}
	})
}

func TestItemSelectionModes(t *testing.T) {
	t.Run("no-prompt mode refuses", func(t *testing.T) {
		selector := &ItemSelector{Items: hateItems(), NoPrompt: true}
		if _, err := selector.Run(); !errors.Is(err, ErrNoPromptMode) {
			t.Errorf("expected ErrNoPromptMode, got %v", err)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		selector := &ItemSelector{Reader: strings.NewReader("\n")}
		if _, err := selector.Run(); !errors.Is(err, ErrNoItems) {
			t.Errorf("expected ErrNoItems, got %v", err)
		}
	})

	t.Run("single item needs no input", func(t *testing.T) {
		selector := &ItemSelector{Items: hateItems()[:1]}
		selected, err := selector.Run()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if selected.ID != 11 {
			t.Errorf("expected item 11, got %d", selected.ID)
		}
	})
}

// =============================================================================
// TestConfirm - yes/no questions
// =============================================================================

func TestConfirm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		noPrompt bool
		want     bool
	}{
		{"yes", "y\n", false, true},
		{"full yes", "YES\n", false, true},
		{"no", "n\n", false, false},
		{"empty answer", "\n", false, false},
		{"closed input", "", false, false},
		{"other text", "sure\n", false, false},
		{"no-prompt mode", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out, "Clear the hate list?", tt.noPrompt)
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if !tt.noPrompt && !strings.Contains(out.String(), "Clear the hate list? [y/N]: ") {
				t.Errorf("question not printed, got: %q", out.String())
			}
		})
	}
}
