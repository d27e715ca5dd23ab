// Package testutil provides shared test utilities.
// infra_test.go contains tests for project infrastructure (Makefile).
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// getProjectRoot returns the project root directory.
func getProjectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to get test file path")
	}
	// Navigate from internal/testutil/ to project root
	testDir := filepath.Dir(filename)
	return filepath.Join(testDir, "..", "..")
}

func readMakefile(t *testing.T) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(getProjectRoot(t), "Makefile"))
	if err != nil {
		t.Fatalf("failed to read Makefile: %v", err)
	}
	return string(content)
}

func hasTarget(content, target string) bool {
	return regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(target) + `:`).MatchString(content)
}

// TestMakefileTargets verifies the documented make targets exist
func TestMakefileTargets(t *testing.T) {
	content := readMakefile(t)

	for _, target := range []string{"build", "install", "test", "test-race", "lint", "clean"} {
		if !hasTarget(content, target) {
			t.Errorf("Makefile should contain %s target", target)
		}
	}
}

// TestMakefileBuildsCLI verifies `make build` builds the laftelplus command
func TestMakefileBuildsCLI(t *testing.T) {
	content := readMakefile(t)

	if !strings.Contains(content, "./cmd/laftelplus") {
		t.Error("build target should build ./cmd/laftelplus")
	}
	if _, err := os.Stat(filepath.Join(getProjectRoot(t), "cmd", "laftelplus", "main.go")); err != nil {
		t.Errorf("cmd/laftelplus/main.go not found: %v", err)
	}
}

// TestMakefileInjectsVersion verifies the ldflags target the version variables of the cmd package
func TestMakefileInjectsVersion(t *testing.T) {
	content := readMakefile(t)

	if !strings.Contains(content, "github.com/DOCHIS/laftel-plus/cmd/laftelplus/cmd") {
		t.Error("Makefile should inject version information into the cmd package")
	}
	for _, v := range []string{"Version", "Commit", "BuildDate"} {
		if !strings.Contains(content, "$(PKG)."+v+"=") {
			t.Errorf("Makefile ldflags should set %s", v)
		}
	}
}

// TestMakefileRaceTarget verifies `make test-race` enables the race detector
func TestMakefileRaceTarget(t *testing.T) {
	content := readMakefile(t)

	if !strings.Contains(content, "go test -race") {
		t.Error("test-race target should use go test -race")
	}
}
