// Package testutil provides shared test utilities for CLI testing across packages.
// This enables co-located CLI tests while maintaining consistent test infrastructure.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/backend/sqlite"
	"github.com/DOCHIS/laftel-plus/cmd/laftelplus/cmd"
	"github.com/DOCHIS/laftel-plus/internal/credentials"
	"github.com/DOCHIS/laftel-plus/internal/testutil/laftelmock"
)

// defaultTestConfig is the minimal config used by most test constructors to ensure isolation.
const defaultTestConfig = `# test config
store:
  backend: sqlite
bulk:
  delay: 1ms
api:
  max_retries: 1
logging:
  background_enabled: false
`

// CLITest provides a test helper for running CLI commands against a mock Laftel server
// with an isolated store, config file and keyring.
type CLITest struct {
	t          *testing.T
	cfg        *cmd.Config
	tmpDir     string
	configPath string
	keyring    *credentials.MockKeyring

	// Server is the fake Laftel API the CLI talks to
	Server *laftelmock.Server
}

// NewCLITest creates a new CLI test helper with an sqlite store and a stored session token.
func NewCLITest(t *testing.T) *CLITest {
	t.Helper()
	return newCLITest(t, defaultTestConfig, "test.db")
}

// NewCLITestWithFileStore creates a CLI test helper using the JSON file store.
func NewCLITestWithFileStore(t *testing.T) *CLITest {
	t.Helper()
	config := strings.Replace(defaultTestConfig, "backend: sqlite", "backend: file", 1)
	return newCLITest(t, config, "cache.json")
}

// NewCLITestWithNotification creates a CLI test helper with notifications written only to
// a log file in the temp dir.
func NewCLITestWithNotification(t *testing.T) *CLITest {
	t.Helper()
	config := defaultTestConfig + `notifications:
  enabled: true
  os:
    enabled: false
  log:
    enabled: true
    path: NOTIFICATION_LOG
`
	c := newCLITest(t, config, "test.db")
	c.SetFullConfig(strings.Replace(config, "NOTIFICATION_LOG", c.NotificationLogPath(), 1))
	return c
}

func newCLITest(t *testing.T, config, storeFile string) *CLITest {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	server := laftelmock.New(t)
	keyring := credentials.NewMockKeyring()
	if err := keyring.Set(credentials.ServiceName, credentials.DefaultAccount, laftelmock.Token); err != nil {
		t.Fatalf("failed to seed keyring: %v", err)
	}

	cfg := &cmd.Config{
		NoPrompt:   true,
		ConfigPath: configPath,
		StorePath:  filepath.Join(tmpDir, storeFile),
		BaseURL:    server.URL,
		Keyring:    keyring,
		Getenv:     func(string) string { return "" },
		Stdin:      strings.NewReader(""),
	}

	return &CLITest{
		t:          t,
		cfg:        cfg,
		tmpDir:     tmpDir,
		configPath: configPath,
		keyring:    keyring,
		Server:     server,
	}
}

// Config returns the test configuration.
func (c *CLITest) Config() *cmd.Config {
	return c.cfg
}

// TmpDir returns the temporary directory for the test.
func (c *CLITest) TmpDir() string {
	return c.tmpDir
}

// ConfigPath returns the path to the config file.
func (c *CLITest) ConfigPath() string {
	return c.configPath
}

// StorePath returns the path of the cache store.
func (c *CLITest) StorePath() string {
	return c.cfg.StorePath
}

// NotificationLogPath returns where NewCLITestWithNotification logs notifications.
func (c *CLITest) NotificationLogPath() string {
	return filepath.Join(c.tmpDir, "notifications.log")
}

// Keyring returns the mock keyring holding the session token.
func (c *CLITest) Keyring() *credentials.MockKeyring {
	return c.keyring
}

// Logout removes the stored session token.
func (c *CLITest) Logout() {
	c.t.Helper()
	if err := c.keyring.Delete(credentials.ServiceName, credentials.DefaultAccount); err != nil {
		c.t.Fatalf("failed to delete token: %v", err)
	}
}

// SetStdin sets the input read by prompts and imports.
func (c *CLITest) SetStdin(input string) {
	c.cfg.Stdin = strings.NewReader(input)
}

// SetFullConfig replaces the entire config file with the given YAML content.
func (c *CLITest) SetFullConfig(yamlContent string) {
	c.t.Helper()
	if err := os.WriteFile(c.configPath, []byte(yamlContent), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// OpenStore opens the test's sqlite store directly. The store is closed on cleanup.
func (c *CLITest) OpenStore() backend.Store {
	c.t.Helper()
	store, err := sqlite.New(c.cfg.StorePath)
	if err != nil {
		c.t.Fatalf("failed to open store: %v", err)
	}
	c.t.Cleanup(func() { _ = store.Close() })
	return store
}

// Execute runs a CLI command with the given arguments and returns stdout, stderr, and exit code.
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = cmd.Execute(args, &stdoutBuf, &stderrBuf, c.cfg)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

// MustExecute runs a CLI command and fails the test if exit code is non-zero.
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test if exit code is zero.
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string) {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr
}

// AssertContains fails the test if output doesn't contain expected string.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains fails the test if output contains unexpected string.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// AssertExitCode fails the test if exit code doesn't match expected.
func AssertExitCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}

// AssertResultCode verifies that the output ends with the expected result code.
func AssertResultCode(t *testing.T, output, expectedCode string) {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		t.Errorf("expected result code %q but output is empty", expectedCode)
		return
	}
	lastLine := strings.TrimSpace(lines[len(lines)-1])
	if lastLine != expectedCode {
		t.Errorf("expected result code %q, got %q\nFull output:\n%s", expectedCode, lastLine, output)
	}
}

// Result code constants for convenience.
const (
	ResultActionCompleted = cmd.ResultActionCompleted
	ResultInfoOnly        = cmd.ResultInfoOnly
	ResultError           = cmd.ResultError
)
