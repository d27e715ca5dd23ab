package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/zalando/go-keyring"
)

func noEnv(string) string { return "" }

func envWith(token string) func(string) string {
	return func(key string) string {
		if key == TokenEnvVar {
			return token
		}
		return ""
	}
}

func TestSetGetKeyring(t *testing.T) {
	ctx := context.Background()
	m := NewManager(WithKeyring(NewMockKeyring()), WithEnv(noEnv))

	if err := m.Set(ctx, "  tok-1  "); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	info, err := m.Get(ctx)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !info.Found || info.Source != SourceKeyring || info.Token != "tok-1" || info.Account != DefaultAccount {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestSetRejectsEmptyToken(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()), WithEnv(noEnv))
	if err := m.Set(context.Background(), "   "); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestEnvironmentFallback(t *testing.T) {
	ctx := context.Background()

	m := NewManager(WithKeyring(NewMockKeyring()), WithEnv(envWith("env-tok")))
	info, err := m.Get(ctx)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if info.Source != SourceEnvironment || info.Token != "env-tok" {
		t.Errorf("unexpected info %+v", info)
	}

	// keyring wins over the environment
	if err := m.Set(ctx, "ring-tok"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	info, _ = m.Get(ctx)
	if info.Source != SourceKeyring || info.Token != "ring-tok" {
		t.Errorf("keyring should take priority, got %+v", info)
	}
}

func TestUnavailableKeyringFallsBackToEnv(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring().Unavailable()), WithEnv(envWith("env-tok")))

	token, err := m.Token(context.Background())
	if err != nil || token != "env-tok" {
		t.Errorf("Token = %q, %v", token, err)
	}
}

func TestTokenMissingIsAuthError(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()), WithEnv(noEnv))

	_, err := m.Token(context.Background())
	var authErr *backend.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(WithKeyring(NewMockKeyring()), WithEnv(noEnv), WithAccount("alt"))

	if err := m.Delete(ctx); err != nil {
		t.Errorf("deleting a missing token should succeed: %v", err)
	}
	_ = m.Set(ctx, "tok")
	if err := m.Delete(ctx); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	info, _ := m.Get(ctx)
	if info.Found || info.Account != "alt" {
		t.Errorf("unexpected info after delete %+v", info)
	}
}

func TestCredentialInfoJSONOmitsToken(t *testing.T) {
	info := &CredentialInfo{Source: SourceKeyring, Account: "default", Token: "secret", Found: true}
	data, err := info.JSON()
	if err != nil {
		t.Fatalf("JSON error: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Errorf("token leaked into JSON: %s", data)
	}
	var decoded map[string]any
	_ = json.Unmarshal(data, &decoded)
	if decoded["source"] != "keyring" || decoded["found"] != true {
		t.Errorf("unexpected JSON %s", data)
	}
}

func TestSystemKeyringWithMockProvider(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	m := NewManager(WithEnv(noEnv))

	if err := m.Set(ctx, "sys-tok"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	token, err := m.Token(ctx)
	if err != nil || token != "sys-tok" {
		t.Errorf("Token = %q, %v", token, err)
	}
	if err := m.Delete(ctx); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := (systemKeyring{}).Get(ServiceName, DefaultAccount); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSystemKeyringUnavailableIsWrapped(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus: no session bus"))
	defer keyring.MockInit()

	err := (systemKeyring{}).Set(ServiceName, DefaultAccount, "tok")
	if !errors.Is(err, ErrKeyringNotAvailable) {
		t.Errorf("expected ErrKeyringNotAvailable, got %v", err)
	}
}

type mockTerminalReader struct {
	password   string
	readCalled bool
	err        error
}

func (m *mockTerminalReader) ReadPassword() (string, error) {
	m.readCalled = true
	if m.err != nil {
		return "", m.err
	}
	return m.password, nil
}

func TestPromptTokenWithTTY(t *testing.T) {
	output := &bytes.Buffer{}
	tty := &mockTerminalReader{password: "hidden-token"}

	token, err := PromptTokenWithTTY(nil, output, tty)
	if err != nil {
		t.Fatalf("PromptTokenWithTTY error: %v", err)
	}
	if token != "hidden-token" || !tty.readCalled {
		t.Errorf("token = %q, readCalled = %v", token, tty.readCalled)
	}
	if !strings.Contains(output.String(), "session token") {
		t.Errorf("prompt missing: %q", output.String())
	}
}

func TestPromptTokenPipedInput(t *testing.T) {
	token, err := PromptToken(bytes.NewBufferString("piped-token\n"), &bytes.Buffer{})
	if err != nil || token != "piped-token" {
		t.Errorf("PromptToken = %q, %v", token, err)
	}

	if _, err := PromptToken(bytes.NewBufferString(""), &bytes.Buffer{}); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestCLIHandler(t *testing.T) {
	ctx := context.Background()
	m := NewManager(WithKeyring(NewMockKeyring()), WithEnv(noEnv))
	out := &bytes.Buffer{}
	h := NewCLIHandler(m, bytes.NewBufferString("cli-token\n"), out, nil)

	if err := h.Set(ctx); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if !strings.Contains(out.String(), "stored in system keyring") {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := h.Get(ctx, false); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !strings.Contains(out.String(), "Source: keyring") || strings.Contains(out.String(), "cli-token") {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := h.Delete(ctx); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	out.Reset()
	_ = h.Get(ctx, false)
	if !strings.Contains(out.String(), "No session token found") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestCLIHandlerKeyringUnavailable(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring().Unavailable()), WithEnv(noEnv))
	h := NewCLIHandler(m, bytes.NewBufferString("tok\n"), &bytes.Buffer{}, nil)

	err := h.Set(context.Background())
	if !errors.Is(err, ErrKeyringNotAvailable) || !strings.Contains(err.Error(), TokenEnvVar) {
		t.Errorf("expected keyring guidance, got %v", err)
	}
}
