// Package credentials stores the Laftel session token in the OS keyring
// with fallback to an environment variable.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/DOCHIS/laftel-plus/backend"
)

// ServiceName is the keyring service holding the token
const ServiceName = "laftelplus"

// DefaultAccount is the keyring account used when none is configured
const DefaultAccount = "default"

// TokenEnvVar is consulted when the keyring has no token
const TokenEnvVar = "LAFTELPLUS_TOKEN"

// Source indicates where a token was retrieved from
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

// CredentialInfo describes a token lookup
type CredentialInfo struct {
	Source  Source
	Account string
	Token   string
	Found   bool
}

// JSON serializes the credential info to JSON (token excluded)
func (c *CredentialInfo) JSON() ([]byte, error) {
	return json.Marshal(struct {
		Account string `json:"account"`
		Source  string `json:"source"`
		Found   bool   `json:"found"`
	}{
		Account: c.Account,
		Source:  string(c.Source),
		Found:   c.Found,
	})
}

// Keyring is the interface for keyring operations
type Keyring interface {
	Set(service, account, secret string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Manager handles token operations
type Manager struct {
	keyring Keyring
	account string
	getenv  func(string) string
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) {
		m.keyring = k
	}
}

// WithAccount selects the keyring account
func WithAccount(account string) ManagerOption {
	return func(m *Manager) {
		if account = strings.TrimSpace(account); account != "" {
			m.account = account
		}
	}
}

// WithEnv replaces the environment lookup
func WithEnv(getenv func(string) string) ManagerOption {
	return func(m *Manager) {
		m.getenv = getenv
	}
}

// NewManager creates a new credential manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		keyring: systemKeyring{},
		account: DefaultAccount,
		getenv:  os.Getenv,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Account returns the keyring account in use
func (m *Manager) Account() string {
	return m.account
}

// Set stores the token in the keyring
func (m *Manager) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token must not be empty")
	}
	return m.keyring.Set(ServiceName, m.account, token)
}

// Get retrieves the token from available sources (keyring first, then environment)
func (m *Manager) Get(ctx context.Context) (*CredentialInfo, error) {
	token, err := m.keyring.Get(ServiceName, m.account)
	switch {
	case err == nil && token != "":
		return &CredentialInfo{Source: SourceKeyring, Account: m.account, Token: token, Found: true}, nil
	case err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrKeyringNotAvailable):
		return nil, err
	}

	if token := strings.TrimSpace(m.getenv(TokenEnvVar)); token != "" {
		return &CredentialInfo{Source: SourceEnvironment, Account: m.account, Token: token, Found: true}, nil
	}

	return &CredentialInfo{Source: SourceNone, Account: m.account}, nil
}

// Delete removes the token from the keyring. Deleting a missing token is not an error.
func (m *Manager) Delete(ctx context.Context) error {
	err := m.keyring.Delete(ServiceName, m.account)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Token implements laftel.TokenSource. A missing token yields a *backend.AuthError.
func (m *Manager) Token(ctx context.Context) (string, error) {
	info, err := m.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read session token: %w", err)
	}
	if !info.Found {
		return "", &backend.AuthError{Reason: "no session token in keyring or " + TokenEnvVar}
	}
	return info.Token, nil
}
