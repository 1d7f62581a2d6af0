// Package secret keeps the loopback API token in the OS keychain, falling
// back to a private JSON file where no keychain is available.
package secret

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/zalando/go-keyring"
)

const (
	DefaultService = "dnd-master-desktop"
	tokenAccount   = "api-token"
)

// ErrNotFound is returned when no secret is stored under a name.
var ErrNotFound = keyring.ErrNotFound

type KeyringStore struct {
	service      string
	fallbackPath string
	mu           sync.Mutex
}

// NewKeyringStore returns a store for service. fallbackPath may be empty, in
// which case a missing keychain is an error.
func NewKeyringStore(service, fallbackPath string) *KeyringStore {
	if strings.TrimSpace(service) == "" {
		service = DefaultService
	}
	return &KeyringStore{service: service, fallbackPath: fallbackPath}
}

// ResolveToken returns configured when set. Otherwise it returns the stored
// token, generating and storing one on first use.
func (k *KeyringStore) ResolveToken(configured string) (string, error) {
	if t := strings.TrimSpace(configured); t != "" {
		return t, nil
	}
	tok, err := k.Get(tokenAccount)
	if err == nil && tok != "" {
		return tok, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	return k.RotateToken()
}

// RotateToken stores and returns a fresh random token.
func (k *KeyringStore) RotateToken() (string, error) {
	tok := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := k.Set(tokenAccount, tok); err != nil {
		return "", err
	}
	return tok, nil
}

func (k *KeyringStore) Set(name, value string) error {
	err := keyring.Set(k.service, name, value)
	if err == nil {
		return nil
	}
	if !isKeyringUnavailable(err) {
		return fmt.Errorf("secret: keyring set %s: %w", name, err)
	}
	return k.setFallback(name, value)
}

func (k *KeyringStore) Get(name string) (string, error) {
	val, err := keyring.Get(k.service, name)
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("secret: keyring get %s: %w", name, err)
	}

	fallback, ferr := k.getFallback(name)
	if ferr == nil {
		return fallback, nil
	}
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(ferr, ErrNotFound) {
		return "", ErrNotFound
	}
	return "", ferr
}

// Delete removes name from both the keychain and the fallback file.
func (k *KeyringStore) Delete(name string) error {
	kerr := keyring.Delete(k.service, name)
	if kerr != nil && (errors.Is(kerr, keyring.ErrNotFound) || isKeyringUnavailable(kerr)) {
		kerr = nil
	}
	ferr := k.deleteFallback(name)
	if kerr != nil {
		return fmt.Errorf("secret: keyring delete %s: %w", name, kerr)
	}
	return ferr
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

func (k *KeyringStore) setFallback(name, value string) error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return errors.New("secret: keyring unavailable and no fallback path configured")
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := k.readFallback()
	if err != nil {
		return err
	}
	data[name] = value
	return k.writeFallback(data)
}

func (k *KeyringStore) getFallback(name string) (string, error) {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return "", errors.New("secret: fallback path not configured")
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := k.readFallback()
	if err != nil {
		return "", err
	}
	val, ok := data[name]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (k *KeyringStore) deleteFallback(name string) error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return nil
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := k.readFallback()
	if err != nil {
		return err
	}
	if _, ok := data[name]; !ok {
		return nil
	}
	delete(data, name)
	return k.writeFallback(data)
}

func (k *KeyringStore) readFallback() (map[string]string, error) {
	out := map[string]string{}
	raw, err := os.ReadFile(k.fallbackPath)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("secret: read fallback: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("secret: decode fallback: %w", err)
	}
	return out, nil
}

func (k *KeyringStore) writeFallback(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(k.fallbackPath), 0o700); err != nil {
		return fmt.Errorf("secret: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("secret: encode fallback: %w", err)
	}
	if err := os.WriteFile(k.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("secret: write fallback: %w", err)
	}
	return nil
}
