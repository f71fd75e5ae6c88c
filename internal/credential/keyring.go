package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "dropscan"

// Keyring stores portal passwords in the OS keyring.
type Keyring struct {
	ring keyring.Keyring
}

// OpenKeyring opens the OS keyring. fileDir is used by the encrypted file
// backend on systems without a native keyring.
func OpenKeyring(fileDir string) (*Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("dropscan-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Keyring{ring: ring}, nil
}

// NewKeyring wraps an already opened keyring.
func NewKeyring(ring keyring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

// Password returns the stored password for user, "" if none is stored.
func (k *Keyring) Password(user string) (string, error) {
	item, err := k.ring.Get(user)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("getting password for %q: %w", user, err)
	}
	return string(item.Data), nil
}

// SetPassword stores the password for user.
func (k *Keyring) SetPassword(user, password string) error {
	err := k.ring.Set(keyring.Item{
		Key:   user,
		Data:  []byte(password),
		Label: serviceName + " portal login",
	})
	if err != nil {
		return fmt.Errorf("setting password for %q: %w", user, err)
	}
	return nil
}

// DeletePassword removes the stored password for user.
func (k *Keyring) DeletePassword(user string) error {
	if err := k.ring.Remove(user); err != nil {
		return fmt.Errorf("deleting password for %q: %w", user, err)
	}
	return nil
}
