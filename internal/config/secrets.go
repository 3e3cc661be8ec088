package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// SeedPassword returns the keyring password stored for user. A missing entry
// is not an error: the seed is then fetched without credentials.
func SeedPassword(user string) (string, error) {
	if user == "" {
		return "", nil
	}
	pass, err := keyring.Get(KeyringService, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrKeyring, err)
	}
	return pass, nil
}

// StoreSeedPassword saves pass for user in the OS keyring.
func StoreSeedPassword(user, pass string) error {
	if user == "" {
		return errors.New(ErrSeedUserMissing)
	}
	if err := keyring.Set(KeyringService, user, pass); err != nil {
		return fmt.Errorf("%s: %w", ErrKeyring, err)
	}
	return nil
}
