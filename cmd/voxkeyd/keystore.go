// cmd/voxkeyd/keystore.go
package main

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "VoxKey"
	keyringAPIKey  = "deepgramApiKey"
)

var errNoAPIKey = errors.New("no API key provided and none stored; set one with PUT /v1/key")

func storeAPIKey(key string) error {
	if err := keyring.Set(keyringService, keyringAPIKey, key); err != nil {
		return err
	}
	addSecret(key)
	return nil
}

func loadAPIKey() (string, error) {
	key, err := keyring.Get(keyringService, keyringAPIKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	addSecret(key)
	return key, nil
}

func clearAPIKey() error {
	err := keyring.Delete(keyringService, keyringAPIKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// resolveAPIKey prefers the caller-supplied credential, then the keychain.
func resolveAPIKey(explicit string) (string, error) {
	if explicit != "" {
		addSecret(explicit)
		return explicit, nil
	}
	key, err := loadAPIKey()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errNoAPIKey
	}
	return key, nil
}
