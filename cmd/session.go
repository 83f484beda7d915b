package main

import (
	"os"
	"path/filepath"
	"strings"

	"crescer/internal/auth"

	"github.com/pkg/errors"
)

var ErrNoSession = errors.New("no session found, run 'crescer login' first")

func saveSession(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}
	return errors.Wrap(os.WriteFile(path, []byte(token+"\n"), 0o600), "failed to write session file")
}

// loadSession returns the claims of the token saved by login or register.
func loadSession(path string, tokens *auth.Tokens) (auth.Claims, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return auth.Claims{}, ErrNoSession
		}
		return auth.Claims{}, errors.Wrap(err, "failed to read session file")
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return auth.Claims{}, ErrNoSession
	}
	return tokens.Parse(token)
}

func clearSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove session file")
	}
	return nil
}
