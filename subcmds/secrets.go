// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bvk/salesd/telegram"
)

// Secrets holds optional credentials stored in the data directory. Mercado
// Pago and JWT parameters come from the environment instead; see the config
// package.
type Secrets struct {
	Telegram *telegram.Secrets `json:"telegram,omitempty"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("could not parse secrets file %q: %w", fpath, err)
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Secrets) Check() error {
	if s.Telegram != nil {
		if err := s.Telegram.Check(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Secrets) WriteFile(fpath string) error {
	js, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fpath, js, os.FileMode(0600))
}
