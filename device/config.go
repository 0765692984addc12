package device

import (
	"errors"
	"fmt"

	"github.com/squadracorsepolito/cdd/internal/rb"
)

type Config struct {
	// Name identifies the device in logs and metrics.
	Name string
	// Capacity is the size in bytes of the device buffer.
	Capacity int
}

func NewDefaultConfig() *Config {
	return &Config{
		Name:     "cdd",
		Capacity: rb.DefaultCapacity,
	}
}

func (cfg *Config) validate() error {
	if cfg.Name == "" {
		return errors.New("device: empty name")
	}

	if cfg.Capacity < 1 {
		return fmt.Errorf("device: invalid capacity %d", cfg.Capacity)
	}

	return nil
}
