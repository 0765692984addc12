package server

import (
	"errors"
	"fmt"

	"github.com/squadracorsepolito/cdd/wire"
)

type Config struct {
	// Network is either "unix" or "tcp".
	Network string
	Address string

	// MaxFrameSize bounds the payload of a single request or response.
	MaxFrameSize int
}

func NewDefaultConfig() *Config {
	return &Config{
		Network: "unix",
		Address: "/tmp/cdd.sock",

		MaxFrameSize: wire.DefaultMaxFrameSize,
	}
}

func (cfg *Config) validate() error {
	switch cfg.Network {
	case "unix", "tcp", "tcp4", "tcp6":
	default:
		return fmt.Errorf("server: unsupported network %q", cfg.Network)
	}

	if cfg.Address == "" {
		return errors.New("server: empty address")
	}

	if cfg.MaxFrameSize < 1 {
		return fmt.Errorf("server: invalid max frame size %d", cfg.MaxFrameSize)
	}

	return nil
}
