package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/squadracorsepolito/cdd/client"
	"github.com/squadracorsepolito/cdd/server"
)

const dialTimeout = 5 * time.Second

func dial(cmd *cobra.Command) (*client.Client, error) {
	cfg := server.NewDefaultConfig()
	if err := applyGlobalFlags(cmd, cfg); err != nil {
		return nil, err
	}

	ctx, cancelCtx := context.WithTimeout(cmd.Context(), dialTimeout)
	defer cancelCtx()

	c, err := client.Dial(ctx, cfg.Network, cfg.Address)
	if err != nil {
		return nil, err
	}
	c.SetMaxFrameSize(cfg.MaxFrameSize)

	return c, nil
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <length>",
		Short: "Read up to length bytes from the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			length, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid length %q: %w", args[0], err)
			}

			c, err := dial(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			payload, err := c.Read(length)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(payload)
			return err
		},
	}
}

func newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write [text]",
		Short: "Write text, or stdin when omitted, to the device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload []byte
			if len(args) == 1 {
				payload = []byte(args[0])
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				payload = data
			}

			c, err := dial(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			accepted, err := c.Write(payload)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d bytes accepted\n", accepted, len(payload))

			return nil
		},
	}
}
