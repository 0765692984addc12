package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/squadracorsepolito/cdd/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cdd",
		Short:         "A ring-buffered byte device served over a socket",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultCfg := server.NewDefaultConfig()

	flags := rootCmd.PersistentFlags()
	flags.String("network", defaultCfg.Network, "network of the device socket (unix or tcp)")
	flags.String("address", defaultCfg.Address, "address of the device socket")
	flags.Int("max-frame-size", defaultCfg.MaxFrameSize, "largest request or response payload")
	flags.Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(),
		newReadCmd(),
		newWriteCmd(),
	)

	return rootCmd
}
