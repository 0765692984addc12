package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/squadracorsepolito/cdd/device"
	"github.com/squadracorsepolito/cdd/internal"
	"github.com/squadracorsepolito/cdd/questdb"
	"github.com/squadracorsepolito/cdd/server"
	"github.com/squadracorsepolito/cdd/telemetry"
)

type serveOptions struct {
	devCfg    *device.Config
	serverCfg *server.Config
	qdbCfg    *questdb.Config

	otel          bool
	statsInterval time.Duration
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{
		devCfg:    device.NewDefaultConfig(),
		serverCfg: server.NewDefaultConfig(),
		qdbCfg:    questdb.NewDefaultConfig(),
	}
	opts.qdbCfg.Address = ""

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Create the device and serve sessions until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyGlobalFlags(cmd, opts.serverCfg); err != nil {
				return err
			}
			return runServe(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.devCfg.Name, "name", opts.devCfg.Name, "name of the device")
	flags.IntVar(&opts.devCfg.Capacity, "capacity", opts.devCfg.Capacity, "capacity in bytes of the device buffer")
	flags.BoolVar(&opts.otel, "otel", false, "export traces and metrics over OTLP")
	flags.StringVar(&opts.qdbCfg.Address, "questdb-addr", "", "QuestDB HTTP address for the stats, disabled if empty")
	flags.StringVar(&opts.qdbCfg.Table, "questdb-table", opts.qdbCfg.Table, "QuestDB table for the stats")
	flags.DurationVar(&opts.statsInterval, "stats-interval", 10*time.Second, "interval between stats reports")

	return cmd
}

func applyGlobalFlags(cmd *cobra.Command, serverCfg *server.Config) error {
	flags := cmd.Flags()

	network, err := flags.GetString("network")
	if err != nil {
		return err
	}
	address, err := flags.GetString("address")
	if err != nil {
		return err
	}
	maxFrameSize, err := flags.GetInt("max-frame-size")
	if err != nil {
		return err
	}
	debug, err := flags.GetBool("debug")
	if err != nil {
		return err
	}

	serverCfg.Network = network
	serverCfg.Address = address
	serverCfg.MaxFrameSize = maxFrameSize

	if debug {
		internal.SetLogLevel(slog.LevelDebug)
	}

	return nil
}

func runServe(parentCtx context.Context, opts *serveOptions) error {
	if opts.statsInterval <= 0 {
		return fmt.Errorf("invalid stats interval %s: must be positive", opts.statsInterval)
	}

	ctx, cancelCtx := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancelCtx()

	l := internal.NewLogger("cmd", "serve")

	if opts.otel {
		providers, err := telemetry.Init(ctx, telemetry.NewDefaultConfig())
		if err != nil {
			return err
		}

		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()

			if err := providers.Close(shutdownCtx); err != nil {
				l.Error("failed to close telemetry", err)
			}
		}()
	}

	dev, err := device.New(opts.devCfg)
	if err != nil {
		return err
	}
	defer dev.Shutdown()

	if opts.qdbCfg.Address != "" {
		sink := questdb.NewSink(dev.Name(), opts.qdbCfg)
		if err := sink.Init(ctx); err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(context.Background()); err != nil {
				l.Error("failed to close questdb sink", err)
			}
		}()

		dev.Stats().AddSink(sink)
	}

	srv := server.NewServer(dev, opts.serverCfg)
	if err := srv.Init(ctx); err != nil {
		return err
	}

	l.Info("serving device",
		"name", dev.Name(),
		"capacity", humanize.Bytes(uint64(dev.Capacity())),
		"address", srv.Addr().String(),
	)

	go dev.RunStats(ctx, opts.statsInterval)

	go srv.Run(ctx)
	defer srv.Stop()

	<-ctx.Done()

	return nil
}
