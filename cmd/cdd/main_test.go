package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/squadracorsepolito/cdd/device"
	"github.com/squadracorsepolito/cdd/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, capacity int) string {
	t.Helper()

	devCfg := device.NewDefaultConfig()
	devCfg.Capacity = capacity

	dev, err := device.New(devCfg)
	require.NoError(t, err)

	srvCfg := server.NewDefaultConfig()
	srvCfg.Address = filepath.Join(t.TempDir(), "cdd.sock")

	srv := server.NewServer(dev, srvCfg)

	ctx, cancelCtx := context.WithCancel(context.Background())
	require.NoError(t, srv.Init(ctx))

	go srv.Run(ctx)

	t.Cleanup(func() {
		cancelCtx()
		srv.Stop()
	})

	return srvCfg.Address
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetOut(out)
	cmd.SetErr(out)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func Test_Commands_WriteRead(t *testing.T) {
	assert := assert.New(t)

	address := startTestServer(t, 8)

	out, err := execute(t, "", "write", "--address", address, "hello world")
	require.NoError(t, err)
	assert.Equal("8/11 bytes accepted\n", out)

	out, err = execute(t, "", "read", "--address", address, "5")
	require.NoError(t, err)
	assert.Equal("hello", out)

	out, err = execute(t, "", "read", "--address", address, "100")
	require.NoError(t, err)
	assert.Equal(" wo", out)

	out, err = execute(t, "", "read", "--address", address, "100")
	require.NoError(t, err)
	assert.Empty(out)
}

func Test_Commands_WriteStdin(t *testing.T) {
	address := startTestServer(t, 16)

	out, err := execute(t, "from stdin", "write", "--address", address)
	require.NoError(t, err)
	assert.Equal(t, "10/10 bytes accepted\n", out)
}

func Test_Commands_ServeInvalidStatsInterval(t *testing.T) {
	address := filepath.Join(t.TempDir(), "cdd.sock")

	for _, interval := range []string{"0s", "-1s"} {
		_, err := execute(t, "", "serve", "--address", address, "--stats-interval", interval)
		assert.ErrorContains(t, err, "invalid stats interval")
	}
}

func Test_Commands_DefaultFlags(t *testing.T) {
	assert := assert.New(t)

	defaultCfg := server.NewDefaultConfig()
	flags := newRootCmd().PersistentFlags()

	network, err := flags.GetString("network")
	require.NoError(t, err)
	assert.Equal(defaultCfg.Network, network)

	address, err := flags.GetString("address")
	require.NoError(t, err)
	assert.Equal(defaultCfg.Address, address)

	maxFrameSize, err := flags.GetInt("max-frame-size")
	require.NoError(t, err)
	assert.Equal(defaultCfg.MaxFrameSize, maxFrameSize)
}

func Test_Commands_InvalidLength(t *testing.T) {
	_, err := execute(t, "", "read", "abc")
	assert.ErrorContains(t, err, "invalid length")
}
