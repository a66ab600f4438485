package ipc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socketPath(t *testing.T) string {
	// unix socket paths are short; TempDir names can exceed the limit
	dir, err := os.MkdirTemp("", "riya")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "ctl.sock")
}

func TestControlRoundTrip(t *testing.T) {
	path := socketPath(t)
	got := make(chan ControlMessage, 1)

	srv, err := StartServer(path, func(m ControlMessage) error {
		got <- m
		if m.Cmd == "bogus" {
			return errors.New("unknown command bogus")
		}
		return nil
	})
	require.NoError(t, err)
	defer srv.Close()

	require.NoError(t, SendCommand(path, ControlMessage{Cmd: CmdSay, Text: "hello there"}))
	assert.Equal(t, ControlMessage{Cmd: CmdSay, Text: "hello there"}, <-got)

	err = SendCommand(path, ControlMessage{Cmd: "bogus"})
	require.Error(t, err)
	assert.Equal(t, "unknown command bogus", err.Error())
	<-got
}

func TestStartServer_ReplacesStaleSocket(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv, err := StartServer(path, func(ControlMessage) error { return nil })
	require.NoError(t, err)
	require.NoError(t, SendCommand(path, ControlMessage{Cmd: CmdStop}))

	require.NoError(t, srv.Close())
	assert.NoFileExists(t, path)
	assert.Error(t, SendCommand(path, ControlMessage{Cmd: CmdStop}))
}
