package ipc

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")

	srv, err := StartServer(path, func(msg ControlMessage) ControlReply {
		switch msg.Cmd {
		case "say":
			return ControlReply{OK: true, Text: strings.ToUpper(msg.Text)}
		default:
			return ControlReply{Text: "unknown command " + msg.Cmd}
		}
	})
	require.NoError(t, err)
	defer srv.Close()

	reply, err := Send(path, ControlMessage{Cmd: "say", Text: "show cart"})
	require.NoError(t, err)
	assert.Equal(t, ControlReply{OK: true, Text: "SHOW CART"}, reply)

	reply, err = Send(path, ControlMessage{Cmd: "dance"})
	require.NoError(t, err)
	assert.False(t, reply.OK)
}

func TestStaleSocketIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")
	echo := func(msg ControlMessage) ControlReply { return ControlReply{OK: true} }

	first, err := StartServer(path, echo)
	require.NoError(t, err)
	first.ln.Close()

	second, err := StartServer(path, echo)
	require.NoError(t, err)
	defer second.Close()

	_, err = Send(path, ControlMessage{Cmd: "status"})
	assert.NoError(t, err)
}

func TestSendWithoutDaemon(t *testing.T) {
	_, err := Send(filepath.Join(t.TempDir(), "none.sock"), ControlMessage{Cmd: "status"})
	assert.Error(t, err)
}
