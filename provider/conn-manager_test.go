package provider

import (
	"testing"

	"github.com/spooky-finn/go-bittrex-bridge/provider/bittrex"
	"github.com/stretchr/testify/assert"
)

func TestConnectionManager(t *testing.T) {
	cm := NewConnectionManager(bittrex.Options{}, "wss://socket.bittrex.com/signalr")
	defer cm.Close()

	assert.NotNil(t, cm.BittrexSyncAPI)
	assert.Same(t, cm.BittrexStreamAPI, cm.StreamAPI())
	assert.Same(t, cm.BittrexStreamAPI, cm.SyncAPI(), "snapshots come from the socket")
}
