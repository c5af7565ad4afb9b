package provider

import (
	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/spooky-finn/go-bittrex-bridge/provider/bittrex"
)

var logger = logrus.WithField("scope", "conn-manager")

// ConnectionManager owns the Bittrex gateways: the REST api and the socket
// stream with its reconnect wiring.
type ConnectionManager struct {
	BittrexWS        *bittrex.BittrexStreamClient
	BittrexSyncAPI   *bittrex.BittrexSyncAPI
	BittrexStreamAPI *bittrex.BittrexStreamAPI
}

func NewConnectionManager(opts bittrex.Options, wsURL string) *ConnectionManager {
	streamClient := bittrex.NewBittrexStreamClient(wsURL)
	streamAPI := bittrex.NewBittrexStreamAPI(streamClient)
	streamClient.OnReconnect(streamAPI.Resubscribe)

	return &ConnectionManager{
		BittrexWS:        streamClient,
		BittrexSyncAPI:   bittrex.NewBittrexSyncAPI(opts),
		BittrexStreamAPI: streamAPI,
	}
}

func (cm *ConnectionManager) Init() error {
	if err := cm.BittrexWS.Connect(); err != nil {
		logger.Errorf("failed to connect to bittrex ws: %s", err)
		return err
	}
	return nil
}

// StreamAPI serves delta subscriptions.
func (cm *ConnectionManager) StreamAPI() domain.ProviderStreamAPI {
	return cm.BittrexStreamAPI
}

// SyncAPI serves nonce-stamped snapshots. They come from the socket, the
// REST depth carries no nonce.
func (cm *ConnectionManager) SyncAPI() domain.ProviderSyncAPI {
	return cm.BittrexStreamAPI
}

func (cm *ConnectionManager) Close() {
	cm.BittrexStreamAPI.Close()
	if err := cm.BittrexWS.Close(); err != nil {
		logger.Warnf("closing bittrex ws: %s", err)
	}
}
