package bittrex

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeHub struct {
	mu       sync.Mutex
	calls    []string
	state    string
	err      error
	messages chan []byte
	// when set, Invoke blocks until it is closed
	gate chan struct{}
}

func newFakeHub() *fakeHub {
	return &fakeHub{messages: make(chan []byte, 8)}
}

func (h *fakeHub) Invoke(_ context.Context, method string, args ...interface{}) (gjson.Result, error) {
	h.mu.Lock()
	h.calls = append(h.calls, method+":"+args[0].(string))
	gate := h.gate
	h.mu.Unlock()

	if gate != nil {
		<-gate
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return gjson.Result{}, h.err
	}
	if method == queryStateMethod {
		return gjson.Parse(strconv.Quote(h.state)), nil
	}
	return gjson.Parse("true"), nil
}

func (h *fakeHub) Messages() <-chan []byte {
	return h.messages
}

func (h *fakeHub) invoked() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func ltcBtc(t *testing.T) *domain.MarketSymbol {
	symbol, err := domain.NewMarketSymbol("ltc", "btc")
	require.NoError(t, err)
	return symbol
}

func TestBittrexStreamAPI_OrderBookSnapshot(t *testing.T) {
	hub := newFakeHub()
	state, err := encodePayload([]byte(`{
		"M": "BTC-LTC", "N": 4412,
		"Z": [{"Q": 1.5, "R": 0.0101}, {"Q": 2, "R": 0.0102}, {"Q": 0, "R": 0.0090}],
		"S": [{"Q": 3, "R": 0.0105}, {"Q": 1, "R": 0.0104}]
	}`))
	require.NoError(t, err)
	hub.state = state

	api := NewBittrexStreamAPI(hub)
	defer api.Close()

	snapshot, err := api.OrderBookSnapshot(context.Background(), ltcBtc(t), 1)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderBookSource_Provider, snapshot.Source)
	assert.Equal(t, int64(4412), snapshot.Nonce)
	require.Len(t, snapshot.Bids, 1)
	require.Len(t, snapshot.Asks, 1)
	assert.Equal(t, "0.0102", snapshot.Bids[0].Price.String())
	assert.Equal(t, "0.0104", snapshot.Asks[0].Price.String())
	assert.Equal(t, []string{"QueryExchangeState:BTC-LTC"}, hub.invoked())
}

func TestBittrexStreamAPI_OrderBookSnapshotErrors(t *testing.T) {
	hub := newFakeHub()
	hub.err = errors.New("socket closed")
	api := NewBittrexStreamAPI(hub)
	defer api.Close()

	_, err := api.OrderBookSnapshot(context.Background(), ltcBtc(t), 0)
	assert.True(t, domain.IsTransport(err))

	hub.err = nil
	hub.state = "not a payload"
	_, err = api.OrderBookSnapshot(context.Background(), ltcBtc(t), 0)
	assert.True(t, domain.IsTransport(err))
}

func TestBittrexStreamAPI_DepthDiffStream(t *testing.T) {
	hub := newFakeHub()
	api := NewBittrexStreamAPI(hub)
	defer api.Close()

	first, err := api.DepthDiffStream(ltcBtc(t))
	require.NoError(t, err)
	second, err := api.DepthDiffStream(ltcBtc(t))
	require.NoError(t, err)

	assert.Equal(t, "BTC-LTC", first.Topic)
	assert.Equal(t, []string{"SubscribeToExchangeDeltas:BTC-LTC"}, hub.invoked(), "one hub subscription per market")

	payload, err := json.Marshal(map[string]interface{}{
		"M": "BTC-LTC",
		"N": 7,
		"Z": []map[string]interface{}{{"TY": 0, "Q": 1, "R": 0.01}},
		"S": []map[string]interface{}{{"TY": 1, "Q": 0, "R": 0.02}},
		"f": []interface{}{},
	})
	require.NoError(t, err)
	hub.messages <- payload

	for _, sub := range []*domain.Subscription[*domain.OrderBookDelta]{first, second} {
		select {
		case delta := <-sub.Stream:
			assert.Equal(t, int64(7), delta.Nonce)
			require.Len(t, delta.Changes, 2)
			assert.Equal(t, domain.Bid, delta.Changes[0].Side)
			assert.Equal(t, domain.ChangeNew, delta.Changes[0].Kind)
			assert.Equal(t, domain.Ask, delta.Changes[1].Side)
			assert.Equal(t, domain.ChangeRemove, delta.Changes[1].Kind)
		case <-time.After(time.Second):
			t.Fatal("delta was not routed")
		}
	}

	first.Unsubscribe()
	_, open := <-first.Stream
	assert.False(t, open)
}

func TestBittrexStreamAPI_DropsInvalidDeltas(t *testing.T) {
	hub := newFakeHub()
	api := NewBittrexStreamAPI(hub)
	defer api.Close()

	sub, err := api.DepthDiffStream(ltcBtc(t))
	require.NoError(t, err)

	hub.messages <- []byte(`{"M":"BTC-LTC","N":1,"Z":[{"TY":9,"Q":1,"R":1}],"S":[]}`)
	hub.messages <- []byte(`not json`)
	hub.messages <- []byte(`{"M":"BTC-ETH","N":1,"Z":[],"S":[]}`)
	hub.messages <- []byte(`{"M":"BTC-LTC","N":2,"Z":[{"TY":2,"Q":1,"R":1}],"S":[]}`)

	select {
	case delta := <-sub.Stream:
		assert.Equal(t, int64(2), delta.Nonce)
	case <-time.After(time.Second):
		t.Fatal("valid delta was not routed")
	}
}

func TestBittrexStreamAPI_Resubscribe(t *testing.T) {
	hub := newFakeHub()
	api := NewBittrexStreamAPI(hub)
	defer api.Close()

	_, err := api.DepthDiffStream(ltcBtc(t))
	require.NoError(t, err)

	require.NoError(t, api.Resubscribe())
	assert.Len(t, hub.invoked(), 2)
}

func TestBittrexStreamAPI_SubscribeError(t *testing.T) {
	hub := newFakeHub()
	hub.err = errors.New("not connected")
	api := NewBittrexStreamAPI(hub)
	defer api.Close()

	_, err := api.DepthDiffStream(ltcBtc(t))
	assert.True(t, domain.IsTransport(err))

	// the failed market is not kept for resubscription
	hub.err = nil
	require.NoError(t, api.Resubscribe())
	assert.Len(t, hub.invoked(), 1)
}

func TestBittrexStreamAPI_ConcurrentSubscribersShareFailure(t *testing.T) {
	hub := newFakeHub()
	hub.gate = make(chan struct{})
	hub.err = errors.New("hub down")

	api := NewBittrexStreamAPI(hub)
	defer api.Close()

	symbol := ltcBtc(t)
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := api.DepthDiffStream(symbol)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return len(hub.invoked()) == 1 }, time.Second, 5*time.Millisecond)
	// let the second subscriber reach the pending entry
	time.Sleep(50 * time.Millisecond)
	close(hub.gate)

	for i := 0; i < 2; i++ {
		assert.True(t, domain.IsTransport(<-errs), "every waiter sees the failed subscribe")
	}
	assert.Len(t, hub.invoked(), 1)

	// the failed market is not left registered
	hub.mu.Lock()
	hub.err = nil
	hub.mu.Unlock()

	sub, err := api.DepthDiffStream(symbol)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.Len(t, hub.invoked(), 2)
}

func TestBittrexStreamAPI_ClosedMessagesCloseSubscribers(t *testing.T) {
	hub := newFakeHub()
	api := NewBittrexStreamAPI(hub)
	defer api.Close()

	sub, err := api.DepthDiffStream(ltcBtc(t))
	require.NoError(t, err)

	close(hub.messages)

	select {
	case _, open := <-sub.Stream:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscriber was not closed")
	}
}
