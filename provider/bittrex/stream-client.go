package bittrex

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/recws-org/recws"
	"github.com/tidwall/gjson"
)

const (
	hubName          = "c2"
	pushDeltaMethod  = "uE"
	handshakeTimeout = 5 * time.Second
	keepAliveTimeout = time.Minute
	readRetryDelay   = 100 * time.Millisecond
	messageBuffer    = 256
)

var ErrNotConnected = errors.New("socket is not connected")

type hubRequest struct {
	Hub    string        `json:"H"`
	Method string        `json:"M"`
	Args   []interface{} `json:"A"`
	ID     string        `json:"I"`
}

type invocationResult struct {
	result gjson.Result
	err    error
}

// BittrexStreamClient speaks the hub protocol over a reconnecting socket.
// Invocation responses are matched by id; pushed exchange deltas are
// inflated and published on Messages.
type BittrexStreamClient struct {
	url              string
	conn             *recws.RecConn
	handshakeTimeout time.Duration

	writeMu  sync.Mutex
	mu       sync.Mutex
	pending  map[string]chan invocationResult
	nextID   atomic.Int64
	messages chan []byte

	// replayed after every reconnect
	onReconnect func() error

	done     chan struct{}
	stopOnce sync.Once
}

func NewBittrexStreamClient(url string) *BittrexStreamClient {
	return &BittrexStreamClient{
		url:              url,
		handshakeTimeout: handshakeTimeout,
		pending:          make(map[string]chan invocationResult),
		messages:         make(chan []byte, messageBuffer),
		done:             make(chan struct{}),
	}
}

// OnReconnect registers the hook that restores subscriptions after the
// socket reconnects.
func (c *BittrexStreamClient) OnReconnect(fn func() error) {
	c.onReconnect = fn
}

func (c *BittrexStreamClient) Connect() error {
	conn := &recws.RecConn{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.handshakeTimeout,
		KeepAliveTimeout: keepAliveTimeout,
		NonVerbose:       true,
		SubscribeHandler: func() error {
			if c.onReconnect == nil {
				return nil
			}
			// the handler runs inside Dial, invocations need the read loop
			go func() {
				if err := c.onReconnect(); err != nil {
					logger.Errorf("restoring subscriptions failed: %s", err)
				}
			}()
			return nil
		},
	}

	conn.Dial(c.url, nil)
	c.conn = conn

	go c.read()
	logger.Infof("connected to the bittrex stream %s", c.url)

	return nil
}

func (c *BittrexStreamClient) Close() error {
	c.stopOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
	return nil
}

// Messages carries the inflated payload of every pushed exchange delta.
func (c *BittrexStreamClient) Messages() <-chan []byte {
	return c.messages
}

// Invoke calls a hub method and waits for its result.
func (c *BittrexStreamClient) Invoke(ctx context.Context, method string, args ...interface{}) (gjson.Result, error) {
	if c.conn == nil || !c.conn.IsConnected() {
		return gjson.Result{}, ErrNotConnected
	}

	id := strconv.FormatInt(c.nextID.Add(1), 10)
	ch := make(chan invocationResult, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if args == nil {
		args = []interface{}{}
	}

	c.writeMu.Lock()
	err := c.conn.WriteJSON(hubRequest{Hub: hubName, Method: method, Args: args, ID: id})
	c.writeMu.Unlock()
	if err != nil {
		return gjson.Result{}, errors.Wrapf(err, "invoke %s", method)
	}

	select {
	case res := <-ch:
		return res.result, res.err
	case <-ctx.Done():
		return gjson.Result{}, ctx.Err()
	case <-c.done:
		return gjson.Result{}, ErrNotConnected
	}
}

func (c *BittrexStreamClient) read() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			time.Sleep(readRetryDelay)
			continue
		}

		c.dispatch(msg)
	}
}

func (c *BittrexStreamClient) dispatch(msg []byte) {
	if !gjson.ValidBytes(msg) {
		logger.Warnf("dropping malformed frame: %s", msg)
		return
	}
	frame := gjson.ParseBytes(msg)

	// invocation response
	if id := frame.Get("I"); id.Exists() {
		c.mu.Lock()
		ch, ok := c.pending[id.String()]
		c.mu.Unlock()
		if !ok {
			return
		}

		if e := frame.Get("E"); e.Exists() && e.String() != "" {
			ch <- invocationResult{err: errors.Errorf("hub error: %s", e.String())}
			return
		}
		ch <- invocationResult{result: frame.Get("R")}
		return
	}

	// pushed messages
	for _, m := range frame.Get("M").Array() {
		if m.Get("M").String() != pushDeltaMethod {
			continue
		}

		for _, arg := range m.Get("A").Array() {
			payload, err := decodePayload(arg.String())
			if err != nil {
				logger.Warnf("dropping undecodable delta: %s", err)
				continue
			}

			select {
			case c.messages <- payload:
			case <-c.done:
				return
			}
		}
	}
}
