package bittrex

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/spooky-finn/go-bittrex-bridge/helpers"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
)

var logger = logrus.WithField("scope", "bittrex")

const (
	DefaultBaseURL  = "https://bittrex.com/api/v1.1"
	DefaultBaseURL2 = "https://bittrex.com/api/v2.0"
	defaultTimeout  = 10 * time.Second
)

var ErrMissingCredentials = errors.New("api key and secret are required")

type Options struct {
	APIKey    string
	APISecret string
	BaseURL   string
	BaseURL2  string
	Timeout   time.Duration
}

// BittrexSyncAPI is the REST gateway. Authenticated calls carry the api key
// and nonce in the query and sign the full url.
type BittrexSyncAPI struct {
	client    *fasthttp.Client
	opts      Options
	lastNonce atomic.Int64
}

func NewBittrexSyncAPI(opts Options) *BittrexSyncAPI {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.BaseURL2 == "" {
		opts.BaseURL2 = DefaultBaseURL2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	return &BittrexSyncAPI{
		client: &fasthttp.Client{
			Name:                "go-bittrex-bridge",
			MaxIdleConnDuration: time.Minute,
		},
		opts: opts,
	}
}

// nonce is strictly increasing even for calls within the same nanosecond.
func (api *BittrexSyncAPI) nonce() int64 {
	for {
		last := api.lastNonce.Load()
		next := time.Now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if api.lastNonce.CompareAndSwap(last, next) {
			return next
		}
	}
}

func (api *BittrexSyncAPI) public(ctx context.Context, op, path string, query url.Values) (gjson.Result, error) {
	return api.do(ctx, op, api.opts.BaseURL, path, query, false)
}

func (api *BittrexSyncAPI) publicV2(ctx context.Context, op, path string, query url.Values) (gjson.Result, error) {
	return api.do(ctx, op, api.opts.BaseURL2, path, query, false)
}

func (api *BittrexSyncAPI) private(ctx context.Context, op, path string, query url.Values) (gjson.Result, error) {
	if api.opts.APIKey == "" || api.opts.APISecret == "" {
		return gjson.Result{}, domain.NewTransportError(op, ErrMissingCredentials)
	}
	return api.do(ctx, op, api.opts.BaseURL, path, query, true)
}

func (api *BittrexSyncAPI) do(
	ctx context.Context, op, base, path string, query url.Values, signed bool,
) (gjson.Result, error) {
	if err := ctx.Err(); err != nil {
		return gjson.Result{}, domain.NewTransportError(op, err)
	}

	requestURL := api.requestURL(base, path, query, signed)

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if signed {
		req.Header.Set("apisign", Sign(requestURL, api.opts.APISecret))
	}

	deadline := time.Now().Add(api.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := api.client.DoDeadline(req, resp, deadline); err != nil {
		return gjson.Result{}, domain.NewTransportError(op, errors.Wrapf(err, "GET %s", path))
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return gjson.Result{}, domain.NewTransportError(op, errors.Errorf("GET %s: status %d", path, resp.StatusCode()))
	}

	return parseEnvelope(op, resp.Body())
}

func (api *BittrexSyncAPI) requestURL(base, path string, query url.Values, signed bool) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteByte('/')
	b.WriteString(strings.TrimLeft(path, "/"))

	encoded := ""
	if query != nil {
		encoded = query.Encode()
	}

	switch {
	case signed:
		b.WriteString("?apikey=")
		b.WriteString(url.QueryEscape(api.opts.APIKey))
		b.WriteString("&nonce=")
		b.WriteString(helpers.IntToString(api.nonce()))
		if encoded != "" {
			b.WriteByte('&')
			b.WriteString(encoded)
		}
	case encoded != "":
		b.WriteByte('?')
		b.WriteString(encoded)
	}

	return b.String()
}

// parseEnvelope unwraps {"success": bool, "message": string, "result": ...}.
func parseEnvelope(op string, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, domain.NewTransportError(op, errors.New("malformed response body"))
	}

	envelope := gjson.ParseBytes(body)
	if !envelope.Get("success").Bool() {
		message := envelope.Get("message").String()
		if message == "" {
			message = "request was not successful"
		}
		return gjson.Result{}, domain.NewTransportError(op, errors.New(message))
	}

	return envelope.Get("result"), nil
}

// Sign returns the hex HMAC-SHA512 of the request url.
func Sign(requestURL, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(requestURL))
	return hex.EncodeToString(mac.Sum(nil))
}
