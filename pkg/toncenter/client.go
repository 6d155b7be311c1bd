package toncenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
)

const (
	MainnetURL = "https://toncenter.com"
	TestnetURL = "https://testnet.toncenter.com"

	apiKeyHeader = "X-API-Key"
)

var ErrTraceNotFound = errors.New("trace not found")

// APIError is a non-2xx answer from the index or emulator.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("toncenter: %d: %s", e.StatusCode, e.Message)
}

// ApiClient is the subset of the toncenter HTTP API the kit consumes.
type ApiClient interface {
	GetTrace(ctx context.Context, txHash string) (*Trace, error)
	EmulateTrace(ctx context.Context, boc string) (*Trace, error)
	GetAccountState(ctx context.Context, addr string) (*AccountState, error)
	SendMessage(ctx context.Context, boc string) (*SendMessageResult, error)
}

type Client struct {
	lggr logger.Logger
	http *resty.Client
}

var _ ApiClient = (*Client)(nil)

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.http.SetHeader(apiKeyHeader, key)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		base := c.http.BaseURL
		headers := c.http.Header.Clone()
		c.http = resty.NewWithClient(hc).SetBaseURL(base)
		c.http.Header = headers
	}
}

func NewClient(lggr logger.Logger, baseURL string, opts ...Option) *Client {
	c := &Client{
		lggr: logger.Named(lggr, "ToncenterClient"),
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetTrace(ctx context.Context, txHash string) (*Trace, error) {
	var out TracesResponse
	if err := c.do(ctx, c.http.R().
		SetQueryParams(map[string]string{"tx_hash": txHash, "include_actions": "false"}).
		SetResult(&out), http.MethodGet, "/api/v3/traces"); err != nil {
		return nil, err
	}
	if len(out.Traces) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTraceNotFound, txHash)
	}
	tr := out.Traces[0]
	if tr.AddressBook == nil {
		tr.AddressBook = out.AddressBook
	}
	if tr.Metadata == nil {
		tr.Metadata = out.Metadata
	}
	return &tr, nil
}

func (c *Client) EmulateTrace(ctx context.Context, boc string) (*Trace, error) {
	var out EmulateTraceResponse
	req := EmulateRequest{
		Boc:                boc,
		IgnoreChksig:       true,
		IncludeAddressBook: true,
		IncludeMetadata:    true,
	}
	if err := c.do(ctx, c.http.R().SetBody(req).SetResult(&out), http.MethodPost, "/api/emulate/v1/emulateTrace"); err != nil {
		return nil, err
	}
	c.lggr.Debugw("Emulated trace", "transactions", len(out.Transactions), "incomplete", out.IsIncomplete)
	return out.Trace(), nil
}

func (c *Client) GetAccountState(ctx context.Context, addr string) (*AccountState, error) {
	var out AccountStatesResponse
	if err := c.do(ctx, c.http.R().
		SetQueryParams(map[string]string{"address": addr, "include_boc": "false"}).
		SetResult(&out), http.MethodGet, "/api/v3/accountStates"); err != nil {
		return nil, err
	}
	if len(out.Accounts) == 0 {
		return &AccountState{Address: addr, Balance: "0", AccountStatus: "nonexist"}, nil
	}
	return &out.Accounts[0], nil
}

func (c *Client) SendMessage(ctx context.Context, boc string) (*SendMessageResult, error) {
	var out SendMessageResult
	if err := c.do(ctx, c.http.R().SetBody(SendMessageRequest{Boc: boc}).SetResult(&out), http.MethodPost, "/api/v3/message"); err != nil {
		return nil, err
	}
	c.lggr.Infow("Sent message", "hash", out.MessageHash)
	return &out, nil
}

func (c *Client) do(ctx context.Context, req *resty.Request, method, path string) error {
	resp, err := req.SetContext(ctx).Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	if !resp.IsSuccess() {
		return &APIError{StatusCode: resp.StatusCode(), Message: errorMessage(resp.Body(), resp.Status())}
	}
	return nil
}

// errorMessage pulls "error" (index) or "detail"/"message" (emulator) out of a
// failure body.
func errorMessage(body []byte, status string) string {
	if json.Valid(body) {
		for _, path := range []string{"error", "detail", "message"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return status
}
