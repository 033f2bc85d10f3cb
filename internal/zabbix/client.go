package zabbix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const rpcPath = "/api_jsonrpc.php"

// ErrMissingCredential means the client was built without a base URL or token.
// No request is sent in that case.
var ErrMissingCredential = errors.New("zabbix: missing api url or token")

// APIError is a failure reported by the Zabbix server itself: either a
// JSON-RPC error object or a non-2xx HTTP status.
type APIError struct {
	Code    int
	Message string
	Data    string
}

func (e *APIError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("zabbix: api error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("zabbix: api error %d: %s", e.Code, e.Message)
}

// TransportError wraps anything that prevented a well-formed reply from
// arriving: dial failures, timeouts, unreadable or undecodable bodies.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "zabbix: transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Client issues problem.get calls. It never retries; retry policy belongs to
// whoever schedules the calls.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout bounds each request end to end.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has what it needs to call upstream.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.token != ""
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

type problemGetResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  []Problem `json:"result"`
	Error   *rpcError `json:"error"`
	ID      int       `json:"id"`
}

type problemGetParams struct {
	Output             string   `json:"output"`
	SelectTags         string   `json:"selectTags"`
	SelectAcknowledges string   `json:"selectAcknowledges"`
	SortField          []string `json:"sortfield"`
	SortOrder          string   `json:"sortorder"`
}

// Problems fetches the full current set of open problems, extended output
// with tags and acknowledges, sorted by event id ascending.
func (c *Client) Problems(ctx context.Context) ([]Problem, error) {
	if !c.Configured() {
		return nil, ErrMissingCredential
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "problem.get",
		Params: problemGetParams{
			Output:             "extend",
			SelectTags:         "extend",
			SelectAcknowledges: "extend",
			SortField:          []string{"eventid"},
			SortOrder:          "ASC",
		},
		ID: 1,
	})
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rpcPath, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json-rpc")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(raw)
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return nil, &APIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Data: msg}
	}

	var out problemGetResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode problem.get reply: %w", err)}
	}
	if out.Error != nil {
		return nil, &APIError{Code: out.Error.Code, Message: out.Error.Message, Data: out.Error.Data}
	}
	if out.Result == nil {
		return []Problem{}, nil
	}
	return out.Result, nil
}
