// Package hostchainrpc is a thin JSON-RPC facade over the host chain's
// object database and block index, an external collaborator (the core
// never owns this storage; it only consumes HostChainView/
// HostChainSubmit). It follows the same
// typed-facade idiom as internal/infrastructure/bitcoinrpc: one HTTP
// JSON-RPC 2.0 call per method, parsed results, no panics.
package hostchainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Config holds the host chain node's RPC endpoint.
type Config struct {
	URL      string
	User     string
	Password string
}

// Client is a generic JSON-RPC 2.0 caller used by both the view and
// submit halves of the host chain adapter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *log.Entry
}

// New builds a Client bound to the configured host chain RPC endpoint.
func New(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.WithField("component", "hostchainrpc"),
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }

// call invokes method with params and unmarshals the result into out.
// Transport failures and node-side error objects are both surfaced as
// plain errors: the host chain adapter is a read/write capability set,
// not a component that participates in the Bitcoin node adapter's
// RPC-failure taxonomy.
func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: uuid.NewString(), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("hostchainrpc: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("hostchainrpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.User != "" {
		req.SetBasicAuth(c.cfg.User, c.cfg.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hostchainrpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("hostchainrpc: %s: decode response: %w", method, err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("hostchainrpc: %s: %w", method, parsed.Error)
	}
	if out == nil || len(parsed.Result) == 0 {
		return nil
	}
	return json.Unmarshal(parsed.Result, out)
}
