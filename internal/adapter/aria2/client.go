package aria2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const rpcTimeout = 30 * time.Second

// RPCError is a transport or protocol failure talking to the daemon.
type RPCError struct {
	Method  string
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("aria2 %s: %s", e.Method, e.Message)
}

// IsNotFound reports whether err is the daemon saying it no longer knows
// the polled GID.
func IsNotFound(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "no such download") || strings.Contains(msg, "not found")
}

// Client is a stateless JSON-RPC wrapper around the aria2 daemon. It
// carries no business logic and no retry policy; every failure surfaces
// as *RPCError.
type Client struct {
	endpoint string
	secret   string
	http     *http.Client
}

// New creates a client for the given RPC endpoint. The secret, when
// non-empty, is injected as the leading token parameter of every call.
func New(endpoint, secret string) *Client {
	return &Client{
		endpoint: endpoint,
		secret:   secret,
		http:     &http.Client{Timeout: rpcTimeout},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call performs one JSON-RPC request, decoding the result into out when
// out is non-nil.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if c.secret != "" {
		params = append([]any{"token:" + c.secret}, params...)
	}
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      fmt.Sprintf("fetchd-%d", time.Now().UnixNano()),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return &RPCError{Method: method, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &RPCError{Method: method, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &RPCError{Method: method, Message: err.Error()}
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return &RPCError{Method: method, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if decoded.Error != nil {
		return &RPCError{Method: method, Message: decoded.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return &RPCError{Method: method, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return &RPCError{Method: method, Message: fmt.Sprintf("decode result: %v", err)}
		}
	}
	return nil
}
