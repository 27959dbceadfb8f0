package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"prizepool/core/types"
	"prizepool/crypto"
	"prizepool/native/prizepool"
)

// Client calls a node's JSON-RPC endpoint.
type Client struct {
	endpoint  string
	authToken string
	http      *http.Client
	nextID    atomic.Int64
}

// NewClient returns a client for endpoint. authToken may be empty.
func NewClient(endpoint, authToken string) *Client {
	return &Client{
		endpoint:  strings.TrimRight(endpoint, "/") + "/",
		authToken: strings.TrimSpace(authToken),
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Call invokes method with a single parameter object, decoding the result
// into out. JSON-RPC failures are returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, param interface{}, out interface{}) error {
	req := RPCRequest{JSONRPC: jsonRPCVersion, Method: method, ID: c.nextID.Add(1)}
	if param != nil {
		raw, err := json.Marshal(param)
		if err != nil {
			return err
		}
		req.Params = []json.RawMessage{raw}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("rpc: decode %s response (HTTP %d): %w", method, resp.StatusCode, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	var receipt types.Receipt
	if err := c.Call(ctx, "prize_sendTransaction", tx, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) Game(ctx context.Context, id prizepool.GameID) (*GameResult, error) {
	var result GameResult
	if err := c.Call(ctx, "prize_getGame", GameParams{GameID: id}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Balance(ctx context.Context, owner crypto.Address) (*BalanceResult, error) {
	var result BalanceResult
	if err := c.Call(ctx, "prize_getBalance", BalanceParams{Owner: owner}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) PoolAuthority(ctx context.Context, id prizepool.GameID) (*PoolAuthorityResult, error) {
	var result PoolAuthorityResult
	if err := c.Call(ctx, "prize_poolAuthority", GameParams{GameID: id}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var result StatusResult
	if err := c.Call(ctx, "prize_status", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Events(ctx context.Context, params EventsParams) (*EventsResult, error) {
	var result EventsResult
	if err := c.Call(ctx, "prize_events", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
