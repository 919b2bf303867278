// Package api is the transport boundary to the remote Spendbook API.
//
// Every response uses one envelope: {data, errorCode, errorMessage} where
// errorCode 0 (or absent) is success. Transport-level failures (dial
// errors, malformed bodies, non-2xx without an envelope) are normalized
// into the same *Error shape before any caller sees them, so the state
// layer never handles transport-specific errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/NASAboy342/Spendbook/internal/log"
)

// Error is the uniform failure shape for both server-reported and
// transport-level errors.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Code)
}

// codeTransport mirrors what the server itself uses for generic failures,
// so callers handle both through one path.
const codeTransport = 1

// TokenFunc supplies the current bearer credential, or "" when no session
// is active. The stores guard against unauthenticated calls before the
// transport layer is reached.
type TokenFunc func() string

type Client struct {
	baseURL string
	httpc   *http.Client
	token   TokenFunc
	logger  *log.Logger
}

func NewClient(baseURL string, timeout time.Duration, token TokenFunc, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   newHTTPClient(timeout),
		token:   token,
		logger:  logger.WithComponent(log.ComponentAPI),
	}
}

// newHTTPClient builds a pooled client with connection and header timeouts.
func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

type envelope struct {
	Data         json.RawMessage `json:"data"`
	ErrorCode    int             `json:"errorCode"`
	ErrorMessage *string         `json:"errorMessage"`
}

// post issues one request and decodes the envelope. out may be nil when
// the caller does not need the payload.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	start := time.Now()

	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Code: codeTransport, Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Code: codeTransport, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Request failed",
			log.FieldEndpoint, path,
			log.FieldError, err)
		return &Error{Code: codeTransport, Message: "no response from server"}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &Error{Code: codeTransport, Message: "read response: " + err.Error()}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &Error{Code: codeTransport, Message: fmt.Sprintf("server returned status %d", resp.StatusCode)}
		}
		return &Error{Code: codeTransport, Message: "malformed response from server"}
	}

	if env.ErrorCode != 0 {
		msg := ""
		if env.ErrorMessage != nil {
			msg = *env.ErrorMessage
		}
		c.logger.DebugContext(ctx, "Server reported failure",
			log.FieldEndpoint, path,
			log.FieldErrorCode, env.ErrorCode,
			log.FieldDuration, time.Since(start).Milliseconds())
		return &Error{Code: env.ErrorCode, Message: msg}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Code: codeTransport, Message: fmt.Sprintf("server returned status %d", resp.StatusCode)}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Code: codeTransport, Message: "malformed response from server"}
		}
	}

	c.logger.DebugContext(ctx, "Request completed",
		log.FieldEndpoint, path,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.post(ctx, "/api/spendbook/login", req, &out)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.post(ctx, "/api/spendbook/create-user", req, &out)
	return out, err
}

func (c *Client) GetUserSummaryStatus(ctx context.Context, username string) (UserSummaryStatus, error) {
	var out UserSummaryStatus
	err := c.post(ctx, "/api/spendbook/get-user-summary-status", map[string]string{"username": username}, &out)
	return out, err
}

func (c *Client) CreateAccount(ctx context.Context, req CreateAccountRequest) (Account, error) {
	var out Account
	err := c.post(ctx, "/api/spendbook/create-account", req, &out)
	return out, err
}

func (c *Client) UpdateAccount(ctx context.Context, req UpdateAccountRequest) (Account, error) {
	var out Account
	err := c.post(ctx, "/api/spendbook/update-account", req, &out)
	return out, err
}

func (c *Client) GetTrackingTopics(ctx context.Context, username string) (GetTopicResponse, error) {
	var out GetTopicResponse
	err := c.post(ctx, "/api/spendbook/get-tracking-topic", map[string]string{"username": username}, &out)
	return out, err
}

func (c *Client) CreateTrackingTopic(ctx context.Context, req CreateTopicRequest) (Topic, error) {
	var out Topic
	err := c.post(ctx, "/api/spendbook/create-tracking-topic", req, &out)
	return out, err
}

func (c *Client) UpdateTrackingTopic(ctx context.Context, req UpdateTopicRequest) (Topic, error) {
	var out Topic
	err := c.post(ctx, "/api/spendbook/update-tracking-topic", req, &out)
	return out, err
}

func (c *Client) PayIn(ctx context.Context, req PayRequest) (Transaction, error) {
	var out Transaction
	err := c.post(ctx, "/api/spendbook/pay-in", req, &out)
	return out, err
}

func (c *Client) PayOut(ctx context.Context, req PayRequest) (Transaction, error) {
	var out Transaction
	err := c.post(ctx, "/api/spendbook/pay-out", req, &out)
	return out, err
}

func (c *Client) GetTransactions(ctx context.Context, req GetTransactionsRequest) ([]Transaction, error) {
	var out GetTransactionsResponse
	err := c.post(ctx, "/api/spendbook/get-transactions", req, &out)
	return out.Transactions, err
}

func (c *Client) GetTransactionReport(ctx context.Context, req ReportRequest) ([]Transaction, error) {
	var out GetTransactionsResponse
	err := c.post(ctx, "/api/spendbook/get-transaction-report", req, &out)
	return out.Transactions, err
}
