package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storefront/pkg/errors"
	"storefront/pkg/logger"
)

// Config holds the gateway connection settings
type Config struct {
	BaseURL         string
	ClientID        string
	ClientSecret    string
	SubscriptionKey string
	MerchantSerial  string
	Timeout         time.Duration
}

// Client talks to the external payment gateway's REST API. The gateway is
// the authoritative source of payment state; the client never caches
// payment state locally.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens TokenSource
	log    *logger.Logger
}

// NewClient creates a gateway client that caches its own access token.
// cache may be nil; with it the token is shared across replicas.
func NewClient(cfg Config, cache TokenCache, log *logger.Logger) *Client {
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
	c.tokens = NewCachedTokenSource(c, cache, nil)
	return c
}

// NewClientWithTokenSource creates a gateway client with an externally
// supplied token source
func NewClientWithTokenSource(cfg Config, tokens TokenSource, log *logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tokens: tokens,
		log:    log,
	}
}

// tokenResponse is the auth endpoint's payload
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// FetchToken implements TokenProvider against the gateway's auth endpoint
func (c *Client) FetchToken(ctx context.Context) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/accesstoken/get", nil)
	if err != nil {
		return Token{}, errors.NewGateway("failed to build token request", err)
	}
	req.Header.Set("client_id", c.cfg.ClientID)
	req.Header.Set("client_secret", c.cfg.ClientSecret)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Token{}, errors.NewGateway("token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Token{}, errors.NewGateway(fmt.Sprintf("token request returned %d", resp.StatusCode), nil)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Token{}, errors.NewGateway("failed to decode token response", err)
	}

	return Token{
		Value:     body.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}

// CreateSession requests a checkout session scoped to the order's reference
// and authoritative total. The gateway echoes callbackToken on every
// callback for this session.
func (c *Client) CreateSession(ctx context.Context, request CreateSessionRequest) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", request.Reference, request, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionStatus fetches the authoritative session detail for a reference
func (c *Client) GetSessionStatus(ctx context.Context, reference string) (*SessionStatus, error) {
	var status SessionStatus
	if err := c.do(ctx, http.MethodGet, "/checkout/sessions/"+reference, reference, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetPaymentDetails fetches the authoritative payment state for a reference
func (c *Client) GetPaymentDetails(ctx context.Context, reference string) (*PaymentDetails, error) {
	var details PaymentDetails
	if err := c.do(ctx, http.MethodGet, "/payments/"+reference, reference, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// captureRequest is the body for capture and refund calls
type captureRequest struct {
	Amount int64 `json:"amount"`
}

// cancelRequest is the body for cancel calls
type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Capture converts a reservation into a settled payment
func (c *Client) Capture(ctx context.Context, reference string, amount int64) (*PaymentDetails, error) {
	var details PaymentDetails
	if err := c.do(ctx, http.MethodPost, "/payments/"+reference+"/capture", reference, captureRequest{Amount: amount}, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// Cancel releases a reservation without capturing
func (c *Client) Cancel(ctx context.Context, reference, reason string) (*PaymentDetails, error) {
	var details PaymentDetails
	if err := c.do(ctx, http.MethodPost, "/payments/"+reference+"/cancel", reference, cancelRequest{Reason: reason}, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// Refund returns captured funds, fully or partially
func (c *Client) Refund(ctx context.Context, reference string, amount int64) (*PaymentDetails, error) {
	var details PaymentDetails
	if err := c.do(ctx, http.MethodPost, "/payments/"+reference+"/refund", reference, captureRequest{Amount: amount}, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// do executes one gateway call. Transport failures and 5xx responses map to
// GATEWAY_ERROR: retryable, and never treated as success. The gateway
// deduplicates mutations on the Idempotency-Key, which is the order
// reference.
func (c *Client) do(ctx context.Context, method, path, reference string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternal("failed to marshal gateway request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return errors.NewGateway("failed to build gateway request", err)
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to obtain gateway access token")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
	req.Header.Set("Merchant-Serial-Number", c.cfg.MerchantSerial)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", reference)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewGateway("gateway request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.NewNotFound("gateway payment", reference)
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.WithContext(ctx).Warn("gateway call rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return errors.NewGateway(fmt.Sprintf("gateway returned %d", resp.StatusCode), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.NewGateway("failed to decode gateway response", err)
		}
	}

	return nil
}
