// Package control implements the client side of the remote control
// plane: authentication, signal delivery, acknowledgements, heartbeats
// and config refresh. The engine never talks to it directly; the
// runner bridges signals into dispatcher calls.
package control

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"gridbot/logger"
)

// Signal types delivered by the control plane
const (
	SignalEntry    = "ENTRY"
	SignalCloseAll = "CLOSE_ALL"
	SignalPause    = "PAUSE"
	SignalResume   = "RESUME"
)

// Ack statuses reported back per delivery
const (
	AckExecuted = "EXECUTED"
	AckFailed   = "FAILED"
)

// Signal one pending command for this account
type Signal struct {
	ID          string `json:"id"`
	DeliveryID  string `json:"deliveryId"`
	Type        string `json:"type"`
	Side        string `json:"side,omitempty"`
	Restriction string `json:"restriction,omitempty"`
}

// Heartbeat status payload pushed on a fixed interval
type Heartbeat struct {
	Status        string  `json:"status"`
	Connected     bool    `json:"mt5Connected"`
	OpenPositions int     `json:"openPositions"`
	CurrentLevel  int     `json:"currentLevel"`
	CurrentSide   string  `json:"currentSide"`
	TotalTrades   int     `json:"totalTrades"`
	TotalProfit   float64 `json:"totalProfit"`
}

// CriticalError marks an auth failure that must stop trading
// (subscription expired, key revoked) as opposed to a transient one
type CriticalError struct {
	Reason string
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("critical control-plane failure: %s", e.Reason)
}

// IsCritical reports whether trading must stop because of this error
func IsCritical(err error) bool {
	var ce *CriticalError
	return errors.As(err, &ce)
}

// Client talks to one control-plane account
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a control-plane client authenticated by API key
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Authenticate exchanges the API key for a session token.
// A definitive rejection (revoked key, expired subscription) comes back
// as a CriticalError; anything else is temporary.
func (c *Client) Authenticate() error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(http.MethodPost, "/api/bot/auth", map[string]string{"apiKey": c.apiKey}, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("auth response missing token")
	}
	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	logger.Info("✅ Control plane authenticated")
	return nil
}

// GetSignals pulls pending signals for this account
func (c *Client) GetSignals() ([]Signal, error) {
	var resp struct {
		Signals []Signal `json:"signals"`
	}
	if err := c.do(http.MethodGet, "/api/bot/signals", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Signals, nil
}

// AckSignal reports the execution outcome of one delivery
func (c *Client) AckSignal(deliveryID, status, errText string) error {
	payload := map[string]string{
		"deliveryId": deliveryID,
		"status":     status,
	}
	if errText != "" {
		payload["error"] = errText
	}
	return c.do(http.MethodPost, "/api/bot/signals/ack", payload, nil)
}

// SendHeartbeat pushes the current account status
func (c *Client) SendHeartbeat(hb Heartbeat) error {
	return c.do(http.MethodPost, "/api/bot/heartbeat", hb, nil)
}

// GetConfig pulls the loosely-typed remote parameter payload
func (c *Client) GetConfig() (*RemoteConfig, error) {
	var rc RemoteConfig
	if err := c.do(http.MethodGet, "/api/bot/config", nil, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// do performs one request, refreshing the token on a transient 401
func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("control %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("control %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.mu.Lock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.Unlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("control %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		if out != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("control %s %s: bad response: %w", method, path, err)
			}
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return c.classifyAuthFailure(resp.StatusCode, raw)
	default:
		// rate limits and server errors are temporary by definition
		return fmt.Errorf("control %s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}
}

// classifyAuthFailure splits definitive rejections from transient ones.
// The server tags definitive failures with a code; a bare 401 is
// treated as a transient token expiry and retried after re-auth.
func (c *Client) classifyAuthFailure(status int, raw []byte) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &body)
	switch body.Code {
	case "SUBSCRIPTION_EXPIRED", "API_KEY_REVOKED", "ACCOUNT_DISABLED":
		return &CriticalError{Reason: body.Code}
	}
	if status == http.StatusForbidden {
		return &CriticalError{Reason: fmt.Sprintf("forbidden: %s", body.Message)}
	}
	// token likely expired; drop it so the next cycle re-authenticates
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return fmt.Errorf("control plane: unauthorized (token expired?)")
}
