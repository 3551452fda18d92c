package venue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Bridge talks to an MT5 terminal bridge over its local REST surface.
// Routing details live on the bridge side; this client only moves the
// Venue contract over HTTP.
type Bridge struct {
	baseURL string
	client  *http.Client
}

// NewBridge creates a client for a bridge endpoint like http://127.0.0.1:8787
func NewBridge(baseURL string) *Bridge {
	return &Bridge{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *Bridge) getJSON(path string, query url.Values, out interface{}) error {
	u := b.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := b.client.Get(u)
	if err != nil {
		return fmt.Errorf("bridge GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("bridge GET %s: bad response: %w", path, err)
	}
	return nil
}

func (b *Bridge) postJSON(path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("bridge POST %s: %w", path, err)
	}
	resp, err := b.client.Post(b.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("bridge POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge POST %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("bridge POST %s: bad response: %w", path, err)
		}
	}
	return nil
}

// Quote implements Venue
func (b *Bridge) Quote(symbol string) (Quote, error) {
	var q Quote
	err := b.getJSON("/quote", url.Values{"symbol": {symbol}}, &q)
	return q, err
}

// Positions implements Venue
func (b *Bridge) Positions(symbol, tag string) ([]Position, error) {
	var out []Position
	err := b.getJSON("/positions", url.Values{"symbol": {symbol}, "tag": {tag}}, &out)
	return out, err
}

// PendingOrders implements Venue
func (b *Bridge) PendingOrders(symbol, tag string) ([]PendingOrder, error) {
	var out []PendingOrder
	err := b.getJSON("/orders", url.Values{"symbol": {symbol}, "tag": {tag}}, &out)
	return out, err
}

// Open implements Venue
func (b *Bridge) Open(req OpenRequest) (OpenResult, error) {
	var res OpenResult
	err := b.postJSON("/open", req, &res)
	return res, err
}

// Close implements Venue
func (b *Bridge) Close(id string) (CloseResult, error) {
	var res CloseResult
	err := b.postJSON("/close", map[string]string{"id": id}, &res)
	return res, err
}
