// Package blynk pushes dashboard pin updates to the Blynk cloud HTTP API.
package blynk

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const (
	pinAvailableCount = "V0"
	pinOccupiedCount  = "V1"
	pinServoCommand   = "V2"
	pinSensorBase     = 3 // sensor i reports on V(3+i)
	pinLastVoucher    = "V7"
)

const maxAttempts = 3

// Client talks to the Blynk external API. A client built without a base URL
// or token is disabled and silently drops every update, so callers never need
// to branch on configuration.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// retryDelay is scaled by the attempt number; overridable in tests.
	retryDelay time.Duration
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		retryDelay: 300 * time.Millisecond,
	}
}

func (c *Client) enabled() bool {
	return c.baseURL != "" && c.token != ""
}

// PushSlotCounts updates the dashboard availability gauges.
func (c *Client) PushSlotCounts(ctx context.Context, available, occupied int) error {
	if err := c.updatePin(ctx, pinAvailableCount, fmt.Sprintf("%d", available)); err != nil {
		return err
	}
	return c.updatePin(ctx, pinOccupiedCount, fmt.Sprintf("%d", occupied))
}

// SendServoCommand mirrors a gate command on the dashboard, formatted as
// "command:slotNumber".
func (c *Client) SendServoCommand(ctx context.Context, command string, slotNumber int) error {
	return c.updatePin(ctx, pinServoCommand, fmt.Sprintf("%s:%d", command, slotNumber))
}

// UpdateSensorPin reflects one bay sensor reading.
func (c *Client) UpdateSensorPin(ctx context.Context, sensorIndex int, value string) error {
	return c.updatePin(ctx, fmt.Sprintf("V%d", pinSensorBase+sensorIndex), value)
}

// PushLastVoucher shows the most recently issued voucher code.
func (c *Client) PushLastVoucher(ctx context.Context, code string) error {
	return c.updatePin(ctx, pinLastVoucher, code)
}

// updatePin issues the GET with a bounded retry loop. The delay grows
// linearly with the attempt number. The last error is returned so the caller
// can record it; intermediate failures only log.
func (c *Client) updatePin(ctx context.Context, pin, value string) error {
	if !c.enabled() {
		return nil
	}

	endpoint := fmt.Sprintf("%s/external/api/update?token=%s&%s=%s",
		c.baseURL, url.QueryEscape(c.token), pin, url.QueryEscape(value))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.retryDelay * time.Duration(attempt-1)):
			case <-ctx.Done():
				return fmt.Errorf("blynk.updatePin %s: %w", pin, ctx.Err())
			}
		}
		lastErr = c.doUpdate(ctx, endpoint)
		if lastErr == nil {
			return nil
		}
		log.Printf("blynk: update %s attempt %d/%d failed: %v", pin, attempt, maxAttempts, lastErr)
	}
	return fmt.Errorf("blynk.updatePin %s: %w", pin, lastErr)
}

func (c *Client) doUpdate(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
