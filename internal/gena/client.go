package gena

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrSubscriptionNotFound is returned by Renew when the device responds 412
// Precondition Failed, meaning it no longer knows about the SID (it rebooted
// or the subscription already lapsed).
var ErrSubscriptionNotFound = fmt.Errorf("gena: subscription not found on device")

// Client issues SUBSCRIBE/RENEW/UNSUBSCRIBE requests against device event
// URLs. These use non-standard HTTP verbs, so requests are built with
// http.NewRequestWithContext rather than the usual http.Client helpers.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a GENA client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Subscribe opens a new subscription and returns the device-assigned SID and
// granted timeout.
func (c *Client) Subscribe(ctx context.Context, deviceIP string, endpoint ServiceEndpoint, callbackURL string, requestedTimeout time.Duration) (sid string, granted time.Duration, err error) {
	url := fmt.Sprintf("http://%s:1400%s", deviceIP, endpoint.EventPath)
	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", url, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("CALLBACK", "<"+callbackURL+">")
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("TIMEOUT", fmt.Sprintf("Second-%d", int(requestedTimeout.Seconds())))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("gena subscribe %s: %w", deviceIP, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("gena subscribe %s: http %d", deviceIP, resp.StatusCode)
	}

	sid = resp.Header.Get("SID")
	granted = parseTimeout(resp.Header.Get("TIMEOUT"))
	if sid == "" {
		return "", 0, fmt.Errorf("gena subscribe %s: no SID in response", deviceIP)
	}
	return sid, granted, nil
}

// Renew extends an existing subscription.
func (c *Client) Renew(ctx context.Context, deviceIP string, endpoint ServiceEndpoint, sid string, requestedTimeout time.Duration) (granted time.Duration, err error) {
	url := fmt.Sprintf("http://%s:1400%s", deviceIP, endpoint.EventPath)
	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("SID", sid)
	req.Header.Set("TIMEOUT", fmt.Sprintf("Second-%d", int(requestedTimeout.Seconds())))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gena renew %s: %w", deviceIP, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPreconditionFailed {
		return 0, ErrSubscriptionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("gena renew %s: http %d", deviceIP, resp.StatusCode)
	}
	return parseTimeout(resp.Header.Get("TIMEOUT")), nil
}

// Unsubscribe tears a subscription down. Best-effort: callers should log and
// continue on error rather than block teardown.
func (c *Client) Unsubscribe(ctx context.Context, deviceIP string, endpoint ServiceEndpoint, sid string) error {
	url := fmt.Sprintf("http://%s:1400%s", deviceIP, endpoint.EventPath)
	req, err := http.NewRequestWithContext(ctx, "UNSUBSCRIBE", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("SID", sid)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gena unsubscribe %s: %w", deviceIP, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gena unsubscribe %s: http %d", deviceIP, resp.StatusCode)
	}
	return nil
}

func parseTimeout(header string) time.Duration {
	if header == "" {
		return 0
	}
	if strings.EqualFold(header, "Second-infinite") {
		return 24 * time.Hour
	}
	parts := strings.SplitN(header, "-", 2)
	if len(parts) != 2 {
		return 0
	}
	secs, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}
