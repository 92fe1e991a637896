package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// retryDelays is the fixed backoff schedule between Timeout/5xx attempts:
// 250ms, then 500ms, for 3 attempts in total. Never applied to 4xx or
// SoapFault responses.
var retryDelays = []time.Duration{250 * time.Millisecond, 500 * time.Millisecond}

// SonosServerError indicates a transient 5xx response, distinct from a parsed
// SOAP fault (which is a 4xx UPnP-level rejection and never retried).
type SonosServerError struct {
	Action     string
	StatusCode int
}

func (e *SonosServerError) Error() string {
	return fmt.Sprintf("sonos action %s failed: http %d", e.Action, e.StatusCode)
}

// Client handles SOAP requests to Sonos devices. Requests to the same IP are
// serialized through a per-speaker mailbox to avoid UPnP re-entrancy races;
// requests to different IPs proceed in parallel.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	devicePort int // Sonos control port, 1400; overridden by tests

	mailboxMu sync.Mutex
	mailboxes map[string]*sync.Mutex
}

// NewClient creates a SOAP client with the given per-attempt timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		timeout:    timeout,
		devicePort: 1400,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		mailboxes: make(map[string]*sync.Mutex),
	}
}

func (c *Client) mailbox(ip string) *sync.Mutex {
	c.mailboxMu.Lock()
	defer c.mailboxMu.Unlock()
	m, ok := c.mailboxes[ip]
	if !ok {
		m = &sync.Mutex{}
		c.mailboxes[ip] = m
	}
	return m
}

// ExecuteAction sends a SOAP request and returns the raw response body. It
// serializes requests to the same speaker, and retries Timeout/5xx failures
// up to 3 attempts total with 250ms/500ms backoff. 4xx and SoapFault
// responses are never retried.
func (c *Client) ExecuteAction(
	ctx context.Context,
	ip string,
	service Service,
	action string,
	args map[string]string,
) ([]byte, error) {
	mu := c.mailbox(ip)
	mu.Lock()
	defer mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelays[attempt-1]):
			}
		}

		payload, err := c.doExecute(ctx, ip, service, action, args)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		var timeoutErr *SonosTimeoutError
		var serverErr *SonosServerError
		if errors.As(err, &timeoutErr) || errors.As(err, &serverErr) {
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// doExecute performs exactly one HTTP POST attempt.
func (c *Client) doExecute(
	ctx context.Context,
	ip string,
	service Service,
	action string,
	args map[string]string,
) ([]byte, error) {
	serviceType := serviceTypes[service]
	controlPath := controlPaths[service]
	if serviceType == "" || controlPath == "" {
		return nil, fmt.Errorf("unknown service: %s", service)
	}

	body := buildEnvelope(serviceType, action, args)
	url := fmt.Sprintf("http://%s:%d%s", ip, c.devicePort, controlPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "text/xml; charset=\"utf-8\"")
	req.Header.Set("SOAPACTION", fmt.Sprintf("\"%s#%s\"", serviceType, action))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &SonosTimeoutError{Action: action}
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &SonosTimeoutError{Action: action}
		}
		return nil, &SonosUnreachableError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, &SonosServerError{Action: action, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		code, desc := parseSoapFault(payload)
		if code != "" {
			return nil, &SonosRejectedError{Action: action, Code: code, Description: desc}
		}
		return nil, &SonosRejectedError{Action: action, Code: fmt.Sprintf("http-%d", resp.StatusCode), Description: "non-SOAP-fault error response"}
	}

	return payload, nil
}

func buildEnvelope(serviceType, action string, args map[string]string) []byte {
	var buf strings.Builder
	buf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>")
	buf.WriteString("<s:Envelope xmlns:s=\"http://schemas.xmlsoap.org/soap/envelope/\" s:encodingStyle=\"http://schemas.xmlsoap.org/soap/encoding/\">")
	buf.WriteString("<s:Body>")
	buf.WriteString("<u:")
	buf.WriteString(action)
	buf.WriteString(" xmlns:u=\"")
	buf.WriteString(serviceType)
	buf.WriteString("\">")

	for key, value := range args {
		buf.WriteString("<")
		buf.WriteString(key)
		buf.WriteString(">")
		buf.WriteString(escapeXML(value))
		buf.WriteString("</")
		buf.WriteString(key)
		buf.WriteString(">")
	}

	buf.WriteString("</u:")
	buf.WriteString(action)
	buf.WriteString(">")
	buf.WriteString("</s:Body>")
	buf.WriteString("</s:Envelope>")

	return []byte(buf.String())
}

func escapeXML(input string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(input)); err != nil {
		return input
	}
	return b.String()
}

func parseSoapFault(payload []byte) (string, string) {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	var code string
	var desc string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "errorCode":
				var value string
				if err := decoder.DecodeElement(&value, &se); err == nil {
					code = strings.TrimSpace(value)
				}
			case "errorDescription":
				var value string
				if err := decoder.DecodeElement(&value, &se); err == nil {
					desc = strings.TrimSpace(value)
				}
			}
		}
	}

	return code, desc
}
