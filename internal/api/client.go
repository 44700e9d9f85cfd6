package api

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thermohub/thermohub8-hass/internal/readings"
)

// RequestTimeout bounds every readings request. The hub answers from RAM; if
// nothing came back within 10 seconds the cycle is lost.
const RequestTimeout = 10 * time.Second

const readingsPath = "/api/v1/readings"

// Client is a minimal REST client for the ThermoHub8 readings endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a hub client. baseURL must already carry a scheme (the
// config layer defaults it to http). apiKey may be empty; the Authorization
// header is only sent when it is set.
func NewClient(baseURL, apiKey string, verifySSL bool, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   RequestTimeout,
			Transport: newTransport(verifySSL, logger),
		},
		logger: logger,
	}
}

// BaseURL returns the configured hub base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// SetTimeout overrides the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// Fetch issues exactly one GET to {base}/api/v1/readings and returns the
// parsed payload. No schema validation happens here; any JSON object is
// accepted as-is. All failures come back as a *FetchError.
func (c *Client) Fetch(ctx context.Context) (*readings.Payload, error) {
	url := c.baseURL + readingsPath
	c.logger.WithField("url", url).Debug("Fetching hub readings")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classify(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"url":    url,
		}).Warn("Hub returned non-2xx status")
		return nil, &FetchError{Kind: KindStatus, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: classify(err), Err: err}
	}

	payload, err := readings.Decode(body, time.Now())
	if err != nil {
		return nil, &FetchError{Kind: KindDecode, Err: err}
	}

	c.logger.WithField("payload_keys", payload.Keys()).Debug("Received hub payload")
	return payload, nil
}

// classify splits request errors into the timeout and transport kinds.
func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}
