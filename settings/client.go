// Package settings is a client for the server side settings endpoint.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flow-hydraulics/settings-client/errors"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"gorm.io/datatypes"
)

const RequestIDHeader = "X-Request-ID"

// API is implemented by Client.
type API interface {
	GetAllSettings(ctx context.Context, token string) (datatypes.JSON, error)
	UpdateSettingValue(ctx context.Context, token, name, value string) (datatypes.JSON, error)
}

// Client talks to {baseURL}/settings/. It holds no state between calls and
// may be used concurrently.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	limiter    ratelimit.Limiter
	logger     *log.Logger
}

type updateRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/settings/",
		httpClient: http.DefaultClient,
		limiter:    ratelimit.NewUnlimited(),
		logger:     log.StandardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	return c
}

// GetAllSettings fetches every setting. The payload is returned as compact
// JSON, no schema is assumed.
func (c *Client) GetAllSettings(ctx context.Context, token string) (datatypes.JSON, error) {
	return c.do(ctx, http.MethodGet, token, nil)
}

// UpdateSettingValue persists a single setting and returns the server's
// response body. A non-2xx response is always returned as an
// *errors.RequestError carrying the server's error body in Detail.
func (c *Client) UpdateSettingValue(ctx context.Context, token, name, value string) (datatypes.JSON, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(updateRequest{Name: name, Value: value}); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, token, bytes.TrimRight(buf.Bytes(), "\n"))
}

func (c *Client) do(ctx context.Context, method, token string, body []byte) (datatypes.JSON, error) {
	requestID := uuid.New().String()
	entry := c.logger.WithFields(log.Fields{
		"method":    method,
		"url":       c.endpoint,
		"requestId": requestID,
	})

	res, err := c.send(ctx, method, token, requestID, body)
	if err != nil {
		entry.WithFields(log.Fields{"error": err}).Warn("Settings request failed")
		return nil, err
	}

	entry.Trace("Settings request done")

	return res, nil
}

func (c *Client) send(ctx context.Context, method, token, requestID string, body []byte) (datatypes.JSON, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint, reqBody)
	if err != nil {
		return nil, &errors.RequestError{Kind: errors.Network, Err: fmt.Errorf("error while creating request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set(RequestIDHeader, requestID)

	c.limiter.Take()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errors.RequestError{Kind: errors.Network, Err: err}
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.RequestError{Kind: errors.Network, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail interface{}
		if err := json.Unmarshal(bs, &detail); err != nil {
			return nil, &errors.RequestError{Kind: errors.ParseError, StatusCode: resp.StatusCode, Err: err}
		}
		return nil, &errors.RequestError{Kind: errors.ServerError, StatusCode: resp.StatusCode, Detail: detail}
	}

	buf := &bytes.Buffer{}
	if err := json.Compact(buf, bs); err != nil {
		return nil, &errors.RequestError{Kind: errors.ParseError, StatusCode: resp.StatusCode, Err: err}
	}

	return datatypes.JSON(buf.Bytes()), nil
}
