// Package alpaca talks to the Alpaca trading and market-data REST APIs.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	// PaperURL is the trading API for paper accounts
	PaperURL = "https://paper-api.alpaca.markets"
	// LiveURL is the trading API for live accounts
	LiveURL = "https://api.alpaca.markets"
	// DataURL is the market-data API
	DataURL = "https://data.alpaca.markets"
)

type Config struct {
	KeyID     string
	SecretKey string
	BaseURL   string
	DataURL   string
	Feed      string // "iex" or "sip"

	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration // first backoff step
	RetryMaxWait time.Duration // backoff ceiling

	// EODBuffer is how long before the close IsEndOfDay turns true.
	EODBuffer time.Duration
}

// DefaultConfig targets the paper environment.
func DefaultConfig() Config {
	return Config{
		BaseURL:      PaperURL,
		DataURL:      DataURL,
		Feed:         "iex",
		Timeout:      30 * time.Second,
		RetryCount:   4,
		RetryWait:    500 * time.Millisecond,
		RetryMaxWait: 10 * time.Second,
		EODBuffer:    15 * time.Minute,
	}
}

// Client is the Alpaca collaborator. It implements broker.Broker,
// broker.FillHistory, market.Clock and the session's bar source.
type Client struct {
	api  *resty.Client
	data *resty.Client
	cfg  Config
	log  zerolog.Logger
}

// APIError is an error response body.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("alpaca: http %d", e.Status)
	}
	return fmt.Sprintf("alpaca: http %d: %s", e.Status, e.Message)
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.DataURL == "" {
		cfg.DataURL = def.DataURL
	}
	if cfg.Feed == "" {
		cfg.Feed = def.Feed
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = def.RetryWait
	}
	if cfg.RetryMaxWait == 0 {
		cfg.RetryMaxWait = def.RetryMaxWait
	}

	log = log.With().Str("component", "alpaca").Logger()
	c := &Client{cfg: cfg, log: log}
	c.api = c.newRESTClient(cfg.BaseURL)
	c.data = c.newRESTClient(cfg.DataURL)
	return c
}

// newRESTClient applies the shared retry policy: bounded attempts with
// exponential backoff on transport errors, 429 and 5xx. Order submission
// goes through the same policy; a repeated POST carries the same
// client_order_id and the broker refuses duplicates.
func (c *Client) newRESTClient(baseURL string) *resty.Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(c.cfg.Timeout).
		SetHeader("APCA-API-KEY-ID", c.cfg.KeyID).
		SetHeader("APCA-API-SECRET-KEY", c.cfg.SecretKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(c.cfg.RetryCount).
		SetRetryWaitTime(c.cfg.RetryWait).
		SetRetryMaxWaitTime(c.cfg.RetryMaxWait).
		AddRetryCondition(retryable)

	r.AddRetryHook(func(resp *resty.Response, err error) {
		ev := c.log.Warn().Err(err)
		if resp != nil {
			ev = ev.Int("status", resp.StatusCode()).Str("url", resp.Request.URL)
		}
		ev.Msg("retrying request")
	})
	return r
}

func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// check turns a non-2xx response into an *APIError.
func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode()}
	if e, ok := resp.Error().(*APIError); ok && e != nil {
		apiErr.Code, apiErr.Message = e.Code, e.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.String()
	}
	return apiErr
}
