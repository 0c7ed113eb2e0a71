package httpclient

import (
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

type Config struct {
	baseURL          string
	retryCount       int
	retryWaitTime    time.Duration
	retryMaxWaitTime time.Duration
}

type Option func(c *Config)

func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.baseURL = baseURL
	}
}

func WithRetryCount(count int) Option {
	return func(c *Config) {
		c.retryCount = count
	}
}

func WithRetryWaitTime(waitTime time.Duration) Option {
	return func(c *Config) {
		c.retryWaitTime = waitTime
	}
}

func WithRetryMaxWaitTime(maxWaitTime time.Duration) Option {
	return func(c *Config) {
		c.retryMaxWaitTime = maxWaitTime
	}
}

// New builds a resty client that retries transport-level failures with
// backoff. HTTP-level statuses are left to the caller.
func New(opts ...Option) *resty.Client {
	cfg := &Config{
		baseURL:          "",
		retryCount:       3,
		retryWaitTime:    1 * time.Second,
		retryMaxWaitTime: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := resty.New().
		SetBaseURL(cfg.baseURL).
		SetRetryCount(cfg.retryCount).
		SetRetryWaitTime(cfg.retryWaitTime).
		SetRetryMaxWaitTime(cfg.retryMaxWaitTime).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return isRetryableError(err)
		})

	return client
}

// isRetryableError checks if the error is a retryable network error.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
