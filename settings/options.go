package settings

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

type ClientOption func(*Client)
type ServiceOption func(*Service)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every request, 0 disables the timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithRateLimiter(limiter ratelimit.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

func WithClientLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithCachePolicy(policy CachePolicy) ServiceOption {
	return func(svc *Service) {
		svc.cachePolicy = policy
	}
}

// WithBootstrapRetry retries network failures during Setup, up to
// maxAttempts attempts in total.
func WithBootstrapRetry(maxAttempts int, min, max time.Duration) ServiceOption {
	return func(svc *Service) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		svc.maxAttempts = maxAttempts
		svc.minBackoff = min
		svc.maxBackoff = max
	}
}

func WithLogger(logger *log.Logger) ServiceOption {
	return func(svc *Service) {
		svc.logger = logger
	}
}
