package httputils

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

// NewRetryableHttpClient returns a client that retries connection errors and 429/5xx responses.
// Every attempt, retries included, waits on rl when it is set.
func NewRetryableHttpClient(timeout time.Duration, rl ratelimit.Limiter, log *logrus.Entry) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = nil
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, request *http.Request, attempt int) {
		if rl != nil {
			rl.Take()
		}

		if log != nil && attempt > 0 {
			log.Debugf("Retrying %s %s (attempt %d)", request.Method, request.URL.Redacted(), attempt+1)
		}
	}

	return retryClient
}
