package httputil

import (
	"net/http"
	"time"
)

// DefaultTimeout is deliberately shorter than the alert sender's backoff
// budget so a hung delivery still leaves room for retries.
const DefaultTimeout = 10 * time.Second

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}
