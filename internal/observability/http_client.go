package observability

import (
	"net/http"
	"time"

	sentryhttpclient "github.com/getsentry/sentry-go/httpclient"
)

var tracePropagationTargets = []string{
	"api.stripe.com",
	"api.resend.com",
}

// NewHTTPClient returns a client whose outgoing requests are recorded as
// sentry spans and carry trace headers to the payment and email APIs.
func NewHTTPClient(timeout time.Duration) *http.Client {
	client := &http.Client{
		Transport: sentryhttpclient.NewSentryRoundTripper(
			http.DefaultTransport,
			sentryhttpclient.WithTracePropagationTargets(tracePropagationTargets),
		),
	}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return client
}
