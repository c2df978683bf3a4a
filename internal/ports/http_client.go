package ports

import "net/http"

// HTTPClient is the subset of *http.Client the webhook transport needs.
// Tests substitute a stub to script provider responses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
