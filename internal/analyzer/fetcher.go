package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher retrieves the raw HTML of an article URL.
type Fetcher interface {
	Fetch(ctx context.Context, articleURL string) (string, error)
}

// HTTPFetcher implements Fetcher over plain HTTP GET.
type HTTPFetcher struct {
	client         *resty.Client
	allowedDomains []string
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates an HTTP fetcher. allowedDomains restricts which
// hosts are accepted; an empty list accepts any host.
func NewHTTPFetcher(timeout time.Duration, allowedDomains []string) *HTTPFetcher {
	return &HTTPFetcher{
		client:         resty.New().SetTimeout(timeout),
		allowedDomains: allowedDomains,
	}
}

// Fetch downloads the page and returns its body. Unreachable hosts,
// non-2xx statuses, disallowed domains and non-HTML payloads all yield a
// FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, articleURL string) (string, error) {
	if err := f.validateURL(articleURL); err != nil {
		return "", &FetchError{URL: articleURL, Err: err}
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", "reddit-autopost/1.0").
		Get(articleURL)

	if err != nil {
		return "", &FetchError{URL: articleURL, Err: err}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", &FetchError{URL: articleURL, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "text/plain") {
		return "", &FetchError{URL: articleURL, Err: fmt.Errorf("non-content response type %q", contentType)}
	}

	return string(resp.Body()), nil
}

func (f *HTTPFetcher) validateURL(articleURL string) error {
	parsed, err := url.Parse(articleURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host")
	}

	if len(f.allowedDomains) == 0 {
		return nil
	}
	host := strings.ToLower(parsed.Host)
	for _, domain := range f.allowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return nil
		}
	}
	return fmt.Errorf("host %s is not an allowed article source", parsed.Host)
}
