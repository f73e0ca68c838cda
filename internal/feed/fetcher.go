// Package feed fetches and normalizes podcast feeds.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vrsandeep/podcatch/internal/models"
)

// maxFeedBytes caps how much of a feed body is read.
const maxFeedBytes = 20 << 20

// DefaultUserAgent is sent with every feed request. Several hosts reject
// requests that do not look like a browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// FetchErrorKind classifies a failed fetch.
type FetchErrorKind int

const (
	// Unreachable means both the original and the alternate host failed.
	Unreachable FetchErrorKind = iota
	// Unauthorized means the fetch failed while credentials were supplied.
	Unauthorized
)

func (k FetchErrorKind) String() string {
	if k == Unauthorized {
		return "unauthorized"
	}
	return "unreachable"
}

// Sentinels matched by errors.Is against a *FetchError of the same kind.
var (
	ErrUnreachable  = errors.New("feed unreachable")
	ErrUnauthorized = errors.New("feed unauthorized")
)

// FetchError is returned when a feed could not be downloaded.
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == Unreachable
	case ErrUnauthorized:
		return e.Kind == Unauthorized
	}
	return false
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.code, http.StatusText(e.code))
}

// Fetcher downloads feed documents.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher builds a Fetcher. A nil client gets one with a 30 second
// timeout; an empty user agent falls back to the browser default.
func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{client: client, userAgent: userAgent}
}

// Fetch downloads a feed. A failed request is retried exactly once against
// the alternate host form of the URL (with or without a leading "www.").
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, creds *models.Credentials) (string, error) {
	body, err := f.get(ctx, feedURL, creds)
	if err == nil {
		return body, nil
	}

	if alt := AlternateHost(feedURL); alt != "" {
		log.Printf("feed: %s failed (%v), retrying as %s", feedURL, err, alt)
		body, altErr := f.get(ctx, alt, creds)
		if altErr == nil {
			return body, nil
		}
		err = errors.Join(err, altErr)
	}

	kind := Unreachable
	if creds.Present() {
		kind = Unauthorized
	}
	return "", &FetchError{Kind: kind, URL: feedURL, Err: err}
}

func (f *Fetcher) get(ctx context.Context, target string, creds *models.Credentials) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")
	if creds.Present() {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &statusError{code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

// AlternateHost toggles the leading "www." of the URL's host. It returns ""
// when the URL has no host to toggle, which includes IP literals.
func AlternateHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	if net.ParseIP(host) != nil {
		return ""
	}
	if strings.HasPrefix(host, "www.") {
		host = strings.TrimPrefix(host, "www.")
	} else {
		host = "www." + host
	}
	if port := u.Port(); port != "" {
		host = net.JoinHostPort(host, port)
	}
	u.Host = host
	return u.String()
}
