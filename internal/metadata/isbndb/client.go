package isbndb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nextreadapp/nextread-server/internal/ratelimit"
)

const (
	// ISBNdb allows 1 request per second on the basic plan.
	defaultRPS   = 1.0
	defaultBurst = 3

	defaultTimeout = 30 * time.Second

	// DefaultBaseURL is the production ISBNdb API endpoint.
	DefaultBaseURL = "https://api2.isbndb.com"
)

// Client is a rate-limited ISBNdb API client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// New creates a new ISBNdb client. baseURL may be empty, in which case
// DefaultBaseURL is used.
func New(apiKey, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// doRequest executes a GET request with rate limiting.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	// All requests share one upstream quota.
	if err := c.limiter.Wait(ctx, "isbndb"); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	c.logger.Debug("isbndb request", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// rawBookToBook converts a raw API response to a Book. requestedISBN is
// the ISBN the caller looked up, used as a last-resort fallback so a
// sparse response still yields a book findable by the requested key;
// search responses have no requested ISBN and pass "".
func rawBookToBook(r *rawBook, requestedISBN string) *Book {
	// Prefer the 13-digit ISBN when both forms are present.
	isbn := r.ISBN13
	if isbn == "" {
		isbn = r.ISBN
	}
	if isbn == "" {
		isbn = requestedISBN
	}

	var author string
	if len(r.Authors) > 0 {
		author = r.Authors[0]
	}

	return &Book{
		Title:       r.Title,
		Author:      author,
		ISBN:        isbn,
		CoverURL:    r.Image,
		Genres:      strings.Join(r.Subjects, ", "),
		Description: r.Synopsis,
	}
}

// Raw API response types (internal)

type rawBook struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	ISBN     string   `json:"isbn"`
	ISBN13   string   `json:"isbn13"`
	Image    string   `json:"image"`
	Subjects []string `json:"subjects"`
	// ISBNdb spells the field "synopsys" in its responses.
	Synopsis string `json:"synopsys"`
}
