package isbndb

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Search queries the ISBNdb catalog by free-text terms.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]*Book, error) {
	if params.Query == "" {
		return nil, wrapError("search", "", fmt.Errorf("empty query"))
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := params.Page
	if page <= 0 {
		page = 1
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(limit))

	body, err := c.doRequest(ctx, "/books/"+url.PathEscape(params.Query), query)
	if err != nil {
		return nil, wrapError("search", "", err)
	}

	var resp struct {
		Books []rawBook `json:"books"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("search", "", fmt.Errorf("parse response: %w", err))
	}

	results := make([]*Book, 0, len(resp.Books))
	for i := range resp.Books {
		results = append(results, rawBookToBook(&resp.Books[i], ""))
	}
	return results, nil
}
