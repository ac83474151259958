package isbndb

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"regexp"
)

// ISBN format: 10 or 13 digits, possibly hyphenated, ISBN-10 may end in X.
var isbnRegex = regexp.MustCompile(`^[0-9-]{9,16}[0-9Xx]$`)

// ValidateISBN checks if an ISBN has valid format.
func ValidateISBN(isbn string) bool {
	return isbnRegex.MatchString(isbn)
}

// GetBook retrieves metadata for a single book by ISBN.
func (c *Client) GetBook(ctx context.Context, isbn string) (*Book, error) {
	if !ValidateISBN(isbn) {
		return nil, wrapError("getBook", isbn, ErrInvalidISBN)
	}

	body, err := c.doRequest(ctx, "/book/"+isbn, nil)
	if err != nil {
		return nil, wrapError("getBook", isbn, err)
	}

	var resp struct {
		Book *rawBook `json:"book"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("getBook", isbn, fmt.Errorf("parse response: %w", err))
	}
	if resp.Book == nil {
		return nil, wrapError("getBook", isbn, ErrNotFound)
	}

	return rawBookToBook(resp.Book, isbn), nil
}
