// Package recommender turns a reader's recent books into a single
// suggested next read via a generative language model.
package recommender

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nextreadapp/nextread-server/internal/domain"
)

// ErrNoProposal indicates the model reply contained no JSON object.
var ErrNoProposal = errors.New("recommender: no proposal in model reply")

// ParseError wraps a reply that could not be turned into a Proposal.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("recommender: parse reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Proposal is the model's suggested book, before verification and
// normalization.
type Proposal struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn,omitempty"`
	CoverURL    string `json:"coverUrl,omitempty"`
	Explanation string `json:"explanation"`
}

// BuildPrompt renders the suggestion prompt for a set of input books.
// exclude, when non-nil, names a book the model must not suggest again.
func BuildPrompt(inputs []*domain.Book, exclude *domain.Book) string {
	var b strings.Builder
	b.WriteString("Based on these books:\n\n")
	for i, book := range inputs {
		fmt.Fprintf(&b, "%d. %q by %s\n", i+1, book.Title, book.Author)
	}
	b.WriteString("\nSuggest a single book (not one of the input ones) the user might enjoy.")
	if exclude != nil {
		fmt.Fprintf(&b, " Do not suggest %q by %s; it was already recommended.", exclude.Title, exclude.Author)
	}
	b.WriteString(` Respond in the following JSON format:

{
  "title": "Book Title",
  "author": "Author Name",
  "isbn": "9780000000000",
  "coverUrl": "https://example.com/cover.jpg",
  "explanation": "Why this book fits well with the user's preferences"
}

The isbn and coverUrl fields are optional.`)
	return b.String()
}

// ParseProposal extracts a Proposal from a raw model reply. The reply may
// wrap the JSON object in prose or markdown fences; everything outside the
// first "{" and the last "}" is discarded.
func ParseProposal(raw string) (*Proposal, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &ParseError{Raw: raw, Err: ErrNoProposal}
	}

	span := raw[start : end+1]
	span = strings.ReplaceAll(span, "```json", "")
	span = strings.ReplaceAll(span, "```", "")

	var p Proposal
	if err := json.Unmarshal([]byte(span), &p); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	if p.Title == "" {
		p.Title = "Unknown Title"
	}
	if p.Author == "" {
		p.Author = "Unknown Author"
	}
	if p.ISBN == "" {
		p.ISBN = PlaceholderISBN()
	}

	return &p, nil
}

// PlaceholderISBN returns a unique stand-in for a proposal that arrived
// without an ISBN, so the books table's unique index still holds.
func PlaceholderISBN() string {
	return "UNKNOWN-" + uuid.NewString()[:6]
}
