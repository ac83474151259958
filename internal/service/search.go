package service

import (
	"context"
	"log/slog"

	"github.com/nextreadapp/nextread-server/internal/metadata/isbndb"
)

// BookSearcher queries the metadata catalog by free text.
type BookSearcher interface {
	Search(ctx context.Context, params isbndb.SearchParams) ([]*isbndb.Book, error)
}

// SearchResult is the trimmed catalog match returned to the book picker.
type SearchResult struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	CoverURL string `json:"coverUrl"`
}

// SearchService proxies catalog searches for the client's book picker.
type SearchService struct {
	searcher BookSearcher
	logger   *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(searcher BookSearcher, logger *slog.Logger) *SearchService {
	return &SearchService{
		searcher: searcher,
		logger:   logger,
	}
}

// Search returns catalog matches for the query. An empty query or an
// upstream failure yields an empty list rather than an error; the picker
// degrades to manual entry.
func (s *SearchService) Search(ctx context.Context, query string) ([]*SearchResult, error) {
	if query == "" {
		return []*SearchResult{}, nil
	}

	books, err := s.searcher.Search(ctx, isbndb.SearchParams{Query: query})
	if err != nil {
		s.logger.Warn("catalog search failed", "query", query, "error", err)
		return []*SearchResult{}, nil
	}

	results := make([]*SearchResult, 0, len(books))
	for _, b := range books {
		results = append(results, &SearchResult{
			Title:    b.Title,
			Author:   b.Author,
			ISBN:     b.ISBN,
			CoverURL: b.CoverURL,
		})
	}
	return results, nil
}
