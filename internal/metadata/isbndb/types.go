// Package isbndb provides a client for the ISBNdb book metadata API.
package isbndb

// Book represents book metadata from ISBNdb.
type Book struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	CoverURL    string `json:"cover_url,omitempty"`
	Genres      string `json:"genres,omitempty"`
	Description string `json:"description,omitempty"`
}

// SearchParams defines parameters for book search.
type SearchParams struct {
	Query string // General search terms
	Page  int    // 1-based page (default 1)
	Limit int    // Max results per page (default 20)
}
