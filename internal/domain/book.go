package domain

import "time"

// Book is a bibliographic record. A book row is an immutable fact once
// inserted; lookups are by ISBN, and at most one row exists per ISBN.
type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	ISBN        string    `json:"isbn,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	Genres      string    `json:"genres,omitempty"` // comma-separated
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
