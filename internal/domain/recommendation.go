package domain

import "time"

// Recommendation links a user to one recommended book with the model's
// explanation. Input books are attached through recommendation_books rows.
type Recommendation struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	ResultBookID int64     `json:"resultBookId"`
	Explanation  string    `json:"explanation,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RecommendationEntry is a recommendation denormalized for the history view:
// the result book and the input books it was generated from.
type RecommendationEntry struct {
	ID          int64     `json:"id"`
	Explanation string    `json:"explanation,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ResultBook  *Book     `json:"resultBook"`
	InputBooks  []*Book   `json:"inputBooks"`
}
