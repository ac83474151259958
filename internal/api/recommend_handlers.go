package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/nextreadapp/nextread-server/internal/http/response"
)

// BookInput identifies one of the reader's recent books. Title and author
// are accepted for display purposes but only the ISBN drives the lookup.
// Entries without an ISBN are tolerated and skipped; the service requires
// at least two entries that carry one.
type BookInput struct {
	ISBN   string `json:"isbn" validate:"max=255"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	Books []BookInput `json:"books" validate:"required,min=2,dive"`
}

// RetryRequest is the body of POST /recommend/retry.
type RetryRequest struct {
	Books        []BookInput `json:"books" validate:"required,min=2,dive"`
	PreviousISBN string      `json:"previousIsbn" validate:"required"`
}

// handleRecommend generates and persists a recommendation from the
// caller's input books.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	externalID := getExternalID(ctx)

	var req RecommendRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	result, err := s.recommendations.Generate(ctx, externalID, isbns(req.Books))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// handleRetry generates a fresh suggestion excluding a previous one,
// without recording it.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	externalID := getExternalID(ctx)

	var req RetryRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	result, err := s.recommendations.Retry(ctx, externalID, isbns(req.Books), req.PreviousISBN)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// handleRecommendCount returns how many recommendations the caller has
// used so far.
func (s *Server) handleRecommendCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := s.recommendations.RecommendationCount(ctx, getExternalID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]int{"count": count}, s.logger)
}

// handleHistory returns the caller's recommendations with their input
// books, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := s.recommendations.History(ctx, getExternalID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{"recommendations": entries}, s.logger)
}

// handleSearch proxies a catalog search for the book picker.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := s.search.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{"results": results}, s.logger)
}

// isbns extracts the ISBN of each input book, in order.
func isbns(books []BookInput) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.ISBN)
	}
	return out
}
