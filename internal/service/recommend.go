// Package service contains the application use-cases on top of the store
// and the external adapters.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nextreadapp/nextread-server/internal/domain"
	domainerrors "github.com/nextreadapp/nextread-server/internal/errors"
	"github.com/nextreadapp/nextread-server/internal/metadata/isbndb"
	"github.com/nextreadapp/nextread-server/internal/recommender"
	"github.com/nextreadapp/nextread-server/internal/store"
)

// Field limits applied before anything reaches the books table.
const (
	maxFieldLen       = 255
	maxDescriptionLen = 2000
)

// MetadataProvider fetches bibliographic metadata by ISBN.
type MetadataProvider interface {
	GetBook(ctx context.Context, isbn string) (*isbndb.Book, error)
}

// Generator proposes a single next book from a set of input books.
type Generator interface {
	Suggest(ctx context.Context, inputs []*domain.Book, exclude *domain.Book) (*recommender.Proposal, error)
}

// RecommendResult is what a generation returns to the caller.
type RecommendResult struct {
	RecommendedBook *domain.Book `json:"recommendedBook"`
	Explanation     string       `json:"explanation"`
}

// RecommendationService orchestrates user upkeep, metadata lookups, and
// recommendation generation.
type RecommendationService struct {
	store              *store.Store
	metadata           MetadataProvider
	generator          Generator
	maxRecommendations int
	logger             *slog.Logger
}

// NewRecommendationService creates a new recommendation service.
func NewRecommendationService(
	st *store.Store,
	metadata MetadataProvider,
	generator Generator,
	maxRecommendations int,
	logger *slog.Logger,
) *RecommendationService {
	return &RecommendationService{
		store:              st,
		metadata:           metadata,
		generator:          generator,
		maxRecommendations: maxRecommendations,
		logger:             logger,
	}
}

// GetOrCreateUser returns the user for an external identity-provider id,
// creating the row on first contact. A concurrent first contact that loses
// the insert race falls back to reading the row the winner created.
func (s *RecommendationService) GetOrCreateUser(ctx context.Context, externalID string) (*domain.User, error) {
	user, err := s.store.GetUserByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !domainerrors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user, err = s.store.CreateUser(ctx, externalID)
	if domainerrors.Is(err, store.ErrAlreadyExists) {
		return s.store.GetUserByExternalID(ctx, externalID)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureUser makes sure a user row exists for the external id. Used by the
// identity webhook; safe to call repeatedly.
func (s *RecommendationService) EnsureUser(ctx context.Context, externalID string) error {
	_, err := s.GetOrCreateUser(ctx, externalID)
	return err
}

// HasRemainingQuota reports whether the user can request another
// recommendation. The count-then-insert window is not closed; the ceiling
// is a soft limit.
func (s *RecommendationService) HasRemainingQuota(ctx context.Context, userID int64) (bool, error) {
	count, err := s.store.CountRecommendations(ctx, userID)
	if err != nil {
		return false, err
	}
	return count < s.maxRecommendations, nil
}

// RecommendationCount returns how many recommendations the user has
// received. Unknown users have zero.
func (s *RecommendationService) RecommendationCount(ctx context.Context, externalID string) (int, error) {
	user, err := s.store.GetUserByExternalID(ctx, externalID)
	if domainerrors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.store.CountRecommendations(ctx, user.ID)
}

// Generate produces and persists a recommendation for the user's input
// ISBNs.
func (s *RecommendationService) Generate(ctx context.Context, externalID string, isbns []string) (*RecommendResult, error) {
	user, err := s.GetOrCreateUser(ctx, externalID)
	if err != nil {
		return nil, err
	}

	ok, err := s.HasRemainingQuota(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainerrors.QuotaExceeded("recommendation limit reached")
	}

	inputIDs, err := s.upsertInputBooks(ctx, isbns)
	if err != nil {
		return nil, err
	}
	if len(inputIDs) < 2 {
		return nil, domainerrors.Validation("at least 2 books required")
	}

	inputs, err := s.store.GetBooksByIDs(ctx, inputIDs)
	if err != nil {
		return nil, err
	}

	proposal, err := s.suggest(ctx, inputs, nil)
	if err != nil {
		return nil, err
	}

	// Re-verify against the metadata source. A failed lookup is not fatal;
	// the generator's own fields stand in.
	verified := s.verifyProposal(ctx, proposal)

	finalBook, err := s.upsertResultBook(ctx, verified, proposal.Explanation)
	if err != nil {
		return nil, err
	}

	explanation := clampRunes(proposal.Explanation, maxDescriptionLen)
	rec := &domain.Recommendation{
		UserID:       user.ID,
		ResultBookID: finalBook.ID,
		Explanation:  explanation,
	}
	if err := s.store.CreateRecommendation(ctx, rec, inputIDs); err != nil {
		return nil, err
	}

	s.logger.Info("recommendation created",
		"user_id", user.ID,
		"recommendation_id", rec.ID,
		"result_isbn", finalBook.ISBN,
	)

	return &RecommendResult{
		RecommendedBook: finalBook,
		Explanation:     explanation,
	}, nil
}

// Retry produces a fresh suggestion excluding a previously recommended
// book. The result book is upserted so the caller gets a stable row, but
// no recommendation is recorded and the quota is untouched.
func (s *RecommendationService) Retry(ctx context.Context, externalID string, isbns []string, previousISBN string) (*RecommendResult, error) {
	if _, err := s.GetOrCreateUser(ctx, externalID); err != nil {
		return nil, err
	}

	// Inputs are resolved from the store only; unknown ISBNs are dropped.
	inputs, err := s.store.GetBooksByISBNs(ctx, isbns)
	if err != nil {
		return nil, err
	}

	exclude, err := s.store.GetBookByISBN(ctx, previousISBN)
	if domainerrors.Is(err, store.ErrNotFound) {
		exclude = nil
	} else if err != nil {
		return nil, err
	}

	proposal, err := s.suggest(ctx, inputs, exclude)
	if err != nil {
		return nil, err
	}

	finalBook, err := s.upsertResultBook(ctx, proposal, proposal.Explanation)
	if err != nil {
		return nil, err
	}

	return &RecommendResult{
		RecommendedBook: finalBook,
		Explanation:     clampRunes(proposal.Explanation, maxDescriptionLen),
	}, nil
}

// History returns the user's recommendations, newest first, with the
// result book and the input books that produced each one. Unknown users
// get an empty list.
func (s *RecommendationService) History(ctx context.Context, externalID string) ([]*domain.RecommendationEntry, error) {
	user, err := s.store.GetUserByExternalID(ctx, externalID)
	if domainerrors.Is(err, store.ErrNotFound) {
		return []*domain.RecommendationEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.store.ListRecommendations(ctx, user.ID)
}

// upsertInputBooks resolves each ISBN to a book row, fetching metadata for
// ISBNs not seen before. A metadata failure here is fatal: the prompt
// would be built from a book we know nothing about.
func (s *RecommendationService) upsertInputBooks(ctx context.Context, isbns []string) ([]int64, error) {
	var ids []int64
	for _, isbn := range isbns {
		isbn = strings.TrimSpace(isbn)
		if isbn == "" {
			continue
		}

		book, err := s.store.GetBookByISBN(ctx, isbn)
		if domainerrors.Is(err, store.ErrNotFound) {
			book, err = s.fetchAndInsertBook(ctx, isbn)
		}
		if err != nil {
			return nil, err
		}

		ids = append(ids, book.ID)
	}
	return ids, nil
}

// fetchAndInsertBook pulls metadata for an unseen ISBN and inserts the
// book, re-reading on a lost insert race.
func (s *RecommendationService) fetchAndInsertBook(ctx context.Context, isbn string) (*domain.Book, error) {
	meta, err := s.metadata.GetBook(ctx, isbn)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeMetadataFetch, "metadata lookup failed for %s", isbn)
	}

	book := metadataToBook(meta)
	err = s.store.CreateBook(ctx, book)
	if domainerrors.Is(err, store.ErrAlreadyExists) {
		return s.store.GetBookByISBN(ctx, book.ISBN)
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

// suggest calls the generator and maps its failures to domain errors.
func (s *RecommendationService) suggest(ctx context.Context, inputs []*domain.Book, exclude *domain.Book) (*recommender.Proposal, error) {
	proposal, err := s.generator.Suggest(ctx, inputs, exclude)
	if err != nil {
		var parseErr *recommender.ParseError
		if domainerrors.As(err, &parseErr) {
			s.logger.Error("unparseable generator reply", "raw", parseErr.Raw)
			return nil, domainerrors.Wrap(err, domainerrors.CodeGenerationParse, "could not parse book recommendation")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "recommendation generation failed")
	}
	return proposal, nil
}

// verifyProposal re-fetches the proposed book from the metadata source.
// On success the verified fields replace the generator's; the explanation
// always stays with the generator.
func (s *RecommendationService) verifyProposal(ctx context.Context, p *recommender.Proposal) *recommender.Proposal {
	meta, err := s.metadata.GetBook(ctx, p.ISBN)
	if err != nil {
		s.logger.Warn("could not verify proposed book, keeping generator fields",
			"isbn", p.ISBN, "error", err)
		return p
	}

	return &recommender.Proposal{
		Title:       meta.Title,
		Author:      meta.Author,
		ISBN:        meta.ISBN,
		CoverURL:    meta.CoverURL,
		Explanation: p.Explanation,
	}
}

// upsertResultBook normalizes the proposal and inserts the book unless a
// row with the same ISBN already exists.
func (s *RecommendationService) upsertResultBook(ctx context.Context, p *recommender.Proposal, explanation string) (*domain.Book, error) {
	cleaned := normalizeProposal(p, explanation)

	existing, err := s.store.GetBookByISBN(ctx, cleaned.ISBN)
	if err == nil {
		return existing, nil
	}
	if !domainerrors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	err = s.store.CreateBook(ctx, cleaned)
	if domainerrors.Is(err, store.ErrAlreadyExists) {
		return s.store.GetBookByISBN(ctx, cleaned.ISBN)
	}
	if err != nil {
		return nil, err
	}
	return cleaned, nil
}

// normalizeProposal clamps every field to the column limits and fills the
// gaps a sloppy generator leaves behind.
func normalizeProposal(p *recommender.Proposal, explanation string) *domain.Book {
	title := clampRunes(strings.TrimSpace(p.Title), maxFieldLen)
	if title == "" {
		title = "Untitled"
	}

	author := clampRunes(strings.TrimSpace(p.Author), maxFieldLen)
	if author == "" {
		author = "Unknown"
	}

	isbn := clampRunes(strings.TrimSpace(p.ISBN), maxFieldLen)
	if isbn == "" {
		isbn = recommender.PlaceholderISBN()
	}

	return &domain.Book{
		Title:       title,
		Author:      author,
		ISBN:        isbn,
		CoverURL:    clampRunes(strings.TrimSpace(p.CoverURL), maxFieldLen),
		Description: clampRunes(explanation, maxDescriptionLen),
	}
}

// metadataToBook maps an ISBNdb record onto the domain book.
func metadataToBook(meta *isbndb.Book) *domain.Book {
	return &domain.Book{
		Title:       clampRunes(meta.Title, maxFieldLen),
		Author:      clampRunes(meta.Author, maxFieldLen),
		ISBN:        clampRunes(meta.ISBN, maxFieldLen),
		CoverURL:    clampRunes(meta.CoverURL, maxFieldLen),
		Genres:      clampRunes(meta.Genres, maxFieldLen),
		Description: clampRunes(meta.Description, maxDescriptionLen),
	}
}

// clampRunes truncates s to at most max runes.
func clampRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
