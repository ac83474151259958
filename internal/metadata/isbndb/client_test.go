package isbndb

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New("test-key", server.URL, logger), server
}

const bookResponse = `{
	"book": {
		"title": "Dune",
		"authors": ["Frank Herbert", "Someone Else"],
		"isbn": "0441013597",
		"isbn13": "9780441013593",
		"image": "https://images.isbndb.com/covers/dune.jpg",
		"subjects": ["Science Fiction", "Classics"],
		"synopsys": "A desert planet and its spice."
	}
}`

func TestClient_GetBook(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/book/9780441013593" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(bookResponse))
	})

	book, err := client.GetBook(context.Background(), "9780441013593")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}

	if gotAuth != "test-key" {
		t.Errorf("Authorization header: got %q, want %q", gotAuth, "test-key")
	}
	if book.Title != "Dune" {
		t.Errorf("Title: got %q", book.Title)
	}
	if book.Author != "Frank Herbert" {
		t.Errorf("Author: got %q, want first listed author", book.Author)
	}
	if book.ISBN != "9780441013593" {
		t.Errorf("ISBN: got %q, want isbn13", book.ISBN)
	}
	if book.CoverURL != "https://images.isbndb.com/covers/dune.jpg" {
		t.Errorf("CoverURL: got %q", book.CoverURL)
	}
	if book.Genres != "Science Fiction, Classics" {
		t.Errorf("Genres: got %q", book.Genres)
	}
	if book.Description != "A desert planet and its spice." {
		t.Errorf("Description: got %q", book.Description)
	}
}

func TestClient_GetBook_FallsBackToISBN10(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"book": {"title": "Old Print", "isbn": "0441013597"}}`))
	})

	book, err := client.GetBook(context.Background(), "0441013597")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if book.ISBN != "0441013597" {
		t.Errorf("ISBN: got %q", book.ISBN)
	}
	if book.Author != "" {
		t.Errorf("Author: got %q, want empty", book.Author)
	}
}

func TestClient_GetBook_FallsBackToRequestedISBN(t *testing.T) {
	// A sparse response without isbn13 or isbn still has to yield a book
	// findable by the ISBN the caller asked for.
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"book": {"title": "Dune", "authors": ["Frank Herbert"]}}`))
	})

	book, err := client.GetBook(context.Background(), "9780441013593")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if book.ISBN != "9780441013593" {
		t.Errorf("ISBN: got %q, want the requested ISBN", book.ISBN)
	}
}

func TestClient_GetBook_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
	}{
		{name: "not found", statusCode: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "bad api key", statusCode: http.StatusUnauthorized, wantErr: ErrUnauthorized},
		{name: "rate limited", statusCode: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{name: "server error", statusCode: http.StatusInternalServerError, wantErr: ErrServer},
		{name: "missing book object", statusCode: http.StatusOK, body: `{}`, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if tt.body != "" {
					w.Write([]byte(tt.body))
				}
			})

			_, err := client.GetBook(context.Background(), "9780441013593")
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}

			var clientErr *Error
			if !errors.As(err, &clientErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if !errors.Is(clientErr.Err, tt.wantErr) {
				t.Errorf("expected wrapped error %v, got %v", tt.wantErr, clientErr.Err)
			}
		})
	}
}

func TestClient_GetBook_InvalidISBN(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be made for invalid ISBN")
	})

	_, err := client.GetBook(context.Background(), "not-an-isbn")
	if !errors.Is(err, ErrInvalidISBN) {
		t.Errorf("expected ErrInvalidISBN, got %v", err)
	}
}

func TestClient_Search(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books/dune" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"books": [
			{"title": "Dune", "authors": ["Frank Herbert"], "isbn13": "9780441013593"},
			{"title": "Dune Messiah", "authors": ["Frank Herbert"], "isbn13": "9780593098233"}
		]}`))
	})

	results, err := client.Search(context.Background(), SearchParams{Query: "dune"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[1].Title != "Dune Messiah" {
		t.Errorf("Title: got %q", results[1].Title)
	}
}

func TestClient_Search_EmptyQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be made for empty query")
	})

	_, err := client.Search(context.Background(), SearchParams{})
	if err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestValidateISBN(t *testing.T) {
	valid := []string{"9780441013593", "0441013597", "044101359X", "978-0-441-01359-3"}
	for _, isbn := range valid {
		if !ValidateISBN(isbn) {
			t.Errorf("ValidateISBN(%q) = false, want true", isbn)
		}
	}

	invalid := []string{"", "abc", "12345", "not-an-isbn"}
	for _, isbn := range invalid {
		if ValidateISBN(isbn) {
			t.Errorf("ValidateISBN(%q) = true, want false", isbn)
		}
	}
}
