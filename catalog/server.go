package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the CRUD API over the store.
func NewRouter(store *Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/books", func(r chi.Router) {
		r.Get("/", listBooksHandler(store))
		r.Post("/", createBookHandler(store))
		r.Get("/{id}", getBookHandler(store))
		r.Put("/{id}", updateBookHandler(store))
		r.Delete("/{id}", deleteBookHandler(store))
	})

	return r
}

func listBooksHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 100)
		offset := queryInt(r, "skip", 0)

		books, err := store.ListBooks(r.Context(), limit, offset)
		if err != nil {
			serverError(w, "list books", err)
			return
		}
		if books == nil {
			books = []*Book{}
		}
		writeJSON(w, http.StatusOK, books)
	}
}

func getBookHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		book, err := store.GetBook(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		if err != nil {
			serverError(w, "get book", err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	}
}

func createBookHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeBookInput(w, r)
		if !ok {
			return
		}
		book, err := store.CreateBook(r.Context(), in)
		if err != nil {
			if isUniqueViolation(err) {
				writeError(w, http.StatusConflict, "isbn already exists")
				return
			}
			serverError(w, "create book", err)
			return
		}
		writeJSON(w, http.StatusCreated, book)
	}
}

func updateBookHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		in, ok := decodeBookInput(w, r)
		if !ok {
			return
		}
		book, err := store.UpdateBook(r.Context(), id, in)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		if err != nil {
			if isUniqueViolation(err) {
				writeError(w, http.StatusConflict, "isbn already exists")
				return
			}
			serverError(w, "update book", err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	}
}

func deleteBookHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		err := store.DeleteBook(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		if err != nil {
			serverError(w, "delete book", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeBookInput(w http.ResponseWriter, r *http.Request) (BookInput, bool) {
	var in BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return in, false
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return in, false
	}
	return in, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func serverError(w http.ResponseWriter, op string, err error) {
	slog.Error(op, slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", slog.Any("error", err))
	}
}
