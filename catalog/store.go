// Package catalog provides the local book catalog: a SQLite store and
// the small CRUD HTTP API in front of it. It is a standalone service,
// separate from the crawl core.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a book id does not exist.
var ErrNotFound = errors.New("catalog: book not found")

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS books (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	title            TEXT NOT NULL,
	author           TEXT,
	price            REAL,
	isbn             TEXT UNIQUE,
	publisher        TEXT,
	publication_date TEXT,
	category_id      INTEGER REFERENCES categories(id),
	created_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
`

// Book is a catalog row. The catalog schema is narrower than the crawl
// record: it keeps the fields the CRUD API exposes.
type Book struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Author          *string  `json:"author"`
	Price           *float64 `json:"price"`
	ISBN            *string  `json:"isbn"`
	Publisher       *string  `json:"publisher"`
	PublicationDate *string  `json:"publication_date"`
	Category        *string  `json:"category"`
	CreatedAt       string   `json:"created_at"`
}

// BookInput is the caller-supplied portion of a catalog row.
type BookInput struct {
	Title           string   `json:"title"`
	Author          *string  `json:"author"`
	Price           *float64 `json:"price"`
	ISBN            *string  `json:"isbn"`
	Publisher       *string  `json:"publisher"`
	PublicationDate *string  `json:"publication_date"`
	Category        *string  `json:"category"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at path and applies the
// schema. Use ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const bookColumns = `
	b.id, b.title, b.author, b.price, b.isbn, b.publisher,
	b.publication_date, c.name, b.created_at`

// ListBooks returns a page of catalog rows ordered by id.
func (s *Store) ListBooks(ctx context.Context, limit, offset int) ([]*Book, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookColumns+`
		FROM books b LEFT JOIN categories c ON c.id = b.category_id
		ORDER BY b.id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// GetBook returns one catalog row by id.
func (s *Store) GetBook(ctx context.Context, id int64) (*Book, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+bookColumns+`
		FROM books b LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.id = ?`, id)

	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

// CreateBook inserts a catalog row, creating its category on demand.
func (s *Store) CreateBook(ctx context.Context, in BookInput) (*Book, error) {
	categoryID, err := s.categoryID(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO books (title, author, price, isbn, publisher, publication_date, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Author, in.Price, in.ISBN, in.Publisher, in.PublicationDate, categoryID)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert book id: %w", err)
	}
	return s.GetBook(ctx, id)
}

// UpdateBook replaces the caller-supplied fields of a catalog row.
func (s *Store) UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error) {
	categoryID, err := s.categoryID(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET title = ?, author = ?, price = ?, isbn = ?, publisher = ?,
		    publication_date = ?, category_id = ?
		WHERE id = ?`,
		in.Title, in.Author, in.Price, in.ISBN, in.Publisher, in.PublicationDate, categoryID, id)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update book rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetBook(ctx, id)
}

// DeleteBook removes a catalog row.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete book rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// categoryID resolves a category name to its id, inserting it first if
// needed. A nil name yields a NULL category.
func (s *Store) categoryID(ctx context.Context, name *string) (*int64, error) {
	if name == nil || *name == "" {
		return nil, nil
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, *name); err != nil {
		return nil, fmt.Errorf("upsert category: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name = ?`, *name).Scan(&id); err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}
	return &id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*Book, error) {
	var book Book
	if err := row.Scan(
		&book.ID, &book.Title, &book.Author, &book.Price, &book.ISBN,
		&book.Publisher, &book.PublicationDate, &book.Category, &book.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return &book, nil
}
