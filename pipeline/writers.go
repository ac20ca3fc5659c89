// Package pipeline persists completed crawl results.
package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hylin/bookcrawl/models"
)

// Writer is the sink for completed crawl results. The crawler calls it
// once per completed target plus once for the end-of-run summary, so
// partial progress survives a later failure.
type Writer interface {
	WriteListing(name string, res *models.ListingResult) error
	WriteBooks(name, kind string, books []*models.Book) error
	WriteRankSeries(name string, series []models.RankSeries) error
	WriteSummary(s *models.RunSummary) error
	Validate() error
	Close() error
}

const timestampLayout = "20060102_1504"

// JSONWriter writes one indented JSON document per completed target.
type JSONWriter struct {
	dir    string
	now    func() time.Time
	mu     sync.Mutex
	writes int
}

// NewJSONWriter initialises a JSON writer rooted at dir.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &JSONWriter{dir: dir, now: time.Now}, nil
}

// WriteListing persists a paginated-listing result as
// {metadata, total_pages, books}.
func (w *JSONWriter) WriteListing(name string, res *models.ListingResult) error {
	return w.writeJSON(name, "book_list", res)
}

// WriteBooks persists flat records for a bestseller or detail target.
func (w *JSONWriter) WriteBooks(name, kind string, books []*models.Book) error {
	return w.writeJSON(name, kind, books)
}

// WriteRankSeries persists ranking chart series.
func (w *JSONWriter) WriteRankSeries(name string, series []models.RankSeries) error {
	return w.writeJSON(name, "rank_series", series)
}

// WriteSummary persists the run summary.
func (w *JSONWriter) WriteSummary(s *models.RunSummary) error {
	return w.writeJSON("run", "summary", s)
}

// Validate ensures the run produced at least one output file.
func (w *JSONWriter) Validate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writes == 0 {
		return fmt.Errorf("no output written to %s", w.dir)
	}
	return nil
}

// Close is a no-op: each write owns its own file handle.
func (w *JSONWriter) Close() error { return nil }

func (w *JSONWriter) writeJSON(name, kind string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := filepath.Join(w.dir, outputName(name, kind, w.now())+".json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	w.writes++
	return nil
}

// CSVWriter writes one CSV file of flat records per completed target.
// Listing metadata lives in the filename; unknown fields become empty
// cells since CSV has no null. The run summary is structured, so it is
// still written as JSON.
type CSVWriter struct {
	dir    string
	now    func() time.Time
	mu     sync.Mutex
	writes int
}

// NewCSVWriter initialises a CSV writer rooted at dir.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &CSVWriter{dir: dir, now: time.Now}, nil
}

var bookHeader = []string{
	"rank", "title", "simplified_title", "original_title", "author",
	"translator", "publisher", "publication_date", "language", "isbn",
	"pages", "price", "discount", "list_price", "sale_price",
	"discount_deadline", "category", "categories", "book_id", "url",
	"img_url", "timestamp",
}

// WriteListing persists the listing's records; metadata goes into the
// filename only.
func (w *CSVWriter) WriteListing(name string, res *models.ListingResult) error {
	return w.WriteBooks(name, "book_list", res.Books)
}

// WriteBooks persists flat records with a header row.
func (w *CSVWriter) WriteBooks(name, kind string, books []*models.Book) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows := make([][]string, 0, len(books)+1)
	rows = append(rows, bookHeader)
	for _, b := range books {
		rows = append(rows, bookRow(b))
	}
	return w.writeRows(outputName(name, kind, w.now()), rows)
}

// WriteRankSeries flattens chart series into series/date/value rows.
func (w *CSVWriter) WriteRankSeries(name string, series []models.RankSeries) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows := [][]string{{"series", "date", "value"}}
	for _, s := range series {
		for _, p := range s.Data {
			rows = append(rows, []string{s.Name, p.Date, strconv.FormatFloat(p.Value, 'f', -1, 64)})
		}
	}
	return w.writeRows(outputName(name, "rank_series", w.now()), rows)
}

// WriteSummary persists the run summary as JSON alongside the CSV files.
func (w *CSVWriter) WriteSummary(s *models.RunSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := filepath.Join(w.dir, outputName("run", "summary", w.now())+".json")
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	w.writes++
	return nil
}

// Validate ensures the run produced at least one output file.
func (w *CSVWriter) Validate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writes == 0 {
		return fmt.Errorf("no output written to %s", w.dir)
	}
	return nil
}

// Close is a no-op: each write owns its own file handle.
func (w *CSVWriter) Close() error { return nil }

func (w *CSVWriter) writeRows(stem string, rows [][]string) error {
	path := filepath.Join(w.dir, stem+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write csv records: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	w.writes++
	return nil
}

func bookRow(b *models.Book) []string {
	return []string{
		intCell(b.Rank),
		b.Title,
		strCell(b.SimplifiedTitle),
		strCell(b.OriginalTitle),
		strCell(b.Author),
		strCell(b.Translator),
		strCell(b.Publisher),
		strCell(b.PublicationDate),
		strCell(b.Language),
		strCell(b.ISBN),
		strCell(b.Pages),
		intCell(b.Price),
		intCell(b.Discount),
		strCell(b.ListPrice),
		strCell(b.SalePrice),
		strCell(b.DiscountDeadline),
		strCell(b.Category),
		strings.Join(b.Categories, "|"),
		strCell(b.BookID),
		b.URL,
		strCell(b.ImageURL),
		b.Timestamp.Format(time.RFC3339),
	}
}

func strCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intCell(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

// outputName builds the per-target file stem, matching the
// name_kind_timestamp convention of the crawl outputs.
func outputName(name, kind string, now time.Time) string {
	safe := strings.ReplaceAll(strings.TrimSpace(name), "/", "_")
	safe = strings.ReplaceAll(safe, string(filepath.Separator), "_")
	return fmt.Sprintf("%s_%s_%s", safe, kind, now.Format(timestampLayout))
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
