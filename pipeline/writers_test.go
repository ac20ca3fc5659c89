package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hylin/bookcrawl/models"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)

func strptr(s string) *string { return &s }

func intptr(i int) *int { return &i }

func sampleListing() *models.ListingResult {
	return &models.ListingResult{
		Metadata:   models.CategoryPath{"中文書", "文學小說"},
		TotalPages: 3,
		Books: []*models.Book{
			{
				Title:     "世界上最透明的故事",
				URL:       "https://www.books.com.tw/products/0010945555",
				BookID:    strptr("0010945555"),
				Timestamp: fixedNow,
			},
			{
				Title:     "被討厭的勇氣",
				URL:       "https://www.books.com.tw/products/0010653153",
				BookID:    strptr("0010653153"),
				Timestamp: fixedNow,
			},
		},
	}
}

func TestJSONWriterListingShape(t *testing.T) {
	dir := t.TempDir()
	w, err := NewJSONWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.now = func() time.Time { return fixedNow }

	if err := w.WriteListing("文學小說", sampleListing()); err != nil {
		t.Fatalf("write listing: %v", err)
	}

	path := filepath.Join(dir, "文學小說_book_list_20260314_1509.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	var decoded struct {
		Metadata   []string       `json:"metadata"`
		TotalPages int            `json:"total_pages"`
		Books      []*models.Book `json:"books"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.TotalPages != 3 {
		t.Errorf("total_pages = %d, want 3", decoded.TotalPages)
	}
	if len(decoded.Metadata) != 2 || decoded.Metadata[0] != "中文書" {
		t.Errorf("metadata = %v", decoded.Metadata)
	}
	if len(decoded.Books) != 2 || decoded.Books[0].Title != "世界上最透明的故事" {
		t.Errorf("books = %+v", decoded.Books)
	}

	if err := w.Validate(); err != nil {
		t.Errorf("Validate() after a write = %v, want nil", err)
	}
}

func TestJSONWriterUnknownFieldsAreNull(t *testing.T) {
	dir := t.TempDir()
	w, err := NewJSONWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.now = func() time.Time { return fixedNow }

	books := []*models.Book{{
		Rank:      intptr(1),
		Title:     "原子習慣",
		URL:       "https://www.books.com.tw/products/0010822522",
		Timestamp: fixedNow,
	}}
	if err := w.WriteBooks("top", "bestsellers", books); err != nil {
		t.Fatalf("write books: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "top_bestsellers_20260314_1509.json"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	text := string(raw)
	if !strings.Contains(text, `"author": null`) {
		t.Errorf("missing author should serialise as null, got:\n%s", text)
	}
	if !strings.Contains(text, `"isbn": null`) {
		t.Errorf("missing isbn should serialise as null, got:\n%s", text)
	}
}

func TestJSONWriterValidateWithoutWrites(t *testing.T) {
	w, err := NewJSONWriter(t.TempDir())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Validate(); err == nil {
		t.Error("Validate() with no writes = nil, want error")
	}
}

func TestCSVWriterRows(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCSVWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.now = func() time.Time { return fixedNow }

	books := []*models.Book{{
		Rank:      intptr(2),
		Title:     "被討厭的勇氣",
		Author:    strptr("岸見一郎"),
		Price:     intptr(198),
		Discount:  intptr(66),
		BookID:    strptr("0010653153"),
		URL:       "https://www.books.com.tw/products/0010653153",
		Timestamp: fixedNow,
	}}
	if err := w.WriteBooks("top", "bestsellers", books); err != nil {
		t.Fatalf("write books: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "top_bestsellers_20260314_1509.csv"))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("rows = %d, want header plus one record", len(records))
	}
	header, row := records[0], records[1]
	if len(header) != len(bookHeader) {
		t.Fatalf("header columns = %d, want %d", len(header), len(bookHeader))
	}

	col := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("column %q missing", name)
		return ""
	}
	if col("rank") != "2" || col("title") != "被討厭的勇氣" {
		t.Errorf("row = %v", row)
	}
	if col("price") != "198" || col("discount") != "66" {
		t.Errorf("price cells = %q/%q", col("price"), col("discount"))
	}
	if col("isbn") != "" {
		t.Errorf("unknown isbn should be an empty cell, got %q", col("isbn"))
	}
}

func TestCSVWriterRankSeries(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCSVWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.now = func() time.Time { return fixedNow }

	series := []models.RankSeries{{
		Name: "博客來",
		Data: []models.RankPoint{{Date: "2024-01-05", Value: 3}, {Date: "2024-01-12", Value: 1}},
	}}
	if err := w.WriteRankSeries("monster", series); err != nil {
		t.Fatalf("write series: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "monster_rank_series_20260314_1509.csv"))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header plus two points", len(records))
	}
	if records[1][0] != "博客來" || records[1][1] != "2024-01-05" || records[1][2] != "3" {
		t.Errorf("row 1 = %v", records[1])
	}
}

func TestDualWriterWritesBothFormats(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDualWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.json.now = func() time.Time { return fixedNow }
	w.csv.now = func() time.Time { return fixedNow }

	if err := w.WriteListing("fiction", sampleListing()); err != nil {
		t.Fatalf("write listing: %v", err)
	}

	for _, name := range []string{
		"fiction_book_list_20260314_1509.json",
		"fiction_book_list_20260314_1509.csv",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected output file %s: %v", name, err)
		}
	}
	if err := w.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestOutputNameSanitisesSlashes(t *testing.T) {
	got := outputName("推理/驚悚小說", "book_list", fixedNow)
	if strings.Contains(got, "/") {
		t.Errorf("outputName() = %q, contains a path separator", got)
	}
	if got != "推理_驚悚小說_book_list_20260314_1509" {
		t.Errorf("outputName() = %q", got)
	}
}
