// Package models defines data structures for the crawler.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Book is a single bibliographic record. Optional fields are pointers:
// nil means the source page did not carry the field ("unknown"), which is
// distinct from a present-but-empty value. Records are immutable once the
// parsing stage returns them.
type Book struct {
	Rank             *int      `json:"rank"`
	Title            string    `json:"title"`
	SimplifiedTitle  *string   `json:"simplified_title"`
	OriginalTitle    *string   `json:"original_title"`
	Author           *string   `json:"author"`
	Translator       *string   `json:"translator"`
	Publisher        *string   `json:"publisher"`
	PublicationDate  *string   `json:"publication_date"`
	Language         *string   `json:"language"`
	ISBN             *string   `json:"isbn"`
	Pages            *string   `json:"pages"`
	Price            *int      `json:"price"`
	Discount         *int      `json:"discount"`
	ListPrice        *string   `json:"list_price"`
	SalePrice        *string   `json:"sale_price"`
	DiscountDeadline *string   `json:"discount_deadline"`
	Category         *string   `json:"category"`
	Categories       []string  `json:"categories,omitempty"`
	BookID           *string   `json:"book_id"`
	URL              string    `json:"url"`
	ImageURL         *string   `json:"img_url"`
	Timestamp        time.Time `json:"timestamp"`
}

// BookInfo is the field subset extracted from a product meta description.
// All fields are optional; a nil pointer means the label was absent from
// the text.
type BookInfo struct {
	Title           *string
	SimplifiedTitle *string
	OriginalTitle   *string
	Language        *string
	ISBN            *string
	Pages           *string
	Publisher       *string
	Author          *string
	Translator      *string
	PublicationDate *string
	Category        *string
}

// CategoryPath is a category trail from broadest to narrowest.
type CategoryPath []string

// ListingResult aggregates one paginated listing crawl. Metadata and
// TotalPages come from page 1 and are fixed; Books accumulate in
// page-then-item order.
type ListingResult struct {
	Metadata   CategoryPath `json:"metadata"`
	TotalPages int          `json:"total_pages"`
	Books      []*Book      `json:"books"`
}

// TargetKind selects how a crawl target is fetched and parsed.
type TargetKind string

const (
	// KindListing is a paginated category listing.
	KindListing TargetKind = "listing"
	// KindBestseller is a single bestseller page with ranked items.
	KindBestseller TargetKind = "bestseller"
	// KindDetail is a single product page.
	KindDetail TargetKind = "detail"
	// KindRankChart is a publisher page embedding a ranking history chart.
	KindRankChart TargetKind = "rankchart"
)

// Valid reports whether k names a known target kind.
func (k TargetKind) Valid() bool {
	switch k {
	case KindListing, KindBestseller, KindDetail, KindRankChart:
		return true
	}
	return false
}

// Target is one externally supplied crawl target. The crawler treats it
// as read-only input.
type Target struct {
	Name string     `yaml:"name" json:"name"`
	URL  string     `yaml:"url" json:"url"`
	Kind TargetKind `yaml:"kind" json:"kind"`
}

// TargetStatus tracks a target through the crawl state machine:
// Pending -> Fetching -> {Parsed | FetchFailed | ParseFailed} -> Done.
type TargetStatus string

const (
	StatusPending     TargetStatus = "pending"
	StatusFetching    TargetStatus = "fetching"
	StatusParsed      TargetStatus = "parsed"
	StatusFetchFailed TargetStatus = "fetch_failed"
	StatusParseFailed TargetStatus = "parse_failed"
	StatusDone        TargetStatus = "done"
)

// TargetResult holds whatever a target produced before reaching its
// terminal state. Failed targets keep the partial data gathered so far.
type TargetResult struct {
	Target  Target         `json:"target"`
	Status  TargetStatus   `json:"status"`
	Listing *ListingResult `json:"listing,omitempty"`
	Books   []*Book        `json:"books,omitempty"`
	Series  []RankSeries   `json:"series,omitempty"`
	Pages   int            `json:"pages"`
	Dropped int            `json:"dropped"`
	Err     error          `json:"-"`
}

// FailedTarget identifies a target that ended in a failure state.
type FailedTarget struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// RunSummary is the end-of-run report handed to the sink and the caller.
// Dropped items and failed targets are counted here so that data loss is
// never silent.
type RunSummary struct {
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
	TargetCount   int            `json:"target_count"`
	Completed     int            `json:"completed"`
	BookCount     int            `json:"book_count"`
	PageCount     int            `json:"page_count"`
	DroppedItems  int            `json:"dropped_items"`
	FailedTargets []FailedTarget `json:"failed_targets"`
	ErrorsByType  map[string]int `json:"errors_by_type"`
	Canceled      bool           `json:"canceled"`
}

// RankSeries is one named series from an embedded ranking chart.
type RankSeries struct {
	Name string      `json:"name"`
	Data []RankPoint `json:"data"`
}

// RankPoint is a [date, value] pair from chart series data.
type RankPoint struct {
	Date  string
	Value float64
}

// UnmarshalJSON decodes the two-element array form used by chart data.
func (p *RankPoint) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("rank point: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Date); err != nil {
		return fmt.Errorf("rank point date: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Value); err != nil {
		return fmt.Errorf("rank point value: %w", err)
	}
	return nil
}

// MarshalJSON encodes the point back into its array form.
func (p RankPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Date, p.Value})
}

// Category is one node of the bookstore category tree.
type Category struct {
	Name          string     `json:"name"`
	Link          string     `json:"link"`
	Subcategories []Category `json:"subcategories"`
}
