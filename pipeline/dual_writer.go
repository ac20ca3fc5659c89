package pipeline

import (
	"errors"

	"github.com/hylin/bookcrawl/models"
)

// DualWriter writes every result in both JSON and CSV form.
type DualWriter struct {
	json *JSONWriter
	csv  *CSVWriter
}

// NewDualWriter creates JSON and CSV writers sharing one output dir.
func NewDualWriter(dir string) (*DualWriter, error) {
	jsonWriter, err := NewJSONWriter(dir)
	if err != nil {
		return nil, err
	}
	csvWriter, err := NewCSVWriter(dir)
	if err != nil {
		return nil, err
	}
	return &DualWriter{json: jsonWriter, csv: csvWriter}, nil
}

// WriteListing writes the listing through both writers.
func (w *DualWriter) WriteListing(name string, res *models.ListingResult) error {
	return errors.Join(w.json.WriteListing(name, res), w.csv.WriteListing(name, res))
}

// WriteBooks writes flat records through both writers.
func (w *DualWriter) WriteBooks(name, kind string, books []*models.Book) error {
	return errors.Join(w.json.WriteBooks(name, kind, books), w.csv.WriteBooks(name, kind, books))
}

// WriteRankSeries writes chart series through both writers.
func (w *DualWriter) WriteRankSeries(name string, series []models.RankSeries) error {
	return errors.Join(w.json.WriteRankSeries(name, series), w.csv.WriteRankSeries(name, series))
}

// WriteSummary writes the run summary once; both writers emit JSON for
// it, so the JSON writer owns it.
func (w *DualWriter) WriteSummary(s *models.RunSummary) error {
	return w.json.WriteSummary(s)
}

// Validate checks both writers produced output.
func (w *DualWriter) Validate() error {
	return errors.Join(w.json.Validate(), w.csv.Validate())
}

// Close closes both writers.
func (w *DualWriter) Close() error {
	return errors.Join(w.json.Close(), w.csv.Close())
}
