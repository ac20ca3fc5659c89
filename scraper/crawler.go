// Package scraper drives the fetch -> classify -> parse -> accumulate
// loop across crawl targets.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hylin/bookcrawl/config"
	"github.com/hylin/bookcrawl/models"
	"github.com/hylin/bookcrawl/parser"
	"github.com/hylin/bookcrawl/pipeline"
)

// Crawler sequences crawl targets in input order. Each target moves
// through Pending -> Fetching -> {Parsed | FetchFailed | ParseFailed} ->
// Done; a failed target is recorded against itself only and never stops
// its siblings. Completed results are handed to the sink after each
// target, so partial progress survives a later failure.
type Crawler struct {
	cfg     *config.Config
	fetcher Fetcher
	sink    pipeline.Writer
	Metrics *Metrics
}

// NewCrawler builds a crawler instance configured from cfg, writing
// completed results to sink.
func NewCrawler(cfg *config.Config, sink pipeline.Writer) (*Crawler, error) {
	metrics := NewMetrics()
	fetcher, err := NewPageFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	return &Crawler{
		cfg:     cfg,
		fetcher: fetcher,
		sink:    sink,
		Metrics: metrics,
	}, nil
}

// Fetcher exposes the underlying page fetcher, mainly so callers can
// swap the HTTP transport.
func (c *Crawler) Fetcher() *PageFetcher {
	f, _ := c.fetcher.(*PageFetcher)
	return f
}

// Run crawls every target in order and returns the run summary. An empty
// target list is a configuration error; nothing is fetched. Cancellation
// is cooperative: the current target completes, then the loop stops and
// the summary is marked canceled.
func (c *Crawler) Run(ctx context.Context, targets []models.Target) (*models.RunSummary, error) {
	if len(targets) == 0 {
		return nil, &config.ConfigError{Field: "targets", Reason: "empty target list"}
	}

	summary := &models.RunSummary{
		StartTime:    time.Now(),
		TargetCount:  len(targets),
		ErrorsByType: make(map[string]int),
	}

	for _, target := range targets {
		if ctx.Err() != nil {
			summary.Canceled = true
			slog.Info("run canceled, stopping before next target")
			break
		}

		result := c.processTarget(ctx, target)
		c.Metrics.IncTarget(string(result.Status))
		c.accumulate(summary, result)

		if err := c.writeResult(result); err != nil {
			slog.Error("sink write failed",
				slog.String("target", target.Name),
				slog.Any("error", err),
			)
		}
		result.Status = models.StatusDone
		slog.Debug("target finished",
			slog.String("name", target.Name),
			slog.String("status", string(result.Status)),
		)
	}

	summary.EndTime = time.Now()
	if err := c.sink.WriteSummary(summary); err != nil {
		slog.Error("sink summary write failed", slog.Any("error", err))
	}
	return summary, nil
}

func (c *Crawler) processTarget(ctx context.Context, t models.Target) *models.TargetResult {
	result := &models.TargetResult{Target: t, Status: models.StatusPending}

	slog.Info("crawling target",
		slog.String("name", t.Name),
		slog.String("kind", string(t.Kind)),
		slog.String("url", t.URL),
	)
	result.Status = models.StatusFetching

	var err error
	switch t.Kind {
	case models.KindListing:
		err = c.crawlListing(ctx, t, result)
	case models.KindBestseller:
		err = c.crawlBestsellers(ctx, t, result)
	case models.KindDetail:
		err = c.crawlDetail(ctx, t, result)
	case models.KindRankChart:
		err = c.crawlRankChart(ctx, t, result)
	default:
		err = parseFailed(errors.New("unknown target kind"))
	}

	if err != nil {
		c.fail(result, err)
		return result
	}
	result.Status = models.StatusParsed
	return result
}

func (c *Crawler) crawlDetail(ctx context.Context, t models.Target, res *models.TargetResult) error {
	body, err := c.fetcher.Fetch(ctx, t.URL)
	if err != nil {
		return fetchFailed(err)
	}
	doc, err := parser.NewDocument(body)
	if err != nil {
		return parseFailed(err)
	}

	book := parser.ParseDetail(doc, t.URL)
	if book == nil {
		return parseFailed(ErrLayoutMismatch)
	}
	book.Timestamp = time.Now()
	res.Books = append(res.Books, book)
	res.Pages++
	c.Metrics.IncPages()
	c.Metrics.AddItems(1)
	return nil
}

func (c *Crawler) crawlRankChart(ctx context.Context, t models.Target, res *models.TargetResult) error {
	body, err := c.fetcher.Fetch(ctx, t.URL)
	if err != nil {
		return fetchFailed(err)
	}
	doc, err := parser.NewDocument(body)
	if err != nil {
		return parseFailed(err)
	}

	series, err := parser.ExtractRankSeries(doc)
	if err != nil {
		return parseFailed(err)
	}
	res.Series = series
	res.Pages++
	c.Metrics.IncPages()
	return nil
}

func (c *Crawler) fail(res *models.TargetResult, err error) {
	res.Err = err
	res.Status = models.StatusFetchFailed
	var stage *stageError
	if errors.As(err, &stage) {
		res.Status = stage.status
	}

	if errors.Is(err, context.Canceled) {
		slog.Info("target interrupted by cancellation",
			slog.String("name", res.Target.Name),
		)
		return
	}
	slog.Error("target failed",
		slog.String("name", res.Target.Name),
		slog.String("stage", string(res.Status)),
		slog.Any("error", err),
	)
}

func (c *Crawler) accumulate(summary *models.RunSummary, res *models.TargetResult) {
	summary.PageCount += res.Pages
	summary.DroppedItems += res.Dropped
	summary.BookCount += len(res.Books)
	if res.Listing != nil {
		summary.BookCount += len(res.Listing.Books)
	}

	switch res.Status {
	case models.StatusParsed:
		summary.Completed++
	case models.StatusFetchFailed, models.StatusParseFailed:
		// A cancellation arriving mid-target is a stopped run, not a
		// failed target.
		if errors.Is(res.Err, context.Canceled) {
			summary.Canceled = true
			return
		}
		summary.FailedTargets = append(summary.FailedTargets, models.FailedTarget{
			Name:  res.Target.Name,
			URL:   res.Target.URL,
			Stage: string(res.Status),
			Error: res.Err.Error(),
		})
		summary.ErrorsByType[errorTypeLabel(res.Err)]++
	}
}

// writeResult hands one completed target to the sink. Failed targets
// with no data have nothing to persist; they appear in the summary.
func (c *Crawler) writeResult(res *models.TargetResult) error {
	switch res.Target.Kind {
	case models.KindListing:
		if res.Listing == nil {
			return nil
		}
		return c.sink.WriteListing(res.Target.Name, res.Listing)
	case models.KindBestseller:
		if len(res.Books) == 0 {
			return nil
		}
		return c.sink.WriteBooks(res.Target.Name, "bestsellers", res.Books)
	case models.KindDetail:
		if len(res.Books) == 0 {
			return nil
		}
		return c.sink.WriteBooks(res.Target.Name, "book_details", res.Books)
	case models.KindRankChart:
		if len(res.Series) == 0 {
			return nil
		}
		return c.sink.WriteRankSeries(res.Target.Name, res.Series)
	}
	return nil
}

// stageError records which stage of target processing failed, so the
// state machine lands on the right terminal state.
type stageError struct {
	status models.TargetStatus
	err    error
}

func (e *stageError) Error() string { return e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

func fetchFailed(err error) *stageError {
	return &stageError{status: models.StatusFetchFailed, err: err}
}

func parseFailed(err error) *stageError {
	return &stageError{status: models.StatusParseFailed, err: err}
}
