package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hylin/bookcrawl/models"
	"github.com/hylin/bookcrawl/parser"
)

// crawlListing drives a paginated category listing. Page 1 yields the
// category metadata and total page count; pages 2..N re-run item parsing
// only. Every page URL is derived from the original target URL so query
// parameters never drift across pages. A page failure past the first
// stops pagination but keeps the records gathered so far.
func (c *Crawler) crawlListing(ctx context.Context, t models.Target, res *models.TargetResult) error {
	body, err := c.fetcher.Fetch(ctx, t.URL)
	if err != nil {
		return fetchFailed(err)
	}
	doc, err := parser.NewDocument(body)
	if err != nil {
		return parseFailed(fmt.Errorf("parse page 1: %w", err))
	}

	listing := &models.ListingResult{
		Metadata:   parser.ParseCategoryMetadata(doc),
		TotalPages: parser.ParseTotalPages(doc),
	}
	res.Listing = listing
	c.appendListItems(listing, doc, res)

	for page := 2; page <= listing.TotalPages; page++ {
		pageURL, err := pageURLFor(t.URL, page)
		if err != nil {
			slog.Warn("cannot derive page url, stopping pagination",
				slog.String("target", t.Name),
				slog.Int("page", page),
				slog.Any("error", err),
			)
			break
		}

		slog.Debug("crawling listing page",
			slog.String("target", t.Name),
			slog.Int("page", page),
			slog.Int("total_pages", listing.TotalPages),
		)

		body, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			slog.Warn("page fetch failed, keeping partial results",
				slog.String("target", t.Name),
				slog.Int("page", page),
				slog.Any("error", err),
			)
			break
		}
		doc, err := parser.NewDocument(body)
		if err != nil {
			slog.Warn("page parse failed, keeping partial results",
				slog.String("target", t.Name),
				slog.Int("page", page),
				slog.Any("error", err),
			)
			break
		}
		c.appendListItems(listing, doc, res)
	}

	return nil
}

// appendListItems parses the item sections of one listing page in
// document order. Sections without their anchor fields are dropped and
// counted, never raised.
func (c *Crawler) appendListItems(listing *models.ListingResult, doc *goquery.Document, res *models.TargetResult) {
	now := time.Now()
	added, dropped := 0, 0

	parser.ListItems(doc).Each(func(_ int, item *goquery.Selection) {
		book := parser.ParseListItem(item)
		if book == nil {
			dropped++
			return
		}
		book.Timestamp = now
		listing.Books = append(listing.Books, book)
		added++
	})

	res.Pages++
	res.Dropped += dropped
	c.Metrics.IncPages()
	c.Metrics.AddItems(added)
	c.Metrics.AddDropped(dropped)
}

// crawlBestsellers parses a single ranked page. Items are classified per
// section into layout variant A or B and dispatched to the matching
// parser branch.
func (c *Crawler) crawlBestsellers(ctx context.Context, t models.Target, res *models.TargetResult) error {
	body, err := c.fetcher.Fetch(ctx, t.URL)
	if err != nil {
		return fetchFailed(err)
	}
	doc, err := parser.NewDocument(body)
	if err != nil {
		return parseFailed(err)
	}

	now := time.Now()
	parser.BestsellerItems(doc).Each(func(_ int, item *goquery.Selection) {
		book := parser.ParseBestsellerItem(item)
		if book == nil {
			res.Dropped++
			return
		}
		book.Timestamp = now
		res.Books = append(res.Books, book)
	})

	res.Pages++
	c.Metrics.IncPages()
	c.Metrics.AddItems(len(res.Books))
	c.Metrics.AddDropped(res.Dropped)
	return nil
}

// pageURLFor rewrites the page-number query parameter of the original
// listing URL.
func pageURLFor(original string, page int) (string, error) {
	parsed, err := url.Parse(original)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("page", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
