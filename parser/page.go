package parser

import (
	"log/slog"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/hylin/bookcrawl/models"
)

// ParseCategoryMetadata reads the category trail from a listing page.
// Variant-A pages render it as a breadcrumb list, variant-B pages as a
// heading sequence; both embed the names in meta[property=name] tags.
func ParseCategoryMetadata(doc *goquery.Document) models.CategoryPath {
	var path models.CategoryPath

	doc.Find("ul#breadcrumb-trail li meta[property=name]").Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok && content != "" {
			path = append(path, content)
		}
	})
	doc.Find("div.breadcrumb_bar h3 meta[property=name]").Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok && content != "" {
			path = append(path, content)
		}
	})
	return path
}

// ParseTotalPages probes the two known page-count widgets, one per layout
// family. Absence of pagination UI means a single page, never an error.
func ParseTotalPages(doc *goquery.Document) int {
	if span := doc.Find("div.cnt_page span").First(); span.Length() > 0 {
		if pages, err := strconv.Atoi(trimmedText(span)); err == nil {
			return pages
		}
		slog.Warn("unparseable page count widget, assuming single page")
		return 1
	}

	if span := doc.Find("div.m_mod.mm_031.clearfix span").First(); span.Length() > 0 {
		if pages, err := strconv.Atoi(trimmedText(span)); err == nil {
			return pages
		}
		slog.Warn("unparseable page count widget, assuming single page")
		return 1
	}

	return 1
}

// ListItems selects the item sections of a listing page. Some layouts use
// div.item containers, others li.item.
func ListItems(doc *goquery.Document) *goquery.Selection {
	items := doc.Find("div.item")
	if items.Length() == 0 {
		items = doc.Find("li.item")
	}
	return items
}

// BestsellerItems selects the ranked item sections of a bestseller page.
func BestsellerItems(doc *goquery.Document) *goquery.Selection {
	return doc.Find("li.item")
}
