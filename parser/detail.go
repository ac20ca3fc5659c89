package parser

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hylin/bookcrawl/models"
)

// ParseDetail extracts a full record from a product page. The meta
// description blob is the primary source; the basic-info block fills any
// fields the blob lacks. Breadcrumb categories and the price block are
// each independently optional. A page with no recognisable title yields
// nil, which callers treat as a layout mismatch.
func ParseDetail(doc *goquery.Document, pageURL string) *models.Book {
	meta, _ := doc.Find(`meta[name=description]`).First().Attr("content")
	info := ExtractBookInfo(meta)

	book := &models.Book{
		SimplifiedTitle: info.SimplifiedTitle,
		OriginalTitle:   info.OriginalTitle,
		Language:        info.Language,
		ISBN:            info.ISBN,
		Pages:           info.Pages,
		Publisher:       info.Publisher,
		Author:          info.Author,
		Translator:      info.Translator,
		PublicationDate: info.PublicationDate,
		Category:        info.Category,
		URL:             pageURL,
		BookID:          ExtractBookID(pageURL),
	}

	if info.Title != nil {
		book.Title = *info.Title
	} else {
		book.Title = trimmedText(doc.Find("div.grid_10 h1").First())
	}
	if book.Title == "" {
		return nil
	}
	if book.OriginalTitle == nil {
		if ori := trimmedText(doc.Find("div.grid_10 h2").First()); ori != "" {
			book.OriginalTitle = &ori
		}
	}

	fillFromBasicInfo(doc, book)
	book.Categories = parseBreadcrumbs(doc)
	parsePriceBlock(doc, book)
	return book
}

// fillFromBasicInfo walks the basic-info list and fills fields the meta
// description did not carry. Contributor names sit behind search links.
func fillFromBasicInfo(doc *goquery.Document, book *models.Book) {
	doc.Find("div.type02_p003 li").Each(func(_ int, li *goquery.Selection) {
		text := trimmedText(li)
		switch {
		case strings.HasPrefix(text, "作者："):
			if book.Author == nil {
				if name := trimmedText(li.Find(`a[href*="search/query/key/"]`).First()); name != "" {
					book.Author = &name
				}
			}
		case strings.HasPrefix(text, "譯者："):
			if book.Translator == nil {
				if name := trimmedText(li.Find(`a[href*="search/query/key/"]`).First()); name != "" {
					book.Translator = &name
				}
			}
		case strings.HasPrefix(text, "出版社："):
			if book.Publisher == nil {
				if name := trimmedText(li.Find("a span").First()); name != "" {
					book.Publisher = &name
				}
			}
		case strings.HasPrefix(text, "出版日期："):
			if book.PublicationDate == nil {
				if value := afterColon(text); value != "" {
					book.PublicationDate = &value
				}
			}
		case strings.HasPrefix(text, "語言："):
			if book.Language == nil {
				if value := afterColon(text); value != "" {
					book.Language = &value
				}
			}
		}
	})
}

// parseBreadcrumbs renders each 本書分類 trail as a ">"-joined path.
func parseBreadcrumbs(doc *goquery.Document) []string {
	var trails []string
	doc.Find("div.mod_b.type02_m058 ul.sort li").Each(func(_ int, li *goquery.Selection) {
		if !strings.Contains(li.Text(), "本書分類") {
			return
		}
		var segments []string
		li.Find("a").Each(func(_ int, a *goquery.Selection) {
			if segment := trimmedText(a); segment != "" {
				segments = append(segments, segment)
			}
		})
		if len(segments) > 0 {
			trails = append(trails, strings.Join(segments, " > "))
		}
	})
	return trails
}

// parsePriceBlock reads the list-price/sale-price/discount/deadline
// sub-fields. Each is independently optional.
func parsePriceBlock(doc *goquery.Document, book *models.Book) {
	doc.Find("div.cnt_prod002 div.prod_cont_b ul.price li").Each(func(_ int, li *goquery.Selection) {
		text := trimmedText(li)
		switch {
		case strings.Contains(text, "定價"):
			if value := trimmedText(li.Find("em").First()); value != "" {
				book.ListPrice = &value
			}
		case strings.Contains(text, "優惠期限"):
			if value := afterColon(text); value != "" {
				book.DiscountDeadline = &value
			}
		case strings.Contains(text, "優惠價"):
			if value := trimmedText(li.Find("strong b").First()); value != "" {
				if d, err := strconv.Atoi(value); err == nil {
					book.Discount = &d
				}
			}
			if value := trimmedText(li.Find("strong.price01 b").First()); value != "" {
				book.SalePrice = &value
			}
		}
	})
}

func afterColon(text string) string {
	_, after, found := strings.Cut(text, "：")
	if !found {
		return ""
	}
	return strings.TrimSpace(after)
}
