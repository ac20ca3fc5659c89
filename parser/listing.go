package parser

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hylin/bookcrawl/models"
)

// LayoutVariant names the two structural layouts the bookstore serves for
// bestseller pages. They are mutually exclusive in practice.
type LayoutVariant int

const (
	VariantA LayoutVariant = iota
	VariantB
)

func (v LayoutVariant) String() string {
	if v == VariantA {
		return "A"
	}
	return "B"
}

// Classify decides which layout variant describes an item section. A
// single probe for the variant-A marker container is sufficient; there is
// no fallback scoring.
func Classify(item *goquery.Selection) LayoutVariant {
	if item.Find("div.type02_bd-a").Length() > 0 {
		return VariantA
	}
	return VariantB
}

// ParseBestsellerItem extracts one ranked item from a bestseller page.
// Rank, title and item URL are anchor fields: if any is missing the item
// is dropped (nil return) rather than erroring, so one malformed entry
// never aborts the batch. Optional fields degrade to nil.
func ParseBestsellerItem(item *goquery.Selection) *models.Book {
	switch Classify(item) {
	case VariantA:
		return parseVariantA(item)
	default:
		return parseVariantB(item)
	}
}

func parseVariantA(item *goquery.Selection) *models.Book {
	book := parseItemCommon(item, "strong.no")
	if book == nil {
		return nil
	}

	if author := trimmedText(item.Find("ul.msg a").First()); author != "" {
		book.Author = &author
	}
	if priceText := trimmedText(item.Find("li.price_a").First()); priceText != "" {
		book.Discount, book.Price = ExtractPrice(priceText)
	}
	return book
}

func parseVariantB(item *goquery.Selection) *models.Book {
	book := parseItemCommon(item, "span.rank")
	if book == nil {
		return nil
	}

	if authorText := trimmedText(item.Find("ul").First()); authorText != "" {
		author := strings.TrimSpace(strings.Replace(authorText, "作者：", "", 1))
		if author != "" {
			book.Author = &author
		}
	}
	if priceText := trimmedText(item.Find("p.price").First()); priceText != "" {
		book.Discount, book.Price = ExtractPrice(priceText)
	}
	return book
}

// parseItemCommon handles the fields both variants share. rankSelector is
// the variant-specific rank marker.
func parseItemCommon(item *goquery.Selection, rankSelector string) *models.Book {
	rankText := trimmedText(item.Find(rankSelector).First())
	rank, err := strconv.Atoi(rankText)
	if rankText == "" || err != nil {
		return nil
	}

	link := item.Find("h4 a").First()
	title := trimmedText(link)
	href, ok := link.Attr("href")
	if title == "" || !ok || href == "" {
		return nil
	}

	book := &models.Book{
		Rank:   &rank,
		Title:  title,
		URL:    href,
		BookID: ExtractBookID(href),
	}
	if src, ok := item.Find("img.cover").First().Attr("src"); ok && src != "" {
		book.ImageURL = &src
	}
	return book
}

// ParseListItem extracts one paginated-listing item. Title and URL are
// the anchors here; listing pages carry no rank. The info line links
// author first and publisher last, and the price box holds the same
// price grammar the ranked pages use.
func ParseListItem(item *goquery.Selection) *models.Book {
	link := item.Find("h4 a").First()
	title := trimmedText(link)
	href, ok := link.Attr("href")
	if title == "" || !ok || href == "" {
		return nil
	}

	book := &models.Book{
		Title:  title,
		URL:    href,
		BookID: ExtractBookID(href),
	}

	info := item.Find("li.info a")
	if author := trimmedText(info.First()); author != "" {
		book.Author = &author
	}
	if info.Length() > 1 {
		if publisher := trimmedText(info.Last()); publisher != "" {
			book.Publisher = &publisher
		}
	}
	if priceText := trimmedText(item.Find("div.price_box strong").First()); priceText != "" {
		book.Discount, book.Price = ExtractPrice(priceText)
	}
	return book
}

// ExtractPrice parses bookstore price text. Two grammars exist:
// 「599元」 is a plain price with an implicit discount of 100, and
// 「77折400元」 carries the discount before the 折 marker. A non-numeric
// result is a parse failure local to the field: both values come back nil
// and the caller keeps the record.
func ExtractPrice(text string) (discount, price *int) {
	cleaned := strings.Join(strings.Fields(text), "")
	cleaned = strings.ReplaceAll(cleaned, "優惠價：", "")
	cleaned = strings.ReplaceAll(cleaned, "優惠價", "")

	var discountText, priceText string
	if before, after, found := strings.Cut(cleaned, "折"); found {
		discountText = before
		priceText = strings.ReplaceAll(after, "元", "")
	} else {
		discountText = "100"
		priceText = strings.ReplaceAll(cleaned, "元", "")
	}

	d, err := strconv.Atoi(discountText)
	if err != nil {
		slog.Debug("unparseable discount", slog.String("text", text))
		return nil, nil
	}
	p, err := strconv.Atoi(priceText)
	if err != nil {
		slog.Debug("unparseable price", slog.String("text", text))
		return nil, nil
	}
	return &d, &p
}

// ExtractBookID pulls the product id out of a /products/ URL.
func ExtractBookID(rawurl string) *string {
	if !strings.Contains(rawurl, "products") {
		return nil
	}
	segment := rawurl
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	if i := strings.Index(segment, "?"); i >= 0 {
		segment = segment[:i]
	}
	if segment == "" {
		return nil
	}
	return &segment
}

func trimmedText(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
