package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hylin/bookcrawl/models"
)

// ParseCategoryTree reads the bookstore sublist page into a nested
// category tree. Slashes in names become underscores so the names stay
// usable in output filenames.
func ParseCategoryTree(doc *goquery.Document) []models.Category {
	var categories []models.Category

	doc.Find("div.type02_s004.clearfix").Each(func(_ int, block *goquery.Selection) {
		heading := block.Find("h4").First()
		name := categoryName(heading.Text())
		link, _ := heading.Find("a").First().Attr("href")
		if name == "" {
			return
		}

		category := models.Category{Name: name, Link: link}
		block.Find("tr").Each(func(_ int, row *goquery.Selection) {
			sub := parseSubcategory(row)
			if sub != nil {
				category.Subcategories = append(category.Subcategories, *sub)
			}
		})
		categories = append(categories, category)
	})
	return categories
}

func parseSubcategory(row *goquery.Selection) *models.Category {
	heading := row.Find("h5").First()
	if heading.Length() == 0 {
		return nil
	}

	name := categoryName(heading.Text())
	link, _ := heading.Find("a").First().Attr("href")
	if name == "" {
		return nil
	}
	sub := &models.Category{Name: name, Link: link}

	row.Find("td ul li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a").First()
		if a.Length() == 0 {
			return
		}
		leafName := categoryName(li.Text())
		leafLink, _ := a.Attr("href")
		if leafName != "" {
			sub.Subcategories = append(sub.Subcategories, models.Category{Name: leafName, Link: leafLink})
		}
	})
	return sub
}

func categoryName(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "/", "_")
}
