package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hylin/bookcrawl/models"
)

// ErrNoRankData means the page carries no embedded ranking chart.
var ErrNoRankData = errors.New("no ranking chart data found")

var (
	dateUTCTerm = regexp.MustCompile(`Date\.UTC\(([^)]*)\)`)
	bareKey     = regexp.MustCompile(`(\w+):`)
)

// ExtractRankSeries pulls bestseller ranking history out of the chart
// script a publisher page embeds. The series literal is rewritten into
// valid JSON: Date.UTC terms become ISO dates (chart months are 0-based)
// and bare object keys get quoted.
func ExtractRankSeries(doc *goquery.Document) ([]models.RankSeries, error) {
	var script string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := sel.Text(); strings.Contains(text, "series:") {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return nil, ErrNoRankData
	}

	start := strings.Index(script, "series:") + len("series:")
	end := strings.LastIndex(script, "]")
	if end < start {
		return nil, fmt.Errorf("rank chart: malformed series literal")
	}
	literal := strings.TrimSpace(script[start : end+1])

	literal = dateUTCTerm.ReplaceAllStringFunc(literal, rewriteDateUTC)
	literal = bareKey.ReplaceAllString(literal, `"$1":`)

	var series []models.RankSeries
	if err := json.Unmarshal([]byte(literal), &series); err != nil {
		return nil, fmt.Errorf("rank chart: decode series: %w", err)
	}
	return series, nil
}

func rewriteDateUTC(term string) string {
	inner := dateUTCTerm.FindStringSubmatch(term)[1]
	parts := strings.Split(inner, ",")
	if len(parts) < 3 {
		return term
	}

	values := make([]int, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return term
		}
		values[i] = v
	}
	return fmt.Sprintf("%q", fmt.Sprintf("%04d-%02d-%02d", values[0], values[1]+1, values[2]))
}
