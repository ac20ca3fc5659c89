// Package parser turns raw bookstore markup and descriptive text blobs
// into normalized records.
package parser

import (
	"regexp"
	"strings"

	"github.com/hylin/bookcrawl/models"
)

// terminator picks how a label's value is bounded inside the meta text.
type terminator int

const (
	// termLabel values may themselves contain full-width commas; they run
	// up to the position preceding the next recognised label token.
	termLabel terminator = iota
	// termComma values run up to the next full-width comma.
	termComma
)

// labelRule extracts one labelled field from a meta description. Rules
// apply independently and in declaration order; a missing label simply
// yields no entry.
type labelRule struct {
	label   string
	term    terminator
	capture *regexp.Regexp // termComma rules
	bounds  []string       // termLabel rules
	assign  func(*models.BookInfo, *string)
}

// Labels that can terminate a title value. 頁數 is not among them: the
// source pages never place it directly after a title.
var titleBounds = []string{"簡體版書名", "原文名稱", "語言", "ISBN", "出版社", "作者", "譯者", "出版日期", "類別"}

var simplifiedTitleBounds = []string{"原文名稱", "語言", "ISBN", "出版社", "作者", "譯者", "出版日期", "類別"}

var metaRules = []labelRule{
	{label: "書名", term: termLabel, bounds: titleBounds,
		assign: func(i *models.BookInfo, v *string) { i.Title = v }},
	{label: "簡體版書名", term: termLabel, bounds: simplifiedTitleBounds,
		assign: func(i *models.BookInfo, v *string) { i.SimplifiedTitle = v }},
	{label: "原文名稱", term: termComma, capture: regexp.MustCompile(`原文名稱：([^，]+)`),
		assign: func(i *models.BookInfo, v *string) { i.OriginalTitle = v }},
	{label: "語言", term: termComma, capture: regexp.MustCompile(`語言：([^，]+)`),
		assign: func(i *models.BookInfo, v *string) { i.Language = v }},
	{label: "ISBN", term: termComma, capture: regexp.MustCompile(`ISBN：(\d+)`),
		assign: func(i *models.BookInfo, v *string) { i.ISBN = v }},
	{label: "頁數", term: termComma, capture: regexp.MustCompile(`頁數：(\d+)`),
		assign: func(i *models.BookInfo, v *string) { i.Pages = v }},
	{label: "出版社", term: termComma, capture: regexp.MustCompile(`出版社：([^，]+)`),
		assign: func(i *models.BookInfo, v *string) { i.Publisher = v }},
	{label: "作者", term: termComma, capture: regexp.MustCompile(`作者：([^，]+)`),
		assign: func(i *models.BookInfo, v *string) { i.Author = v }},
	{label: "譯者", term: termComma, capture: regexp.MustCompile(`譯者：([^，]+)`),
		assign: func(i *models.BookInfo, v *string) { i.Translator = v }},
	{label: "出版日期", term: termComma, capture: regexp.MustCompile(`出版日期：([\d/]+)`),
		assign: func(i *models.BookInfo, v *string) { i.PublicationDate = v }},
	{label: "類別", term: termComma, capture: regexp.MustCompile(`類別：([^，]+)`),
		assign: func(i *models.BookInfo, v *string) { i.Category = v }},
}

var simplifiedAnnotation = regexp.MustCompile(`【簡體版書名：([^】]+)】`)

// ExtractBookInfo parses a product meta description made of comma
// separated 「label：value」 segments. Extraction is pure and
// deterministic: the same text always yields the same result.
func ExtractBookInfo(text string) models.BookInfo {
	var info models.BookInfo
	if text == "" {
		return info
	}

	for _, rule := range metaRules {
		var value *string
		switch rule.term {
		case termLabel:
			value = boundedValue(text, rule.label, rule.bounds)
		case termComma:
			value = capturedValue(text, rule.capture)
		}
		if value != nil {
			rule.assign(&info, value)
		}
	}

	splitSimplifiedTitle(&info)
	return info
}

// boundedValue captures the text between 「label：」 and the earliest
// following 「，label」 boundary. No boundary means no value, matching the
// lookahead the extraction contract requires.
func boundedValue(text, label string, bounds []string) *string {
	marker := label + "："
	start := strings.Index(text, marker)
	if start < 0 {
		return nil
	}

	rest := text[start+len(marker):]
	end := -1
	for _, bound := range bounds {
		if i := strings.Index(rest, "，"+bound); i >= 0 && (end < 0 || i < end) {
			end = i
		}
	}
	if end < 0 {
		return nil
	}
	return nonEmpty(rest[:end])
}

func capturedValue(text string, re *regexp.Regexp) *string {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	return nonEmpty(match[1])
}

// splitSimplifiedTitle moves an embedded 【簡體版書名：…】 annotation out of
// the title into its own field, removing it from the title exactly once.
func splitSimplifiedTitle(info *models.BookInfo) {
	if info.Title == nil {
		return
	}
	match := simplifiedAnnotation.FindStringSubmatch(*info.Title)
	if match == nil {
		return
	}

	if v := nonEmpty(match[1]); v != nil {
		info.SimplifiedTitle = v
	}
	info.Title = nonEmpty(strings.Replace(*info.Title, match[0], "", 1))
}

// nonEmpty trims the value and treats an empty capture as absent.
func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
