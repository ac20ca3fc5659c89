package parser

import (
	"testing"
)

const detailPage = `<!DOCTYPE html>
<html>
<head>
<meta name="description" content="書名：人類大歷史（增訂版）：從野獸到扮演上帝 【簡體版書名：人類簡史】，原文名稱：Sapiens: A Brief History of Humankind，語言：繁體中文，ISBN：9789865258900，頁數：496，出版社：天下文化，作者：哈拉瑞，譯者：林俊宏，出版日期：2022/10/27，類別：人文社科">
</head>
<body>
<div class="grid_10"><h1>人類大歷史（增訂版）：從野獸到扮演上帝</h1><h2>Sapiens</h2></div>
<div class="mod_b type02_m058">
  <ul class="sort">
    <li>本書分類：<a href="/web/1">中文書</a><a href="/web/2">人文社科</a><a href="/web/3">世界史地</a></li>
    <li>本書分類：<a href="/web/4">中文書</a><a href="/web/5">科普</a></li>
  </ul>
</div>
<div class="cnt_prod002">
  <div class="prod_cont_b">
    <ul class="price">
      <li>定價：<em>700</em>元</li>
      <li>優惠價：<strong><b>79</b></strong>折<strong class="price01"><b>553</b></strong>元</li>
      <li>優惠期限：2026年12月31日止</li>
    </ul>
  </div>
</div>
</body>
</html>`

func TestParseDetail(t *testing.T) {
	book := ParseDetail(docFrom(t, detailPage), "https://www.books.com.tw/products/0010935948?sloc=main")
	if book == nil {
		t.Fatal("ParseDetail() = nil, want record")
	}

	if book.Title != "人類大歷史（增訂版）：從野獸到扮演上帝" {
		t.Errorf("Title = %q", book.Title)
	}
	if book.SimplifiedTitle == nil || *book.SimplifiedTitle != "人類簡史" {
		t.Errorf("SimplifiedTitle = %v", book.SimplifiedTitle)
	}
	if book.OriginalTitle == nil || *book.OriginalTitle != "Sapiens: A Brief History of Humankind" {
		t.Errorf("OriginalTitle = %v, want the meta value over the heading", book.OriginalTitle)
	}
	if book.ISBN == nil || *book.ISBN != "9789865258900" {
		t.Errorf("ISBN = %v", book.ISBN)
	}
	if book.Author == nil || *book.Author != "哈拉瑞" {
		t.Errorf("Author = %v", book.Author)
	}
	if book.BookID == nil || *book.BookID != "0010935948" {
		t.Errorf("BookID = %v", book.BookID)
	}

	wantTrails := []string{
		"中文書 > 人文社科 > 世界史地",
		"中文書 > 科普",
	}
	if len(book.Categories) != len(wantTrails) {
		t.Fatalf("Categories = %v, want %v", book.Categories, wantTrails)
	}
	for i, trail := range wantTrails {
		if book.Categories[i] != trail {
			t.Errorf("Categories[%d] = %q, want %q", i, book.Categories[i], trail)
		}
	}

	if book.ListPrice == nil || *book.ListPrice != "700" {
		t.Errorf("ListPrice = %v, want 700", book.ListPrice)
	}
	if book.Discount == nil || *book.Discount != 79 {
		t.Errorf("Discount = %v, want 79", book.Discount)
	}
	if book.SalePrice == nil || *book.SalePrice != "553" {
		t.Errorf("SalePrice = %v, want 553", book.SalePrice)
	}
	if book.DiscountDeadline == nil || *book.DiscountDeadline != "2026年12月31日止" {
		t.Errorf("DiscountDeadline = %v", book.DiscountDeadline)
	}
}

func TestParseDetailHeadingFallback(t *testing.T) {
	html := `<html><head></head><body>
		<div class="grid_10"><h1>孤獨的美食家</h1><h2>孤独のグルメ</h2></div>
		<div class="type02_p003"><ul>
			<li>作者：<a href="/search/query/key/久住昌之">久住昌之</a></li>
			<li>出版社：<a href="#"><span>圓神</span></a></li>
			<li>出版日期：2015/01/28</li>
			<li>語言：繁體中文</li>
		</ul></div>
	</body></html>`

	book := ParseDetail(docFrom(t, html), "https://www.books.com.tw/products/0010660579")
	if book == nil {
		t.Fatal("ParseDetail() = nil, want record")
	}
	if book.Title != "孤獨的美食家" {
		t.Errorf("Title = %q", book.Title)
	}
	if book.OriginalTitle == nil || *book.OriginalTitle != "孤独のグルメ" {
		t.Errorf("OriginalTitle = %v, want heading fallback", book.OriginalTitle)
	}
	if book.Author == nil || *book.Author != "久住昌之" {
		t.Errorf("Author = %v, want from basic info block", book.Author)
	}
	if book.Publisher == nil || *book.Publisher != "圓神" {
		t.Errorf("Publisher = %v", book.Publisher)
	}
	if book.PublicationDate == nil || *book.PublicationDate != "2015/01/28" {
		t.Errorf("PublicationDate = %v", book.PublicationDate)
	}
	if book.Language == nil || *book.Language != "繁體中文" {
		t.Errorf("Language = %v", book.Language)
	}
}

func TestParseDetailMetaWinsOverBasicInfo(t *testing.T) {
	html := `<html><head>
		<meta name="description" content="書名：某本書，作者：甲，語言：繁體中文，ISBN：9789999999999">
	</head><body>
		<div class="grid_10"><h1>某本書</h1></div>
		<div class="type02_p003"><ul>
			<li>作者：<a href="/search/query/key/乙">乙</a></li>
		</ul></div>
	</body></html>`

	book := ParseDetail(docFrom(t, html), "https://www.books.com.tw/products/0010000001")
	if book == nil {
		t.Fatal("ParseDetail() = nil, want record")
	}
	if book.Author == nil || *book.Author != "甲" {
		t.Errorf("Author = %v, want 甲 from the meta description", book.Author)
	}
}

func TestParseDetailNoTitleIsLayoutMismatch(t *testing.T) {
	html := `<html><body><div class="totally_different_layout"></div></body></html>`
	if book := ParseDetail(docFrom(t, html), "https://www.books.com.tw/products/0010000002"); book != nil {
		t.Errorf("ParseDetail() = %+v, want nil on unrecognised layout", book)
	}
}
