package parser

import (
	"reflect"
	"testing"

	"github.com/hylin/bookcrawl/models"
)

func strptr(s string) *string { return &s }

func TestExtractBookInfoFullBlob(t *testing.T) {
	meta := "書名：人類大歷史（增訂版）：從野獸到扮演上帝 【簡體版書名：人類簡史】，原文名稱：Sapiens: A Brief History of Humankind，語言：繁體中文，ISBN：9789865258900，頁數：496，出版社：天下文化，作者：哈拉瑞，譯者：林俊宏，出版日期：2022/10/27，類別：人文社科"

	got := ExtractBookInfo(meta)
	want := models.BookInfo{
		Title:           strptr("人類大歷史（增訂版）：從野獸到扮演上帝"),
		SimplifiedTitle: strptr("人類簡史"),
		OriginalTitle:   strptr("Sapiens: A Brief History of Humankind"),
		Language:        strptr("繁體中文"),
		ISBN:            strptr("9789865258900"),
		Pages:           strptr("496"),
		Publisher:       strptr("天下文化"),
		Author:          strptr("哈拉瑞"),
		Translator:      strptr("林俊宏"),
		PublicationDate: strptr("2022/10/27"),
		Category:        strptr("人文社科"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractBookInfo() = %+v, want %+v", got, want)
	}
}

func TestExtractBookInfoSimplifiedAnnotation(t *testing.T) {
	meta := "書名：人類大歷史 【簡體版書名：人類簡史】，原文名稱：Sapiens，語言：繁體中文，ISBN：9789865258900，出版社：天下文化"

	got := ExtractBookInfo(meta)
	if got.Title == nil || *got.Title != "人類大歷史" {
		t.Errorf("Title = %v, want 人類大歷史", got.Title)
	}
	if got.SimplifiedTitle == nil || *got.SimplifiedTitle != "人類簡史" {
		t.Errorf("SimplifiedTitle = %v, want 人類簡史", got.SimplifiedTitle)
	}
}

func TestExtractBookInfoCommaInTitle(t *testing.T) {
	meta := "書名：世界上最透明的故事（日本出版界話題作，只有紙本書可以體驗的感動），原文名稱：世界でいちばん透きとおった物語，語言：繁體中文，ISBN：9789573342076，頁數：240，出版社：皇冠，作者：杉井光，譯者：簡捷，出版日期：2024/09/30，類別：文學小說"

	got := ExtractBookInfo(meta)
	if got.Title == nil || *got.Title != "世界上最透明的故事（日本出版界話題作，只有紙本書可以體驗的感動）" {
		t.Errorf("Title = %v, want full title with embedded comma", got.Title)
	}
	if got.OriginalTitle == nil || *got.OriginalTitle != "世界でいちばん透きとおった物語" {
		t.Errorf("OriginalTitle = %v", got.OriginalTitle)
	}
}

func TestExtractBookInfoColonInTitle(t *testing.T) {
	meta := "書名：體能UP1年級生：高木直子元氣滿滿大作戰，語言：繁體中文，ISBN：9789861799049，頁數：152，出版社：大田，作者：高木直子，譯者：洪俞君，出版日期：2024/10/01，類別：生活風格"

	got := ExtractBookInfo(meta)
	if got.Title == nil || *got.Title != "體能UP1年級生：高木直子元氣滿滿大作戰" {
		t.Errorf("Title = %v, want 體能UP1年級生：高木直子元氣滿滿大作戰", got.Title)
	}
	if got.ISBN == nil || *got.ISBN != "9789861799049" {
		t.Errorf("ISBN = %v, want 9789861799049", got.ISBN)
	}
	if got.Pages == nil || *got.Pages != "152" {
		t.Errorf("Pages = %v, want 152", got.Pages)
	}
	if got.Publisher == nil || *got.Publisher != "大田" {
		t.Errorf("Publisher = %v, want 大田", got.Publisher)
	}
}

func TestExtractBookInfoIdempotent(t *testing.T) {
	meta := "書名：人類大歷史 【簡體版書名：人類簡史】，原文名稱：Sapiens，語言：繁體中文，ISBN：9789865258900，出版社：天下文化"

	first := ExtractBookInfo(meta)
	second := ExtractBookInfo(meta)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction not deterministic: %+v vs %+v", first, second)
	}
}

func TestExtractBookInfoMissingAndEmptyLabels(t *testing.T) {
	tests := []struct {
		name string
		meta string
		want models.BookInfo
	}{
		{
			name: "empty text",
			meta: "",
			want: models.BookInfo{},
		},
		{
			name: "no labels at all",
			meta: "一段沒有任何欄位標籤的描述文字",
			want: models.BookInfo{},
		},
		{
			name: "title without a following label has no boundary",
			meta: "書名：孤獨的美食家",
			want: models.BookInfo{},
		},
		{
			name: "empty capture treated as absent",
			meta: "語言：，ISBN：9789573342076",
			want: models.BookInfo{ISBN: strptr("9789573342076")},
		},
		{
			name: "subset of labels",
			meta: "ISBN：9789861799049，出版社：大田",
			want: models.BookInfo{ISBN: strptr("9789861799049"), Publisher: strptr("大田")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBookInfo(tt.meta)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractBookInfo(%q) = %+v, want %+v", tt.meta, got, tt.want)
			}
		})
	}
}
