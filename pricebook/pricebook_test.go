package pricebook

import (
	"strings"
	"testing"
)

const businessData = `Наші послуги:
Лендінг - $500
Інтернет-магазин: від $1200
Підтримка: 100 грн на місяць
Консультація безкоштовна`

func TestExtractDetectsPriceRequest(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want bool
	}{
		{"Скільки коштує лендінг?", true},
		{"Сколько стоит интернет-магазин?", true},
		{"How much is the Pro package?", true},
		{"What's the price for support?", true},
		{"Чи є знижка для малого бізнесу?", true},
		{"Це безкоштовно?", true},
		{"Коли зустрінемось?", false},
		{"Дякую, все добре", false},
	}
	for _, tc := range cases {
		got := Extract(tc.text, businessData)
		if got.HasPriceRequest != tc.want {
			t.Fatalf("Extract(%q).HasPriceRequest = %v, want %v", tc.text, got.HasPriceRequest, tc.want)
		}
	}
}

func TestExtractMatchesServices(t *testing.T) {
	t.Parallel()

	info := Extract("Скільки коштує лендінг?", businessData)
	if !info.HasPriceRequest || !info.ExactMatch {
		t.Fatalf("Extract() = %+v, want price request with exact match", info)
	}
	if len(info.MatchingServices) != 3 {
		t.Fatalf("MatchingServices = %v, want 3 entries", info.MatchingServices)
	}
	if info.MatchingServices[0] != "Лендінг: $500" {
		t.Fatalf("first service = %q", info.MatchingServices[0])
	}
	// The грн line counts too; its amount folds into the range.
	if info.MatchingServices[2] != "Підтримка: $100" {
		t.Fatalf("third service = %q, want the грн line", info.MatchingServices[2])
	}
	if info.Range == nil || info.Range.Min != 100 || info.Range.Max != 1200 {
		t.Fatalf("Range = %+v, want 100..1200", info.Range)
	}
}

func TestExtractPriceRequestWithoutMatches(t *testing.T) {
	t.Parallel()

	info := Extract("How much does it cost?", "Просто текст без цін")
	if !info.HasPriceRequest {
		t.Fatalf("HasPriceRequest = false, want true")
	}
	if info.ExactMatch || len(info.MatchingServices) != 0 || info.Range != nil {
		t.Fatalf("Extract() = %+v, want empty match set", info)
	}
}

func TestExtractNonPriceMessageStaysNeutral(t *testing.T) {
	t.Parallel()

	info := Extract("Добрий день! Коли буде готово?", businessData)
	if info.HasPriceRequest || info.ExactMatch || info.Range != nil {
		t.Fatalf("Extract() = %+v, want zero Info", info)
	}
}

func TestExtractSkipsLinesWithoutCurrencyMarker(t *testing.T) {
	t.Parallel()

	data := "Лендінг - 500\nПідтримка - $90"
	info := Extract("price?", data)
	if len(info.MatchingServices) != 1 || !strings.Contains(info.MatchingServices[0], "$90") {
		t.Fatalf("MatchingServices = %v, want only the $90 line", info.MatchingServices)
	}
}
