// Package pricebook detects price questions and matches them against
// the business-data price list.
package pricebook

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Range struct {
	Min int
	Max int
}

type Info struct {
	HasPriceRequest  bool
	MatchingServices []string
	Range            *Range
	ExactMatch       bool
}

// Price questions are recognized in Ukrainian, Russian and English.
var priceRequestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`скільки коштує|сколько стоит|how much|price|cost|вартість`),
	regexp.MustCompile(`вартість|стоимость|цена`),
	regexp.MustCompile(`безкоштовно|бесплатно|free`),
	regexp.MustCompile(`знижка|скидка|discount`),
}

// Matches "Service - $500" and "Service: від $1200" style lines.
var priceLinePattern = regexp.MustCompile(`(?i)([^-$€]+)[-:]\s*(?:від|from)?\s*\$?([0-9]+)`)

// Extract checks whether messageText asks about pricing and, if so,
// scans businessData for matching service price lines. A message that
// is not about price returns HasPriceRequest=false so the caller can
// stay neutral instead of treating it as "nothing found".
func Extract(messageText, businessData string) Info {
	messageLower := strings.ToLower(messageText)
	hasPriceRequest := false
	for _, p := range priceRequestPatterns {
		if p.MatchString(messageLower) {
			hasPriceRequest = true
			break
		}
	}
	if !hasPriceRequest {
		return Info{}
	}

	var matching []string
	var prices []int
	for _, line := range strings.Split(businessData, "\n") {
		if !strings.Contains(line, "$") && !strings.Contains(line, "грн") && !strings.Contains(line, "€") {
			continue
		}
		m := priceLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		service := strings.TrimSpace(m[1])
		price, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		prices = append(prices, price)
		matching = append(matching, fmt.Sprintf("%s: $%d", service, price))
	}

	info := Info{
		HasPriceRequest:  true,
		MatchingServices: matching,
		ExactMatch:       len(matching) > 0,
	}
	if len(prices) > 0 {
		r := &Range{Min: prices[0], Max: prices[0]}
		for _, p := range prices[1:] {
			if p < r.Min {
				r.Min = p
			}
			if p > r.Max {
				r.Max = p
			}
		}
		info.Range = r
	}
	return info
}
