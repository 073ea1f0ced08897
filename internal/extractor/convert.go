package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// dateFormats is the fixed ordered list of accepted date layouts. Kenyan
// day-first layouts come before ISO and US orderings.
var dateFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2 Jan 2006",
	"2 January 2006",
	"02/01/06",
	"02-01-06",
}

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// parseDate tries every accepted layout in order and returns nil on total
// failure. It never returns an error: an unparsable date is an absent date.
func parseDate(value string) *time.Time {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	switch strings.ToLower(v) {
	case "nan", "none", "n/a":
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// parseAmount parses a monetary amount, stripping KSh markers and thousands
// separators. Unparsable amounts become nil, never zero.
func parseAmount(value string) *float64 {
	raw := value
	for _, marker := range []string{"KSh", "Ksh", "KES"} {
		raw = strings.ReplaceAll(raw, marker, "")
	}
	raw = strings.ReplaceAll(raw, ",", "")
	raw = nonNumeric.ReplaceAllString(strings.TrimSpace(raw), "")
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

// computeBenefitTotals sums the present line amounts. A total is only set
// when at least one line contributed, so "zero" stays distinguishable from
// "unknown".
func computeBenefitTotals(claim *domain.ExtractedClaim) {
	var totalBill, totalClaim float64
	var hasBill, hasClaim bool

	for _, line := range claim.BenefitLines {
		if line.BillAmount != nil {
			totalBill += *line.BillAmount
			hasBill = true
		}
		if line.ClaimAmount != nil {
			totalClaim += *line.ClaimAmount
			hasClaim = true
		}
	}

	if hasBill {
		claim.TotalBillAmount = &totalBill
	}
	if hasClaim {
		claim.TotalClaimAmount = &totalClaim
	}
}

// titleCase normalises a checkbox label the way the printed form spells it.
func titleCase(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '-'
	})
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	joined := strings.Join(words, " ")
	if strings.Contains(s, "-") {
		joined = strings.Join(words, "-")
	}
	return joined
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	v := s
	return &v
}
