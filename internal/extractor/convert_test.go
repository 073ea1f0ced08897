package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  string // empty means nil
	}{
		{"15/01/2025", "2025-01-15"},
		{"15-01-2025", "2025-01-15"},
		{"15.01.2025", "2025-01-15"},
		{"2025-01-15", "2025-01-15"},
		{"2 Jan 2025", "2025-01-02"},
		{"2 January 2025", "2025-01-02"},
		{"15/01/25", "2025-01-15"},
		{"", ""},
		{"nan", ""},
		{"N/A", ""},
		{"not a date", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseDate(tt.input)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestParseDate_DayFirstWinsOverUSOrder(t *testing.T) {
	// 03/04 must read as 3 April, not 4 March
	got := parseDate("03/04/2025")
	require.NotNil(t, got)
	assert.Equal(t, time.April, got.Month())
	assert.Equal(t, 3, got.Day())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		isNil bool
	}{
		{"1500", 1500, false},
		{"1,500.50", 1500.50, false},
		{"KSh 25,000", 25000, false},
		{"KES 300.00", 300, false},
		{"  450  ", 450, false},
		{"", 0, true},
		{"free", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAmount(tt.input)
			if tt.isNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestComputeBenefitTotals(t *testing.T) {
	bill1, claim1 := 2000.0, 1500.0
	claim2 := 3000.0
	claim := &domain.ExtractedClaim{
		BenefitLines: []domain.BenefitLine{
			{BillAmount: &bill1, ClaimAmount: &claim1},
			{ClaimAmount: &claim2},
		},
	}

	computeBenefitTotals(claim)

	require.NotNil(t, claim.TotalBillAmount)
	assert.Equal(t, 2000.0, *claim.TotalBillAmount)
	require.NotNil(t, claim.TotalClaimAmount)
	assert.Equal(t, 4500.0, *claim.TotalClaimAmount)
}

func TestComputeBenefitTotals_NoAmountsStaysUnknown(t *testing.T) {
	claim := &domain.ExtractedClaim{
		BenefitLines: []domain.BenefitLine{{Description: "Consultation"}},
	}

	computeBenefitTotals(claim)

	assert.Nil(t, claim.TotalBillAmount)
	assert.Nil(t, claim.TotalClaimAmount)
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"INPATIENT", "Inpatient"},
		{"outpatient", "Outpatient"},
		{"day-care", "Day-Care"},
		{"DAY CARE", "Day Care"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, titleCase(tt.input))
		})
	}
}
