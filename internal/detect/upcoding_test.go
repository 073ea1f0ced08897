package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

func newUpcodingDetector() *UpcodingDetector {
	return NewUpcodingDetector(DefaultVocabulary(), testLogger())
}

func floatPtr(v float64) *float64 { return &v }

func TestUpcodingDetector_CleanClaim(t *testing.T) {
	claim := baseClaim()
	result := newUpcodingDetector().AnalyzeClaim(context.Background(), claim)

	assert.Equal(t, 0.0, result.RiskScore)
	assert.Empty(t, result.Flags)
	assert.False(t, result.IsHighRisk)
}

func TestUpcodingDetector_OutpatientCostThresholds(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		wantType  string
		wantScore float64
	}{
		{"below threshold", 10_000, "", 0},
		{"high cost", 20_000, "high_cost_outpatient", 40},
		{"very high cost", 75_000, "very_high_cost_outpatient", 65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := baseClaim()
			claim.TotalClaimAmount = floatPtr(tt.amount)

			result := newUpcodingDetector().AnalyzeClaim(context.Background(), claim)

			assert.Equal(t, tt.wantScore, result.RiskScore)
			if tt.wantType != "" {
				require.Len(t, result.Flags, 1)
				assert.Equal(t, tt.wantType, result.Flags[0].Type)
			} else {
				assert.Empty(t, result.Flags)
			}
		})
	}
}

func TestUpcodingDetector_InpatientCostNotFlagged(t *testing.T) {
	claim := baseClaim()
	claim.VisitType = "Inpatient"
	claim.TotalClaimAmount = floatPtr(200_000)

	result := newUpcodingDetector().AnalyzeClaim(context.Background(), claim)

	assert.Empty(t, result.Flags)
}

func TestUpcodingDetector_DiagnosisProcedureMismatch(t *testing.T) {
	claim := baseClaim()
	claim.VisitType = "Inpatient"
	claim.AdmissionDiagnosis = "Severe headache"
	claim.BenefitLines = []domain.BenefitLine{{Description: "Brain MRI with contrast"}}

	result := newUpcodingDetector().AnalyzeClaim(context.Background(), claim)

	require.Len(t, result.Flags, 1)
	assert.Equal(t, "diagnosis_procedure_mismatch", result.Flags[0].Type)
	assert.Equal(t, 75.0, result.RiskScore)
	assert.True(t, result.IsHighRisk)
	assert.Contains(t, result.Flags[0].Description, "mri")
	assert.Contains(t, result.Flags[0].Description, "headache")
}

func TestUpcodingDetector_InpatientProcedureOnOutpatient(t *testing.T) {
	claim := baseClaim()
	claim.BenefitLines = []domain.BenefitLine{
		{Description: "General anaesthesia administration"},
		{Description: "Dialysis session"},
	}

	result := newUpcodingDetector().AnalyzeClaim(context.Background(), claim)

	// One flag only, even with two qualifying procedures.
	require.Len(t, result.Flags, 1)
	assert.Equal(t, "inpatient_procedure_on_outpatient_claim", result.Flags[0].Type)
	assert.Equal(t, 70.0, result.RiskScore)
}

func TestUpcodingDetector_ICUAccommodationNonInpatient(t *testing.T) {
	claim := baseClaim()
	claim.AccommodationType = "ICU"

	result := newUpcodingDetector().AnalyzeClaim(context.Background(), claim)

	require.Len(t, result.Flags, 1)
	assert.Equal(t, "icu_accommodation_non_inpatient", result.Flags[0].Type)
	assert.Equal(t, domain.SeverityCritical, result.Flags[0].Severity)
	assert.Equal(t, 80.0, result.RiskScore)
	assert.True(t, result.IsHighRisk)
}

func TestUpcodingDetector_ICUAccommodationInpatientOK(t *testing.T) {
	claim := baseClaim()
	claim.VisitType = "Inpatient"
	claim.AccommodationType = "ICU"

	result := newUpcodingDetector().AnalyzeClaim(context.Background(), claim)

	assert.Empty(t, result.Flags)
}

func TestUpcodingDetector_ClaimExceedsBillPerLine(t *testing.T) {
	claim := baseClaim()
	claim.VisitType = "Inpatient"
	claim.BenefitLines = []domain.BenefitLine{
		{BillAmount: floatPtr(1000), ClaimAmount: floatPtr(1500)},
		{BillAmount: floatPtr(2000), ClaimAmount: floatPtr(2000)},
		{BillAmount: floatPtr(500), ClaimAmount: floatPtr(900)},
	}

	result := newUpcodingDetector().AnalyzeClaim(context.Background(), claim)

	require.Len(t, result.Flags, 2)
	for _, flag := range result.Flags {
		assert.Equal(t, "claim_exceeds_bill_on_benefit_line", flag.Type)
	}
	assert.Equal(t, 100.0, result.RiskScore) // 55 + 55 capped
}

func TestKshFormatting(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{999.5, "999.50"},
		{15000, "15,000.00"},
		{1234567.89, "1,234,567.89"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ksh(tt.in))
	}
}
