package detect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// Outpatient cost thresholds in KSh.
const (
	outpatientHighCost     = 15_000.0
	outpatientVeryHighCost = 50_000.0
)

// UpcodingDetector finds billing for more expensive services than performed:
// inflated outpatient totals, complex procedures for simple diagnoses,
// inpatient-only procedures or ICU accommodation on outpatient claims, and
// per-line claim amounts above billed amounts.
type UpcodingDetector struct {
	vocab *Vocabulary
	log   *logrus.Logger
}

// NewUpcodingDetector creates the upcoding detection module.
func NewUpcodingDetector(vocab *Vocabulary, logger *logrus.Logger) *UpcodingDetector {
	return &UpcodingDetector{vocab: vocab, log: logger}
}

func (d *UpcodingDetector) Name() string { return domain.ModuleUpcoding }

func (d *UpcodingDetector) AnalyzeClaim(ctx context.Context, claim *domain.Claim) domain.ModuleResult {
	result := domain.ModuleResult{Module: d.Name(), Flags: []domain.FraudFlag{}}

	var score float64
	visitType := lower(claim.VisitType)
	procedures := lineProcedureTexts(claim)

	// 1. High-value outpatient totals
	if claim.TotalClaimAmount != nil && visitType == "outpatient" {
		amount := *claim.TotalClaimAmount
		switch {
		case amount > outpatientVeryHighCost:
			score += 65
			result.Flags = append(result.Flags, domain.FraudFlag{
				Type:     "very_high_cost_outpatient",
				Severity: domain.SeverityHigh,
				Description: fmt.Sprintf(
					"Outpatient claim of KSh %s is unusually high (threshold: >50,000 for outpatient)",
					ksh(amount)),
				Score: 65,
				Evidence: map[string]any{
					"total_claim_amount": amount,
					"visit_type":         claim.VisitType,
				},
			})
		case amount > outpatientHighCost:
			score += 40
			result.Flags = append(result.Flags, domain.FraudFlag{
				Type:     "high_cost_outpatient",
				Severity: domain.SeverityMedium,
				Description: fmt.Sprintf(
					"Outpatient claim of KSh %s typically indicates inpatient-level care (threshold: >15,000)",
					ksh(amount)),
				Score: 40,
				Evidence: map[string]any{
					"total_claim_amount": amount,
					"visit_type":         claim.VisitType,
				},
			})
		}
	}

	// 2. Simple diagnosis paired with a complex procedure
	combinedDiagnosis := lower(claim.AdmissionDiagnosis) + " " + lower(claim.DischargeDiagnosis)
	matchedSimple, isSimple := containsAny(combinedDiagnosis, d.vocab.SimpleDiagnoses)

	var matchedComplex string
	for _, proc := range procedures {
		if m, ok := containsAny(proc, d.vocab.ComplexProcedures); ok {
			matchedComplex = m
			break
		}
	}

	if isSimple && matchedComplex != "" {
		score += 75
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:     "diagnosis_procedure_mismatch",
			Severity: domain.SeverityHigh,
			Description: fmt.Sprintf(
				"Complex procedure ('%s') billed for a simple diagnosis ('%s')",
				matchedComplex, matchedSimple),
			Score: 75,
			Evidence: map[string]any{
				"admission_diagnosis":       claim.AdmissionDiagnosis,
				"discharge_diagnosis":       claim.DischargeDiagnosis,
				"matched_complex_procedure": matchedComplex,
			},
		})
	}

	// 3. Inpatient-only procedures on an outpatient claim. One flag is enough.
	if visitType == "outpatient" {
		for _, proc := range procedures {
			matched, ok := containsAny(proc, d.vocab.InpatientOnlyProcedures)
			if !ok {
				continue
			}
			score += 70
			result.Flags = append(result.Flags, domain.FraudFlag{
				Type:     "inpatient_procedure_on_outpatient_claim",
				Severity: domain.SeverityHigh,
				Description: fmt.Sprintf(
					"Procedure '%s' is only valid for inpatient or day-care admissions but claim is outpatient",
					matched),
				Score: 70,
				Evidence: map[string]any{
					"visit_type":        claim.VisitType,
					"flagged_procedure": matched,
				},
			})
			break
		}
	}

	// 4. ICU-tier accommodation without an inpatient visit
	if claim.AccommodationType != "" &&
		d.vocab.IsHighValueAccommodation(claim.AccommodationType) &&
		visitType != "inpatient" {
		score += 80
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:     "icu_accommodation_non_inpatient",
			Severity: domain.SeverityCritical,
			Description: fmt.Sprintf(
				"Accommodation type '%s' is only valid for inpatient stays, but visit type is '%s'",
				claim.AccommodationType, claim.VisitType),
			Score: 80,
			Evidence: map[string]any{
				"accommodation_type": claim.AccommodationType,
				"visit_type":         claim.VisitType,
			},
		})
	}

	// 5. Per-line claim amount above billed amount
	for i, line := range claim.BenefitLines {
		if line.BillAmount == nil || line.ClaimAmount == nil {
			continue
		}
		if *line.ClaimAmount <= *line.BillAmount {
			continue
		}
		overage := *line.ClaimAmount - *line.BillAmount
		score += 55
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:     "claim_exceeds_bill_on_benefit_line",
			Severity: domain.SeverityHigh,
			Description: fmt.Sprintf(
				"Benefit line %d: claim amount (KSh %s) exceeds billed amount (KSh %s) by KSh %s",
				i+1, ksh(*line.ClaimAmount), ksh(*line.BillAmount), ksh(overage)),
			Score: 55,
			Evidence: map[string]any{
				"line_index":   i + 1,
				"bill_amount":  *line.BillAmount,
				"claim_amount": *line.ClaimAmount,
				"overage":      round2(overage),
				"description":  line.Description,
			},
		})
	}

	result.RiskScore = capScore(score)
	result.IsHighRisk = result.RiskScore >= highRiskAt

	d.log.WithFields(logrus.Fields{
		"claim_id":   claim.ID,
		"risk_score": result.RiskScore,
		"flags":      len(result.Flags),
	}).Debug("Upcoding detection completed")

	return result
}

// ksh formats an amount with thousands separators and two decimals.
func ksh(amount float64) string {
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}
	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	out := b.String() + "." + fracPart
	if neg {
		return "-" + out
	}
	return out
}
