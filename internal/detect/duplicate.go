package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// rollingWindow is the ± window for near-identical claim detection.
const rollingWindow = 48 * time.Hour

// DuplicateDetector finds the same service billed multiple times: exact and
// rolling duplicates, same-day multi-facility billing, overlapping inpatient
// stays, and reused preauthorisation numbers.
type DuplicateDetector struct {
	claims domain.ClaimStore
	log    *logrus.Logger
}

// NewDuplicateDetector creates the duplicate detection module.
func NewDuplicateDetector(claims domain.ClaimStore, logger *logrus.Logger) *DuplicateDetector {
	return &DuplicateDetector{claims: claims, log: logger}
}

func (d *DuplicateDetector) Name() string { return domain.ModuleDuplicate }

// AnalyzeClaim checks the claim against historical data. Categories are
// independent and may all fire, but within the exact/rolling pair only the
// higher-priority match applies.
func (d *DuplicateDetector) AnalyzeClaim(ctx context.Context, claim *domain.Claim) domain.ModuleResult {
	result := domain.ModuleResult{Module: d.Name(), Flags: []domain.FraudFlag{}}

	// Need at minimum the SHA number and admission date to query history.
	// Insufficient data is a warning, not an error.
	if claim.PatientSHANumber == "" || claim.VisitAdmissionDate == nil {
		result.Warning = "Insufficient patient/date data for duplicate check"
		return result
	}

	var score float64

	// 1. Exact duplicate: same SHA number + admission date + claim total
	exact, err := d.claims.FindExactDuplicates(ctx, claim)
	if err != nil {
		return domain.ErrorResult(d.Name(), fmt.Errorf("exact duplicate query: %w", err))
	}
	if len(exact) > 0 {
		score += 100
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:     "exact_duplicate",
			Severity: domain.SeverityCritical,
			Description: fmt.Sprintf(
				"Found %d exact matching claim(s) for same SHA member, admission date, and claim amount",
				len(exact)),
			Score:    100,
			Evidence: map[string]any{"duplicate_claim_ids": claimIDs(exact)},
		})
	}

	// 2. Rolling duplicate: only checked when no exact duplicate was found
	if len(exact) == 0 {
		rolling, err := d.claims.FindRollingDuplicates(ctx, claim, rollingWindow)
		if err != nil {
			return domain.ErrorResult(d.Name(), fmt.Errorf("rolling duplicate query: %w", err))
		}
		if len(rolling) > 0 {
			score += 80
			result.Flags = append(result.Flags, domain.FraudFlag{
				Type:        "rolling_duplicate",
				Severity:    domain.SeverityHigh,
				Description: "Near-identical claim found for same SHA member and provider within a 2-day window",
				Score:       80,
				Evidence:    map[string]any{"duplicate_claim_ids": claimIDs(rolling)},
			})
		}
	}

	// 3. Same-day multi-facility billing
	sameDay, err := d.claims.FindSameDayClaims(ctx, claim)
	if err != nil {
		return domain.ErrorResult(d.Name(), fmt.Errorf("same-day query: %w", err))
	}
	if len(sameDay) > 0 {
		providers := map[string]struct{}{}
		for _, c := range sameDay {
			providers[c.ProviderID] = struct{}{}
		}
		otherProviders := make([]string, 0, len(providers))
		for p := range providers {
			otherProviders = append(otherProviders, p)
		}
		score += 60
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:     "same_day_multi_facility",
			Severity: domain.SeverityHigh,
			Description: fmt.Sprintf(
				"SHA member billed at %d different facilities on the same admission date",
				len(providers)+1),
			Score: 60,
			Evidence: map[string]any{
				"other_claim_ids":    claimIDs(sameDay),
				"other_provider_ids": otherProviders,
			},
		})
	}

	// 4. Overlapping inpatient stays: physically impossible
	if lower(claim.VisitType) == "inpatient" && claim.DischargeDate != nil {
		overlapping, err := d.claims.FindOverlappingInpatientStays(ctx, claim)
		if err != nil {
			return domain.ErrorResult(d.Name(), fmt.Errorf("overlap query: %w", err))
		}
		if len(overlapping) > 0 {
			score += 85
			result.Flags = append(result.Flags, domain.FraudFlag{
				Type:        "overlapping_inpatient_stays",
				Severity:    domain.SeverityCritical,
				Description: "SHA member has overlapping inpatient admission periods - physically impossible",
				Score:       85,
				Evidence: map[string]any{
					"overlapping_claim_ids": claimIDs(overlapping),
					"current_admission":     claim.VisitAdmissionDate.Format(time.RFC3339),
					"current_discharge":     claim.DischargeDate.Format(time.RFC3339),
				},
			})
		}
	}

	// 5. Reused preauth number: one flag is enough even if several collide
	for _, preauth := range distinctPreauthNumbers(claim) {
		conflicts, err := d.claims.FindClaimsByPreauth(ctx, claim.ID.String(), preauth)
		if err != nil {
			return domain.ErrorResult(d.Name(), fmt.Errorf("preauth query: %w", err))
		}
		if len(conflicts) > 0 {
			score += 70
			result.Flags = append(result.Flags, domain.FraudFlag{
				Type:     "reused_preauth_number",
				Severity: domain.SeverityHigh,
				Description: fmt.Sprintf(
					"Preauthorisation number '%s' already used in %d other claim(s)",
					preauth, len(conflicts)),
				Score: 70,
				Evidence: map[string]any{
					"preauth_no":            preauth,
					"conflicting_claim_ids": claimIDs(conflicts),
				},
			})
			break
		}
	}

	result.RiskScore = capScore(score)
	result.IsHighRisk = result.RiskScore >= highRiskAt

	d.log.WithFields(logrus.Fields{
		"claim_id":   claim.ID,
		"risk_score": result.RiskScore,
		"flags":      len(result.Flags),
	}).Debug("Duplicate detection completed")

	return result
}

func distinctPreauthNumbers(claim *domain.Claim) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, line := range claim.BenefitLines {
		if line.PreauthNo == "" {
			continue
		}
		if _, ok := seen[line.PreauthNo]; ok {
			continue
		}
		seen[line.PreauthNo] = struct{}{}
		out = append(out, line.PreauthNo)
	}
	return out
}
