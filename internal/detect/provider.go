package detect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// Rejection-rate and anomaly thresholds.
const (
	rejectionRateHigh     = 0.5
	rejectionRateElevated = 0.3
	minClaimsForRate      = 10
	amountSpikeRatio      = 5.0
	amountElevatedRatio   = 3.0
	accommodationFreqMax  = 20
)

// ProviderRiskDetector scores a claim against the submitting provider's
// historical risk profile: rejection history, stored risk tier, amount
// anomalies against the 90-day average, and ICU-tier billing frequency.
type ProviderRiskDetector struct {
	claims    domain.ClaimStore
	providers domain.ProviderStore
	vocab     *Vocabulary
	log       *logrus.Logger
}

// NewProviderRiskDetector creates the provider-risk detection module.
func NewProviderRiskDetector(
	claims domain.ClaimStore,
	providers domain.ProviderStore,
	vocab *Vocabulary,
	logger *logrus.Logger,
) *ProviderRiskDetector {
	return &ProviderRiskDetector{claims: claims, providers: providers, vocab: vocab, log: logger}
}

func (d *ProviderRiskDetector) Name() string { return domain.ModuleProviderRisk }

func (d *ProviderRiskDetector) AnalyzeClaim(ctx context.Context, claim *domain.Claim) domain.ModuleResult {
	result := domain.ModuleResult{Module: d.Name(), Flags: []domain.FraudFlag{}}

	provider, err := d.providers.GetByProviderID(ctx, claim.ProviderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			result.Error = "Provider not found"
			return result
		}
		return domain.ErrorResult(d.Name(), fmt.Errorf("provider lookup: %w", err))
	}

	var score float64

	// 1. Historical rejection rate, only meaningful with some volume
	if provider.TotalClaimsCount >= minClaimsForRate {
		rate := float64(provider.RejectedClaimsCount) / float64(provider.TotalClaimsCount)
		switch {
		case rate > rejectionRateHigh:
			score += 75
			result.Flags = append(result.Flags, domain.FraudFlag{
				Type:     "high_rejection_history",
				Severity: domain.SeverityHigh,
				Description: fmt.Sprintf(
					"Provider rejection rate is %.1f%% (threshold: >50%%)", rate*100),
				Score: 75,
				Evidence: map[string]any{
					"rejection_rate":  round4(rate),
					"total_claims":    provider.TotalClaimsCount,
					"rejected_claims": provider.RejectedClaimsCount,
				},
			})
		case rate > rejectionRateElevated:
			score += 40
			result.Flags = append(result.Flags, domain.FraudFlag{
				Type:     "elevated_rejection_history",
				Severity: domain.SeverityMedium,
				Description: fmt.Sprintf(
					"Provider rejection rate is %.1f%% (threshold: >30%%)", rate*100),
				Score:    40,
				Evidence: map[string]any{"rejection_rate": round4(rate)},
			})
		}
	}

	// 2. Stored provider risk tier
	switch provider.RiskLevel {
	case domain.ProviderRiskCritical:
		score += 90
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:        "critical_risk_provider",
			Severity:    domain.SeverityCritical,
			Description: "Provider is flagged as CRITICAL risk in the registry",
			Score:       90,
			Evidence:    map[string]any{"provider_id": claim.ProviderID},
		})
	case domain.ProviderRiskHigh:
		score += 50
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:        "high_risk_provider",
			Severity:    domain.SeverityHigh,
			Description: "Provider is flagged as HIGH risk in the registry",
			Score:       50,
			Evidence:    map[string]any{"provider_id": claim.ProviderID},
		})
	}

	// 3. Claim amount vs the provider's 90-day average
	if claim.TotalClaimAmount != nil {
		since := windowStart(claim, 90)
		avg, err := d.claims.AverageProviderClaimAmountSince(ctx, claim.ProviderID, claim.ID.String(), since)
		if err != nil {
			return domain.ErrorResult(d.Name(), fmt.Errorf("provider average query: %w", err))
		}
		if avg > 0 {
			ratio := *claim.TotalClaimAmount / avg
			switch {
			case ratio > amountSpikeRatio:
				score += 60
				result.Flags = append(result.Flags, domain.FraudFlag{
					Type:     "amount_spike_vs_provider_average",
					Severity: domain.SeverityHigh,
					Description: fmt.Sprintf(
						"Claim amount is %.1fx the provider's 90-day average (threshold: >5x)", ratio),
					Score: 60,
					Evidence: map[string]any{
						"claim_amount":         *claim.TotalClaimAmount,
						"provider_90d_average": round2(avg),
						"ratio":                round2(ratio),
					},
				})
			case ratio > amountElevatedRatio:
				score += 30
				result.Flags = append(result.Flags, domain.FraudFlag{
					Type:     "elevated_amount_vs_provider_average",
					Severity: domain.SeverityMedium,
					Description: fmt.Sprintf(
						"Claim amount is %.1fx the provider's 90-day average", ratio),
					Score: 30,
					Evidence: map[string]any{
						"claim_amount":         *claim.TotalClaimAmount,
						"provider_90d_average": round2(avg),
						"ratio":                round2(ratio),
					},
				})
			}
		}
	}

	// 4. ICU-tier accommodation billing frequency over the last 30 days
	if claim.AccommodationType != "" && d.vocab.IsHighValueAccommodation(claim.AccommodationType) {
		accom := lower(claim.AccommodationType)
		since := windowStart(claim, 30)
		count, err := d.claims.CountProviderAccommodationSince(ctx, claim.ProviderID, accom, since)
		if err != nil {
			return domain.ErrorResult(d.Name(), fmt.Errorf("accommodation frequency query: %w", err))
		}
		if count > accommodationFreqMax {
			score += 50
			result.Flags = append(result.Flags, domain.FraudFlag{
				Type:     "high_value_accommodation_frequency",
				Severity: domain.SeverityHigh,
				Description: fmt.Sprintf(
					"Provider billed %d %s admissions in the last 30 days (>20 is suspicious)",
					count, strings.ToUpper(accom)),
				Score: 50,
				Evidence: map[string]any{
					"accommodation_type": claim.AccommodationType,
					"count_last_30_days": count,
				},
			})
		}
	}

	result.RiskScore = capScore(score)
	result.IsHighRisk = result.RiskScore >= highRiskAt

	d.log.WithFields(logrus.Fields{
		"claim_id":    claim.ID,
		"provider_id": claim.ProviderID,
		"risk_score":  result.RiskScore,
	}).Debug("Provider risk profiling completed")

	return result
}

// windowStart anchors a trailing window on the claim's admission date,
// falling back to now for claims without one.
func windowStart(claim *domain.Claim, days int) time.Time {
	anchor := time.Now().UTC()
	if claim.VisitAdmissionDate != nil {
		anchor = *claim.VisitAdmissionDate
	}
	return anchor.AddDate(0, 0, -days)
}
