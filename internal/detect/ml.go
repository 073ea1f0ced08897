package detect

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// Accommodation tier buckets fed to the model instead of the raw ward name.
var (
	mediumValueAccommodation = map[string]struct{}{
		"maternity": {}, "nbu": {}, "psychiatric unit": {}, "isolation": {},
	}
	standardAccommodation = map[string]struct{}{
		"female medical": {}, "male medical": {},
		"female surgical": {}, "male surgical": {},
		"gynaecology": {},
	}
)

// MLRiskScorer scores a claim with the active statistical fraud model. It
// degrades to a zero score rather than failing when no model is deployed.
type MLRiskScorer struct {
	claims    domain.ClaimStore
	providers domain.ProviderStore
	models    domain.ModelStore
	vocab     *Vocabulary
	log       *logrus.Logger
}

// NewMLRiskScorer creates the model-backed scoring module.
func NewMLRiskScorer(
	claims domain.ClaimStore,
	providers domain.ProviderStore,
	models domain.ModelStore,
	vocab *Vocabulary,
	logger *logrus.Logger,
) *MLRiskScorer {
	return &MLRiskScorer{claims: claims, providers: providers, models: models, vocab: vocab, log: logger}
}

func (s *MLRiskScorer) Name() string { return domain.ModuleML }

func (s *MLRiskScorer) AnalyzeClaim(ctx context.Context, claim *domain.Claim) domain.ModuleResult {
	result := domain.ModuleResult{Module: s.Name(), Flags: []domain.FraudFlag{}}

	predictor, err := s.models.LoadActiveModel(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveModel) {
			result.Details = map[string]any{"detail": "no active model"}
			return result
		}
		return domain.ErrorResult(s.Name(), err)
	}

	features := s.BuildFeatures(ctx, claim)

	prediction, err := predictor.Predict(ctx, features)
	if err != nil {
		return domain.ErrorResult(s.Name(), err)
	}

	result.RiskScore = round2(prediction.RiskScore)
	result.IsHighRisk = result.RiskScore >= highRiskAt
	result.Details = map[string]any{
		"model_used":      prediction.ModelUsed,
		"raw_probability": prediction.RawProbability,
	}

	if result.IsHighRisk {
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:        "ml_high_risk_prediction",
			Severity:    domain.SeverityHigh,
			Description: "Statistical model scored the claim as high fraud risk",
			Score:       result.RiskScore,
			Evidence: map[string]any{
				"model_used":      prediction.ModelUsed,
				"raw_probability": prediction.RawProbability,
			},
		})
	}

	s.log.WithFields(logrus.Fields{
		"claim_id":   claim.ID,
		"risk_score": result.RiskScore,
		"model":      prediction.ModelUsed,
	}).Debug("Model scoring completed")

	return result
}

// BuildFeatures assembles the fixed feature vector for one claim. Store
// failures degrade individual features to their neutral defaults.
func (s *MLRiskScorer) BuildFeatures(ctx context.Context, claim *domain.Claim) domain.FeatureVector {
	fv := domain.FeatureVector{
		LengthOfStay:      lengthOfStay(claim),
		BillClaimRatio:    billClaimRatio(claim),
		BenefitLineCount:  len(claim.BenefitLines),
		VisitType:         orUnknown(lower(claim.VisitType)),
		NewOrReturnVisit:  orUnknown(lower(claim.NewOrReturnVisit)),
		WasReferred:       yesNo(claim.WasReferred != nil && *claim.WasReferred),
		AccommodationType: s.accommodationTier(claim.AccommodationType),
		HasPreauth:        yesNo(allLinesHavePreauth(claim)),
	}

	if claim.TotalClaimAmount != nil {
		fv.TotalClaimAmount = *claim.TotalClaimAmount
	}

	if provider, err := s.providers.GetByProviderID(ctx, claim.ProviderID); err == nil &&
		provider.TotalClaimsCount > 0 {
		fv.ProviderRejectionRate = float64(provider.RejectedClaimsCount) / float64(provider.TotalClaimsCount)
	}

	if claim.PatientSHANumber != "" && claim.VisitAdmissionDate != nil {
		since := claim.VisitAdmissionDate.AddDate(0, 0, -30)
		if count, err := s.claims.CountMemberClaimsSince(ctx, claim.PatientSHANumber, claim.ID.String(), since); err == nil {
			fv.PatientClaimCount30d = count
		}
	}

	return fv
}

func (s *MLRiskScorer) accommodationTier(accom string) string {
	a := lower(accom)
	switch {
	case a == "":
		return "unknown"
	case s.vocab.IsHighValueAccommodation(a):
		return "high_value"
	default:
		if _, ok := mediumValueAccommodation[a]; ok {
			return "medium_value"
		}
		if _, ok := standardAccommodation[a]; ok {
			return "standard"
		}
		return "unknown"
	}
}

func lengthOfStay(claim *domain.Claim) int {
	if claim.VisitAdmissionDate == nil || claim.DischargeDate == nil {
		return 0
	}
	days := int(claim.DischargeDate.Sub(*claim.VisitAdmissionDate) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

// billClaimRatio defaults to a neutral 1.0 when the bill total is absent.
// Values above 1.0 mean the claim exceeds the bill.
func billClaimRatio(claim *domain.Claim) float64 {
	var bill, clm float64
	if claim.TotalBillAmount != nil {
		bill = *claim.TotalBillAmount
	}
	if claim.TotalClaimAmount != nil {
		clm = *claim.TotalClaimAmount
	}
	if bill > 0 {
		return round4(clm / bill)
	}
	return 1.0
}

func allLinesHavePreauth(claim *domain.Claim) bool {
	if len(claim.BenefitLines) == 0 {
		return false
	}
	for _, line := range claim.BenefitLines {
		if line.PreauthNo == "" {
			return false
		}
	}
	return true
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
