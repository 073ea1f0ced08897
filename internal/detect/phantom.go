package detect

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// PhantomDetector identifies claims for non-existent, deceased, or
// identity-mismatched patients, cross-checking the national SHA member
// registry and medical plausibility tables.
type PhantomDetector struct {
	claims    domain.ClaimStore
	providers domain.ProviderStore
	registry  domain.RegistryClient
	vocab     *Vocabulary
	log       *logrus.Logger
}

// NewPhantomDetector creates the phantom-patient detection module.
func NewPhantomDetector(
	claims domain.ClaimStore,
	providers domain.ProviderStore,
	registry domain.RegistryClient,
	vocab *Vocabulary,
	logger *logrus.Logger,
) *PhantomDetector {
	return &PhantomDetector{
		claims:    claims,
		providers: providers,
		registry:  registry,
		vocab:     vocab,
		log:       logger,
	}
}

func (d *PhantomDetector) Name() string { return domain.ModulePhantom }

func (d *PhantomDetector) AnalyzeClaim(ctx context.Context, claim *domain.Claim) domain.ModuleResult {
	result := domain.ModuleResult{Module: d.Name(), Flags: []domain.FraudFlag{}}

	// A claim with no SHA number cannot be verified at all.
	if claim.PatientSHANumber == "" {
		result.RiskScore = 50
		result.IsHighRisk = true
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:        "missing_sha_number",
			Severity:    domain.SeverityHigh,
			Description: "Claim has no SHA member number - cannot verify patient",
			Score:       50,
		})
		return result
	}

	var score float64

	// 1. Registry verification. The client fails open, so an unreachable
	// registry never blocks a claim; APIError just suppresses the identity
	// checks below.
	member := d.registry.VerifyMember(ctx, claim.PatientSHANumber)

	if !member.Exists {
		score += 40
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:        "sha_number_not_found",
			Severity:    domain.SeverityCritical,
			Description: "SHA member number not found in the SHA registry",
			Score:       40,
			Evidence:    map[string]any{"sha_number": claim.PatientSHANumber},
		})
	}

	if member.IsDeceased {
		deathDate := "unknown date"
		if member.DeathDate != nil {
			deathDate = member.DeathDate.Format("2006-01-02")
		}
		score += 40
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:        "deceased_member",
			Severity:    domain.SeverityCritical,
			Description: fmt.Sprintf("SHA member recorded as deceased on %s", deathDate),
			Score:       40,
			Evidence: map[string]any{
				"sha_number": claim.PatientSHANumber,
				"death_date": deathDate,
			},
		})
	}

	// 2. Geographic impossibility: same member, same day, different county
	if flag, ok := d.checkGeographicImpossibility(ctx, claim); ok {
		score += flag.Score
		result.Flags = append(result.Flags, flag)
	}

	// 3. Medical plausibility against registry gender/age
	if flag, ok := d.checkMedicalPlausibility(claim, member); ok {
		score += flag.Score
		result.Flags = append(result.Flags, flag)
	}

	// 4. Excessive visit frequency over the last 30 days
	if flag, ok := d.checkVisitFrequency(ctx, claim); ok {
		score += flag.Score
		result.Flags = append(result.Flags, flag)
	}

	// 5. Name mismatch, only when the registry actually answered
	if member.Exists && !member.APIError && !nameMatches(claim, member) {
		score += 15
		result.Flags = append(result.Flags, domain.FraudFlag{
			Type:        "name_mismatch_vs_registry",
			Severity:    domain.SeverityMedium,
			Description: "Patient name on claim does not match SHA registry record",
			Score:       15,
			Evidence: map[string]any{
				"claim_last_name":  claim.PatientLastName,
				"claim_first_name": claim.PatientFirstName,
				"registry_name":    member.FullName,
			},
		})
	}

	result.RiskScore = capScore(score)
	result.IsHighRisk = result.RiskScore >= phantomHighRiskAt

	d.log.WithFields(logrus.Fields{
		"claim_id":   claim.ID,
		"risk_score": result.RiskScore,
		"api_error":  member.APIError,
	}).Debug("Phantom patient detection completed")

	return result
}

// checkGeographicImpossibility flags the member appearing in two different
// counties on the same admission date.
func (d *PhantomDetector) checkGeographicImpossibility(ctx context.Context, claim *domain.Claim) (domain.FraudFlag, bool) {
	if claim.VisitAdmissionDate == nil {
		return domain.FraudFlag{}, false
	}

	current, err := d.providers.GetByProviderID(ctx, claim.ProviderID)
	if err != nil || current == nil || current.County == "" {
		return domain.FraudFlag{}, false
	}

	sameDay, err := d.claims.FindSameDayClaims(ctx, claim)
	if err != nil {
		return domain.FraudFlag{}, false
	}

	for _, other := range sameDay {
		otherProvider, err := d.providers.GetByProviderID(ctx, other.ProviderID)
		if err != nil || otherProvider == nil || otherProvider.County == "" {
			continue
		}
		if otherProvider.County == current.County {
			continue
		}
		hoursApart := 0.0
		if other.VisitAdmissionDate != nil {
			hoursApart = math.Abs(other.VisitAdmissionDate.Sub(*claim.VisitAdmissionDate).Hours())
		}
		return domain.FraudFlag{
			Type:     "geographic_impossibility",
			Severity: domain.SeverityHigh,
			Description: fmt.Sprintf(
				"SHA member claimed services in %s and %s on the same day (%.1f hours apart)",
				current.County, otherProvider.County, hoursApart),
			Score: 30,
			Evidence: map[string]any{
				"claim_1": map[string]any{
					"provider":  current.Name,
					"county":    current.County,
					"admission": claim.VisitAdmissionDate.Format(time.RFC3339),
				},
				"claim_2": map[string]any{
					"claim_number": other.ClaimNumber,
					"provider":     otherProvider.Name,
					"county":       otherProvider.County,
				},
				"hours_apart": math.Round(hoursApart*10) / 10,
			},
		}, true
	}

	return domain.FraudFlag{}, false
}

// checkMedicalPlausibility flags combinations the member's registry gender
// and age make impossible. First match wins.
func (d *PhantomDetector) checkMedicalPlausibility(claim *domain.Claim, member *domain.MemberRecord) (domain.FraudFlag, bool) {
	gender := strings.ToUpper(member.Gender)
	age := member.Age(time.Now())

	codes := allICD11Codes(claim)

	// Maternity codes for a male member
	for _, code := range codes {
		if gender != "M" {
			break
		}
		for _, prefix := range d.vocab.MaternityICD11Prefixes {
			if strings.HasPrefix(code, prefix) {
				return domain.FraudFlag{
					Type:     "impossible_diagnosis",
					Severity: domain.SeverityCritical,
					Description: fmt.Sprintf(
						"Maternity/obstetrics ICD-11 code (%s) on claim for a male SHA member", code),
					Score:    35,
					Evidence: map[string]any{"icd11_code": code, "gender": gender},
				}, true
			}
		}
	}

	// Delivery procedures for a male or elderly member
	for _, line := range claim.BenefitLines {
		code := strings.TrimSpace(line.ICD11ProcedureCode)
		if _, ok := d.vocab.DeliveryProcedureCodes[code]; !ok {
			continue
		}
		if gender == "M" {
			return domain.FraudFlag{
				Type:        "impossible_procedure",
				Severity:    domain.SeverityCritical,
				Description: fmt.Sprintf("Delivery procedure (%s) for a male SHA member", code),
				Score:       35,
				Evidence:    map[string]any{"procedure_code": code, "gender": gender},
			}, true
		}
		if age > 65 {
			return domain.FraudFlag{
				Type:        "unlikely_procedure",
				Severity:    domain.SeverityHigh,
				Description: fmt.Sprintf("Delivery procedure (%s) for a %d-year-old patient", code, age),
				Score:       25,
				Evidence:    map[string]any{"procedure_code": code, "age": age},
			}, true
		}
	}

	// Paediatric codes for an adult member
	for _, code := range codes {
		if age <= 18 {
			break
		}
		for _, prefix := range d.vocab.PaediatricICD11Prefixes {
			if strings.HasPrefix(code, prefix) {
				return domain.FraudFlag{
					Type:     "age_mismatch",
					Severity: domain.SeverityMedium,
					Description: fmt.Sprintf(
						"Paediatric ICD-11 code (%s) on claim for a %d-year-old patient", code, age),
					Score:    20,
					Evidence: map[string]any{"icd11_code": code, "age": age},
				}, true
			}
		}
	}

	return domain.FraudFlag{}, false
}

// checkVisitFrequency flags implausibly many claims for one member in the
// trailing 30 days.
func (d *PhantomDetector) checkVisitFrequency(ctx context.Context, claim *domain.Claim) (domain.FraudFlag, bool) {
	since := time.Now().AddDate(0, 0, -30)
	count, err := d.claims.CountMemberClaimsSince(ctx, claim.PatientSHANumber, claim.ID.String(), since)
	if err != nil {
		return domain.FraudFlag{}, false
	}

	var score float64
	var desc string
	switch {
	case count > 50:
		score = 20
		desc = fmt.Sprintf("SHA member has %d claims in the last 30 days (>50 is highly suspicious)", count)
	case count > 30:
		score = 15
		desc = fmt.Sprintf("SHA member has %d claims in the last 30 days (>30 is suspicious)", count)
	default:
		return domain.FraudFlag{}, false
	}

	return domain.FraudFlag{
		Type:        "excessive_visits",
		Severity:    domain.SeverityMedium,
		Description: desc,
		Score:       score,
		Evidence:    map[string]any{"visit_count": count, "period_days": 30},
	}, true
}

// nameMatches loosely compares the claim's name parts against the registry
// full name. Without both sides a mismatch cannot be established.
func nameMatches(claim *domain.Claim, member *domain.MemberRecord) bool {
	registryName := lower(member.FullName)
	last := lower(claim.PatientLastName)
	first := lower(claim.PatientFirstName)

	if registryName == "" || last == "" {
		return true
	}
	return strings.Contains(registryName, last) || strings.Contains(registryName, first)
}
