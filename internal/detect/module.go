package detect

import (
	"math"
	"strings"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// Detector thresholds shared by the rule-based modules.
const (
	highRiskAt        = 60.0
	phantomHighRiskAt = 70.0
	maxModuleScore    = 100.0
)

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// capScore clamps a module's accumulated score to [0,100].
func capScore(score float64) float64 {
	if score > maxModuleScore {
		return maxModuleScore
	}
	if score < 0 {
		return 0
	}
	return score
}

// round2 rounds to two decimal places for persisted scores and evidence.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// containsAny reports whether text contains any of the keywords
// (case-insensitive substring containment) and returns the first match.
func containsAny(text string, keywords []string) (string, bool) {
	t := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(t, kw) {
			return kw, true
		}
	}
	return "", false
}

// claimIDs extracts the string ids of a claim slice for flag evidence.
func claimIDs(claims []*domain.Claim) []string {
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ID.String())
	}
	return ids
}

// lineProcedureTexts collects the searchable procedure descriptions of a
// claim: every benefit-line description plus the related-procedure field.
func lineProcedureTexts(claim *domain.Claim) []string {
	var texts []string
	for _, line := range claim.BenefitLines {
		if d := lower(line.Description); d != "" {
			texts = append(texts, d)
		}
	}
	if claim.RelatedProcedure != "" {
		texts = append(texts, lower(claim.RelatedProcedure))
	}
	return texts
}

// allICD11Codes collects the claim-level ICD-11 code plus per-line procedure
// codes.
func allICD11Codes(claim *domain.Claim) []string {
	var codes []string
	if claim.ICD11Code != "" {
		codes = append(codes, claim.ICD11Code)
	}
	for _, line := range claim.BenefitLines {
		if line.ICD11ProcedureCode != "" {
			codes = append(codes, line.ICD11ProcedureCode)
		}
	}
	return codes
}
