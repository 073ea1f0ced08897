package domain

import "time"

// Detection module names. The orchestrator iterates this fixed set; there is
// no open-ended plugin registry.
const (
	ModuleDuplicate    = "duplicate"
	ModulePhantom      = "phantom_patient"
	ModuleUpcoding     = "upcoding"
	ModuleProviderRisk = "provider_risk"
	ModuleML           = "ml_model"
)

// FraudFlag is one machine-readable fraud indicator with enough structured
// evidence to justify itself to a reviewer without re-running the detector.
type FraudFlag struct {
	Type        string         `json:"type"`
	Severity    FraudSeverity  `json:"severity"`
	Description string         `json:"description"`
	Score       float64        `json:"score"`
	Evidence    map[string]any `json:"evidence,omitempty"`
}

// ModuleResult is the output of one detection module. Modules never raise past
// the orchestrator boundary; internal faults surface here as Error with a
// zero risk score.
type ModuleResult struct {
	Module     string         `json:"module"`
	RiskScore  float64        `json:"risk_score"`
	Flags      []FraudFlag    `json:"flags"`
	IsHighRisk bool           `json:"is_high_risk"`
	Error      string         `json:"error,omitempty"`
	Warning    string         `json:"warning,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// ErrorResult builds the zero-score result used when a module faults.
func ErrorResult(module string, err error) ModuleResult {
	return ModuleResult{
		Module: module,
		Flags:  []FraudFlag{},
		Error:  err.Error(),
	}
}

// CompositeAnalysis is the per-claim aggregate of all module results. It is
// produced fresh on every run and supersedes any prior analysis for the claim.
type CompositeAnalysis struct {
	ClaimID              string                  `json:"claim_id"`
	ClaimNumber          string                  `json:"claim_number"`
	Modules              map[string]ModuleResult `json:"modules"`
	CompositeRiskScore   float64                 `json:"composite_risk_score"`
	FinalStatus          ClaimStatus             `json:"final_status"`
	Recommendation       string                  `json:"recommendation"`
	MLScore              float64                 `json:"ml_score"`
	TotalExecutionTimeMS float64                 `json:"total_execution_time_ms"`
	AnalyzedAt           time.Time               `json:"analyzed_at"`
}

// AllFlags collects every module's flags in module-name order stable enough
// for persistence on the claim record.
func (a *CompositeAnalysis) AllFlags() []FraudFlag {
	order := []string{ModuleML, ModulePhantom, ModuleUpcoding, ModuleDuplicate, ModuleProviderRisk}
	var flags []FraudFlag
	for _, name := range order {
		if r, ok := a.Modules[name]; ok {
			flags = append(flags, r.Flags...)
		}
	}
	return flags
}

// Prediction is the output of the ML risk scorer's predictor contract.
type Prediction struct {
	RiskScore      float64        `json:"risk_score"`
	RawProbability float64        `json:"raw_probability"`
	ModelUsed      string         `json:"model_used"`
	Features       map[string]any `json:"features,omitempty"`
}

// FeatureVector is the fixed feature set consumed by the fraud classifier.
type FeatureVector struct {
	TotalClaimAmount      float64 `json:"total_claim_amount"`
	LengthOfStay          int     `json:"length_of_stay"`
	ProviderRejectionRate float64 `json:"provider_rejection_rate"`
	PatientClaimCount30d  int     `json:"patient_claim_count_30d"`
	BillClaimRatio        float64 `json:"bill_claim_ratio"`
	BenefitLineCount      int     `json:"benefit_line_count"`
	VisitType             string  `json:"visit_type"`
	NewOrReturnVisit      string  `json:"new_or_return_visit"`
	WasReferred           string  `json:"was_referred"`
	AccommodationType     string  `json:"accommodation_type"`
	HasPreauth            string  `json:"has_preauth"`
}
