package domain

import (
	"time"

	"github.com/google/uuid"
)

// Core Enums and Types

// ClaimStatus represents the processing status of a claim
type ClaimStatus string

const (
	StatusPending            ClaimStatus = "pending"
	StatusProcessing         ClaimStatus = "processing"
	StatusAutoApproved       ClaimStatus = "auto_approved"
	StatusFlaggedReview      ClaimStatus = "flagged_review"
	StatusFlaggedCritical    ClaimStatus = "flagged_critical"
	StatusApproved           ClaimStatus = "approved"
	StatusRejected           ClaimStatus = "rejected"
	StatusUnderInvestigation ClaimStatus = "under_investigation"
)

// FraudSeverity represents the severity of a fraud flag
type FraudSeverity string

const (
	SeverityCritical FraudSeverity = "critical"
	SeverityHigh     FraudSeverity = "high"
	SeverityMedium   FraudSeverity = "medium"
	SeverityLow      FraudSeverity = "low"
)

// VisitType represents the type of patient visit on the claim form
type VisitType string

const (
	VisitInpatient  VisitType = "inpatient"
	VisitOutpatient VisitType = "outpatient"
	VisitDayCare    VisitType = "day-care"
)

// ProviderRiskLevel represents the stored risk tier of a provider
type ProviderRiskLevel string

const (
	ProviderRiskCritical ProviderRiskLevel = "CRITICAL"
	ProviderRiskHigh     ProviderRiskLevel = "HIGH"
	ProviderRiskMedium   ProviderRiskLevel = "MEDIUM"
	ProviderRiskLow      ProviderRiskLevel = "LOW"
)

// Persisted Records

// Claim is the persisted record of billed medical services for one patient
// episode, submitted by a provider. It carries both the structured form data
// mapped from an ExtractedClaim and the fraud-analysis result fields.
type Claim struct {
	ID          uuid.UUID `json:"id"`
	ClaimNumber string    `json:"claim_number"`

	ProviderID   string `json:"provider_id"`
	ProviderName string `json:"provider_name,omitempty"`

	PatientSHANumber  string `json:"patient_sha_number"`
	PatientLastName   string `json:"patient_last_name,omitempty"`
	PatientFirstName  string `json:"patient_first_name,omitempty"`
	PatientMiddleName string `json:"patient_middle_name,omitempty"`

	VisitType          string     `json:"visit_type,omitempty"`
	VisitAdmissionDate *time.Time `json:"visit_admission_date,omitempty"`
	DischargeDate      *time.Time `json:"discharge_date,omitempty"`
	NewOrReturnVisit   string     `json:"new_or_return_visit,omitempty"`
	WasReferred        *bool      `json:"was_referred,omitempty"`
	ReferralProvider   string     `json:"referral_provider,omitempty"`
	AccommodationType  string     `json:"accommodation_type,omitempty"`
	PatientDisposition string     `json:"patient_disposition,omitempty"`

	AdmissionDiagnosis string `json:"admission_diagnosis,omitempty"`
	DischargeDiagnosis string `json:"discharge_diagnosis,omitempty"`
	ICD11Code          string `json:"icd11_code,omitempty"`
	RelatedProcedure   string `json:"related_procedure,omitempty"`

	BenefitLines     []BenefitLine `json:"benefit_lines,omitempty"`
	TotalBillAmount  *float64      `json:"total_bill_amount,omitempty"`
	TotalClaimAmount *float64      `json:"total_claim_amount,omitempty"`

	// Fraud-analysis result fields, written back by the orchestrator commit
	RiskScore           float64     `json:"risk_score"`
	IsFlagged           bool        `json:"is_flagged"`
	FraudFlags          []FraudFlag `json:"fraud_flags,omitempty"`
	Status              ClaimStatus `json:"status"`
	AnalysisCompletedAt *time.Time  `json:"analysis_completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is an SHA-contracted health care provider or facility
type Provider struct {
	ID         uuid.UUID `json:"id"`
	ProviderID string    `json:"provider_id"`
	Name       string    `json:"name"`
	County     string    `json:"county,omitempty"`

	RiskLevel            ProviderRiskLevel `json:"risk_level,omitempty"`
	TotalClaimsCount     int               `json:"total_claims_count"`
	RejectedClaimsCount  int               `json:"rejected_claims_count"`
	FlaggedClaimsCount   int               `json:"flagged_claims_count"`
	AverageClaimedAmount float64           `json:"average_claimed_amount"`

	IsActive      bool `json:"is_active"`
	IsBlacklisted bool `json:"is_blacklisted"`
}

// FraudAlert is the single alert row upserted per flagged claim.
// Re-analysis replaces severity and evidence in place rather than appending.
type FraudAlert struct {
	ID               uuid.UUID          `json:"id"`
	ClaimID          uuid.UUID          `json:"claim_id"`
	AlertType        string             `json:"alert_type"`
	Severity         FraudSeverity      `json:"severity"`
	Description      string             `json:"description"`
	Evidence         *CompositeAnalysis `json:"evidence,omitempty"`
	DetectionModule  string             `json:"detection_module"`
	ModuleConfidence float64            `json:"module_confidence"`
	Status           string             `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// MemberRecord is the registry's view of an SHA member. APIError marks a
// fail-open default: the registry could not be reached, so Exists is assumed.
type MemberRecord struct {
	SHANumber   string     `json:"sha_number"`
	Exists      bool       `json:"exists"`
	IsDeceased  bool       `json:"is_deceased"`
	DeathDate   *time.Time `json:"death_date,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	County      string     `json:"county,omitempty"`
	FullName    string     `json:"full_name,omitempty"`
	APIError    bool       `json:"api_error,omitempty"`
	ErrorDetail string     `json:"error_detail,omitempty"`
}

// Age returns the member's age in whole years at the given time, or -1 when
// the date of birth is unknown.
func (m *MemberRecord) Age(at time.Time) int {
	if m.DateOfBirth == nil {
		return -1
	}
	return int(at.Sub(*m.DateOfBirth).Hours() / 24 / 365)
}
