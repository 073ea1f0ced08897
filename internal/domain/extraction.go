package domain

import (
	"strings"
	"time"
)

// Format identifies the layout family of an uploaded claim document.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatDOCX Format = "docx"
)

// BenefitLine is one billable episode row from the SHA Health Benefits table
// (Section 14 of the claim form). Every field is optional: a nil amount means
// the cell was absent or unparsable, never zero.
type BenefitLine struct {
	AdmissionDate      *time.Time `json:"admission_date,omitempty"`
	DischargeDate      *time.Time `json:"discharge_date,omitempty"`
	CaseCode           string     `json:"case_code,omitempty"`
	ICD11ProcedureCode string     `json:"icd11_procedure_code,omitempty"`
	Description        string     `json:"description,omitempty"`
	PreauthNo          string     `json:"preauth_no,omitempty"`
	BillAmount         *float64   `json:"bill_amount,omitempty"`
	ClaimAmount        *float64   `json:"claim_amount,omitempty"`
}

// Empty reports whether no field of the line was populated.
func (l *BenefitLine) Empty() bool {
	return l.AdmissionDate == nil && l.DischargeDate == nil &&
		l.CaseCode == "" && l.ICD11ProcedureCode == "" &&
		l.Description == "" && l.PreauthNo == "" &&
		l.BillAmount == nil && l.ClaimAmount == nil
}

// ExtractedClaim is the transient result of document extraction. All scalar
// fields are pointers so callers can distinguish "not found" from "found but
// blank". It mirrors every section of the SHA claim form.
type ExtractedClaim struct {
	// Header
	ClaimNumber *string `json:"claim_number,omitempty"`

	// Part I: Health Care Provider
	ProviderID   *string `json:"provider_id,omitempty"`
	ProviderName *string `json:"provider_name,omitempty"`

	// Part II: Patient Details
	PatientLastName         *string `json:"patient_last_name,omitempty"`
	PatientFirstName        *string `json:"patient_first_name,omitempty"`
	PatientMiddleName       *string `json:"patient_middle_name,omitempty"`
	SHANumber               *string `json:"sha_number,omitempty"`
	Residence               *string `json:"residence,omitempty"`
	OtherInsurance          *string `json:"other_insurance,omitempty"`
	RelationshipToPrincipal *string `json:"relationship_to_principal,omitempty"`

	// Part III: Patient Visit Details
	WasReferred        *bool      `json:"was_referred,omitempty"`
	ReferralProvider   *string    `json:"referral_provider,omitempty"`
	VisitType          *string    `json:"visit_type,omitempty"`
	VisitAdmissionDate *time.Time `json:"visit_admission_date,omitempty"`
	OpIpNumber         *string    `json:"op_ip_number,omitempty"`
	NewOrReturnVisit   *string    `json:"new_or_return_visit,omitempty"`
	DischargeDate      *time.Time `json:"discharge_date,omitempty"`
	RenderingPhysician *string    `json:"rendering_physician,omitempty"`
	AccommodationType  *string    `json:"accommodation_type,omitempty"`
	PatientDisposition *string    `json:"patient_disposition,omitempty"`

	// Field 10: referral on discharge
	DischargeReferralInstitution *string `json:"discharge_referral_institution,omitempty"`
	DischargeReferralReason      *string `json:"discharge_referral_reason,omitempty"`

	// Fields 11 & 12: diagnoses and procedures
	AdmissionDiagnosis *string    `json:"admission_diagnosis,omitempty"`
	DischargeDiagnosis *string    `json:"discharge_diagnosis,omitempty"`
	ICD11Code          *string    `json:"icd11_code,omitempty"`
	RelatedProcedure   *string    `json:"related_procedure,omitempty"`
	ProcedureDate      *time.Time `json:"procedure_date,omitempty"`

	// Part IV: SHA Health Benefits table (Field 14)
	BenefitLines     []BenefitLine `json:"benefit_lines,omitempty"`
	TotalBillAmount  *float64      `json:"total_bill_amount,omitempty"`
	TotalClaimAmount *float64      `json:"total_claim_amount,omitempty"`

	// Signatures / declarations
	PatientAuthorisedName *string    `json:"patient_authorised_name,omitempty"`
	DeclarationDate       *time.Time `json:"declaration_date,omitempty"`

	// Extraction metadata
	SourceRef        string    `json:"source_ref,omitempty"`
	ExtractionErrors []string  `json:"extraction_errors,omitempty"`
	ExtractedAt      time.Time `json:"extracted_at"`
}

// PatientFullName joins the present name parts in first-middle-last order,
// or returns "" when no part was extracted.
func (c *ExtractedClaim) PatientFullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []*string{c.PatientFirstName, c.PatientMiddleName, c.PatientLastName} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// AddError records a soft extraction failure without aborting the run.
func (c *ExtractedClaim) AddError(msg string) {
	c.ExtractionErrors = append(c.ExtractionErrors, msg)
}
