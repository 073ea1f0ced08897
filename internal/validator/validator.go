// Package validator applies the SHA claim-form business rules to extracted
// claims. All checks run independently so a caller can fix every defect in
// one pass; a claim is valid exactly when zero errors were collected.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

var (
	icd11Pattern     = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,5}(?:\.[A-Z0-9]{1,4})*$`)
	shaNumberPattern = regexp.MustCompile(`^(?i)[A-Z0-9\-]{5,20}$`)
)

var validVisitTypes = map[string]struct{}{
	"inpatient": {}, "outpatient": {}, "day-care": {}, "day care": {},
}

var validDispositions = map[string]struct{}{
	"improved":                          {},
	"recovered":                         {},
	"lama":                              {},
	"leave against medical advice":      {},
	"discharged against medical advice": {},
	"absconded":                         {},
	"died":                              {},
}

var validAccommodationTypes = map[string]struct{}{
	"female medical": {}, "male medical": {},
	"female surgical": {}, "male surgical": {},
	"gynaecology": {}, "maternity": {}, "nbu": {},
	"psychiatric unit": {}, "burns": {},
	"icu": {}, "hdu": {}, "nicu": {}, "isolation": {},
}

// maxStayDays flags excessively long admissions for manual review.
const maxStayDays = 180

// Validator checks extracted claims against the SHA form rules.
type Validator struct{}

// New creates a claim validator.
func New() *Validator {
	return &Validator{}
}

// Validate runs every business rule over the claim. It never short-circuits:
// all triggered conditions are reported together.
func (v *Validator) Validate(claim *domain.ExtractedClaim) (bool, []string) {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	// Required fields
	required := []struct {
		present bool
		desc    string
	}{
		{claim.ProviderID != nil && *claim.ProviderID != "", "Provider Identification Number (Part I, Field 1)"},
		{claim.ProviderName != nil && *claim.ProviderName != "", "Name of Health Care Provider (Part I, Field 2)"},
		{claim.SHANumber != nil && *claim.SHANumber != "", "Social Health Authority Number (Part II, Field 3)"},
		{claim.VisitAdmissionDate != nil, "Visit/Admission Date (Part III)"},
		{claim.VisitType != nil && *claim.VisitType != "", "Visit Type - Inpatient/Outpatient/Day-care (Part III)"},
	}
	for _, r := range required {
		if !r.present {
			add("Missing required field: %s", r.desc)
		}
	}

	// Enum membership
	if claim.VisitType != nil && *claim.VisitType != "" {
		if _, ok := validVisitTypes[strings.ToLower(*claim.VisitType)]; !ok {
			add("Invalid visit_type '%s'. Must be one of: inpatient, outpatient, day-care", *claim.VisitType)
		}
	}
	if claim.AccommodationType != nil && *claim.AccommodationType != "" {
		if _, ok := validAccommodationTypes[strings.ToLower(*claim.AccommodationType)]; !ok {
			add("Unrecognised accommodation_type '%s'", *claim.AccommodationType)
		}
	}
	if claim.PatientDisposition != nil && *claim.PatientDisposition != "" {
		if _, ok := validDispositions[strings.ToLower(*claim.PatientDisposition)]; !ok {
			add("Unrecognised patient_disposition '%s'", *claim.PatientDisposition)
		}
	}

	// Date logic: both conditions are fraud signals, not just data errors
	if claim.VisitAdmissionDate != nil && claim.DischargeDate != nil {
		if claim.DischargeDate.Before(*claim.VisitAdmissionDate) {
			add("discharge_date cannot be before visit_admission_date (potential fraud signal)")
		}
		stayDays := int(claim.DischargeDate.Sub(*claim.VisitAdmissionDate).Hours() / 24)
		if stayDays > maxStayDays {
			add("Length of stay is %d days - flagged for manual review", stayDays)
		}
	}
	if claim.ProcedureDate != nil && claim.VisitAdmissionDate != nil &&
		claim.ProcedureDate.Before(*claim.VisitAdmissionDate) {
		add("procedure_date is before admission date (potential fraud signal)")
	}

	// Code formats
	if claim.ICD11Code != nil && *claim.ICD11Code != "" && !icd11Pattern.MatchString(*claim.ICD11Code) {
		add("icd11_code '%s' does not match expected ICD-11 format", *claim.ICD11Code)
	}
	if claim.SHANumber != nil && *claim.SHANumber != "" && !shaNumberPattern.MatchString(*claim.SHANumber) {
		add("sha_number '%s' does not match expected format", *claim.SHANumber)
	}

	// Benefit lines: each defect is its own error, never an early exit
	if len(claim.BenefitLines) == 0 {
		add("No benefit lines found in Section 14 (SHA Health Benefits table)")
	} else {
		for i, line := range claim.BenefitLines {
			n := i + 1
			if line.BillAmount != nil && line.ClaimAmount != nil {
				if *line.ClaimAmount > *line.BillAmount {
					add("Benefit line %d: claim_amount (%.2f) exceeds bill_amount (%.2f) - fraud signal",
						n, *line.ClaimAmount, *line.BillAmount)
				}
				if *line.ClaimAmount <= 0 {
					add("Benefit line %d: claim_amount must be > 0", n)
				}
			}
			if line.PreauthNo == "" {
				add("Benefit line %d: missing preauth_no - required for claim processing", n)
			}
		}
	}

	// Aggregate totals
	if claim.TotalClaimAmount != nil && claim.TotalBillAmount != nil &&
		*claim.TotalClaimAmount > *claim.TotalBillAmount {
		add("Total claim amount (%.2f) exceeds total bill amount (%.2f) - potential overbilling",
			*claim.TotalClaimAmount, *claim.TotalBillAmount)
	}

	// Referral consistency
	if claim.WasReferred != nil && *claim.WasReferred &&
		(claim.ReferralProvider == nil || *claim.ReferralProvider == "") {
		add("Patient marked as referred but no referring provider recorded (Field 7)")
	}

	return len(errs) == 0, errs
}
