package extractor

import (
	"strings"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// applyPatterns runs the whole pattern library over raw form text. The first
// match per field wins; fields that already hold a value are not overwritten.
func applyPatterns(text string, claim *domain.ExtractedClaim) {
	for _, fp := range PatternLibrary {
		m := fp.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := strings.TrimSpace(m[1])
		if raw == "" {
			continue
		}
		if fp.Kind == kindDate {
			setDateField(claim, fp.Field, raw)
		} else {
			setTextField(claim, fp.Field, raw)
		}
	}
}

func setDateField(claim *domain.ExtractedClaim, field, raw string) {
	t := parseDate(raw)
	if t == nil {
		return
	}
	switch field {
	case "visit_admission_date":
		if claim.VisitAdmissionDate == nil {
			claim.VisitAdmissionDate = t
		}
	case "discharge_date":
		if claim.DischargeDate == nil {
			claim.DischargeDate = t
		}
	case "procedure_date":
		if claim.ProcedureDate == nil {
			claim.ProcedureDate = t
		}
	case "declaration_date":
		if claim.DeclarationDate == nil {
			claim.DeclarationDate = t
		}
	}
}

func setTextField(claim *domain.ExtractedClaim, field, raw string) {
	dst := textFieldSlot(claim, field)
	if dst != nil && *dst == nil {
		*dst = strPtr(raw)
	}
}

// textFieldSlot maps a logical field name to its slot on the claim, so the
// pattern library and the key-value mapper share one assignment path.
func textFieldSlot(claim *domain.ExtractedClaim, field string) **string {
	switch field {
	case "claim_number":
		return &claim.ClaimNumber
	case "provider_id":
		return &claim.ProviderID
	case "provider_name":
		return &claim.ProviderName
	case "patient_last_name":
		return &claim.PatientLastName
	case "patient_first_name":
		return &claim.PatientFirstName
	case "patient_middle_name":
		return &claim.PatientMiddleName
	case "sha_number":
		return &claim.SHANumber
	case "residence":
		return &claim.Residence
	case "other_insurance":
		return &claim.OtherInsurance
	case "relationship_to_principal":
		return &claim.RelationshipToPrincipal
	case "referral_provider":
		return &claim.ReferralProvider
	case "visit_type":
		return &claim.VisitType
	case "op_ip_number":
		return &claim.OpIpNumber
	case "new_or_return_visit":
		return &claim.NewOrReturnVisit
	case "rendering_physician":
		return &claim.RenderingPhysician
	case "accommodation_type":
		return &claim.AccommodationType
	case "patient_disposition":
		return &claim.PatientDisposition
	case "discharge_referral_institution":
		return &claim.DischargeReferralInstitution
	case "discharge_referral_reason":
		return &claim.DischargeReferralReason
	case "admission_diagnosis":
		return &claim.AdmissionDiagnosis
	case "discharge_diagnosis":
		return &claim.DischargeDiagnosis
	case "icd11_code":
		return &claim.ICD11Code
	case "related_procedure":
		return &claim.RelatedProcedure
	case "patient_authorised_name":
		return &claim.PatientAuthorisedName
	}
	return nil
}

// extractCheckboxes runs the three specialized recognizers over form text.
func extractCheckboxes(text string, claim *domain.ExtractedClaim) {
	// Visit type: ticked glyph beats the plain-text fallback
	if m := tickedVisitType.FindStringSubmatch(text); m != nil {
		claim.VisitType = strPtr(titleCase(m[1]))
	} else if m := fallbackVisitType.FindStringSubmatch(text); m != nil {
		claim.VisitType = strPtr(titleCase(m[1]))
	}

	// Referral answered NO / YES
	if tickedReferralNo.MatchString(text) {
		v := false
		claim.WasReferred = &v
	} else if tickedReferralYes.MatchString(text) {
		v := true
		claim.WasReferred = &v
	}

	// Disposition: first ticked box in form order wins
	for _, dp := range dispositionPatterns {
		if dp.Pattern.MatchString(text) {
			claim.PatientDisposition = strPtr(dp.Label)
			break
		}
	}
}

// mapKVPair maps one label/value cell pair onto the claim using fuzzy
// substring matching against the fixed keyword set per field. Existing values
// are never overwritten.
func mapKVPair(label, value string, claim *domain.ExtractedClaim) {
	label = strings.TrimSpace(label)
	value = strings.TrimSpace(value)
	if label == "" || value == "" {
		return
	}
	switch strings.ToLower(value) {
	case "nan", "none":
		return
	}

	ll := strings.ToLower(label)
	has := func(kw ...string) bool {
		for _, k := range kw {
			if !strings.Contains(ll, k) {
				return false
			}
		}
		return true
	}

	switch {
	// Provider fields
	case has("provider", "id"):
		setTextField(claim, "provider_id", value)
	case has("provider", "name") || has("provider", "facility"):
		setTextField(claim, "provider_name", value)

	// Patient name fields
	case has("last", "name"):
		setTextField(claim, "patient_last_name", value)
	case has("first", "name"):
		setTextField(claim, "patient_first_name", value)
	case has("middle", "name"):
		setTextField(claim, "patient_middle_name", value)
	case has("patient", "name"):
		setTextField(claim, "patient_last_name", value)

	// SHA / membership number
	case has("sha", "number") || has("sha", "no"):
		setTextField(claim, "sha_number", value)

	// Diagnoses before dates: "admission diagnosis" also contains "admission"
	case has("admission", "diagnosis"):
		setTextField(claim, "admission_diagnosis", value)
	case has("discharge", "diagnosis"):
		setTextField(claim, "discharge_diagnosis", value)

	// Dates
	case has("admission") || has("visit", "date"):
		setDateField(claim, "visit_admission_date", value)
	case has("discharge", "date"):
		setDateField(claim, "discharge_date", value)
	case has("procedure", "date"):
		setDateField(claim, "procedure_date", value)

	case has("icd"):
		setTextField(claim, "icd11_code", value)

	case has("visit", "type"):
		setTextField(claim, "visit_type", value)
	case has("accommodation"):
		setTextField(claim, "accommodation_type", value)
	case has("disposition"):
		setTextField(claim, "patient_disposition", value)
	case has("physician") || has("rendering", "doctor"):
		setTextField(claim, "rendering_physician", value)

	// A single preauth number on non-table forms attaches to the first line
	case has("preauth") || has("pre-auth"):
		if len(claim.BenefitLines) > 0 && claim.BenefitLines[0].PreauthNo == "" {
			claim.BenefitLines[0].PreauthNo = value
		}

	// Referral
	case has("referral", "institution"):
		setTextField(claim, "discharge_referral_institution", value)
	case has("referral", "reason"):
		setTextField(claim, "discharge_referral_reason", value)
	case has("referring"):
		setTextField(claim, "referral_provider", value)

	// Claim / OP-IP numbers
	case has("claim", "no"):
		setTextField(claim, "claim_number", value)
	case has("op", "ip"):
		setTextField(claim, "op_ip_number", value)

	case has("residence"):
		setTextField(claim, "residence", value)
	case has("insurance", "other") || has("insurance", "another"):
		setTextField(claim, "other_insurance", value)
	case has("relationship", "principal"):
		setTextField(claim, "relationship_to_principal", value)
	}
}
