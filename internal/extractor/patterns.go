package extractor

import "regexp"

// fieldKind controls how a matched value is converted before assignment.
type fieldKind int

const (
	kindText fieldKind = iota
	kindDate
)

// FieldPattern is one entry in the recognition library: a logical field name
// and the regex that captures its value from layout-free form text.
type FieldPattern struct {
	Field   string
	Kind    fieldKind
	Pattern *regexp.Regexp
}

const datePart = `([0-9]{1,2}[/\-.][0-9]{1,2}[/\-.][0-9]{2,4})`

// PatternLibrary holds the recognition rules aligned to the SHA claim form's
// printed labels. Matching is ordered and first-match-wins per field.
var PatternLibrary = []FieldPattern{
	// Header
	{"claim_number", kindText, regexp.MustCompile(`(?im)CLAIM\s*NO[:\s]+([A-Z0-9\-/]+)`)},
	// Part I: provider
	{"provider_id", kindText, regexp.MustCompile(`(?im)Health\s*Provider\s*Identification\s*Number[:\s]+([A-Z0-9\-]+)`)},
	{"provider_name", kindText, regexp.MustCompile(`(?im)Name\s*of\s*Health\s*Care\s*Provider[/\s]*Facility[:\s]+([^\n]+)`)},
	// Part II: patient name, split over three lines on the form
	{"patient_last_name", kindText, regexp.MustCompile(`(?im)Last\s*Name[:\s]+([^\n]+)`)},
	{"patient_first_name", kindText, regexp.MustCompile(`(?im)First\s*Name[:\s]+([^\n]+)`)},
	{"patient_middle_name", kindText, regexp.MustCompile(`(?im)Middle\s*Name[:\s]+([^\n]+)`)},
	// Part II: other patient details
	{"sha_number", kindText, regexp.MustCompile(`(?im)Social\s*Health\s*Authority\s*Number[:\s]+([A-Z0-9\-]+)`)},
	{"residence", kindText, regexp.MustCompile(`(?im)Residence[:\s]+([^\n]+)`)},
	{"other_insurance", kindText, regexp.MustCompile(`(?im)Do\s*you\s*have\s*another\s*Health\s*Insurance[^:]*:[:\s]*([^\n]+)`)},
	{"relationship_to_principal", kindText, regexp.MustCompile(`(?im)Relationship\s*to\s*the\s*Principal[:\s]+([^\n]+)`)},
	// Part III: referral
	{"referral_provider", kindText, regexp.MustCompile(`(?im)Name\s*of\s*referring\s*Health\s*Care\s*Provider[/\s]*Facility[:\s]+([^\n]+)`)},
	// Part III: visit info
	{"visit_admission_date", kindDate, regexp.MustCompile(`(?im)Visit[/\s]*Admission\s*Date[:\s]+` + datePart)},
	{"op_ip_number", kindText, regexp.MustCompile(`(?im)OP[/\s]*IP\s*No\.?[:\s]+([A-Z0-9\-/]+)`)},
	{"new_or_return_visit", kindText, regexp.MustCompile(`(?im)New[/\s]*Return\s*Visit[:\s]+(\w+)`)},
	{"discharge_date", kindDate, regexp.MustCompile(`(?im)Discharge\s*Date[:\s]+` + datePart)},
	{"rendering_physician", kindText, regexp.MustCompile(`(?im)Rendering\s*Physician\s*Name\s*and\s*Registration\s*No[:\s]+([^\n]+)`)},
	{"accommodation_type", kindText, regexp.MustCompile(`(?im)Type\s*of\s*Accommodation[:\s]+([^\n]+)`)},
	// Field 10: discharge referral
	{"discharge_referral_institution", kindText, regexp.MustCompile(`(?im)Name\s*of\s*Referral\s*Institution[:\s]+([^\n]+)`)},
	{"discharge_referral_reason", kindText, regexp.MustCompile(`(?im)Reason[/\s]*s?\s*for\s*referral[:\s]+([^\n]+)`)},
	// Fields 11 & 12: diagnoses
	{"admission_diagnosis", kindText, regexp.MustCompile(`(?im)Admission\s*Diagnos[ei]s[/\s]*(?:es)?[:\s]+([^\n]+)`)},
	{"discharge_diagnosis", kindText, regexp.MustCompile(`(?im)Discharge\s*Diagnos[ei]s[/\s]*(?:es)?[:\s]+([^\n]+)`)},
	{"icd11_code", kindText, regexp.MustCompile(`(?im)ICD[- ]?11\s*Codes?[/\s]*[:\s]+([A-Z][A-Z0-9.\-]+)`)},
	{"related_procedure", kindText, regexp.MustCompile(`(?im)Related\s*Procedures?\s*(?:\(if\s*any\))?[:\s]+([^\n]+)`)},
	{"procedure_date", kindDate, regexp.MustCompile(`(?im)Date\s*of\s*Procedure[:\s]+` + datePart)},
	// Declaration
	{"patient_authorised_name", kindText, regexp.MustCompile(`(?im)Names?\s*\(Majina\)[:\s]+([^\n]+)`)},
	{"declaration_date", kindDate, regexp.MustCompile(`(?im)Date\s*\(Tarehe\)[:\s]+` + datePart)},
}

// BenefitColumnVariants maps benefit-table fields to the lowercase header
// spellings seen across provider exports.
var BenefitColumnVariants = map[string][]string{
	"admission_date":       {"date of admission", "admission date", "admission"},
	"discharge_date":       {"date of discharge", "discharge date", "discharge"},
	"case_code":            {"case code", "case"},
	"icd11_procedure_code": {"icd 11", "icd11", "procedure code", "icd 11/procedure"},
	"description":          {"description", "desc"},
	"preauth_no":           {"preauth no", "preauth", "pre-auth", "pre auth", "preauthorisation"},
	"bill_amount":          {"bill amount", "bill"},
	"claim_amount":         {"claim amount", "claim"},
}

// Checkbox recognizers. A ticked box may appear as a glyph or [X]; the glyph
// form takes precedence over the plain-text fallback.
var (
	tickedVisitType   = regexp.MustCompile(`(?i)(?:☑|✓|✔|\[X\])\s*(Inpatient|Outpatient|Day[\s\-]care)`)
	fallbackVisitType = regexp.MustCompile(`(?i)Visit\s*type[:\s]+(Inpatient|Outpatient|Day[\s\-]care)`)
	tickedReferralNo  = regexp.MustCompile(`(?i)(?:☑|✓|✔|\[X\])\s*NO`)
	tickedReferralYes = regexp.MustCompile(`(?i)(?:☑|✓|✔|\[X\])\s*(?:If[,\s]*)?\s*YES`)
)

// dispositionPatterns are checked in form order; the first ticked box wins.
var dispositionPatterns = []struct {
	Label   string
	Pattern *regexp.Regexp
}{
	{"Improved", regexp.MustCompile(`(?i)(?:☑|✓|✔|\[X\])\s*Improved`)},
	{"Recovered", regexp.MustCompile(`(?i)(?:☑|✓|✔|\[X\])\s*Recovered`)},
	{"Leave Against Medical Advice", regexp.MustCompile(`(?i)(?:☑|✓|✔|\[X\])\s*Leave\s*Against`)},
	{"Absconded", regexp.MustCompile(`(?i)(?:☑|✓|✔|\[X\])\s*Absconded`)},
	{"Died", regexp.MustCompile(`(?i)(?:☑|✓|✔|\[X\])\s*Died`)},
}
