package detect

// Vocabulary holds the immutable keyword and code tables the detectors match
// against. It is injected so individual rules can be unit-tested with
// substitute tables without touching any parsing code.
type Vocabulary struct {
	// MaternityICD11Prefixes are ICD-11 chapter prefixes for maternity and
	// obstetrics diagnoses (JA00-JA9Z).
	MaternityICD11Prefixes []string

	// PaediatricICD11Prefixes are ICD-11 prefixes implausible on adults.
	PaediatricICD11Prefixes []string

	// DeliveryProcedureCodes are procedure codes for obstetric delivery.
	DeliveryProcedureCodes map[string]struct{}

	// InpatientOnlyProcedures are procedure keywords only valid for
	// inpatient or day-care admissions.
	InpatientOnlyProcedures []string

	// SimpleDiagnoses are diagnosis keywords that should not attract
	// complex procedures.
	SimpleDiagnoses []string

	// ComplexProcedures are keywords for expensive procedures.
	ComplexProcedures []string

	// HighValueAccommodation are ICU-tier accommodation types that carry
	// elevated fraud risk.
	HighValueAccommodation map[string]struct{}
}

// DefaultVocabulary returns the production rule tables.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		MaternityICD11Prefixes:  []string{"JA"},
		PaediatricICD11Prefixes: []string{"LA"},
		DeliveryProcedureCodes: map[string]struct{}{
			"59400": {}, "59409": {}, "59410": {},
			"59510": {}, "59514": {}, "59515": {},
			"59610": {}, "59612": {}, "59614": {},
		},
		InpatientOnlyProcedures: []string{
			"surgery",
			"general anaesthesia",
			"mechanical ventilation",
			"intensive care",
			"icu",
			"hdu",
			"dialysis",
			"blood transfusion",
		},
		SimpleDiagnoses: []string{
			"headache",
			"malaria",
			"influenza",
			"flu",
			"cough",
			"fever",
			"common cold",
			"upper respiratory",
			"minor laceration",
			"sprain",
			"mild gastroenteritis",
		},
		ComplexProcedures: []string{
			"surgery",
			"mri",
			"ct scan",
			"computed tomography",
			"intensive care",
			"cardiac catheterisation",
			"endoscopy",
			"dialysis",
			"chemotherapy",
			"radiotherapy",
			"organ transplant",
		},
		HighValueAccommodation: map[string]struct{}{
			"icu": {}, "hdu": {}, "nicu": {}, "burns": {},
		},
	}
}

// IsHighValueAccommodation reports whether the accommodation type (any case)
// is ICU-tier.
func (v *Vocabulary) IsHighValueAccommodation(accom string) bool {
	_, ok := v.HighValueAccommodation[lower(accom)]
	return ok
}
