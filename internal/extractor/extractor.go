package extractor

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// Extractor converts uploaded SHA claim documents into structured
// ExtractedClaim values. All extraction is aligned to the Social Health
// Insurance Act 2023 claim form layout.
//
// Extraction is a pure transformation: individual field failures accumulate
// in ExtractionErrors, and only unsupported formats or unreadable container
// bytes abort the run.
type Extractor struct {
	log *logrus.Logger
}

// New creates a document extractor.
func New(logger *logrus.Logger) *Extractor {
	return &Extractor{log: logger}
}

// Extract parses one uploaded document into an ExtractedClaim.
func (e *Extractor) Extract(data []byte, format domain.Format) (*domain.ExtractedClaim, error) {
	claim := &domain.ExtractedClaim{ExtractedAt: time.Now().UTC()}

	var err error
	switch format {
	case domain.FormatPDF:
		err = e.extractPDF(data, claim)
	case domain.FormatXLSX:
		err = e.extractXLSX(data, claim)
	case domain.FormatCSV:
		err = e.extractCSV(data, claim)
	case domain.FormatDOCX:
		err = e.extractDOCX(data, claim)
	default:
		return nil, domain.ErrUnsupportedFormat
	}
	if err != nil {
		return nil, &domain.ExtractionError{Format: format, Err: err}
	}

	computeBenefitTotals(claim)

	e.log.WithFields(logrus.Fields{
		"format":            format,
		"benefit_lines":     len(claim.BenefitLines),
		"extraction_errors": len(claim.ExtractionErrors),
	}).Debug("Document extraction completed")

	return claim, nil
}

// extractFormText runs the shared layout-free text pipeline: the pattern
// library pass followed by the three checkbox recognizers.
func extractFormText(text string, claim *domain.ExtractedClaim) {
	applyPatterns(text, claim)
	extractCheckboxes(text, claim)
}
