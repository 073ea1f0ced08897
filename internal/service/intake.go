// Package service glues document extraction, business-rule validation, and
// persistence into the claim intake pipeline. Extraction and validation are
// pure; only Register touches the database.
package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
	"github.com/sha-claims-fraud-engine/internal/extractor"
	"github.com/sha-claims-fraud-engine/internal/validator"
)

// ProviderRegistrar maintains the provider directory as claims arrive.
type ProviderRegistrar interface {
	Upsert(ctx context.Context, provider *domain.Provider) error
	IncrementClaimCount(ctx context.Context, providerID string) error
}

// Intake runs uploaded claim documents through extraction, validation, and
// persistence.
type Intake struct {
	extractor *extractor.Extractor
	validator *validator.Validator
	claims    domain.ClaimStore
	providers ProviderRegistrar
	log       *logrus.Logger
}

// NewIntake creates the intake pipeline. providers may be nil when the caller
// does not maintain a provider directory.
func NewIntake(ext *extractor.Extractor, val *validator.Validator, claims domain.ClaimStore, providers ProviderRegistrar, logger *logrus.Logger) *Intake {
	return &Intake{
		extractor: ext,
		validator: val,
		claims:    claims,
		providers: providers,
		log:       logger,
	}
}

// ExtractAndValidate parses a claim document and checks it against the SHA
// form rules. The extracted claim is returned even when invalid so callers
// can surface every collected error alongside the partial data.
func (in *Intake) ExtractAndValidate(data []byte, format domain.Format) (*domain.ExtractedClaim, bool, []string) {
	claim, err := in.extractor.Extract(data, format)
	if err != nil {
		in.log.WithFields(logrus.Fields{
			"format": format,
			"error":  err.Error(),
		}).Error("Document extraction failed")
		return nil, false, []string{fmt.Sprintf("extraction failed: %v", err)}
	}

	valid, errs := in.validator.Validate(claim)
	in.log.WithFields(logrus.Fields{
		"format":      format,
		"valid":       valid,
		"error_count": len(errs),
	}).Info("Claim document processed")

	return claim, valid, errs
}

// Register persists an extracted claim, assigning its id and claim number,
// and records the submitting provider in the directory.
func (in *Intake) Register(ctx context.Context, extracted *domain.ExtractedClaim) (*domain.Claim, error) {
	if extracted == nil {
		return nil, fmt.Errorf("no extracted claim to register")
	}

	claim := ToClaim(extracted)
	claim.ID = uuid.New()
	claim.ClaimNumber = GenerateClaimNumber(claim.ProviderID)
	claim.Status = domain.StatusPending

	if err := in.claims.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("persisting claim: %w", err)
	}

	if in.providers != nil && claim.ProviderID != "" {
		provider := &domain.Provider{
			ID:         uuid.New(),
			ProviderID: claim.ProviderID,
			Name:       claim.ProviderName,
			IsActive:   true,
		}
		if err := in.providers.Upsert(ctx, provider); err != nil {
			in.log.WithFields(logrus.Fields{
				"provider_id": claim.ProviderID,
				"error":       err.Error(),
			}).Warn("Failed to upsert provider record")
		} else if err := in.providers.IncrementClaimCount(ctx, claim.ProviderID); err != nil {
			in.log.WithFields(logrus.Fields{
				"provider_id": claim.ProviderID,
				"error":       err.Error(),
			}).Warn("Failed to increment provider claim count")
		}
	}

	in.log.WithFields(logrus.Fields{
		"claim_id":     claim.ID,
		"claim_number": claim.ClaimNumber,
		"provider_id":  claim.ProviderID,
	}).Info("Claim registered")

	return claim, nil
}

// ToClaim maps a transient extraction result onto the persisted claim model.
// Pointer fields that were never found collapse to their zero values except
// where the data model keeps the pointer to preserve absence.
func ToClaim(e *domain.ExtractedClaim) *domain.Claim {
	return &domain.Claim{
		ProviderID:         deref(e.ProviderID),
		ProviderName:       deref(e.ProviderName),
		PatientSHANumber:   deref(e.SHANumber),
		PatientLastName:    deref(e.PatientLastName),
		PatientFirstName:   deref(e.PatientFirstName),
		PatientMiddleName:  deref(e.PatientMiddleName),
		VisitType:          strings.ToLower(deref(e.VisitType)),
		VisitAdmissionDate: e.VisitAdmissionDate,
		DischargeDate:      e.DischargeDate,
		NewOrReturnVisit:   strings.ToLower(deref(e.NewOrReturnVisit)),
		WasReferred:        e.WasReferred,
		ReferralProvider:   deref(e.ReferralProvider),
		AccommodationType:  deref(e.AccommodationType),
		PatientDisposition: deref(e.PatientDisposition),
		AdmissionDiagnosis: deref(e.AdmissionDiagnosis),
		DischargeDiagnosis: deref(e.DischargeDiagnosis),
		ICD11Code:          deref(e.ICD11Code),
		RelatedProcedure:   deref(e.RelatedProcedure),
		BenefitLines:       e.BenefitLines,
		TotalBillAmount:    e.TotalBillAmount,
		TotalClaimAmount:   e.TotalClaimAmount,
	}
}

// GenerateClaimNumber builds a claim reference of the form
// CLM-<PROVIDER>-<YYYYMMDDHHMMSS>-<6 hex chars>.
func GenerateClaimNumber(providerCode string) string {
	if providerCode == "" {
		providerCode = "UNKNOWN"
	}
	timestamp := time.Now().UTC().Format("20060102150405")
	sum := md5.Sum([]byte(providerCode + timestamp))
	suffix := strings.ToUpper(hex.EncodeToString(sum[:]))[:6]
	return fmt.Sprintf("CLM-%s-%s-%s", strings.ToUpper(providerCode), timestamp, suffix)
}

// DetectFormat resolves a format hint from an uploaded file name.
func DetectFormat(filename string) (domain.Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return domain.FormatPDF, nil
	case ".xlsx", ".xls":
		return domain.FormatXLSX, nil
	case ".csv":
		return domain.FormatCSV, nil
	case ".docx":
		return domain.FormatDOCX, nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filename)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
