package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

const claimColumns = `
	id, claim_number, provider_id, provider_name,
	patient_sha_number, patient_last_name, patient_first_name, patient_middle_name,
	visit_type, visit_admission_date, discharge_date, new_or_return_visit,
	was_referred, referral_provider, accommodation_type, patient_disposition,
	admission_diagnosis, discharge_diagnosis, icd11_code, related_procedure,
	benefit_lines, total_bill_amount, total_claim_amount,
	risk_score, is_flagged, fraud_flags, status, analysis_completed_at,
	created_at, updated_at`

// ClaimRepository handles claim persistence and the historical queries the
// detection modules run.
type ClaimRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *pgxpool.Pool, logger *logrus.Logger) *ClaimRepository {
	return &ClaimRepository{db: db, log: logger}
}

// Create inserts a new claim into the database
func (r *ClaimRepository) Create(ctx context.Context, claim *domain.Claim) error {
	benefitLines, err := json.Marshal(claim.BenefitLines)
	if err != nil {
		return fmt.Errorf("marshaling benefit lines: %w", err)
	}

	query := `
		INSERT INTO claims (
			id, claim_number, provider_id, provider_name,
			patient_sha_number, patient_last_name, patient_first_name, patient_middle_name,
			visit_type, visit_admission_date, discharge_date, new_or_return_visit,
			was_referred, referral_provider, accommodation_type, patient_disposition,
			admission_diagnosis, discharge_diagnosis, icd11_code, related_procedure,
			benefit_lines, total_bill_amount, total_claim_amount, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)`

	_, err = r.db.Exec(ctx, query,
		claim.ID,
		claim.ClaimNumber,
		claim.ProviderID,
		claim.ProviderName,
		claim.PatientSHANumber,
		claim.PatientLastName,
		claim.PatientFirstName,
		claim.PatientMiddleName,
		claim.VisitType,
		claim.VisitAdmissionDate,
		claim.DischargeDate,
		claim.NewOrReturnVisit,
		claim.WasReferred,
		claim.ReferralProvider,
		claim.AccommodationType,
		claim.PatientDisposition,
		claim.AdmissionDiagnosis,
		claim.DischargeDiagnosis,
		claim.ICD11Code,
		claim.RelatedProcedure,
		benefitLines,
		claim.TotalBillAmount,
		claim.TotalClaimAmount,
		domain.StatusPending,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"claim_id":     claim.ID,
			"claim_number": claim.ClaimNumber,
			"error":        err,
		}).Error("Failed to create claim")
		return fmt.Errorf("creating claim: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"claim_id":     claim.ID,
		"claim_number": claim.ClaimNumber,
		"provider_id":  claim.ProviderID,
	}).Info("Claim created successfully")

	return nil
}

// GetByID retrieves a claim by its ID
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`

	claim, err := scanClaim(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("claim not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"claim_id": id,
			"error":    err,
		}).Error("Failed to get claim by ID")
		return nil, fmt.Errorf("getting claim by ID: %w", err)
	}

	return claim, nil
}

// FindExactDuplicates returns other claims for the same SHA member with the
// same admission date and claim total.
func (r *ClaimRepository) FindExactDuplicates(ctx context.Context, claim *domain.Claim) ([]*domain.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE patient_sha_number = $1
		  AND id != $2
		  AND visit_admission_date::date = $3::date
		  AND total_claim_amount = $4`

	return r.queryClaims(ctx, query,
		claim.PatientSHANumber, claim.ID, claim.VisitAdmissionDate, claim.TotalClaimAmount)
}

// FindRollingDuplicates returns other claims for the same SHA member,
// provider, and claim total admitted within the window around this claim's
// admission date.
func (r *ClaimRepository) FindRollingDuplicates(ctx context.Context, claim *domain.Claim, window time.Duration) ([]*domain.Claim, error) {
	from := claim.VisitAdmissionDate.Add(-window)
	to := claim.VisitAdmissionDate.Add(window)

	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE patient_sha_number = $1
		  AND provider_id = $2
		  AND id != $3
		  AND total_claim_amount = $4
		  AND visit_admission_date BETWEEN $5 AND $6`

	return r.queryClaims(ctx, query,
		claim.PatientSHANumber, claim.ProviderID, claim.ID, claim.TotalClaimAmount, from, to)
}

// FindSameDayClaims returns other claims for the same member admitted on the
// same calendar date at a different provider.
func (r *ClaimRepository) FindSameDayClaims(ctx context.Context, claim *domain.Claim) ([]*domain.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE patient_sha_number = $1
		  AND id != $2
		  AND provider_id != $3
		  AND visit_admission_date::date = $4::date`

	return r.queryClaims(ctx, query,
		claim.PatientSHANumber, claim.ID, claim.ProviderID, claim.VisitAdmissionDate)
}

// FindOverlappingInpatientStays returns other inpatient claims for the same
// member whose admission interval intersects this claim's interval.
func (r *ClaimRepository) FindOverlappingInpatientStays(ctx context.Context, claim *domain.Claim) ([]*domain.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE patient_sha_number = $1
		  AND id != $2
		  AND LOWER(visit_type) = 'inpatient'
		  AND visit_admission_date IS NOT NULL
		  AND discharge_date IS NOT NULL
		  AND visit_admission_date < $4
		  AND discharge_date > $3`

	return r.queryClaims(ctx, query,
		claim.PatientSHANumber, claim.ID, claim.VisitAdmissionDate, claim.DischargeDate)
}

// FindClaimsByPreauth returns other claims whose benefit lines carry the given
// preauthorisation number.
func (r *ClaimRepository) FindClaimsByPreauth(ctx context.Context, claimID string, preauthNo string) ([]*domain.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE id != $1
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(benefit_lines) AS line
			WHERE line->>'preauth_no' = $2
		  )`

	return r.queryClaims(ctx, query, claimID, preauthNo)
}

// CountMemberClaimsSince counts claims for the member admitted on or after
// the cutoff, excluding the given claim.
func (r *ClaimRepository) CountMemberClaimsSince(ctx context.Context, shaNumber string, excludeClaimID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM claims
		WHERE patient_sha_number = $1
		  AND id != $2
		  AND visit_admission_date >= $3`

	var count int
	if err := r.db.QueryRow(ctx, query, shaNumber, excludeClaimID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting member claims: %w", err)
	}
	return count, nil
}

// AverageProviderClaimAmountSince returns the provider's average claim total
// over claims admitted on or after the cutoff, excluding the given claim.
func (r *ClaimRepository) AverageProviderClaimAmountSince(ctx context.Context, providerID string, excludeClaimID string, since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(AVG(total_claim_amount), 0) FROM claims
		WHERE provider_id = $1
		  AND id != $2
		  AND visit_admission_date >= $3`

	var avg float64
	if err := r.db.QueryRow(ctx, query, providerID, excludeClaimID, since).Scan(&avg); err != nil {
		return 0, fmt.Errorf("averaging provider claims: %w", err)
	}
	return avg, nil
}

// CountProviderAccommodationSince counts the provider's claims with the given
// accommodation type admitted on or after the cutoff.
func (r *ClaimRepository) CountProviderAccommodationSince(ctx context.Context, providerID string, accommodation string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM claims
		WHERE provider_id = $1
		  AND LOWER(accommodation_type) = LOWER($2)
		  AND visit_admission_date >= $3`

	var count int
	if err := r.db.QueryRow(ctx, query, providerID, accommodation, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting provider accommodation claims: %w", err)
	}
	return count, nil
}

// CommitAnalysis atomically writes the claim's risk fields and upserts the
// fraud alert. It is the single commit point per claim: on error the claim's
// prior state is unchanged.
func (r *ClaimRepository) CommitAnalysis(ctx context.Context, claimID string, analysis *domain.CompositeAnalysis, alert *domain.FraudAlert) error {
	flags, err := json.Marshal(analysis.AllFlags())
	if err != nil {
		return fmt.Errorf("marshaling fraud flags: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning analysis transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateClaim := `
		UPDATE claims SET
			risk_score = $2,
			is_flagged = $3,
			fraud_flags = $4,
			status = $5,
			analysis_completed_at = $6,
			updated_at = now()
		WHERE id = $1`

	tag, err := tx.Exec(ctx, updateClaim,
		claimID,
		analysis.CompositeRiskScore,
		analysis.CompositeRiskScore >= 60,
		flags,
		analysis.FinalStatus,
		analysis.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("updating claim risk fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("claim %s: %w", claimID, domain.ErrNotFound)
	}

	if alert != nil {
		evidence, err := json.Marshal(alert.Evidence)
		if err != nil {
			return fmt.Errorf("marshaling alert evidence: %w", err)
		}

		upsertAlert := `
			INSERT INTO fraud_alerts (
				id, claim_id, alert_type, severity, description,
				evidence, detection_module, module_confidence, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (claim_id) DO UPDATE SET
				severity = EXCLUDED.severity,
				description = EXCLUDED.description,
				evidence = EXCLUDED.evidence,
				module_confidence = EXCLUDED.module_confidence,
				status = 'open',
				updated_at = now()`

		_, err = tx.Exec(ctx, upsertAlert,
			alert.ID,
			alert.ClaimID,
			alert.AlertType,
			alert.Severity,
			alert.Description,
			evidence,
			alert.DetectionModule,
			alert.ModuleConfidence,
			alert.Status,
		)
		if err != nil {
			return fmt.Errorf("upserting fraud alert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing analysis transaction: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"claim_id":   claimID,
		"risk_score": analysis.CompositeRiskScore,
		"status":     analysis.FinalStatus,
		"alerted":    alert != nil,
	}).Info("Analysis committed")

	return nil
}

// ListAlerts returns fraud alerts, optionally filtered by status, newest
// first.
func (r *ClaimRepository) ListAlerts(ctx context.Context, status string, limit int) ([]*domain.FraudAlert, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, claim_id, alert_type, severity, description,
			   evidence, detection_module, module_confidence, status,
			   created_at, updated_at
		FROM fraud_alerts
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("listing fraud alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.FraudAlert
	for rows.Next() {
		var alert domain.FraudAlert
		var evidence []byte
		if err := rows.Scan(
			&alert.ID,
			&alert.ClaimID,
			&alert.AlertType,
			&alert.Severity,
			&alert.Description,
			&evidence,
			&alert.DetectionModule,
			&alert.ModuleConfidence,
			&alert.Status,
			&alert.CreatedAt,
			&alert.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning fraud alert: %w", err)
		}
		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &alert.Evidence); err != nil {
				return nil, fmt.Errorf("unmarshaling alert evidence: %w", err)
			}
		}
		alerts = append(alerts, &alert)
	}

	return alerts, rows.Err()
}

func (r *ClaimRepository) queryClaims(ctx context.Context, query string, args ...any) ([]*domain.Claim, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying claims: %w", err)
	}
	defer rows.Close()

	var claims []*domain.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		claims = append(claims, claim)
	}

	return claims, rows.Err()
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var claim domain.Claim
	var benefitLines, fraudFlags []byte

	err := row.Scan(
		&claim.ID,
		&claim.ClaimNumber,
		&claim.ProviderID,
		&claim.ProviderName,
		&claim.PatientSHANumber,
		&claim.PatientLastName,
		&claim.PatientFirstName,
		&claim.PatientMiddleName,
		&claim.VisitType,
		&claim.VisitAdmissionDate,
		&claim.DischargeDate,
		&claim.NewOrReturnVisit,
		&claim.WasReferred,
		&claim.ReferralProvider,
		&claim.AccommodationType,
		&claim.PatientDisposition,
		&claim.AdmissionDiagnosis,
		&claim.DischargeDiagnosis,
		&claim.ICD11Code,
		&claim.RelatedProcedure,
		&benefitLines,
		&claim.TotalBillAmount,
		&claim.TotalClaimAmount,
		&claim.RiskScore,
		&claim.IsFlagged,
		&fraudFlags,
		&claim.Status,
		&claim.AnalysisCompletedAt,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(benefitLines) > 0 {
		if err := json.Unmarshal(benefitLines, &claim.BenefitLines); err != nil {
			return nil, fmt.Errorf("unmarshaling benefit lines: %w", err)
		}
	}
	if len(fraudFlags) > 0 {
		if err := json.Unmarshal(fraudFlags, &claim.FraudFlags); err != nil {
			return nil, fmt.Errorf("unmarshaling fraud flags: %w", err)
		}
	}

	return &claim, nil
}
