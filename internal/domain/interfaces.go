package domain

import (
	"context"
	"time"
)

// DocumentSource retrieves uploaded claim document bytes. The extractor is
// agnostic to the storage backend behind the reference.
type DocumentSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// ClaimStore exposes the read/query operations the detection modules need
// plus the single transactional write-back per claim.
type ClaimStore interface {
	Create(ctx context.Context, claim *Claim) error
	GetByID(ctx context.Context, id string) (*Claim, error)

	// FindExactDuplicates returns other claims with the same SHA number,
	// admission date, and claim total.
	FindExactDuplicates(ctx context.Context, claim *Claim) ([]*Claim, error)

	// FindRollingDuplicates returns other claims with the same SHA number,
	// provider, and claim total admitted within the given window around the
	// claim's admission date.
	FindRollingDuplicates(ctx context.Context, claim *Claim, window time.Duration) ([]*Claim, error)

	// FindSameDayClaims returns other claims for the same member admitted on
	// the same calendar date at a different provider.
	FindSameDayClaims(ctx context.Context, claim *Claim) ([]*Claim, error)

	// FindOverlappingInpatientStays returns other inpatient claims for the
	// same member whose [admission, discharge) interval intersects the
	// claim's interval.
	FindOverlappingInpatientStays(ctx context.Context, claim *Claim) ([]*Claim, error)

	// FindClaimsByPreauth returns other claims whose benefit lines carry the
	// given preauthorisation number.
	FindClaimsByPreauth(ctx context.Context, claimID string, preauthNo string) ([]*Claim, error)

	// CountMemberClaimsSince counts claims for the member admitted on or
	// after the cutoff, excluding the given claim.
	CountMemberClaimsSince(ctx context.Context, shaNumber string, excludeClaimID string, since time.Time) (int, error)

	// AverageProviderClaimAmountSince returns the provider's average claim
	// total over claims admitted on or after the cutoff, excluding the given
	// claim. Returns 0 when no history exists.
	AverageProviderClaimAmountSince(ctx context.Context, providerID string, excludeClaimID string, since time.Time) (float64, error)

	// CountProviderAccommodationSince counts the provider's claims with the
	// given accommodation type admitted on or after the cutoff.
	CountProviderAccommodationSince(ctx context.Context, providerID string, accommodation string, since time.Time) (int, error)

	// CommitAnalysis atomically writes the claim's risk fields and upserts a
	// FraudAlert row when the analysis warrants one. It is the single commit
	// point per claim: on error the claim's prior state is unchanged.
	CommitAnalysis(ctx context.Context, claimID string, analysis *CompositeAnalysis, alert *FraudAlert) error
}

// ProviderStore exposes provider lookups for the detectors.
type ProviderStore interface {
	GetByProviderID(ctx context.Context, providerID string) (*Provider, error)
}

// RegistryClient verifies SHA member identity against the national registry.
// Implementations must never fail closed: transport errors resolve to a
// MemberRecord with Exists=true and APIError=true.
type RegistryClient interface {
	VerifyMember(ctx context.Context, shaNumber string) *MemberRecord
}

// Predictor scores one claim with the active fraud model.
type Predictor interface {
	Predict(ctx context.Context, features FeatureVector) (*Prediction, error)
	Name() string
}

// ModelStore loads the currently active fraud model, returning
// ErrNoActiveModel when none is deployed.
type ModelStore interface {
	LoadActiveModel(ctx context.Context) (Predictor, error)
}

// DetectionModule analyses one persisted claim against historical data.
// Implementations are stateless apart from their read-only store handles.
type DetectionModule interface {
	Name() string
	AnalyzeClaim(ctx context.Context, claim *Claim) ModuleResult
}

// AuditLogger records analysis runs for compliance review.
type AuditLogger interface {
	RecordAnalysis(ctx context.Context, entry *AuditEntry) error
	ListByClaim(ctx context.Context, claimID string) ([]*AuditEntry, error)
	Close() error
}

// AuditEntry is one row in the analysis audit trail.
type AuditEntry struct {
	ID          int64       `json:"id"`
	ClaimID     string      `json:"claim_id"`
	ClaimNumber string      `json:"claim_number"`
	Action      string      `json:"action"`
	RiskScore   float64     `json:"risk_score"`
	Status      ClaimStatus `json:"status"`
	Detail      string      `json:"detail,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
