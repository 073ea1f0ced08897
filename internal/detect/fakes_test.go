package detect

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeClaimStore returns canned query results and records the commit.
type fakeClaimStore struct {
	exactDuplicates   []*domain.Claim
	rollingDuplicates []*domain.Claim
	sameDayClaims     []*domain.Claim
	overlappingStays  []*domain.Claim
	preauthConflicts  []*domain.Claim
	memberClaimCount  int
	providerAverage   float64
	accomCount        int
	queryErr          error

	committedAnalysis *domain.CompositeAnalysis
	committedAlert    *domain.FraudAlert
	commitErr         error
}

func (f *fakeClaimStore) Create(ctx context.Context, claim *domain.Claim) error { return nil }

func (f *fakeClaimStore) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeClaimStore) FindExactDuplicates(ctx context.Context, claim *domain.Claim) ([]*domain.Claim, error) {
	return f.exactDuplicates, f.queryErr
}

func (f *fakeClaimStore) FindRollingDuplicates(ctx context.Context, claim *domain.Claim, window time.Duration) ([]*domain.Claim, error) {
	return f.rollingDuplicates, f.queryErr
}

func (f *fakeClaimStore) FindSameDayClaims(ctx context.Context, claim *domain.Claim) ([]*domain.Claim, error) {
	return f.sameDayClaims, f.queryErr
}

func (f *fakeClaimStore) FindOverlappingInpatientStays(ctx context.Context, claim *domain.Claim) ([]*domain.Claim, error) {
	return f.overlappingStays, f.queryErr
}

func (f *fakeClaimStore) FindClaimsByPreauth(ctx context.Context, claimID, preauthNo string) ([]*domain.Claim, error) {
	return f.preauthConflicts, f.queryErr
}

func (f *fakeClaimStore) CountMemberClaimsSince(ctx context.Context, shaNumber, excludeClaimID string, since time.Time) (int, error) {
	return f.memberClaimCount, f.queryErr
}

func (f *fakeClaimStore) AverageProviderClaimAmountSince(ctx context.Context, providerID, excludeClaimID string, since time.Time) (float64, error) {
	return f.providerAverage, f.queryErr
}

func (f *fakeClaimStore) CountProviderAccommodationSince(ctx context.Context, providerID, accommodation string, since time.Time) (int, error) {
	return f.accomCount, f.queryErr
}

func (f *fakeClaimStore) CommitAnalysis(ctx context.Context, claimID string, analysis *domain.CompositeAnalysis, alert *domain.FraudAlert) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committedAnalysis = analysis
	f.committedAlert = alert
	return nil
}

type fakeProviderStore struct {
	provider *domain.Provider
	err      error
}

func (f *fakeProviderStore) GetByProviderID(ctx context.Context, providerID string) (*domain.Provider, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.provider == nil {
		return nil, domain.ErrNotFound
	}
	return f.provider, nil
}

type fakeRegistry struct {
	member *domain.MemberRecord
}

func (f *fakeRegistry) VerifyMember(ctx context.Context, shaNumber string) *domain.MemberRecord {
	if f.member != nil {
		return f.member
	}
	return &domain.MemberRecord{SHANumber: shaNumber, Exists: true}
}

type fakePredictor struct {
	prediction *domain.Prediction
	err        error
}

func (f *fakePredictor) Predict(ctx context.Context, features domain.FeatureVector) (*domain.Prediction, error) {
	return f.prediction, f.err
}

func (f *fakePredictor) Name() string { return "fake_model" }

type fakeModelStore struct {
	predictor domain.Predictor
	err       error
}

func (f *fakeModelStore) LoadActiveModel(ctx context.Context) (domain.Predictor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.predictor, nil
}

// fixedModule returns a canned result, for orchestrator tests.
type fixedModule struct {
	name   string
	result domain.ModuleResult
	panics bool
}

func (m *fixedModule) Name() string { return m.name }

func (m *fixedModule) AnalyzeClaim(ctx context.Context, claim *domain.Claim) domain.ModuleResult {
	if m.panics {
		panic("detector blew up")
	}
	return m.result
}
