package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

func newPhantomDetector(store *fakeClaimStore, providers *fakeProviderStore, registry *fakeRegistry) *PhantomDetector {
	if store == nil {
		store = &fakeClaimStore{}
	}
	if providers == nil {
		providers = &fakeProviderStore{}
	}
	if registry == nil {
		registry = &fakeRegistry{}
	}
	return NewPhantomDetector(store, providers, registry, DefaultVocabulary(), testLogger())
}

func TestPhantomDetector_MissingSHANumber(t *testing.T) {
	detector := newPhantomDetector(nil, nil, nil)

	claim := baseClaim()
	claim.PatientSHANumber = ""

	result := detector.AnalyzeClaim(context.Background(), claim)

	assert.Equal(t, 50.0, result.RiskScore)
	assert.True(t, result.IsHighRisk)
	require.Len(t, result.Flags, 1)
	assert.Equal(t, "missing_sha_number", result.Flags[0].Type)
}

func TestPhantomDetector_MemberNotFound(t *testing.T) {
	registry := &fakeRegistry{member: &domain.MemberRecord{SHANumber: "SHA001", Exists: false}}
	detector := newPhantomDetector(nil, nil, registry)

	result := detector.AnalyzeClaim(context.Background(), baseClaim())

	assert.GreaterOrEqual(t, result.RiskScore, 40.0)
	require.NotEmpty(t, result.Flags)
	assert.Equal(t, "sha_number_not_found", result.Flags[0].Type)
	assert.Equal(t, domain.SeverityCritical, result.Flags[0].Severity)
}

func TestPhantomDetector_DeceasedMember(t *testing.T) {
	death := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	registry := &fakeRegistry{member: &domain.MemberRecord{
		SHANumber: "SHA001", Exists: true, IsDeceased: true, DeathDate: &death,
		FullName: "Jane Wanjiku",
	}}
	detector := newPhantomDetector(nil, nil, registry)

	result := detector.AnalyzeClaim(context.Background(), baseClaim())

	require.NotEmpty(t, result.Flags)
	assert.Equal(t, "deceased_member", result.Flags[0].Type)
	assert.Contains(t, result.Flags[0].Description, "2024-06-01")
}

func TestPhantomDetector_RegistryFailOpen(t *testing.T) {
	registry := &fakeRegistry{member: &domain.MemberRecord{
		SHANumber: "SHA001", Exists: true, APIError: true, ErrorDetail: "timeout",
	}}
	detector := newPhantomDetector(nil, nil, registry)

	claim := baseClaim()
	claim.PatientLastName = "Otieno"

	result := detector.AnalyzeClaim(context.Background(), claim)

	// Fail-open: no identity flags when the registry could not answer.
	assert.Equal(t, 0.0, result.RiskScore)
	assert.Empty(t, result.Flags)
	assert.False(t, result.IsHighRisk)
}

func TestPhantomDetector_MaternityCodeForMaleMember(t *testing.T) {
	registry := &fakeRegistry{member: &domain.MemberRecord{
		SHANumber: "SHA001", Exists: true, Gender: "M",
	}}
	detector := newPhantomDetector(nil, nil, registry)

	claim := baseClaim()
	claim.ICD11Code = "JA02.1"

	result := detector.AnalyzeClaim(context.Background(), claim)

	require.NotEmpty(t, result.Flags)
	assert.Equal(t, "impossible_diagnosis", result.Flags[0].Type)
	assert.Equal(t, 35.0, result.Flags[0].Score)
}

func TestPhantomDetector_DeliveryProcedureForMale(t *testing.T) {
	registry := &fakeRegistry{member: &domain.MemberRecord{
		SHANumber: "SHA001", Exists: true, Gender: "M",
	}}
	detector := newPhantomDetector(nil, nil, registry)

	claim := baseClaim()
	claim.BenefitLines = []domain.BenefitLine{{ICD11ProcedureCode: "59400"}}

	result := detector.AnalyzeClaim(context.Background(), claim)

	require.NotEmpty(t, result.Flags)
	assert.Equal(t, "impossible_procedure", result.Flags[0].Type)
}

func TestPhantomDetector_PaediatricCodeForAdult(t *testing.T) {
	dob := time.Now().AddDate(-45, 0, 0)
	registry := &fakeRegistry{member: &domain.MemberRecord{
		SHANumber: "SHA001", Exists: true, Gender: "F", DateOfBirth: &dob,
	}}
	detector := newPhantomDetector(nil, nil, registry)

	claim := baseClaim()
	claim.ICD11Code = "LA00.1"

	result := detector.AnalyzeClaim(context.Background(), claim)

	require.NotEmpty(t, result.Flags)
	assert.Equal(t, "age_mismatch", result.Flags[0].Type)
	assert.Equal(t, 20.0, result.Flags[0].Score)
}

func TestPhantomDetector_ExcessiveVisits(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		wantScore float64
		wantFlag  bool
	}{
		{"under threshold", 10, 0, false},
		{"over 30", 35, 15, true},
		{"over 50", 60, 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeClaimStore{memberClaimCount: tt.count}
			detector := newPhantomDetector(store, nil, nil)

			result := detector.AnalyzeClaim(context.Background(), baseClaim())

			assert.Equal(t, tt.wantScore, result.RiskScore)
			if tt.wantFlag {
				require.Len(t, result.Flags, 1)
				assert.Equal(t, "excessive_visits", result.Flags[0].Type)
			} else {
				assert.Empty(t, result.Flags)
			}
		})
	}
}

func TestPhantomDetector_NameMismatch(t *testing.T) {
	registry := &fakeRegistry{member: &domain.MemberRecord{
		SHANumber: "SHA001", Exists: true, FullName: "Grace Akinyi Odhiambo",
	}}
	detector := newPhantomDetector(nil, nil, registry)

	claim := baseClaim()
	claim.PatientLastName = "Kamau"
	claim.PatientFirstName = "Peter"

	result := detector.AnalyzeClaim(context.Background(), claim)

	require.Len(t, result.Flags, 1)
	assert.Equal(t, "name_mismatch_vs_registry", result.Flags[0].Type)
	assert.Equal(t, 15.0, result.RiskScore)
	assert.False(t, result.IsHighRisk)
}

func TestPhantomDetector_NameMatchOnLastName(t *testing.T) {
	registry := &fakeRegistry{member: &domain.MemberRecord{
		SHANumber: "SHA001", Exists: true, FullName: "Grace Akinyi Odhiambo",
	}}
	detector := newPhantomDetector(nil, nil, registry)

	claim := baseClaim()
	claim.PatientLastName = "Odhiambo"

	result := detector.AnalyzeClaim(context.Background(), claim)

	assert.Empty(t, result.Flags)
}

func TestPhantomDetector_GeographicImpossibility(t *testing.T) {
	other := baseClaim()
	other.ProviderID = "PRV-FAR"

	store := &fakeClaimStore{sameDayClaims: []*domain.Claim{other}}
	providers := &countyProviderStore{counties: map[string]string{
		"PRV-001": "Nairobi",
		"PRV-FAR": "Mombasa",
	}}
	detector := NewPhantomDetector(store, providers, &fakeRegistry{}, DefaultVocabulary(), testLogger())

	result := detector.AnalyzeClaim(context.Background(), baseClaim())

	require.Len(t, result.Flags, 1)
	assert.Equal(t, "geographic_impossibility", result.Flags[0].Type)
	assert.Equal(t, 30.0, result.RiskScore)
	assert.Contains(t, result.Flags[0].Description, "Nairobi")
	assert.Contains(t, result.Flags[0].Description, "Mombasa")
}

// countyProviderStore resolves providers by id with distinct counties.
type countyProviderStore struct {
	counties map[string]string
}

func (s *countyProviderStore) GetByProviderID(ctx context.Context, providerID string) (*domain.Provider, error) {
	county, ok := s.counties[providerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Provider{ProviderID: providerID, Name: providerID, County: county}, nil
}
