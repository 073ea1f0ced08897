//go:build integration

package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sha-claims-fraud-engine/internal/database"
	"github.com/sha-claims-fraud-engine/internal/domain"
)

func testPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	ctx := context.Background()
	password := testPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := domain.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		Database:        "testdb",
		Username:        "testuser",
		Password:        password,
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, cfg, logger)
	require.NoError(t, err)

	databaseURL := "postgres://testuser:" + password + "@" + host + ":" + port.Port() + "/testdb?sslmode=disable"
	runner, err := database.NewMigrationRunner(databaseURL, "../../migrations", logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up())

	cleanup := func() {
		runner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func testRepo(t *testing.T, db *database.DB) *ClaimRepository {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return NewClaimRepository(db.Pool, logger)
}

func makeClaim(sha string, provider string, admission time.Time, amount float64) *domain.Claim {
	return &domain.Claim{
		ID:                 uuid.New(),
		ClaimNumber:        "CLM-" + uuid.NewString()[:8],
		ProviderID:         provider,
		PatientSHANumber:   sha,
		VisitType:          "Outpatient",
		VisitAdmissionDate: &admission,
		TotalClaimAmount:   &amount,
	}
}

func TestClaimRepository_CreateAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := testRepo(t, db)
	ctx := context.Background()

	claim := makeClaim("SHA100", "PRV-1", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), 7500)
	claim.BenefitLines = []domain.BenefitLine{{PreauthNo: "PA-77", Description: "Consultation"}}
	require.NoError(t, repo.Create(ctx, claim))

	got, err := repo.GetByID(ctx, claim.ID.String())
	require.NoError(t, err)
	assert.Equal(t, claim.ClaimNumber, got.ClaimNumber)
	assert.Equal(t, domain.StatusPending, got.Status)
	require.Len(t, got.BenefitLines, 1)
	assert.Equal(t, "PA-77", got.BenefitLines[0].PreauthNo)
}

func TestClaimRepository_DuplicateQueries(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := testRepo(t, db)
	ctx := context.Background()

	admission := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	original := makeClaim("SHA200", "PRV-A", admission, 5000)
	exact := makeClaim("SHA200", "PRV-B", admission.Add(2*time.Hour), 5000)
	rolling := makeClaim("SHA200", "PRV-A", admission.Add(30*time.Hour), 5000)
	unrelated := makeClaim("SHA999", "PRV-A", admission, 5000)

	for _, c := range []*domain.Claim{original, exact, rolling, unrelated} {
		require.NoError(t, repo.Create(ctx, c))
	}

	exacts, err := repo.FindExactDuplicates(ctx, original)
	require.NoError(t, err)
	assert.Len(t, exacts, 1)

	rollings, err := repo.FindRollingDuplicates(ctx, original, 48*time.Hour)
	require.NoError(t, err)
	assert.Len(t, rollings, 1)
	assert.Equal(t, rolling.ID, rollings[0].ID)

	sameDay, err := repo.FindSameDayClaims(ctx, original)
	require.NoError(t, err)
	assert.Len(t, sameDay, 1)
	assert.Equal(t, exact.ID, sameDay[0].ID)
}

func TestClaimRepository_PreauthLookup(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := testRepo(t, db)
	ctx := context.Background()

	holder := makeClaim("SHA300", "PRV-A", time.Now().UTC(), 3000)
	holder.BenefitLines = []domain.BenefitLine{{PreauthNo: "PA-SHARED"}}
	require.NoError(t, repo.Create(ctx, holder))

	conflicts, err := repo.FindClaimsByPreauth(ctx, uuid.NewString(), "PA-SHARED")
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)

	none, err := repo.FindClaimsByPreauth(ctx, holder.ID.String(), "PA-SHARED")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClaimRepository_CommitAnalysisUpsertsAlert(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := testRepo(t, db)
	ctx := context.Background()

	claim := makeClaim("SHA400", "PRV-C", time.Now().UTC(), 90000)
	require.NoError(t, repo.Create(ctx, claim))

	analysis := &domain.CompositeAnalysis{
		ClaimID:            claim.ID.String(),
		ClaimNumber:        claim.ClaimNumber,
		Modules:            map[string]domain.ModuleResult{},
		CompositeRiskScore: 85,
		FinalStatus:        domain.StatusFlaggedCritical,
		AnalyzedAt:         time.Now().UTC(),
	}
	alert := &domain.FraudAlert{
		ID:        uuid.New(),
		ClaimID:   claim.ID,
		AlertType: "multiple_indicators",
		Severity:  domain.SeverityCritical,
		Status:    "open",
		Evidence:  analysis,
	}

	require.NoError(t, repo.CommitAnalysis(ctx, claim.ID.String(), analysis, alert))

	got, err := repo.GetByID(ctx, claim.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 85.0, got.RiskScore)
	assert.True(t, got.IsFlagged)
	assert.Equal(t, domain.StatusFlaggedCritical, got.Status)
	require.NotNil(t, got.AnalysisCompletedAt)

	// Re-analysis replaces the alert in place rather than adding a second row.
	analysis.CompositeRiskScore = 65
	analysis.FinalStatus = domain.StatusFlaggedReview
	alert2 := *alert
	alert2.ID = uuid.New()
	alert2.Severity = domain.SeverityHigh
	require.NoError(t, repo.CommitAnalysis(ctx, claim.ID.String(), analysis, &alert2))

	alerts, err := repo.ListAlerts(ctx, "open", 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityHigh, alerts[0].Severity)
}

func TestClaimRepository_CommitAnalysisUnknownClaim(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := testRepo(t, db)

	analysis := &domain.CompositeAnalysis{AnalyzedAt: time.Now().UTC()}
	err := repo.CommitAnalysis(context.Background(), uuid.NewString(), analysis, nil)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
