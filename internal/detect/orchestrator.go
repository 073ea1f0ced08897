package detect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// Orchestrator runs the full detection pipeline for one claim: the model
// scorer first, then the rule-based modules in parallel, then the composite
// score, status decision, and the single transactional write-back.
type Orchestrator struct {
	ml      domain.DetectionModule
	modules []domain.DetectionModule
	claims  domain.ClaimStore
	audit   domain.AuditLogger
	cfg     domain.DetectionConfig
	log     *logrus.Logger
}

// NewOrchestrator wires the fixed module set. The module order here is the
// persistence order of flags on the claim record.
func NewOrchestrator(
	ml domain.DetectionModule,
	phantom domain.DetectionModule,
	upcoding domain.DetectionModule,
	duplicate domain.DetectionModule,
	providerRisk domain.DetectionModule,
	claims domain.ClaimStore,
	audit domain.AuditLogger,
	cfg domain.DetectionConfig,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		ml:      ml,
		modules: []domain.DetectionModule{phantom, upcoding, duplicate, providerRisk},
		claims:  claims,
		audit:   audit,
		cfg:     cfg,
		log:     logger,
	}
}

// Analyze runs every detection module against the claim, combines their
// scores, and commits the result. A faulting module degrades to a zero-score
// result; only persistence failures propagate as errors.
func (o *Orchestrator) Analyze(ctx context.Context, claim *domain.Claim) (*domain.CompositeAnalysis, error) {
	start := time.Now()

	analysis := &domain.CompositeAnalysis{
		ClaimID:     claim.ID.String(),
		ClaimNumber: claim.ClaimNumber,
		Modules:     make(map[string]domain.ModuleResult, len(o.modules)+1),
	}

	// Model scoring runs synchronously ahead of the rule modules.
	mlResult := o.runModule(ctx, o.ml, claim)
	analysis.Modules[o.ml.Name()] = mlResult
	analysis.MLScore = mlResult.RiskScore

	// Rule-based modules fan out. A panic in one module must not take down
	// its siblings, so each goroutine recovers into an error result.
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, module := range o.modules {
		wg.Add(1)
		go func(m domain.DetectionModule) {
			defer wg.Done()
			result := o.runModule(ctx, m, claim)
			mu.Lock()
			analysis.Modules[m.Name()] = result
			mu.Unlock()
		}(module)
	}
	wg.Wait()

	analysis.CompositeRiskScore = o.compositeScore(analysis.Modules)
	analysis.FinalStatus = o.determineStatus(analysis.CompositeRiskScore)
	analysis.Recommendation = o.recommendation(analysis.CompositeRiskScore)
	analysis.AnalyzedAt = time.Now().UTC()
	analysis.TotalExecutionTimeMS = round2(float64(time.Since(start).Microseconds()) / 1000)

	alert := o.buildAlert(claim, analysis)

	if err := o.claims.CommitAnalysis(ctx, claim.ID.String(), analysis, alert); err != nil {
		return nil, fmt.Errorf("committing analysis for claim %s: %w", claim.ID, err)
	}

	o.recordAudit(ctx, claim, analysis)

	o.log.WithFields(logrus.Fields{
		"claim_id":     claim.ID,
		"claim_number": claim.ClaimNumber,
		"risk_score":   analysis.CompositeRiskScore,
		"status":       analysis.FinalStatus,
		"duration_ms":  analysis.TotalExecutionTimeMS,
	}).Info("Fraud analysis completed")

	return analysis, nil
}

// runModule isolates one module run: a panic becomes an error result.
func (o *Orchestrator) runModule(ctx context.Context, m domain.DetectionModule, claim *domain.Claim) (result domain.ModuleResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.WithFields(logrus.Fields{
				"module":   m.Name(),
				"claim_id": claim.ID,
				"panic":    r,
			}).Error("Detection module panicked")
			result = domain.ErrorResult(m.Name(), fmt.Errorf("module panic: %v", r))
		}
	}()
	return m.AnalyzeClaim(ctx, claim)
}

// compositeScore combines module scores as a weighted average, floored by a
// fraction of the single highest score so one critical signal (an exact
// duplicate at 100) is not diluted by clean siblings.
func (o *Orchestrator) compositeScore(modules map[string]domain.ModuleResult) float64 {
	var weightedSum, weightTotal, maxScore float64
	for name, weight := range o.cfg.ModuleWeights {
		score := modules[name].RiskScore
		weightedSum += score * weight
		weightTotal += weight
		if score > maxScore {
			maxScore = score
		}
	}

	var weightedAvg float64
	if weightTotal > 0 {
		weightedAvg = weightedSum / weightTotal
	}

	composite := weightedAvg
	if floored := maxScore * o.cfg.MaxScoreFloor; floored > composite {
		composite = floored
	}
	return round2(composite)
}

func (o *Orchestrator) determineStatus(score float64) domain.ClaimStatus {
	switch {
	case score >= o.cfg.CriticalAt:
		return domain.StatusFlaggedCritical
	case score >= o.cfg.ReviewAt:
		return domain.StatusFlaggedReview
	case score < o.cfg.AutoApproveBelow:
		return domain.StatusAutoApproved
	default:
		return domain.StatusPending
	}
}

func (o *Orchestrator) recommendation(score float64) string {
	switch {
	case score >= o.cfg.CriticalAt:
		return "REJECT - Critical fraud indicators detected. Immediate investigation required."
	case score >= o.cfg.ReviewAt:
		return "HOLD - High risk. Manual review and additional documentation required."
	case score >= o.cfg.AutoApproveBelow:
		return "REVIEW - Medium risk. Standard verification procedures apply."
	default:
		return "APPROVE - Low risk. Process for payment."
	}
}

// buildAlert returns the alert to upsert for the claim, or nil when the
// composite score is below the alerting threshold.
func (o *Orchestrator) buildAlert(claim *domain.Claim, analysis *domain.CompositeAnalysis) *domain.FraudAlert {
	if analysis.CompositeRiskScore < o.cfg.AlertAt {
		return nil
	}

	severity := domain.SeverityHigh
	if analysis.CompositeRiskScore >= o.cfg.CriticalAt {
		severity = domain.SeverityCritical
	}

	return &domain.FraudAlert{
		ID:               uuid.New(),
		ClaimID:          claim.ID,
		AlertType:        "multiple_indicators",
		Severity:         severity,
		Description:      fmt.Sprintf("Multiple fraud indicators detected. Risk score: %.1f", analysis.CompositeRiskScore),
		Evidence:         analysis,
		DetectionModule:  "fraud_orchestrator",
		ModuleConfidence: analysis.CompositeRiskScore / 100,
		Status:           "open",
	}
}

func (o *Orchestrator) recordAudit(ctx context.Context, claim *domain.Claim, analysis *domain.CompositeAnalysis) {
	if o.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		ClaimID:     claim.ID.String(),
		ClaimNumber: claim.ClaimNumber,
		Action:      "fraud_analysis",
		RiskScore:   analysis.CompositeRiskScore,
		Status:      analysis.FinalStatus,
		Detail:      analysis.Recommendation,
		CreatedAt:   analysis.AnalyzedAt,
	}
	if err := o.audit.RecordAnalysis(ctx, entry); err != nil {
		o.log.WithError(err).WithField("claim_id", claim.ID).Warn("Failed to record audit entry")
	}
}
