package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

func TestLogisticModel_Predict(t *testing.T) {
	model := &LogisticModel{
		name: "fraud_lr_test",
		weights: LogisticWeights{
			Intercept:      -4.0,
			BillClaimRatio: 2.0,
			VisitType:      map[string]float64{"outpatient": 0.5},
			HasPreauth:     map[string]float64{"no": 1.0},
		},
	}

	lowRisk, err := model.Predict(context.Background(), domain.FeatureVector{
		BillClaimRatio: 1.0,
		VisitType:      "inpatient",
		HasPreauth:     "yes",
	})
	require.NoError(t, err)

	highRisk, err := model.Predict(context.Background(), domain.FeatureVector{
		BillClaimRatio: 1.5,
		VisitType:      "outpatient",
		HasPreauth:     "no",
	})
	require.NoError(t, err)

	assert.Less(t, lowRisk.RiskScore, highRisk.RiskScore)
	assert.GreaterOrEqual(t, lowRisk.RiskScore, 0.0)
	assert.LessOrEqual(t, highRisk.RiskScore, 100.0)
	assert.Equal(t, "fraud_lr_test", highRisk.ModelUsed)
}

func TestLogisticModel_ProbabilityBounds(t *testing.T) {
	model := &LogisticModel{name: "bounds", weights: LogisticWeights{Intercept: 50}}

	p, err := model.Predict(context.Background(), domain.FeatureVector{})
	require.NoError(t, err)

	assert.InDelta(t, 100.0, p.RiskScore, 0.001)
	assert.InDelta(t, 1.0, p.RawProbability, 0.000001)
}

func TestLogisticModel_UnknownCategoricalLevel(t *testing.T) {
	model := &LogisticModel{
		name:    "levels",
		weights: LogisticWeights{VisitType: map[string]float64{"inpatient": 3.0}},
	}

	// A level absent from the trained weights contributes nothing.
	p, err := model.Predict(context.Background(), domain.FeatureVector{VisitType: "day-care"})
	require.NoError(t, err)

	assert.InDelta(t, 50.0, p.RiskScore, 0.001)
}
