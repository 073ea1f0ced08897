package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// ModelRepository loads the active fraud model from the ml_models table.
type ModelRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewModelRepository creates a new model repository
func NewModelRepository(db *pgxpool.Pool, logger *logrus.Logger) *ModelRepository {
	return &ModelRepository{db: db, log: logger}
}

// LoadActiveModel returns the newest active model as a ready predictor, or
// ErrNoActiveModel when none is deployed.
func (r *ModelRepository) LoadActiveModel(ctx context.Context) (domain.Predictor, error) {
	query := `
		SELECT model_name, coefficients
		FROM ml_models
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1`

	var name string
	var coefficients []byte
	err := r.db.QueryRow(ctx, query).Scan(&name, &coefficients)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNoActiveModel
		}
		return nil, fmt.Errorf("loading active model: %w", err)
	}

	var weights LogisticWeights
	if err := json.Unmarshal(coefficients, &weights); err != nil {
		return nil, fmt.Errorf("unmarshaling model coefficients for %s: %w", name, err)
	}

	r.log.WithField("model", name).Debug("Active fraud model loaded")

	return &LogisticModel{name: name, weights: weights}, nil
}

// LogisticWeights are the stored coefficients of a trained logistic model.
// Categorical features contribute a per-level weight.
type LogisticWeights struct {
	Intercept             float64            `json:"intercept"`
	TotalClaimAmount      float64            `json:"total_claim_amount"`
	LengthOfStay          float64            `json:"length_of_stay"`
	ProviderRejectionRate float64            `json:"provider_rejection_rate"`
	PatientClaimCount30d  float64            `json:"patient_claim_count_30d"`
	BillClaimRatio        float64            `json:"bill_claim_ratio"`
	BenefitLineCount      float64            `json:"benefit_line_count"`
	VisitType             map[string]float64 `json:"visit_type"`
	NewOrReturnVisit      map[string]float64 `json:"new_or_return_visit"`
	WasReferred           map[string]float64 `json:"was_referred"`
	AccommodationType     map[string]float64 `json:"accommodation_type"`
	HasPreauth            map[string]float64 `json:"has_preauth"`
}

// LogisticModel scores claims with stored logistic-regression coefficients.
type LogisticModel struct {
	name    string
	weights LogisticWeights
}

func (m *LogisticModel) Name() string { return m.name }

// Predict returns the fraud probability mapped to a 0-100 risk score.
func (m *LogisticModel) Predict(ctx context.Context, fv domain.FeatureVector) (*domain.Prediction, error) {
	w := m.weights

	z := w.Intercept +
		w.TotalClaimAmount*fv.TotalClaimAmount +
		w.LengthOfStay*float64(fv.LengthOfStay) +
		w.ProviderRejectionRate*fv.ProviderRejectionRate +
		w.PatientClaimCount30d*float64(fv.PatientClaimCount30d) +
		w.BillClaimRatio*fv.BillClaimRatio +
		w.BenefitLineCount*float64(fv.BenefitLineCount) +
		w.VisitType[fv.VisitType] +
		w.NewOrReturnVisit[fv.NewOrReturnVisit] +
		w.WasReferred[fv.WasReferred] +
		w.AccommodationType[fv.AccommodationType] +
		w.HasPreauth[fv.HasPreauth]

	probability := 1 / (1 + math.Exp(-z))

	return &domain.Prediction{
		RiskScore:      math.Round(probability*100*100) / 100,
		RawProbability: math.Round(probability*1e6) / 1e6,
		ModelUsed:      m.name,
	}, nil
}
