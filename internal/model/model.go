package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Outcomes consumed by the calculator.
const (
	DeathInHospital = "death_in_hospital"
	ProlongedLOS    = "prolonged_los"
)

// Feature keys produced by the admission encoder.
const (
	FeatureFemale             = "female"
	FeatureAgeGE70            = "age_ge70"
	FeatureScheduledAdmission = "scheduled_admission"
	FeatureWarmMonth          = "warm_month"
	FeatureComorbNeoplasm     = "comorb_neoplasm"
	FeatureComorbBlood        = "comorb_blood"
	FeatureComorbEndocrine    = "comorb_endocrine"
	FeatureComorbCirculatory  = "comorb_circulatory"
	FeatureComorbRespiratory  = "comorb_respiratory"
	FeatureComorbDigestive    = "comorb_digestive"
)

var ErrUnknownOutcome = errors.New("unknown outcome")

// ModelSpec is one logistic model: an intercept plus per-feature weights.
// Features missing from Coeffs carry weight 0.
type ModelSpec struct {
	Intercept float64            `json:"intercept"`
	Coeffs    map[string]float64 `json:"coeffs"`
}

// CoefficientTable maps outcome names to their models. It is built once and
// never mutated, so it can be shared between requests without locking.
type CoefficientTable struct {
	Outcomes map[string]ModelSpec `json:"outcomes"`
}

func (t CoefficientTable) Lookup(outcome string) (ModelSpec, error) {
	spec, ok := t.Outcomes[outcome]
	if !ok {
		return ModelSpec{}, fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
	}
	return spec, nil
}

// Names returns the outcome names in sorted order.
func (t CoefficientTable) Names() []string {
	names := make([]string, 0, len(t.Outcomes))
	for name := range t.Outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FeatureVector holds per-request feature values. Absent keys read as 0.
type FeatureVector map[string]float64

func (f FeatureVector) Get(key string) float64 {
	return f[key]
}

// LinearPredictor returns the log-odds for spec. Only keys referenced by the
// model are summed; extra features are ignored.
func LinearPredictor(spec ModelSpec, features FeatureVector) float64 {
	keys := make([]string, 0, len(spec.Coeffs))
	for k := range spec.Coeffs {
		keys = append(keys, k)
	}
	// fixed summation order keeps results bit-for-bit reproducible
	sort.Strings(keys)

	eta := spec.Intercept
	for _, k := range keys {
		eta += spec.Coeffs[k] * features.Get(k)
	}
	return eta
}

// Predict evaluates the logistic model for outcome and returns a probability.
func Predict(table CoefficientTable, outcome string, features FeatureVector) (float64, error) {
	spec, err := table.Lookup(outcome)
	if err != nil {
		return 0, err
	}
	return Sigmoid(LinearPredictor(spec, features)), nil
}

// Sigmoid is the logistic function, branching on sign so exp never overflows.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	z := math.Exp(x)
	return z / (1 + z)
}
