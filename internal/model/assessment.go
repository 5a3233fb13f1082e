package model

import "fmt"

// Assessment is the pair of probabilities shown to the user.
type Assessment struct {
	DeathInHospital float64 `json:"deathInHospital"`
	ProlongedLOS    float64 `json:"prolongedLos"`
}

// Assess runs both calculator outcomes against the same feature vector.
func Assess(table CoefficientTable, features FeatureVector) (Assessment, error) {
	death, err := Predict(table, DeathInHospital, features)
	if err != nil {
		return Assessment{}, err
	}
	los, err := Predict(table, ProlongedLOS, features)
	if err != nil {
		return Assessment{}, err
	}
	return Assessment{DeathInHospital: death, ProlongedLOS: los}, nil
}

// FormatPercent renders a probability as a percentage with one decimal place.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}
