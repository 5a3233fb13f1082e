package coeffs

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Skufu/CKDRisk/internal/model"
)

// ErrConfiguration marks a coefficient resource that is missing or malformed.
var ErrConfiguration = errors.New("coefficient configuration error")

//go:embed schema.json
var schemaDoc string

var documentSchema = jsonschema.MustCompileString("model_coeffs.schema.json", schemaDoc)

// Parse decodes and validates a coefficient document.
func Parse(raw []byte) (model.CoefficientTable, error) {
	if !utf8.Valid(raw) {
		return model.CoefficientTable{}, fmt.Errorf("%w: document is not valid UTF-8", ErrConfiguration)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.CoefficientTable{}, fmt.Errorf("%w: decode json: %v", ErrConfiguration, err)
	}
	if err := documentSchema.Validate(doc); err != nil {
		return model.CoefficientTable{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	var table model.CoefficientTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return model.CoefficientTable{}, fmt.Errorf("%w: decode table: %v", ErrConfiguration, err)
	}
	for name, spec := range table.Outcomes {
		if !finite(spec.Intercept) {
			return model.CoefficientTable{}, fmt.Errorf("%w: outcome %q: intercept is not finite", ErrConfiguration, name)
		}
		for feature, w := range spec.Coeffs {
			if !finite(w) {
				return model.CoefficientTable{}, fmt.Errorf("%w: outcome %q: weight for %q is not finite", ErrConfiguration, name, feature)
			}
		}
	}
	return table, nil
}

// RequireOutcomes fails when any of names is missing from table.
func RequireOutcomes(table model.CoefficientTable, names ...string) error {
	var missing []string
	for _, name := range names {
		if _, err := table.Lookup(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing outcomes %v", ErrConfiguration, missing)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
