package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Skufu/CKDRisk/internal/model"
)

const (
	AnswerYes      = "Yes"
	AnswerNoUnsure = "No / Unsure"

	SexFemale = "Female"
	SexMale   = "Male"

	AdmissionEmergency = "Emergency"
	AdmissionScheduled = "Scheduled"

	MinAge     = 18
	MaxAge     = 120
	DefaultAge = 65
)

var ErrIneligible = errors.New("primary diagnosis is not chronic kidney disease")

// IneligibleMessage is shown when the eligibility gate refuses an admission.
const IneligibleMessage = "This calculator is intended only for admissions where CKD (ICD-10 N18.*) is the primary diagnosis."

// Admission is the raw calculator input, bound from the HTML form or JSON.
type Admission struct {
	PrimaryCKD    string   `form:"primary_ckd" json:"primaryCkd" validate:"required"`
	Sex           string   `form:"sex" json:"sex" validate:"required,oneof=Female Male"`
	Age           int      `form:"age" json:"age" validate:"required,min=18,max=120"`
	AdmissionType string   `form:"admission_type" json:"admissionType" validate:"required,oneof=Emergency Scheduled"`
	Month         string   `form:"month" json:"month" validate:"required,month"`
	Comorbidities []string `form:"comorbidities" json:"comorbidities" validate:"unique,dive,comorbidity"`
}

// Comorbidity is one selectable comorbidity category.
type Comorbidity struct {
	Key   string
	Label string
}

var Comorbidities = []Comorbidity{
	{Key: model.FeatureComorbNeoplasm, Label: "Neoplasms (C00–D49)"},
	{Key: model.FeatureComorbBlood, Label: "Blood/immune (D50–D89)"},
	{Key: model.FeatureComorbEndocrine, Label: "Endocrine/metabolic (E00–E89)"},
	{Key: model.FeatureComorbCirculatory, Label: "Circulatory (I00–I99)"},
	{Key: model.FeatureComorbRespiratory, Label: "Respiratory (J00–J99)"},
	{Key: model.FeatureComorbDigestive, Label: "Digestive (K00–K95)"},
}

// Months lists the English month names in calendar order.
var Months = func() []string {
	out := make([]string, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, m.String())
	}
	return out
}()

// AgeOptions lists the selectable ages.
var AgeOptions = func() []int {
	out := make([]int, 0, MaxAge-MinAge+1)
	for age := MinAge; age <= MaxAge; age++ {
		out = append(out, age)
	}
	return out
}()

// CheckEligibility is the hard gate run before anything else: only a "Yes"
// to the CKD primary-diagnosis question may proceed.
func CheckEligibility(primaryCKD string) error {
	if primaryCKD != AnswerYes {
		return ErrIneligible
	}
	return nil
}

// Eligibility holds only the gate answer so it can be read before the rest
// of the admission is bound.
type Eligibility struct {
	PrimaryCKD string `form:"primary_ckd" json:"primaryCkd"`
}

// MonthNumber maps a month name to 1..12.
func MonthNumber(name string) (int, bool) {
	for i, m := range Months {
		if strings.EqualFold(m, name) {
			return i + 1, true
		}
	}
	return 0, false
}

// WarmMonth reports whether month falls in March through August.
func WarmMonth(month int) bool {
	return month >= 3 && month <= 8
}

func isComorbidity(key string) bool {
	for _, c := range Comorbidities {
		if c.Key == key {
			return true
		}
	}
	return false
}

// Encode maps a validated admission to the model feature vector. Every
// feature key is always present.
func Encode(a Admission) (model.FeatureVector, error) {
	month, ok := MonthNumber(a.Month)
	if !ok {
		return nil, &ValidationError{Fields: []string{fmt.Sprintf("month: unknown month %q", a.Month)}}
	}

	fv := model.FeatureVector{
		model.FeatureFemale:             flag(a.Sex == SexFemale),
		model.FeatureAgeGE70:            flag(a.Age >= 70),
		model.FeatureScheduledAdmission: flag(a.AdmissionType == AdmissionScheduled),
		model.FeatureWarmMonth:          flag(WarmMonth(month)),
	}
	for _, c := range Comorbidities {
		fv[c.Key] = 0
	}
	for _, key := range a.Comorbidities {
		if !isComorbidity(key) {
			return nil, &ValidationError{Fields: []string{fmt.Sprintf("comorbidities: unknown category %q", key)}}
		}
		fv[key] = 1
	}
	return fv, nil
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "month", func(fl validator.FieldLevel) bool {
		_, ok := MonthNumber(fl.Field().String())
		return ok
	})
	mustRegister(v, "comorbidity", func(fl validator.FieldLevel) bool {
		return isComorbidity(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate checks field values and returns a *ValidationError on failure.
func Validate(a Admission) error {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "max":
		return fmt.Sprintf("%s must be between %d and %d", fe.Field(), MinAge, MaxAge)
	case "month":
		return fmt.Sprintf("%s must be a month name, got %q", fe.Field(), fe.Value())
	case "comorbidity":
		return fmt.Sprintf("%s: unknown category %q", fe.Field(), fe.Value())
	case "unique":
		return fe.Field() + " must not repeat a category"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// Prepare runs the eligibility gate, validation and encoding in that order.
// An ineligible admission never reaches validation or encoding.
func Prepare(a Admission) (model.FeatureVector, error) {
	if err := CheckEligibility(a.PrimaryCKD); err != nil {
		return nil, err
	}
	if err := Validate(a); err != nil {
		return nil, err
	}
	return Encode(a)
}
