package session

import "github.com/Skufu/CKDRisk/internal/model"

// View is the calculator page state. It is either CollectingInput or
// ShowingResults; no other implementations exist.
type View interface {
	Kind() string
	view()
}

const (
	KindCollecting = "collecting"
	KindResults    = "results"
)

// CollectingInput shows the eligibility question and the admission form.
type CollectingInput struct{}

func (CollectingInput) Kind() string { return KindCollecting }
func (CollectingInput) view() {}

// ShowingResults shows the predicted risks of the last submission.
type ShowingResults struct {
	Assessment model.Assessment
}

func (ShowingResults) Kind() string { return KindResults }
func (ShowingResults) view() {}

// Submit is the transition taken after a valid form has been evaluated.
func Submit(a model.Assessment) View {
	return ShowingResults{Assessment: a}
}

// Reset is the "New calculation" transition.
func Reset() View {
	return CollectingInput{}
}
