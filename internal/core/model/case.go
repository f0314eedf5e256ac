package model

type Case struct {
	CaseID   string `json:"case_id"`
	ImageRef string `json:"image_ref"`
}

// AnnotatedCase is a catalog case joined with the reviewer's current result
// for the active task. Result is nil while the case is unanswered.
type AnnotatedCase struct {
	Case
	Result *ResultRecord `json:"result,omitempty"`
}

func (a AnnotatedCase) Answered() bool {
	return a.Result != nil
}

type Stats struct {
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Remaining       int     `json:"remaining"`
	CompletionRatio float64 `json:"completion_ratio"`
}
