package model

import "time"

// ResultRecord is the persisted judgment for one (task, reviewer, case).
// ImageRef is copied from the catalog at write time.
type ResultRecord struct {
	Task       Task      `json:"task"`
	ReviewerID string    `json:"reviewer_id"`
	CaseID     string    `json:"case_id"`
	Value      string    `json:"value"`
	Comment    string    `json:"comment,omitempty"`
	ImageRef   string    `json:"image_ref"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RecordKey struct {
	Task       Task
	ReviewerID string
	CaseID     string
}

func (r ResultRecord) Key() RecordKey {
	return RecordKey{Task: r.Task, ReviewerID: r.ReviewerID, CaseID: r.CaseID}
}
