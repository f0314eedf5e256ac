package model

import (
	"fmt"
	"strings"
)

type Task string

const (
	Classification      Task = "classification"
	RealisticAppearance Task = "realistic_appearance"
	AnatomicCorrectness Task = "anatomic_correctness"
)

// Tasks lists every task in dashboard order.
var Tasks = []Task{Classification, RealisticAppearance, AnatomicCorrectness}

func ParseTask(s string) (Task, error) {
	t := Task(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tasks {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
}

// TaskSpec is the per-task configuration shared by every component: the
// judgment options, where the catalog lives and which image subfolder the
// task reads from.
type TaskSpec struct {
	Task        Task     `json:"task"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
	Subfolder   string   `json:"-"`
	CatalogPath string   `json:"-"`
}

// DefaultSpecs returns the three task specs with the catalog and image
// locations used by a stock deployment.
func DefaultSpecs() map[Task]TaskSpec {
	return map[Task]TaskSpec{
		Classification: {
			Task:        Classification,
			Title:       "Image Classification",
			Description: "Classify images as Real or Synthetic",
			Options:     []string{"Real", "Synthetic"},
			Subfolder:   "classification",
			CatalogPath: "classification.csv",
		},
		RealisticAppearance: {
			Task:        RealisticAppearance,
			Title:       "Realistic Appearance Assessment",
			Description: "Evaluate the visual quality and realism of CT images",
			Options: []string{
				"Not recognizable as CT",
				"Recognizable as CT, but overall unrealistic",
				"Mostly realistic with only minor unrealistic areas",
				"Overall realistic",
			},
			Subfolder:   "realistic_appearance",
			CatalogPath: "realistic_appearance.csv",
		},
		AnatomicCorrectness: {
			Task:        AnatomicCorrectness,
			Title:       "Anatomic Correctness Assessment",
			Description: "Evaluate the anatomical accuracy and structural integrity of CT images",
			Options: []string{
				"Anatomic region not recognizable",
				"Recognizable, but major parts show anatomic incorrectness",
				"Only minor anatomic incorrectness",
				"Anatomic features are correct",
			},
			Subfolder:   "anatomic_structure",
			CatalogPath: "anatomic_structure.csv",
		},
	}
}

// Normalize trims a submitted value and checks it against the permitted
// options. Matching is exact after trimming.
func (s TaskSpec) Normalize(value string) (string, error) {
	v := strings.TrimSpace(value)
	for _, opt := range s.Options {
		if v == opt {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not an option for %s", ErrInvalidValue, value, s.Task)
}

// DefaultIndex picks the option to preselect for a stored value: the exact
// match, else the first case-insensitive match, else the first option.
func (s TaskSpec) DefaultIndex(stored string) int {
	v := strings.TrimSpace(stored)
	if v == "" {
		return 0
	}
	for i, opt := range s.Options {
		if opt == v {
			return i
		}
	}
	for i, opt := range s.Options {
		if strings.EqualFold(opt, v) {
			return i
		}
	}
	return 0
}
