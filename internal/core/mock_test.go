package core

import (
	"context"
	"fmt"

	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/agenthands/ctreview/internal/store"
)

// FlakyStore wraps a memory store and fails the operations whose flag is
// set, the way an unreachable backend would.
type FlakyStore struct {
	*store.Memory
	FailFetch  bool
	FailUpsert bool
	FailDelete bool
	Upserts    int
}

func NewFlakyStore() *FlakyStore {
	return &FlakyStore{Memory: store.NewMemory()}
}

func (f *FlakyStore) FetchAll(ctx context.Context, task model.Task, reviewerID string) (map[string]model.ResultRecord, error) {
	if f.FailFetch {
		return nil, model.NewStoreError("fetch", fmt.Errorf("connection refused"))
	}
	return f.Memory.FetchAll(ctx, task, reviewerID)
}

func (f *FlakyStore) Upsert(ctx context.Context, rec model.ResultRecord) error {
	if f.FailUpsert {
		return model.NewStoreError("upsert", fmt.Errorf("connection refused"))
	}
	f.Upserts++
	return f.Memory.Upsert(ctx, rec)
}

func (f *FlakyStore) DeleteAll(ctx context.Context, task model.Task, reviewerID string) error {
	if f.FailDelete {
		return model.NewStoreError("delete", fmt.Errorf("connection refused"))
	}
	return f.Memory.DeleteAll(ctx, task, reviewerID)
}

type failingCatalog struct{}

func (failingCatalog) Load(ctx context.Context) ([]model.Case, error) {
	return nil, fmt.Errorf("disk on fire")
}
