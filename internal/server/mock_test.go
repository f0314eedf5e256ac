package server

import (
	"context"
	"fmt"

	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/agenthands/ctreview/internal/store"
)

// FlakyStore is a memory store whose writes can be switched off.
type FlakyStore struct {
	*store.Memory
	FailUpsert bool
}

func (f *FlakyStore) Upsert(ctx context.Context, rec model.ResultRecord) error {
	if f.FailUpsert {
		return model.NewStoreError("upsert", fmt.Errorf("connection refused"))
	}
	return f.Memory.Upsert(ctx, rec)
}

type brokenCatalog struct{}

func (brokenCatalog) Load(ctx context.Context) ([]model.Case, error) {
	return nil, fmt.Errorf("%w: file missing", model.ErrCatalogUnavailable)
}
