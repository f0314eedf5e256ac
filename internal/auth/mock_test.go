package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/agenthands/ctreview/internal/store"
)

// FlakyAccounts is a memory store whose lookups or login stamps fail.
type FlakyAccounts struct {
	*store.Memory
	FailLookup bool
	FailLogin  bool
}

func (f *FlakyAccounts) AccountByUsername(ctx context.Context, username string) (model.Account, error) {
	if f.FailLookup {
		return model.Account{}, model.NewStoreError("get account", fmt.Errorf("connection refused"))
	}
	return f.Memory.AccountByUsername(ctx, username)
}

func (f *FlakyAccounts) RecordLogin(ctx context.Context, id string, at time.Time) error {
	if f.FailLogin {
		return model.NewStoreError("record login", fmt.Errorf("connection refused"))
	}
	return f.Memory.RecordLogin(ctx, id, at)
}
