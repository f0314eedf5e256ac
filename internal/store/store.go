// Package store holds the result store adapters. Each adapter keeps at most
// one record per (task, reviewer, case) and reports transport failures as
// errors matching model.ErrStoreUnavailable.
package store

import (
	"context"
	"time"

	"github.com/agenthands/ctreview/internal/core/model"
)

type ResultStore interface {
	// FetchAll returns the reviewer's records for task keyed by case ID.
	FetchAll(ctx context.Context, task model.Task, reviewerID string) (map[string]model.ResultRecord, error)
	// Upsert replaces any record sharing rec's key.
	Upsert(ctx context.Context, rec model.ResultRecord) error
	// DeleteAll removes every record of the reviewer for task.
	DeleteAll(ctx context.Context, task model.Task, reviewerID string) error
	// ListTask returns every reviewer's records for task, ordered by
	// reviewer then case.
	ListTask(ctx context.Context, task model.Task) ([]model.ResultRecord, error)
	// PurgeTask removes every record for task.
	PurgeTask(ctx context.Context, task model.Task) error
	Close() error
}

// AccountStore persists reviewer accounts. Lookups of unknown accounts
// fail with model.ErrAccountNotFound; an id or username collision fails
// with model.ErrAccountExists.
type AccountStore interface {
	// ListAccounts returns every account, oldest first.
	ListAccounts(ctx context.Context) ([]model.Account, error)
	Account(ctx context.Context, id string) (model.Account, error)
	AccountByUsername(ctx context.Context, username string) (model.Account, error)
	CreateAccount(ctx context.Context, a model.Account) error
	// UpdateAccount replaces every stored field of the account with a.ID
	// except CreatedAt and LastLogin.
	UpdateAccount(ctx context.Context, a model.Account) error
	DeleteAccount(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// Backend is a store holding both results and accounts.
type Backend interface {
	ResultStore
	AccountStore
}
