package store

import (
	"context"
	"time"

	"github.com/agenthands/ctreview/internal/core/model"
)

// WithTimeout bounds every operation on inner by d. Any failure, including
// an expired deadline, is reported as model.ErrStoreUnavailable. A
// non-positive d returns inner unchanged.
func WithTimeout(inner Backend, d time.Duration) Backend {
	if d <= 0 {
		return inner
	}
	return &timeoutStore{inner: inner, timeout: d}
}

type timeoutStore struct {
	inner   Backend
	timeout time.Duration
}

func (t *timeoutStore) FetchAll(ctx context.Context, task model.Task, reviewerID string) (map[string]model.ResultRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	recs, err := t.inner.FetchAll(ctx, task, reviewerID)
	if err != nil {
		return nil, model.NewStoreError("fetch", err)
	}
	return recs, nil
}

func (t *timeoutStore) Upsert(ctx context.Context, rec model.ResultRecord) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return model.NewStoreError("upsert", t.inner.Upsert(ctx, rec))
}

func (t *timeoutStore) DeleteAll(ctx context.Context, task model.Task, reviewerID string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return model.NewStoreError("delete", t.inner.DeleteAll(ctx, task, reviewerID))
}

func (t *timeoutStore) ListTask(ctx context.Context, task model.Task) ([]model.ResultRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	recs, err := t.inner.ListTask(ctx, task)
	if err != nil {
		return nil, model.NewStoreError("list", err)
	}
	return recs, nil
}

func (t *timeoutStore) PurgeTask(ctx context.Context, task model.Task) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return model.NewStoreError("purge", t.inner.PurgeTask(ctx, task))
}

func (t *timeoutStore) Close() error {
	return t.inner.Close()
}

func (t *timeoutStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	accts, err := t.inner.ListAccounts(ctx)
	if err != nil {
		return nil, model.NewStoreError("list accounts", err)
	}
	return accts, nil
}

func (t *timeoutStore) Account(ctx context.Context, id string) (model.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	a, err := t.inner.Account(ctx, id)
	return a, model.NewStoreError("get account", err)
}

func (t *timeoutStore) AccountByUsername(ctx context.Context, username string) (model.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	a, err := t.inner.AccountByUsername(ctx, username)
	return a, model.NewStoreError("get account", err)
}

func (t *timeoutStore) CreateAccount(ctx context.Context, a model.Account) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return model.NewStoreError("create account", t.inner.CreateAccount(ctx, a))
}

func (t *timeoutStore) UpdateAccount(ctx context.Context, a model.Account) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return model.NewStoreError("update account", t.inner.UpdateAccount(ctx, a))
}

func (t *timeoutStore) DeleteAccount(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return model.NewStoreError("delete account", t.inner.DeleteAccount(ctx, id))
}

func (t *timeoutStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return model.NewStoreError("record login", t.inner.RecordLogin(ctx, id, at))
}
