package store

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/ctreview/internal/core/model"
)

type MockDriver struct {
	Queries     []string
	QueryParams []map[string]any
	MockResult  neo4j.EagerResult
	// Results, when set, are returned in order before falling back to
	// MockResult.
	Results []neo4j.EagerResult
	Err     error
	Closed  bool
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	m.Queries = append(m.Queries, query)
	m.QueryParams = append(m.QueryParams, params)
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	if len(m.Results) > 0 {
		res := m.Results[0]
		m.Results = m.Results[1:]
		return res, nil
	}
	return m.MockResult, nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	m.Closed = true
	return nil
}

func (m *MockDriver) LastParams() map[string]any {
	if len(m.QueryParams) == 0 {
		return nil
	}
	return m.QueryParams[len(m.QueryParams)-1]
}

// blockingStore waits for the context on every call.
type blockingStore struct {
	closed bool
}

func (b *blockingStore) FetchAll(ctx context.Context, task model.Task, reviewerID string) (map[string]model.ResultRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingStore) Upsert(ctx context.Context, rec model.ResultRecord) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingStore) DeleteAll(ctx context.Context, task model.Task, reviewerID string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingStore) ListTask(ctx context.Context, task model.Task) ([]model.ResultRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingStore) PurgeTask(ctx context.Context, task model.Task) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingStore) Close() error {
	b.closed = true
	return nil
}

func (b *blockingStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingStore) Account(ctx context.Context, id string) (model.Account, error) {
	<-ctx.Done()
	return model.Account{}, ctx.Err()
}

func (b *blockingStore) AccountByUsername(ctx context.Context, username string) (model.Account, error) {
	<-ctx.Done()
	return model.Account{}, ctx.Err()
}

func (b *blockingStore) CreateAccount(ctx context.Context, a model.Account) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingStore) UpdateAccount(ctx context.Context, a model.Account) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingStore) DeleteAccount(ctx context.Context, id string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	<-ctx.Done()
	return ctx.Err()
}
