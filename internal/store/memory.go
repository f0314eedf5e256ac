package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agenthands/ctreview/internal/core/model"
)

var _ Backend = (*Memory)(nil)

// Memory is an in-process Backend. Nothing survives a restart.
type Memory struct {
	mu       sync.RWMutex
	records  map[model.RecordKey]model.ResultRecord
	accounts map[string]model.Account
}

func NewMemory() *Memory {
	return &Memory{
		records:  make(map[model.RecordKey]model.ResultRecord),
		accounts: make(map[string]model.Account),
	}
}

func (m *Memory) FetchAll(ctx context.Context, task model.Task, reviewerID string) (map[string]model.ResultRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.NewStoreError("fetch", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]model.ResultRecord)
	for k, rec := range m.records {
		if k.Task == task && k.ReviewerID == reviewerID {
			out[k.CaseID] = rec
		}
	}
	return out, nil
}

func (m *Memory) Upsert(ctx context.Context, rec model.ResultRecord) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError("upsert", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key()] = rec
	return nil
}

func (m *Memory) DeleteAll(ctx context.Context, task model.Task, reviewerID string) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError("delete", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.records {
		if k.Task == task && k.ReviewerID == reviewerID {
			delete(m.records, k)
		}
	}
	return nil
}

func (m *Memory) ListTask(ctx context.Context, task model.Task) ([]model.ResultRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.NewStoreError("list", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.ResultRecord
	for k, rec := range m.records {
		if k.Task == task {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (m *Memory) PurgeTask(ctx context.Context, task model.Task) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError("purge", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.records {
		if k.Task == task {
			delete(m.records, k)
		}
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func sortRecords(recs []model.ResultRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].ReviewerID != recs[j].ReviewerID {
			return recs[i].ReviewerID < recs[j].ReviewerID
		}
		return recs[i].CaseID < recs[j].CaseID
	})
}

func (m *Memory) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.NewStoreError("list accounts", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sortAccounts(out)
	return out, nil
}

func (m *Memory) Account(ctx context.Context, id string) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, model.NewStoreError("get account", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return model.Account{}, fmt.Errorf("%w: %q", model.ErrAccountNotFound, id)
	}
	return a, nil
}

func (m *Memory) AccountByUsername(ctx context.Context, username string) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, model.NewStoreError("get account", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return model.Account{}, fmt.Errorf("%w: username %q", model.ErrAccountNotFound, username)
}

func (m *Memory) CreateAccount(ctx context.Context, a model.Account) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError("create account", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; ok {
		return fmt.Errorf("%w: id %q", model.ErrAccountExists, a.ID)
	}
	if m.usernameTaken(a.Username, "") {
		return fmt.Errorf("%w: username %q", model.ErrAccountExists, a.Username)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) UpdateAccount(ctx context.Context, a model.Account) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError("update account", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.accounts[a.ID]
	if !ok {
		return fmt.Errorf("%w: %q", model.ErrAccountNotFound, a.ID)
	}
	if m.usernameTaken(a.Username, a.ID) {
		return fmt.Errorf("%w: username %q", model.ErrAccountExists, a.Username)
	}
	a.CreatedAt = prev.CreatedAt
	a.LastLogin = prev.LastLogin
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) DeleteAccount(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError("delete account", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return fmt.Errorf("%w: %q", model.ErrAccountNotFound, id)
	}
	delete(m.accounts, id)
	return nil
}

func (m *Memory) RecordLogin(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return model.NewStoreError("record login", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %q", model.ErrAccountNotFound, id)
	}
	at = at.UTC()
	a.LastLogin = &at
	m.accounts[id] = a
	return nil
}

func (m *Memory) usernameTaken(username, exceptID string) bool {
	for id, a := range m.accounts {
		if a.Username == username && id != exceptID {
			return true
		}
	}
	return false
}

func sortAccounts(accts []model.Account) {
	sort.Slice(accts, func(i, j int) bool {
		if !accts[i].CreatedAt.Equal(accts[j].CreatedAt) {
			return accts[i].CreatedAt.Before(accts[j].CreatedAt)
		}
		return accts[i].ID < accts[j].ID
	})
}
