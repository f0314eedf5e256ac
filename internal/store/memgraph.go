package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/ctreview/internal/core/model"
)

var _ Backend = (*Memgraph)(nil)

// Memgraph keeps one :Result node per (task, reviewer_id, case_id) and one
// :Reviewer node per account.
type Memgraph struct {
	driver GraphDriver
	logger *slog.Logger
}

func NewMemgraph(driver GraphDriver, logger *slog.Logger) *Memgraph {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Memgraph{driver: driver, logger: logger}
}

// BuildIndices creates the lookup indices and uniqueness constraints. Failures are logged and
// skipped since the index may already exist.
func (m *Memgraph) BuildIndices(ctx context.Context) error {
	for _, q := range resultIndexQueries {
		if _, err := m.driver.ExecuteQuery(ctx, q, nil); err != nil {
			m.logger.Warn("failed to create index", "query", q, "error", err)
		}
	}
	return nil
}

func (m *Memgraph) FetchAll(ctx context.Context, task model.Task, reviewerID string) (map[string]model.ResultRecord, error) {
	res, err := m.driver.ExecuteQuery(ctx, FetchReviewerResultsQuery, map[string]any{
		"task":        string(task),
		"reviewer_id": reviewerID,
	})
	if err != nil {
		return nil, model.NewStoreError("fetch", err)
	}

	out := make(map[string]model.ResultRecord, len(res.Records))
	for _, rec := range res.Records {
		r := recordFromRow(rec)
		out[r.CaseID] = r
	}
	return out, nil
}

func (m *Memgraph) ListTask(ctx context.Context, task model.Task) ([]model.ResultRecord, error) {
	res, err := m.driver.ExecuteQuery(ctx, ListTaskResultsQuery, map[string]any{"task": string(task)})
	if err != nil {
		return nil, model.NewStoreError("list", err)
	}

	out := make([]model.ResultRecord, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, recordFromRow(rec))
	}
	return out, nil
}

func (m *Memgraph) Upsert(ctx context.Context, rec model.ResultRecord) error {
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	params := map[string]any{
		"task":        string(rec.Task),
		"reviewer_id": rec.ReviewerID,
		"case_id":     rec.CaseID,
		"value":       rec.Value,
		"comment":     rec.Comment,
		"image_ref":   rec.ImageRef,
		"updated_at":  updated.UTC().Format(time.RFC3339),
	}
	_, err := m.driver.ExecuteQuery(ctx, UpsertResultQuery, params)
	return model.NewStoreError("upsert", err)
}

func (m *Memgraph) DeleteAll(ctx context.Context, task model.Task, reviewerID string) error {
	_, err := m.driver.ExecuteQuery(ctx, DeleteReviewerResultsQuery, map[string]any{
		"task":        string(task),
		"reviewer_id": reviewerID,
	})
	return model.NewStoreError("delete", err)
}

func (m *Memgraph) PurgeTask(ctx context.Context, task model.Task) error {
	_, err := m.driver.ExecuteQuery(ctx, PurgeTaskResultsQuery, map[string]any{"task": string(task)})
	return model.NewStoreError("purge", err)
}

func (m *Memgraph) Close() error {
	if err := m.driver.Close(context.Background()); err != nil {
		return fmt.Errorf("memgraph store: close: %w", err)
	}
	return nil
}

func recordFromRow(rec *neo4j.Record) model.ResultRecord {
	r := model.ResultRecord{
		Task:       model.Task(stringField(rec, "task")),
		ReviewerID: stringField(rec, "reviewer_id"),
		CaseID:     stringField(rec, "case_id"),
		Value:      stringField(rec, "value"),
		Comment:    stringField(rec, "comment"),
		ImageRef:   stringField(rec, "image_ref"),
	}
	if ts := stringField(rec, "updated_at"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			r.UpdatedAt = t
		}
	}
	return r
}

// stringField reads a string column, treating missing and null as "".
func stringField(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (m *Memgraph) ListAccounts(ctx context.Context) ([]model.Account, error) {
	res, err := m.driver.ExecuteQuery(ctx, ListAccountsQuery, nil)
	if err != nil {
		return nil, model.NewStoreError("list accounts", err)
	}
	out := make([]model.Account, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, accountFromRow(rec))
	}
	return out, nil
}

func (m *Memgraph) Account(ctx context.Context, id string) (model.Account, error) {
	return m.oneAccount(ctx, GetAccountQuery, map[string]any{"id": id}, id)
}

func (m *Memgraph) AccountByUsername(ctx context.Context, username string) (model.Account, error) {
	return m.oneAccount(ctx, GetAccountByUsernameQuery, map[string]any{"username": username}, username)
}

func (m *Memgraph) oneAccount(ctx context.Context, query string, params map[string]any, key string) (model.Account, error) {
	res, err := m.driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return model.Account{}, model.NewStoreError("get account", err)
	}
	if len(res.Records) == 0 {
		return model.Account{}, fmt.Errorf("%w: %q", model.ErrAccountNotFound, key)
	}
	return accountFromRow(res.Records[0]), nil
}

func (m *Memgraph) CreateAccount(ctx context.Context, a model.Account) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := m.driver.ExecuteQuery(ctx, CreateAccountQuery, map[string]any{
		"id":            a.ID,
		"username":      a.Username,
		"name":          a.Name,
		"password_hash": a.PasswordHash,
		"admin":         a.Admin,
		"disabled":      a.Disabled,
		"created_at":    created.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return model.NewStoreError("create account", err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("%w: %q (%s)", model.ErrAccountExists, a.ID, a.Username)
	}
	return nil
}

func (m *Memgraph) UpdateAccount(ctx context.Context, a model.Account) error {
	taken, err := m.driver.ExecuteQuery(ctx, UsernameTakenQuery, map[string]any{
		"id":       a.ID,
		"username": a.Username,
	})
	if err != nil {
		return model.NewStoreError("update account", err)
	}
	if len(taken.Records) > 0 {
		return fmt.Errorf("%w: username %q", model.ErrAccountExists, a.Username)
	}

	res, err := m.driver.ExecuteQuery(ctx, UpdateAccountQuery, map[string]any{
		"id":            a.ID,
		"username":      a.Username,
		"name":          a.Name,
		"password_hash": a.PasswordHash,
		"admin":         a.Admin,
		"disabled":      a.Disabled,
	})
	if err != nil {
		return model.NewStoreError("update account", err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("%w: %q", model.ErrAccountNotFound, a.ID)
	}
	return nil
}

func (m *Memgraph) DeleteAccount(ctx context.Context, id string) error {
	return m.touchAccount(ctx, "delete account", DeleteAccountQuery, map[string]any{"id": id})
}

func (m *Memgraph) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return m.touchAccount(ctx, "record login", RecordLoginQuery, map[string]any{
		"id":         id,
		"last_login": at.UTC().Format(time.RFC3339Nano),
	})
}

// touchAccount runs a query that returns the id of each account it hit.
func (m *Memgraph) touchAccount(ctx context.Context, op, query string, params map[string]any) error {
	res, err := m.driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return model.NewStoreError(op, err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("%w: %q", model.ErrAccountNotFound, params["id"])
	}
	return nil
}

func accountFromRow(rec *neo4j.Record) model.Account {
	a := model.Account{
		ID:           stringField(rec, "id"),
		Username:     stringField(rec, "username"),
		Name:         stringField(rec, "name"),
		PasswordHash: stringField(rec, "password_hash"),
		Admin:        boolField(rec, "admin"),
		Disabled:     boolField(rec, "disabled"),
	}
	if t, err := time.Parse(time.RFC3339Nano, stringField(rec, "created_at")); err == nil {
		a.CreatedAt = t
	}
	if ts := stringField(rec, "last_login"); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			a.LastLogin = &t
		}
	}
	return a
}

func boolField(rec *neo4j.Record, key string) bool {
	v, ok := rec.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
