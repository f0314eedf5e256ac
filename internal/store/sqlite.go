package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/agenthands/ctreview/internal/core/model"
)

var _ Backend = (*SQLite)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS results (
	task        TEXT    NOT NULL,
	reviewer_id TEXT    NOT NULL,
	case_id     TEXT    NOT NULL,
	value       TEXT    NOT NULL,
	comment     TEXT    NOT NULL DEFAULT '',
	image_ref   TEXT    NOT NULL DEFAULT '',
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (task, reviewer_id, case_id)
);

CREATE TABLE IF NOT EXISTS reviewers (
	id            TEXT    PRIMARY KEY,
	username      TEXT    NOT NULL UNIQUE,
	name          TEXT    NOT NULL DEFAULT '',
	password_hash TEXT    NOT NULL,
	admin         INTEGER NOT NULL DEFAULT 0,
	disabled      INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	last_login    INTEGER
);
`

const (
	sqliteUpsert = `INSERT INTO results
		(task, reviewer_id, case_id, value, comment, image_ref, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task, reviewer_id, case_id) DO UPDATE SET
			value = excluded.value,
			comment = excluded.comment,
			image_ref = excluded.image_ref,
			updated_at = excluded.updated_at`

	sqliteSelectColumns = `SELECT task, reviewer_id, case_id, value, comment, image_ref, updated_at FROM results`

	sqliteSelectAccounts = `SELECT id, username, name, password_hash, admin, disabled, created_at, last_login FROM reviewers`
)

type SQLiteConfig struct {
	// Path is the database file. Its parent directory must exist.
	Path string
	// PoolSize defaults to 4 when zero or negative.
	PoolSize int
	Logger   *slog.Logger
}

// SQLite stores results in a single table keyed by
// (task, reviewer_id, case_id).
type SQLite struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

func OpenSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: opening %s: %w", cfg.Path, err)
	}

	logger.Info("sqlite result store opened", "path", cfg.Path, "pool_size", poolSize)
	return &SQLite{pool: pool, logger: logger, path: cfg.Path}, nil
}

// prepareConnection applies the pragmas and schema once per pooled
// connection.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite store: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("sqlite store: schema: %w", err)
	}
	return nil
}

func (s *SQLite) FetchAll(ctx context.Context, task model.Task, reviewerID string) (map[string]model.ResultRecord, error) {
	out := make(map[string]model.ResultRecord)
	err := s.query(ctx, sqliteSelectColumns+` WHERE task = ? AND reviewer_id = ?`,
		[]any{string(task), reviewerID},
		func(rec model.ResultRecord) { out[rec.CaseID] = rec })
	if err != nil {
		return nil, model.NewStoreError("fetch", err)
	}
	return out, nil
}

func (s *SQLite) ListTask(ctx context.Context, task model.Task) ([]model.ResultRecord, error) {
	var out []model.ResultRecord
	err := s.query(ctx, sqliteSelectColumns+` WHERE task = ? ORDER BY reviewer_id, case_id`,
		[]any{string(task)},
		func(rec model.ResultRecord) { out = append(out, rec) })
	if err != nil {
		return nil, model.NewStoreError("list", err)
	}
	return out, nil
}

func (s *SQLite) Upsert(ctx context.Context, rec model.ResultRecord) error {
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	err := s.exec(ctx, sqliteUpsert, []any{
		string(rec.Task),
		rec.ReviewerID,
		rec.CaseID,
		rec.Value,
		rec.Comment,
		rec.ImageRef,
		updated.UnixMilli(),
	})
	return model.NewStoreError("upsert", err)
}

func (s *SQLite) DeleteAll(ctx context.Context, task model.Task, reviewerID string) error {
	err := s.exec(ctx, `DELETE FROM results WHERE task = ? AND reviewer_id = ?`, []any{string(task), reviewerID})
	return model.NewStoreError("delete", err)
}

func (s *SQLite) PurgeTask(ctx context.Context, task model.Task) error {
	err := s.exec(ctx, `DELETE FROM results WHERE task = ?`, []any{string(task)})
	return model.NewStoreError("purge", err)
}

func (s *SQLite) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("sqlite result store close error", "path", s.path, "error", err)
		return fmt.Errorf("sqlite store: closing %s: %w", s.path, err)
	}
	s.logger.Info("sqlite result store closed", "path", s.path)
	return nil
}

func (s *SQLite) exec(ctx context.Context, query string, args []any) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("take connection: %w", err)
	}
	defer s.pool.Put(conn)

	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args})
}

func (s *SQLite) query(ctx context.Context, query string, args []any, each func(model.ResultRecord)) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("take connection: %w", err)
	}
	defer s.pool.Put(conn)

	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			each(model.ResultRecord{
				Task:       model.Task(stmt.ColumnText(0)),
				ReviewerID: stmt.ColumnText(1),
				CaseID:     stmt.ColumnText(2),
				Value:      stmt.ColumnText(3),
				Comment:    stmt.ColumnText(4),
				ImageRef:   stmt.ColumnText(5),
				UpdatedAt:  time.UnixMilli(stmt.ColumnInt64(6)).UTC(),
			})
			return nil
		},
	})
}

func (s *SQLite) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var out []model.Account
	err := s.queryAccounts(ctx, sqliteSelectAccounts+` ORDER BY created_at, id`, nil,
		func(a model.Account) { out = append(out, a) })
	if err != nil {
		return nil, model.NewStoreError("list accounts", err)
	}
	return out, nil
}

func (s *SQLite) Account(ctx context.Context, id string) (model.Account, error) {
	return s.oneAccount(ctx, sqliteSelectAccounts+` WHERE id = ?`, id)
}

func (s *SQLite) AccountByUsername(ctx context.Context, username string) (model.Account, error) {
	return s.oneAccount(ctx, sqliteSelectAccounts+` WHERE username = ?`, username)
}

func (s *SQLite) CreateAccount(ctx context.Context, a model.Account) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.execChanges(ctx, `INSERT INTO reviewers
		(id, username, name, password_hash, admin, disabled, created_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`, []any{
		a.ID, a.Username, a.Name, a.PasswordHash,
		boolInt(a.Admin), boolInt(a.Disabled), created.UnixMilli(),
	})
	if isConstraint(err) {
		return fmt.Errorf("%w: %q (%s)", model.ErrAccountExists, a.ID, a.Username)
	}
	return model.NewStoreError("create account", err)
}

func (s *SQLite) UpdateAccount(ctx context.Context, a model.Account) error {
	n, err := s.execChanges(ctx, `UPDATE reviewers SET
		username = ?, name = ?, password_hash = ?, admin = ?, disabled = ?
		WHERE id = ?`, []any{
		a.Username, a.Name, a.PasswordHash, boolInt(a.Admin), boolInt(a.Disabled), a.ID,
	})
	if isConstraint(err) {
		return fmt.Errorf("%w: username %q", model.ErrAccountExists, a.Username)
	}
	if err != nil {
		return model.NewStoreError("update account", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", model.ErrAccountNotFound, a.ID)
	}
	return nil
}

func (s *SQLite) DeleteAccount(ctx context.Context, id string) error {
	n, err := s.execChanges(ctx, `DELETE FROM reviewers WHERE id = ?`, []any{id})
	if err != nil {
		return model.NewStoreError("delete account", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", model.ErrAccountNotFound, id)
	}
	return nil
}

func (s *SQLite) RecordLogin(ctx context.Context, id string, at time.Time) error {
	n, err := s.execChanges(ctx, `UPDATE reviewers SET last_login = ? WHERE id = ?`, []any{at.UnixMilli(), id})
	if err != nil {
		return model.NewStoreError("record login", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", model.ErrAccountNotFound, id)
	}
	return nil
}

func (s *SQLite) oneAccount(ctx context.Context, query, arg string) (model.Account, error) {
	var (
		out   model.Account
		found bool
	)
	err := s.queryAccounts(ctx, query, []any{arg}, func(a model.Account) {
		out, found = a, true
	})
	if err != nil {
		return model.Account{}, model.NewStoreError("get account", err)
	}
	if !found {
		return model.Account{}, fmt.Errorf("%w: %q", model.ErrAccountNotFound, arg)
	}
	return out, nil
}

// execChanges runs a statement and reports how many rows it touched.
func (s *SQLite) execChanges(ctx context.Context, query string, args []any) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("take connection: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return 0, err
	}
	return conn.Changes(), nil
}

func (s *SQLite) queryAccounts(ctx context.Context, query string, args []any, each func(model.Account)) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("take connection: %w", err)
	}
	defer s.pool.Put(conn)

	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			a := model.Account{
				ID:           stmt.ColumnText(0),
				Username:     stmt.ColumnText(1),
				Name:         stmt.ColumnText(2),
				PasswordHash: stmt.ColumnText(3),
				Admin:        stmt.ColumnInt64(4) != 0,
				Disabled:     stmt.ColumnInt64(5) != 0,
				CreatedAt:    time.UnixMilli(stmt.ColumnInt64(6)).UTC(),
			}
			if stmt.ColumnType(7) != sqlite.TypeNull {
				at := time.UnixMilli(stmt.ColumnInt64(7)).UTC()
				a.LastLogin = &at
			}
			each(a)
			return nil
		},
	})
}

func isConstraint(err error) bool {
	return err != nil && sqlite.ErrCode(err).ToPrimary() == sqlite.ResultConstraint
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
