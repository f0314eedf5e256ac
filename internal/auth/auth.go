package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agenthands/ctreview/internal/config"
	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/agenthands/ctreview/internal/store"
)

const MinPasswordLength = 4

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidAccount     = errors.New("invalid account")
)

type Reviewer struct {
	ID       string `json:"reviewer_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Admin    bool   `json:"admin"`
}

func reviewerOf(a model.Account) Reviewer {
	name := a.Name
	if name == "" {
		name = a.Username
	}
	return Reviewer{ID: a.ID, Username: a.Username, Name: name, Admin: a.Admin}
}

// Directory authenticates reviewers against the account store and tracks
// the bearer tokens it has issued. Tokens live in memory only.
type Directory struct {
	Accounts store.AccountStore
	Logger   *slog.Logger
	// Cost is the bcrypt cost for passwords set through the directory.
	Cost int

	NewToken func() string
	NewID    func() string
	Now      func() time.Time
	// OnRevoke, when set, is called with every token the directory drops.
	OnRevoke func(token string)

	mu     sync.RWMutex
	tokens map[string]Reviewer
}

func NewDirectory(accounts store.AccountStore, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Directory{
		Accounts: accounts,
		Logger:   logger,
		Cost:     bcrypt.DefaultCost,
		NewToken: func() string { return uuid.New().String() },
		NewID:    func() string { return "reader_" + uuid.New().String() },
		Now:      time.Now,
		tokens:   make(map[string]Reviewer),
	}
}

// Seed creates the configured reviewers that do not exist yet. Accounts
// already in the store keep their runtime state.
func (d *Directory) Seed(ctx context.Context, reviewers []config.ReviewerConfig) (int, error) {
	created := 0
	for _, r := range reviewers {
		err := d.Accounts.CreateAccount(ctx, model.Account{
			ID:           r.ID,
			Username:     r.Username,
			Name:         r.Name,
			PasswordHash: r.PasswordHash,
			Admin:        r.Admin,
			Disabled:     r.Disabled,
			CreatedAt:    d.Now().UTC(),
		})
		switch {
		case errors.Is(err, model.ErrAccountExists):
			continue
		case err != nil:
			return created, fmt.Errorf("failed to seed reviewer %s: %w", r.ID, err)
		}
		created++
		d.Logger.Info("reviewer seeded", "reviewer", r.ID, "username", r.Username)
	}
	return created, nil
}

// Login checks a username and password and issues a new token. An
// unknown, disabled or mismatched account is ErrInvalidCredentials; a
// store failure is returned as is.
func (d *Directory) Login(ctx context.Context, username, password string) (string, Reviewer, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", Reviewer{}, ErrInvalidCredentials
	}

	acct, err := d.Accounts.AccountByUsername(ctx, username)
	if errors.Is(err, model.ErrAccountNotFound) {
		return "", Reviewer{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", Reviewer{}, fmt.Errorf("failed to look up reviewer: %w", err)
	}
	if acct.Disabled {
		return "", Reviewer{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", Reviewer{}, ErrInvalidCredentials
	}

	if err := d.Accounts.RecordLogin(ctx, acct.ID, d.Now().UTC()); err != nil {
		d.Logger.Warn("failed to record login", "reviewer", acct.ID, "error", err)
	}

	r := reviewerOf(acct)
	token := d.NewToken()
	d.mu.Lock()
	d.tokens[token] = r
	d.mu.Unlock()
	return token, r, nil
}

func (d *Directory) Lookup(token string) (Reviewer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.tokens[token]
	return r, ok
}

func (d *Directory) Logout(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tokens, token)
}

func (d *Directory) List(ctx context.Context) ([]model.Account, error) {
	return d.Accounts.ListAccounts(ctx)
}

type NewAccount struct {
	ID       string `json:"reviewer_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Admin    bool   `json:"admin"`
	Disabled bool   `json:"disabled"`
}

func (d *Directory) Create(ctx context.Context, req NewAccount) (model.Account, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return model.Account{}, fmt.Errorf("%w: username is required", ErrInvalidAccount)
	}
	hash, err := d.hash(req.Password)
	if err != nil {
		return model.Account{}, err
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = d.NewID()
	}

	acct := model.Account{
		ID:           id,
		Username:     username,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Admin:        req.Admin,
		Disabled:     req.Disabled,
		CreatedAt:    d.Now().UTC(),
	}
	if err := d.Accounts.CreateAccount(ctx, acct); err != nil {
		return model.Account{}, err
	}
	d.Logger.Info("reviewer created", "reviewer", acct.ID, "username", acct.Username, "admin", acct.Admin)
	return acct, nil
}

// AccountUpdate names the fields to change; nil fields are kept.
type AccountUpdate struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
	Admin    *bool   `json:"admin"`
	Disabled *bool   `json:"disabled"`
}

// Update applies u to the account. Disabling an account revokes its
// tokens; other changes are reflected in its live tokens.
func (d *Directory) Update(ctx context.Context, id string, u AccountUpdate) (model.Account, error) {
	acct, err := d.Accounts.Account(ctx, id)
	if err != nil {
		return model.Account{}, err
	}
	if u.Username != nil {
		username := strings.TrimSpace(*u.Username)
		if username == "" {
			return model.Account{}, fmt.Errorf("%w: username is required", ErrInvalidAccount)
		}
		acct.Username = username
	}
	if u.Name != nil {
		acct.Name = strings.TrimSpace(*u.Name)
	}
	if u.Password != nil {
		hash, err := d.hash(*u.Password)
		if err != nil {
			return model.Account{}, err
		}
		acct.PasswordHash = hash
	}
	if u.Admin != nil {
		acct.Admin = *u.Admin
	}
	if u.Disabled != nil {
		acct.Disabled = *u.Disabled
	}

	if err := d.Accounts.UpdateAccount(ctx, acct); err != nil {
		return model.Account{}, err
	}
	if acct.Disabled {
		d.revoke(acct.ID)
	} else {
		d.refresh(reviewerOf(acct))
	}
	d.Logger.Info("reviewer updated", "reviewer", acct.ID, "admin", acct.Admin, "disabled", acct.Disabled)
	return acct, nil
}

// Delete removes the account and revokes its tokens. Its results are
// kept.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if err := d.Accounts.DeleteAccount(ctx, id); err != nil {
		return err
	}
	d.revoke(id)
	d.Logger.Warn("reviewer deleted", "reviewer", id)
	return nil
}

func (d *Directory) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidAccount, MinPasswordLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), d.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func (d *Directory) revoke(id string) {
	var dropped []string
	d.mu.Lock()
	for token, r := range d.tokens {
		if r.ID == id {
			delete(d.tokens, token)
			dropped = append(dropped, token)
		}
	}
	d.mu.Unlock()

	if d.OnRevoke != nil {
		for _, token := range dropped {
			d.OnRevoke(token)
		}
	}
}

func (d *Directory) refresh(r Reviewer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for token, cur := range d.tokens {
		if cur.ID == r.ID {
			d.tokens[token] = r
		}
	}
}

// HashPassword returns a bcrypt hash suitable for a reviewer's
// password_hash config entry.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
