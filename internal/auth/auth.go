// Package auth handles login and registration on top of the forum data
// layer, including the lazy upgrade of legacy passwords to bcrypt.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"forumdata/internal/models"
	"forumdata/internal/ratelimit"
)

var (
	ErrAccountBanned   = errors.New("account is banned")
	ErrInvalidUsername = errors.New("username must be 4-20 letters, digits or underscores")
	ErrWeakPassword    = errors.New("password must be at least 8 characters with a letter and a digit")
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{4,20}$`)

// Result is the outcome of Login or Register. Failures carry a message for
// display and an error for errors.Is.
type Result struct {
	Success bool
	User    *models.User
	Message string
	Err     error
}

func failed(err error, msg string) Result {
	return Result{Message: msg, Err: err}
}

// Registration is the input to Register.
type Registration struct {
	Username string
	Nickname string
	Email    string
	Password string
	Avatar   string
}

// Engine authenticates users against a models.DB. It is safe for
// concurrent use.
type Engine struct {
	db      *models.DB
	limiter *ratelimit.Limiter
	log     *slog.Logger
	cost    int
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithCost sets the bcrypt cost for new and migrated credentials.
func WithCost(cost int) Option {
	return func(e *Engine) { e.cost = cost }
}

// New returns an Engine. A nil limiter disables rate limiting.
func New(db *models.DB, limiter *ratelimit.Limiter, opts ...Option) *Engine {
	e := &Engine{db: db, limiter: limiter, log: slog.Default(), cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Authenticate checks username and password and stamps lastLoginAt. A
// legacy credential that verifies is replaced by a bcrypt hash in the same
// write. The session pointer is left alone.
func (e *Engine) Authenticate(username, password string) Result {
	if err := e.allow(ratelimit.ActionLogin, username); err != nil {
		loginAttempts.WithLabelValues("limited").Inc()
		return failed(err, "too many login attempts, try again later")
	}

	u, err := e.db.UserByUsername(username)
	if err != nil {
		return failed(err, "login failed")
	}
	if u == nil {
		e.log.Warn("login failed", "username", username, "reason", "unknown user")
		loginAttempts.WithLabelValues("invalid").Inc()
		return failed(models.ErrInvalidCredentials, "invalid username or password")
	}

	cred := Parse(u.Password)
	if !cred.Verify(password) {
		e.log.Warn("login failed", "username", username, "user_id", u.ID, "reason", "wrong password")
		loginAttempts.WithLabelValues("invalid").Inc()
		return failed(models.ErrInvalidCredentials, "invalid username or password")
	}
	if u.Banned() {
		e.log.Warn("login refused", "username", username, "user_id", u.ID, "reason", "banned")
		loginAttempts.WithLabelValues("banned").Inc()
		return failed(ErrAccountBanned, "this account has been banned")
	}

	var swap *models.CredentialSwap
	if cred.Kind() == Legacy {
		upgraded, err := Migrate(cred, password, e.cost)
		if err != nil {
			return failed(fmt.Errorf("migrate credential: %w", err), "login failed")
		}
		swap = &models.CredentialSwap{Old: cred.String(), New: upgraded.String()}
	}

	u, err = e.db.RecordLogin(u.ID, swap)
	if err != nil {
		return failed(err, "login failed")
	}
	if u == nil {
		return failed(models.ErrInvalidCredentials, "invalid username or password")
	}
	if swap != nil {
		e.log.Info("migrated legacy credential", "user_id", u.ID)
		migrations.Inc()
	}
	loginAttempts.WithLabelValues("success").Inc()
	return Result{Success: true, User: u, Message: "login successful"}
}

// Login authenticates and then points the session at the user.
func (e *Engine) Login(username, password string) Result {
	res := e.Authenticate(username, password)
	if !res.Success {
		return res
	}
	if err := e.db.SetCurrentUser(res.User.ID); err != nil {
		return failed(err, "login failed")
	}
	e.log.Info("user logged in", "user_id", res.User.ID, "username", res.User.Username)
	return res
}

// Register creates the account and points the session at it.
func (e *Engine) Register(r Registration) Result {
	res := e.CreateAccount(r)
	if !res.Success {
		return res
	}
	if err := e.db.SetCurrentUser(res.User.ID); err != nil {
		return failed(err, "registration failed")
	}
	return res
}

// CreateAccount validates and stores a new account with a bcrypt
// credential. The session pointer is left alone, as with Authenticate.
func (e *Engine) CreateAccount(r Registration) Result {
	if err := e.allow(ratelimit.ActionRegister, r.Username); err != nil {
		registrations.WithLabelValues("limited").Inc()
		return failed(err, "too many registration attempts, try again later")
	}
	if !usernameRe.MatchString(r.Username) {
		registrations.WithLabelValues("invalid").Inc()
		return failed(ErrInvalidUsername, ErrInvalidUsername.Error())
	}
	if !strongPassword(r.Password) {
		registrations.WithLabelValues("invalid").Inc()
		return failed(ErrWeakPassword, ErrWeakPassword.Error())
	}

	cred, err := Hash(r.Password, e.cost)
	if err != nil {
		return failed(fmt.Errorf("hash password: %w", err), "registration failed")
	}
	nickname := r.Nickname
	if nickname == "" {
		nickname = r.Username
	}
	u, err := e.db.CreateUser(models.NewUser{
		Username: r.Username,
		Nickname: nickname,
		Email:    r.Email,
		Password: cred.String(),
		Avatar:   r.Avatar,
	})
	if errors.Is(err, models.ErrDuplicateUsername) {
		registrations.WithLabelValues("duplicate").Inc()
		return failed(err, "username already exists")
	}
	if err != nil {
		return failed(err, "registration failed")
	}
	registrations.WithLabelValues("success").Inc()
	e.log.Info("user registered", "user_id", u.ID, "username", u.Username)
	return Result{Success: true, User: u, Message: "registration successful"}
}

// Logout clears the session pointer. No entity is touched.
func (e *Engine) Logout() error {
	if u, err := e.db.CurrentUser(); err == nil && u != nil {
		e.log.Info("user logged out", "user_id", u.ID)
	}
	return e.db.ClearCurrentUser()
}

// Current returns the user the session points at, or nil.
func (e *Engine) Current() (*models.User, error) {
	return e.db.CurrentUser()
}

func (e *Engine) allow(action, principal string) error {
	if e.limiter == nil {
		return nil
	}
	if err := e.limiter.Allow(action, principal); err != nil {
		e.log.Warn("rate limited", "action", action, "principal", principal)
		return err
	}
	return nil
}

func strongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
