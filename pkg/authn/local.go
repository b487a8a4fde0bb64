package authn

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/timeutil"
)

// AccountsPath is the collection accounts are kept in.
const AccountsPath = "accounts"

const (
	fieldUID         = "uid"
	fieldEmail       = "email"
	fieldHash        = "passwordHash"
	fieldDisplayName = "displayName"
	fieldCreatedAt   = "createdAt"
)

// Defaults for Config.
const (
	DefaultRecentLogin = 5 * time.Minute
	DefaultTokenTTL    = 30 * 24 * time.Hour
)

// Config tunes a Local provider.
type Config struct {
	// Secret signs session tokens. Required.
	Secret string
	// RecentLogin is how long after a password check ChangePassword is
	// allowed.
	RecentLogin time.Duration
	// TokenTTL bounds how long a session token can be resumed.
	TokenTTL time.Duration
}

// Option configures a Local provider.
type Option func(*Local)

// WithClock sets the clock token times come from.
func WithClock(c timeutil.Clock) Option {
	return func(l *Local) { l.clock = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Local) { l.logger = logger }
}

// WithBcryptCost sets the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(l *Local) { l.cost = cost }
}

// Local keeps accounts in a document store collection keyed by email.
type Local struct {
	accounts docstore.Collection
	cfg      Config
	clock    timeutil.Clock
	logger   *zap.Logger
	cost     int
	tokens   tokens

	// signups serializes the existence check and write of SignUp.
	signups sync.Mutex

	mu      sync.RWMutex
	current *User
}

var _ Provider = (*Local)(nil)

// NewLocal returns a Local provider storing accounts in store.
func NewLocal(store docstore.Store, cfg Config, opts ...Option) (*Local, error) {
	if cfg.Secret == "" {
		return nil, errors.New("authn: token secret required")
	}
	if cfg.RecentLogin <= 0 {
		cfg.RecentLogin = DefaultRecentLogin
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	l := &Local{
		accounts: store.Collection(AccountsPath),
		cfg:      cfg,
		clock:    timeutil.System,
		logger:   zap.NewNop(),
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("authn")
	l.tokens = tokens{secret: []byte(cfg.Secret), ttl: cfg.TokenTTL, now: l.clock.Now}
	return l, nil
}

func accountID(email string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(normalizeEmail(email)))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

func (l *Local) SignUp(ctx context.Context, email, password, displayName string) (User, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return User{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return User{}, ErrWeakPassword
	}

	l.signups.Lock()
	defer l.signups.Unlock()

	id := accountID(email)
	if _, err := l.accounts.Get(ctx, id); err == nil {
		return User{}, ErrEmailInUse
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return User{}, fmt.Errorf("authn: look up account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return User{}, fmt.Errorf("authn: hash password: %w", err)
	}
	now := l.clock.Now()
	u := User{
		UID:         uuid.NewString(),
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   now,
		AuthTime:    now,
	}
	if err := l.accounts.Set(ctx, id, docstore.Fields{
		fieldUID:         u.UID,
		fieldEmail:       u.Email,
		fieldHash:        string(hash),
		fieldDisplayName: u.DisplayName,
		fieldCreatedAt:   now.UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return User{}, fmt.Errorf("authn: create account: %w", err)
	}
	l.logger.Info("account created", zap.String("uid", u.UID))
	return l.signIn(u)
}

func (l *Local) SignIn(ctx context.Context, email, password string) (User, error) {
	doc, err := l.accounts.Get(ctx, accountID(email))
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidID) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("authn: look up account: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(doc.Fields.String(fieldHash)), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	u := userFromAccount(doc)
	u.AuthTime = l.clock.Now()
	return l.signIn(u)
}

func (l *Local) signIn(u User) (User, error) {
	token, err := l.tokens.issue(u)
	if err != nil {
		return User{}, err
	}
	u.Token = token
	l.mu.Lock()
	l.current = &u
	l.mu.Unlock()
	return u, nil
}

func userFromAccount(doc docstore.Document) User {
	u := User{
		UID:         doc.Fields.String(fieldUID),
		Email:       doc.Fields.String(fieldEmail),
		DisplayName: doc.Fields.String(fieldDisplayName),
	}
	if t, err := time.Parse(time.RFC3339Nano, doc.Fields.String(fieldCreatedAt)); err == nil {
		u.CreatedAt = t
	}
	return u
}

func (l *Local) SignOut(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = nil
	return nil
}

func (l *Local) Current() (User, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.current == nil {
		return User{}, false
	}
	return *l.current, true
}

func (l *Local) ChangePassword(ctx context.Context, newPassword string) error {
	u, ok := l.Current()
	if !ok {
		return ErrNotSignedIn
	}
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	if l.clock.Now().Sub(u.AuthTime) > l.cfg.RecentLogin {
		return ErrRequiresRecentLogin
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), l.cost)
	if err != nil {
		return fmt.Errorf("authn: hash password: %w", err)
	}
	if err := l.accounts.Set(ctx, accountID(u.Email), docstore.Fields{fieldHash: string(hash)}, docstore.Merge()); err != nil {
		return fmt.Errorf("authn: update password: %w", err)
	}
	l.logger.Info("password changed", zap.String("uid", u.UID))
	return nil
}

func (l *Local) UpdateDisplayName(ctx context.Context, name string) error {
	u, ok := l.Current()
	if !ok {
		return ErrNotSignedIn
	}
	name = strings.TrimSpace(name)
	if err := l.accounts.Set(ctx, accountID(u.Email), docstore.Fields{fieldDisplayName: name}, docstore.Merge()); err != nil {
		return fmt.Errorf("authn: update display name: %w", err)
	}
	l.mu.Lock()
	if l.current != nil && l.current.UID == u.UID {
		l.current.DisplayName = name
	}
	l.mu.Unlock()
	return nil
}

func (l *Local) Reauthenticate(ctx context.Context, password string) error {
	u, ok := l.Current()
	if !ok {
		return ErrNotSignedIn
	}
	doc, err := l.accounts.Get(ctx, accountID(u.Email))
	if err != nil {
		return fmt.Errorf("authn: look up account: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(doc.Fields.String(fieldHash)), []byte(password)) != nil {
		return ErrWrongPassword
	}
	u.AuthTime = l.clock.Now()
	_, err = l.signIn(u)
	return err
}

// Resume restores the session a token was issued for. The account must
// still exist under the same uid.
func (l *Local) Resume(ctx context.Context, token string) (User, error) {
	claims, err := l.tokens.parse(token)
	if err != nil {
		return User{}, err
	}
	doc, err := l.accounts.Get(ctx, accountID(claims.Email))
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidID) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, fmt.Errorf("authn: look up account: %w", err)
	}
	u := userFromAccount(doc)
	if u.UID != claims.Subject {
		return User{}, ErrInvalidToken
	}
	u.AuthTime = time.Unix(claims.AuthTime, 0)
	u.Token = token
	l.mu.Lock()
	l.current = &u
	l.mu.Unlock()
	return u, nil
}
