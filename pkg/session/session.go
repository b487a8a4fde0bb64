// Package session owns the signed in user. A Manager turns provider sign-ins
// into a Context, caches it on the device for the next start and keeps the
// user's profile document in step.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tableflip.dev/daynotes/pkg/authn"
	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/kv"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/timeutil"
)

// DefaultName is shown for accounts without a name.
const DefaultName = "İstifadəçi"

// Profile document fields.
const (
	FieldEmail       = "email"
	FieldName        = "name"
	FieldCreatedAt   = "createdAt"
	FieldLastLogin   = "lastLogin"
	FieldLastUpdated = "lastUpdated"
)

// Context is the signed in user. It is created by sign up, sign in or auto
// login and discarded by sign out.
type Context struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt,omitempty"`
	LastLogin   string `json:"lastLogin,omitempty"`
	Token       string `json:"token,omitempty"`
}

// ProfileUpdate changes the current user. Empty fields are left alone.
type ProfileUpdate struct {
	Name string
	// CurrentPassword, when set, re-verifies the session before the
	// password change.
	CurrentPassword string
	NewPassword     string
}

// ProfileError reports which part of a profile update failed.
type ProfileError struct {
	Field string
	Err   error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("session: update %s: %v", e.Field, e.Err)
}

func (e *ProfileError) Unwrap() error { return e.Err }

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock profile times come from.
func WithClock(c timeutil.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager is the session of one device.
type Manager struct {
	auth   authn.Provider
	users  docstore.Collection
	local  kv.Store
	clock  timeutil.Clock
	logger *zap.Logger

	mu      sync.RWMutex
	current *Context
}

// NewManager returns a signed out Manager.
func NewManager(auth authn.Provider, store docstore.Store, local kv.Store, opts ...Option) *Manager {
	m := &Manager{
		auth:   auth,
		users:  store.Collection(docstore.UserPath),
		local:  local,
		clock:  timeutil.System,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("session")
	return m
}

// Current returns the signed in user.
func (m *Manager) Current() (Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Context{}, false
	}
	return *m.current, true
}

func (m *Manager) now() string {
	return note.FormatTime(m.clock.Now())
}

// SignUp creates an account and signs it in. Writing the profile document
// is best effort.
func (m *Manager) SignUp(ctx context.Context, name, email, password string) (Context, error) {
	name = strings.TrimSpace(name)
	u, err := m.auth.SignUp(ctx, email, password, name)
	if err != nil {
		return Context{}, err
	}
	sc := Context{
		UID:         u.UID,
		Email:       u.Email,
		Name:        name,
		DisplayName: name,
		CreatedAt:   m.now(),
		Token:       u.Token,
	}
	if err := m.users.Set(ctx, u.UID, docstore.Fields{
		FieldEmail:     sc.Email,
		FieldName:      sc.Name,
		FieldCreatedAt: sc.CreatedAt,
	}); err != nil {
		m.logger.Warn("profile document not created", zap.String("uid", u.UID), zap.Error(err))
	}
	m.establish(ctx, sc)
	return sc, nil
}

// SignIn verifies the credentials and restores the profile. The profile
// read and lastLogin write are best effort.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Context, error) {
	u, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		return Context{}, err
	}
	now := m.now()
	sc := Context{
		UID:         u.UID,
		Email:       u.Email,
		Name:        firstNonEmpty(u.DisplayName, DefaultName),
		DisplayName: firstNonEmpty(u.DisplayName, DefaultName),
		CreatedAt:   now,
		LastLogin:   now,
		Token:       u.Token,
	}

	doc, err := m.users.Get(ctx, u.UID)
	switch {
	case err == nil:
		name := firstNonEmpty(doc.Fields.String(FieldName), u.DisplayName, DefaultName)
		sc.Name, sc.DisplayName = name, name
		if created := doc.Fields.String(FieldCreatedAt); created != "" {
			sc.CreatedAt = created
		}
		if err := m.users.Set(ctx, u.UID, docstore.Fields{FieldLastLogin: now}, docstore.Merge()); err != nil {
			m.logger.Warn("lastLogin not recorded", zap.String("uid", u.UID), zap.Error(err))
		}
	case errors.Is(err, docstore.ErrNotFound):
		if err := m.users.Set(ctx, u.UID, docstore.Fields{
			FieldEmail:     sc.Email,
			FieldName:      sc.Name,
			FieldCreatedAt: sc.CreatedAt,
			FieldLastLogin: now,
		}); err != nil {
			m.logger.Warn("profile document not created", zap.String("uid", u.UID), zap.Error(err))
		}
	default:
		m.logger.Warn("profile not read, continuing with account data", zap.String("uid", u.UID), zap.Error(err))
	}

	m.establish(ctx, sc)
	return sc, nil
}

// AutoLogin restores the session cached by the last sign in on this device.
// It returns false, never an error, when there is nothing usable to restore.
func (m *Manager) AutoLogin(ctx context.Context) (Context, bool) {
	raw, ok, err := m.local.GetItem(ctx, kv.KeyUserData)
	if err != nil {
		m.logger.Warn("session cache unreadable", zap.Error(err))
		return Context{}, false
	}
	if !ok {
		return Context{}, false
	}
	var sc Context
	if err := json.Unmarshal([]byte(raw), &sc); err != nil || sc.UID == "" {
		m.logger.Warn("discarding corrupt session cache", zap.Error(err))
		m.forget(ctx)
		return Context{}, false
	}
	u, err := m.auth.Resume(ctx, sc.Token)
	if err != nil || u.UID != sc.UID {
		m.logger.Info("cached session no longer valid", zap.String("uid", sc.UID), zap.Error(err))
		m.forget(ctx)
		return Context{}, false
	}

	m.mu.Lock()
	m.current = &sc
	m.mu.Unlock()
	return sc, true
}

// SignOut clears the cached session and signs out of the provider. It
// always succeeds; failures are logged.
func (m *Manager) SignOut(ctx context.Context) {
	m.forget(ctx)
	if err := m.auth.SignOut(ctx); err != nil {
		m.logger.Warn("provider sign out failed", zap.Error(err))
	}
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// UpdateProfile changes the password first, then the name. Failures of
// either are returned as a *ProfileError. The profile document write that
// follows is best effort.
func (m *Manager) UpdateProfile(ctx context.Context, upd ProfileUpdate) (Context, error) {
	sc, ok := m.Current()
	if !ok {
		return Context{}, authn.ErrNotSignedIn
	}

	if upd.NewPassword != "" {
		if upd.CurrentPassword != "" {
			if err := m.auth.Reauthenticate(ctx, upd.CurrentPassword); err != nil {
				return Context{}, &ProfileError{Field: "password", Err: err}
			}
		}
		if err := m.auth.ChangePassword(ctx, upd.NewPassword); err != nil {
			return Context{}, &ProfileError{Field: "password", Err: err}
		}
		if u, ok := m.auth.Current(); ok && u.Token != "" {
			sc.Token = u.Token
		}
	}

	name := strings.TrimSpace(upd.Name)
	if name != "" && name != sc.Name {
		if err := m.auth.UpdateDisplayName(ctx, name); err != nil {
			return Context{}, &ProfileError{Field: "name", Err: err}
		}
		sc.Name, sc.DisplayName = name, name
	}

	m.establish(ctx, sc)

	fields := docstore.Fields{FieldLastUpdated: m.now()}
	if name != "" {
		fields[FieldName] = name
	}
	if err := m.users.Set(ctx, sc.UID, fields, docstore.Merge()); err != nil {
		m.logger.Warn("profile document not updated", zap.String("uid", sc.UID), zap.Error(err))
	}
	return sc, nil
}

// establish makes sc current and caches it on the device.
func (m *Manager) establish(ctx context.Context, sc Context) {
	m.mu.Lock()
	m.current = &sc
	m.mu.Unlock()

	data, err := json.Marshal(sc)
	if err != nil {
		m.logger.Warn("session not cached", zap.Error(err))
		return
	}
	if err := m.local.SetItem(ctx, kv.KeyUserData, string(data)); err != nil {
		m.logger.Warn("session not cached", zap.Error(err))
	}
}

func (m *Manager) forget(ctx context.Context) {
	if err := m.local.RemoveItem(ctx, kv.KeyUserData); err != nil {
		m.logger.Warn("session cache not cleared", zap.Error(err))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Since reports how long ago the session's last login was, when known.
func (c Context) Since(now time.Time) (time.Duration, bool) {
	t, err := note.ParseTime(c.LastLogin)
	if err != nil {
		return 0, false
	}
	return now.Sub(t), true
}
