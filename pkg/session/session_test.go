package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"tableflip.dev/daynotes/pkg/authn"
	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/kv"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/timeutil"
)

type env struct {
	clock *timeutil.Fake
	store docstore.Store
	local *kv.Memory
}

func newEnv() *env {
	return &env{
		clock: timeutil.NewFake(time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)),
		store: docstore.NewMemory(),
		local: kv.NewMemory(),
	}
}

func (e *env) provider(t *testing.T) *authn.Local {
	t.Helper()
	p, err := authn.NewLocal(e.store, authn.Config{Secret: "s3cret"},
		authn.WithClock(e.clock), authn.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return p
}

func (e *env) manager(t *testing.T, auth authn.Provider, store docstore.Store) *Manager {
	t.Helper()
	if auth == nil {
		auth = e.provider(t)
	}
	if store == nil {
		store = e.store
	}
	return NewManager(auth, store, e.local, WithClock(e.clock), WithLogger(zaptest.NewLogger(t)))
}

func (e *env) cached(t *testing.T) (Context, bool) {
	t.Helper()
	raw, ok, err := e.local.GetItem(context.Background(), kv.KeyUserData)
	require.NoError(t, err)
	if !ok {
		return Context{}, false
	}
	var sc Context
	require.NoError(t, json.Unmarshal([]byte(raw), &sc))
	return sc, true
}

func (e *env) profile(t *testing.T, uid string) docstore.Fields {
	t.Helper()
	doc, err := e.store.Collection(docstore.UserPath).Get(context.Background(), uid)
	require.NoError(t, err)
	return doc.Fields
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	m := e.manager(t, nil, nil)

	sc, err := m.SignUp(ctx, " Aysel ", "aysel@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Aysel", sc.Name)
	assert.Equal(t, "Aysel", sc.DisplayName)
	assert.NotEmpty(t, sc.Token)

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, sc, cur)

	cached, ok := e.cached(t)
	require.True(t, ok)
	assert.Equal(t, sc, cached)

	p := e.profile(t, sc.UID)
	assert.Equal(t, "aysel@example.com", p.String(FieldEmail))
	assert.Equal(t, "Aysel", p.String(FieldName))
	assert.Equal(t, "2024-03-14T09:00:00Z", p.String(FieldCreatedAt))
}

func TestSignUpSurvivesProfileFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	broken := docstore.NewMemory()
	require.NoError(t, broken.Close())
	m := e.manager(t, nil, broken)

	sc, err := m.SignUp(ctx, "A", "a@example.com", "secret1")
	require.NoError(t, err)
	_, ok := e.cached(t)
	assert.True(t, ok)
	assert.NotEmpty(t, sc.UID)
}

func TestSignUpErrorsPropagate(t *testing.T) {
	e := newEnv()
	m := e.manager(t, nil, nil)
	_, err := m.SignUp(context.Background(), "A", "a@example.com", "123")
	assert.ErrorIs(t, err, authn.ErrWeakPassword)
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestSignInRestoresProfile(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	m := e.manager(t, nil, nil)
	created, err := m.SignUp(ctx, "Aysel", "a@example.com", "secret1")
	require.NoError(t, err)
	m.SignOut(ctx)

	e.clock.Advance(24 * time.Hour)
	sc, err := m.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.UID, sc.UID)
	assert.Equal(t, "Aysel", sc.Name)
	assert.Equal(t, created.CreatedAt, sc.CreatedAt)
	assert.Equal(t, "2024-03-15T09:00:00Z", sc.LastLogin)

	p := e.profile(t, sc.UID)
	assert.Equal(t, "2024-03-15T09:00:00Z", p.String(FieldLastLogin))
	assert.Equal(t, "Aysel", p.String(FieldName), "merge keeps other fields")
}

func TestSignInCreatesMissingProfile(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	auth := e.provider(t)
	u, err := auth.SignUp(ctx, "a@example.com", "secret1", "")
	require.NoError(t, err)

	m := e.manager(t, auth, nil)
	sc, err := m.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, sc.Name)

	p := e.profile(t, u.UID)
	assert.Equal(t, DefaultName, p.String(FieldName))
	assert.Equal(t, "a@example.com", p.String(FieldEmail))
}

func TestSignInWrongPassword(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	m := e.manager(t, nil, nil)
	_, err := m.SignUp(ctx, "A", "a@example.com", "secret1")
	require.NoError(t, err)
	m.SignOut(ctx)

	_, err = m.SignIn(ctx, "a@example.com", "nope-nope")
	require.ErrorIs(t, err, authn.ErrInvalidCredentials)
	assert.Equal(t, "Email və ya şifrə yanlışdır", Message(err, note.Azerbaijani))
	_, ok := e.cached(t)
	assert.False(t, ok)
}

func TestAutoLogin(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	first := e.manager(t, nil, nil)
	sc, err := first.SignUp(ctx, "A", "a@example.com", "secret1")
	require.NoError(t, err)

	// Next start of the app on the same device.
	next := e.manager(t, nil, nil)
	got, ok := next.AutoLogin(ctx)
	require.True(t, ok)
	assert.Equal(t, sc, got)
	cur, ok := next.Current()
	require.True(t, ok)
	assert.Equal(t, sc.UID, cur.UID)
}

func TestAutoLoginNothingCached(t *testing.T) {
	e := newEnv()
	_, ok := e.manager(t, nil, nil).AutoLogin(context.Background())
	assert.False(t, ok)
}

func TestAutoLoginDiscardsCorruptCache(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	require.NoError(t, e.local.SetItem(ctx, kv.KeyUserData, "{not json"))

	_, ok := e.manager(t, nil, nil).AutoLogin(ctx)
	assert.False(t, ok)
	_, ok = e.cached(t)
	assert.False(t, ok)
}

func TestAutoLoginDiscardsRevokedSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	sc := Context{UID: "u1", Email: "ghost@example.com", Token: "forged"}
	data, err := json.Marshal(sc)
	require.NoError(t, err)
	require.NoError(t, e.local.SetItem(ctx, kv.KeyUserData, string(data)))

	_, ok := e.manager(t, nil, nil).AutoLogin(ctx)
	assert.False(t, ok)
	_, ok = e.cached(t)
	assert.False(t, ok)
}

type failingSignOut struct {
	authn.Provider
}

func (failingSignOut) SignOut(context.Context) error { return errors.New("network down") }

func TestSignOutAlwaysClearsSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	m := e.manager(t, failingSignOut{Provider: e.provider(t)}, nil)
	_, err := m.SignUp(ctx, "A", "a@example.com", "secret1")
	require.NoError(t, err)

	m.SignOut(ctx)
	_, ok := m.Current()
	assert.False(t, ok)
	_, ok = e.cached(t)
	assert.False(t, ok)
}

func TestUpdateProfileName(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	m := e.manager(t, nil, nil)
	sc, err := m.SignUp(ctx, "A", "a@example.com", "secret1")
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	updated, err := m.UpdateProfile(ctx, ProfileUpdate{Name: "Aysel"})
	require.NoError(t, err)
	assert.Equal(t, "Aysel", updated.Name)
	assert.Equal(t, sc.UID, updated.UID)

	cached, _ := e.cached(t)
	assert.Equal(t, "Aysel", cached.Name)
	p := e.profile(t, sc.UID)
	assert.Equal(t, "Aysel", p.String(FieldName))
	assert.Equal(t, "2024-03-14T10:00:00Z", p.String(FieldLastUpdated))
	assert.Equal(t, "a@example.com", p.String(FieldEmail))
}

func TestUpdateProfilePasswordNeedsRecentLogin(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	m := e.manager(t, nil, nil)
	_, err := m.SignUp(ctx, "A", "a@example.com", "secret1")
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	_, err = m.UpdateProfile(ctx, ProfileUpdate{NewPassword: "secret2", Name: "B"})
	require.ErrorIs(t, err, authn.ErrRequiresRecentLogin)
	var pe *ProfileError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "password", pe.Field)
	assert.Equal(t, "Təhlükəsizlik üçün yenidən giriş etməlisiniz. Lütfən çıxış edib yenidən giriş edin.",
		Message(err, note.Azerbaijani))
	cur, _ := m.Current()
	assert.Equal(t, "A", cur.Name, "name is not changed when the password step fails")

	_, err = m.UpdateProfile(ctx, ProfileUpdate{CurrentPassword: "wrong1", NewPassword: "secret2"})
	assert.Equal(t, "Cari şifrə yanlışdır", Message(err, note.Azerbaijani))

	_, err = m.UpdateProfile(ctx, ProfileUpdate{CurrentPassword: "secret1", NewPassword: "secret2"})
	require.NoError(t, err)

	m.SignOut(ctx)
	_, err = m.SignIn(ctx, "a@example.com", "secret2")
	assert.NoError(t, err)
}

func TestUpdateProfileSignedOut(t *testing.T) {
	e := newEnv()
	_, err := e.manager(t, nil, nil).UpdateProfile(context.Background(), ProfileUpdate{Name: "x"})
	assert.ErrorIs(t, err, authn.ErrNotSignedIn)
}

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		lang note.Locale
		want string
	}{
		{nil, note.Azerbaijani, ""},
		{authn.ErrInvalidCredentials, note.English, "Incorrect email or password"},
		{authn.ErrEmailInUse, note.Azerbaijani, "Bu email artıq istifadə olunur"},
		{&ProfileError{Field: "name", Err: errors.New("quota")}, note.Azerbaijani, "Ad dəyişdirilə bilmədi: quota"},
		{&ProfileError{Field: "password", Err: errors.New("offline")}, note.Azerbaijani, "Şifrə dəyişdirilə bilmədi: offline"},
		{&ProfileError{Field: "password", Err: authn.ErrWrongPassword}, note.English, "Current password is incorrect"},
		{errors.New("boom"), note.English, "Something went wrong"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Message(tc.err, tc.lang), "%v", tc.err)
	}
}

func TestContextSince(t *testing.T) {
	sc := Context{LastLogin: "2024-03-14T09:00:00Z"}
	d, ok := sc.Since(time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 3*time.Hour, d)
	_, ok = Context{}.Since(time.Now())
	assert.False(t, ok)
}
