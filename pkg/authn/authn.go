// Package authn is the account and sign-in collaborator. Provider is what
// sessions are built on; Local implements it over the document store with
// bcrypt password hashes and signed session tokens.
package authn

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials is returned when email and password do not match
	// an account.
	ErrInvalidCredentials = errors.New("authn: invalid email or password")

	// ErrEmailInUse is returned by SignUp for an email that already has an
	// account.
	ErrEmailInUse = errors.New("authn: email already in use")

	// ErrInvalidEmail is returned for addresses that are not of the form
	// name@domain.
	ErrInvalidEmail = errors.New("authn: invalid email")

	// ErrWeakPassword is returned for passwords shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("authn: password too weak")

	// ErrRequiresRecentLogin is returned by ChangePassword when the session
	// was authenticated too long ago. Reauthenticate and retry.
	ErrRequiresRecentLogin = errors.New("authn: requires recent login")

	// ErrWrongPassword is returned by Reauthenticate.
	ErrWrongPassword = errors.New("authn: wrong password")

	// ErrNotSignedIn is returned by operations on the current user when
	// there is none.
	ErrNotSignedIn = errors.New("authn: not signed in")

	// ErrInvalidToken is returned by Resume for tokens that are malformed,
	// expired or signed with another secret.
	ErrInvalidToken = errors.New("authn: invalid session token")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// User is a signed in account.
type User struct {
	UID         string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	// AuthTime is when the password was last verified for this session.
	AuthTime time.Time
	// Token resumes the session in a later process.
	Token string
}

// Provider signs users in and manages the current one.
type Provider interface {
	SignUp(ctx context.Context, email, password, displayName string) (User, error)
	SignIn(ctx context.Context, email, password string) (User, error)
	SignOut(ctx context.Context) error
	ChangePassword(ctx context.Context, newPassword string) error
	UpdateDisplayName(ctx context.Context, name string) error
	Reauthenticate(ctx context.Context, password string) error
	Resume(ctx context.Context, token string) (User, error)
	Current() (User, bool)
}
