package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/printers"
	"tableflip.dev/daynotes/pkg/session"
)

// userError carries the localized message shown for a failed sign in or
// profile change while keeping the cause for errors.Is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func explain(err error, lang note.Locale) error {
	if err == nil {
		return nil
	}
	return &userError{msg: session.Message(err, lang), err: err}
}

type SignUp struct {
	Sessions *session.Manager
	Locale   note.Locale
	Name     string
	Email    string
	Password string

	Printer printers.PrettyPrint
	JSON    bool
}

func (n *SignUp) Do(ctx context.Context) error {
	sc, err := n.Sessions.SignUp(ctx, n.Name, n.Email, n.Password)
	if err != nil {
		return explain(err, n.Locale)
	}
	return show(&n.Printer, n.JSON, sc, "Welcome, "+sc.DisplayName)
}

type Login struct {
	Sessions *session.Manager
	Locale   note.Locale
	Email    string
	Password string

	Printer printers.PrettyPrint
	JSON    bool
}

func (n *Login) Do(ctx context.Context) error {
	sc, err := n.Sessions.SignIn(ctx, n.Email, n.Password)
	if err != nil {
		return explain(err, n.Locale)
	}
	return show(&n.Printer, n.JSON, sc, "Signed in as "+sc.DisplayName)
}

type Logout struct {
	Sessions *session.Manager
}

func (n *Logout) Do(ctx context.Context) error {
	sc, ok := n.Sessions.AutoLogin(ctx)
	n.Sessions.SignOut(ctx)
	if ok {
		fmt.Printf("Signed out %s\n", sc.Email)
	} else {
		fmt.Println("Not signed in")
	}
	return nil
}

type WhoAmI struct {
	Sessions *session.Manager
	Now      func() time.Time

	Printer printers.PrettyPrint
	JSON    bool
}

var ErrSignedOut = errors.New("not signed in")

func (n *WhoAmI) Do(ctx context.Context) error {
	sc, ok := n.Sessions.AutoLogin(ctx)
	if !ok {
		return ErrSignedOut
	}
	if n.JSON {
		sc.Token = ""
		return n.Printer.JSON(sc)
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	n.Printer.Session(sc, now())
	return nil
}

type Profile struct {
	Sessions *session.Manager
	Locale   note.Locale
	Update   session.ProfileUpdate

	Printer printers.PrettyPrint
	JSON    bool
}

func (n *Profile) Do(ctx context.Context) error {
	if _, ok := n.Sessions.AutoLogin(ctx); !ok {
		return ErrSignedOut
	}
	if n.Update.Name == "" && n.Update.NewPassword == "" {
		return errors.New("nothing to change, pass --name or --new-password")
	}
	sc, err := n.Sessions.UpdateProfile(ctx, n.Update)
	if err != nil {
		return explain(err, n.Locale)
	}
	return show(&n.Printer, n.JSON, sc, "Profile updated")
}

func show(pp *printers.PrettyPrint, asJSON bool, sc session.Context, headline string) error {
	if asJSON {
		sc.Token = ""
		return pp.JSON(sc)
	}
	pp.Title(headline)
	pp.Session(sc, time.Now())
	return nil
}
