package session

import (
	"errors"

	"tableflip.dev/daynotes/pkg/authn"
	"tableflip.dev/daynotes/pkg/note"
)

type message struct{ az, en string }

func (m message) in(lang note.Locale) string {
	if lang == note.English {
		return m.en
	}
	return m.az
}

var (
	msgInvalidCredentials = message{"Email və ya şifrə yanlışdır", "Incorrect email or password"}
	msgRecentLogin        = message{
		"Təhlükəsizlik üçün yenidən giriş etməlisiniz. Lütfən çıxış edib yenidən giriş edin.",
		"For security you need to sign in again. Please sign out and sign back in.",
	}
	msgWrongPassword  = message{"Cari şifrə yanlışdır", "Current password is incorrect"}
	msgEmailInUse     = message{"Bu email artıq istifadə olunur", "This email is already in use"}
	msgWeakPassword   = message{"Şifrə ən azı 6 simvoldan ibarət olmalıdır", "Password must be at least 6 characters"}
	msgInvalidEmail   = message{"Email ünvanı düzgün deyil", "Email address is not valid"}
	msgNotSignedIn    = message{"İstifadəçi tapılmadı", "User not found"}
	msgPasswordFailed = message{"Şifrə dəyişdirilə bilmədi: ", "Password could not be changed: "}
	msgNameFailed     = message{"Ad dəyişdirilə bilmədi: ", "Name could not be changed: "}
	msgGeneric        = message{"Xəta baş verdi", "Something went wrong"}
)

// Message turns an error from a sign in or profile flow into the single
// line shown to the user.
func Message(err error, lang note.Locale) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, authn.ErrInvalidCredentials):
		return msgInvalidCredentials.in(lang)
	case errors.Is(err, authn.ErrRequiresRecentLogin):
		return msgRecentLogin.in(lang)
	case errors.Is(err, authn.ErrWrongPassword):
		return msgWrongPassword.in(lang)
	case errors.Is(err, authn.ErrEmailInUse):
		return msgEmailInUse.in(lang)
	case errors.Is(err, authn.ErrWeakPassword):
		return msgWeakPassword.in(lang)
	case errors.Is(err, authn.ErrInvalidEmail):
		return msgInvalidEmail.in(lang)
	case errors.Is(err, authn.ErrNotSignedIn):
		return msgNotSignedIn.in(lang)
	}
	var pe *ProfileError
	if errors.As(err, &pe) {
		if pe.Field == "name" {
			return msgNameFailed.in(lang) + pe.Err.Error()
		}
		return msgPasswordFailed.in(lang) + pe.Err.Error()
	}
	return msgGeneric.in(lang)
}
