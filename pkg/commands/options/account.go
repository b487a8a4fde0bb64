package options

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// EnvPassword is read when no --password flag is given.
const EnvPassword = "DAYNOTES_PASSWORD"

// AccountOptions
type AccountOptions struct {
	Email    string
	Password string
	Name     string
}

func AddAccountArgs(cmd *cobra.Command, o *AccountOptions, withName bool) {
	cmd.Flags().StringVarP(&o.Email, "email", "e", "",
		"Account email.")
	cmd.Flags().StringVarP(&o.Password, "password", "p", "",
		"Account password. Read from $"+EnvPassword+" or stdin when empty.")
	if withName {
		cmd.Flags().StringVarP(&o.Name, "name", "n", "",
			"Name shown in the journal.")
	}
	_ = cmd.MarkFlagRequired("email")
}

// ResolvePassword fills Password from the environment or one line of in.
func (o *AccountOptions) ResolvePassword(in io.Reader, prompt io.Writer) error {
	if o.Password != "" {
		return nil
	}
	if env := os.Getenv(EnvPassword); env != "" {
		o.Password = env
		return nil
	}
	pw, err := ReadSecret(in, prompt, "Password: ")
	if err != nil {
		return err
	}
	o.Password = pw
	return nil
}

// ReadSecret reads one line from in. On a terminal it prompts with label and
// turns echo off.
func ReadSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		_, _ = fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		if len(b) == 0 {
			return "", errors.New("password required")
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password required")
	}
	return line, nil
}

// ProfileOptions
type ProfileOptions struct {
	Name            string
	NewPassword     string
	CurrentPassword string
}

func AddProfileArgs(cmd *cobra.Command, o *ProfileOptions) {
	cmd.Flags().StringVarP(&o.Name, "name", "n", "",
		"New display name.")
	cmd.Flags().StringVar(&o.NewPassword, "new-password", "",
		"New password.")
	cmd.Flags().StringVar(&o.CurrentPassword, "current-password", "",
		"Current password, to confirm a password change.")
}
