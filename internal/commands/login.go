package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"todosync/internal/auth"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
)

func init() {
	Register(&LoginCmd{})
	Register(&SignupCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email string
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return []string{"signin"} }
func (c *LoginCmd) Synopsis() string   { return "Sign in with email and password" }
func (c *LoginCmd) Usage() string      { return "todosync login [--email <address>]" }
func (c *LoginCmd) NeedsBackend() bool { return true }
func (c *LoginCmd) NeedsAuth() bool    { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if user, ok := env.Auth.CurrentUser(); ok {
		if !cfg.Quiet {
			fmt.Fprintf(out, "already signed in as %s\n", user.Email)
		}
		return exitcode.Success
	}
	return authenticate(ctx, cfg, env, args, c.email, env.Auth.SignIn, out, errOut)
}

// SignupCmd implements the signup command.
type SignupCmd struct {
	email string
}

func (c *SignupCmd) Name() string       { return "signup" }
func (c *SignupCmd) Aliases() []string  { return nil }
func (c *SignupCmd) Synopsis() string   { return "Create an account and sign in" }
func (c *SignupCmd) Usage() string      { return "todosync signup [--email <address>]" }
func (c *SignupCmd) NeedsBackend() bool { return true }
func (c *SignupCmd) NeedsAuth() bool    { return false }

func (c *SignupCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
}

func (c *SignupCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if user, ok := env.Auth.CurrentUser(); ok {
		fmt.Fprintf(errOut, "error: already signed in as %s (run: todosync logout)\n", user.Email)
		return exitcode.UserError
	}
	return authenticate(ctx, cfg, env, args, c.email, env.Auth.SignUp, out, errOut)
}

// authenticate collects credentials and passes them to signIn, which is
// either Gateway.SignIn or Gateway.SignUp.
func authenticate(ctx context.Context, cfg *config.Config, env *Env, args []string, email string,
	signIn func(context.Context, string, string) error, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}

	p := newPrompter(env.In, errOut)
	if email == "" {
		var err error
		if email, err = p.line("email"); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}
	password, err := p.password()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := signIn(ctx, email, password); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", env.Auth.State().Message)
		switch {
		case errors.Is(err, auth.ErrEmptyCredentials):
			return exitcode.UserError
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrEmailExists):
			return exitcode.AuthError
		default:
			return exitcode.BackendError
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
