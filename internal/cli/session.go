package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fluxstate/internal/app"
	"github.com/roach88/fluxstate/internal/auth"
	"github.com/roach88/fluxstate/internal/broadcast"
	"github.com/roach88/fluxstate/internal/store"
)

// PasswordEnv is read when --password is not given.
const PasswordEnv = "FLUXSTATE_PASSWORD"

// SessionOptions holds the flags shared by commands that run a session
// against the service.
type SessionOptions struct {
	*RootOptions
	Username string
	Password string
	Token    string
	API      string
}

func (o *SessionOptions) bindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Username, "user", "u", "", "log in as this user first")
	cmd.Flags().StringVar(&o.Password, "password", "", "password for --user (default $"+PasswordEnv+")")
	cmd.Flags().StringVar(&o.Token, "token", "", "use this session token instead of logging in")
	cmd.Flags().StringVar(&o.API, "api", "", "service base URL (overrides config)")
}

// withSession opens a session, logs in when --user is set, runs fn and
// closes the session.
func (o *SessionOptions) withSession(cmd *cobra.Command, fn func(*app.Session, *OutputFormatter) error) (err error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	if o.API != "" {
		c := *cfg
		c.API.BaseURL = o.API
		cfg = &c
	}

	sess, err := app.Open(cfg, o.logger())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open session", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = WrapExitError(ExitFailure, "failed to close session", cerr)
		}
	}()

	f := newFormatter(o.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	f.Session = sess.ID
	f.VerboseLog("session %s against %s", sess.ID, cfg.API.BaseURL)

	if err := o.login(cmd.Context(), sess); err != nil {
		return err
	}
	return fn(sess, f)
}

func (o *SessionOptions) login(ctx context.Context, sess *app.Session) error {
	if o.Username == "" {
		return nil
	}
	password := o.Password
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}

	sess.AuthActions.Login(auth.Credentials{Username: o.Username, Password: password})
	if err := sess.Auth.IsAuthenticated(ctx); err != nil {
		if sig := sess.Auth.Signal(); sig.Err != nil {
			err = sig.Err
		}
		return WrapExitError(ExitFailure, "login failed", err)
	}
	return nil
}

// token returns --token, or the token of the logged-in session.
func (o *SessionOptions) token(sess *app.Session) string {
	if o.Token != "" {
		return o.Token
	}
	return sess.Auth.Token()
}

// failed turns a store's Failed signal into an exit error.
func failed[S any](st *store.Store[S]) error {
	sig := st.Signal()
	if sig.State != broadcast.Failed {
		return nil
	}
	return WrapExitError(ExitFailure, st.Name()+" failed", sig.Err)
}
