package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/fluxstate/internal/app"
	"github.com/roach88/fluxstate/internal/users"
	"github.com/roach88/fluxstate/internal/view"
)

// accountView is the account command's output.
type accountView struct {
	ID          string `json:"id,omitempty"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// NewUsersCommand creates the users command.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List the user directory",
		Long: `Fetch the user directory from the service.

Example:
  fluxstate users --user alice`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(sess *app.Session, f *OutputFormatter) error {
				return listUsers(opts, sess, f)
			})
		},
	}
	opts.bindFlags(cmd)

	return cmd
}

// NewAccountCommand creates the account command.
func NewAccountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "account [id]",
		Short: "Show an account",
		Long: `Fetch one account from the service. Without an id, the account of
the logged-in user is shown.

Examples:
  fluxstate account --user alice
  fluxstate account 5f2a --token t1`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return opts.withSession(cmd, func(sess *app.Session, f *OutputFormatter) error {
				return showAccount(opts, id, sess, f)
			})
		},
	}
	opts.bindFlags(cmd)

	return cmd
}

func listUsers(opts *SessionOptions, sess *app.Session, f *OutputFormatter) error {
	sess.UserActions.GetUsers(opts.token(sess))
	sess.Wait()

	if err := failed(sess.Users.Store); err != nil {
		return err
	}

	dir := sess.Users.Users()
	names := make([]string, 0, len(dir))
	for name := range dir {
		names = append(names, name)
	}
	slices.Sort(names)

	list := make([]users.User, len(names))
	for i, name := range names {
		list[i] = dir[name]
	}

	return f.Render(list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, "No users.")
			return
		}
		for _, u := range list {
			fmt.Fprintf(w, "%-16s %s\n", u.Username, u.DisplayName)
		}
	})
}

func showAccount(opts *SessionOptions, id string, sess *app.Session, f *OutputFormatter) error {
	mv := view.NewMain(sess.Auth, sess.Account, sess.AuthActions)
	defer mv.Close()

	if id == "" {
		id = sess.Auth.State().Username
	}
	if id == "" {
		return NewExitError(ExitCommandError, "account id required when not logged in")
	}

	sess.AccountActions.GetAccount(id, opts.token(sess))
	sess.Wait()

	if err := failed(sess.Account.Store); err != nil {
		return err
	}

	acct := mv.Account()
	out := accountView{
		ID:          acct.ID,
		Username:    acct.Username,
		DisplayName: mv.DisplayName(),
		Email:       acct.Email,
	}
	return f.Render(out, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s)\n", out.DisplayName, out.Username)
		if out.Email != "" {
			fmt.Fprintf(w, "  email: %s\n", out.Email)
		}
		if out.ID != "" {
			fmt.Fprintf(w, "  id:    %s\n", out.ID)
		}
	})
}
