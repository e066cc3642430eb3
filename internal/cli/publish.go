package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/app"
	"github.com/roach88/fluxstate/internal/broadcast"
	"github.com/roach88/fluxstate/internal/store"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	SessionOptions
	Payload string
}

// storeSignal is one store's latest signal after a publish.
type storeSignal struct {
	Store string `json:"store"`
	State string `json:"state"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{SessionOptions: SessionOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "publish <action-type>",
		Short: "Publish one action and show every store's latest signal",
		Long: `Publish an arbitrary action on a fresh session's dispatcher, wait for
the stores to settle and print the latest signal of each store.

Example:
  fluxstate publish tasks/get --payload '{"token":"t1"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return publishAction(cmd, opts, args[0])
		},
	}
	opts.bindFlags(cmd)
	cmd.Flags().StringVar(&opts.Payload, "payload", "{}", "action payload as JSON")

	return cmd
}

func publishAction(cmd *cobra.Command, opts *PublishOptions, actionType string) error {
	t := action.Type(actionType)
	if !action.Known(t) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown action type %q: must be one of %v", actionType, action.All()))
	}

	var payload action.Payload
	if err := json.Unmarshal([]byte(opts.Payload), &payload); err != nil {
		return WrapExitError(ExitCommandError, "invalid --payload JSON", err)
	}

	return opts.withSession(cmd, func(sess *app.Session, f *OutputFormatter) error {
		if !sess.Dispatcher.Publish(action.New(t, payload)) {
			return NewExitError(ExitFailure, fmt.Sprintf("%s was not delivered", t))
		}
		sess.Wait()

		signals := []storeSignal{
			latest(sess.Auth.Store),
			latest(sess.Tasks.Store),
			latest(sess.Users.Store),
			latest(sess.Account.Store),
		}
		return f.Render(signals, func(w io.Writer) {
			for _, s := range signals {
				switch {
				case s.Error != "":
					fmt.Fprintf(w, "%-15s %-7s %s\n", s.Store, s.State, s.Error)
				case s.Value != nil:
					raw, _ := json.Marshal(s.Value)
					fmt.Fprintf(w, "%-15s %-7s %s\n", s.Store, s.State, raw)
				default:
					fmt.Fprintf(w, "%-15s %s\n", s.Store, s.State)
				}
			}
		})
	})
}

func latest[S any](st *store.Store[S]) storeSignal {
	sig := st.Signal()
	out := storeSignal{Store: st.Name(), State: sig.State.String()}
	switch {
	case sig.Err != nil:
		out.Error = sig.Err.Error()
	case sig.State == broadcast.Ready:
		out.Value = sig.Value
	}
	return out
}
