package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fluxstate/internal/app"
	"github.com/roach88/fluxstate/internal/tasks"
	"github.com/roach88/fluxstate/internal/view"
)

// AddTaskOptions holds flags for the add-task command.
type AddTaskOptions struct {
	SessionOptions
	Description string
	Owner       string
	Done        bool
}

// UpdateTaskOptions holds flags for the update-task command.
type UpdateTaskOptions struct {
	SessionOptions
	Description string
	Done        bool
}

// taskRow is one line of task output.
type taskRow struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	OwnerName   string `json:"owner_name"`
	Done        bool   `json:"done"`
}

// NewTasksCommand creates the tasks command.
func NewTasksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks",
		Long: `Fetch the task list from the service.

Owners are shown by display name when the user directory can be fetched
with the same token.

Examples:
  fluxstate tasks --user alice
  fluxstate tasks --token t1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(sess *app.Session, f *OutputFormatter) error {
				return listTasks(opts, sess, f)
			})
		},
	}
	opts.bindFlags(cmd)

	return cmd
}

// NewAddTaskCommand creates the add-task command.
func NewAddTaskCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddTaskOptions{SessionOptions: SessionOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "add-task",
		Short: "Add a task",
		Long: `Add a task and print the refreshed task list.

Writes require a logged-in session, so --user is needed.

Example:
  fluxstate add-task --user alice --description "Build shed"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(sess *app.Session, f *OutputFormatter) error {
				return addTask(opts, sess, f)
			})
		},
	}
	opts.bindFlags(cmd)
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "task description (required)")
	_ = cmd.MarkFlagRequired("description")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "task owner (default: the logged-in user)")
	cmd.Flags().BoolVar(&opts.Done, "done", false, "mark the task done")

	return cmd
}

// NewUpdateTaskCommand creates the update-task command.
func NewUpdateTaskCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateTaskOptions{SessionOptions: SessionOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "update-task <id>",
		Short: "Update a task",
		Long: `Change the description or done flag of an existing task and print
the refreshed task list. Flags that are not given keep their value.

Example:
  fluxstate update-task 42 --user alice --done`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(sess *app.Session, f *OutputFormatter) error {
				return updateTask(cmd, opts, args[0], sess, f)
			})
		},
	}
	opts.bindFlags(cmd)
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "new description")
	cmd.Flags().BoolVar(&opts.Done, "done", false, "set the done flag")

	return cmd
}

func listTasks(opts *SessionOptions, sess *app.Session, f *OutputFormatter) error {
	tl := view.NewTaskList(sess.Auth, sess.Tasks, sess.Users)
	defer tl.Close()

	sess.TaskActions.GetTasks(opts.token(sess))
	fetchOwners(opts, sess)
	sess.Wait()

	if err := failed(sess.Tasks.Store); err != nil {
		return err
	}
	return renderTasks(f, tl)
}

func addTask(opts *AddTaskOptions, sess *app.Session, f *OutputFormatter) error {
	tl := view.NewTaskList(sess.Auth, sess.Tasks, sess.Users)
	defer tl.Close()

	owner := opts.Owner
	if owner == "" {
		owner = sess.Auth.State().Username
	}
	sess.TaskActions.AddTask(tasks.Task{
		Owner:       owner,
		Description: opts.Description,
		Done:        opts.Done,
	})
	fetchOwners(&opts.SessionOptions, sess)
	sess.Wait()

	if err := failed(sess.Tasks.Store); err != nil {
		return err
	}
	return renderTasks(f, tl)
}

func updateTask(cmd *cobra.Command, opts *UpdateTaskOptions, id string, sess *app.Session, f *OutputFormatter) error {
	tl := view.NewTaskList(sess.Auth, sess.Tasks, sess.Users)
	defer tl.Close()

	sess.TaskActions.GetTasks(opts.token(sess))
	sess.Wait()
	if err := failed(sess.Tasks.Store); err != nil {
		return err
	}

	t, ok := sess.Tasks.TaskByID(id)
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("task %s not found", id))
	}
	if cmd.Flags().Changed("description") {
		t.Description = opts.Description
	}
	if cmd.Flags().Changed("done") {
		t.Done = opts.Done
	}

	sess.TaskActions.UpdateTask(t)
	fetchOwners(&opts.SessionOptions, sess)
	sess.Wait()

	if err := failed(sess.Tasks.Store); err != nil {
		return err
	}
	return renderTasks(f, tl)
}

// fetchOwners loads the user directory so owners render by display name.
// A failure only costs the display names.
func fetchOwners(opts *SessionOptions, sess *app.Session) {
	token := opts.token(sess)
	if token == "" {
		return
	}
	sess.UserActions.GetUsers(token)
}

func renderTasks(f *OutputFormatter, tl *view.TaskList) error {
	if msg := tl.ErrorMessage(); msg != "" {
		f.VerboseLog("warning: %s", msg)
	}

	list := tl.Tasks()
	rows := make([]taskRow, len(list))
	for i, t := range list {
		rows[i] = taskRow{
			ID:          t.ID,
			Description: t.Description,
			Owner:       t.Owner,
			OwnerName:   tl.Owner(t),
			Done:        t.Done,
		}
	}

	return f.Render(rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "No tasks.")
			return
		}
		for _, r := range rows {
			mark := " "
			if r.Done {
				mark = "x"
			}
			fmt.Fprintf(w, "[%s] %s (%s)", mark, r.Description, r.OwnerName)
			if r.ID != "" {
				fmt.Fprintf(w, " #%s", r.ID)
			}
			fmt.Fprintln(w)
		}
	})
}
