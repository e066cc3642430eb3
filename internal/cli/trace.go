package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Types    []string // optional - filter to specific action types
	Limit    int
	List     bool
}

// TraceEvent is one journaled action in the timeline.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session  string       `json:"session"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ByFeature   map[string]int `json:"by_feature"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journaled actions of a session",
		Long: `Show the actions a session dispatched, in delivery order.

Sessions are journaled when journal.path is set in the config. Credentials
are journaled without the password. The journal is diagnostic only: no
store state is ever restored from it.

Examples:
  fluxstate trace --db ./fluxstate.db
  fluxstate trace --db ./fluxstate.db --list
  fluxstate trace --db ./fluxstate.db --session 0192... --type tasks/get
  fluxstate trace --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal (default: journal.path from config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to trace (default: the most recent)")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "filter to these action types")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show at most this many actions")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list journaled sessions instead")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	path := opts.Database
	if path == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no journal: pass --db or set journal.path in the config")
	}

	types, err := parseTypes(opts.Types)
	if err != nil {
		return err
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must be non-negative")
	}

	j, err := journal.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()
	formatter.VerboseLog("journal %s", path)

	if opts.List {
		sessions, err := j.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		return formatter.Render(sessions, func(w io.Writer) {
			if len(sessions) == 0 {
				fmt.Fprintln(w, "No sessions recorded.")
				return
			}
			for _, s := range sessions {
				fmt.Fprintln(w, s)
			}
		})
	}

	session := opts.Session
	if session == "" {
		session, err = j.LastSession(ctx)
		if errors.Is(err, journal.ErrNoSessions) {
			return formatter.Render(TraceResult{Timeline: []TraceEvent{}, Stats: TraceStats{ByFeature: map[string]int{}}}, func(w io.Writer) {
				fmt.Fprintln(w, "No sessions recorded.")
			})
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find the last session", err)
		}
	}

	entries, err := j.Read(ctx, journal.Filter{Session: session, Types: types, Limit: opts.Limit})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result, err := buildTrace(session, entries)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode journal", err)
	}
	formatter.Session = session

	return formatter.Render(result, func(w io.Writer) {
		outputTraceText(w, result, opts.Verbose)
	})
}

func parseTypes(raw []string) ([]action.Type, error) {
	types := make([]action.Type, 0, len(raw))
	for _, s := range raw {
		t := action.Type(s)
		if !action.Known(t) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown action type %q: must be one of %v", s, action.All()))
		}
		types = append(types, t)
	}
	return types, nil
}

// buildTrace converts journal entries to timeline events.
func buildTrace(session string, entries []journal.Entry) (TraceResult, error) {
	result := TraceResult{
		Session:  session,
		Timeline: make([]TraceEvent, 0, len(entries)),
		Stats:    TraceStats{ByFeature: make(map[string]int)},
	}

	for _, e := range entries {
		var payload map[string]any
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return TraceResult{}, fmt.Errorf("action %s: %w", e.ID, err)
		}
		if len(payload) == 0 {
			payload = nil
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:     e.Seq,
			ID:      e.ID,
			Type:    string(e.Type),
			Payload: payload,
		})
		result.Stats.ByFeature[e.Type.Feature()]++
	}
	result.Stats.TotalEvents = len(result.Timeline)
	return result, nil
}

// outputTraceText writes the trace in human-readable form.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for session: %s\n", result.Session)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no actions)")
	}
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %s", ev.Seq, ev.Type)
		if len(ev.Payload) > 0 {
			fmt.Fprintf(w, " %s", formatArgs(ev.Payload))
		}
		fmt.Fprintln(w)
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", truncateID(ev.ID))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Actions: %d\n", result.Stats.TotalEvents)
	features := make([]string, 0, len(result.Stats.ByFeature))
	for f := range result.Stats.ByFeature {
		features = append(features, f)
	}
	sort.Strings(features)
	for _, f := range features {
		fmt.Fprintf(w, "  %-14s %d\n", f+":", result.Stats.ByFeature[f])
	}
}

// formatArgs formats a payload for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
