package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/fluxstate/internal/action"
)

// ErrNoSessions is returned by LastSession on an empty journal.
var ErrNoSessions = errors.New("journal has no sessions")

// Entry is one journaled action.
type Entry struct {
	ID      string          `json:"id"`
	Session string          `json:"session"`
	Seq     int64           `json:"seq"`
	Type    action.Type     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Filter narrows a Read. Zero values match everything.
type Filter struct {
	Session string
	Types   []action.Type
	Limit   int
}

// Read returns journaled actions matching f, ordered by session insertion,
// then seq ASC, then id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) when nothing matches.
func (j *Journal) Read(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Session != "" {
		where = append(where, "a.session = ?")
		args = append(args, f.Session)
	}
	if len(f.Types) > 0 {
		marks := make([]string, len(f.Types))
		for i, t := range f.Types {
			marks[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, "a.type IN ("+strings.Join(marks, ", ")+")")
	}

	query := `
		SELECT a.id, a.session, a.seq, a.type, a.payload
		FROM actions a
		JOIN (SELECT session AS s, MIN(pos) AS first FROM actions GROUP BY session) o
		  ON o.s = a.session`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY o.first ASC, a.seq ASC, a.id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			typ     string
			payload string
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.Seq, &typ, &payload); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		e.Type = action.Type(typ)
		e.Payload = json.RawMessage(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return entries, nil
}

// Sessions returns every session in the journal, oldest first.
func (j *Journal) Sessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session FROM actions
		GROUP BY session
		ORDER BY MIN(pos) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LastSession returns the most recently started session.
// Returns ErrNoSessions if the journal is empty.
func (j *Journal) LastSession(ctx context.Context) (string, error) {
	var s string
	err := j.db.QueryRowContext(ctx, `
		SELECT session FROM actions
		GROUP BY session
		ORDER BY MIN(pos) DESC
		LIMIT 1
	`).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSessions
	}
	if err != nil {
		return "", fmt.Errorf("query last session: %w", err)
	}
	return s, nil
}
