package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/fluxstate/internal/action"
)

// Append records a as published by session.
//
// Uses ON CONFLICT(id) DO NOTHING, so appending the same action twice is a
// no-op. The payload is stored as canonical JSON with secrets redacted.
func (j *Journal) Append(ctx context.Context, session string, a action.Action) error {
	if a.ID == "" {
		return fmt.Errorf("append %s: action has no id", a.Type)
	}

	payload, err := action.MarshalPayload(a.Payload)
	if err != nil {
		return fmt.Errorf("append %s: %w", a.ID, err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO actions (id, session, seq, type, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		a.ID,
		session,
		a.Seq,
		string(a.Type),
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append %s: %w", a.ID, err)
	}
	return nil
}
