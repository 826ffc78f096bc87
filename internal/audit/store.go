package audit

import (
	"context"
	"log/slog"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// LogStore writes each event as a structured log line.
type LogStore struct {
	logger *slog.Logger
}

func NewLogStore(logger *slog.Logger) *LogStore {
	return &LogStore{logger: logger}
}

func (s *LogStore) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit event",
		"audit_id", event.ID,
		"action", string(event.Action),
		"identity_kind", event.IdentityKind,
		"subject_id_hash", event.SubjectIDHash,
		"outcome", string(event.Outcome),
		"request_id", event.RequestID,
		"timestamp", event.Timestamp,
	)
	return nil
}
