package dialogue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TranscriptStore archives finished sessions to PostgreSQL for long-term
// history. A nil store (or nil db) skips archiving entirely, which keeps
// local development free of a database dependency.
type TranscriptStore struct {
	db *sql.DB
}

// NewTranscriptStore creates a transcript store. Returns nil when db is nil.
func NewTranscriptStore(db *sql.DB) *TranscriptStore {
	if db == nil {
		return nil
	}
	return &TranscriptStore{db: db}
}

// TranscriptRecord is a session transcript row.
type TranscriptRecord struct {
	ID           uuid.UUID
	SessionID    string
	FinalState   string
	Topic        string
	BookingCode  string
	MessageCount int
	Transcript   json.RawMessage
	StartedAt    time.Time
	EndedAt      time.Time
}

// Archive writes the session's full transcript in one row. Safe to call on a
// nil store.
func (s *TranscriptStore) Archive(ctx context.Context, sess *Session) error {
	if s == nil || s.db == nil {
		return nil
	}

	transcript, err := json.Marshal(sess.Messages)
	if err != nil {
		return fmt.Errorf("dialogue: marshal transcript: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_transcripts
			(id, session_id, final_state, topic, booking_code, message_count, transcript, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			final_state = EXCLUDED.final_state,
			topic = EXCLUDED.topic,
			booking_code = EXCLUDED.booking_code,
			message_count = EXCLUDED.message_count,
			transcript = EXCLUDED.transcript,
			ended_at = EXCLUDED.ended_at`,
		uuid.New(), sess.ID, string(sess.State), string(sess.Topic), sess.BookingCode,
		len(sess.Messages), transcript, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("dialogue: archive transcript: %w", err)
	}
	return nil
}

// Get loads an archived transcript by session ID.
func (s *TranscriptStore) Get(ctx context.Context, sessionID string) (*TranscriptRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrSessionNotFound
	}

	var rec TranscriptRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, final_state, topic, booking_code, message_count, transcript, started_at, ended_at
		FROM session_transcripts
		WHERE session_id = $1`,
		sessionID,
	).Scan(&rec.ID, &rec.SessionID, &rec.FinalState, &rec.Topic, &rec.BookingCode,
		&rec.MessageCount, &rec.Transcript, &rec.StartedAt, &rec.EndedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dialogue: load transcript: %w", err)
	}
	return &rec, nil
}
