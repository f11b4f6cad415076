package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/stages"
)

const historyColumns = "id, period_id, from_stage, to_stage, at, days_in_previous_stage, actor_id, actor_name, actor_email, actor_role, note"

// AppendHistory inserts an immutable transition record. The entry's ID is
// assigned when empty.
func (s *Store) AppendHistory(ctx context.Context, entry *HistoryEntry) error {
	if entry == nil {
		return errors.New("history entry is nil")
	}
	if entry.ID == "" {
		entry.ID = newID()
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO period_history (
            id, period_id, from_stage, to_stage, at, days_in_previous_stage,
            actor_id, actor_name, actor_email, actor_role, note, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.PeriodID,
		nullableString(string(entry.FromStage)),
		string(entry.ToStage),
		formatTime(entry.At),
		nullableInt(entry.DaysInPreviousStage),
		entry.ActorID,
		entry.ActorName,
		entry.ActorEmail,
		string(entry.ActorRole),
		nullableString(entry.Note),
		formatTime(time.Now().UTC()),
	); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// LatestHistory returns the most recent transition for a period; nil when the
// period has no history yet.
func (s *Store) LatestHistory(ctx context.Context, periodID string) (*HistoryEntry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+historyColumns+` FROM period_history WHERE period_id = ? ORDER BY at DESC, created_at DESC LIMIT 1`,
		periodID,
	)
	entry, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest history: %w", err)
	}
	return entry, nil
}

// History returns all transitions for a period in chronological order.
func (s *Store) History(ctx context.Context, periodID string) ([]*HistoryEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+historyColumns+` FROM period_history WHERE period_id = ? ORDER BY at, created_at`,
		periodID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanHistory(scanner interface{ Scan(dest ...any) error }) (*HistoryEntry, error) {
	var (
		id         string
		periodID   string
		fromStage  sql.NullString
		toStage    string
		atRaw      sql.NullString
		days       sql.NullInt64
		actorID    string
		actorName  string
		actorEmail string
		actorRole  string
		note       sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&periodID,
		&fromStage,
		&toStage,
		&atRaw,
		&days,
		&actorID,
		&actorName,
		&actorEmail,
		&actorRole,
		&note,
	); err != nil {
		return nil, err
	}

	entry := &HistoryEntry{
		ID:         id,
		PeriodID:   periodID,
		FromStage:  stages.Stage(fromStage.String),
		ToStage:    stages.Stage(toStage),
		ActorID:    actorID,
		ActorName:  actorName,
		ActorEmail: actorEmail,
		ActorRole:  Role(actorRole),
		Note:       note.String,
	}
	if days.Valid {
		v := int(days.Int64)
		entry.DaysInPreviousStage = &v
	}
	if at, err := parseTimeString(atRaw.String); err == nil {
		entry.At = at
	}
	return entry, nil
}
