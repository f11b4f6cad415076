package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tally/internal/stages"
)

const periodColumns = "id, client_id, family, period_start, period_end, filing_due, stage, completed, assignee_id, milestones_json, created_at, updated_at"

// CreatePeriod inserts a new filing period at the family's initial stage.
func (s *Store) CreatePeriod(ctx context.Context, clientID string, family stages.Family, start, end, due time.Time) (*Period, error) {
	if _, ok := stages.ParseFamily(string(family)); !ok {
		return nil, fmt.Errorf("unknown family %q", family)
	}
	if !end.After(start) {
		return nil, errors.New("period end must be after period start")
	}

	now := time.Now().UTC()
	period := &Period{
		ID:          newID(),
		ClientID:    clientID,
		Family:      family,
		PeriodStart: start,
		PeriodEnd:   end,
		FilingDue:   due,
		Stage:       stages.Initial(family),
		Milestones:  Milestones{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO periods (
            id, client_id, family, period_start, period_end, filing_due,
            stage, completed, assignee_id, milestones_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		period.ID,
		period.ClientID,
		string(period.Family),
		formatDate(period.PeriodStart),
		formatDate(period.PeriodEnd),
		formatDate(period.FilingDue),
		string(period.Stage),
		boolToInt(period.Completed),
		nullableString(period.AssigneeID),
		nil,
		formatTime(period.CreatedAt),
		formatTime(period.UpdatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert period: %w", err)
	}

	return period, nil
}

// GetPeriod fetches a period by identifier; nil when absent.
func (s *Store) GetPeriod(ctx context.Context, id string) (*Period, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+periodColumns+` FROM periods WHERE id = ?`, id)
	period, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get period: %w", err)
	}
	return period, nil
}

// UpdatePeriod persists changes to an existing period.
func (s *Store) UpdatePeriod(ctx context.Context, period *Period) error {
	if period == nil {
		return errors.New("period is nil")
	}

	var milestonesJSON any
	if len(period.Milestones) > 0 {
		data, err := json.Marshal(period.Milestones)
		if err != nil {
			return fmt.Errorf("marshal milestones: %w", err)
		}
		milestonesJSON = string(data)
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE periods
         SET stage = ?, completed = ?, assignee_id = ?, milestones_json = ?,
             filing_due = ?, updated_at = ?
         WHERE id = ?`,
		string(period.Stage),
		boolToInt(period.Completed),
		nullableString(period.AssigneeID),
		milestonesJSON,
		formatDate(period.FilingDue),
		formatTime(period.UpdatedAt),
		period.ID,
	); err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	return nil
}

// ListPeriods returns periods for a client (all clients when clientID is
// empty) ordered by period end.
func (s *Store) ListPeriods(ctx context.Context, clientID string) ([]*Period, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if clientID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+periodColumns+` FROM periods ORDER BY period_end, id`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+periodColumns+` FROM periods WHERE client_id = ? ORDER BY period_end, id`, clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()
	return collectPeriods(rows)
}

// PeriodsDueWithin returns incomplete periods whose filing due date falls on
// or before the horizon, ordered by due date.
func (s *Store) PeriodsDueWithin(ctx context.Context, now time.Time, days int) ([]*Period, error) {
	horizon := now.UTC().AddDate(0, 0, days)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+periodColumns+` FROM periods WHERE completed = 0 AND filing_due <= ? ORDER BY filing_due, id`,
		formatDate(horizon),
	)
	if err != nil {
		return nil, fmt.Errorf("query due periods: %w", err)
	}
	defer rows.Close()
	return collectPeriods(rows)
}

// AssignedSiblingPeriods returns sibling periods for the same client and
// family with a period end after the given date that still carry an assignee.
func (s *Store) AssignedSiblingPeriods(ctx context.Context, clientID string, family stages.Family, after time.Time, excludeID string) ([]*Period, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+periodColumns+` FROM periods
         WHERE client_id = ? AND family = ? AND period_end > ? AND id != ? AND assignee_id IS NOT NULL
         ORDER BY period_end, id`,
		clientID,
		string(family),
		formatDate(after),
		excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query assigned siblings: %w", err)
	}
	defer rows.Close()
	return collectPeriods(rows)
}

// UnassignFuturePeriods clears the assignee on every not-yet-elapsed sibling
// period for the same client and family. One set-based UPDATE so concurrent
// transitions for a client's siblings don't contend row by row.
func (s *Store) UnassignFuturePeriods(ctx context.Context, clientID string, family stages.Family, after time.Time, excludeID string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE periods
         SET assignee_id = NULL, updated_at = ?
         WHERE client_id = ? AND family = ? AND period_end > ? AND id != ? AND assignee_id IS NOT NULL`,
		formatTime(time.Now().UTC()),
		clientID,
		string(family),
		formatDate(after),
		excludeID,
	)
	if err != nil {
		return 0, fmt.Errorf("unassign future periods: %w", err)
	}
	return res.RowsAffected()
}

func collectPeriods(rows *sql.Rows) ([]*Period, error) {
	var periods []*Period
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

func scanPeriod(scanner interface{ Scan(dest ...any) error }) (*Period, error) {
	var (
		id         string
		clientID   string
		familyStr  string
		startRaw   sql.NullString
		endRaw     sql.NullString
		dueRaw     sql.NullString
		stageStr   string
		completed  sql.NullInt64
		assignee   sql.NullString
		milestones sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&clientID,
		&familyStr,
		&startRaw,
		&endRaw,
		&dueRaw,
		&stageStr,
		&completed,
		&assignee,
		&milestones,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	period := &Period{
		ID:         id,
		ClientID:   clientID,
		Family:     stages.Family(familyStr),
		Stage:      stages.Stage(stageStr),
		AssigneeID: assignee.String,
		Milestones: Milestones{},
	}
	if completed.Valid {
		period.Completed = completed.Int64 != 0
	}
	if milestones.Valid && milestones.String != "" {
		if err := json.Unmarshal([]byte(milestones.String), &period.Milestones); err != nil {
			return nil, fmt.Errorf("decode milestones: %w", err)
		}
	}

	if start, err := parseTimeString(startRaw.String); err == nil {
		period.PeriodStart = start
	}
	if end, err := parseTimeString(endRaw.String); err == nil {
		period.PeriodEnd = end
	}
	if due, err := parseTimeString(dueRaw.String); err == nil {
		period.FilingDue = due
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		period.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		period.UpdatedAt = updated
	}
	return period, nil
}
