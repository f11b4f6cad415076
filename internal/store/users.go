package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const userColumns = "id, name, email, role, active, created_at"

// CreateUser inserts a new active team member.
func (s *Store) CreateUser(ctx context.Context, name, email string, role Role) (*User, error) {
	if _, ok := roleSet[role]; !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	user := &User{
		ID:        newID(),
		Name:      name,
		Email:     email,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO users (id, name, email, role, active, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		string(user.Role),
		boolToInt(user.Active),
		formatTime(user.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetUser fetches a user by identifier; nil when absent.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

// ActiveUsersByRole returns active users holding any of the given roles. The
// ordering (name, then id) is stable so "first eligible" selections are
// deterministic.
func (s *Store) ActiveUsersByRole(ctx context.Context, roles ...Role) ([]*User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(roles))
	args := make([]any, len(roles))
	for i, role := range roles {
		args[i] = string(role)
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE active = 1 AND role IN (` + placeholders + `) ORDER BY name, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

// SetUserActive toggles a user's active flag.
func (s *Store) SetUserActive(ctx context.Context, id string, active bool) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE users SET active = ? WHERE id = ?`,
		boolToInt(active),
		id,
	); err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return nil
}

func collectUsers(rows *sql.Rows) ([]*User, error) {
	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		id         string
		name       string
		email      string
		roleStr    string
		active     sql.NullInt64
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &email, &roleStr, &active, &createdRaw); err != nil {
		return nil, err
	}
	user := &User{
		ID:    id,
		Name:  name,
		Email: email,
		Role:  Role(roleStr),
	}
	if active.Valid {
		user.Active = active.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		user.CreatedAt = created
	}
	return user, nil
}
