package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const clientColumns = "id, name, code, assigned_user_id, created_at"

// CreateClient inserts a new client with an optional general assignee and
// chase-team roster.
func (s *Store) CreateClient(ctx context.Context, name, code, assignedUserID string, chaseTeam []string) (*Client, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)
	if name == "" {
		return nil, errors.New("client name is required")
	}
	if code == "" {
		return nil, errors.New("client code is required")
	}

	client := &Client{
		ID:             newID(),
		Name:           name,
		Code:           code,
		AssignedUserID: assignedUserID,
		ChaseTeam:      append([]string(nil), chaseTeam...),
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO clients (id, name, code, assigned_user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		client.ID,
		client.Name,
		client.Code,
		nullableString(client.AssignedUserID),
		formatTime(client.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}

	for position, userID := range client.ChaseTeam {
		if err := s.execWithoutResultRetry(
			ctx,
			`INSERT INTO client_chase_team (client_id, user_id, position) VALUES (?, ?, ?)`,
			client.ID,
			userID,
			position,
		); err != nil {
			return nil, fmt.Errorf("insert chase team member: %w", err)
		}
	}

	return client, nil
}

// GetClient fetches a client (including its chase-team roster); nil when absent.
func (s *Store) GetClient(ctx context.Context, id string) (*Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	client, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if err := s.loadChaseTeam(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// FindClientByCode fetches a client by its short code; nil when absent.
func (s *Store) FindClientByCode(ctx context.Context, code string) (*Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE code = ?`, strings.TrimSpace(code))
	client, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find client by code: %w", err)
	}
	if err := s.loadChaseTeam(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// ListClients returns all clients ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]*Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, client := range clients {
		if err := s.loadChaseTeam(ctx, client); err != nil {
			return nil, err
		}
	}
	return clients, nil
}

// SetClientAssignee updates a client's general assigned user.
func (s *Store) SetClientAssignee(ctx context.Context, clientID, userID string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE clients SET assigned_user_id = ? WHERE id = ?`,
		nullableString(userID),
		clientID,
	); err != nil {
		return fmt.Errorf("set client assignee: %w", err)
	}
	return nil
}

func (s *Store) loadChaseTeam(ctx context.Context, client *Client) error {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT user_id FROM client_chase_team WHERE client_id = ? ORDER BY position`,
		client.ID,
	)
	if err != nil {
		return fmt.Errorf("load chase team: %w", err)
	}
	defer rows.Close()

	client.ChaseTeam = nil
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return err
		}
		client.ChaseTeam = append(client.ChaseTeam, userID)
	}
	return rows.Err()
}

func scanClient(scanner interface{ Scan(dest ...any) error }) (*Client, error) {
	var (
		id         string
		name       string
		code       string
		assignee   sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &code, &assignee, &createdRaw); err != nil {
		return nil, err
	}
	client := &Client{
		ID:             id,
		Name:           name,
		Code:           code,
		AssignedUserID: assignee.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		client.CreatedAt = created
	}
	return client, nil
}
