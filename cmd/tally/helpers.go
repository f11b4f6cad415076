package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tally/internal/store"
)

const dateLayout = "2006-01-02"

func parseDateFlag(name, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("--%s is required", name)
	}
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, trimmed)
	}
	return parsed.UTC(), nil
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format(dateLayout)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveUser finds a user by id, email, or exact name.
func resolveUser(ctx context.Context, st *store.Store, ref string) (*store.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("user reference is required")
	}

	if user, err := st.GetUser(ctx, ref); err != nil {
		return nil, err
	} else if user != nil {
		return user, nil
	}

	users, err := st.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if strings.EqualFold(user.Email, ref) || user.Name == ref {
			return user, nil
		}
	}
	return nil, fmt.Errorf("no user matches %q", ref)
}

// resolveClient finds a client by id or short code.
func resolveClient(ctx context.Context, st *store.Store, ref string) (*store.Client, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("client reference is required")
	}

	if client, err := st.GetClient(ctx, ref); err != nil {
		return nil, err
	} else if client != nil {
		return client, nil
	}
	client, err := st.FindClientByCode(ctx, ref)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("no client matches %q", ref)
	}
	return client, nil
}

// resolvePeriod finds a period by full id or unique id prefix.
func resolvePeriod(ctx context.Context, st *store.Store, ref string) (*store.Period, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("period reference is required")
	}

	if period, err := st.GetPeriod(ctx, ref); err != nil {
		return nil, err
	} else if period != nil {
		return period, nil
	}

	periods, err := st.ListPeriods(ctx, "")
	if err != nil {
		return nil, err
	}
	var match *store.Period
	for _, period := range periods {
		if strings.HasPrefix(period.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("period reference %q is ambiguous", ref)
			}
			match = period
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no period matches %q", ref)
	}
	return match, nil
}

func userNameByID(ctx context.Context, st *store.Store, id string) string {
	if id == "" {
		return "-"
	}
	user, err := st.GetUser(ctx, id)
	if err != nil || user == nil {
		return shortID(id)
	}
	return user.Name
}
