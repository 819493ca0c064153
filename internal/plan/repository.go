package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// StoredPlan is a persisted generation result.
type StoredPlan struct {
	ID        int64
	SessionID string
	Plan      WeekPlan
	CreatedAt time.Time
}

// Repository is a database-backed store for generated plans.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts a generated plan for a session.
func (r *Repository) Save(ctx context.Context, sessionID string, w *WeekPlan) error {
	planJSON, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO meal_plans (session_id, plan_data, created_at) VALUES (?, ?, ?)`,
		sessionID, string(planJSON), w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert meal plan: %w", err)
	}
	return nil
}

// ListRecent retrieves the N most recent plans for a session, newest first.
func (r *Repository) ListRecent(ctx context.Context, sessionID string, limit int) ([]StoredPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, plan_data, created_at
		 FROM meal_plans WHERE session_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var plans []StoredPlan
	for rows.Next() {
		var (
			stored   StoredPlan
			planJSON string
		)
		if err := rows.Scan(&stored.ID, &stored.SessionID, &planJSON, &stored.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan row: %w", err)
		}
		if err := json.Unmarshal([]byte(planJSON), &stored.Plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan %d: %w", stored.ID, err)
		}
		plans = append(plans, stored)
	}
	return plans, rows.Err()
}
