package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// GetAssignment retrieves one assignment by id.
func (s *queries) GetAssignment(ctx context.Context, id string) (*db.ScenarioAssignment, error) {
	var a db.ScenarioAssignment
	err := s.q.QueryRow(ctx, `
		SELECT id, scenario_id, position_id, provider_id, status, assigned_at, assigned_by,
		       cancelled_at, cancelled_by, cancel_reason
		FROM scenario_assignment
		WHERE id = $1
	`, id).Scan(&a.ID, &a.ScenarioID, &a.PositionID, &a.ProviderID, &a.Status, &a.AssignedAt, &a.AssignedBy,
		&a.CancelledAt, &a.CancelledBy, &a.CancelReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment: %w", err)
	}
	return &a, nil
}

// LockProviderAssignments takes a transaction-scoped advisory lock on the
// (scenario, provider) pair. Row locks on positions cannot serialize two
// commits for the same provider on different positions, so every assignment
// write path locks the pair before scanning for conflicts.
func (s *queries) LockProviderAssignments(ctx context.Context, scenarioID, providerID string) error {
	_, err := s.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`, scenarioID, providerID)
	if err != nil {
		return fmt.Errorf("failed to lock provider assignments: %w", err)
	}
	return nil
}

// GetProviderAssignments returns the provider's non-cancelled assignments in
// a scenario joined with their positions' date and shift type, which is all
// the conflict rule compares.
func (s *queries) GetProviderAssignments(ctx context.Context, scenarioID, providerID string) ([]db.AssignmentSlot, error) {
	rows, err := s.q.Query(ctx, `
		SELECT a.id, a.position_id, p.date, p.shift_type, a.status
		FROM scenario_assignment a
		JOIN scenario_position p ON p.id = a.position_id
		WHERE a.scenario_id = $1 AND a.provider_id = $2 AND a.status <> $3
		ORDER BY p.date, p.shift_type
	`, scenarioID, providerID, model.AssignmentCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider assignments: %w", err)
	}
	defer rows.Close()

	var slots []db.AssignmentSlot
	for rows.Next() {
		var slot db.AssignmentSlot
		if err := rows.Scan(&slot.AssignmentID, &slot.PositionID, &slot.Date, &slot.ShiftType, &slot.Status); err != nil {
			return nil, fmt.Errorf("failed to scan assignment slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignment slots: %w", err)
	}
	return slots, nil
}

// InsertAssignment inserts a new assignment record.
func (s *queries) InsertAssignment(ctx context.Context, a *db.ScenarioAssignment) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO scenario_assignment (id, scenario_id, position_id, provider_id, status, assigned_at, assigned_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.ScenarioID, a.PositionID, a.ProviderID, a.Status, a.AssignedAt, a.AssignedBy)
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// UpdateAssignmentStatus sets an assignment's status.
func (s *queries) UpdateAssignmentStatus(ctx context.Context, id string, status model.AssignmentStatus) error {
	tag, err := s.q.Exec(ctx, `UPDATE scenario_assignment SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update assignment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// CancelAssignment marks an assignment cancelled with its cancellation
// metadata.
func (s *queries) CancelAssignment(ctx context.Context, id string, cancelledBy, reason string, at time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE scenario_assignment
		SET status = $2, cancelled_at = $3, cancelled_by = $4, cancel_reason = $5
		WHERE id = $1
	`, id, model.AssignmentCancelled, at, cancelledBy, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// CountNonCancelledAssignments counts a scenario's Active and Confirmed
// assignments.
func (s *queries) CountNonCancelledAssignments(ctx context.Context, scenarioID string) (int, error) {
	var count int
	err := s.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM scenario_assignment
		WHERE scenario_id = $1 AND status <> $2
	`, scenarioID, model.AssignmentCancelled).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

// DeleteScenarioAssignments removes every assignment of a scenario.
func (s *queries) DeleteScenarioAssignments(ctx context.Context, scenarioID string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM scenario_assignment WHERE scenario_id = $1`, scenarioID); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	return nil
}
