package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oakfield-health/strikeplan/pkg/db"
)

// GetScenario retrieves one scenario with its reduction policy.
func (s *queries) GetScenario(ctx context.Context, id string) (*db.Scenario, error) {
	var sc db.Scenario
	var hospitalID *string
	err := s.q.QueryRow(ctx, `
		SELECT id, name, health_system_id, hospital_id, start_date, end_date, status, is_active, created_by, created_at
		FROM scenario
		WHERE id = $1
	`, id).Scan(&sc.ID, &sc.Name, &sc.HealthSystemID, &hospitalID, &sc.StartDate, &sc.EndDate, &sc.Status, &sc.IsActive, &sc.CreatedBy, &sc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scenario: %w", err)
	}
	if hospitalID != nil {
		sc.HospitalID = *hospitalID
	}

	rows, err := s.q.Query(ctx, `
		SELECT job_type_id, reduction_percent
		FROM scenario_job_type_reduction
		WHERE scenario_id = $1
		ORDER BY job_type_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenario reductions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r db.JobTypeReduction
		if err := rows.Scan(&r.JobTypeID, &r.ReductionPercent); err != nil {
			return nil, fmt.Errorf("failed to scan reduction: %w", err)
		}
		sc.Reductions = append(sc.Reductions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reductions: %w", err)
	}

	return &sc, nil
}

// InsertScenario inserts a scenario and its reduction policy.
func (s *queries) InsertScenario(ctx context.Context, sc *db.Scenario) error {
	var hospitalID *string
	if sc.HospitalID != "" {
		hospitalID = &sc.HospitalID
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO scenario (id, name, health_system_id, hospital_id, start_date, end_date, status, is_active, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, sc.ID, sc.Name, sc.HealthSystemID, hospitalID, sc.StartDate, sc.EndDate, sc.Status, sc.IsActive, sc.CreatedBy, sc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scenario: %w", err)
	}

	for _, r := range sc.Reductions {
		_, err := s.q.Exec(ctx, `
			INSERT INTO scenario_job_type_reduction (scenario_id, job_type_id, reduction_percent)
			VALUES ($1, $2, $3)
		`, sc.ID, r.JobTypeID, r.ReductionPercent)
		if err != nil {
			return fmt.Errorf("failed to insert reduction: %w", err)
		}
	}

	return nil
}

// DeleteScenario removes the scenario row and its reduction policy.
func (s *queries) DeleteScenario(ctx context.Context, id string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM scenario_job_type_reduction WHERE scenario_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete reductions: %w", err)
	}
	if _, err := s.q.Exec(ctx, `DELETE FROM scenario WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	return nil
}
