package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

const positionColumns = `
	id, scenario_id, service_id, job_type_id, department_id, hospital_id,
	date, shift_type, start_time, end_time, sequence, job_code,
	original_headcount, scenario_headcount, status, is_active`

func scanPosition(row pgx.Row) (*db.ScenarioPosition, error) {
	var p db.ScenarioPosition
	err := row.Scan(
		&p.ID, &p.ScenarioID, &p.ServiceID, &p.JobTypeID, &p.DepartmentID, &p.HospitalID,
		&p.Date, &p.ShiftType, &p.StartTime, &p.EndTime, &p.Sequence, &p.JobCode,
		&p.OriginalHeadcount, &p.ScenarioHeadcount, &p.Status, &p.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}
	return &p, nil
}

// GetScenarioPosition retrieves one position by id.
func (s *queries) GetScenarioPosition(ctx context.Context, id string) (*db.ScenarioPosition, error) {
	row := s.q.QueryRow(ctx, `SELECT`+positionColumns+` FROM scenario_position WHERE id = $1`, id)
	return scanPosition(row)
}

// GetPositionForUpdate retrieves one position and locks its row for the
// remainder of the enclosing transaction.
func (s *queries) GetPositionForUpdate(ctx context.Context, id string) (*db.ScenarioPosition, error) {
	row := s.q.QueryRow(ctx, `SELECT`+positionColumns+` FROM scenario_position WHERE id = $1 FOR UPDATE`, id)
	return scanPosition(row)
}

// GetScenarioOpenPositions retrieves a scenario's open, active positions for
// one job type.
func (s *queries) GetScenarioOpenPositions(ctx context.Context, scenarioID, jobTypeID string) ([]db.ScenarioPosition, error) {
	rows, err := s.q.Query(ctx, `
		SELECT`+positionColumns+`
		FROM scenario_position
		WHERE scenario_id = $1 AND job_type_id = $2 AND status = $3 AND is_active
		ORDER BY date, shift_type, sequence
	`, scenarioID, jobTypeID, model.PositionOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	var positions []db.ScenarioPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

// UpdatePositionStatus sets a position's status.
func (s *queries) UpdatePositionStatus(ctx context.Context, id string, status model.PositionStatus) error {
	tag, err := s.q.Exec(ctx, `UPDATE scenario_position SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update position status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// DeleteScenarioPositions removes every position of a scenario.
func (s *queries) DeleteScenarioPositions(ctx context.Context, scenarioID string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM scenario_position WHERE scenario_id = $1`, scenarioID); err != nil {
		return fmt.Errorf("failed to delete positions: %w", err)
	}
	return nil
}

// InsertScenarioPositions bulk-inserts generated positions.
func (s *queries) InsertScenarioPositions(ctx context.Context, positions []db.ScenarioPosition) error {
	for _, p := range positions {
		_, err := s.q.Exec(ctx, `
			INSERT INTO scenario_position (`+positionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`,
			p.ID, p.ScenarioID, p.ServiceID, p.JobTypeID, p.DepartmentID, p.HospitalID,
			p.Date, p.ShiftType, p.StartTime, p.EndTime, p.Sequence, p.JobCode,
			p.OriginalHeadcount, p.ScenarioHeadcount, p.Status, p.IsActive,
		)
		if err != nil {
			return fmt.Errorf("failed to insert position %s: %w", p.JobCode, err)
		}
	}
	return nil
}
