package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// CreateScenarioArgs is the validated input for a new scenario.
type CreateScenarioArgs struct {
	Name           string
	HealthSystemID string
	HospitalID     string // empty for a health-system-wide scenario
	StartDate      time.Time
	EndDate        time.Time
	Reductions     []db.JobTypeReduction
}

// CreateScenarioStore defines the operations needed to create a scenario.
type CreateScenarioStore interface {
	InsertScenario(ctx context.Context, sc *db.Scenario) error
	GetHospital(ctx context.Context, id string) (*model.Hospital, error)
	GetJobType(ctx context.Context, id string) (*model.JobType, error)
}

// CreateScenario creates a Draft scenario after validating its date range
// and reduction policy. Every referenced job type must exist and every
// percentage must be within 0 to 100; a zero percentage is a deliberate
// include-at-full-headcount entry, not a no-op.
func CreateScenario(
	ctx context.Context,
	store CreateScenarioStore,
	audit AuditRecorder,
	logger *zap.Logger,
	actor model.Actor,
	args CreateScenarioArgs,
) (*db.Scenario, error) {
	logger.Debug("Starting createScenario", zap.String("name", args.Name))

	if args.Name == "" {
		return nil, Validationf("scenario name is required")
	}
	if args.HealthSystemID == "" {
		return nil, Validationf("health system id is required")
	}
	if args.EndDate.Before(args.StartDate) {
		return nil, Validationf("end date %s is before start date %s",
			args.EndDate.Format("2006-01-02"), args.StartDate.Format("2006-01-02"))
	}
	if len(args.Reductions) == 0 {
		return nil, Validationf("at least one job type reduction is required")
	}

	if args.HospitalID != "" {
		if _, err := store.GetHospital(ctx, args.HospitalID); errors.Is(err, db.ErrNotFound) {
			return nil, NotFoundf("hospital %s not found", args.HospitalID)
		} else if err != nil {
			return nil, fmt.Errorf("failed to fetch hospital: %w", err)
		}
	}

	seen := make(map[string]bool, len(args.Reductions))
	for _, r := range args.Reductions {
		if r.ReductionPercent < 0 || r.ReductionPercent > 100 {
			return nil, Validationf("reduction percent %d for job type %s is out of range", r.ReductionPercent, r.JobTypeID)
		}
		if seen[r.JobTypeID] {
			return nil, Validationf("job type %s appears twice in the reduction list", r.JobTypeID)
		}
		seen[r.JobTypeID] = true
		if _, err := store.GetJobType(ctx, r.JobTypeID); errors.Is(err, db.ErrNotFound) {
			return nil, NotFoundf("job type %s not found", r.JobTypeID)
		} else if err != nil {
			return nil, fmt.Errorf("failed to fetch job type: %w", err)
		}
	}

	scenario := &db.Scenario{
		ID:             uuid.NewString(),
		Name:           args.Name,
		HealthSystemID: args.HealthSystemID,
		HospitalID:     args.HospitalID,
		StartDate:      args.StartDate,
		EndDate:        args.EndDate,
		Reductions:     args.Reductions,
		Status:         model.ScenarioDraft,
		IsActive:       true,
		CreatedBy:      actor.ID,
		CreatedAt:      time.Now(),
	}
	if err := store.InsertScenario(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to insert scenario: %w", err)
	}

	logger.Info("Scenario created",
		zap.String("scenario_id", scenario.ID),
		zap.String("name", scenario.Name))

	if err := audit.Record(ctx, actor, "create_scenario", "scenario", scenario.ID, map[string]string{
		"name": scenario.Name,
	}); err != nil {
		logger.Warn("Failed to record audit entry", zap.Error(err))
	}

	return scenario, nil
}
