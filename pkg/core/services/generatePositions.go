package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/core/scheduling"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// GeneratePositionsResult contains the aggregate counts of one generation run.
type GeneratePositionsResult struct {
	TotalPositions   int
	AffectedServices int
	TotalDays        int
}

// GeneratePositionsStore defines the database operations needed to generate
// scenario positions.
type GeneratePositionsStore interface {
	db.TxRunner
	GetScenario(ctx context.Context, id string) (*db.Scenario, error)
	GetServicesInScope(ctx context.Context, healthSystemID, hospitalID string) ([]model.Service, error)
	GetServiceJobTypeConfigs(ctx context.Context, serviceID string) ([]model.ServiceJobTypeConfig, error)
	GetDepartment(ctx context.Context, id string) (*model.Department, error)
	GetHospital(ctx context.Context, id string) (*model.Hospital, error)
	GetJobType(ctx context.Context, id string) (*model.JobType, error)
}

// GeneratePositions expands a draft scenario's staffing templates into one
// position row per (service, job type, date, shift type, sequence).
//
// Only job types named in the scenario's reduction list are expanded; a 0%
// entry is the way to include an unaffected job type at full headcount.
// Regeneration deletes every existing position for the scenario and re-runs
// from the templates, so two runs over identical inputs produce an identical
// position set. Never reconciles in place.
func GeneratePositions(
	ctx context.Context,
	store GeneratePositionsStore,
	audit AuditRecorder,
	logger *zap.Logger,
	actor model.Actor,
	scenarioID string,
) (*GeneratePositionsResult, error) {
	logger.Debug("Starting generatePositions", zap.String("scenario_id", scenarioID))

	// Step 1: Fetch and validate the scenario
	scenario, err := store.GetScenario(ctx, scenarioID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, NotFoundf("scenario %s not found", scenarioID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scenario: %w", err)
	}

	if !scenario.Status.AllowsRegeneration() {
		return nil, InvalidStatef("positions can only be generated while the scenario is in Draft status (current: %s)", scenario.Status)
	}
	if scenario.EndDate.Before(scenario.StartDate) {
		return nil, Validationf("scenario start date must not be after end date")
	}
	if len(scenario.Reductions) == 0 {
		return nil, Validationf("scenario has no job type reductions configured")
	}
	for _, r := range scenario.Reductions {
		if r.ReductionPercent < 0 || r.ReductionPercent > 100 {
			return nil, Validationf("reduction percent for job type %s must be between 0 and 100", r.JobTypeID)
		}
	}

	// Step 2: Expand the date range
	days, err := scheduling.ExpandDateRange(scenario.StartDate, scenario.EndDate)
	if err != nil {
		return nil, Validationf("invalid scenario date range: %v", err)
	}
	logger.Debug("Expanded date range", zap.Int("days", len(days)))

	// Step 3: Fetch active services in scope
	svcs, err := store.GetServicesInScope(ctx, scenario.HealthSystemID, scenario.HospitalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch services in scope: %w", err)
	}
	logger.Debug("Found services in scope", zap.Int("count", len(svcs)))

	// Step 4: Materialize positions per service/config/day/shift
	refs := newReferenceCache(store)
	var positions []db.ScenarioPosition
	affected := make(map[string]bool)

	for _, svc := range svcs {
		if !svc.Active {
			continue
		}

		configs, err := store.GetServiceJobTypeConfigs(ctx, svc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch configs for service %s: %w", svc.ID, err)
		}

		for _, cfg := range configs {
			reduction, ok := scenario.ReductionFor(cfg.JobTypeID)
			if !ok {
				// Job type not part of the strike policy.
				continue
			}

			resolved := scheduling.EffectiveShiftConfig(cfg, svc)

			generated, err := expandConfig(ctx, refs, scenario, svc, resolved, days, reduction)
			if err != nil {
				return nil, err
			}
			if len(generated) > 0 {
				affected[svc.ID] = true
				positions = append(positions, generated...)
			}
		}
	}

	logger.Info("Materialized positions",
		zap.Int("total_positions", len(positions)),
		zap.Int("affected_services", len(affected)),
		zap.Int("total_days", len(days)))

	// Step 5: Replace the scenario's position set atomically
	err = store.InTx(ctx, func(tx db.Tx) error {
		if err := tx.DeleteScenarioPositions(ctx, scenario.ID); err != nil {
			return fmt.Errorf("failed to delete existing positions: %w", err)
		}
		if err := tx.InsertScenarioPositions(ctx, positions); err != nil {
			return fmt.Errorf("failed to insert positions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := audit.Record(ctx, actor, "generate_positions", "scenario", scenario.ID, map[string]string{
		"total_positions":   strconv.Itoa(len(positions)),
		"affected_services": strconv.Itoa(len(affected)),
		"total_days":        strconv.Itoa(len(days)),
	}); err != nil {
		logger.Warn("Failed to record audit entry", zap.Error(err))
	}

	return &GeneratePositionsResult{
		TotalPositions:   len(positions),
		AffectedServices: len(affected),
		TotalDays:        len(days),
	}, nil
}

// expandConfig emits the position rows for one resolved (service, job type)
// template across the scenario's days.
func expandConfig(
	ctx context.Context,
	refs *referenceCache,
	scenario *db.Scenario,
	svc model.Service,
	resolved scheduling.ResolvedShiftConfig,
	days []scheduling.ShiftDay,
	reduction int,
) ([]db.ScenarioPosition, error) {
	dept, err := refs.department(ctx, svc.DepartmentID)
	if err != nil {
		return nil, err
	}
	hospital, err := refs.hospital(ctx, svc.HospitalID)
	if err != nil {
		return nil, err
	}
	jobType, err := refs.jobType(ctx, resolved.JobTypeID)
	if err != nil {
		return nil, err
	}

	var positions []db.ScenarioPosition

	for _, day := range days {
		// A service closed on weekends gates both halves of the day.
		if day.Weekend && !svc.OperatesWeekends {
			continue
		}

		for _, shift := range []model.ShiftType{model.ShiftAM, model.ShiftPM} {
			if !resolved.Operates(shift) {
				continue
			}

			original := resolved.Headcount(shift, day.Weekend)
			headcount := scheduling.ScenarioHeadcount(original, reduction)
			window := resolved.Window(shift)

			for seq := 1; seq <= headcount; seq++ {
				positions = append(positions, db.ScenarioPosition{
					ID:                uuid.NewString(),
					ScenarioID:        scenario.ID,
					ServiceID:         svc.ID,
					JobTypeID:         resolved.JobTypeID,
					DepartmentID:      svc.DepartmentID,
					HospitalID:        svc.HospitalID,
					Date:              day.Date,
					ShiftType:         shift,
					StartTime:         window.Start,
					EndTime:           window.End,
					Sequence:          seq,
					JobCode:           scheduling.JobCode(dept.Name, hospital.Code, svc.Code, jobType.Code, day.Date, shift, seq),
					OriginalHeadcount: original,
					ScenarioHeadcount: headcount,
					Status:            model.PositionOpen,
					IsActive:          true,
				})
			}
		}
	}

	return positions, nil
}

// referenceCache memoizes the reference lookups generation repeats per
// service and job type.
type referenceCache struct {
	store       GeneratePositionsStore
	departments map[string]*model.Department
	hospitals   map[string]*model.Hospital
	jobTypes    map[string]*model.JobType
}

func newReferenceCache(store GeneratePositionsStore) *referenceCache {
	return &referenceCache{
		store:       store,
		departments: make(map[string]*model.Department),
		hospitals:   make(map[string]*model.Hospital),
		jobTypes:    make(map[string]*model.JobType),
	}
}

func (c *referenceCache) department(ctx context.Context, id string) (*model.Department, error) {
	if d, ok := c.departments[id]; ok {
		return d, nil
	}
	d, err := c.store.GetDepartment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch department %s: %w", id, err)
	}
	c.departments[id] = d
	return d, nil
}

func (c *referenceCache) hospital(ctx context.Context, id string) (*model.Hospital, error) {
	if h, ok := c.hospitals[id]; ok {
		return h, nil
	}
	h, err := c.store.GetHospital(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch hospital %s: %w", id, err)
	}
	c.hospitals[id] = h
	return h, nil
}

func (c *referenceCache) jobType(ctx context.Context, id string) (*model.JobType, error) {
	if j, ok := c.jobTypes[id]; ok {
		return j, nil
	}
	j, err := c.store.GetJobType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job type %s: %w", id, err)
	}
	c.jobTypes[id] = j
	return j, nil
}
