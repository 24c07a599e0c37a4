package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/matcher"
	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// FindMatchesResult contains the ranked candidate list for one open position.
// Eligible is false when the position cannot currently take matches (not
// Open, or deactivated); Matches is then empty.
type FindMatchesResult struct {
	Eligible bool
	Position *db.ScenarioPosition
	Matches  []matcher.RankedCandidate
}

// FindMatchesStore defines the read operations needed to rank candidates
// for a position.
type FindMatchesStore interface {
	GetScenarioPosition(ctx context.Context, id string) (*db.ScenarioPosition, error)
	GetServiceJobTypeConfig(ctx context.Context, serviceID, jobTypeID string) (*model.ServiceJobTypeConfig, error)
	GetProvidersByJobType(ctx context.Context, jobTypeID string) ([]model.Provider, error)
	GetProviderAvailability(ctx context.Context, providerID string, date time.Time) (*model.ProviderAvailability, error)
	GetProviderAssignments(ctx context.Context, scenarioID, providerID string) ([]db.AssignmentSlot, error)
	GetJobTypeByCode(ctx context.Context, code string) (*model.JobType, error)
}

// FindMatches loads a point-in-time snapshot of the provider pool for one
// position and ranks the eligible candidates. The result reflects state at
// call time only; CreateAssignment re-validates the conflict rule at commit,
// so staleness here is expected and safe.
func FindMatches(
	ctx context.Context,
	store FindMatchesStore,
	logger *zap.Logger,
	fellowJobTypeCode string,
	positionID string,
) (*FindMatchesResult, error) {
	logger.Debug("Starting findMatches", zap.String("position_id", positionID))

	position, err := store.GetScenarioPosition(ctx, positionID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, NotFoundf("position %s not found", positionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch position: %w", err)
	}

	if position.Status != model.PositionOpen || !position.IsActive {
		logger.Debug("Position not matchable",
			zap.String("position_id", positionID),
			zap.String("status", string(position.Status)))
		return &FindMatchesResult{Eligible: false, Position: position}, nil
	}

	rules, err := matchingRules(ctx, store, fellowJobTypeCode)
	if err != nil {
		return nil, err
	}

	matcherPos, err := matcherPosition(ctx, store, position)
	if err != nil {
		return nil, err
	}

	pool, err := loadProviderPool(ctx, store, position)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded provider pool", zap.Int("count", len(pool)))

	matches := matcher.FindCandidates(matcherPos, pool, rules)
	logger.Info("Ranked candidates",
		zap.String("position_id", positionID),
		zap.Int("eligible", len(matches)),
		zap.Int("pool", len(pool)))

	return &FindMatchesResult{
		Eligible: true,
		Position: position,
		Matches:  matches,
	}, nil
}

// matchingRules resolves the fellow job type code to an id. A code that
// does not exist in reference data disables the visa rule rather than
// failing matching outright.
func matchingRules(ctx context.Context, store FindMatchesStore, fellowJobTypeCode string) (matcher.Rules, error) {
	if fellowJobTypeCode == "" {
		return matcher.Rules{}, nil
	}
	jobType, err := store.GetJobTypeByCode(ctx, fellowJobTypeCode)
	if errors.Is(err, db.ErrNotFound) {
		return matcher.Rules{}, nil
	}
	if err != nil {
		return matcher.Rules{}, fmt.Errorf("failed to resolve fellow job type: %w", err)
	}
	return matcher.Rules{FellowJobTypeID: jobType.ID}, nil
}

// matcherPosition builds the matcher's view of a position, including its
// template's required skills.
func matcherPosition(ctx context.Context, store FindMatchesStore, position *db.ScenarioPosition) (matcher.Position, error) {
	var requiredSkills []string
	cfg, err := store.GetServiceJobTypeConfig(ctx, position.ServiceID, position.JobTypeID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return matcher.Position{}, fmt.Errorf("failed to fetch service job type config: %w", err)
	}
	if cfg != nil {
		requiredSkills = cfg.RequiredSkillIDs
	}

	return matcher.Position{
		ID:               position.ID,
		ScenarioID:       position.ScenarioID,
		DepartmentID:     position.DepartmentID,
		HospitalID:       position.HospitalID,
		JobTypeID:        position.JobTypeID,
		Date:             position.Date,
		ShiftType:        position.ShiftType,
		RequiredSkillIDs: requiredSkills,
	}, nil
}

// loadProviderPool snapshots every active provider of the position's job
// type together with the availability and assignment state the filters and
// scorer read.
func loadProviderPool(ctx context.Context, store FindMatchesStore, position *db.ScenarioPosition) ([]matcher.ProviderState, error) {
	providers, err := store.GetProvidersByJobType(ctx, position.JobTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch providers: %w", err)
	}

	pool := make([]matcher.ProviderState, 0, len(providers))
	for _, provider := range providers {
		if !provider.Active {
			continue
		}

		availability, err := store.GetProviderAvailability(ctx, provider.ID, position.Date)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("failed to fetch availability for provider %s: %w", provider.ID, err)
		}

		slots, err := store.GetProviderAssignments(ctx, position.ScenarioID, provider.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch assignments for provider %s: %w", provider.ID, err)
		}

		booked := make([]matcher.BookedSlot, len(slots))
		for i, slot := range slots {
			booked[i] = matcher.BookedSlot{Date: slot.Date, ShiftType: slot.ShiftType}
		}

		pool = append(pool, matcher.ProviderState{
			Provider:     provider,
			Availability: availability,
			BookedSlots:  booked,
		})
	}

	return pool, nil
}
