package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/matcher"
	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// ClaimStore defines the operations the token-scoped self-service workflow
// needs. It is a superset of the admin assignment store because claims run
// the same transitions under a different trust boundary.
type ClaimStore interface {
	db.TxRunner
	GetClaimTokenByValue(ctx context.Context, token string) (*db.ClaimToken, error)
	GetScenario(ctx context.Context, id string) (*db.Scenario, error)
	GetProvider(ctx context.Context, id string) (*model.Provider, error)
	GetScenarioOpenPositions(ctx context.Context, scenarioID, jobTypeID string) ([]db.ScenarioPosition, error)
	GetProviderAssignments(ctx context.Context, scenarioID, providerID string) ([]db.AssignmentSlot, error)
	GetServiceJobTypeConfig(ctx context.Context, serviceID, jobTypeID string) (*model.ServiceJobTypeConfig, error)
	GetJobTypeByCode(ctx context.Context, code string) (*model.JobType, error)
}

// claimContext is a fully validated claim request: the token plus the
// scenario and provider it binds.
type claimContext struct {
	Token    *db.ClaimToken
	Scenario *db.Scenario
	Provider *model.Provider
}

// validateClaimAccess runs the guard chain every claim-workflow call starts
// with: the token must exist and be unexpired, the scenario must still
// accept claims, and the provider must be active. All failures collapse to
// ErrClaimLink: this path is unauthenticated, so callers get a generic
// user-facing message and never internal detail.
func validateClaimAccess(ctx context.Context, store ClaimStore, tokenValue string, now time.Time) (*claimContext, error) {
	token, err := store.GetClaimTokenByValue(ctx, tokenValue)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrClaimLink
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up claim token: %w", err)
	}
	if token.Expired(now) {
		return nil, ErrClaimLink
	}

	scenario, err := store.GetScenario(ctx, token.ScenarioID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrClaimLink
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scenario: %w", err)
	}
	if !scenario.Status.AcceptsClaims() || !scenario.IsActive {
		return nil, ErrClaimLink
	}

	provider, err := store.GetProvider(ctx, token.ProviderID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrClaimLink
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider: %w", err)
	}
	if !provider.Active {
		return nil, ErrClaimLink
	}

	return &claimContext{Token: token, Scenario: scenario, Provider: provider}, nil
}

// ClaimablePosition is one open position offered to a provider, with the
// skill tier but no numeric score: the self-service surface never exposes
// ranking internals.
type ClaimablePosition struct {
	Position db.ScenarioPosition
	Tier     model.SkillTier
}

// ClaimDateGroup groups a day's claimable positions for display.
type ClaimDateGroup struct {
	Date      time.Time
	Positions []ClaimablePosition
}

// ClaimedSlot is one of the provider's current non-cancelled assignments.
type ClaimedSlot struct {
	AssignmentID string
	PositionID   string
	Date         time.Time
	ShiftType    model.ShiftType
	Status       model.AssignmentStatus
}

// ClaimData is everything the self-service page shows a provider.
type ClaimData struct {
	ScenarioID    string
	ScenarioName  string
	StartDate     time.Time
	EndDate       time.Time
	ExpiresAt     time.Time
	ProviderID    string
	ProviderName  string
	AvailableDays []ClaimDateGroup
	Claimed       []ClaimedSlot
}

// GetClaimData lists the positions a token's provider may claim: the
// scenario's open positions for their job type, filtered by the same
// hospital-access and visa rules as admin matching, minus any (date, shift)
// the provider already holds. Sorted by date then shift (AM before PM) and
// grouped by date.
func GetClaimData(
	ctx context.Context,
	store ClaimStore,
	logger *zap.Logger,
	fellowJobTypeCode string,
	tokenValue string,
) (*ClaimData, error) {
	cc, err := validateClaimAccess(ctx, store, tokenValue, time.Now())
	if err != nil {
		return nil, err
	}

	logger.Debug("Claim data requested",
		zap.String("scenario_id", cc.Scenario.ID),
		zap.String("provider_id", cc.Provider.ID))

	fellowJobTypeID, err := resolveFellowJobType(ctx, store, fellowJobTypeCode)
	if err != nil {
		return nil, err
	}

	positions, err := store.GetScenarioOpenPositions(ctx, cc.Scenario.ID, cc.Provider.JobTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open positions: %w", err)
	}

	slots, err := store.GetProviderAssignments(ctx, cc.Scenario.ID, cc.Provider.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider assignments: %w", err)
	}
	booked := make([]matcher.BookedSlot, len(slots))
	claimed := make([]ClaimedSlot, len(slots))
	for i, slot := range slots {
		booked[i] = matcher.BookedSlot{Date: slot.Date, ShiftType: slot.ShiftType}
		claimed[i] = ClaimedSlot{
			AssignmentID: slot.AssignmentID,
			PositionID:   slot.PositionID,
			Date:         slot.Date,
			ShiftType:    slot.ShiftType,
			Status:       slot.Status,
		}
	}

	skillConfigs := make(map[string][]string)
	var offered []ClaimablePosition

	for _, pos := range positions {
		if !pos.IsActive || pos.Status != model.PositionOpen {
			continue
		}
		if !cc.Provider.CanAccessHospital(pos.HospitalID) {
			continue
		}
		// The fellow visa rule overrides any granted access.
		if cc.Provider.HasVisa && fellowJobTypeID != "" &&
			cc.Provider.JobTypeID == fellowJobTypeID &&
			cc.Provider.HospitalID != pos.HospitalID {
			continue
		}
		if matcher.HasConflict(booked, pos.Date, pos.ShiftType) {
			continue
		}

		required, err := requiredSkills(ctx, store, skillConfigs, pos.ServiceID, pos.JobTypeID)
		if err != nil {
			return nil, err
		}
		matched, missing := matcher.SkillCoverage(required, cc.Provider.SkillIDs)

		offered = append(offered, ClaimablePosition{
			Position: pos,
			Tier:     matcher.Tier(len(matched), len(missing)),
		})
	}

	sort.SliceStable(offered, func(i, j int) bool {
		di, dj := offered[i].Position.Date, offered[j].Position.Date
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return offered[i].Position.ShiftType.SortOrder() < offered[j].Position.ShiftType.SortOrder()
	})

	logger.Info("Claim data assembled",
		zap.String("provider_id", cc.Provider.ID),
		zap.Int("offered", len(offered)),
		zap.Int("claimed", len(claimed)))

	return &ClaimData{
		ScenarioID:    cc.Scenario.ID,
		ScenarioName:  cc.Scenario.Name,
		StartDate:     cc.Scenario.StartDate,
		EndDate:       cc.Scenario.EndDate,
		ExpiresAt:     cc.Token.ExpiresAt,
		ProviderID:    cc.Provider.ID,
		ProviderName:  cc.Provider.FullName(),
		AvailableDays: groupByDate(offered),
		Claimed:       claimed,
	}, nil
}

func resolveFellowJobType(ctx context.Context, store ClaimStore, code string) (string, error) {
	if code == "" {
		return "", nil
	}
	jobType, err := store.GetJobTypeByCode(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve fellow job type: %w", err)
	}
	return jobType.ID, nil
}

func requiredSkills(ctx context.Context, store ClaimStore, cache map[string][]string, serviceID, jobTypeID string) ([]string, error) {
	key := serviceID + "|" + jobTypeID
	if skills, ok := cache[key]; ok {
		return skills, nil
	}
	cfg, err := store.GetServiceJobTypeConfig(ctx, serviceID, jobTypeID)
	if errors.Is(err, db.ErrNotFound) {
		cache[key] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch service job type config: %w", err)
	}
	cache[key] = cfg.RequiredSkillIDs
	return cfg.RequiredSkillIDs, nil
}

// groupByDate keeps the incoming order, which is already date then shift.
func groupByDate(offered []ClaimablePosition) []ClaimDateGroup {
	var groups []ClaimDateGroup
	for _, pos := range offered {
		if len(groups) == 0 || !groups[len(groups)-1].Date.Equal(pos.Position.Date) {
			groups = append(groups, ClaimDateGroup{Date: pos.Position.Date})
		}
		last := len(groups) - 1
		groups[last].Positions = append(groups[last].Positions, pos)
	}
	return groups
}
