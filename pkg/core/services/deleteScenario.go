package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// DeleteScenarioStore defines the operations needed to delete a scenario.
type DeleteScenarioStore interface {
	db.TxRunner
}

// DeleteScenario removes a scenario together with its positions, assignments
// and claim tokens. A scenario holding any non-cancelled assignment cannot
// be deleted: its assignments must be cancelled first so providers are not
// silently unbooked.
func DeleteScenario(
	ctx context.Context,
	store DeleteScenarioStore,
	audit AuditRecorder,
	logger *zap.Logger,
	actor model.Actor,
	scenarioID string,
) error {
	logger.Debug("Starting deleteScenario", zap.String("scenario_id", scenarioID))

	err := store.InTx(ctx, func(tx db.Tx) error {
		scenario, err := tx.GetScenario(ctx, scenarioID)
		if errors.Is(err, db.ErrNotFound) {
			return NotFoundf("scenario %s not found", scenarioID)
		}
		if err != nil {
			return fmt.Errorf("failed to fetch scenario: %w", err)
		}

		active, err := tx.CountNonCancelledAssignments(ctx, scenario.ID)
		if err != nil {
			return fmt.Errorf("failed to count assignments: %w", err)
		}
		if active > 0 {
			return InvalidStatef("scenario has %d active or confirmed assignments; cancel them before deleting", active)
		}

		if err := tx.DeleteScenarioAssignments(ctx, scenario.ID); err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		if err := tx.DeleteScenarioPositions(ctx, scenario.ID); err != nil {
			return fmt.Errorf("failed to delete positions: %w", err)
		}
		if err := tx.DeleteScenarioClaimTokens(ctx, scenario.ID); err != nil {
			return fmt.Errorf("failed to delete claim tokens: %w", err)
		}
		if err := tx.DeleteScenario(ctx, scenario.ID); err != nil {
			return fmt.Errorf("failed to delete scenario: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Scenario deleted", zap.String("scenario_id", scenarioID))

	if err := audit.Record(ctx, actor, "delete_scenario", "scenario", scenarioID, nil); err != nil {
		logger.Warn("Failed to record audit entry", zap.Error(err))
	}
	return nil
}
