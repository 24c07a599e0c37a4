package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/matcher"
	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// ClaimPositionsResult is the per-item outcome of a claim batch. Partial
// success is expected: each failing position is reported and the rest of
// the batch proceeds.
type ClaimPositionsResult struct {
	Claimed []db.ScenarioAssignment
	Errors  []ItemError
}

// ClaimPositions claims a batch of open positions for the token's provider.
// Self-claims are auto-approved: the assignment is created directly in
// Active status, attributed to the admin who minted the token. Each item
// re-checks scenario membership, openness, and conflicts against both the
// provider's existing assignments and the positions already claimed earlier
// in this batch.
func ClaimPositions(
	ctx context.Context,
	store ClaimStore,
	logger *zap.Logger,
	tokenValue string,
	positionIDs []string,
) (*ClaimPositionsResult, error) {
	cc, err := validateClaimAccess(ctx, store, tokenValue, time.Now())
	if err != nil {
		return nil, err
	}

	logger.Debug("Claim batch started",
		zap.String("scenario_id", cc.Scenario.ID),
		zap.String("provider_id", cc.Provider.ID),
		zap.Int("positions", len(positionIDs)))

	result := &ClaimPositionsResult{}
	// Slots claimed earlier in this batch also count as conflicts for later
	// items, even before their transactions are visible anywhere else.
	var batchBooked []matcher.BookedSlot

	for _, positionID := range positionIDs {
		var claimed *db.ScenarioAssignment
		var claimedSlot matcher.BookedSlot

		err := store.InTx(ctx, func(tx db.Tx) error {
			assignment, position, err := claimOneInTx(ctx, tx, cc, positionID, batchBooked, time.Now())
			if err != nil {
				return err
			}
			claimed = assignment
			claimedSlot = matcher.BookedSlot{Date: position.Date, ShiftType: position.ShiftType}
			return nil
		})
		if err != nil {
			logger.Warn("Claim item failed",
				zap.String("position_id", positionID),
				zap.Error(err))
			result.Errors = append(result.Errors, itemError(positionID, err))
			continue
		}

		batchBooked = append(batchBooked, claimedSlot)
		result.Claimed = append(result.Claimed, *claimed)
	}

	logger.Info("Claim batch completed",
		zap.String("provider_id", cc.Provider.ID),
		zap.Int("claimed", len(result.Claimed)),
		zap.Int("failed", len(result.Errors)))

	return result, nil
}

// claimOneInTx performs one claim inside its own transaction: the same
// conflict check and status writes as the admin Create transition, plus the
// scenario-membership and batch-conflict checks the self-service path needs.
func claimOneInTx(
	ctx context.Context,
	tx db.Tx,
	cc *claimContext,
	positionID string,
	batchBooked []matcher.BookedSlot,
	now time.Time,
) (*db.ScenarioAssignment, *db.ScenarioPosition, error) {
	position, err := tx.GetPositionForUpdate(ctx, positionID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, NotFoundf("position not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch position: %w", err)
	}

	if position.ScenarioID != cc.Scenario.ID {
		return nil, nil, NotFoundf("position is not part of this scenario")
	}
	if position.Status != model.PositionOpen || !position.IsActive {
		return nil, nil, Conflictf("position %s has already been taken", position.JobCode)
	}
	if matcher.HasConflict(batchBooked, position.Date, position.ShiftType) {
		return nil, nil, Conflictf("another position in this request covers %s %s",
			position.Date.Format("2006-01-02"), position.ShiftType)
	}

	// Serialize with any concurrent assignment write for this provider; the
	// position row lock alone cannot prevent a double booking across two
	// different positions on the same (date, shift).
	if err := tx.LockProviderAssignments(ctx, cc.Scenario.ID, cc.Provider.ID); err != nil {
		return nil, nil, err
	}

	slots, err := tx.GetProviderAssignments(ctx, cc.Scenario.ID, cc.Provider.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch provider assignments: %w", err)
	}
	booked := make([]matcher.BookedSlot, len(slots))
	for i, slot := range slots {
		booked[i] = matcher.BookedSlot{Date: slot.Date, ShiftType: slot.ShiftType}
	}
	if matcher.HasConflict(booked, position.Date, position.ShiftType) {
		return nil, nil, Conflictf("you already hold a shift on %s %s",
			position.Date.Format("2006-01-02"), position.ShiftType)
	}

	assignment := &db.ScenarioAssignment{
		ID:         uuid.NewString(),
		ScenarioID: position.ScenarioID,
		PositionID: position.ID,
		ProviderID: cc.Provider.ID,
		Status:     model.AssignmentActive,
		AssignedAt: now,
		AssignedBy: cc.Token.CreatedBy,
	}
	if err := tx.InsertAssignment(ctx, assignment); err != nil {
		return nil, nil, fmt.Errorf("failed to insert assignment: %w", err)
	}
	if err := tx.UpdatePositionStatus(ctx, position.ID, model.PositionAssigned); err != nil {
		return nil, nil, fmt.Errorf("failed to update position status: %w", err)
	}

	return assignment, position, nil
}

// UnclaimPosition cancels one of the token provider's own assignments. The
// Cancel transition is identical to the admin one but carries a fixed
// self-service reason tag, and ownership mismatches collapse to the generic
// claim-link error rather than leaking which assignment ids exist.
func UnclaimPosition(
	ctx context.Context,
	store ClaimStore,
	logger *zap.Logger,
	tokenValue string,
	assignmentID string,
) error {
	cc, err := validateClaimAccess(ctx, store, tokenValue, time.Now())
	if err != nil {
		return err
	}

	err = store.InTx(ctx, func(tx db.Tx) error {
		assignment, err := tx.GetAssignment(ctx, assignmentID)
		if errors.Is(err, db.ErrNotFound) {
			return NotFoundf("assignment not found")
		}
		if err != nil {
			return fmt.Errorf("failed to fetch assignment: %w", err)
		}

		if assignment.ProviderID != cc.Provider.ID || assignment.ScenarioID != cc.Scenario.ID {
			return ErrClaimLink
		}
		if !assignment.Status.CanCancel() {
			return InvalidStatef("this shift has already been cancelled")
		}

		if err := tx.CancelAssignment(ctx, assignment.ID, cc.Provider.ID, CancelReasonSelfService, time.Now()); err != nil {
			return fmt.Errorf("failed to cancel assignment: %w", err)
		}
		if err := tx.UpdatePositionStatus(ctx, assignment.PositionID, model.PositionOpen); err != nil {
			return fmt.Errorf("failed to reopen position: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Assignment unclaimed",
		zap.String("assignment_id", assignmentID),
		zap.String("provider_id", cc.Provider.ID))
	return nil
}
