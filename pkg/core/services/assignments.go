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

// CancelReasonSelfService tags cancellations made by providers through the
// claim workflow, distinguishing them from admin-initiated ones.
const CancelReasonSelfService = "self-service unclaim"

// AssignmentStore defines the operations the assignment state machine needs.
// Every transition runs inside one store transaction: the conflict check and
// the status writes are atomic with respect to concurrent mutations on the
// same position.
type AssignmentStore interface {
	db.TxRunner
}

// CreateAssignment binds a provider to an open position. The position must
// still be Open and the provider must not already hold a non-cancelled
// assignment on the same (date, shift type) within the scenario; both are
// re-validated at commit time because match results are snapshots and may
// be stale by the time an admin commits one.
func CreateAssignment(
	ctx context.Context,
	store AssignmentStore,
	audit AuditRecorder,
	logger *zap.Logger,
	actor model.Actor,
	positionID string,
	providerID string,
) (*db.ScenarioAssignment, error) {
	logger.Debug("Starting createAssignment",
		zap.String("position_id", positionID),
		zap.String("provider_id", providerID))

	var assignment *db.ScenarioAssignment

	err := store.InTx(ctx, func(tx db.Tx) error {
		created, err := createAssignmentInTx(ctx, tx, positionID, providerID, actor.ID, time.Now())
		if err != nil {
			return err
		}
		assignment = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Assignment created",
		zap.String("assignment_id", assignment.ID),
		zap.String("position_id", positionID),
		zap.String("provider_id", providerID))

	if err := audit.Record(ctx, actor, "create_assignment", "assignment", assignment.ID, map[string]string{
		"position_id": positionID,
		"provider_id": providerID,
	}); err != nil {
		logger.Warn("Failed to record audit entry", zap.Error(err))
	}

	return assignment, nil
}

// createAssignmentInTx is the transition shared by admin assignment and
// self-service claims: validate Open, re-check the conflict rule, insert the
// Active assignment and move the position to Assigned.
func createAssignmentInTx(
	ctx context.Context,
	tx db.Tx,
	positionID string,
	providerID string,
	assignedBy string,
	now time.Time,
) (*db.ScenarioAssignment, error) {
	position, err := tx.GetPositionForUpdate(ctx, positionID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, NotFoundf("position %s not found", positionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch position: %w", err)
	}

	if position.Status != model.PositionOpen || !position.IsActive {
		return nil, Conflictf("position %s is no longer open", position.JobCode)
	}

	// The position row lock does not cover two commits for the same provider
	// on different positions sharing a (date, shift); serialize on the pair
	// before scanning.
	if err := tx.LockProviderAssignments(ctx, position.ScenarioID, providerID); err != nil {
		return nil, err
	}

	slots, err := tx.GetProviderAssignments(ctx, position.ScenarioID, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider assignments: %w", err)
	}
	booked := make([]matcher.BookedSlot, len(slots))
	for i, slot := range slots {
		booked[i] = matcher.BookedSlot{Date: slot.Date, ShiftType: slot.ShiftType}
	}
	if matcher.HasConflict(booked, position.Date, position.ShiftType) {
		return nil, Conflictf("provider already holds an assignment on %s %s",
			position.Date.Format("2006-01-02"), position.ShiftType)
	}

	assignment := &db.ScenarioAssignment{
		ID:         uuid.NewString(),
		ScenarioID: position.ScenarioID,
		PositionID: position.ID,
		ProviderID: providerID,
		Status:     model.AssignmentActive,
		AssignedAt: now,
		AssignedBy: assignedBy,
	}

	if err := tx.InsertAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}
	if err := tx.UpdatePositionStatus(ctx, position.ID, model.PositionAssigned); err != nil {
		return nil, fmt.Errorf("failed to update position status: %w", err)
	}

	return assignment, nil
}

// ConfirmAssignment moves an Active assignment to Confirmed, mirroring the
// state onto its position. Any other starting state is an invalid transition.
func ConfirmAssignment(
	ctx context.Context,
	store AssignmentStore,
	audit AuditRecorder,
	logger *zap.Logger,
	actor model.Actor,
	assignmentID string,
) error {
	logger.Debug("Starting confirmAssignment", zap.String("assignment_id", assignmentID))

	err := store.InTx(ctx, func(tx db.Tx) error {
		assignment, err := tx.GetAssignment(ctx, assignmentID)
		if errors.Is(err, db.ErrNotFound) {
			return NotFoundf("assignment %s not found", assignmentID)
		}
		if err != nil {
			return fmt.Errorf("failed to fetch assignment: %w", err)
		}

		if !assignment.Status.CanConfirm() {
			return InvalidStatef("only Active assignments can be confirmed (current: %s)", assignment.Status)
		}

		if err := tx.UpdateAssignmentStatus(ctx, assignment.ID, model.AssignmentConfirmed); err != nil {
			return fmt.Errorf("failed to update assignment status: %w", err)
		}
		if err := tx.UpdatePositionStatus(ctx, assignment.PositionID, model.PositionConfirmed); err != nil {
			return fmt.Errorf("failed to update position status: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Assignment confirmed", zap.String("assignment_id", assignmentID))

	if err := audit.Record(ctx, actor, "confirm_assignment", "assignment", assignmentID, nil); err != nil {
		logger.Warn("Failed to record audit entry", zap.Error(err))
	}
	return nil
}

// CancelAssignment cancels an Active or Confirmed assignment and
// unconditionally reopens its position. Reopening is how capacity returns
// to the pool for future matching. Cancelling twice fails.
func CancelAssignment(
	ctx context.Context,
	store AssignmentStore,
	audit AuditRecorder,
	logger *zap.Logger,
	actor model.Actor,
	assignmentID string,
	reason string,
) error {
	logger.Debug("Starting cancelAssignment",
		zap.String("assignment_id", assignmentID),
		zap.String("reason", reason))

	err := store.InTx(ctx, func(tx db.Tx) error {
		return cancelAssignmentInTx(ctx, tx, assignmentID, actor.ID, reason, time.Now())
	})
	if err != nil {
		return err
	}

	logger.Info("Assignment cancelled",
		zap.String("assignment_id", assignmentID),
		zap.String("reason", reason))

	if err := audit.Record(ctx, actor, "cancel_assignment", "assignment", assignmentID, map[string]string{
		"reason": reason,
	}); err != nil {
		logger.Warn("Failed to record audit entry", zap.Error(err))
	}
	return nil
}

// cancelAssignmentInTx is the Cancel transition shared by admin cancellation
// and self-service unclaim.
func cancelAssignmentInTx(
	ctx context.Context,
	tx db.Tx,
	assignmentID string,
	cancelledBy string,
	reason string,
	now time.Time,
) error {
	assignment, err := tx.GetAssignment(ctx, assignmentID)
	if errors.Is(err, db.ErrNotFound) {
		return NotFoundf("assignment %s not found", assignmentID)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch assignment: %w", err)
	}

	if !assignment.Status.CanCancel() {
		return InvalidStatef("only Active or Confirmed assignments can be cancelled (current: %s)", assignment.Status)
	}

	if err := tx.CancelAssignment(ctx, assignment.ID, cancelledBy, reason, now); err != nil {
		return fmt.Errorf("failed to cancel assignment: %w", err)
	}
	if err := tx.UpdatePositionStatus(ctx, assignment.PositionID, model.PositionOpen); err != nil {
		return fmt.Errorf("failed to reopen position: %w", err)
	}
	return nil
}
