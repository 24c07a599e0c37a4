package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

func openPosition(id string, date time.Time, shift model.ShiftType) *db.ScenarioPosition {
	return &db.ScenarioPosition{
		ID:         id,
		ScenarioID: "scn-1",
		ServiceID:  "svc-icu",
		JobTypeID:  "jt-rn",
		HospitalID: "hosp-ogh",
		Date:       date,
		ShiftType:  shift,
		Sequence:   1,
		JobCode:    "IC-OGH-ICU-RN-" + date.Format("20060102") + "-" + string(shift) + "-01",
		Status:     model.PositionOpen,
		IsActive:   true,
	}
}

func TestCreateAssignment_SerializesProviderWrites(t *testing.T) {
	m := newMockStore()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	m.positions["pos-1"] = openPosition("pos-1", date, model.ShiftAM)
	second := openPosition("pos-2", date, model.ShiftAM)
	second.Sequence = 2
	m.positions["pos-2"] = second

	_, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-1", "prov-1")
	require.NoError(t, err)
	_, err = CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-2", "prov-1")
	assert.Equal(t, KindConflict, KindOf(err))

	// Both write attempts took the (scenario, provider) lock inside their
	// transaction. A per-position row lock alone would let two concurrent
	// commits on distinct positions sharing a (date, shift) both pass the
	// conflict scan.
	assert.Equal(t, []string{"scn-1:prov-1", "scn-1:prov-1"}, m.lockedPairs)
}

func TestCreateAssignment(t *testing.T) {
	m := newMockStore()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	m.positions["pos-1"] = openPosition("pos-1", date, model.ShiftAM)
	audit := &mockAudit{}

	assignment, err := CreateAssignment(context.Background(), m, audit, zap.NewNop(), testActor, "pos-1", "prov-1")
	require.NoError(t, err)

	assert.Equal(t, model.AssignmentActive, assignment.Status)
	assert.Equal(t, "prov-1", assignment.ProviderID)
	assert.Equal(t, testActor.ID, assignment.AssignedBy)
	assert.Equal(t, model.PositionAssigned, m.positions["pos-1"].Status)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "create_assignment", audit.entries[0].Verb)
}

func TestCreateAssignment_PositionNotOpen(t *testing.T) {
	m := newMockStore()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	pos := openPosition("pos-1", date, model.ShiftAM)
	pos.Status = model.PositionAssigned
	m.positions["pos-1"] = pos

	_, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-1", "prov-1")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
}

func TestCreateAssignment_PositionNotFound(t *testing.T) {
	m := newMockStore()

	_, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "missing", "prov-1")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestCreateAssignment_SameDayShiftConflict(t *testing.T) {
	m := newMockStore()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	m.positions["pos-1"] = openPosition("pos-1", date, model.ShiftAM)
	m.positions["pos-2"] = openPosition("pos-2", date, model.ShiftAM)
	m.positions["pos-3"] = openPosition("pos-3", date, model.ShiftPM)

	_, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-1", "prov-1")
	require.NoError(t, err)

	// Same (date, shift) conflicts.
	_, err = CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-2", "prov-1")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
	assert.Equal(t, model.PositionOpen, m.positions["pos-2"].Status)

	// The other half of the same day does not.
	_, err = CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-3", "prov-1")
	require.NoError(t, err)
}

func TestCreateAssignment_CancelledSlotDoesNotConflict(t *testing.T) {
	m := newMockStore()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	m.positions["pos-1"] = openPosition("pos-1", date, model.ShiftAM)
	m.positions["pos-2"] = openPosition("pos-2", date, model.ShiftAM)

	first, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-1", "prov-1")
	require.NoError(t, err)

	err = CancelAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, first.ID, "schedule change")
	require.NoError(t, err)

	// The slot freed by cancellation no longer blocks the provider.
	_, err = CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-2", "prov-1")
	require.NoError(t, err)
}

func TestConfirmAssignment(t *testing.T) {
	m := newMockStore()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	m.positions["pos-1"] = openPosition("pos-1", date, model.ShiftAM)

	assignment, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-1", "prov-1")
	require.NoError(t, err)

	err = ConfirmAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, assignment.ID)
	require.NoError(t, err)

	assert.Equal(t, model.AssignmentConfirmed, m.assignments[assignment.ID].Status)
	assert.Equal(t, model.PositionConfirmed, m.positions["pos-1"].Status)

	// Confirming twice is an invalid transition.
	err = ConfirmAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, assignment.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestCancelAssignment_ReopensPosition(t *testing.T) {
	m := newMockStore()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	m.positions["pos-1"] = openPosition("pos-1", date, model.ShiftAM)

	assignment, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-1", "prov-1")
	require.NoError(t, err)

	err = CancelAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, assignment.ID, "provider sick")
	require.NoError(t, err)

	stored := m.assignments[assignment.ID]
	assert.Equal(t, model.AssignmentCancelled, stored.Status)
	assert.Equal(t, "provider sick", stored.CancelReason)
	assert.Equal(t, testActor.ID, stored.CancelledBy)
	assert.NotNil(t, stored.CancelledAt)
	assert.Equal(t, model.PositionOpen, m.positions["pos-1"].Status)
}

func TestCancelAssignment_ConfirmedCanBeCancelled(t *testing.T) {
	m := newMockStore()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	m.positions["pos-1"] = openPosition("pos-1", date, model.ShiftAM)

	assignment, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-1", "prov-1")
	require.NoError(t, err)
	require.NoError(t, ConfirmAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, assignment.ID))

	err = CancelAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, assignment.ID, "strike called off")
	require.NoError(t, err)
	assert.Equal(t, model.PositionOpen, m.positions["pos-1"].Status)
}

func TestCancelAssignment_CancellingTwiceFails(t *testing.T) {
	m := newMockStore()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	m.positions["pos-1"] = openPosition("pos-1", date, model.ShiftAM)

	assignment, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-1", "prov-1")
	require.NoError(t, err)
	require.NoError(t, CancelAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, assignment.ID, "first"))

	err = CancelAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, assignment.ID, "second")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestAssignmentLifecycle_ReassignAfterCancel(t *testing.T) {
	m := newMockStore()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	m.positions["pos-1"] = openPosition("pos-1", date, model.ShiftAM)

	first, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-1", "prov-1")
	require.NoError(t, err)
	require.NoError(t, CancelAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, first.ID, "swap"))

	second, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-1", "prov-2")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, model.PositionAssigned, m.positions["pos-1"].Status)
	// The cancelled record is preserved alongside the new one.
	assert.Len(t, m.assignments, 2)
}
