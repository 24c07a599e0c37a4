package db

import (
	"context"
	"errors"
	"time"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
)

// ErrNotFound is returned by store lookups when no row matches. Services
// translate it into their user-facing NotFound errors.
var ErrNotFound = errors.New("record not found")

// Tx is the transactional operation set over scenario positions,
// assignments and claim tokens. Services run their read-validate-write
// sequences against a Tx inside a single store transaction so the conflict
// check and the status write cannot be raced by another actor.
type Tx interface {
	GetScenario(ctx context.Context, id string) (*Scenario, error)

	// GetPositionForUpdate reads one position and locks its row for the
	// remainder of the transaction.
	GetPositionForUpdate(ctx context.Context, id string) (*ScenarioPosition, error)
	UpdatePositionStatus(ctx context.Context, id string, status model.PositionStatus) error
	DeleteScenarioPositions(ctx context.Context, scenarioID string) error
	InsertScenarioPositions(ctx context.Context, positions []ScenarioPosition) error

	GetAssignment(ctx context.Context, id string) (*ScenarioAssignment, error)
	// LockProviderAssignments serializes assignment writes for one
	// (scenario, provider) pair for the remainder of the transaction.
	// Locking the position row alone is not enough: two transactions on
	// different positions sharing a (date, shift) would each scan before the
	// other's insert is visible and both commit a double booking.
	LockProviderAssignments(ctx context.Context, scenarioID, providerID string) error
	// GetProviderAssignments returns the provider's non-cancelled assignments
	// within a scenario, joined with their positions' date and shift type.
	GetProviderAssignments(ctx context.Context, scenarioID, providerID string) ([]AssignmentSlot, error)
	InsertAssignment(ctx context.Context, a *ScenarioAssignment) error
	UpdateAssignmentStatus(ctx context.Context, id string, status model.AssignmentStatus) error
	CancelAssignment(ctx context.Context, id string, cancelledBy, reason string, at time.Time) error
	CountNonCancelledAssignments(ctx context.Context, scenarioID string) (int, error)

	GetClaimTokenByPair(ctx context.Context, scenarioID, providerID string) (*ClaimToken, error)
	InsertClaimToken(ctx context.Context, t *ClaimToken) error
	DeleteScenarioClaimTokens(ctx context.Context, scenarioID string) error

	DeleteScenarioAssignments(ctx context.Context, scenarioID string) error
	DeleteScenario(ctx context.Context, id string) error
}

// AssignmentSlot is an existing non-cancelled assignment reduced to the
// fields the conflict rule compares.
type AssignmentSlot struct {
	AssignmentID string
	PositionID   string
	Date         time.Time
	ShiftType    model.ShiftType
	Status       model.AssignmentStatus
}

// TxRunner runs a function against a Tx inside one store transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// ReferenceReader exposes the read-only organizational data this core
// consumes. The owning CRUD surfaces live outside this repository.
type ReferenceReader interface {
	GetHospital(ctx context.Context, id string) (*model.Hospital, error)
	GetDepartment(ctx context.Context, id string) (*model.Department, error)
	GetJobType(ctx context.Context, id string) (*model.JobType, error)
	GetJobTypeByCode(ctx context.Context, code string) (*model.JobType, error)
	GetServicesInScope(ctx context.Context, healthSystemID, hospitalID string) ([]model.Service, error)
	GetServiceJobTypeConfigs(ctx context.Context, serviceID string) ([]model.ServiceJobTypeConfig, error)
	GetServiceJobTypeConfig(ctx context.Context, serviceID, jobTypeID string) (*model.ServiceJobTypeConfig, error)
	GetProvider(ctx context.Context, id string) (*model.Provider, error)
	GetProvidersByJobType(ctx context.Context, jobTypeID string) ([]model.Provider, error)
	GetProviderAvailability(ctx context.Context, providerID string, date time.Time) (*model.ProviderAvailability, error)
}
