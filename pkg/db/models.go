package db

import (
	"time"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
)

// JobTypeReduction is one entry of a scenario's reduction policy.
// A percent of 0 means the job type is included at full headcount.
type JobTypeReduction struct {
	JobTypeID        string
	ReductionPercent int
}

// Scenario is a database scenario record: one bounded strike event.
type Scenario struct {
	ID             string
	Name           string
	HealthSystemID string
	HospitalID     string // empty when the scenario spans the whole health system
	StartDate      time.Time
	EndDate        time.Time
	Reductions     []JobTypeReduction
	Status         model.ScenarioStatus
	IsActive       bool
	CreatedBy      string
	CreatedAt      time.Time
}

// ReductionFor looks up the reduction entry for a job type. The second
// return reports map membership: job types absent from the reduction list
// are not expanded at all.
func (s *Scenario) ReductionFor(jobTypeID string) (int, bool) {
	for _, r := range s.Reductions {
		if r.JobTypeID == jobTypeID {
			return r.ReductionPercent, true
		}
	}
	return 0, false
}

// ScenarioPosition is a database record for one staffing slot.
type ScenarioPosition struct {
	ID           string
	ScenarioID   string
	ServiceID    string
	JobTypeID    string
	DepartmentID string
	HospitalID   string
	Date         time.Time
	ShiftType    model.ShiftType
	StartTime    string
	EndTime      string
	Sequence     int
	JobCode      string

	// Both headcounts are frozen at generation time.
	OriginalHeadcount int
	ScenarioHeadcount int

	Status   model.PositionStatus
	IsActive bool
}

// ScenarioAssignment binds one provider to one scenario position.
type ScenarioAssignment struct {
	ID           string
	ScenarioID   string
	PositionID   string
	ProviderID   string
	Status       model.AssignmentStatus
	AssignedAt   time.Time
	AssignedBy   string
	CancelledAt  *time.Time
	CancelledBy  string
	CancelReason string
}

// ClaimToken is a capability credential for provider self-service.
// At most one live token exists per (scenario, provider); re-requesting
// returns the existing row. Tokens are never revoked, only expire.
type ClaimToken struct {
	ID         string
	ScenarioID string
	ProviderID string
	Token      string
	ExpiresAt  time.Time
	CreatedBy  string
	CreatedAt  time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *ClaimToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
