package model

import "time"

// ShiftType identifies the half of the day a position covers.
type ShiftType string

const (
	ShiftAM ShiftType = "AM"
	ShiftPM ShiftType = "PM"
)

func (s ShiftType) IsValid() bool {
	return s == ShiftAM || s == ShiftPM
}

// SortOrder returns a stable ordering key (AM before PM).
func (s ShiftType) SortOrder() int {
	if s == ShiftAM {
		return 0
	}
	return 1
}

// ScenarioStatus is the lifecycle state of a strike scenario.
type ScenarioStatus string

const (
	ScenarioDraft     ScenarioStatus = "Draft"
	ScenarioActive    ScenarioStatus = "Active"
	ScenarioCompleted ScenarioStatus = "Completed"
	ScenarioCancelled ScenarioStatus = "Cancelled"
)

func (s ScenarioStatus) IsValid() bool {
	switch s {
	case ScenarioDraft, ScenarioActive, ScenarioCompleted, ScenarioCancelled:
		return true
	}
	return false
}

// AllowsRegeneration reports whether positions may be deleted and regenerated.
// Only draft scenarios may be regenerated.
func (s ScenarioStatus) AllowsRegeneration() bool {
	return s == ScenarioDraft
}

// AcceptsClaims reports whether the self-service claim workflow may operate
// against a scenario in this state.
func (s ScenarioStatus) AcceptsClaims() bool {
	return s == ScenarioDraft || s == ScenarioActive
}

// PositionStatus is the lifecycle state of one staffing slot.
type PositionStatus string

const (
	PositionOpen      PositionStatus = "Open"
	PositionAssigned  PositionStatus = "Assigned"
	PositionConfirmed PositionStatus = "Confirmed"
	PositionCancelled PositionStatus = "Cancelled"
)

func (s PositionStatus) IsValid() bool {
	switch s {
	case PositionOpen, PositionAssigned, PositionConfirmed, PositionCancelled:
		return true
	}
	return false
}

// AssignmentStatus is the lifecycle state of a provider-position binding.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "Active"
	AssignmentConfirmed AssignmentStatus = "Confirmed"
	AssignmentCancelled AssignmentStatus = "Cancelled"
)

func (s AssignmentStatus) IsValid() bool {
	switch s {
	case AssignmentActive, AssignmentConfirmed, AssignmentCancelled:
		return true
	}
	return false
}

// CanConfirm reports whether the assignment may move to Confirmed.
func (s AssignmentStatus) CanConfirm() bool {
	return s == AssignmentActive
}

// CanCancel reports whether the assignment may move to Cancelled.
func (s AssignmentStatus) CanCancel() bool {
	return s == AssignmentActive || s == AssignmentConfirmed
}

// AvailabilityType classifies a provider's per-date availability record.
type AvailabilityType string

const (
	AvailabilityAvailable   AvailabilityType = "available"
	AvailabilityUnavailable AvailabilityType = "unavailable"
	AvailabilityPartial     AvailabilityType = "partial"
)

// SkillTier classifies how well a provider's skills cover a position's
// required skills.
type SkillTier string

const (
	TierPerfect SkillTier = "Perfect"
	TierGood    SkillTier = "Good"
	TierPartial SkillTier = "Partial"
)

// Actor is a resolved, scope-checked caller of a mutating operation.
// Authentication itself lives behind the Authorizer collaborator; services
// only ever see the resolved value.
type Actor struct {
	ID   string
	Name string
}

// Hospital is read-only reference data.
type Hospital struct {
	ID   string
	Code string
	Name string
}

// Department is read-only reference data.
type Department struct {
	ID         string
	HospitalID string
	Name       string
}

// JobType is read-only reference data.
type JobType struct {
	ID   string
	Code string
	Name string
}

// Skill is read-only reference data.
type Skill struct {
	ID   string
	Name string
}

// ShiftWindow is a start/end time-of-day pair in "15:04" form.
type ShiftWindow struct {
	Start string
	End   string
}

// Service is a clinical service that staffs shifts. It carries the defaults
// that per-job-type configs may override.
type Service struct {
	ID               string
	DepartmentID     string
	HospitalID       string
	Code             string
	Name             string
	Active           bool
	OperatesWeekends bool
	OperatesDays     bool
	OperatesNights   bool
	DefaultHeadcount int
	DayWindow        ShiftWindow
	NightWindow      ShiftWindow
}

// ServiceJobTypeConfig is the per (service, job type) staffing template.
// Nil pointer fields fall back to the owning service's defaults; the fallback
// is resolved in one place (scheduling.EffectiveShiftConfig), never inline.
type ServiceJobTypeConfig struct {
	ID        string
	ServiceID string
	JobTypeID string

	DayWindow   *ShiftWindow
	NightWindow *ShiftWindow

	DefaultHeadcount   *int
	WeekdayAMHeadcount *int
	WeekdayPMHeadcount *int
	WeekendAMHeadcount *int
	WeekendPMHeadcount *int

	OperatesDays   *bool
	OperatesNights *bool

	RequiredSkillIDs []string
}

// Provider is a clinical provider, read-only to this core.
type Provider struct {
	ID                    string
	FirstName             string
	LastName              string
	Email                 string
	JobTypeID             string
	DepartmentID          string
	HospitalID            string
	HasVisa               bool
	Active                bool
	SkillIDs              []string
	AccessibleHospitalIDs []string
}

// FullName is the display name used for tie-breaking and messages.
func (p Provider) FullName() string {
	return p.FirstName + " " + p.LastName
}

// CanAccessHospital reports whether the provider's home hospital or an
// explicit grant covers the given hospital. The fellow visa restriction is
// applied separately and overrides grants.
func (p Provider) CanAccessHospital(hospitalID string) bool {
	if p.HospitalID == hospitalID {
		return true
	}
	for _, id := range p.AccessibleHospitalIDs {
		if id == hospitalID {
			return true
		}
	}
	return false
}

// ProviderAvailability is a provider's per-date availability record.
// Absence of a record means the provider is available for both halves.
type ProviderAvailability struct {
	ProviderID  string
	Date        time.Time
	Type        AvailabilityType
	AMAvailable bool
	PMAvailable bool
	AMPreferred bool
	PMPreferred bool
}

// AllowsShift reports whether the record permits the given shift half.
func (a ProviderAvailability) AllowsShift(shift ShiftType) bool {
	if a.Type == AvailabilityUnavailable {
		return false
	}
	if shift == ShiftAM {
		return a.AMAvailable
	}
	return a.PMAvailable
}

// PrefersShift reports whether the provider flagged the given half as
// preferred.
func (a ProviderAvailability) PrefersShift(shift ShiftType) bool {
	if shift == ShiftAM {
		return a.AMPreferred
	}
	return a.PMPreferred
}
