package matcher

import (
	"sort"
	"time"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
)

// Position is the slice of a scenario position the matcher needs.
type Position struct {
	ID               string
	ScenarioID       string
	DepartmentID     string
	HospitalID       string
	JobTypeID        string
	Date             time.Time
	ShiftType        model.ShiftType
	RequiredSkillIDs []string
}

// BookedSlot is one of a provider's existing non-cancelled assignments,
// reduced to the fields the conflict rule compares.
type BookedSlot struct {
	Date      time.Time
	ShiftType model.ShiftType
}

// ProviderState is a point-in-time snapshot of one candidate provider:
// the provider record plus the availability and assignment state the hard
// filters and the scorer read. Callers must re-validate conflicts at
// assignment-commit time; this snapshot is expected to go stale.
type ProviderState struct {
	Provider     model.Provider
	Availability *model.ProviderAvailability // nil means no record for the date
	BookedSlots  []BookedSlot
}

// RankedCandidate is one eligible provider with its score and skill tier.
type RankedCandidate struct {
	Provider        model.Provider
	Score           int
	Tier            model.SkillTier
	MatchedSkillIDs []string
	MissingSkillIDs []string
	AssignmentCount int
	PreferredShift  bool
}

// Rules carries the policy knobs the hard filters need beyond the position
// itself. FellowJobTypeID identifies the job type whose visa holders are
// pinned to their home hospital.
type Rules struct {
	FellowJobTypeID string
}

// Scoring weights. Skill coverage dominates, preferred shift outranks
// department and hospital familiarity, and existing workload counts against
// a candidate.
const (
	weightMatchedSkill   = 10
	weightPreferredShift = 50
	weightSameDepartment = 20
	weightSameHospital   = 10
	weightPerAssignment  = -5
	weightMissingSkill   = -15
)

// FindCandidates applies the hard eligibility filters to the pool and ranks
// the survivors. The result is a pure function of its inputs: identical
// snapshots always produce the identical ordering.
func FindCandidates(pos Position, pool []ProviderState, rules Rules) []RankedCandidate {
	candidates := make([]RankedCandidate, 0, len(pool))

	for _, state := range pool {
		if !Eligible(pos, state, rules) {
			continue
		}
		candidates = append(candidates, scoreCandidate(pos, state))
	}

	sortCandidates(candidates)
	return candidates
}

// Eligible runs the hard filters in order, short-circuiting on the first
// failure. Order only matters for efficiency; every filter is independent.
func Eligible(pos Position, state ProviderState, rules Rules) bool {
	if !availableForShift(state.Availability, pos.ShiftType) {
		return false
	}
	if !state.Provider.CanAccessHospital(pos.HospitalID) {
		return false
	}
	if violatesVisaRestriction(pos, state.Provider, rules) {
		return false
	}
	if HasConflict(state.BookedSlots, pos.Date, pos.ShiftType) {
		return false
	}
	return true
}

// availableForShift treats a missing availability record as available.
func availableForShift(a *model.ProviderAvailability, shift model.ShiftType) bool {
	if a == nil {
		return true
	}
	return a.AllowsShift(shift)
}

// violatesVisaRestriction pins visa-holding fellows to their home hospital.
// An explicit access grant does not lift the restriction.
func violatesVisaRestriction(pos Position, p model.Provider, rules Rules) bool {
	if !p.HasVisa || rules.FellowJobTypeID == "" || p.JobTypeID != rules.FellowJobTypeID {
		return false
	}
	return p.HospitalID != pos.HospitalID
}

// HasConflict reports whether any booked slot collides with the given
// (date, shift type) pair.
func HasConflict(booked []BookedSlot, date time.Time, shift model.ShiftType) bool {
	for _, slot := range booked {
		if slot.ShiftType == shift && sameDay(slot.Date, date) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func scoreCandidate(pos Position, state ProviderState) RankedCandidate {
	matched, missing := SkillCoverage(pos.RequiredSkillIDs, state.Provider.SkillIDs)

	preferred := state.Availability != nil && state.Availability.PrefersShift(pos.ShiftType)
	assignmentCount := len(state.BookedSlots)

	score := weightMatchedSkill*len(matched) +
		weightMissingSkill*len(missing) +
		weightPerAssignment*assignmentCount
	if preferred {
		score += weightPreferredShift
	}
	if state.Provider.DepartmentID == pos.DepartmentID {
		score += weightSameDepartment
	}
	if state.Provider.HospitalID == pos.HospitalID {
		score += weightSameHospital
	}

	return RankedCandidate{
		Provider:        state.Provider,
		Score:           score,
		Tier:            Tier(len(matched), len(missing)),
		MatchedSkillIDs: matched,
		MissingSkillIDs: missing,
		AssignmentCount: assignmentCount,
		PreferredShift:  preferred,
	}
}

// SkillCoverage splits a position's required skills into those the provider
// holds and those they are missing, preserving the required-skill order.
func SkillCoverage(required, held []string) (matched, missing []string) {
	heldSet := make(map[string]bool, len(held))
	for _, id := range held {
		heldSet[id] = true
	}

	matched = make([]string, 0, len(required))
	missing = make([]string, 0)
	for _, id := range required {
		if heldSet[id] {
			matched = append(matched, id)
		} else {
			missing = append(missing, id)
		}
	}
	return matched, missing
}

// Tier classifies skill coverage: Perfect when nothing is missing, Good when
// matches outnumber gaps, Partial otherwise.
func Tier(matched, missing int) model.SkillTier {
	switch {
	case missing == 0:
		return model.TierPerfect
	case matched > missing:
		return model.TierGood
	default:
		return model.TierPartial
	}
}

// sortCandidates orders by score descending, then by current assignment
// count ascending (prefer less-busy providers), then by full name. The
// ordering is total, so results are reproducible for identical input state.
func sortCandidates(candidates []RankedCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].AssignmentCount != candidates[j].AssignmentCount {
			return candidates[i].AssignmentCount < candidates[j].AssignmentCount
		}
		return candidates[i].Provider.FullName() < candidates[j].Provider.FullName()
	})
}
