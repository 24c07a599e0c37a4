package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// mockStore is an in-memory double for the postgres store. InTx runs the
// body against the store itself; "transactions" are not rolled back, which
// is fine for tests that assert on the final state or on returned errors.
type mockStore struct {
	scenarios   map[string]*db.Scenario
	positions   map[string]*db.ScenarioPosition
	assignments map[string]*db.ScenarioAssignment
	tokens      map[string]*db.ClaimToken

	hospitals    map[string]*model.Hospital
	departments  map[string]*model.Department
	jobTypes     map[string]*model.JobType
	services     []model.Service
	configs      map[string][]model.ServiceJobTypeConfig
	providers    map[string]*model.Provider
	availability map[string]*model.ProviderAvailability // providerID|date

	insertedScenarios []*db.Scenario

	// lockedPairs records LockProviderAssignments calls as
	// "scenarioID:providerID", in order.
	lockedPairs []string

	inTxErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		scenarios:    make(map[string]*db.Scenario),
		positions:    make(map[string]*db.ScenarioPosition),
		assignments:  make(map[string]*db.ScenarioAssignment),
		tokens:       make(map[string]*db.ClaimToken),
		hospitals:    make(map[string]*model.Hospital),
		departments:  make(map[string]*model.Department),
		jobTypes:     make(map[string]*model.JobType),
		configs:      make(map[string][]model.ServiceJobTypeConfig),
		providers:    make(map[string]*model.Provider),
		availability: make(map[string]*model.ProviderAvailability),
	}
}

func availabilityKey(providerID string, date time.Time) string {
	return providerID + "|" + date.Format("2006-01-02")
}

func (m *mockStore) InTx(ctx context.Context, fn func(tx db.Tx) error) error {
	if m.inTxErr != nil {
		return m.inTxErr
	}
	return fn(m)
}

func (m *mockStore) GetScenario(ctx context.Context, id string) (*db.Scenario, error) {
	sc, ok := m.scenarios[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *sc
	return &copied, nil
}

func (m *mockStore) InsertScenario(ctx context.Context, sc *db.Scenario) error {
	m.scenarios[sc.ID] = sc
	m.insertedScenarios = append(m.insertedScenarios, sc)
	return nil
}

func (m *mockStore) DeleteScenario(ctx context.Context, id string) error {
	delete(m.scenarios, id)
	return nil
}

func (m *mockStore) GetScenarioPosition(ctx context.Context, id string) (*db.ScenarioPosition, error) {
	pos, ok := m.positions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *pos
	return &copied, nil
}

func (m *mockStore) GetPositionForUpdate(ctx context.Context, id string) (*db.ScenarioPosition, error) {
	return m.GetScenarioPosition(ctx, id)
}

func (m *mockStore) GetScenarioOpenPositions(ctx context.Context, scenarioID, jobTypeID string) ([]db.ScenarioPosition, error) {
	var out []db.ScenarioPosition
	for _, pos := range m.positions {
		if pos.ScenarioID == scenarioID && pos.JobTypeID == jobTypeID &&
			pos.Status == model.PositionOpen && pos.IsActive {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].ShiftType != out[j].ShiftType {
			return out[i].ShiftType.SortOrder() < out[j].ShiftType.SortOrder()
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func (m *mockStore) UpdatePositionStatus(ctx context.Context, id string, status model.PositionStatus) error {
	pos, ok := m.positions[id]
	if !ok {
		return db.ErrNotFound
	}
	pos.Status = status
	return nil
}

func (m *mockStore) DeleteScenarioPositions(ctx context.Context, scenarioID string) error {
	for id, pos := range m.positions {
		if pos.ScenarioID == scenarioID {
			delete(m.positions, id)
		}
	}
	return nil
}

func (m *mockStore) InsertScenarioPositions(ctx context.Context, positions []db.ScenarioPosition) error {
	for i := range positions {
		pos := positions[i]
		m.positions[pos.ID] = &pos
	}
	return nil
}

func (m *mockStore) GetAssignment(ctx context.Context, id string) (*db.ScenarioAssignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockStore) LockProviderAssignments(ctx context.Context, scenarioID, providerID string) error {
	m.lockedPairs = append(m.lockedPairs, scenarioID+":"+providerID)
	return nil
}

func (m *mockStore) GetProviderAssignments(ctx context.Context, scenarioID, providerID string) ([]db.AssignmentSlot, error) {
	var slots []db.AssignmentSlot
	for _, a := range m.assignments {
		if a.ScenarioID != scenarioID || a.ProviderID != providerID || a.Status == model.AssignmentCancelled {
			continue
		}
		pos, ok := m.positions[a.PositionID]
		if !ok {
			return nil, fmt.Errorf("assignment %s references missing position %s", a.ID, a.PositionID)
		}
		slots = append(slots, db.AssignmentSlot{
			AssignmentID: a.ID,
			PositionID:   a.PositionID,
			Date:         pos.Date,
			ShiftType:    pos.ShiftType,
			Status:       a.Status,
		})
	}
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].Date.Equal(slots[j].Date) {
			return slots[i].Date.Before(slots[j].Date)
		}
		return slots[i].ShiftType.SortOrder() < slots[j].ShiftType.SortOrder()
	})
	return slots, nil
}

func (m *mockStore) InsertAssignment(ctx context.Context, a *db.ScenarioAssignment) error {
	copied := *a
	m.assignments[a.ID] = &copied
	return nil
}

func (m *mockStore) UpdateAssignmentStatus(ctx context.Context, id string, status model.AssignmentStatus) error {
	a, ok := m.assignments[id]
	if !ok {
		return db.ErrNotFound
	}
	a.Status = status
	return nil
}

func (m *mockStore) CancelAssignment(ctx context.Context, id string, cancelledBy, reason string, at time.Time) error {
	a, ok := m.assignments[id]
	if !ok {
		return db.ErrNotFound
	}
	a.Status = model.AssignmentCancelled
	a.CancelledAt = &at
	a.CancelledBy = cancelledBy
	a.CancelReason = reason
	return nil
}

func (m *mockStore) CountNonCancelledAssignments(ctx context.Context, scenarioID string) (int, error) {
	count := 0
	for _, a := range m.assignments {
		if a.ScenarioID == scenarioID && a.Status != model.AssignmentCancelled {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) GetClaimTokenByPair(ctx context.Context, scenarioID, providerID string) (*db.ClaimToken, error) {
	for _, t := range m.tokens {
		if t.ScenarioID == scenarioID && t.ProviderID == providerID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockStore) GetClaimTokenByValue(ctx context.Context, token string) (*db.ClaimToken, error) {
	for _, t := range m.tokens {
		if t.Token == token {
			copied := *t
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockStore) InsertClaimToken(ctx context.Context, t *db.ClaimToken) error {
	copied := *t
	m.tokens[t.ID] = &copied
	return nil
}

func (m *mockStore) DeleteScenarioClaimTokens(ctx context.Context, scenarioID string) error {
	for id, t := range m.tokens {
		if t.ScenarioID == scenarioID {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *mockStore) DeleteScenarioAssignments(ctx context.Context, scenarioID string) error {
	for id, a := range m.assignments {
		if a.ScenarioID == scenarioID {
			delete(m.assignments, id)
		}
	}
	return nil
}

func (m *mockStore) GetHospital(ctx context.Context, id string) (*model.Hospital, error) {
	h, ok := m.hospitals[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return h, nil
}

func (m *mockStore) GetDepartment(ctx context.Context, id string) (*model.Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return d, nil
}

func (m *mockStore) GetJobType(ctx context.Context, id string) (*model.JobType, error) {
	jt, ok := m.jobTypes[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return jt, nil
}

func (m *mockStore) GetJobTypeByCode(ctx context.Context, code string) (*model.JobType, error) {
	for _, jt := range m.jobTypes {
		if jt.Code == code {
			return jt, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockStore) GetServicesInScope(ctx context.Context, healthSystemID, hospitalID string) ([]model.Service, error) {
	if hospitalID == "" {
		return m.services, nil
	}
	var out []model.Service
	for _, svc := range m.services {
		if svc.HospitalID == hospitalID {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (m *mockStore) GetServiceJobTypeConfigs(ctx context.Context, serviceID string) ([]model.ServiceJobTypeConfig, error) {
	return m.configs[serviceID], nil
}

func (m *mockStore) GetServiceJobTypeConfig(ctx context.Context, serviceID, jobTypeID string) (*model.ServiceJobTypeConfig, error) {
	for _, cfg := range m.configs[serviceID] {
		if cfg.JobTypeID == jobTypeID {
			copied := cfg
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	p, ok := m.providers[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockStore) GetProvidersByJobType(ctx context.Context, jobTypeID string) ([]model.Provider, error) {
	var out []model.Provider
	for _, p := range m.providers {
		if p.JobTypeID == jobTypeID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) GetProviderAvailability(ctx context.Context, providerID string, date time.Time) (*model.ProviderAvailability, error) {
	a, ok := m.availability[availabilityKey(providerID, date)]
	if !ok {
		return nil, nil
	}
	return a, nil
}

// mockAudit records audit calls for assertions.
type auditEntry struct {
	Actor      model.Actor
	Verb       string
	EntityType string
	EntityID   string
	Details    map[string]string
}

type mockAudit struct {
	entries []auditEntry
	err     error
}

func (m *mockAudit) Record(ctx context.Context, actor model.Actor, verb, entityType, entityID string, details map[string]string) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, auditEntry{
		Actor:      actor,
		Verb:       verb,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	})
	return nil
}

// mockEmailer records sent mail and can fail selected addresses.
type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type mockEmailer struct {
	sent    []sentEmail
	failFor map[string]error
}

func (m *mockEmailer) SendEmail(to, subject, body string) error {
	if err, ok := m.failFor[to]; ok {
		return err
	}
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}
