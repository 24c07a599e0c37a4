package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
)

func matchFixture() *mockStore {
	m := newMockStore()
	m.scenarios["scn-1"] = claimScenario(model.ScenarioActive)
	m.positions["pos-1"] = openPosition("pos-1", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), model.ShiftAM)
	m.jobTypes["jt-fel"] = &model.JobType{ID: "jt-fel", Code: "FEL", Name: "Fellow"}

	first := activeProvider("prov-1")
	first.FirstName = "Ana"
	first.LastName = "Alvarez"
	second := activeProvider("prov-2")
	second.FirstName = "Ben"
	second.LastName = "Baker"
	second.HospitalID = "hosp-other"
	second.AccessibleHospitalIDs = []string{"hosp-ogh"}
	m.providers["prov-1"] = first
	m.providers["prov-2"] = second
	return m
}

func TestFindMatches(t *testing.T) {
	m := matchFixture()

	result, err := FindMatches(context.Background(), m, zap.NewNop(), "FEL", "pos-1")
	require.NoError(t, err)

	assert.True(t, result.Eligible)
	require.Len(t, result.Matches, 2)
	// prov-1 works at the position's hospital and outscores prov-2.
	assert.Equal(t, "prov-1", result.Matches[0].Provider.ID)
	assert.Greater(t, result.Matches[0].Score, result.Matches[1].Score)
}

func TestFindMatches_PositionNotOpen(t *testing.T) {
	m := matchFixture()
	m.positions["pos-1"].Status = model.PositionAssigned

	result, err := FindMatches(context.Background(), m, zap.NewNop(), "FEL", "pos-1")
	require.NoError(t, err)

	assert.False(t, result.Eligible)
	assert.Empty(t, result.Matches)
}

func TestFindMatches_PositionNotFound(t *testing.T) {
	m := matchFixture()

	_, err := FindMatches(context.Background(), m, zap.NewNop(), "FEL", "pos-missing")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestFindMatches_InactiveProvidersExcluded(t *testing.T) {
	m := matchFixture()
	m.providers["prov-2"].Active = false

	result, err := FindMatches(context.Background(), m, zap.NewNop(), "FEL", "pos-1")
	require.NoError(t, err)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, "prov-1", result.Matches[0].Provider.ID)
}

func TestFindMatches_UnavailableProviderExcluded(t *testing.T) {
	m := matchFixture()
	date := m.positions["pos-1"].Date
	m.availability[availabilityKey("prov-1", date)] = &model.ProviderAvailability{
		ProviderID: "prov-1",
		Date:       date,
		Type:       model.AvailabilityUnavailable,
	}

	result, err := FindMatches(context.Background(), m, zap.NewNop(), "FEL", "pos-1")
	require.NoError(t, err)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, "prov-2", result.Matches[0].Provider.ID)
}

func TestFindMatches_BookedProviderExcluded(t *testing.T) {
	m := matchFixture()
	other := openPosition("pos-2", m.positions["pos-1"].Date, model.ShiftAM)
	other.Sequence = 2
	m.positions["pos-2"] = other
	_, err := CreateAssignment(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "pos-2", "prov-1")
	require.NoError(t, err)

	result, err := FindMatches(context.Background(), m, zap.NewNop(), "FEL", "pos-1")
	require.NoError(t, err)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, "prov-2", result.Matches[0].Provider.ID)
}

func TestFindMatches_VisaFellowPinnedToHomeHospital(t *testing.T) {
	m := matchFixture()
	for _, p := range m.providers {
		p.JobTypeID = "jt-fel"
		p.HasVisa = true
	}
	m.positions["pos-1"].JobTypeID = "jt-fel"

	result, err := FindMatches(context.Background(), m, zap.NewNop(), "FEL", "pos-1")
	require.NoError(t, err)

	// prov-2's home hospital differs from the position's; only prov-1
	// survives the visa rule.
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "prov-1", result.Matches[0].Provider.ID)
}

func TestFindMatches_SkillTierFromConfig(t *testing.T) {
	m := matchFixture()
	m.configs["svc-icu"] = []model.ServiceJobTypeConfig{
		{ID: "cfg-rn", ServiceID: "svc-icu", JobTypeID: "jt-rn", RequiredSkillIDs: []string{"skill-vent"}},
	}
	m.providers["prov-1"].SkillIDs = []string{"skill-vent"}

	result, err := FindMatches(context.Background(), m, zap.NewNop(), "FEL", "pos-1")
	require.NoError(t, err)

	require.NotEmpty(t, result.Matches)
	assert.Equal(t, "prov-1", result.Matches[0].Provider.ID)
	assert.Equal(t, model.TierPerfect, result.Matches[0].Tier)
	assert.Equal(t, []string{"skill-vent"}, result.Matches[0].MatchedSkillIDs)
}
