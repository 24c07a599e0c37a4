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

func claimScenario(status model.ScenarioStatus) *db.Scenario {
	return &db.Scenario{
		ID:             "scn-1",
		Name:           "June strike",
		HealthSystemID: "hs-1",
		StartDate:      time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
		Reductions:     []db.JobTypeReduction{{JobTypeID: "jt-rn", ReductionPercent: 50}},
		Status:         status,
		IsActive:       true,
	}
}

func activeProvider(id string) *model.Provider {
	return &model.Provider{
		ID:         id,
		FirstName:  "Pat",
		LastName:   "Provider",
		Email:      id + "@oakfield.example",
		JobTypeID:  "jt-rn",
		HospitalID: "hosp-ogh",
		Active:     true,
	}
}

func TestGenerateClaimTokens(t *testing.T) {
	m := newMockStore()
	m.scenarios["scn-1"] = claimScenario(model.ScenarioActive)
	m.providers["prov-1"] = activeProvider("prov-1")
	m.providers["prov-2"] = activeProvider("prov-2")
	audit := &mockAudit{}

	result, err := GenerateClaimTokens(context.Background(), m, audit, zap.NewNop(), testActor, "scn-1", []string{"prov-1", "prov-2"})
	require.NoError(t, err)

	require.Len(t, result.Tokens, 2)
	assert.Empty(t, result.Errors)
	for _, issued := range result.Tokens {
		assert.False(t, issued.Reused)
		assert.Len(t, issued.Token.Token, 64)
		assert.Equal(t, testActor.ID, issued.Token.CreatedBy)
	}
	assert.NotEqual(t, result.Tokens[0].Token.Token, result.Tokens[1].Token.Token)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "generate_claim_tokens", audit.entries[0].Verb)
}

func TestGenerateClaimTokens_IdempotentPerProvider(t *testing.T) {
	m := newMockStore()
	m.scenarios["scn-1"] = claimScenario(model.ScenarioActive)
	m.providers["prov-1"] = activeProvider("prov-1")

	first, err := GenerateClaimTokens(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "scn-1", []string{"prov-1"})
	require.NoError(t, err)
	require.Len(t, first.Tokens, 1)

	second, err := GenerateClaimTokens(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "scn-1", []string{"prov-1"})
	require.NoError(t, err)
	require.Len(t, second.Tokens, 1)

	assert.True(t, second.Tokens[0].Reused)
	assert.Equal(t, first.Tokens[0].Token.Token, second.Tokens[0].Token.Token)
	assert.Len(t, m.tokens, 1)
}

func TestGenerateClaimTokens_BestEffortBatch(t *testing.T) {
	m := newMockStore()
	m.scenarios["scn-1"] = claimScenario(model.ScenarioDraft)
	m.providers["prov-1"] = activeProvider("prov-1")
	inactive := activeProvider("prov-2")
	inactive.Active = false
	m.providers["prov-2"] = inactive

	result, err := GenerateClaimTokens(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "scn-1",
		[]string{"prov-1", "prov-2", "prov-missing"})
	require.NoError(t, err)

	assert.Len(t, result.Tokens, 1)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "prov-2", result.Errors[0].Ref)
	assert.Equal(t, KindInvalidState, result.Errors[0].Kind)
	assert.Equal(t, "prov-missing", result.Errors[1].Ref)
	assert.Equal(t, KindNotFound, result.Errors[1].Kind)
}

func TestGenerateClaimTokens_CompletedScenarioRejected(t *testing.T) {
	m := newMockStore()
	m.scenarios["scn-1"] = claimScenario(model.ScenarioCompleted)
	m.providers["prov-1"] = activeProvider("prov-1")

	_, err := GenerateClaimTokens(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "scn-1", []string{"prov-1"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestGenerateClaimTokens_ScenarioNotFound(t *testing.T) {
	m := newMockStore()

	_, err := GenerateClaimTokens(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "missing", []string{"prov-1"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestTokenExpiry(t *testing.T) {
	end := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)

	expiry := TokenExpiry(end)

	// End of the day after the last strike day, local time.
	assert.Equal(t, 2025, expiry.Year())
	assert.Equal(t, time.June, expiry.Month())
	assert.Equal(t, 7, expiry.Day())
	assert.Equal(t, 23, expiry.Hour())
	assert.Equal(t, 59, expiry.Minute())
	assert.Equal(t, 59, expiry.Second())
}

func TestTokenExpiry_AppliedToMintedTokens(t *testing.T) {
	m := newMockStore()
	m.scenarios["scn-1"] = claimScenario(model.ScenarioActive)
	m.providers["prov-1"] = activeProvider("prov-1")

	result, err := GenerateClaimTokens(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, "scn-1", []string{"prov-1"})
	require.NoError(t, err)
	require.Len(t, result.Tokens, 1)

	expected := TokenExpiry(m.scenarios["scn-1"].EndDate)
	assert.True(t, result.Tokens[0].Token.ExpiresAt.Equal(expected))
}
