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

func validScenarioArgs() CreateScenarioArgs {
	return CreateScenarioArgs{
		Name:           "June strike",
		HealthSystemID: "hs-1",
		HospitalID:     "hosp-ogh",
		StartDate:      time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
		Reductions:     []db.JobTypeReduction{{JobTypeID: "jt-rn", ReductionPercent: 50}},
	}
}

func TestCreateScenario(t *testing.T) {
	m := newMockStore()
	m.hospitals["hosp-ogh"] = &model.Hospital{ID: "hosp-ogh", Code: "OGH", Name: "Oakfield General"}
	m.jobTypes["jt-rn"] = &model.JobType{ID: "jt-rn", Code: "RN", Name: "Registered Nurse"}
	audit := &mockAudit{}

	scenario, err := CreateScenario(context.Background(), m, audit, zap.NewNop(), testActor, validScenarioArgs())
	require.NoError(t, err)

	assert.NotEmpty(t, scenario.ID)
	assert.Equal(t, model.ScenarioDraft, scenario.Status)
	assert.True(t, scenario.IsActive)
	assert.Equal(t, testActor.ID, scenario.CreatedBy)
	require.Len(t, m.insertedScenarios, 1)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "create_scenario", audit.entries[0].Verb)
	assert.Equal(t, scenario.ID, audit.entries[0].EntityID)
}

func TestCreateScenario_SingleDay(t *testing.T) {
	m := newMockStore()
	m.jobTypes["jt-rn"] = &model.JobType{ID: "jt-rn", Code: "RN", Name: "Registered Nurse"}

	args := validScenarioArgs()
	args.HospitalID = ""
	args.EndDate = args.StartDate

	scenario, err := CreateScenario(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, args)
	require.NoError(t, err)
	assert.Empty(t, scenario.HospitalID)
}

func TestCreateScenario_Validation(t *testing.T) {
	base := validScenarioArgs()

	tests := []struct {
		name   string
		mutate func(args *CreateScenarioArgs)
		kind   ErrorKind
	}{
		{
			name:   "missing name",
			mutate: func(args *CreateScenarioArgs) { args.Name = "" },
			kind:   KindValidation,
		},
		{
			name:   "missing health system",
			mutate: func(args *CreateScenarioArgs) { args.HealthSystemID = "" },
			kind:   KindValidation,
		},
		{
			name:   "end before start",
			mutate: func(args *CreateScenarioArgs) { args.EndDate = args.StartDate.AddDate(0, 0, -1) },
			kind:   KindValidation,
		},
		{
			name:   "no reductions",
			mutate: func(args *CreateScenarioArgs) { args.Reductions = nil },
			kind:   KindValidation,
		},
		{
			name: "reduction over 100",
			mutate: func(args *CreateScenarioArgs) {
				args.Reductions = []db.JobTypeReduction{{JobTypeID: "jt-rn", ReductionPercent: 120}}
			},
			kind: KindValidation,
		},
		{
			name: "duplicate job type",
			mutate: func(args *CreateScenarioArgs) {
				args.Reductions = []db.JobTypeReduction{
					{JobTypeID: "jt-rn", ReductionPercent: 50},
					{JobTypeID: "jt-rn", ReductionPercent: 25},
				}
			},
			kind: KindValidation,
		},
		{
			name: "unknown job type",
			mutate: func(args *CreateScenarioArgs) {
				args.Reductions = []db.JobTypeReduction{{JobTypeID: "jt-missing", ReductionPercent: 50}}
			},
			kind: KindNotFound,
		},
		{
			name:   "unknown hospital",
			mutate: func(args *CreateScenarioArgs) { args.HospitalID = "hosp-missing" },
			kind:   KindNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newMockStore()
			m.hospitals["hosp-ogh"] = &model.Hospital{ID: "hosp-ogh", Code: "OGH", Name: "Oakfield General"}
			m.jobTypes["jt-rn"] = &model.JobType{ID: "jt-rn", Code: "RN", Name: "Registered Nurse"}

			args := base
			tc.mutate(&args)

			_, err := CreateScenario(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, args)
			assert.Equal(t, tc.kind, KindOf(err))
			assert.Empty(t, m.insertedScenarios)
		})
	}
}

func TestCreateScenario_ZeroPercentAllowed(t *testing.T) {
	m := newMockStore()
	m.jobTypes["jt-rn"] = &model.JobType{ID: "jt-rn", Code: "RN", Name: "Registered Nurse"}

	args := validScenarioArgs()
	args.HospitalID = ""
	args.Reductions = []db.JobTypeReduction{{JobTypeID: "jt-rn", ReductionPercent: 0}}

	_, err := CreateScenario(context.Background(), m, &mockAudit{}, zap.NewNop(), testActor, args)
	require.NoError(t, err)
}
