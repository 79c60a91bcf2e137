package scheduler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handBuiltSchedule(t *testing.T) (*Schedule, *Roster) {
	t.Helper()
	roster := mustRoster(t,
		[]DefenseSession{
			newSession("s1", "2024-06-01", "09:00", "NLP"),
			newSession("s2", "2024-06-01", "09:00", "Vision"),
			newSession("s3", "2024-06-02", "09:00", "NLP"),
		},
		[]Lecturer{
			{ID: "A", Expertise: []string{"NLP"}},
			{ID: "B", Expertise: []string{"Vision"}},
			{ID: "C", Expertise: []string{"NLP", "Vision"}},
			{ID: "D", Expertise: []string{"Networks"}},
		},
	)
	sessions := roster.Sessions()
	schedule := &Schedule{
		Strategy: StrategyCapacity,
		Roles:    DefaultRoles,
		Entries: []ScheduleEntry{
			{Session: sessions[0], Panel: PanelAssignment{Members: map[Role]string{
				RoleExaminer1: "A", RoleExaminer2: "C",
			}}},
			{Session: sessions[1], Panel: PanelAssignment{Members: map[Role]string{
				// C is double booked at 2024-06-01 09:00, A lacks Vision
				RoleExaminer1: "C", RoleSupervisor1: "A",
			}}},
			{Session: sessions[2], Panel: PanelAssignment{Members: map[Role]string{
				RoleExaminer1: "A", RoleSupervisor2: "ghost",
			}}},
		},
	}
	return schedule, roster
}

func TestAnalyzeCountsViolations(t *testing.T) {
	schedule, roster := handBuiltSchedule(t)

	report := Analyze(schedule, roster)

	assert.False(t, report.Valid)
	assert.Equal(t, 2, report.ExpertiseViolations, "A on Vision and unknown ghost")
	// A and C both sit on s1 and s2 at the same slot
	assert.Equal(t, 2, report.TimeConflicts)
	require.Len(t, report.Conflicts, 2)
	assert.Equal(t, "A", report.Conflicts[0].LecturerID)
	assert.Equal(t, []string{"s1", "s2"}, report.Conflicts[0].SessionIDs)

	assert.Equal(t, 6, report.Assignments)
	assert.Equal(t, 4, report.ExpertiseMatches)
	assert.InDelta(t, 4.0/6.0, report.ExpertiseRatio, 1e-9)
	assert.Equal(t, 3, report.Workload["A"])
	assert.Equal(t, 0, report.Workload["D"], "idle lecturers count as zero")
	assert.Equal(t, RoleSplit{Examiner: 2, Supervisor: 1}, report.Roles["A"])
	assert.Equal(t, 6, report.Summary.UnassignedRoles)
	assert.Equal(t, 2, report.Summary.UniqueFields)
}

func TestVerifyMatchesCountersAndIsIdempotent(t *testing.T) {
	schedule, roster := handBuiltSchedule(t)

	first := Analyze(schedule, roster)
	second := Analyze(schedule, roster)

	assert.Equal(t, first, second)
	assert.Equal(t, first.ExpertiseViolations == 0 && first.TimeConflicts == 0, Verify(schedule, roster))

	clean := &Schedule{Roles: DefaultRoles, Entries: []ScheduleEntry{{
		Session: schedule.Entries[2].Session,
		Panel:   PanelAssignment{Members: map[Role]string{RoleExaminer1: "A", RoleExaminer2: "C"}},
	}}}
	assert.True(t, Verify(clean, roster))
}

func TestAnalyzeWorkloadStatistics(t *testing.T) {
	schedule, roster := handBuiltSchedule(t)
	report := Analyze(schedule, roster)

	// workloads: A=3, B=0, C=2, D=0, ghost=1
	stats := report.Stats
	assert.Equal(t, 5, stats.Count)
	assert.InDelta(t, 1.2, stats.Mean, 1e-9)
	expectedStd := math.Sqrt((1.8*1.8 + 1.2*1.2 + 0.8*0.8 + 1.2*1.2 + 0.2*0.2) / 4)
	assert.InDelta(t, expectedStd, stats.StdDev, 1e-9)
	assert.Equal(t, 0.0, stats.Min)
	assert.Equal(t, 3.0, stats.Max)
	assert.Equal(t, 1.0, stats.Median)
	assert.InDelta(t, 1/(1+expectedStd), report.BalanceScore, 1e-9)
}

func TestAnalyzeBalancedWorkload(t *testing.T) {
	roster := mustRoster(t,
		[]DefenseSession{newSession("s1", "2024-06-01", "09:00", "NLP")},
		[]Lecturer{{ID: "A", Expertise: []string{"NLP"}}, {ID: "B", Expertise: []string{"NLP"}}},
	)
	schedule := &Schedule{Roles: DefaultRoles, Entries: []ScheduleEntry{{
		Session: roster.Sessions()[0],
		Panel:   PanelAssignment{Members: map[Role]string{RoleExaminer1: "A", RoleExaminer2: "B"}},
	}}}

	report := Analyze(schedule, roster)
	assert.Equal(t, 1.0, report.BalanceScore)
	assert.Equal(t, 1.0, report.ExpertiseRatio)
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.Summary.LecturersUsed)
	assert.Equal(t, 1.0, report.Summary.AverageLoad)
}

func TestAnalyzePanelDuplicateIsNotTimeConflict(t *testing.T) {
	roster := mustRoster(t,
		[]DefenseSession{newSession("s1", "2024-06-01", "09:00", "NLP")},
		[]Lecturer{{ID: "A", Expertise: []string{"NLP"}}},
	)
	schedule := &Schedule{Roles: DefaultRoles, Entries: []ScheduleEntry{{
		Session: roster.Sessions()[0],
		Panel:   PanelAssignment{Members: map[Role]string{RoleExaminer1: "A", RoleSupervisor1: "A"}},
	}}}

	report := Analyze(schedule, roster)
	assert.Equal(t, 1, report.PanelDuplicates)
	assert.Zero(t, report.TimeConflicts)
}
