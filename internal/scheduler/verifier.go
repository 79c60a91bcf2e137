package scheduler

import (
	"math"
	"sort"
)

// ExpertiseViolation is a lecturer placed on a session outside their expertise.
type ExpertiseViolation struct {
	SessionID  string `json:"sessionId"`
	Role       Role   `json:"role"`
	LecturerID string `json:"lecturerId"`
	Field      string `json:"field"`
}

// TimeConflict is a lecturer booked in more than one session of the same slot.
type TimeConflict struct {
	LecturerID string   `json:"lecturerId"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	SessionIDs []string `json:"sessionIds"`
}

// RoleSplit counts examiner and supervisor roles of one lecturer.
type RoleSplit struct {
	Examiner   int `json:"examiner"`
	Supervisor int `json:"supervisor"`
}

// WorkloadStats summarises the per-lecturer totals.
type WorkloadStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Summary holds headline numbers for a schedule.
type Summary struct {
	TotalSessions   int     `json:"totalSessions"`
	LecturersUsed   int     `json:"lecturersUsed"`
	AverageLoad     float64 `json:"averageLoad"`
	UniqueFields    int     `json:"uniqueFields"`
	FilledRoles     int     `json:"filledRoles"`
	UnassignedRoles int     `json:"unassignedRoles"`
}

// Report is the verifier and analyzer output for one schedule.
type Report struct {
	Valid               bool                   `json:"valid"`
	ExpertiseViolations int                    `json:"expertiseViolations"`
	TimeConflicts       int                    `json:"timeConflicts"`
	PanelDuplicates     int                    `json:"panelDuplicates"`
	Violations          []ExpertiseViolation   `json:"violations,omitempty"`
	Conflicts           []TimeConflict         `json:"conflicts,omitempty"`
	Workload            map[string]int         `json:"workload"`
	Roles               map[string]RoleSplit   `json:"roles"`
	Stats               WorkloadStats          `json:"stats"`
	BalanceScore        float64                `json:"balanceScore"`
	ExpertiseRatio      float64                `json:"expertiseRatio"`
	Assignments         int                    `json:"assignments"`
	ExpertiseMatches    int                    `json:"expertiseMatches"`
	Diagnostics         map[DiagnosticKind]int `json:"diagnostics"`
	BestReward          *float64               `json:"bestReward,omitempty"`
	Summary             Summary                `json:"summary"`
}

// Verify reports whether the schedule has no expertise violations and no
// time conflicts.
func Verify(schedule *Schedule, roster *Roster) bool {
	return Analyze(schedule, roster).Valid
}

// Analyze checks a finished schedule and computes workload statistics. It only
// reads the schedule, so repeated calls return identical reports.
func Analyze(schedule *Schedule, roster *Roster) Report {
	report := Report{
		Workload:    make(map[string]int),
		Roles:       make(map[string]RoleSplit),
		Diagnostics: make(map[DiagnosticKind]int),
	}
	if roster != nil {
		for _, l := range roster.lecturers {
			report.Workload[l.ID] = 0
		}
	}
	if schedule == nil {
		report.Valid = true
		report.Stats = describe(report.Workload)
		report.BalanceScore = 1 / (1 + report.Stats.StdDev)
		return report
	}

	slotBookings := make(map[SlotKey]map[string][]string)
	fields := make(map[string]bool)
	for _, entry := range schedule.Entries {
		session := entry.Session
		fields[session.Field] = true
		seenInPanel := make(map[string]bool)

		for _, role := range panelRoles(entry.Panel) {
			id, ok := entry.Panel.Lecturer(role)
			if !ok {
				continue
			}
			report.Assignments++
			report.Workload[id]++
			split := report.Roles[id]
			if role.IsSupervisor() {
				split.Supervisor++
			} else {
				split.Examiner++
			}
			report.Roles[id] = split

			lecturer, known := Lecturer{}, false
			if roster != nil {
				lecturer, known = roster.Lecturer(id)
			}
			if known && IsEligible(lecturer, session) {
				report.ExpertiseMatches++
			} else {
				report.Violations = append(report.Violations, ExpertiseViolation{
					SessionID: session.ID, Role: role, LecturerID: id, Field: session.Field,
				})
			}

			if seenInPanel[id] {
				report.PanelDuplicates++
				continue
			}
			seenInPanel[id] = true
			key := session.Slot()
			if slotBookings[key] == nil {
				slotBookings[key] = make(map[string][]string)
			}
			slotBookings[key][id] = appendUnique(slotBookings[key][id], session.ID)
		}
	}

	for key, byLecturer := range slotBookings {
		for id, sessions := range byLecturer {
			if len(sessions) < 2 {
				continue
			}
			report.Conflicts = append(report.Conflicts, TimeConflict{
				LecturerID: id, Date: key.Date, Time: key.Time, SessionIDs: sessions,
			})
		}
	}
	sort.Slice(report.Conflicts, func(i, j int) bool {
		a, b := report.Conflicts[i], report.Conflicts[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.LecturerID < b.LecturerID
	})

	report.ExpertiseViolations = len(report.Violations)
	report.TimeConflicts = len(report.Conflicts)
	report.Valid = report.ExpertiseViolations == 0 && report.TimeConflicts == 0

	report.Stats = describe(report.Workload)
	report.BalanceScore = 1 / (1 + report.Stats.StdDev)
	if report.Assignments > 0 {
		report.ExpertiseRatio = float64(report.ExpertiseMatches) / float64(report.Assignments)
	}

	for _, d := range schedule.Diagnostics {
		report.Diagnostics[d.Kind]++
	}
	if schedule.BestReward != nil {
		reward := *schedule.BestReward
		report.BestReward = &reward
	}

	var used, usedLoad int
	for _, n := range report.Workload {
		if n > 0 {
			used++
			usedLoad += n
		}
	}
	report.Summary = Summary{
		TotalSessions:   len(schedule.Entries),
		LecturersUsed:   used,
		UniqueFields:    len(fields),
		FilledRoles:     report.Assignments,
		UnassignedRoles: schedule.Unassigned(),
	}
	if used > 0 {
		report.Summary.AverageLoad = float64(usedLoad) / float64(used)
	}
	return report
}

// panelRoles returns the filled roles of a panel in a stable order.
func panelRoles(panel PanelAssignment) []Role {
	roles := make([]Role, 0, len(panel.Members))
	for role := range panel.Members {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// describe computes count, mean, sample standard deviation, extremes and
// linearly interpolated quartiles.
func describe(workload map[string]int) WorkloadStats {
	values := make([]float64, 0, len(workload))
	for _, n := range workload {
		values = append(values, float64(n))
	}
	stats := WorkloadStats{Count: len(values)}
	if len(values) == 0 {
		return stats
	}
	sort.Float64s(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	stats.Mean = sum / float64(len(values))
	if len(values) > 1 {
		var sq float64
		for _, v := range values {
			sq += (v - stats.Mean) * (v - stats.Mean)
		}
		stats.StdDev = math.Sqrt(sq / float64(len(values)-1))
	}
	stats.Min = values[0]
	stats.Max = values[len(values)-1]
	stats.Q1 = quantile(values, 0.25)
	stats.Median = quantile(values, 0.5)
	stats.Q3 = quantile(values, 0.75)
	return stats
}

func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}
