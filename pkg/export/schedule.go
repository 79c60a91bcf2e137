package export

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/noah-isme/sidang-scheduler-api/internal/scheduler"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat validates an export format. Empty selects CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

var sessionHeaders = []string{"session_id", "date", "time", "room", "student_id", "field"}

// ScheduleDataset flattens a schedule to one row per session with one column per role.
// Empty role cells mark unassigned roles.
func ScheduleDataset(schedule *scheduler.Schedule) Dataset {
	headers := append([]string(nil), sessionHeaders...)
	for _, role := range schedule.Roles {
		headers = append(headers, string(role))
	}

	rows := make([]map[string]string, 0, len(schedule.Entries))
	for _, entry := range schedule.Entries {
		row := map[string]string{
			"session_id": entry.Session.ID,
			"date":       entry.Session.Date,
			"time":       entry.Session.Time,
			"room":       entry.Session.Room,
			"student_id": entry.Session.StudentID,
			"field":      entry.Session.Field,
		}
		for _, role := range schedule.Roles {
			if id, ok := entry.Panel.Lecturer(role); ok {
				row[string(role)] = id
			}
		}
		rows = append(rows, row)
	}
	return Dataset{Headers: headers, Rows: rows}
}

// WorkloadDataset lists per-lecturer totals from an analysis report, heaviest first.
func WorkloadDataset(report scheduler.Report) Dataset {
	ids := make([]string, 0, len(report.Workload))
	for id := range report.Workload {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if report.Workload[ids[i]] == report.Workload[ids[j]] {
			return ids[i] < ids[j]
		}
		return report.Workload[ids[i]] > report.Workload[ids[j]]
	})

	rows := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		split := report.Roles[id]
		rows = append(rows, map[string]string{
			"lecturer_id": id,
			"total":       strconv.Itoa(report.Workload[id]),
			"examiner":    strconv.Itoa(split.Examiner),
			"supervisor":  strconv.Itoa(split.Supervisor),
		})
	}
	return Dataset{Headers: []string{"lecturer_id", "total", "examiner", "supervisor"}, Rows: rows}
}

// ReportNotes summarises an analysis report as printable lines.
func ReportNotes(report scheduler.Report) []string {
	notes := []string{
		fmt.Sprintf("Valid: %t (expertise violations %d, time conflicts %d)", report.Valid, report.ExpertiseViolations, report.TimeConflicts),
		fmt.Sprintf("Filled roles: %d, unassigned roles: %d, lecturers used: %d",
			report.Summary.FilledRoles, report.Summary.UnassignedRoles, report.Summary.LecturersUsed),
		fmt.Sprintf("Workload mean %.2f, std %.2f, balance %.3f, expertise ratio %.3f",
			report.Stats.Mean, report.Stats.StdDev, report.BalanceScore, report.ExpertiseRatio),
	}
	if report.BestReward != nil {
		notes = append(notes, fmt.Sprintf("Best reward: %.3f", *report.BestReward))
	}
	return notes
}
