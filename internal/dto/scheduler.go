package dto

import (
	"time"

	"github.com/noah-isme/sidang-scheduler-api/internal/scheduler"
)

// ScheduleOptionsInput overrides the configured engine tuning for one run.
// Nil fields keep the configured value.
type ScheduleOptionsInput struct {
	DailyCap      *int     `json:"dailyCap" validate:"omitempty,min=0"`
	CapPolicy     string   `json:"capPolicy" validate:"omitempty,oneof=ceil scaled none"`
	Epsilon       *float64 `json:"epsilon" validate:"omitempty,min=0,max=1"`
	MaxIterations *int     `json:"maxIterations" validate:"omitempty,min=1,max=100000"`
	Seed          *uint64  `json:"seed"`
	Roles         []string `json:"roles" validate:"omitempty,max=4,dive,oneof=examiner1 examiner2 supervisor1 supervisor2"`
	SlotConflicts *bool    `json:"slotConflicts"`
	TimeBudgetMs  *int     `json:"timeBudgetMs" validate:"omitempty,min=1"`
}

// GenerateScheduleRequest asks the engine to assign panels for the sessions.
// Record level checks happen when the roster is built.
type GenerateScheduleRequest struct {
	Strategy  string                     `json:"strategy" validate:"omitempty,oneof=capacity scored rollout"`
	Sessions  []scheduler.DefenseSession `json:"sessions" validate:"required,min=1"`
	Lecturers []scheduler.Lecturer       `json:"lecturers" validate:"required,min=1"`
	Options   *ScheduleOptionsInput      `json:"options"`
	Persist   *bool                      `json:"persist"`
}

// GenerateScheduleResponse returns the assignment and its analysis.
type GenerateScheduleResponse struct {
	ID         string              `json:"id"`
	Strategy   string              `json:"strategy"`
	Schedule   *scheduler.Schedule `json:"schedule"`
	Report     scheduler.Report    `json:"report"`
	DurationMs int64               `json:"durationMs"`
	Persisted  bool                `json:"persisted"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// ScheduleRunSummary is one row of the run listing.
type ScheduleRunSummary struct {
	ID             string    `json:"id"`
	Strategy       string    `json:"strategy"`
	TotalSessions  int       `json:"totalSessions"`
	TotalLecturers int       `json:"totalLecturers"`
	AvgWorkload    float64   `json:"avgWorkload"`
	BestReward     *float64  `json:"bestReward,omitempty"`
	Valid          bool      `json:"valid"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ScheduleRunQuery pages through stored runs.
type ScheduleRunQuery struct {
	Strategy string `form:"strategy" json:"strategy" validate:"omitempty,oneof=capacity scored rollout"`
	Offset   int    `form:"offset" json:"offset" validate:"omitempty,min=0"`
	Limit    int    `form:"limit" json:"limit" validate:"omitempty,min=0,max=100"`
}

// ScheduleExport is a rendered export of a stored run.
type ScheduleExport struct {
	Filename    string
	ContentType string
	Body        []byte
}
