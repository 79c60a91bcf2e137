package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleRun is a persisted panel assignment run. Payload holds the full
// generate response so it can be replayed for exports.
type ScheduleRun struct {
	ID             string         `db:"id" json:"id"`
	Strategy       string         `db:"strategy" json:"strategy"`
	TotalSessions  int            `db:"total_sessions" json:"total_sessions"`
	TotalLecturers int            `db:"total_lecturers" json:"total_lecturers"`
	AvgWorkload    float64        `db:"avg_workload" json:"avg_workload"`
	BestReward     *float64       `db:"best_reward" json:"best_reward,omitempty"`
	Valid          bool           `db:"valid" json:"valid"`
	Payload        types.JSONText `db:"payload" json:"payload"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleRunFilter pages through stored runs, newest first.
type ScheduleRunFilter struct {
	Strategy string
	Offset   int
	Limit    int
}
