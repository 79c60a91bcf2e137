package models

// AuditAction names a mutating operation recorded in the audit trail.
type AuditAction string

const (
	AuditActionScheduleGenerate AuditAction = "SCHEDULE_GENERATE"
	AuditActionScheduleUpload   AuditAction = "SCHEDULE_UPLOAD"
	AuditActionScheduleDelete   AuditAction = "SCHEDULE_DELETE"
)
