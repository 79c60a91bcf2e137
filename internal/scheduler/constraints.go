package scheduler

// IsEligible reports whether the session field is in the lecturer's expertise.
func IsEligible(lecturer Lecturer, session DefenseSession) bool {
	return lecturer.Has(session.Field)
}

// HasSlotConflict reports whether the lecturer already occupies (date, time).
func HasSlotConflict(lecturerID, date, timeSlot string, occupancy *SlotOccupancy) bool {
	if occupancy == nil {
		return false
	}
	return occupancy.Booked(SlotKey{Date: date, Time: timeSlot}, lecturerID)
}

// IsAvailable checks the per-session, daily and total limits for a lecturer.
// A cap of zero or less disables that limit.
func IsAvailable(lecturerID, date string, assignedThisSession map[string]bool, workload *WorkloadState, dailyCap, totalCap int) bool {
	if assignedThisSession[lecturerID] {
		return false
	}
	if dailyCap > 0 && workload.Daily(lecturerID, date) >= dailyCap {
		return false
	}
	if totalCap > 0 && workload.Total(lecturerID) >= totalCap {
		return false
	}
	return true
}

// classify picks the diagnostic for a role no candidate could fill.
func classify(session DefenseSession, eligible []Lecturer, roster *Roster, workload *WorkloadState, dailyCap, totalCap int) DiagnosticKind {
	if !roster.Covers(session.Field) || len(eligible) == 0 {
		return DiagnosticUnknownField
	}
	for _, l := range eligible {
		atDaily := dailyCap > 0 && workload.Daily(l.ID, session.Date) >= dailyCap
		atTotal := totalCap > 0 && workload.Total(l.ID) >= totalCap
		if !atDaily && !atTotal {
			return DiagnosticNoEligibleLecturer
		}
	}
	return DiagnosticCapacityExhausted
}
