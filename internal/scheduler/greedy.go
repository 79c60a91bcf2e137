package scheduler

import "sort"

// Capacity fills every configured role of each session, sessions in (date,
// time) order. Qualified lecturers are ranked by ascending total workload once
// per session and the first available one takes each role. The pass is fully
// deterministic: equal workloads keep roster order.
func (e *Engine) Capacity() *Schedule {
	run := e.newPanelRun(StrategyCapacity)
	schedule := &Schedule{
		Strategy: StrategyCapacity,
		Roles:    append([]Role(nil), e.opts.Roles...),
	}

	for _, session := range e.roster.sortedByDateTime() {
		eligible := e.roster.Eligible(session)
		sort.SliceStable(eligible, func(i, j int) bool {
			return run.workload.Total(eligible[i].ID) < run.workload.Total(eligible[j].ID)
		})

		panel := newPanel()
		for _, role := range e.opts.Roles {
			filled := false
			for _, lecturer := range eligible {
				if !run.usable(lecturer.ID, session, panel) {
					continue
				}
				run.assign(panel, lecturer, role, session)
				filled = true
				break
			}
			if !filled {
				d := run.diagnose(session, role, eligible)
				e.logUnfilled(d)
				schedule.Diagnostics = append(schedule.Diagnostics, d)
			}
		}
		schedule.Entries = append(schedule.Entries, ScheduleEntry{Session: session, Panel: panel})
	}
	return schedule
}
