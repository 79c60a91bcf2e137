package scheduler

// Scored fills each role with the available qualified lecturer of highest
// Score, sessions in input order. The first lecturer reaching the maximum wins.
func (e *Engine) Scored() *Schedule {
	run := e.newPanelRun(StrategyScored)
	schedule := &Schedule{
		Strategy: StrategyScored,
		Roles:    append([]Role(nil), e.opts.Roles...),
	}

	for _, session := range e.roster.Sessions() {
		eligible := e.roster.Eligible(session)
		panel := newPanel()
		for _, role := range e.opts.Roles {
			best := -1
			var bestScore float64
			for i, lecturer := range eligible {
				if !run.usable(lecturer.ID, session, panel) {
					continue
				}
				score := Score(lecturer, session.Field, run.workload.Total(lecturer.ID), run.target)
				if best < 0 || score > bestScore {
					best, bestScore = i, score
				}
			}
			if best < 0 {
				d := run.diagnose(session, role, eligible)
				e.logUnfilled(d)
				schedule.Diagnostics = append(schedule.Diagnostics, d)
				continue
			}
			run.assign(panel, eligible[best], role, session)
		}
		schedule.Entries = append(schedule.Entries, ScheduleEntry{Session: session, Panel: panel})
	}
	return schedule
}
