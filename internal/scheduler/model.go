package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Layouts used for the normalised session date and time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Role names a panel position.
type Role string

const (
	RoleExaminer1   Role = "examiner1"
	RoleExaminer2   Role = "examiner2"
	RoleSupervisor1 Role = "supervisor1"
	RoleSupervisor2 Role = "supervisor2"
)

// DefaultRoles is the fixed panel order used when no ordering is configured.
var DefaultRoles = []Role{RoleExaminer1, RoleExaminer2, RoleSupervisor1, RoleSupervisor2}

// IsSupervisor reports whether the role counts towards supervisor workload.
func (r Role) IsSupervisor() bool {
	return strings.HasPrefix(string(r), "supervisor")
}

// ParseRole validates a role name.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleExaminer1, RoleExaminer2, RoleSupervisor1, RoleSupervisor2:
		return role, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrMalformedInput, raw)
}

// DefenseSession is one thesis-defense event.
type DefenseSession struct {
	ID        string `json:"id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required,datetime=15:04"`
	Room      string `json:"room" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
	Title     string `json:"title" validate:"required"`
	Field     string `json:"field" validate:"required"`
}

// Slot returns the composite (date, time) key of the session.
func (s DefenseSession) Slot() SlotKey {
	return SlotKey{Date: s.Date, Time: s.Time}
}

// Lecturer is a panel candidate with the fields it may examine.
type Lecturer struct {
	ID        string   `json:"id" validate:"required"`
	Expertise []string `json:"expertise" validate:"required,min=1,dive,required"`
}

// Has reports whether the lecturer lists the field.
func (l Lecturer) Has(field string) bool {
	for _, f := range l.Expertise {
		if f == field {
			return true
		}
	}
	return false
}

// SplitExpertise turns a comma separated expertise cell into trimmed, unique tags.
func SplitExpertise(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}

// Roster is the validated, read-only input of one scheduling run.
type Roster struct {
	sessions  []DefenseSession
	lecturers []Lecturer
	index     map[string]int
	fields    map[string]bool
}

// NewRoster validates sessions and lecturers and builds the lookup indexes.
// Any malformed record rejects the whole roster.
func NewRoster(sessions []DefenseSession, lecturers []Lecturer, validate *validator.Validate) (*Roster, error) {
	if validate == nil {
		validate = validator.New()
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: no sessions", ErrMalformedInput)
	}
	if len(lecturers) == 0 {
		return nil, fmt.Errorf("%w: no lecturers", ErrMalformedInput)
	}

	seen := make(map[string]bool, len(sessions))
	copied := make([]DefenseSession, len(sessions))
	for i, session := range sessions {
		if err := validate.Struct(session); err != nil {
			return nil, fmt.Errorf("%w: session %d (%q): %v", ErrMalformedInput, i, session.ID, err)
		}
		if seen[session.ID] {
			return nil, fmt.Errorf("%w: duplicate session id %q", ErrMalformedInput, session.ID)
		}
		seen[session.ID] = true
		copied[i] = session
	}

	r := &Roster{
		sessions:  copied,
		lecturers: make([]Lecturer, 0, len(lecturers)),
		index:     make(map[string]int, len(lecturers)),
		fields:    make(map[string]bool),
	}
	for _, lecturer := range lecturers {
		lecturer.Expertise = SplitExpertise(strings.Join(lecturer.Expertise, ","))
		if err := validate.Struct(lecturer); err != nil {
			return nil, fmt.Errorf("%w: lecturer %q: %v", ErrMalformedInput, lecturer.ID, err)
		}
		if _, dup := r.index[lecturer.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate lecturer id %q", ErrMalformedInput, lecturer.ID)
		}
		r.index[lecturer.ID] = len(r.lecturers)
		r.lecturers = append(r.lecturers, lecturer)
		for _, f := range lecturer.Expertise {
			r.fields[f] = true
		}
	}
	return r, nil
}

// Sessions returns the sessions in input order.
func (r *Roster) Sessions() []DefenseSession {
	out := make([]DefenseSession, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Lecturers returns the lecturers in input order.
func (r *Roster) Lecturers() []Lecturer {
	out := make([]Lecturer, len(r.lecturers))
	copy(out, r.lecturers)
	return out
}

// Lecturer looks a lecturer up by id.
func (r *Roster) Lecturer(id string) (Lecturer, bool) {
	i, ok := r.index[id]
	if !ok {
		return Lecturer{}, false
	}
	return r.lecturers[i], true
}

// Covers reports whether any lecturer lists the field.
func (r *Roster) Covers(field string) bool {
	return r.fields[field]
}

// Eligible returns lecturers qualified for the session, in input order.
func (r *Roster) Eligible(session DefenseSession) []Lecturer {
	var out []Lecturer
	for _, l := range r.lecturers {
		if IsEligible(l, session) {
			out = append(out, l)
		}
	}
	return out
}

// SessionCount is the number of sessions in the run.
func (r *Roster) SessionCount() int { return len(r.sessions) }

// LecturerCount is the number of lecturers in the run.
func (r *Roster) LecturerCount() int { return len(r.lecturers) }

// sortedByDateTime returns the sessions sorted by (date, time), input order breaking ties.
func (r *Roster) sortedByDateTime() []DefenseSession {
	out := r.Sessions()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date == out[j].Date {
			return out[i].Time < out[j].Time
		}
		return out[i].Date < out[j].Date
	})
	return out
}

// Assignment is one filled panel role.
type Assignment struct {
	Role       Role    `json:"role"`
	LecturerID string  `json:"lecturerId"`
	Score      float64 `json:"score"`
}

// PanelAssignment maps roles to lecturers for one session. Roles missing from
// the map are unassigned.
type PanelAssignment struct {
	Members map[Role]string  `json:"members"`
	Scores  map[Role]float64 `json:"scores,omitempty"`
}

func newPanel() PanelAssignment {
	return PanelAssignment{Members: map[Role]string{}, Scores: map[Role]float64{}}
}

// Lecturer returns the lecturer holding the role, if any.
func (p PanelAssignment) Lecturer(role Role) (string, bool) {
	id, ok := p.Members[role]
	return id, ok && id != ""
}

// Contains reports whether the lecturer already sits on this panel.
func (p PanelAssignment) Contains(lecturerID string) bool {
	for _, id := range p.Members {
		if id == lecturerID {
			return true
		}
	}
	return false
}

func (p PanelAssignment) assigned() map[string]bool {
	out := make(map[string]bool, len(p.Members))
	for _, id := range p.Members {
		if id != "" {
			out[id] = true
		}
	}
	return out
}

// ScheduleEntry pairs a session with its panel.
type ScheduleEntry struct {
	Session DefenseSession  `json:"session"`
	Panel   PanelAssignment `json:"panel"`
}

// Schedule is the output of one strategy run. Entries are never mutated after
// the strategy returns.
type Schedule struct {
	Strategy    StrategyName    `json:"strategy"`
	Roles       []Role          `json:"roles"`
	Entries     []ScheduleEntry `json:"entries"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
	// BestReward is set by the rollout strategy only.
	BestReward *float64 `json:"bestReward,omitempty"`
	Trials     int      `json:"trials,omitempty"`
}

// Unassigned counts roles left empty across the schedule.
func (s *Schedule) Unassigned() int {
	var n int
	for _, entry := range s.Entries {
		for _, role := range s.Roles {
			if _, ok := entry.Panel.Lecturer(role); !ok {
				n++
			}
		}
	}
	return n
}
