package scheduler

// LecturerLoad holds the counters of one lecturer.
type LecturerLoad struct {
	Total      int            `json:"total"`
	Examiner   int            `json:"examiner"`
	Supervisor int            `json:"supervisor"`
	Daily      map[string]int `json:"daily"`
}

// WorkloadState tracks per-lecturer counters for a single run or trial.
// Record is the only mutator so Total always equals Examiner + Supervisor.
type WorkloadState struct {
	loads map[string]*LecturerLoad
}

// NewWorkloadState returns an empty tracker.
func NewWorkloadState() *WorkloadState {
	return &WorkloadState{loads: make(map[string]*LecturerLoad)}
}

func (w *WorkloadState) load(id string) *LecturerLoad {
	l, ok := w.loads[id]
	if !ok {
		l = &LecturerLoad{Daily: make(map[string]int)}
		w.loads[id] = l
	}
	return l
}

// Record adds one assignment of role on date for the lecturer.
func (w *WorkloadState) Record(lecturerID string, role Role, date string) {
	l := w.load(lecturerID)
	if role.IsSupervisor() {
		l.Supervisor++
	} else {
		l.Examiner++
	}
	l.Total = l.Examiner + l.Supervisor
	l.Daily[date]++
}

// Total returns the lecturer's total assignment count.
func (w *WorkloadState) Total(lecturerID string) int {
	if l, ok := w.loads[lecturerID]; ok {
		return l.Total
	}
	return 0
}

// Daily returns the lecturer's assignment count on date.
func (w *WorkloadState) Daily(lecturerID, date string) int {
	if l, ok := w.loads[lecturerID]; ok {
		return l.Daily[date]
	}
	return 0
}

// Snapshot copies the counters of a lecturer.
func (w *WorkloadState) Snapshot(lecturerID string) LecturerLoad {
	l, ok := w.loads[lecturerID]
	if !ok {
		return LecturerLoad{Daily: map[string]int{}}
	}
	daily := make(map[string]int, len(l.Daily))
	for k, v := range l.Daily {
		daily[k] = v
	}
	return LecturerLoad{Total: l.Total, Examiner: l.Examiner, Supervisor: l.Supervisor, Daily: daily}
}

// SlotKey is the (date, time) pair sessions conflict on.
type SlotKey struct {
	Date string
	Time string
}

func (k SlotKey) String() string {
	return k.Date + " " + k.Time
}

// SlotOccupancy indexes which lecturers are booked in each slot.
type SlotOccupancy struct {
	slots map[SlotKey]map[string]bool
}

// NewSlotOccupancy returns an empty index.
func NewSlotOccupancy() *SlotOccupancy {
	return &SlotOccupancy{slots: make(map[SlotKey]map[string]bool)}
}

// Book marks the lecturer as busy in the slot. It reports false when the
// lecturer already held the slot.
func (o *SlotOccupancy) Book(key SlotKey, lecturerID string) bool {
	booked := o.slots[key]
	if booked == nil {
		booked = make(map[string]bool)
		o.slots[key] = booked
	}
	if booked[lecturerID] {
		return false
	}
	booked[lecturerID] = true
	return true
}

// Booked reports whether the lecturer holds the slot.
func (o *SlotOccupancy) Booked(key SlotKey, lecturerID string) bool {
	return o.slots[key][lecturerID]
}
