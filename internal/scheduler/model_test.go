package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id, date, tm, field string) DefenseSession {
	return DefenseSession{
		ID:        id,
		Date:      date,
		Time:      tm,
		Room:      "R-101",
		StudentID: "S-" + id,
		Title:     "Thesis " + id,
		Field:     field,
	}
}

func mustRoster(t *testing.T, sessions []DefenseSession, lecturers []Lecturer) *Roster {
	t.Helper()
	roster, err := NewRoster(sessions, lecturers, nil)
	require.NoError(t, err)
	return roster
}

func TestNewRosterNormalisesExpertise(t *testing.T) {
	roster := mustRoster(t,
		[]DefenseSession{newSession("s1", "2024-06-01", "09:00", "NLP")},
		[]Lecturer{{ID: "L1", Expertise: []string{" NLP, Vision", "NLP"}}},
	)

	lecturer, ok := roster.Lecturer("L1")
	require.True(t, ok)
	assert.Equal(t, []string{"NLP", "Vision"}, lecturer.Expertise)
	assert.True(t, roster.Covers("Vision"))
	assert.False(t, roster.Covers("Networks"))
}

func TestNewRosterRejectsMalformedInput(t *testing.T) {
	valid := newSession("s1", "2024-06-01", "09:00", "NLP")
	lecturers := []Lecturer{{ID: "L1", Expertise: []string{"NLP"}}}

	missingRoom := valid
	missingRoom.Room = ""
	badDate := valid
	badDate.Date = "01/06/2024"
	badTime := valid
	badTime.Time = "9am"

	cases := map[string]struct {
		sessions  []DefenseSession
		lecturers []Lecturer
	}{
		"no sessions":        {nil, lecturers},
		"no lecturers":       {[]DefenseSession{valid}, nil},
		"missing room":       {[]DefenseSession{missingRoom}, lecturers},
		"bad date":           {[]DefenseSession{badDate}, lecturers},
		"bad time":           {[]DefenseSession{badTime}, lecturers},
		"duplicate session":  {[]DefenseSession{valid, valid}, lecturers},
		"empty expertise":    {[]DefenseSession{valid}, []Lecturer{{ID: "L1", Expertise: []string{" , "}}}},
		"missing lecturerID": {[]DefenseSession{valid}, []Lecturer{{Expertise: []string{"NLP"}}}},
		"duplicate lecturer": {[]DefenseSession{valid}, []Lecturer{lecturers[0], lecturers[0]}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRoster(tc.sessions, tc.lecturers, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestSplitExpertise(t *testing.T) {
	assert.Equal(t, []string{"AI", "Data Mining"}, SplitExpertise("AI, Data Mining ,,AI"))
	assert.Empty(t, SplitExpertise(" "))
}

func TestWorkloadStateRecordKeepsTotals(t *testing.T) {
	w := NewWorkloadState()
	w.Record("L1", RoleExaminer1, "2024-06-01")
	w.Record("L1", RoleSupervisor2, "2024-06-01")
	w.Record("L1", RoleExaminer2, "2024-06-02")

	snap := w.Snapshot("L1")
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 2, snap.Examiner)
	assert.Equal(t, 1, snap.Supervisor)
	assert.Equal(t, snap.Examiner+snap.Supervisor, snap.Total)
	assert.Equal(t, 2, w.Daily("L1", "2024-06-01"))
	assert.Equal(t, 0, w.Total("unknown"))
}

func TestSlotOccupancyBook(t *testing.T) {
	o := NewSlotOccupancy()
	key := SlotKey{Date: "2024-06-01", Time: "09:00"}
	assert.True(t, o.Book(key, "L1"))
	assert.False(t, o.Book(key, "L1"))
	assert.True(t, o.Booked(key, "L1"))
	assert.False(t, o.Booked(SlotKey{Date: "2024-06-01", Time: "10:00"}, "L1"))
}
