package csvio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sidang-scheduler-api/internal/scheduler"
)

const sessionsCSV = `id,date,time,room,student_id,title,field
S1,2024-06-03,09:00,R-101,2201,Transformer Summaries,NLP
S2,04/06/2024,13:30:00,R-102,2202,Edge Detection,Vision
`

const expertiseCSV = `id,expertise
L1,"NLP, Vision"
L2,Networks
`

func TestLoadSessionsNormalisesDates(t *testing.T) {
	sessions, err := LoadSessions(strings.NewReader(sessionsCSV), ',')
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, scheduler.DefenseSession{
		ID: "S1", Date: "2024-06-03", Time: "09:00", Room: "R-101",
		StudentID: "2201", Title: "Transformer Summaries", Field: "NLP",
	}, sessions[0])
	assert.Equal(t, "2024-06-04", sessions[1].Date)
	assert.Equal(t, "13:30", sessions[1].Time)
}

func TestLoadSessionsRejectsBadDate(t *testing.T) {
	input := "id,date,time,room,student_id,title,field\nS1,next monday,09:00,R,1,T,NLP\n"
	_, err := LoadSessions(strings.NewReader(input), ',')
	require.Error(t, err)
	assert.ErrorIs(t, err, scheduler.ErrMalformedInput)
}

func TestLoadExpertiseSplitsTags(t *testing.T) {
	lecturers, err := LoadExpertise(strings.NewReader(expertiseCSV), ',')
	require.NoError(t, err)
	require.Len(t, lecturers, 2)
	assert.Equal(t, []string{"NLP", "Vision"}, lecturers[0].Expertise)
	assert.Equal(t, []string{"Networks"}, lecturers[1].Expertise)
}

func TestLoadFilesWithSemicolon(t *testing.T) {
	dir := t.TempDir()
	sessionsPath := filepath.Join(dir, "sessions.csv")
	expertisePath := filepath.Join(dir, "expertise.csv")
	require.NoError(t, os.WriteFile(sessionsPath, []byte(strings.ReplaceAll(sessionsCSV, ",", ";")), 0o600))
	require.NoError(t, os.WriteFile(expertisePath, []byte("id;expertise\nL1;NLP,Vision\n"), 0o600))

	sessions, err := LoadSessionsFile(sessionsPath, ';')
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	lecturers, err := LoadExpertiseFile(expertisePath, ';')
	require.NoError(t, err)
	assert.Equal(t, []string{"NLP", "Vision"}, lecturers[0].Expertise)

	_, err = LoadSessionsFile(filepath.Join(dir, "missing.csv"), ';')
	assert.Error(t, err)
}
