package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/sidang-scheduler-api/internal/scheduler"
)

// sessionRow is one line of the sessions sheet.
type sessionRow struct {
	ID        string `csv:"id"`
	Date      string `csv:"date"`
	Time      string `csv:"time"`
	Room      string `csv:"room"`
	StudentID string `csv:"student_id"`
	Title     string `csv:"title"`
	Field     string `csv:"field"`
}

// expertiseRow is one line of the lecturer expertise sheet.
type expertiseRow struct {
	ID        string `csv:"id"`
	Expertise string `csv:"expertise"`
}

var (
	dateLayouts = []string{scheduler.DateLayout, "02/01/2006", "2006-01-02 15:04:05", "2006/01/02"}
	timeLayouts = []string{scheduler.TimeLayout, "15:04:05", "15.04"}
)

func newReader(in io.Reader, delim rune) gocsv.CSVReader {
	r := csv.NewReader(in)
	if delim != 0 {
		r.Comma = delim
	}
	r.TrimLeadingSpace = true
	return r
}

// LoadSessions parses the sessions sheet. Dates and times are normalised to
// scheduler.DateLayout and scheduler.TimeLayout; other validation happens in
// scheduler.NewRoster.
func LoadSessions(in io.Reader, delim rune) ([]scheduler.DefenseSession, error) {
	var rows []*sessionRow
	if err := gocsv.UnmarshalCSV(newReader(in, delim), &rows); err != nil {
		return nil, fmt.Errorf("parse sessions csv: %w", err)
	}

	sessions := make([]scheduler.DefenseSession, 0, len(rows))
	for i, row := range rows {
		date, err := normalise(row.Date, dateLayouts, scheduler.DateLayout)
		if err != nil {
			return nil, fmt.Errorf("%w: sessions line %d: date %q", scheduler.ErrMalformedInput, i+2, row.Date)
		}
		tm, err := normalise(row.Time, timeLayouts, scheduler.TimeLayout)
		if err != nil {
			return nil, fmt.Errorf("%w: sessions line %d: time %q", scheduler.ErrMalformedInput, i+2, row.Time)
		}
		sessions = append(sessions, scheduler.DefenseSession{
			ID:        strings.TrimSpace(row.ID),
			Date:      date,
			Time:      tm,
			Room:      strings.TrimSpace(row.Room),
			StudentID: strings.TrimSpace(row.StudentID),
			Title:     strings.TrimSpace(row.Title),
			Field:     strings.TrimSpace(row.Field),
		})
	}
	return sessions, nil
}

// LoadExpertise parses the lecturer sheet; the expertise column is comma separated.
func LoadExpertise(in io.Reader, delim rune) ([]scheduler.Lecturer, error) {
	var rows []*expertiseRow
	if err := gocsv.UnmarshalCSV(newReader(in, delim), &rows); err != nil {
		return nil, fmt.Errorf("parse expertise csv: %w", err)
	}

	lecturers := make([]scheduler.Lecturer, 0, len(rows))
	for _, row := range rows {
		lecturers = append(lecturers, scheduler.Lecturer{
			ID:        strings.TrimSpace(row.ID),
			Expertise: scheduler.SplitExpertise(row.Expertise),
		})
	}
	return lecturers, nil
}

// LoadSessionsFile opens and parses a sessions sheet from disk.
func LoadSessionsFile(path string, delim rune) ([]scheduler.DefenseSession, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sessions file: %w", err)
	}
	defer f.Close()
	return LoadSessions(f, delim)
}

// LoadExpertiseFile opens and parses a lecturer sheet from disk.
func LoadExpertiseFile(path string, delim rune) ([]scheduler.Lecturer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open expertise file: %w", err)
	}
	defer f.Close()
	return LoadExpertise(f, delim)
}

func normalise(raw string, layouts []string, out string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.Format(out), nil
		}
		lastErr = err
	}
	return "", lastErr
}
