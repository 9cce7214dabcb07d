package insights

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/devboard/devboard-api/internal/models"
)

// ExportSummary counts the records in an export
type ExportSummary struct {
	TotalTasks          int `json:"total_tasks"`
	CompletedTasks      int `json:"completed_tasks"`
	TotalPomodoros      int `json:"total_pomodoros"`
	TotalJournalEntries int `json:"total_journal_entries"`
}

// Export is a user's raw data over a window
type Export struct {
	ExportDate time.Time                 `json:"export_date"`
	Start      time.Time                 `json:"start"`
	End        time.Time                 `json:"end"`
	Summary    ExportSummary             `json:"summary"`
	Tasks      []*models.Task            `json:"tasks"`
	Pomodoros  []*models.PomodoroSession `json:"pomodoros"`
	Journals   []*models.JournalEntry    `json:"journals"`
}

// BuildExport collects the records created within windowDays
func (a *Aggregator) BuildExport(tasks []*models.Task, pomodoros []*models.PomodoroSession, journals []*models.JournalEntry, windowDays int) *Export {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	now := a.now()
	start := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	e := &Export{
		ExportDate: now,
		Start:      start,
		End:        now,
		Tasks:      filterTasks(tasks, start),
		Pomodoros:  filterPomodoros(pomodoros, start),
		Journals:   filterJournals(journals, start),
	}
	for _, t := range e.Tasks {
		if t.IsDone() {
			e.Summary.CompletedTasks++
		}
	}
	e.Summary.TotalTasks = len(e.Tasks)
	e.Summary.TotalPomodoros = len(e.Pomodoros)
	e.Summary.TotalJournalEntries = len(e.Journals)
	return e
}

var csvHeader = []string{"Type", "Title", "Description", "Status", "Created", "Completed", "Priority", "Duration", "Mood"}

// WriteCSV writes one row per task, pomodoro and journal entry
func (e *Export) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range e.Tasks {
		status := "Pending"
		completed := ""
		if t.IsDone() {
			status = "Completed"
		}
		if t.CompletedAt != nil {
			completed = t.CompletedAt.UTC().Format(time.RFC3339)
		}
		row := []string{"Task", t.Title, t.Description, status, t.CreatedAt.UTC().Format(time.RFC3339), completed, string(t.Priority), "", ""}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write task row: %w", err)
		}
	}
	for _, p := range e.Pomodoros {
		row := []string{"Pomodoro", "Focus Session", "", "Completed", p.CreatedAt.UTC().Format(time.RFC3339), "", "", strconv.Itoa(p.TotalMinutes), ""}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write pomodoro row: %w", err)
		}
	}
	for _, j := range e.Journals {
		row := []string{"Journal", j.Date.UTC().Format("2006-01-02"), j.Entry, "Completed", j.CreatedAt.UTC().Format(time.RFC3339), "", "", "", strconv.Itoa(j.Mood)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write journal row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
