package insights

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/google/uuid"
)

func TestDashboard_Overview(t *testing.T) {
	t.Parallel()

	completedAt := fixedNow.Add(-time.Hour)
	tasks := []*models.Task{
		doneTask(fixedNow.Add(-3*time.Hour), completedAt, "Design"),
		doneTask(fixedNow.Add(-5*time.Hour), completedAt, "Design"),
		openTask(fixedNow.Add(-2 * time.Hour)),
		openTask(fixedNow.Add(-2 * time.Hour)),
	}
	tasks[0].Project = "Website"
	tasks[2].Project = "Website"
	pomodoros := []*models.PomodoroSession{
		{ID: uuid.New(), TotalMinutes: 50, CreatedAt: fixedNow.Add(-4 * time.Hour)},
		{ID: uuid.New(), TotalMinutes: 0, CreatedAt: fixedNow.Add(-4 * time.Hour)},
	}
	journals := []*models.JournalEntry{
		{ID: uuid.New(), Entry: "A great and productive day", CreatedAt: fixedNow.Add(-time.Hour)},
	}

	d := newTestAggregator().Dashboard(tasks, pomodoros, journals, 30)

	if d.Overview.TotalTasks != 4 || d.Overview.CompletedTasks != 2 {
		t.Errorf("Expected 4 total and 2 completed, got %d and %d", d.Overview.TotalTasks, d.Overview.CompletedTasks)
	}
	if d.Overview.CompletionRate != 50 {
		t.Errorf("Expected completion 50, got %d", d.Overview.CompletionRate)
	}
	if d.Overview.AverageTaskHours != 3 {
		t.Errorf("Expected average task time 3h, got %f", d.Overview.AverageTaskHours)
	}
	// 50*0.4 + 8*0.3 + 10*0.2 + 10*0.1 = 25.4
	if d.Overview.ProductivityScore != 25 {
		t.Errorf("Expected productivity score 25, got %d", d.Overview.ProductivityScore)
	}
	// 50 + 25 default minutes
	if d.Overview.FocusTimeHours != 1.25 {
		t.Errorf("Expected 1.25 focus hours, got %f", d.Overview.FocusTimeHours)
	}
	if d.Overview.StreakDays != 1 {
		t.Errorf("Expected streak 1, got %d", d.Overview.StreakDays)
	}
	if d.Overview.PeakProductivityHour != 14 {
		t.Errorf("Expected peak hour 14, got %d", d.Overview.PeakProductivityHour)
	}

	if len(d.Trends.Weekly) != 7 {
		t.Fatalf("Expected 7 weekly entries, got %d", len(d.Trends.Weekly))
	}
	last := d.Trends.Weekly[6]
	if last.Date != "2026-03-10" || last.Created != 4 || last.Completed != 2 {
		t.Errorf("Expected today with 4 created and 2 completed, got %+v", last)
	}
	if len(d.Trends.TimeAnalysis) != 24 {
		t.Fatalf("Expected 24 hours, got %d", len(d.Trends.TimeAnalysis))
	}
	if got := d.Trends.TimeAnalysis[14].Productivity; got != 4 {
		t.Errorf("Expected productivity 4 at 14h, got %d", got)
	}
	if got := d.Trends.TimeAnalysis[11].Productivity; got != 2 {
		t.Errorf("Expected productivity 2 at 11h, got %d", got)
	}
	if len(d.Trends.ProjectProgress) != 1 || d.Trends.ProjectProgress[0].Progress != 50 {
		t.Errorf("Expected Website at 50%%, got %+v", d.Trends.ProjectProgress)
	}

	dist := d.Trends.CategoryDistribution
	if len(dist) != 2 || dist[0].Name != "Design" || dist[0].Percentage != 50 || dist[1].Name != "Uncategorized" {
		t.Errorf("Unexpected category distribution %+v", dist)
	}

	titles := make([]string, 0, len(d.Insights))
	for _, in := range d.Insights {
		titles = append(titles, in.Title)
	}
	want := []string{"Boost Focus with Pomodoros", "Positive Mindset"}
	if len(titles) != len(want) || titles[0] != want[0] || titles[1] != want[1] {
		t.Errorf("Expected insights %v, got %v", want, titles)
	}
	if d.Metadata.DataPoints != 7 {
		t.Errorf("Expected 7 data points, got %d", d.Metadata.DataPoints)
	}
}

func TestHeatmap_Levels(t *testing.T) {
	t.Parallel()

	day := 24 * time.Hour
	tasks := make([]*models.Task, 0)
	for i := 0; i < 5; i++ {
		tasks = append(tasks, doneTask(fixedNow.Add(-2*day), fixedNow.Add(-day), "Testing"))
	}
	for i := 0; i < 10; i++ {
		tasks = append(tasks, doneTask(fixedNow.Add(-3*day), fixedNow.Add(-2*day), "Testing"))
	}
	tasks = append(tasks, doneTask(fixedNow.Add(-400*day), fixedNow.Add(-380*day), "Testing"))
	tasks = append(tasks, openTask(fixedNow))

	h := newTestAggregator().Heatmap(tasks)

	if h.TotalDays != 2 {
		t.Fatalf("Expected 2 active days, got %d", h.TotalDays)
	}
	if h.Days[0].Date != "2026-03-08" || h.Days[0].Level != 4 {
		t.Errorf("Expected 2026-03-08 at level 4, got %+v", h.Days[0])
	}
	if h.Days[1].Date != "2026-03-09" || h.Days[1].Level != 2 {
		t.Errorf("Expected 2026-03-09 at level 2, got %+v", h.Days[1])
	}
	if h.MaxTasksPerDay != 10 || h.AverageTasksPerDay != 7.5 {
		t.Errorf("Expected max 10 and average 7.5, got %d and %f", h.MaxTasksPerDay, h.AverageTasksPerDay)
	}

	empty := newTestAggregator().Heatmap(nil)
	if empty.TotalDays != 0 || empty.MaxTasksPerDay != 0 || empty.AverageTasksPerDay != 0 {
		t.Errorf("Expected zeroed heatmap, got %+v", empty)
	}
}

func TestExport_WriteCSV(t *testing.T) {
	t.Parallel()

	tasks := []*models.Task{
		doneTask(fixedNow.Add(-time.Hour), fixedNow, "Design"),
		openTask(fixedNow.Add(-time.Hour)),
	}
	tasks[1].Title = "Title, with comma"
	journals := []*models.JournalEntry{{ID: uuid.New(), Date: fixedNow, Entry: "ok", Mood: 4, CreatedAt: fixedNow}}

	e := newTestAggregator().BuildExport(tasks, nil, journals, 7)
	if e.Summary.TotalTasks != 2 || e.Summary.CompletedTasks != 1 || e.Summary.TotalJournalEntries != 1 {
		t.Fatalf("Unexpected summary %+v", e.Summary)
	}

	var buf bytes.Buffer
	if err := e.WriteCSV(&buf); err != nil {
		t.Fatalf("Failed to write csv: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d", len(rows))
	}
	if rows[2][1] != "Title, with comma" {
		t.Errorf("Expected quoted title to survive, got %q", rows[2][1])
	}
	if rows[3][0] != "Journal" || rows[3][8] != "4" {
		t.Errorf("Unexpected journal row %v", rows[3])
	}
}

func TestCache_Invalidate(t *testing.T) {
	t.Parallel()

	c := NewCache(8, time.Minute)
	alice, bob := uuid.New(), uuid.New()
	c.Put(alice, 7, &Snapshot{WindowDays: 7})
	c.Put(alice, 30, &Snapshot{WindowDays: 30})
	c.Put(bob, 30, &Snapshot{WindowDays: 30})

	if s, ok := c.Get(alice, 7); !ok || s.WindowDays != 7 {
		t.Fatalf("Expected cached snapshot for alice/7")
	}

	c.Invalidate(alice)
	if _, ok := c.Get(alice, 30); ok {
		t.Error("Expected alice entries to be invalidated")
	}
	if _, ok := c.Get(bob, 30); !ok {
		t.Error("Expected bob entry to survive")
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 cached entry, got %d", c.Len())
	}

	var nilCache *Cache
	if _, ok := nilCache.Get(alice, 7); ok {
		t.Error("Expected nil cache to miss")
	}
}
