package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/devboard/devboard-api/internal/models"
)

const (
	heatmapDays          = 365
	defaultPomodoroMins  = 25
	pomodoroTargetPerDay = 2
)

var (
	positiveJournalWords = []string{"good", "great", "excellent", "happy", "productive", "accomplished"}
	negativeJournalWords = []string{"bad", "difficult", "stressed", "overwhelmed", "frustrated"}
)

// Overview is the headline block of the analytics dashboard
type Overview struct {
	TotalTasks           int     `json:"total_tasks"`
	CompletedTasks       int     `json:"completed_tasks"`
	CompletionRate       int     `json:"completion_rate"`
	AverageTaskHours     float64 `json:"average_task_time"`
	ProductivityScore    int     `json:"productivity_score"`
	StreakDays           int     `json:"streak_days"`
	FocusTimeHours       float64 `json:"focus_time_hours"`
	PeakProductivityHour int     `json:"peak_productivity_hour"`
}

// DayActivity counts tasks created and completed on one day
type DayActivity struct {
	Date      string `json:"date"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

// CategoryShare is one slice of the category distribution
type CategoryShare struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// HourActivity is one hour of the time-of-day analysis
type HourActivity struct {
	Hour         int `json:"hour"`
	Tasks        int `json:"tasks"`
	Pomodoros    int `json:"pomodoros"`
	Productivity int `json:"productivity"`
}

// ProjectProgress summarises tasks grouped by project label
type ProjectProgress struct {
	Name           string  `json:"name"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	Progress       float64 `json:"progress"`
}

// Trends groups the chart series of the dashboard
type Trends struct {
	Weekly               []DayActivity     `json:"weekly"`
	CategoryDistribution []CategoryShare   `json:"category_distribution"`
	TimeAnalysis         []HourActivity    `json:"time_analysis"`
	ProjectProgress      []ProjectProgress `json:"project_progress"`
}

// DashboardMetadata describes the data behind a dashboard
type DashboardMetadata struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DataPoints  int       `json:"data_points"`
	LastUpdated time.Time `json:"last_updated"`
}

// Dashboard is the analytics view over tasks, pomodoros and journal entries
type Dashboard struct {
	Overview Overview          `json:"overview"`
	Trends   Trends            `json:"trends"`
	Insights []Insight         `json:"insights"`
	Metadata DashboardMetadata `json:"metadata"`
}

// Dashboard builds the analytics dashboard. Inputs are filtered to records created within windowDays.
func (a *Aggregator) Dashboard(tasks []*models.Task, pomodoros []*models.PomodoroSession, journals []*models.JournalEntry, windowDays int) *Dashboard {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	now := a.now()
	start := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	tasks = filterTasks(tasks, start)
	pomodoros = filterPomodoros(pomodoros, start)
	journals = filterJournals(journals, start)

	completed := 0
	var latency float64
	var latencyCount int
	hourly := make(map[int]int)
	for _, t := range tasks {
		if !t.IsDone() {
			continue
		}
		completed++
		if t.CompletedAt != nil {
			latency += t.CompletedAt.Sub(t.CreatedAt).Hours()
			latencyCount++
			hourly[t.CompletedAt.In(a.loc).Hour()]++
		}
	}
	rate := completionRate(completed, len(tasks))
	avgHours := 0.0
	if latencyCount > 0 {
		avgHours = latency / float64(latencyCount)
	}

	focusMinutes := 0
	for _, p := range pomodoros {
		m := p.TotalMinutes
		if m <= 0 {
			m = defaultPomodoroMins
		}
		focusMinutes += m
	}

	return &Dashboard{
		Overview: Overview{
			TotalTasks:           len(tasks),
			CompletedTasks:       completed,
			CompletionRate:       int(math.Round(rate)),
			AverageTaskHours:     round2(avgHours),
			ProductivityScore:    productivityScore(rate, len(tasks), len(pomodoros), len(journals)),
			StreakDays:           a.streakDays(tasks, now),
			FocusTimeHours:       round2(float64(focusMinutes) / 60),
			PeakProductivityHour: peakHour(hourly),
		},
		Trends: Trends{
			Weekly:               a.weeklyActivity(tasks, now),
			CategoryDistribution: categoryDistribution(tasks),
			TimeAnalysis:         a.timeOfDay(tasks, pomodoros),
			ProjectProgress:      projectProgress(tasks),
		},
		Insights: dashboardInsights(rate, len(pomodoros), journals),
		Metadata: DashboardMetadata{
			Start:       start,
			End:         now,
			DataPoints:  len(tasks) + len(pomodoros) + len(journals),
			LastUpdated: now,
		},
	}
}

// productivityScore blends completion, volume, pomodoro and journal activity
func productivityScore(rate float64, tasks, pomodoros, journals int) int {
	v := rate*0.4 +
		math.Min(100, float64(tasks*2))*0.3 +
		math.Min(100, float64(pomodoros*5))*0.2 +
		math.Min(100, float64(journals*10))*0.1
	return clamp(int(math.Round(v)), 0, 100)
}

func (a *Aggregator) weeklyActivity(tasks []*models.Task, now time.Time) []DayActivity {
	today := startOfDay(now, a.loc)
	days := make([]DayActivity, 7)
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		key := dayKey(today.AddDate(0, 0, i-6), a.loc)
		days[i] = DayActivity{Date: key}
		index[key] = i
	}
	for _, t := range tasks {
		if i, ok := index[dayKey(t.CreatedAt, a.loc)]; ok {
			days[i].Created++
		}
		if t.IsDone() && t.CompletedAt != nil {
			if i, ok := index[dayKey(*t.CompletedAt, a.loc)]; ok {
				days[i].Completed++
			}
		}
	}
	return days
}

// categoryDistribution lists categories in order of first appearance
func categoryDistribution(tasks []*models.Task) []CategoryShare {
	out := make([]CategoryShare, 0)
	if len(tasks) == 0 {
		return out
	}
	index := make(map[string]int)
	for _, t := range tasks {
		name := t.Category
		if name == "" {
			name = "Uncategorized"
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, CategoryShare{Name: name})
		}
		out[i].Count++
	}
	for i := range out {
		out[i].Percentage = int(math.Round(float64(out[i].Count) / float64(len(tasks)) * 100))
	}
	return out
}

func (a *Aggregator) timeOfDay(tasks []*models.Task, pomodoros []*models.PomodoroSession) []HourActivity {
	hours := make([]HourActivity, 24)
	for h := range hours {
		hours[h].Hour = h
	}
	for _, t := range tasks {
		if t.IsDone() && t.CompletedAt != nil {
			hours[t.CompletedAt.In(a.loc).Hour()].Tasks++
		}
	}
	for _, p := range pomodoros {
		hours[p.CreatedAt.In(a.loc).Hour()].Pomodoros++
	}
	for h := range hours {
		hours[h].Productivity = hours[h].Tasks*2 + hours[h].Pomodoros
	}
	return hours
}

func projectProgress(tasks []*models.Task) []ProjectProgress {
	byName := make(map[string]*ProjectProgress)
	names := make([]string, 0)
	for _, t := range tasks {
		if t.Project == "" {
			continue
		}
		p, ok := byName[t.Project]
		if !ok {
			p = &ProjectProgress{Name: t.Project}
			byName[t.Project] = p
			names = append(names, t.Project)
		}
		p.TotalTasks++
		if t.IsDone() {
			p.CompletedTasks++
		}
	}
	sort.Strings(names)
	out := make([]ProjectProgress, 0, len(names))
	for _, n := range names {
		p := byName[n]
		p.Progress = round2(100 * float64(p.CompletedTasks) / float64(p.TotalTasks))
		out = append(out, *p)
	}
	return out
}

// dashboardInsights are the analytics-page observations: completion, pomodoro use and journal tone
func dashboardInsights(rate float64, pomodoros int, journals []*models.JournalEntry) []Insight {
	out := make([]Insight, 0, 3)
	if rate > 80 {
		out = append(out, Insight{
			Type:     "positive",
			Title:    "Excellent Task Completion",
			Message:  fmt.Sprintf("You're completing %d%% of your tasks. Keep up the great work!", int(math.Round(rate))),
			Priority: "high",
		})
	} else if rate < 50 {
		out = append(out, Insight{
			Type:     "improvement",
			Title:    "Task Completion Opportunity",
			Message:  fmt.Sprintf("Your completion rate is %d%%. Consider breaking down larger tasks into smaller, manageable chunks.", int(math.Round(rate))),
			Priority: "high",
		})
	}

	if float64(pomodoros)/7 < pomodoroTargetPerDay {
		out = append(out, Insight{
			Type:     "suggestion",
			Title:    "Boost Focus with Pomodoros",
			Message:  "Try using more pomodoro sessions to improve focus and productivity. Aim for 4-6 sessions per day.",
			Priority: "medium",
		})
	}

	if len(journals) > 0 {
		positive, negative := journalSentiment(journals)
		if positive > negative {
			out = append(out, Insight{
				Type:     "positive",
				Title:    "Positive Mindset",
				Message:  "Your journal entries show a positive outlook. This mindset contributes to your productivity!",
				Priority: "low",
			})
		}
	}
	return out
}

// journalSentiment counts positive and negative keyword hits across entries
func journalSentiment(journals []*models.JournalEntry) (positive, negative int) {
	for _, j := range journals {
		text := strings.ToLower(j.Entry)
		for _, w := range positiveJournalWords {
			if strings.Contains(text, w) {
				positive++
			}
		}
		for _, w := range negativeJournalWords {
			if strings.Contains(text, w) {
				negative++
			}
		}
	}
	return positive, negative
}

// HeatmapDay is one cell of the completion heatmap; Level is 0-4
type HeatmapDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

// Heatmap summarises a year of completions
type Heatmap struct {
	Days               []HeatmapDay `json:"heatmap"`
	TotalDays          int          `json:"total_days"`
	MaxTasksPerDay     int          `json:"max_tasks_per_day"`
	AverageTasksPerDay float64      `json:"average_tasks_per_day"`
}

// Heatmap counts completions per day over the last year, oldest day first
func (a *Aggregator) Heatmap(tasks []*models.Task) *Heatmap {
	since := a.now().AddDate(0, 0, -heatmapDays)
	counts := make(map[string]int)
	for _, t := range tasks {
		if t == nil || !t.IsDone() || t.CompletedAt == nil || t.CompletedAt.Before(since) {
			continue
		}
		counts[dayKey(*t.CompletedAt, a.loc)]++
	}

	h := &Heatmap{Days: make([]HeatmapDay, 0, len(counts))}
	total := 0
	for date, n := range counts {
		h.Days = append(h.Days, HeatmapDay{Date: date, Count: n, Level: min(4, n/2)})
		total += n
		h.MaxTasksPerDay = max(h.MaxTasksPerDay, n)
	}
	sort.Slice(h.Days, func(i, j int) bool { return h.Days[i].Date < h.Days[j].Date })
	h.TotalDays = len(counts)
	if h.TotalDays > 0 {
		h.AverageTasksPerDay = round2(float64(total) / float64(h.TotalDays))
	}
	return h
}

func filterTasks(tasks []*models.Task, start time.Time) []*models.Task {
	out := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil && !t.CreatedAt.Before(start) {
			out = append(out, t)
		}
	}
	return out
}

func filterPomodoros(ps []*models.PomodoroSession, start time.Time) []*models.PomodoroSession {
	out := make([]*models.PomodoroSession, 0, len(ps))
	for _, p := range ps {
		if p != nil && !p.CreatedAt.Before(start) {
			out = append(out, p)
		}
	}
	return out
}

func filterJournals(js []*models.JournalEntry, start time.Time) []*models.JournalEntry {
	out := make([]*models.JournalEntry, 0, len(js))
	for _, j := range js {
		if j != nil && !j.CreatedAt.Before(start) {
			out = append(out, j)
		}
	}
	return out
}
