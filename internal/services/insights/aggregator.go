// Package insights turns a user's tasks, pomodoros and journal entries into
// productivity metrics and rule-based insights.
package insights

import (
	"math"
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/services/classifier"
)

// Aggregator computes snapshots. Calendar math (streaks, hours of day) uses its location.
type Aggregator struct {
	now func() time.Time
	loc *time.Location
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithLocation sets the time zone used to bucket timestamps into days and hours
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// NewAggregator creates an aggregator using wall-clock time in UTC unless configured otherwise
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate builds a snapshot from tasks created within the last windowDays.
// Streak, weekly trend and energy look at the whole task set since they use fixed look-back periods.
func (a *Aggregator) Generate(tasks []*models.Task, windowDays int) *Snapshot {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	now := a.now()
	start := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	recent := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil && !t.CreatedAt.Before(start) {
			recent = append(recent, t)
		}
	}

	s := &Snapshot{
		WindowDays:    windowDays,
		GeneratedAt:   now,
		TotalTasks:    len(recent),
		CategoryStats: make(map[string]int),
		HourlyStats:   make(map[int]int),
	}

	var latencyHours float64
	var latencyCount int
	var actualTotal, actualCount int
	for _, t := range recent {
		if t.IsOverdue(now) {
			s.OverdueTasks++
		}
		if t.Priority == models.PriorityHigh && !t.IsDone() {
			s.OpenHighPriority++
		}
		if !t.IsDone() {
			continue
		}
		s.CompletedTasks++
		s.CategoryStats[categoryOrBaseline(t.Category)]++
		if t.ActualMinutes > 0 {
			actualTotal += t.ActualMinutes
			actualCount++
		}
		if t.CompletedAt != nil {
			s.HourlyStats[t.CompletedAt.In(a.loc).Hour()]++
			latencyHours += t.CompletedAt.Sub(t.CreatedAt).Hours()
			latencyCount++
		}
	}

	s.CompletionRate = completionRate(s.CompletedTasks, s.TotalTasks)
	if latencyCount > 0 {
		s.AverageCompletionHours = round2(latencyHours / float64(latencyCount))
	}
	if actualCount > 0 {
		s.AverageActualMinutes = int(math.Round(float64(actualTotal) / float64(actualCount)))
	}

	s.PeakProductivityHour = peakHour(s.HourlyStats)
	s.MostProductiveCategory = mostProductiveCategory(s.CategoryStats)
	s.StreakDays = a.streakDays(tasks, now)

	s.BurnoutRisk = burnoutRisk(s.OverdueTasks, s.OpenHighPriority, s.TotalTasks)
	s.MoodScore = moodScore(s.CompletionRate, s.BurnoutRisk, distinctCategories(recent))
	s.EnergyLevel = energyLevel(tasks, now)
	s.StressLevel = stressLevel(s.OverdueTasks, s.BurnoutRisk)
	s.FocusScore = a.focusScore(recent, s.AverageActualMinutes)
	s.WeeklyTrend = weeklyTrend(tasks, now)

	s.Mood = moodLabel(s.MoodScore)
	s.MoodTrend = moodTrend(s.WeeklyTrend)
	s.WorkingStyle = a.workingStyle(recent)

	s.Insights = snapshotInsights(s)
	s.Recommendations = recommendations(s)
	s.TaskRecommendations = taskRecommendations(recent)
	s.MoodRecommendations = moodRecommendations[s.Mood]

	return s
}

func categoryOrBaseline(category string) string {
	if category == "" {
		return classifier.BaselineCategory
	}
	return category
}

func completionRate(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return clampFloat(round2(100*float64(done)/float64(total)), 0, 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// dayKey buckets a timestamp into a calendar day in loc
func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// startOfDay is local midnight of t's day in loc
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
