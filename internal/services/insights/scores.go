package insights

import (
	"math"
	"sort"
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/services/classifier"
)

const (
	maxStreakDays = 366
	week          = 7 * 24 * time.Hour
)

// peakHour returns the hour with most completions; the earliest hour wins ties
func peakHour(hourly map[int]int) int {
	best, bestCount := DefaultPeakHour, 0
	for h := 0; h < 24; h++ {
		if c := hourly[h]; c > bestCount {
			best, bestCount = h, c
		}
	}
	return best
}

// mostProductiveCategory checks taxonomy categories in order, then custom labels alphabetically.
// Only a strictly larger count replaces the current best.
func mostProductiveCategory(stats map[string]int) string {
	order := classifier.Categories()
	known := make(map[string]bool, len(order))
	for _, c := range order {
		known[c] = true
	}
	custom := make([]string, 0)
	for c := range stats {
		if !known[c] {
			custom = append(custom, c)
		}
	}
	sort.Strings(custom)

	best, bestCount := classifier.BaselineCategory, 0
	for _, c := range append(order, custom...) {
		if stats[c] > bestCount {
			best, bestCount = c, stats[c]
		}
	}
	return best
}

// streakDays walks back from today and stops at the first day without a completion.
// A day with no completions today yields zero.
func (a *Aggregator) streakDays(tasks []*models.Task, now time.Time) int {
	days := make(map[string]bool)
	for _, t := range tasks {
		if t != nil && t.IsDone() && t.CompletedAt != nil {
			days[dayKey(*t.CompletedAt, a.loc)] = true
		}
	}
	today := startOfDay(now, a.loc)
	streak := 0
	for i := 0; i < maxStreakDays; i++ {
		if !days[dayKey(today.AddDate(0, 0, -i), a.loc)] {
			break
		}
		streak++
	}
	return streak
}

// burnoutRisk combines overdue, open high-priority and workload penalties, each capped
func burnoutRisk(overdue, openHigh, total int) int {
	overduePenalty := min(50, 10*overdue)
	priorityPenalty := min(30, 5*openHigh)
	workloadPenalty := min(20, 2*max(0, total-10))
	return clamp(overduePenalty+priorityPenalty+workloadPenalty, 0, 100)
}

func distinctCategories(tasks []*models.Task) int {
	set := make(map[string]bool)
	for _, t := range tasks {
		c := t.Category
		if c == "" {
			c = "default"
		}
		set[c] = true
	}
	return len(set)
}

// moodScore rises with completion and category variety and falls with burnout
func moodScore(completion float64, burnout, categories int) int {
	v := completion*0.5 - float64(burnout)*0.3 + float64(categories)*5
	return clamp(int(math.Round(v)), 0, 100)
}

// energyLevel is the completion rate of tasks created in the last three days
func energyLevel(tasks []*models.Task, now time.Time) int {
	since := now.Add(-3 * 24 * time.Hour)
	var total, done int
	for _, t := range tasks {
		if t == nil || t.CreatedAt.Before(since) {
			continue
		}
		total++
		if t.IsDone() {
			done++
		}
	}
	if total == 0 {
		return 50
	}
	return clamp(int(math.Round(100*float64(done)/float64(total))), 0, 100)
}

func stressLevel(overdue, burnout int) int {
	v := float64(min(50, 10*overdue)) + float64(burnout)*0.5
	return clamp(int(math.Round(v)), 0, 100)
}

// focusScore rewards completing tasks at consistent hours and tracking actual time
func (a *Aggregator) focusScore(tasks []*models.Task, avgActualMinutes int) int {
	hours := make([]float64, 0, len(tasks))
	for _, t := range tasks {
		if t.IsDone() && t.CompletedAt != nil {
			hours = append(hours, float64(t.CompletedAt.In(a.loc).Hour()))
		}
	}
	if len(hours) == 0 {
		return 0
	}
	consistency := math.Max(0, 100-variance(hours)*5)
	v := consistency * 0.6
	if avgActualMinutes > 0 {
		v += 40
	}
	return clamp(int(math.Round(v)), 0, 100)
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return sq / float64(len(xs))
}

// weeklyTrend is the percent change in created tasks, last 7 days vs the 7 before.
// It is zero when the earlier week is empty.
func weeklyTrend(tasks []*models.Task, now time.Time) int {
	weekAgo := now.Add(-week)
	twoWeeksAgo := now.Add(-2 * week)
	var thisWeek, lastWeek int
	for _, t := range tasks {
		if t == nil {
			continue
		}
		switch {
		case !t.CreatedAt.Before(weekAgo):
			thisWeek++
		case !t.CreatedAt.Before(twoWeeksAgo):
			lastWeek++
		}
	}
	if lastWeek == 0 {
		return 0
	}
	return int(math.Round(float64(thisWeek-lastWeek) / float64(lastWeek) * 100))
}

func moodLabel(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 70:
		return "good"
	case score >= 50:
		return "neutral"
	case score >= 30:
		return "poor"
	default:
		return "critical"
	}
}

func moodTrend(weekly int) string {
	switch {
	case weekly > 5:
		return "improving"
	case weekly < -5:
		return "declining"
	default:
		return "stable"
	}
}

// workingStyle compares completions between 06-11h and 18-23h
func (a *Aggregator) workingStyle(tasks []*models.Task) string {
	var morning, evening, completed int
	for _, t := range tasks {
		if !t.IsDone() || t.CompletedAt == nil {
			continue
		}
		completed++
		h := t.CompletedAt.In(a.loc).Hour()
		switch {
		case h >= 6 && h <= 11:
			morning++
		case h >= 18 && h <= 23:
			evening++
		}
	}
	switch {
	case completed == 0:
		return "flexible"
	case float64(morning) > float64(evening)*1.5:
		return "morning-person"
	case float64(evening) > float64(morning)*1.5:
		return "night-owl"
	default:
		return "flexible"
	}
}
