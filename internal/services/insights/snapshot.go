package insights

import "time"

// DefaultWindowDays is used when the caller does not pick a window
const DefaultWindowDays = 30

// DefaultPeakHour is reported when there are no timestamped completions
const DefaultPeakHour = 9

// Insight is a single generated observation. Lists of insights keep rule order.
type Insight struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// Snapshot is the per-request productivity summary for one user and window
type Snapshot struct {
	WindowDays  int       `json:"window_days"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalTasks       int     `json:"total_tasks"`
	CompletedTasks   int     `json:"completed_tasks"`
	OverdueTasks     int     `json:"overdue_tasks"`
	OpenHighPriority int     `json:"open_high_priority"`
	CompletionRate   float64 `json:"completion_rate"`

	AverageCompletionHours float64 `json:"average_completion_hours"`
	AverageActualMinutes   int     `json:"average_actual_minutes"`

	CategoryStats          map[string]int `json:"category_stats"`
	HourlyStats            map[int]int    `json:"hourly_stats"`
	PeakProductivityHour   int            `json:"peak_productivity_hour"`
	MostProductiveCategory string         `json:"most_productive_category"`
	StreakDays             int            `json:"streak_days"`

	BurnoutRisk int `json:"burnout_risk"`
	MoodScore   int `json:"mood_score"`
	EnergyLevel int `json:"energy_level"`
	StressLevel int `json:"stress_level"`
	FocusScore  int `json:"focus_score"`
	WeeklyTrend int `json:"weekly_trend"`

	Mood         string `json:"mood"`
	MoodTrend    string `json:"mood_trend"`
	WorkingStyle string `json:"working_style"`

	Insights            []Insight `json:"insights"`
	Recommendations     []string  `json:"recommendations"`
	TaskRecommendations []Insight `json:"task_recommendations"`
	MoodRecommendations []string  `json:"mood_recommendations"`
}
