package insights

import (
	"fmt"

	"github.com/devboard/devboard-api/internal/models"
)

// snapshotInsights evaluates the insight rules in a fixed order; output order is rule order.
func snapshotInsights(s *Snapshot) []Insight {
	out := make([]Insight, 0, 5)

	if s.CompletionRate < 50 {
		out = append(out, Insight{
			Type:     "warning",
			Title:    "Low Completion Rate",
			Message:  fmt.Sprintf("Your task completion rate is %.1f%%. Consider breaking down larger tasks or adjusting priorities.", s.CompletionRate),
			Priority: "high",
		})
	} else if s.CompletionRate > 80 {
		out = append(out, Insight{
			Type:     "success",
			Title:    "Excellent Productivity",
			Message:  fmt.Sprintf("Great job! You're completing %.1f%% of your tasks. Keep up the momentum!", s.CompletionRate),
			Priority: "low",
		})
	}

	if len(s.HourlyStats) > 0 {
		out = append(out, Insight{
			Type:     "info",
			Title:    "Peak Productivity Time",
			Message:  fmt.Sprintf("You're most productive around %d:00. Try to schedule important tasks during this time.", s.PeakProductivityHour),
			Priority: "medium",
		})
	}

	if len(s.CategoryStats) > 0 {
		out = append(out, Insight{
			Type:     "info",
			Title:    "Most Productive Category",
			Message:  fmt.Sprintf("You complete the most tasks in %s. Consider focusing on this area for maximum impact.", s.MostProductiveCategory),
			Priority: "medium",
		})
	}

	if s.CompletedTasks > 0 && s.FocusScore < 60 {
		out = append(out, Insight{
			Type:     "suggestion",
			Title:    "Try Time-Blocking",
			Message:  fmt.Sprintf("Your focus score is %d. Blocking out fixed hours for deep work can help.", s.FocusScore),
			Priority: "medium",
		})
	}

	if s.BurnoutRisk > 70 {
		out = append(out, Insight{
			Type:     "warning",
			Title:    "Burnout Risk",
			Message:  fmt.Sprintf("Your burnout risk is %d%%. Consider taking breaks and reducing workload.", s.BurnoutRisk),
			Priority: "high",
		})
	}

	return out
}

func recommendations(s *Snapshot) []string {
	out := make([]string, 0, 4)
	if s.CompletionRate < 70 {
		out = append(out, "Consider breaking down large tasks into smaller, manageable chunks")
	}
	if s.FocusScore < 60 {
		out = append(out, "Try the Pomodoro Technique to improve focus")
	}
	if s.BurnoutRisk > 70 {
		out = append(out, "Take regular breaks to prevent burnout")
	}
	if s.CompletionRate > 90 {
		out = append(out, "Great job! Consider taking on more challenging tasks")
	}
	return out
}

// taskRecommendations looks at the shape of the backlog rather than at performance
func taskRecommendations(tasks []*models.Task) []Insight {
	out := make([]Insight, 0, 2)
	if len(tasks) == 0 {
		return out
	}

	categories := make(map[string]bool)
	high := 0
	for _, t := range tasks {
		categories[t.Category] = true
		if t.Priority == models.PriorityHigh {
			high++
		}
	}

	if len(categories) < 3 {
		out = append(out, Insight{
			Type:     "diversification",
			Title:    "Diversify Your Tasks",
			Message:  "Consider adding tasks from different categories to maintain a balanced workflow.",
			Priority: "medium",
		})
	}
	if float64(high) > float64(len(tasks))*0.5 {
		out = append(out, Insight{
			Type:     "priority",
			Title:    "Too Many High Priority Tasks",
			Message:  "Having too many high-priority tasks can reduce overall productivity. Consider re-prioritizing some tasks.",
			Priority: "high",
		})
	}
	return out
}

var moodRecommendations = map[string][]string{
	"excellent": {"Keep up the great work!", "Consider helping a colleague", "Take on a challenging project"},
	"good":      {"Maintain your current routine", "Set slightly higher goals", "Practice gratitude"},
	"neutral":   {"Try a new productivity technique", "Take a short walk", "Connect with a friend"},
	"poor":      {"Take frequent breaks", "Practice mindfulness", "Consider lighter workload"},
	"critical":  {"Consider taking time off", "Seek support from others", "Focus on self-care"},
}
