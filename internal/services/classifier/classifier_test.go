package classifier

import (
	"testing"
	"time"

	"github.com/devboard/devboard-api/internal/models"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestClassifier() *Classifier {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func TestClassify_KeywordMatch(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()
	got := c.Classify("Fix login bug", "investigate and patch the authentication endpoint")

	if got.Category != CategoryDevelopment {
		t.Errorf("Expected category %s, got %s (scores %v)", CategoryDevelopment, got.Category, got.Scores)
	}
	if got.Confidence <= 0 {
		t.Errorf("Expected confidence > 0, got %f", got.Confidence)
	}
	if got.Fallback {
		t.Error("Expected keyword match, got fallback")
	}
}

func TestClassify_TieBreaksByDeclarationOrder(t *testing.T) {
	t.Parallel()

	// "bug" scores one for both Development and Testing.
	got := newTestClassifier().Classify("bug", "")
	if got.Category != CategoryDevelopment {
		t.Errorf("Expected tie to resolve to %s, got %s", CategoryDevelopment, got.Category)
	}
}

func TestClassify_Fallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		title      string
		category   string
		confidence float64
	}{
		{"message goes to administrative", "Send message to Bob", CategoryAdministrative, 0.5},
		{"nothing matches", "Buy groceries", CategoryDevelopment, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClassifier()
			first := c.Classify(tt.title, "")
			if first.Category != tt.category {
				t.Errorf("Expected category %s, got %s (scores %v)", tt.category, first.Category, first.Scores)
			}
			if first.Confidence != tt.confidence {
				t.Errorf("Expected confidence %f, got %f", tt.confidence, first.Confidence)
			}
			if !first.Fallback {
				t.Error("Expected fallback classification")
			}
			for i := 0; i < 5; i++ {
				again := c.Classify(tt.title, "")
				if again.Category != first.Category || again.Confidence != first.Confidence {
					t.Fatalf("Expected deterministic result %v, got %v", first, again)
				}
			}
		})
	}
}

func TestSuggestPriority(t *testing.T) {
	t.Parallel()

	tomorrow := fixedNow.Add(24 * time.Hour)
	inThreeDays := fixedNow.Add(72 * time.Hour)
	nextMonth := fixedNow.AddDate(0, 1, 0)
	yesterday := fixedNow.Add(-24 * time.Hour)

	tests := []struct {
		name        string
		title       string
		description string
		due         *time.Time
		want        models.Priority
	}{
		{"urgent due tomorrow", "Urgent: renew certificate", "", &tomorrow, models.PriorityHigh},
		{"no signals", "renew certificate", "", nil, models.PriorityLow},
		{"one high keyword", "important renew certificate", "", nil, models.PriorityMedium},
		{"two high keywords", "urgent and critical", "", nil, models.PriorityHigh},
		{"due in three days", "renew certificate", "", &inThreeDays, models.PriorityMedium},
		{"due far away", "renew certificate", "", &nextMonth, models.PriorityLow},
		{"overdue", "renew certificate", "", &yesterday, models.PriorityMedium},
		{"low indicators add up", "someday optional", "", nil, models.PriorityMedium},
	}

	c := newTestClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.SuggestPriority(tt.title, tt.description, tt.due); got != tt.want {
				t.Errorf("Expected priority %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSuggestPriority_MonotonicInHighKeywords(t *testing.T) {
	t.Parallel()

	rank := map[models.Priority]int{models.PriorityLow: 0, models.PriorityMedium: 1, models.PriorityHigh: 2}
	c := newTestClassifier()
	words := []string{"urgent", "critical", "asap", "emergency", "important"}

	title := "renew certificate"
	prev := rank[c.SuggestPriority(title, "", nil)]
	for _, w := range words {
		title += " " + w
		got := rank[c.SuggestPriority(title, "", nil)]
		if got < prev {
			t.Fatalf("Expected priority not to drop after adding %q: %d -> %d", w, prev, got)
		}
		prev = got
	}
}

func TestEstimateTime_MonotonicInComplexity(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()
	low := c.EstimateTime("Quick fix", "", CategoryDevelopment)
	medium := c.EstimateTime("Update the reporting pipeline so that nightly jobs finish before the morning standup", "", CategoryDevelopment)
	high := c.EstimateTime("Complex migration", "", CategoryDevelopment)

	if low.Complexity != ComplexityLow || medium.Complexity != ComplexityMedium || high.Complexity != ComplexityHigh {
		t.Fatalf("Expected low/medium/high complexity, got %s/%s/%s", low.Complexity, medium.Complexity, high.Complexity)
	}
	if low.Minutes != 63 || medium.Minutes != 90 || high.Minutes != 135 {
		t.Errorf("Expected 63/90/135 minutes, got %d/%d/%d", low.Minutes, medium.Minutes, high.Minutes)
	}
	if !(low.Minutes <= medium.Minutes && medium.Minutes <= high.Minutes) {
		t.Error("Expected estimates to grow with complexity")
	}
	if low.Confidence != 0.8 {
		t.Errorf("Expected confidence 0.8, got %f", low.Confidence)
	}
}

func TestEstimateTime_UnknownCategoryUsesBaseline(t *testing.T) {
	t.Parallel()

	got := newTestClassifier().EstimateTime("Quick one", "", "Gardening")
	if got.Minutes != 63 {
		t.Errorf("Expected baseline low estimate 63, got %d", got.Minutes)
	}
}

func TestSuggestDueDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		complexity Complexity
		open       int
		wantDays   int
	}{
		{"low idle", ComplexityLow, 0, 1},
		{"medium idle", ComplexityMedium, 0, 3},
		{"high with five open", ComplexityHigh, 5, 14},
		{"low with one open rounds up", ComplexityLow, 1, 2},
		{"unknown treated as medium", Complexity("extreme"), 0, 3},
	}

	c := newTestClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := c.SuggestDueDate(tt.complexity, tt.open)
			want := fixedNow.AddDate(0, 0, tt.wantDays)
			if !got.DueDate.Equal(want) {
				t.Errorf("Expected due date %v, got %v", want, got.DueDate)
			}
			if got.Confidence != 0.7 {
				t.Errorf("Expected confidence 0.7, got %f", got.Confidence)
			}
		})
	}
}

func TestAnalyze_BundlesSuggestions(t *testing.T) {
	t.Parallel()

	got := newTestClassifier().Analyze("Quick fix for api", "", nil, 0)
	if got.Classification.Category != CategoryDevelopment {
		t.Errorf("Expected Development, got %s", got.Classification.Category)
	}
	if got.Estimate.Complexity != ComplexityLow {
		t.Errorf("Expected low complexity, got %s", got.Estimate.Complexity)
	}
	if !got.DueDate.DueDate.Equal(fixedNow.AddDate(0, 0, 1)) {
		t.Errorf("Expected due date one day out, got %v", got.DueDate.DueDate)
	}
	if got.DueDate.Reasoning != "Based on low complexity and current workload" {
		t.Errorf("Unexpected reasoning %q", got.DueDate.Reasoning)
	}
}
