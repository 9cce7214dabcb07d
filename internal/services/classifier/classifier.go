// Package classifier infers category, priority, duration and due date for a task
// from its free text using fixed keyword tables.
package classifier

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/devboard/devboard-api/internal/models"
)

const (
	estimateConfidence = 0.8
	dueDateConfidence  = 0.7
	// workloadFactor stretches the suggested due date per open task
	workloadFactor = 0.2
)

// Classification is the result of Classify
type Classification struct {
	Category   string         `json:"category"`
	Confidence float64        `json:"confidence"`
	Scores     map[string]int `json:"scores"`
	Fallback   bool           `json:"fallback"`
}

// Estimate is the result of EstimateTime
type Estimate struct {
	Minutes    int        `json:"minutes"`
	Complexity Complexity `json:"complexity"`
	Confidence float64    `json:"confidence"`
}

// DueDateSuggestion is the result of SuggestDueDate
type DueDateSuggestion struct {
	DueDate    time.Time `json:"due_date"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

// Analysis bundles every suggestion for one task
type Analysis struct {
	Classification Classification    `json:"classification"`
	Priority       models.Priority   `json:"priority"`
	Estimate       Estimate          `json:"estimate"`
	DueDate        DueDateSuggestion `json:"due_date_suggestion"`
}

// TaskAnalyzer is implemented by anything that can produce task suggestions
type TaskAnalyzer interface {
	Analyze(title, description string, dueDate *time.Time, openTaskCount int) Analysis
}

// Classifier applies the keyword taxonomy. The zero value is not usable; use New.
type Classifier struct {
	now func() time.Time
}

var _ TaskAnalyzer = (*Classifier)(nil)

// Option configures a Classifier
type Option func(*Classifier)

// WithClock overrides the time source used for due-date arithmetic
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

// New creates a classifier
func New(opts ...Option) *Classifier {
	c := &Classifier{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalize(title, description string) string {
	return strings.ToLower(title + " " + description)
}

// tokenize splits on anything that is not a letter, digit or underscore
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

// Classify picks the category whose keywords occur most often in the text.
// Keywords match as substrings, so "api" matches inside "rapid".
func (c *Classifier) Classify(title, description string) Classification {
	text := normalize(title, description)
	tokens := tokenize(text)

	scores := make(map[string]int, len(categories))
	best, maxScore := "", 0
	for _, cat := range categories {
		score := countMatches(text, cat.keywords)
		scores[cat.name] = score
		if score > maxScore {
			best, maxScore = cat.name, score
		}
	}

	if maxScore == 0 {
		for _, rule := range fallbackRules {
			if containsAny(text, rule.patterns) {
				return Classification{
					Category:   rule.category,
					Confidence: rule.confidence,
					Scores:     scores,
					Fallback:   true,
				}
			}
		}
		return Classification{Category: BaselineCategory, Confidence: 0, Scores: scores, Fallback: true}
	}

	confidence := float64(maxScore) / float64(max(1, len(tokens)))
	return Classification{
		Category:   best,
		Confidence: math.Min(1, confidence),
		Scores:     scores,
	}
}

// SuggestPriority scores priority keywords and due-date proximity
func (c *Classifier) SuggestPriority(title, description string, dueDate *time.Time) models.Priority {
	text := normalize(title, description)
	score := 0
	for _, ind := range priorityIndicators {
		score += ind.weight * countMatches(text, ind.keywords)
	}

	if dueDate != nil {
		days := int(math.Ceil(dueDate.Sub(c.now()).Hours() / 24))
		switch {
		case days <= 1:
			score += 3
		case days <= 3:
			score += 2
		case days <= 7:
			score += 1
		}
	}

	switch {
	case score >= 4:
		return models.PriorityHigh
	case score >= 2:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// ComplexityOf derives a complexity band from text length and cue words
func ComplexityOf(title, description string) Complexity {
	text := normalize(title, description)
	words := len(tokenize(text))
	switch {
	case words > 50 || containsAny(text, highComplexityCues):
		return ComplexityHigh
	case words < 10 || containsAny(text, lowComplexityCues):
		return ComplexityLow
	default:
		return ComplexityMedium
	}
}

// EstimateTime scales the category's average duration by complexity
func (c *Classifier) EstimateTime(title, description, category string) Estimate {
	complexity := ComplexityOf(title, description)
	base := TimeRangeFor(category).Avg
	return Estimate{
		Minutes:    int(math.Round(float64(base) * complexityMultipliers[complexity])),
		Complexity: complexity,
		Confidence: estimateConfidence,
	}
}

// SuggestDueDate pushes the due date out further the more open tasks the user has.
// Unknown complexity is treated as medium.
func (c *Classifier) SuggestDueDate(complexity Complexity, openTaskCount int) DueDateSuggestion {
	base, ok := dueDateBaseDays[complexity]
	if !ok {
		complexity = ComplexityMedium
		base = dueDateBaseDays[ComplexityMedium]
	}
	if openTaskCount < 0 {
		openTaskCount = 0
	}
	days := int(math.Ceil(float64(base) * (1 + workloadFactor*float64(openTaskCount))))
	return DueDateSuggestion{
		DueDate:    c.now().AddDate(0, 0, days),
		Confidence: dueDateConfidence,
		Reasoning:  fmt.Sprintf("Based on %s complexity and current workload", complexity),
	}
}

// Analyze runs every suggestion for a task
func (c *Classifier) Analyze(title, description string, dueDate *time.Time, openTaskCount int) Analysis {
	cls := c.Classify(title, description)
	est := c.EstimateTime(title, description, cls.Category)
	return Analysis{
		Classification: cls,
		Priority:       c.SuggestPriority(title, description, dueDate),
		Estimate:       est,
		DueDate:        c.SuggestDueDate(est.Complexity, openTaskCount),
	}
}
