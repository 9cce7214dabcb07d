package classifier

// Category labels, in declaration order. Ties between equal scores resolve to the earlier entry.
const (
	CategoryDevelopment    = "Development"
	CategoryDesign         = "Design"
	CategoryPlanning       = "Planning"
	CategoryDocumentation  = "Documentation"
	CategoryTesting        = "Testing"
	CategoryMeetings       = "Meetings"
	CategoryAdministrative = "Administrative"
)

// BaselineCategory is used when nothing else applies
const BaselineCategory = CategoryDevelopment

// Complexity is the estimated effort band of a task
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

type categoryKeywords struct {
	name     string
	keywords []string
}

var categories = []categoryKeywords{
	{CategoryDevelopment, []string{
		"code", "program", "develop", "bug", "fix", "feature", "api", "database", "frontend", "backend",
		"testing", "deploy", "function", "class", "method", "script", "algorithm", "optimize", "refactor",
		"implement", "build", "compile", "debug", "version", "git", "commit", "merge", "pull", "push",
		"repository", "framework", "library", "package", "module", "component", "service", "controller",
		"model", "view", "template", "stylesheet", "javascript", "typescript", "python", "java", "react",
		"angular", "vue", "node", "express", "mongodb", "sql", "html", "css",
	}},
	{CategoryDesign, []string{
		"design", "ui", "ux", "mockup", "wireframe", "prototype", "visual", "layout", "style", "branding",
		"graphic", "logo", "icon", "illustration", "color", "typography", "font", "image", "photo",
		"picture", "drawing", "sketch", "figma", "adobe", "photoshop", "illustrator", "invision",
		"interface", "user experience", "user interface", "responsive", "mobile", "desktop", "web", "app",
		"dashboard", "landing", "page",
	}},
	{CategoryPlanning, []string{
		"plan", "strategy", "roadmap", "research", "analysis", "meeting", "discuss", "review", "brainstorm",
		"outline", "schedule", "timeline", "milestone", "goal", "objective", "target", "deadline", "estimate",
		"budget", "scope", "requirement", "specification", "architecture", "system", "process", "workflow",
		"methodology", "agile", "scrum", "kanban", "sprint", "backlog", "epic", "story", "task",
	}},
	{CategoryDocumentation, []string{
		"document", "write", "draft", "content", "blog", "article", "manual", "guide", "tutorial", "readme",
		"wiki", "help", "support", "faq", "knowledge", "base", "documentation", "spec", "specification",
		"api doc", "swagger", "postman", "comment", "note", "memo", "report", "summary", "description",
		"explanation", "instruction", "procedure", "step", "how to", "user guide", "technical", "writing",
	}},
	{CategoryTesting, []string{
		"test", "qa", "quality", "bug", "issue", "debug", "validate", "verify", "check", "unit test",
		"integration test", "e2e", "end to end", "automated", "manual", "regression", "performance", "load",
		"stress", "security", "penetration", "vulnerability", "coverage", "assertion", "expectation",
		"scenario", "case", "suite", "runner", "jest", "mocha", "cypress", "selenium", "junit", "pytest",
		"assert", "expect", "should", "spec",
	}},
	{CategoryMeetings, []string{
		"meeting", "call", "discussion", "presentation", "demo", "sync", "standup", "review", "conference",
		"workshop", "training", "onboarding", "kickoff", "retrospective", "planning", "grooming",
		"estimation", "sprint", "daily", "weekly", "monthly", "quarterly", "annual", "team", "client",
		"stakeholder", "interview", "consultation", "brainstorming", "collaboration", "coordination",
		"alignment", "agenda", "minutes", "action item",
	}},
	{CategoryAdministrative, []string{
		"email", "reply", "organize", "schedule", "coordinate", "follow-up", "update", "report", "admin",
		"administrative", "paperwork", "form", "application", "approval", "request", "permission", "access",
		"account", "profile", "settings", "configuration", "setup", "installation", "maintenance", "backup",
		"restore", "migration", "deployment", "release", "version", "upgrade", "patch", "hotfix",
		"monitoring", "logging", "alert", "notification", "support", "ticket", "issue", "incident",
		"cleanup", "archive", "delete", "remove", "export", "import", "data",
	}},
}

// fallbackRule is checked in order when no category keyword matched
type fallbackRule struct {
	patterns   []string
	category   string
	confidence float64
}

var fallbackRules = []fallbackRule{
	{[]string{"meeting", "call", "discussion"}, CategoryMeetings, 0.6},
	{[]string{"email", "reply", "message"}, CategoryAdministrative, 0.5},
	{[]string{"plan", "strategy", "research"}, CategoryPlanning, 0.5},
	{[]string{"write", "document", "content"}, CategoryDocumentation, 0.5},
	{[]string{"test", "check", "verify"}, CategoryTesting, 0.5},
	{[]string{"design", "ui", "layout"}, CategoryDesign, 0.5},
}

type priorityIndicator struct {
	keywords []string
	weight   int
}

var priorityIndicators = []priorityIndicator{
	{[]string{"urgent", "critical", "asap", "emergency", "deadline", "important", "priority"}, 3},
	{[]string{"normal", "standard", "regular", "ongoing"}, 2},
	{[]string{"optional", "nice-to-have", "future", "backlog", "someday"}, 1},
}

var (
	highComplexityCues = []string{"complex", "difficult"}
	lowComplexityCues  = []string{"simple", "quick"}
)

// TimeRange is the typical duration of a category's tasks in minutes
type TimeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
	Avg int `json:"avg"`
}

var timeEstimates = map[string]TimeRange{
	CategoryDevelopment:    {Min: 30, Max: 240, Avg: 90},
	CategoryDesign:         {Min: 15, Max: 180, Avg: 60},
	CategoryPlanning:       {Min: 20, Max: 120, Avg: 45},
	CategoryDocumentation:  {Min: 15, Max: 90, Avg: 30},
	CategoryTesting:        {Min: 10, Max: 60, Avg: 20},
	CategoryMeetings:       {Min: 15, Max: 120, Avg: 30},
	CategoryAdministrative: {Min: 5, Max: 30, Avg: 10},
}

var complexityMultipliers = map[Complexity]float64{
	ComplexityLow:    0.7,
	ComplexityMedium: 1.0,
	ComplexityHigh:   1.5,
}

var dueDateBaseDays = map[Complexity]int{
	ComplexityLow:    1,
	ComplexityMedium: 3,
	ComplexityHigh:   7,
}

// Categories returns the category labels in declaration order
func Categories() []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = c.name
	}
	return out
}

// TimeRangeFor returns the duration range for a category, falling back to the baseline category
func TimeRangeFor(category string) TimeRange {
	if tr, ok := timeEstimates[category]; ok {
		return tr
	}
	return timeEstimates[BaselineCategory]
}

// ValidComplexity reports whether s is a known complexity label
func ValidComplexity(s string) bool {
	_, ok := complexityMultipliers[Complexity(s)]
	return ok
}
