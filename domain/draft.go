package domain

// TaskDraft is a task produced by the generator. It lacks every
// operational field until promoted.
type TaskDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// Promote turns a draft into a new task in the first column.
func (d TaskDraft) Promote() Task {
	return Task{
		Title:       d.Title,
		Description: d.Description,
		Priority:    d.Priority,
		DueDate:     "",
		Assignee:    Assignee{Name: UnassignedName},
		Status:      StatusTodo,
	}
}

// Level grades risk severity, likelihood and the overall project risk.
type Level string

const (
	LevelHigh   Level = "HIGH"
	LevelMedium Level = "MEDIUM"
	LevelLow    Level = "LOW"
)

// Valid reports whether l is one of the three assessment levels.
func (l Level) Valid() bool {
	switch l {
	case LevelHigh, LevelMedium, LevelLow:
		return true
	}
	return false
}

// RiskAssessment is one risk identified in project communications.
type RiskAssessment struct {
	Risk               string `json:"risk"`
	Severity           Level  `json:"severity"`
	Likelihood         Level  `json:"likelihood"`
	Impact             string `json:"impact"`
	MitigationStrategy string `json:"mitigationStrategy"`
}

// RiskReport is the full analysis returned to the caller. It is never stored.
type RiskReport struct {
	RiskAssessment     []RiskAssessment `json:"riskAssessment"`
	OverallProjectRisk Level            `json:"overallProjectRisk"`
}
