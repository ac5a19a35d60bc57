package flow

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// GoalInput is the input of the task generator.
type GoalInput struct {
	Goal string `json:"goal"`
}

// GeneratedTasks is the output of the task generator.
type GeneratedTasks struct {
	Tasks []domain.TaskDraft `json:"tasks"`
}

// Check requires every draft to carry a title.
func (g *GeneratedTasks) Check() error {
	for i, d := range g.Tasks {
		if strings.TrimSpace(d.Title) == "" {
			return fmt.Errorf("tasks[%d]: blank title", i)
		}
	}
	return nil
}

// CommunicationsInput is the input of the risk analyzer.
type CommunicationsInput struct {
	ProjectCommunications string `json:"projectCommunications"`
}

// Executor runs the built-in flows.
type Executor struct {
	tasks *Flow[GoalInput, GeneratedTasks]
	risks *Flow[CommunicationsInput, domain.RiskReport]
}

// NewExecutor loads the built-in flow declarations and binds them to model.
func NewExecutor(model Model, logger *log.Logger) (*Executor, error) {
	tasksDef, err := LoadDefinition("generate_tasks.yaml")
	if err != nil {
		return nil, err
	}
	risksDef, err := LoadDefinition("analyze_risks.yaml")
	if err != nil {
		return nil, err
	}
	tasks, err := New[GoalInput, GeneratedTasks](tasksDef, model, logger)
	if err != nil {
		return nil, err
	}
	risks, err := New[CommunicationsInput, domain.RiskReport](risksDef, model, logger)
	if err != nil {
		return nil, err
	}
	return &Executor{tasks: tasks, risks: risks}, nil
}

// GenerateTasks breaks a goal down into task drafts.
func (e *Executor) GenerateTasks(ctx context.Context, goal string) ([]domain.TaskDraft, error) {
	out, err := e.tasks.Run(ctx, GoalInput{Goal: goal})
	if err != nil {
		return nil, err
	}
	if out.Tasks == nil {
		out.Tasks = []domain.TaskDraft{}
	}
	return out.Tasks, nil
}

// AnalyzeProjectRisks assesses the risks found in project communications.
func (e *Executor) AnalyzeProjectRisks(ctx context.Context, communications string) (domain.RiskReport, error) {
	out, err := e.risks.Run(ctx, CommunicationsInput{ProjectCommunications: communications})
	if err != nil {
		return domain.RiskReport{}, err
	}
	if out.RiskAssessment == nil {
		out.RiskAssessment = []domain.RiskAssessment{}
	}
	return out, nil
}
