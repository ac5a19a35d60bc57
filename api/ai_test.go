package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"prism-board/domain"
	"prism-board/flow"
)

func TestGenerateTasksAddsAllDrafts(t *testing.T) {
	s := newServer(t, nil)
	s.flows.drafts = []domain.TaskDraft{
		{Title: "Research", Description: "Survey users", Priority: domain.PriorityHigh},
		{Title: "Design", Description: "Draft mockups", Priority: domain.PriorityLow},
	}
	rec := s.do(t, http.MethodPost, "/api/ai/tasks", `{"goal":"  Launch the site  "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSON[generateTasksResponse](t, rec)
	if resp.Message != "2 tasks have been generated and added to your board." {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if len(resp.Tasks) != 2 || resp.Tasks[0].Title != "Research" || resp.Tasks[1].Title != "Design" {
		t.Fatalf("unexpected tasks %+v", resp.Tasks)
	}
	for _, task := range resp.Tasks {
		if task.Status != domain.StatusTodo || task.Assignee.Name != domain.UnassignedName {
			t.Fatalf("draft not promoted with defaults: %+v", task)
		}
	}
	if s.flows.goals[0] != "Launch the site" {
		t.Fatalf("expected trimmed goal, got %q", s.flows.goals[0])
	}

	docs, err := s.store.Snapshot(context.Background(), domain.Tasks)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 stored tasks, got %d", len(docs))
	}
}

func TestGenerateTasksRequiresGoal(t *testing.T) {
	s := newServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/ai/tasks", `{"goal":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeJSON[errorBody](t, rec)
	if body.Error != "Input Required" || body.Message != "Please describe the goal for the AI." {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(s.flows.goals) != 0 {
		t.Fatal("model should not be called for blank input")
	}
}

func TestGenerateTasksInvalidDraftStoresNothing(t *testing.T) {
	s := newServer(t, nil)
	s.flows.drafts = []domain.TaskDraft{
		{Title: "ok", Priority: domain.PriorityLow},
		{Title: "", Priority: domain.PriorityLow},
	}
	rec := s.do(t, http.MethodPost, "/api/ai/tasks", `{"goal":"launch"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	docs, _ := s.store.Snapshot(context.Background(), domain.Tasks)
	if len(docs) != 0 {
		t.Fatalf("expected no stored tasks, got %d", len(docs))
	}
}

func TestAnalyzeRisksReturnsReport(t *testing.T) {
	s := newServer(t, nil)
	s.flows.report = domain.RiskReport{
		RiskAssessment: []domain.RiskAssessment{{
			Risk:               "Vendor delay",
			Severity:           domain.LevelHigh,
			Likelihood:         domain.LevelMedium,
			Impact:             "Launch slips",
			MitigationStrategy: "Find a backup vendor",
		}},
		OverallProjectRisk: domain.LevelHigh,
	}
	rec := s.do(t, http.MethodPost, "/api/ai/risks", `{"projectCommunications":"the vendor is late again"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	report := decodeJSON[domain.RiskReport](t, rec)
	if report.OverallProjectRisk != domain.LevelHigh || len(report.RiskAssessment) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestAnalyzeRisksFailures(t *testing.T) {
	s := newServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/ai/risks", `{"projectCommunications":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeJSON[errorBody](t, rec).Message; got != "Please paste project communications to analyze." {
		t.Fatalf("unexpected message %q", got)
	}

	s.flows.err = errors.Join(flow.ErrFailed, errors.New("bad json"))
	rec = s.do(t, http.MethodPost, "/api/ai/risks", `{"projectCommunications":"notes"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if got := decodeJSON[errorBody](t, rec).Message; got != risksFlowFailure {
		t.Fatalf("unexpected message %q", got)
	}
}
