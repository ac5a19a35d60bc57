package api

import (
	"prism-board/domain"
	"prism-board/gateway"
)

var (
	loadBoard    = gateway.Action{Verb: "load", Noun: "board"}
	loadProjects = gateway.Action{Verb: "load", Noun: "projects"}
	loadTeam     = gateway.Action{Verb: "load", Noun: "team"}
	loadCalendar = gateway.Action{Verb: "load", Noun: "calendar"}
	analyzeRisks = gateway.Action{Verb: "analyze", Noun: "risks"}
)

type boardResponse struct {
	Columns []domain.Column `json:"columns"`
}

type projectsResponse struct {
	Projects []domain.Project `json:"projects"`
}

type teamResponse struct {
	Team []domain.TeamMember `json:"team"`
}

type calendarResponse struct {
	Days []domain.CalendarDay `json:"days"`
}

type generateTasksRequest struct {
	Goal string `json:"goal"`
}

type generateTasksResponse struct {
	Tasks   []domain.Task `json:"tasks"`
	Message string        `json:"message"`
}

type analyzeRisksRequest struct {
	ProjectCommunications string `json:"projectCommunications"`
}
